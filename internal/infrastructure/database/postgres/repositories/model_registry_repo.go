package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// ModelRegistryRepository persists ranking model versions in ranking_models.
type ModelRegistryRepository struct {
	conn *postgres.Connection
	log  logging.Logger
}

var _ trade.ModelRegistry = (*ModelRegistryRepository)(nil)

func NewModelRegistryRepository(conn *postgres.Connection, log logging.Logger) *ModelRegistryRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ModelRegistryRepository{conn: conn, log: log.Named("model_registry")}
}

// Record upserts v keyed by version.
func (r *ModelRegistryRepository) Record(ctx context.Context, v trade.ModelVersion) error {
	if strings.TrimSpace(v.Version) == "" || strings.TrimSpace(v.ObjectKey) == "" {
		return errors.New(errors.ErrCodeValidation, "model version and object key are required")
	}
	query := `
		INSERT INTO ranking_models (
			version, object_key, ndcg_at_5, mrr, samples, queries, iterations, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
		ON CONFLICT (version) DO UPDATE SET
			object_key = EXCLUDED.object_key,
			ndcg_at_5  = EXCLUDED.ndcg_at_5,
			mrr        = EXCLUDED.mrr,
			samples    = EXCLUDED.samples,
			queries    = EXCLUDED.queries,
			iterations = EXCLUDED.iterations,
			created_at = EXCLUDED.created_at
	`
	_, err := r.conn.DB().ExecContext(ctx, query,
		v.Version, v.ObjectKey, v.NDCGAt5, v.MRR, v.Samples, v.Queries, v.Iterations, v.CreatedAt.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to record model version")
	}
	r.log.Info("model version recorded",
		logging.String("version", v.Version),
		logging.Float64("ndcg_at_5", v.NDCGAt5))
	return nil
}

// Latest returns the most recently created version.
func (r *ModelRegistryRepository) Latest(ctx context.Context) (*trade.ModelVersion, error) {
	query := `
		SELECT version, object_key, ndcg_at_5, mrr, samples, queries, iterations, created_at
		FROM ranking_models
		ORDER BY created_at DESC, version DESC
		LIMIT 1
	`
	v, err := scanModelVersion(r.conn.DB().QueryRowContext(ctx, query))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load latest model version")
	}
	return v, nil
}

// List returns up to limit versions, newest first.
func (r *ModelRegistryRepository) List(ctx context.Context, limit int) ([]trade.ModelVersion, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.conn.DB().QueryContext(ctx, `
		SELECT version, object_key, ndcg_at_5, mrr, samples, queries, iterations, created_at
		FROM ranking_models
		ORDER BY created_at DESC, version DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list model versions")
	}
	defer rows.Close()

	out := []trade.ModelVersion{}
	for rows.Next() {
		v, err := scanModelVersion(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan model version")
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func scanModelVersion(row scanner) (*trade.ModelVersion, error) {
	var v trade.ModelVersion
	if err := row.Scan(&v.Version, &v.ObjectKey, &v.NDCGAt5, &v.MRR,
		&v.Samples, &v.Queries, &v.Iterations, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

//Personal.AI order the ending
