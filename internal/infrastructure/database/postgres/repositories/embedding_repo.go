package repositories

import (
	"context"
	"encoding/json"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// EmbeddingRepository reads the offline-computed company embeddings kept in
// company_embeddings.  They are the source the vector index is synced from.
type EmbeddingRepository struct {
	conn *postgres.Connection
	log  logging.Logger
}

func NewEmbeddingRepository(conn *postgres.Connection, log logging.Logger) *EmbeddingRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &EmbeddingRepository{conn: conn, log: log.Named("embedding_repo")}
}

// Batch returns up to limit embeddings with id > afterID in id order, and
// the last id read.  Role flags are derived from shipment history.
func (r *EmbeddingRepository) Batch(ctx context.Context, afterID int64, limit int) ([]trade.CompanyEmbedding, int64, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.conn.DB().QueryContext(ctx, `
		SELECT e.id, e.company_name, e.embedding, e.cluster_tag, e.pagerank, e.degree,
		       EXISTS (SELECT 1 FROM transactions t WHERE t.buyer = e.company_name),
		       EXISTS (SELECT 1 FROM transactions t WHERE t.seller = e.company_name)
		FROM company_embeddings e
		WHERE e.id > $1
		ORDER BY e.id
		LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, afterID, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load company embeddings")
	}
	defer rows.Close()

	last := afterID
	out := []trade.CompanyEmbedding{}
	for rows.Next() {
		var (
			e   trade.CompanyEmbedding
			raw []byte
		)
		if err := rows.Scan(&last, &e.Name, &raw, &e.ClusterTag, &e.PageRank, &e.Degree, &e.IsBuyer, &e.IsSeller); err != nil {
			return nil, afterID, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan company embedding")
		}
		if err := json.Unmarshal(raw, &e.Vector); err != nil {
			r.log.Warn("skipping malformed embedding",
				logging.String("company", e.Name), logging.Err(err))
			continue
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, afterID, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate company embeddings")
	}
	return out, last, nil
}

//Personal.AI order the ending
