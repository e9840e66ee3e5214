package milvus

import (
	"context"
	"fmt"
	"strings"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

const defaultSearchEf = 64

var exprEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quote(s string) string { return `"` + exprEscaper.Replace(s) + `"` }

// EmbeddingSearcher implements trade.EmbeddingStore on a Milvus collection.
type EmbeddingSearcher struct {
	client     *Client
	collection string
	dim        int
	metric     entity.MetricType
	ef         int
	logger     logging.Logger
}

var _ trade.EmbeddingStore = (*EmbeddingSearcher)(nil)

func NewEmbeddingSearcher(c *Client, cfg CollectionConfig, log logging.Logger) *EmbeddingSearcher {
	cfg.applyDefaults()
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &EmbeddingSearcher{
		client:     c,
		collection: cfg.Name,
		dim:        cfg.Dim,
		metric:     cfg.MetricType,
		ef:         defaultSearchEf,
		logger:     log.Named("milvus_embeddings"),
	}
}

var outputFields = []string{FieldCompany, FieldEmbedding, FieldClusterTag, FieldPageRank, FieldDegree, FieldIsBuyer, FieldIsSeller}

// Lookup fetches one company's embedding by primary key.
func (s *EmbeddingSearcher) Lookup(ctx context.Context, company string) (*trade.CompanyEmbedding, error) {
	rs, err := s.client.SDK().Query(ctx, s.collection, nil, FieldCompany+" == "+quote(company), outputFields)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "embedding lookup failed")
	}
	rows, err := decodeEmbeddings(rs)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// Nearest runs a cosine search restricted to companies playing role.
func (s *EmbeddingSearcher) Nearest(ctx context.Context, vector []float32, role trade.Role, exclude []string, limit int) ([]trade.EmbeddingHit, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}
	expr, err := roleFilter(role, exclude)
	if err != nil {
		return nil, err
	}
	sp, err := entity.NewIndexHNSWSearchParam(s.ef)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "invalid search parameters")
	}

	results, err := s.client.SDK().Search(ctx, s.collection, nil, expr,
		[]string{FieldCompany, FieldClusterTag},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldEmbedding, s.metric, limit, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "embedding search failed")
	}
	if len(results) == 0 {
		return nil, nil
	}

	res := results[0]
	if res.Err != nil {
		return nil, errors.Wrap(res.Err, errors.ErrCodeEmbeddingStoreError, "embedding search failed")
	}
	names := res.Fields.GetColumn(FieldCompany)
	tags := res.Fields.GetColumn(FieldClusterTag)
	hits := make([]trade.EmbeddingHit, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		hit := trade.EmbeddingHit{Similarity: float64(res.Scores[i])}
		if names != nil {
			hit.Name, _ = names.GetAsString(i)
		}
		if tags != nil {
			hit.SegmentTag, _ = tags.GetAsString(i)
		}
		if hit.Name == "" {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Upsert writes embeddings, skipping vectors of the wrong dimension, and
// returns how many rows were written.
func (s *EmbeddingSearcher) Upsert(ctx context.Context, rows []trade.CompanyEmbedding) (int, error) {
	var (
		names    []string
		vectors  [][]float32
		tags     []string
		ranks    []float64
		degrees  []int64
		isBuyer  []bool
		isSeller []bool
	)
	for _, r := range rows {
		if r.Name == "" || len(r.Vector) != s.dim {
			s.logger.Warn("skipping embedding", logging.String("company", r.Name), logging.Int("dim", len(r.Vector)))
			continue
		}
		names = append(names, r.Name)
		vectors = append(vectors, r.Vector)
		tags = append(tags, r.ClusterTag)
		ranks = append(ranks, r.PageRank)
		degrees = append(degrees, int64(r.Degree))
		isBuyer = append(isBuyer, r.IsBuyer)
		isSeller = append(isSeller, r.IsSeller)
	}
	if len(names) == 0 {
		return 0, nil
	}

	_, err := s.client.SDK().Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar(FieldCompany, names),
		entity.NewColumnFloatVector(FieldEmbedding, s.dim, vectors),
		entity.NewColumnVarChar(FieldClusterTag, tags),
		entity.NewColumnDouble(FieldPageRank, ranks),
		entity.NewColumnInt64(FieldDegree, degrees),
		entity.NewColumnBool(FieldIsBuyer, isBuyer),
		entity.NewColumnBool(FieldIsSeller, isSeller),
	)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "embedding upsert failed")
	}
	return len(names), nil
}

// Flush seals pending segments so new rows become searchable.
func (s *EmbeddingSearcher) Flush(ctx context.Context) error {
	if err := s.client.SDK().Flush(ctx, s.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeEmbeddingStoreError, "embedding flush failed")
	}
	return nil
}

func roleFilter(role trade.Role, exclude []string) (string, error) {
	var expr string
	switch role {
	case trade.RoleBuyer:
		expr = FieldIsBuyer + " == true"
	case trade.RoleSeller:
		expr = FieldIsSeller + " == true"
	default:
		return "", errors.New(errors.ErrCodeDirectionInvalid, fmt.Sprintf("unknown role %q", role))
	}
	if len(exclude) == 0 {
		return expr, nil
	}
	quoted := make([]string, len(exclude))
	for i, name := range exclude {
		quoted[i] = quote(name)
	}
	return expr + " && " + FieldCompany + " not in [" + strings.Join(quoted, ", ") + "]", nil
}

func decodeEmbeddings(rs client.ResultSet) ([]trade.CompanyEmbedding, error) {
	names := rs.GetColumn(FieldCompany)
	if names == nil || names.Len() == 0 {
		return nil, nil
	}
	vecCol, ok := rs.GetColumn(FieldEmbedding).(*entity.ColumnFloatVector)
	if !ok {
		return nil, errors.New(errors.ErrCodeEmbeddingStoreError, "embedding column missing from result")
	}
	vectors := vecCol.Data()

	out := make([]trade.CompanyEmbedding, 0, names.Len())
	for i := 0; i < names.Len(); i++ {
		e := trade.CompanyEmbedding{}
		e.Name, _ = names.GetAsString(i)
		if i < len(vectors) {
			e.Vector = vectors[i]
		}
		if c := rs.GetColumn(FieldClusterTag); c != nil {
			e.ClusterTag, _ = c.GetAsString(i)
		}
		if c := rs.GetColumn(FieldPageRank); c != nil {
			e.PageRank, _ = c.GetAsDouble(i)
		}
		if c := rs.GetColumn(FieldDegree); c != nil {
			d, _ := c.GetAsInt64(i)
			e.Degree = int(d)
		}
		if c := rs.GetColumn(FieldIsBuyer); c != nil {
			e.IsBuyer, _ = c.GetAsBool(i)
		}
		if c := rs.GetColumn(FieldIsSeller); c != nil {
			e.IsSeller, _ = c.GetAsBool(i)
		}
		out = append(out, e)
	}
	return out, nil
}

//Personal.AI order the ending
