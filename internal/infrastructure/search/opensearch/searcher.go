package opensearch

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// topScore is the normalized score of the best fuzzy hit; exact keyword
// matches score 1.0 so a fuzzy hit never outranks them.
const topScore = 0.9

// SubcategorySearcher implements trade.SubcategoryIndex.
type SubcategorySearcher struct {
	client *Client
	index  string
	logger logging.Logger
}

var _ trade.SubcategoryIndex = (*SubcategorySearcher)(nil)

func NewSubcategorySearcher(c *Client, indexPrefix string, log logging.Logger) *SubcategorySearcher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &SubcategorySearcher{client: c, index: SubcategoryIndexName(indexPrefix), logger: log.Named("opensearch_searcher")}
}

type searchResponse struct {
	Hits struct {
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			Score  float64        `json:"_score"`
			Source subcategoryDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildQuery(term string, size int) map[string]any {
	return map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{"match": map[string]any{"name": map[string]any{"query": term, "fuzziness": "AUTO", "boost": 2}}},
					map[string]any{"match": map[string]any{"name.prefix": map[string]any{"query": term}}},
				},
				"minimum_should_match": 1,
			},
		},
		"_source": []string{"id", "name", "hs_code"},
	}
}

// Search returns up to size fuzzy matches with scores normalized so the
// best hit scores 0.9.
func (s *SubcategorySearcher) Search(ctx context.Context, term string, size int) ([]trade.SubcategoryMatch, error) {
	if term == "" || size <= 0 {
		return nil, nil
	}
	body, err := json.Marshal(buildQuery(term, size))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal search query")
	}

	resp, err := opensearchapi.SearchRequest{Index: []string{s.index}, Body: bytes.NewReader(body)}.Do(ctx, s.client.client)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "subcategory search failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, responseError(resp, "subcategory search failed")
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode search response")
	}
	if out.Hits.MaxScore == nil || *out.Hits.MaxScore <= 0 {
		return nil, nil
	}

	max := *out.Hits.MaxScore
	matches := make([]trade.SubcategoryMatch, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		matches = append(matches, trade.SubcategoryMatch{
			Subcategory: trade.Subcategory{ID: h.Source.ID, Name: h.Source.Name, HSCode: h.Source.HSCode},
			Score:       topScore * h.Score / max,
			Method:      trade.MatchFuzzy,
		})
	}
	s.logger.Debug("subcategory search", logging.String("term", term), logging.Int("hits", len(matches)))
	return matches, nil
}

//Personal.AI order the ending
