package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

const (
	subcategoryIndexSuffix = "subcategories"
	defaultBulkBatch       = 500
)

// SubcategoryIndexName returns the product subcategory index name for a
// deployment prefix.
func SubcategoryIndexName(prefix string) string {
	return prefix + subcategoryIndexSuffix
}

// subcategoryMapping indexes names with an edge n-gram sub-field so
// partial product words still score.
var subcategoryMapping = map[string]any{
	"settings": map[string]any{
		"analysis": map[string]any{
			"analyzer": map[string]any{
				"product_prefix": map[string]any{
					"type":      "custom",
					"tokenizer": "standard",
					"filter":    []string{"lowercase", "asciifolding", "product_edge"},
				},
			},
			"filter": map[string]any{
				"product_edge": map[string]any{"type": "edge_ngram", "min_gram": 3, "max_gram": 15},
			},
		},
	},
	"mappings": map[string]any{
		"properties": map[string]any{
			"id": map[string]any{"type": "long"},
			"name": map[string]any{
				"type":     "text",
				"analyzer": "standard",
				"fields": map[string]any{
					"prefix":  map[string]any{"type": "text", "analyzer": "product_prefix", "search_analyzer": "standard"},
					"keyword": map[string]any{"type": "keyword"},
				},
			},
			"hs_code":     map[string]any{"type": "keyword"},
			"has_imports": map[string]any{"type": "boolean"},
			"has_exports": map[string]any{"type": "boolean"},
		},
	},
}

type subcategoryDoc struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	HSCode     string `json:"hs_code"`
	HasImports bool   `json:"has_imports"`
	HasExports bool   `json:"has_exports"`
}

// Indexer maintains the subcategory index.
type Indexer struct {
	client    *Client
	index     string
	batchSize int
	logger    logging.Logger
}

func NewIndexer(c *Client, indexPrefix string, log logging.Logger) *Indexer {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Indexer{
		client:    c,
		index:     SubcategoryIndexName(indexPrefix),
		batchSize: defaultBulkBatch,
		logger:    log.Named("opensearch_indexer"),
	}
}

// EnsureIndex creates the subcategory index when it does not exist.
func (i *Indexer) EnsureIndex(ctx context.Context) error {
	exists, err := opensearchapi.IndicesExistsRequest{Index: []string{i.index}}.Do(ctx, i.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "index existence check failed")
	}
	exists.Body.Close()
	if exists.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(subcategoryMapping)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal index mapping")
	}
	resp, err := opensearchapi.IndicesCreateRequest{Index: i.index, Body: bytes.NewReader(body)}.Do(ctx, i.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "index creation failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return responseError(resp, "index creation failed")
	}
	i.logger.Info("index created", logging.String("index", i.index))
	return nil
}

// IndexSubcategories bulk-indexes subcategories keyed by id and returns how
// many documents were accepted.
func (i *Indexer) IndexSubcategories(ctx context.Context, subs []trade.SubcategoryActivity) (int, error) {
	indexed := 0
	for start := 0; start < len(subs); start += i.batchSize {
		end := start + i.batchSize
		if end > len(subs) {
			end = len(subs)
		}
		n, err := i.bulk(ctx, subs[start:end])
		indexed += n
		if err != nil {
			return indexed, err
		}
	}
	i.logger.Info("subcategories indexed", logging.Int("count", indexed))
	return indexed, nil
}

func (i *Indexer) bulk(ctx context.Context, subs []trade.SubcategoryActivity) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, s := range subs {
		meta := map[string]any{"index": map[string]any{"_index": i.index, "_id": strconv.FormatInt(s.ID, 10)}}
		if err := enc.Encode(meta); err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode bulk action")
		}
		if err := enc.Encode(subcategoryDoc{ID: s.ID, Name: s.Name, HSCode: s.HSCode, HasImports: s.HasImports, HasExports: s.HasExports}); err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode subcategory")
		}
	}

	resp, err := opensearchapi.BulkRequest{Body: &buf, Refresh: "wait_for"}.Do(ctx, i.client.client)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeExternalService, "bulk request failed")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return 0, responseError(resp, "bulk request failed")
	}

	var out struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode bulk response")
	}
	ok := 0
	for _, item := range out.Items {
		for _, r := range item {
			if r.Status < 300 {
				ok++
			}
		}
	}
	if out.Errors {
		i.logger.Warn("bulk request had item failures", logging.Int("failed", len(out.Items)-ok))
	}
	return ok, nil
}

func responseError(resp *opensearchapi.Response, msg string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return errors.New(errors.ErrCodeExternalService, msg+": "+resp.Status()+" "+string(body))
}

//Personal.AI order the ending
