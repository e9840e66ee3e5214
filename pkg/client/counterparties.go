package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/search"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
)

// CounterpartiesClient covers search, detail and link-prediction
// recommendations.
type CounterpartiesClient struct {
	client *Client
}

// SearchRequest mirrors GET /api/v1/search.
type SearchRequest struct {
	Query         string
	Scope         string
	Country       string
	SubcategoryID int64
}

// Search runs a free-text search. A scope/country conflict is not an
// error: the result carries Error and Message instead.
func (c *CounterpartiesClient) Search(ctx context.Context, req SearchRequest) (*search.SearchResult, error) {
	q := url.Values{}
	q.Set("q", req.Query)
	if req.Scope != "" {
		q.Set("scope", req.Scope)
	}
	if req.Country != "" {
		q.Set("country", req.Country)
	}
	if req.SubcategoryID > 0 {
		q.Set("subcategory_id", strconv.FormatInt(req.SubcategoryID, 10))
	}

	var res search.SearchResult
	err := c.client.get(ctx, "/api/v1/search", q, &res)
	var apiErr *APIError
	if stderrors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity {
		if jerr := json.Unmarshal(apiErr.Body, &res); jerr == nil && res.Error != "" {
			return &res, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Detail fetches one counterparty's profile for a product.
func (c *CounterpartiesClient) Detail(ctx context.Context, name, product, scope string) (*search.DetailResult, error) {
	q := url.Values{}
	q.Set("product", product)
	if scope != "" {
		q.Set("scope", scope)
	}
	var res search.DetailResult
	if err := c.client.get(ctx, "/api/v1/counterparties/"+url.PathEscape(name), q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Recommend lists predicted counterparties for company. topK <= 0 uses the
// server default.
func (c *CounterpartiesClient) Recommend(ctx context.Context, company string, dir trade.RecommendDirection, topK int) (*trade.Recommendation, error) {
	q := url.Values{}
	if dir != "" {
		q.Set("direction", string(dir))
	}
	if topK > 0 {
		q.Set("top_k", strconv.Itoa(topK))
	}
	var res trade.Recommendation
	if err := c.client.get(ctx, "/api/v1/recommendations/"+url.PathEscape(company), q, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

//Personal.AI order the ending
