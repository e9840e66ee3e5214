package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/search"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

// ============================================================================
// Mocks
// ============================================================================

type mockSearchService struct{ mock.Mock }

func (m *mockSearchService) Search(ctx context.Context, in *search.SearchInput) (*search.SearchResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*search.SearchResult)
	return res, args.Error(1)
}

func (m *mockSearchService) Detail(ctx context.Context, in *search.DetailInput) (*search.DetailResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*search.DetailResult)
	return res, args.Error(1)
}

type mockRecommender struct{ mock.Mock }

func (m *mockRecommender) Recommend(ctx context.Context, company string, dir trade.RecommendDirection, topK int) (*trade.Recommendation, error) {
	args := m.Called(ctx, company, dir, topK)
	res, _ := args.Get(0).(*trade.Recommendation)
	return res, args.Error(1)
}

type mockTrainer struct{ mock.Mock }

func (m *mockTrainer) RequestTraining(ctx context.Context, by, reason string) (string, error) {
	args := m.Called(ctx, by, reason)
	return args.String(0), args.Error(1)
}

type staticModels struct{ info ranking.ModelInfo }

func (s staticModels) Info() ranking.ModelInfo { return s.info }

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func serve(method, pattern, target string, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// ============================================================================
// Search
// ============================================================================

func TestSearch_OK(t *testing.T) {
	svc := new(mockSearchService)
	svc.On("Search", mock.Anything, mock.MatchedBy(func(in *search.SearchInput) bool {
		return in.Query == "buy dextrose" && in.Scope == "worldwide" && in.Country == "China" &&
			in.SubcategoryID != nil && *in.SubcategoryID == 7
	})).Return(&search.SearchResult{Query: "buy dextrose", Count: 1}, nil)

	h := NewSearchHandler(svc)
	rec := serve(http.MethodGet, "/search", "/search?q=buy+dextrose&scope=worldwide&country=China&subcategory_id=7", h.Search, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var res search.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Count)
	svc.AssertExpectations(t)
}

func TestSearch_ScopeConflictIs422(t *testing.T) {
	svc := new(mockSearchService)
	svc.On("Search", mock.Anything, mock.Anything).
		Return(&search.SearchResult{Error: search.ErrorScopeConflict, Message: "switch scope"}, nil)

	rec := serve(http.MethodGet, "/search", "/search?q=sellers+in+china", NewSearchHandler(svc).Search, "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), search.ErrorScopeConflict)
}

func TestSearch_BadSubcategory(t *testing.T) {
	svc := new(mockSearchService)
	rec := serve(http.MethodGet, "/search", "/search?q=x&subcategory_id=abc", NewSearchHandler(svc).Search, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.ErrCodeValidation.String(), decodeError(t, rec).Code)
	svc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestSearch_QueryTooLong(t *testing.T) {
	svc := new(mockSearchService)
	rec := serve(http.MethodGet, "/search", "/search?q="+strings.Repeat("a", 501), NewSearchHandler(svc).Search, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "query failed max=500")
}

func TestSearch_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		contains string
	}{
		{"empty query", errors.New(errors.ErrCodeQueryEmpty, "query text must not be empty"), http.StatusBadRequest, "QRY_001", "must not be empty"},
		{"database masked", errors.Wrap(stderrors.New("conn reset by 10.0.0.5"), errors.ErrCodeDatabaseError, "load candidates"), http.StatusInternalServerError, errors.ErrCodeDatabaseError.String(), ""},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError, errors.ErrCodeInternal.String(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockSearchService)
			svc.On("Search", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := serve(http.MethodGet, "/search", "/search?q=x", NewSearchHandler(svc).Search, "")

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Message, "10.0.0.5")
			if tt.contains != "" {
				assert.Contains(t, body.Message, tt.contains)
			}
		})
	}
}

// ============================================================================
// Detail
// ============================================================================

func TestDetail_ProductFallsBackToQ(t *testing.T) {
	svc := new(mockSearchService)
	svc.On("Detail", mock.Anything, &search.DetailInput{Name: "Acme Foods", Product: "dextrose", Scope: ""}).
		Return(&search.DetailResult{MarketContext: search.MarketContext{Sentiment: "neutral"}}, nil)

	rec := serve(http.MethodGet, "/counterparties/{name}", "/counterparties/Acme%20Foods?q=dextrose", NewSearchHandler(svc).Detail, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sentiment":"neutral"`)
	svc.AssertExpectations(t)
}

func TestDetail_MissingProduct(t *testing.T) {
	svc := new(mockSearchService)
	rec := serve(http.MethodGet, "/counterparties/{name}", "/counterparties/Acme", NewSearchHandler(svc).Detail, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "product failed required")
}

func TestDetail_NotFound(t *testing.T) {
	svc := new(mockSearchService)
	svc.On("Detail", mock.Anything, mock.Anything).Return(nil, errors.New(errors.ErrCodeNotFound, "counterparty not found"))

	rec := serve(http.MethodGet, "/counterparties/{name}", "/counterparties/Ghost?product=sugar", NewSearchHandler(svc).Detail, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "counterparty not found", decodeError(t, rec).Message)
}

// ============================================================================
// Recommend
// ============================================================================

func TestRecommend_DefaultsToSellers(t *testing.T) {
	svc := new(mockRecommender)
	svc.On("Recommend", mock.Anything, "Acme", trade.RecommendSellers, 0).
		Return(&trade.Recommendation{Company: "Acme", Direction: trade.RecommendSellers}, nil)

	rec := serve(http.MethodGet, "/recommendations/{company}", "/recommendations/Acme", NewRecommendHandler(svc).Recommend, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"direction":"sellers"`)
	svc.AssertExpectations(t)
}

func TestRecommend_BuyersWithTopK(t *testing.T) {
	svc := new(mockRecommender)
	svc.On("Recommend", mock.Anything, "Acme", trade.RecommendDirection("buyers"), 5).
		Return(&trade.Recommendation{Company: "Acme", Direction: trade.RecommendBuyers}, nil)

	rec := serve(http.MethodGet, "/recommendations/{company}", "/recommendations/Acme?direction=Buyers&top_k=5", NewRecommendHandler(svc).Recommend, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestRecommend_Validation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		msg    string
	}{
		{"bad direction", "/recommendations/Acme?direction=sideways", "direction failed oneof"},
		{"top_k too large", "/recommendations/Acme?top_k=500", "topk failed lte=100"},
		{"top_k not int", "/recommendations/Acme?top_k=ten", "top_k must be an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockRecommender)
			rec := serve(http.MethodGet, "/recommendations/{company}", tt.target, NewRecommendHandler(svc).Recommend, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec).Message, tt.msg)
			svc.AssertNotCalled(t, "Recommend", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// ============================================================================
// Ranking
// ============================================================================

func TestTrain_Accepted(t *testing.T) {
	tr := new(mockTrainer)
	tr.On("RequestTraining", mock.Anything, "ops", "weekly").Return("evt-1", nil)

	rec := serve(http.MethodPost, "/train", "/train", NewRankingHandler(tr, nil).Train, `{"requested_by":"ops","reason":"weekly"}`)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var body TrainAccepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TrainAccepted{EventID: "evt-1", Status: "queued"}, body)
}

func TestTrain_EmptyBodyDefaultsRequester(t *testing.T) {
	tr := new(mockTrainer)
	tr.On("RequestTraining", mock.Anything, "api", "").Return("evt-2", nil)

	rec := serve(http.MethodPost, "/train", "/train", NewRankingHandler(tr, nil).Train, "")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	tr.AssertExpectations(t)
}

func TestTrain_Errors(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		rec := serve(http.MethodPost, "/train", "/train", NewRankingHandler(new(mockTrainer), nil).Train, `{"reason":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("no queue", func(t *testing.T) {
		rec := serve(http.MethodPost, "/train", "/train", NewRankingHandler(nil, nil).Train, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
	t.Run("publish failure", func(t *testing.T) {
		tr := new(mockTrainer)
		tr.On("RequestTraining", mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.Wrap(stderrors.New("broker down"), errors.ErrCodeMessagingError, "publish train request"))
		rec := serve(http.MethodPost, "/train", "/train", NewRankingHandler(tr, nil).Train, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "broker down")
	})
}

func TestModel(t *testing.T) {
	models := staticModels{info: ranking.ModelInfo{Loaded: true, Version: "v20261001", Source: "registry"}}
	rec := serve(http.MethodGet, "/model", "/model", NewRankingHandler(nil, models).Model, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var got ranking.ModelInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Loaded)
	assert.Equal(t, "v20261001", got.Version)

	rec = serve(http.MethodGet, "/model", "/model", NewRankingHandler(nil, nil).Model, "")
	assert.Contains(t, rec.Body.String(), `"source":"none"`)
}

// ============================================================================
// Health
// ============================================================================

func TestHealth_Liveness(t *testing.T) {
	rec := serve(http.MethodGet, "/healthz", "/healthz", NewHealthHandler("1.2.3").Liveness, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"1.2.3"`)
}

func TestHealth_Readiness(t *testing.T) {
	ok := CheckFunc{Component: "postgres", Fn: func(context.Context) error { return nil }}
	bad := CheckFunc{Component: "redis", Fn: func(context.Context) error { return stderrors.New("dial tcp: refused") }}

	reported := map[string]bool{}
	var mu sync.Mutex
	h := NewHealthHandler("dev", ok, bad).WithReporter(func(c string, up bool) {
		mu.Lock()
		defer mu.Unlock()
		reported[c] = up
	})

	rec := serve(http.MethodGet, "/readyz", "/readyz", h.Readiness, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "healthy", body.Components["postgres"].Status)
	assert.Equal(t, "dial tcp: refused", body.Components["redis"].Error)
	assert.Equal(t, map[string]bool{"postgres": true, "redis": false}, reported)
	assert.Equal(t, []string{"postgres", "redis"}, h.Components())

	rec = serve(http.MethodGet, "/readyz", "/readyz", NewHealthHandler("dev", ok).Readiness, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

//Personal.AI order the ending
