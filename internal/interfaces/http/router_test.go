package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/search"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/TradeLink-Intelligence/internal/testutil"
)

type stubSearch struct{}

func (stubSearch) Search(_ context.Context, in *search.SearchInput) (*search.SearchResult, error) {
	return &search.SearchResult{Query: in.Query}, nil
}

func (stubSearch) Detail(_ context.Context, in *search.DetailInput) (*search.DetailResult, error) {
	return &search.DetailResult{}, nil
}

type stubRecommender struct{}

func (stubRecommender) Recommend(_ context.Context, company string, dir trade.RecommendDirection, _ int) (*trade.Recommendation, error) {
	return &trade.Recommendation{Company: company, Direction: dir}, nil
}

type stubModels struct{}

func (stubModels) Info() ranking.ModelInfo { return ranking.ModelInfo{Loaded: true, Source: "file"} }

type recorded struct {
	method, route string
	status        int
}

type recorder struct {
	mu   sync.Mutex
	seen []recorded
}

func (r *recorder) record(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recorded{method, route, status})
}

func fullConfig() RouterConfig {
	return RouterConfig{
		SearchHandler:    handlers.NewSearchHandler(stubSearch{}),
		RecommendHandler: handlers.NewRecommendHandler(stubRecommender{}),
		RankingHandler:   handlers.NewRankingHandler(nil, stubModels{}),
		HealthHandler:    handlers.NewHealthHandler("test"),
		Logger:           testutil.NewMockLogger(),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	}
}

func do(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewRouter_Routes(t *testing.T) {
	router := NewRouter(fullConfig())

	tests := []struct {
		method, target string
		status         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/search?q=dextrose", http.StatusOK},
		{http.MethodGet, "/api/v1/counterparties/Acme?product=sugar", http.StatusOK},
		{http.MethodGet, "/api/v1/recommendations/Acme", http.StatusOK},
		{http.MethodGet, "/api/v1/ranking/model", http.StatusOK},
		{http.MethodPost, "/api/v1/ranking/train", http.StatusServiceUnavailable},
		{http.MethodPost, "/api/v1/search", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			assert.Equal(t, tt.status, do(router, tt.method, tt.target).Code)
		})
	}
}

func TestNewRouter_NilHandlersNoPanic(t *testing.T) {
	router := NewRouter(RouterConfig{})
	assert.NotPanics(t, func() {
		assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/api/v1/search?q=x").Code)
		assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/healthz").Code)
	})
}

func TestNewRouter_RecordsRoutePattern(t *testing.T) {
	rec := &recorder{}
	cfg := fullConfig()
	cfg.Recorder = rec.record
	router := NewRouter(cfg)

	do(router, http.MethodGet, "/api/v1/counterparties/Acme?product=sugar")
	do(router, http.MethodGet, "/healthz")

	require.Len(t, rec.seen, 1)
	assert.Equal(t, recorded{http.MethodGet, "/api/v1/counterparties/{name}", http.StatusOK}, rec.seen[0])
}

func TestNewRouter_RequestIDHeader(t *testing.T) {
	resp := do(NewRouter(fullConfig()), http.MethodGet, "/api/v1/ranking/model")
	assert.NotEmpty(t, resp.Header().Get("X-Request-ID"))
}

func TestNewRouter_RateLimitOnlyOnAPI(t *testing.T) {
	cfg := fullConfig()
	cfg.RateLimit = &middleware.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1}
	router := NewRouter(cfg)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/api/v1/ranking/model").Code)
	limited := do(router, http.MethodGet, "/api/v1/ranking/model")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/healthz").Code)
	}
}

func TestNewRouter_CORS(t *testing.T) {
	cfg := fullConfig()
	cors := middleware.DefaultCORSConfig([]string{"https://app.example.com"})
	cfg.CORS = &cors
	router := NewRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ranking/model", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	router := NewRouter(RouterConfig{
		SearchHandler: handlers.NewSearchHandler(panicSearch{}),
	})
	assert.Equal(t, http.StatusInternalServerError, do(router, http.MethodGet, "/api/v1/search?q=x").Code)
}

type panicSearch struct{ stubSearch }

func (panicSearch) Search(context.Context, *search.SearchInput) (*search.SearchResult, error) {
	panic("boom")
}

//Personal.AI order the ending
