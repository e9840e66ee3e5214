package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/internal/testutil"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func TestCORS_AllowedOrigin(t *testing.T) {
	h := CORS(DefaultCORSConfig([]string{"https://app.tradelink.io", "*.partner.com"}))(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://eu.partner.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "https://eu.partner.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Retry-After")

	req = httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	h := CORS(DefaultCORSConfig([]string{"*"}))(okHandler)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/ranking/train", nil)
	req.Header.Set("Origin", "https://any.io")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestRequestLogging_RecordsRoutePattern(t *testing.T) {
	log := testutil.NewMockLogger()
	var gotRoute string
	var gotStatus int
	record := func(_ string, route string, status int, _ time.Duration) { gotRoute, gotStatus = route, status }

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestLogging(log, DefaultLoggingConfig(), record))
	r.Get("/api/v1/counterparties/{name}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, logging.RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/healthz", okHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/counterparties/acme", nil))
	assert.Equal(t, "/api/v1/counterparties/{name}", gotRoute)
	assert.Equal(t, http.StatusNotFound, gotStatus)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, 1, log.CountLevel("warn"))

	gotRoute = ""
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Empty(t, gotRoute)
}

func TestRequestLogging_ServerErrorLevel(t *testing.T) {
	log := testutil.NewMockLogger()
	h := RequestLogging(log, LoggingConfig{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, 1, log.CountLevel("error"))
}

func TestRateLimitConfigFrom(t *testing.T) {
	cfg := RateLimitConfigFrom(config.ServerConfig{RateLimitRPS: 5, RateLimitBurst: 10})
	assert.Equal(t, 5.0, cfg.RequestsPerSecond)
	assert.Equal(t, 10, cfg.BurstSize)
}

func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	l := NewKeyedLimiter(1, 2, time.Minute)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	h := RateLimitWith(l, RateLimitConfig{SkipPaths: []string{"/healthz"}})(okHandler)

	do := func(path, ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do("/api/v1/search", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, do("/api/v1/search", "10.0.0.1").Code)
	w := do("/api/v1/search", "10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "COMMON_007")

	assert.Equal(t, http.StatusOK, do("/api/v1/search", "10.0.0.2").Code)
	assert.Equal(t, http.StatusOK, do("/healthz", "10.0.0.1").Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do("/api/v1/search", "10.0.0.1").Code)
}

func TestKeyedLimiter_EvictsIdle(t *testing.T) {
	l := NewKeyedLimiter(10, 0, time.Minute)
	now := time.Now()
	l.now = func() time.Time { return now }
	l.Reserve("a")
	now = now.Add(2 * time.Minute)
	l.Reserve("b")
	assert.Equal(t, 1, l.Len())
}

func TestRateLimit_Disabled(t *testing.T) {
	h := RateLimit(RateLimitConfig{})(okHandler)
	for i := 0; i < 50; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", clientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "5.6.7.8:1234"
	assert.Equal(t, "5.6.7.8", clientIP(req))
}

//Personal.AI order the ending
