package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware the route tree needs.
// Nil handlers leave their routes unmounted.
type RouterConfig struct {
	SearchHandler    *handlers.SearchHandler
	RecommendHandler *handlers.RecommendHandler
	RankingHandler   *handlers.RankingHandler
	HealthHandler    *handlers.HealthHandler

	CORS      *middleware.CORSConfig
	RateLimit *middleware.RateLimitConfig
	Logging   *middleware.LoggingConfig
	Recorder  middleware.RequestRecorder

	Logger         logging.Logger
	MetricsHandler http.Handler
}

// NewRouter builds the complete HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	if cfg.Logger != nil {
		lc := middleware.DefaultLoggingConfig()
		if cfg.Logging != nil {
			lc = *cfg.Logging
		}
		r.Use(middleware.RequestLogging(cfg.Logger, lc, cfg.Recorder))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.RateLimit != nil {
			api.Use(middleware.RateLimit(*cfg.RateLimit))
		}
		registerSearchRoutes(api, cfg.SearchHandler)
		registerRecommendRoutes(api, cfg.RecommendHandler)
		registerRankingRoutes(api, cfg.RankingHandler)
	})

	return r
}

func registerSearchRoutes(r chi.Router, h *handlers.SearchHandler) {
	if h == nil {
		return
	}
	r.Get("/search", h.Search)
	r.Get("/counterparties/{name}", h.Detail)
}

func registerRecommendRoutes(r chi.Router, h *handlers.RecommendHandler) {
	if h == nil {
		return
	}
	r.Get("/recommendations/{company}", h.Recommend)
}

func registerRankingRoutes(r chi.Router, h *handlers.RankingHandler) {
	if h == nil {
		return
	}
	r.Route("/ranking", func(rr chi.Router) {
		rr.Post("/train", h.Train)
		rr.Get("/model", h.Model)
	})
}

//Personal.AI order the ending
