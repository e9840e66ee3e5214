package linkprediction

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/pkg/errors"
)

var tracer = otel.Tracer("tradelink/linkprediction")

// Cache is the read-through response cache.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, loader func(ctx context.Context) (interface{}, error)) error
}

// Config tunes the recommender.
type Config struct {
	DefaultTopK   int
	PerMethodTopK int
	MaxConfidence float64
	CacheTTL      time.Duration
}

// Service runs every scorer and combines their output.
type Service struct {
	scorers []Scorer
	cfg     Config
	cache   Cache
	observe func(m trade.Method, n int, err error)
	logger  logging.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCache enables response caching.
func WithCache(c Cache) ServiceOption { return func(s *Service) { s.cache = c } }

// WithScorerObserver is notified after each scorer run.
func WithScorerObserver(fn func(m trade.Method, n int, err error)) ServiceOption {
	return func(s *Service) { s.observe = fn }
}

// NewService wires a Service.
func NewService(scorers []Scorer, cfg Config, logger logging.Logger, opts ...ServiceOption) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 10
	}
	if cfg.PerMethodTopK <= 0 {
		cfg.PerMethodTopK = 50
	}
	if cfg.MaxConfidence <= 0 || cfg.MaxConfidence > trade.MaxConfidence {
		cfg.MaxConfidence = trade.MaxConfidence
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Service{scorers: scorers, cfg: cfg, logger: logger.Named("linkprediction")}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DefaultScorers builds the five standard scorers.
func DefaultScorers(emb trade.EmbeddingStore, network trade.TradeNetwork, graph trade.TradeGraph) []Scorer {
	return []Scorer{
		EmbeddingScorer{Embeddings: emb, Network: network},
		CommonNeighboursScorer{Network: network},
		ProductCoTradeScorer{Network: network},
		JaccardScorer{Graph: graph},
		PreferentialScorer{Graph: graph},
	}
}

// Recommend returns up to topK counterparties for company.  A company with
// no history yields an empty result, not an error.  A scorer whose store
// fails fails the whole request; partial results are neither returned nor
// cached.
func (s *Service) Recommend(ctx context.Context, company string, dir trade.RecommendDirection, topK int) (*trade.Recommendation, error) {
	company = strings.TrimSpace(company)
	if company == "" {
		return nil, errors.New(errors.ErrCodeBadRequest, "company is required")
	}
	d, ok := trade.ParseRecommendDirection(string(dir))
	if !ok {
		return nil, errors.Newf(errors.ErrCodeBadRequest, "direction must be sellers or buyers, got %q", dir)
	}
	dir = d
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}

	if s.cache == nil {
		return s.compute(ctx, company, dir, topK)
	}
	key := fmt.Sprintf("recommend:%s:%s:%d", dir, strings.ToLower(company), topK)
	var (
		rec     trade.Recommendation
		loadErr error
	)
	err := s.cache.GetOrSet(ctx, key, &rec, s.cfg.CacheTTL, func(ctx context.Context) (interface{}, error) {
		r, err := s.compute(ctx, company, dir, topK)
		loadErr = err
		return r, err
	})
	if err == nil {
		return &rec, nil
	}
	if loadErr != nil {
		return nil, loadErr
	}
	s.logger.WithError(err).Warn("recommendation cache unavailable", logging.String("key", key))
	return s.compute(ctx, company, dir, topK)
}

func (s *Service) compute(ctx context.Context, company string, dir trade.RecommendDirection, topK int) (*trade.Recommendation, error) {
	ctx, span := tracer.Start(ctx, "linkprediction.Recommend")
	defer span.End()
	span.SetAttributes(
		attribute.String("linkprediction.direction", string(dir)),
		attribute.Int("linkprediction.top_k", topK),
	)

	var (
		mu       sync.Mutex
		byMethod = make(map[trade.Method][]trade.MethodScore, len(s.scorers))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, sc := range s.scorers {
		sc := sc
		g.Go(func() error {
			scores, err := sc.Score(gctx, company, dir, s.cfg.PerMethodTopK)
			if s.observe != nil {
				s.observe(sc.Method(), len(scores), err)
			}
			if err != nil {
				return errors.Wrap(err, errors.CodeUnknown, fmt.Sprintf("%s scorer failed", sc.Method()))
			}
			mu.Lock()
			byMethod[sc.Method()] = scores
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		s.logger.WithError(err).Error("recommendation failed",
			logging.String("company", company),
			logging.String("direction", string(dir)),
		)
		return nil, err
	}

	results := Combine(byMethod, topK, s.cfg.MaxConfidence)
	span.SetAttributes(attribute.Int("linkprediction.results", len(results)))
	s.logger.Debug("recommendations computed",
		logging.String("company", company),
		logging.String("direction", string(dir)),
		logging.Int("results", len(results)),
	)
	return &trade.Recommendation{
		Company:   company,
		Direction: dir,
		Method:    trade.MethodCombined,
		Results:   results,
	}, nil
}

//Personal.AI order the ending
