// API server entry point for TradeLink-Intelligence.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/aggregation"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/interpreter"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/linkprediction"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/search"
	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/internal/domain/trade"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http"
	"github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http/middleware"

	neo4jdriver "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/neo4j/repositories"
	pgconn "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres/repositories"
	redisclient "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/redis"
	milvusclient "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/search/milvus"
	opensearchclient "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/search/opensearch"
	minioclient "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/storage/minio"
)

// Build-time variables injected via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const eventSource = "tradelink-apiserver"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("api server exited", logging.Err(err))
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(logging.LogConfig{Level: level, Format: cfg.Format, OutputPaths: cfg.OutputPaths})
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting TradeLink-Intelligence API server",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.Int("port", cfg.Server.Port))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(cfg.Metrics), logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	metrics := prometheus.NewTradeMetrics(collector)

	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn("close failed", logging.Err(err))
			}
		}
	}()

	// ── Postgres: the aggregation store, required ──
	pg, err := pgconn.NewConnection(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	closers = append(closers, pg)
	tradeRepo := pgrepo.NewTradeRepository(pg, logger)
	registry := pgrepo.NewModelRegistryRepository(pg, logger)
	checks := []handlers.HealthChecker{checker("postgres", pg.HealthCheck)}

	// ── Optional stores; each one missing narrows a feature ──
	var cache *redisclient.Cache
	if rc, err := redisclient.NewClient(cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, response caching disabled", logging.Err(err))
	} else {
		closers = append(closers, rc)
		cache = redisclient.NewCache(rc, logger,
			redisclient.WithDefaultTTL(cfg.Redis.DefaultTTL),
			redisclient.WithAccessObserver(func(hit bool) { metrics.RecordCacheAccess("redis", hit) }))
		checks = append(checks, checker("redis", rc.Ping))
	}

	var graph trade.TradeGraph
	if cfg.Neo4j.URI != "" {
		if d, err := neo4jdriver.NewDriver(cfg.Neo4j, logger); err != nil {
			logger.Warn("neo4j unavailable, graph scorers disabled", logging.Err(err))
		} else {
			closers = append(closers, d)
			graph = neo4jrepo.NewTradeGraphRepository(d, logger)
			checks = append(checks, checker("neo4j", d.HealthCheck))
		}
	}

	var embeddings trade.EmbeddingStore
	if cfg.Milvus.Addr != "" {
		if mc, err := milvusclient.NewClient(milvusclient.ClientConfigFrom(cfg.Milvus), logger); err != nil {
			logger.Warn("milvus unavailable, embedding scorer disabled", logging.Err(err))
		} else {
			closers = append(closers, mc)
			embeddings = milvusclient.NewEmbeddingSearcher(mc, milvusclient.CollectionConfigFrom(cfg.Milvus), logger)
			checks = append(checks, checker("milvus", mc.CheckHealth))
		}
	}

	var matcherOpts []search.MatcherOption
	matcherOpts = append(matcherOpts, search.WithMinFuzzyScore(cfg.Search.SemanticMinScore))
	if len(cfg.OpenSearch.Addresses) > 0 {
		if oc, err := opensearchclient.NewClient(opensearchclient.ClientConfigFrom(cfg.OpenSearch), logger); err != nil {
			logger.Warn("opensearch unavailable, fuzzy product matching disabled", logging.Err(err))
		} else {
			closers = append(closers, oc)
			matcherOpts = append(matcherOpts, search.WithFuzzyIndex(opensearchclient.NewSubcategorySearcher(oc, cfg.OpenSearch.IndexPrefix, logger)))
			checks = append(checks, checker("opensearch", oc.Ping))
		}
	}

	// ── Ranking model: registry-backed when object storage is reachable ──
	var source ranking.ArtifactSource = ranking.FileSource{Path: cfg.Ranking.ModelPath}
	if cfg.MinIO.Endpoint != "" {
		if mc, err := minioclient.NewClient(cfg.MinIO, logger); err != nil {
			logger.Warn("minio unavailable, loading model from file", logging.Err(err))
		} else {
			source = ranking.RegistrySource{Registry: registry, Objects: minioclient.NewModelArtifactRepository(mc, logger)}
			checks = append(checks, checker("minio", mc.HealthCheck))
		}
	}
	label := modelSourceLabel(source)
	store := ranking.NewModelStore(source,
		ranking.WithCheckInterval(cfg.Ranking.ReloadInterval),
		ranking.WithStoreLogger(logger),
		ranking.WithOnLoad(func(m *ranking.LinearModel) { metrics.ObserveModelLoad(label, m.TrainedAt) }))
	if err := store.Reload(ctx); err != nil {
		logger.Warn("no ranking model yet, serving heuristic scores", logging.Err(err))
	}
	if fs, ok := source.(ranking.FileSource); ok && cfg.Ranking.WatchFile {
		if err := store.WatchFile(ctx, fs.Path); err != nil {
			logger.Warn("model file watch disabled", logging.Err(err))
		}
	}

	// ── Application services ──
	extractor := ranking.NewExtractor(cfg.Search.HomeCountry, time.Now)
	ensemble := ranking.NewEnsemble(extractor, store, cfg.Ranking.HeuristicWeight, cfg.Ranking.LearnedWeight, logger)

	searchOpts := []search.Option{
		search.WithObserver(func(f trade.Family, n int, d time.Duration, err error) {
			metrics.ObserveSearch(f.String(), n, d, err)
		}),
	}
	lpOpts := []linkprediction.ServiceOption{
		linkprediction.WithScorerObserver(func(m trade.Method, n int, err error) {
			metrics.ObserveScorer(string(m), n, err)
		}),
	}
	if cache != nil {
		searchOpts = append(searchOpts, search.WithCache(cache))
		lpOpts = append(lpOpts, linkprediction.WithCache(cache))
	}

	searchSvc := search.NewService(
		interpreter.New(),
		search.NewProductMatcher(tradeRepo, logger, matcherOpts...),
		aggregation.NewAggregator(tradeRepo, cfg.Search.HomeCountry, logger),
		ensemble,
		tradeRepo,
		search.Config{
			HomeCountry: cfg.Search.HomeCountry,
			CacheTTL:    cfg.Search.ResultCacheTTL,
		},
		logger, searchOpts...)

	recommender := linkprediction.NewService(
		availableScorers(embeddings, tradeRepo, graph),
		linkprediction.Config{
			DefaultTopK:   cfg.LinkPrediction.DefaultTopK,
			PerMethodTopK: cfg.LinkPrediction.PerMethodTopK,
			MaxConfidence: cfg.LinkPrediction.MaxConfidence,
			CacheTTL:      time.Duration(cfg.LinkPrediction.CacheTTLSeconds) * time.Second,
		},
		logger, lpOpts...)

	// ── Messaging: training requests out, model announcements in ──
	var trainer handlers.TrainingRequester
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka, eventSource), logger)
		if err != nil {
			logger.Warn("kafka producer unavailable, training requests disabled", logging.Err(err))
		} else {
			closers = append(closers, producer)
			trainer = &trainingRequester{producer: producer, now: time.Now}

			cc := kafka.ConsumerConfigFrom(cfg.Kafka, kafka.TopicModelPublished)
			cc.GroupID = cfg.Kafka.GroupID + "-apiserver"
			consumer, err := kafka.NewConsumer(cc, producer, logger)
			if err != nil {
				logger.Warn("model announcements disabled", logging.Err(err))
			} else {
				consumer.Subscribe(kafka.TopicModelPublished,
					instrumented(kafka.TopicModelPublished, modelReloader(store, logger), metrics))
				if err := consumer.Start(ctx); err != nil {
					return fmt.Errorf("kafka consumer: %w", err)
				}
				closers = append(closers, consumer)
			}
		}
	}

	// ── HTTP ──
	cors := middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)
	limit := middleware.RateLimitConfigFrom(cfg.Server)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		SearchHandler:    handlers.NewSearchHandler(searchSvc),
		RecommendHandler: handlers.NewRecommendHandler(recommender),
		RankingHandler:   handlers.NewRankingHandler(trainer, store),
		HealthHandler:    handlers.NewHealthHandler(version, checks...).WithReporter(metrics.SetHealth),
		CORS:             &cors,
		RateLimit:        &limit,
		Recorder:         metrics.RecordHTTPRequest,
		Logger:           logger,
		MetricsHandler:   collector.Handler(),
	})

	srv := httpserver.NewServer(cfg.Server, router, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api server")
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Stop(stopCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("api server stopped")
	return nil
}

// availableScorers drops the scorers whose backing store is not configured.
func availableScorers(emb trade.EmbeddingStore, network trade.TradeNetwork, graph trade.TradeGraph) []linkprediction.Scorer {
	all := linkprediction.DefaultScorers(emb, network, graph)
	out := make([]linkprediction.Scorer, 0, len(all))
	for _, s := range all {
		switch s.Method() {
		case trade.MethodEmbedding:
			if emb == nil {
				continue
			}
		case trade.MethodJaccard, trade.MethodPreferential:
			if graph == nil {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

//Personal.AI order the ending
