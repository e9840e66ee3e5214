// Background worker for TradeLink-Intelligence.  It consumes training and
// graph-sync requests from Kafka and runs them against the local stores.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/turtacn/TradeLink-Intelligence/internal/application/aggregation"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/indexing"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/ranking"
	"github.com/turtacn/TradeLink-Intelligence/internal/application/training"
	"github.com/turtacn/TradeLink-Intelligence/internal/bootstrap"
	"github.com/turtacn/TradeLink-Intelligence/internal/config"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/monitoring/prometheus"
	httpserver "github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http"
	"github.com/turtacn/TradeLink-Intelligence/internal/interfaces/http/handlers"

	pgconn "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres"
	pgrepo "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/postgres/repositories"
	redisclient "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/database/redis"
	minioclient "github.com/turtacn/TradeLink-Intelligence/internal/infrastructure/storage/minio"
)

// Build-time variables injected via ldflags.
var version = "dev"

const (
	eventSource     = "tradelink-worker"
	trainingLock    = "ranking-training"
	keepModels      = 5
	shutdownTimeout = 30 * time.Second
)

var allTopics = []string{kafka.TopicTrainRequested, kafka.TopicGraphSync}

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	topicFilter := flag.String("topics", "", "comma-separated list of topics to consume (default: all)")
	flag.Parse()

	cfg, err := config.LoadOrEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(logging.LogConfig{Level: level, Format: cfg.Log.Format, OutputPaths: cfg.Log.OutputPaths})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	topics := allTopics
	if *topicFilter != "" {
		topics = nil
		for _, t := range strings.Split(*topicFilter, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}

	if err := run(cfg, topics, logger); err != nil {
		logger.Error("worker exited", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, topics []string, logger logging.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting TradeLink-Intelligence worker",
		logging.String("version", version),
		logging.Strings("topics", topics))

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfigFrom(cfg.Metrics), logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	metrics := prometheus.NewTradeMetrics(collector)

	var closers bootstrap.Closers
	defer func() { closers.Close(logger) }()

	pg, err := pgconn.NewConnection(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	closers.Add(pg)
	checks := []handlers.HealthChecker{handlers.CheckFunc{Component: "postgres", Fn: pg.HealthCheck}}

	producer, err := kafka.NewProducer(kafka.ProducerConfigFrom(cfg.Kafka, eventSource), logger)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	closers.Add(producer)

	if cfg.Kafka.AutoCreateTopics {
		if tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, logger); err != nil {
			logger.Warn("topic manager unavailable", logging.Err(err))
		} else {
			if err := tm.EnsureDefaultTopics(ctx, 1); err != nil {
				logger.Warn("ensure topics failed", logging.Err(err))
			}
			_ = tm.Close()
		}
	}

	pipeline, err := buildPipeline(cfg, pg, producer, metrics, &closers, &checks, logger)
	if err != nil {
		return err
	}

	syncer, release, err := bootstrap.OpenSyncer(ctx, cfg, logger, func(t indexing.Target, n int) {
		metrics.RecordSync(string(t), n)
	})
	if err != nil {
		return fmt.Errorf("syncer: %w", err)
	}
	defer release()

	handlersByTopic := map[string]kafka.MessageHandler{
		kafka.TopicTrainRequested: trainHandler(pipeline, cfg.Worker.LockTTL, logger),
		kafka.TopicGraphSync:      syncHandler(syncer, logger),
	}

	cc := kafka.ConsumerConfigFrom(cfg.Kafka, topics...)
	cc.Retry.MaxRetries = cfg.Worker.MaxRetries
	consumer, err := kafka.NewConsumer(cc, producer, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	for _, t := range topics {
		h, ok := handlersByTopic[t]
		if !ok {
			return fmt.Errorf("no handler for topic %q", t)
		}
		consumer.Subscribe(t, instrumented(t, h, metrics))
	}
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	closers.Add(consumer)

	health := handlers.NewHealthHandler(version, checks...).WithReporter(metrics.SetHealth)
	srv := httpserver.NewServer(config.ServerConfig{Port: cfg.Worker.HealthPort}, httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:  health,
		MetricsHandler: collector.Handler(),
	}), logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	logger.Info("worker running", logging.Int("health_port", cfg.Worker.HealthPort))
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down worker")
	stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	return srv.Stop(stopCtx)
}

// buildPipeline wires the training pipeline to whichever stores are
// available.  Without MinIO the model is written to the configured path.
func buildPipeline(
	cfg *config.Config,
	pg *pgconn.Connection,
	producer *kafka.Producer,
	metrics *prometheus.TradeMetrics,
	closers *bootstrap.Closers,
	checks *[]handlers.HealthChecker,
	logger logging.Logger,
) (*training.Pipeline, error) {
	trades := pgrepo.NewTradeRepository(pg, logger)
	extractor := ranking.NewExtractor(cfg.Search.HomeCountry, time.Now)

	builder := training.NewBuilder(trades,
		aggregation.NewAggregator(trades, cfg.Search.HomeCountry, logger),
		extractor, logger,
		training.WithWorkers(cfg.Training.SynthesisWorkers),
		training.WithMinCandidates(cfg.Training.MinCandidates))

	trainer := training.NewTrainer(training.TrainerConfig{
		LearningRate:    cfg.Training.LearningRate,
		MaxRounds:       cfg.Training.MaxRounds,
		EarlyStopRounds: cfg.Training.EarlyStopRounds,
		EvalAtK:         cfg.Training.EvalAtK,
	}, logger)

	opts := []training.PipelineOption{
		training.WithRegistry(pgrepo.NewModelRegistryRepository(pg, logger)),
		training.WithEventPublisher(&modelPublisher{producer: producer}),
		training.WithObserver(func(res *training.Result, err error) {
			if res == nil {
				metrics.ObserveTraining(0, 0, 0, err)
				return
			}
			metrics.ObserveTraining(res.Metrics.NDCG, res.Metrics.MRR, res.Duration, err)
		}),
	}

	if rc, err := redisclient.NewClient(cfg.Redis, logger); err != nil {
		logger.Warn("redis unavailable, training runs are not serialised", logging.Err(err))
	} else {
		closers.Add(rc)
		opts = append(opts, training.WithLock(redisclient.NewDistributedLock(rc, trainingLock, logger,
			redisclient.WithLockTTL(cfg.Worker.LockTTL))))
		*checks = append(*checks, handlers.CheckFunc{Component: "redis", Fn: rc.Ping})
	}

	pcfg := training.PipelineConfig{
		TrainFraction: cfg.Training.TrainFraction,
		EvalAtK:       cfg.Training.EvalAtK,
	}
	if cfg.MinIO.Endpoint != "" {
		mc, err := minioclient.NewClient(cfg.MinIO, logger)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		if err := mc.EnsureBucket(context.Background()); err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		artifacts := minioclient.NewModelArtifactRepository(mc, logger)
		pcfg.ObjectPrefix = objectPrefix(cfg.Ranking.ModelObjectKey)
		opts = append(opts, training.WithArtifactWriter(&pruningWriter{
			repo: artifacts, prefix: pcfg.ObjectPrefix, keep: keepModels, logger: logger,
		}))
		*checks = append(*checks, handlers.CheckFunc{Component: "minio", Fn: mc.HealthCheck})
	} else {
		pcfg.ModelPath = cfg.Ranking.ModelPath
	}

	return training.NewPipeline(builder, trainer, pcfg, logger, opts...), nil
}

// objectPrefix derives the artifact folder from the configured model key.
func objectPrefix(key string) string {
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return training.DefaultObjectPrefix
	}
	return dir + "/models/"
}

//Personal.AI order the ending
