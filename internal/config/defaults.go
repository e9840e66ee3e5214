package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "release"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "tradelink"
	DefaultDBMaxConns = 25

	DefaultNeo4jURI = "bolt://localhost:7687"

	DefaultRedisAddr = "localhost:6379"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "tradelink-workers"

	DefaultOpenSearchAddr = "http://localhost:9200"

	DefaultMilvusAddr       = "localhost:19530"
	DefaultMilvusCollection = "company_embeddings"
	DefaultEmbeddingDim     = 64

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultModelBucket   = "tradelink-models"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "tradelink"

	DefaultHomeCountry = "Pakistan"

	DefaultModelPath      = "models/ltr_model.json"
	DefaultModelObjectKey = "ranking/ltr_model.json"

	DefaultHeuristicWeight = 0.7
	DefaultLearnedWeight   = 0.3

	DefaultMaxConfidence = 0.95

	DefaultWorkerHealthPort = 8081
)

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Fields that have already been set are left unchanged so that explicit
// configuration always wins.  It must run before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 20 * time.Second
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 20
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 40
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.StatementTimeout == 0 {
		cfg.Database.StatementTimeout = 30 * time.Second
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "migrations"
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.MaxConnectionPoolSize == 0 {
		cfg.Neo4j.MaxConnectionPoolSize = 50
	}
	if cfg.Neo4j.ConnectionTimeout == 0 {
		cfg.Neo4j.ConnectionTimeout = 10 * time.Second
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = 10 * time.Minute
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "tradelink:"
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{DefaultOpenSearchAddr}
	}
	if cfg.OpenSearch.IndexPrefix == "" {
		cfg.OpenSearch.IndexPrefix = "tradelink"
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.Collection == "" {
		cfg.Milvus.Collection = DefaultMilvusCollection
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = DefaultEmbeddingDim
	}
	if cfg.Milvus.MetricType == "" {
		cfg.Milvus.MetricType = "COSINE"
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = 50
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.ModelBucket == "" {
		cfg.MinIO.ModelBucket = DefaultModelBucket
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.LockTTL == 0 {
		cfg.Worker.LockTTL = 30 * time.Minute
	}

	// ── Log / Metrics ─────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	// ── Search ────────────────────────────────────────────────────────────────
	if cfg.Search.HomeCountry == "" {
		cfg.Search.HomeCountry = DefaultHomeCountry
	}
	if cfg.Search.ResultCacheTTL == 0 {
		cfg.Search.ResultCacheTTL = 5 * time.Minute
	}
	if cfg.Search.SemanticMinScore == 0 {
		cfg.Search.SemanticMinScore = 0.4
	}

	// ── Ranking ───────────────────────────────────────────────────────────────
	if cfg.Ranking.ModelPath == "" {
		cfg.Ranking.ModelPath = DefaultModelPath
	}
	if cfg.Ranking.ModelObjectKey == "" {
		cfg.Ranking.ModelObjectKey = DefaultModelObjectKey
	}
	if cfg.Ranking.HeuristicWeight == 0 && cfg.Ranking.LearnedWeight == 0 {
		cfg.Ranking.HeuristicWeight = DefaultHeuristicWeight
		cfg.Ranking.LearnedWeight = DefaultLearnedWeight
	}
	if cfg.Ranking.ReloadInterval == 0 {
		cfg.Ranking.ReloadInterval = time.Minute
	}

	// ── Training ──────────────────────────────────────────────────────────────
	if cfg.Training.LearningRate == 0 {
		cfg.Training.LearningRate = 0.05
	}
	if cfg.Training.MaxRounds == 0 {
		cfg.Training.MaxRounds = 100
	}
	if cfg.Training.EarlyStopRounds == 0 {
		cfg.Training.EarlyStopRounds = 10
	}
	if cfg.Training.TrainFraction == 0 {
		cfg.Training.TrainFraction = 0.8
	}
	if cfg.Training.EvalAtK == 0 {
		cfg.Training.EvalAtK = 5
	}
	if cfg.Training.MinCandidates == 0 {
		cfg.Training.MinCandidates = 2
	}
	if cfg.Training.SynthesisWorkers == 0 {
		cfg.Training.SynthesisWorkers = 4
	}

	// ── Link prediction ───────────────────────────────────────────────────────
	if cfg.LinkPrediction.DefaultTopK == 0 {
		cfg.LinkPrediction.DefaultTopK = 10
	}
	if cfg.LinkPrediction.PerMethodTopK == 0 {
		cfg.LinkPrediction.PerMethodTopK = 50
	}
	if cfg.LinkPrediction.MaxConfidence == 0 {
		cfg.LinkPrediction.MaxConfidence = DefaultMaxConfidence
	}
	if cfg.LinkPrediction.CacheTTLSeconds == 0 {
		cfg.LinkPrediction.CacheTTLSeconds = 600
	}
}

//Personal.AI order the ending
