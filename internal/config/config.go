// Package config defines all configuration structures for the TradeLink
// discovery platform.  No I/O or parsing logic lives here, only plain data
// types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Infrastructure sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the shipment
// aggregation store and the model registry.
type DatabaseConfig struct {
	// Driver is the database/sql driver name: "postgres" (lib/pq) or "pgx".
	Driver           string        `mapstructure:"driver"`
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxConns         int           `mapstructure:"max_conns"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime  time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime  time.Duration `mapstructure:"conn_max_idle_time"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	MigrationPath    string        `mapstructure:"migration_path"`
}

// Neo4jConfig holds connection parameters for the buyer/seller trade graph.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	Database              string        `mapstructure:"database"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.
type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	GroupID          string   `mapstructure:"group_id"`
	AutoOffsetReset  string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	TimeoutMS        int      `mapstructure:"timeout_ms"`
	ProducerRetries  int      `mapstructure:"producer_retries"`
	BatchSize        int      `mapstructure:"batch_size"`
	AutoCreateTopics bool     `mapstructure:"auto_create_topics"`
	SASLMechanism    string   `mapstructure:"sasl_mechanism"` // "", "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512"
	SASLUsername     string   `mapstructure:"sasl_username"`
	SASLPassword     string   `mapstructure:"sasl_password"`
	TLSCertPath      string   `mapstructure:"tls_cert_path"`
}

// OpenSearchConfig holds OpenSearch parameters for the product subcategory
// index.
type OpenSearchConfig struct {
	Addresses          []string `mapstructure:"addresses"`
	User               string   `mapstructure:"user"`
	Password           string   `mapstructure:"password"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
	IndexPrefix        string   `mapstructure:"index_prefix"`
}

// MilvusConfig holds parameters for the company embedding store.
type MilvusConfig struct {
	Addr         string `mapstructure:"addr"`
	DBName       string `mapstructure:"db_name"`
	EmbeddingDim int    `mapstructure:"embedding_dim"`
	Collection   string `mapstructure:"collection"`
	MetricType   string `mapstructure:"metric_type"`
	DefaultTopK  int    `mapstructure:"default_top_k"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters for
// ranking-model artifacts.
type MinIOConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	ModelBucket string `mapstructure:"model_bucket"`
	UseSSL      bool   `mapstructure:"use_ssl"`
	Region      string `mapstructure:"region"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	HealthPort int           `mapstructure:"health_port"`
	MaxRetries int           `mapstructure:"max_retries"`
	LockTTL    time.Duration `mapstructure:"lock_ttl"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level       string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format      string   `mapstructure:"format"` // "json" | "console"
	OutputPaths []string `mapstructure:"output_paths"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
	Enabled   bool   `mapstructure:"enabled"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// SearchConfig tunes the online search path.
type SearchConfig struct {
	HomeCountry      string        `mapstructure:"home_country"`
	ResultCacheTTL   time.Duration `mapstructure:"result_cache_ttl"`
	SemanticMinScore float64       `mapstructure:"semantic_min_score"`
}

// RankingConfig locates and blends the learned ranking model.
type RankingConfig struct {
	ModelPath       string        `mapstructure:"model_path"`
	ModelObjectKey  string        `mapstructure:"model_object_key"`
	HeuristicWeight float64       `mapstructure:"heuristic_weight"`
	LearnedWeight   float64       `mapstructure:"learned_weight"`
	ReloadInterval  time.Duration `mapstructure:"reload_interval"`
	WatchFile       bool          `mapstructure:"watch_file"`
}

// TrainingConfig tunes the offline listwise trainer.
type TrainingConfig struct {
	LearningRate     float64 `mapstructure:"learning_rate"`
	MaxRounds        int     `mapstructure:"max_rounds"`
	EarlyStopRounds  int     `mapstructure:"early_stop_rounds"`
	TrainFraction    float64 `mapstructure:"train_fraction"`
	EvalAtK          int     `mapstructure:"eval_at_k"`
	MinCandidates    int     `mapstructure:"min_candidates"`
	SynthesisWorkers int     `mapstructure:"synthesis_workers"`
}

// LinkPredictionConfig tunes the query-free recommender.
type LinkPredictionConfig struct {
	DefaultTopK     int     `mapstructure:"default_top_k"`
	PerMethodTopK   int     `mapstructure:"per_method_top_k"`
	MaxConfidence   float64 `mapstructure:"max_confidence"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Neo4j          Neo4jConfig          `mapstructure:"neo4j"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	OpenSearch     OpenSearchConfig     `mapstructure:"opensearch"`
	Milvus         MilvusConfig         `mapstructure:"milvus"`
	MinIO          MinIOConfig          `mapstructure:"minio"`
	Worker         WorkerConfig         `mapstructure:"worker"`
	Log            LogConfig            `mapstructure:"log"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	Search         SearchConfig         `mapstructure:"search"`
	Ranking        RankingConfig        `mapstructure:"ranking"`
	Training       TrainingConfig       `mapstructure:"training"`
	LinkPrediction LinkPredictionConfig `mapstructure:"link_prediction"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	if c.Milvus.EmbeddingDim < 1 {
		return fmt.Errorf("config: milvus.embedding_dim must be >= 1, got %d", c.Milvus.EmbeddingDim)
	}

	if c.Search.HomeCountry == "" {
		return fmt.Errorf("config: search.home_country is required")
	}

	sum := c.Ranking.HeuristicWeight + c.Ranking.LearnedWeight
	if c.Ranking.HeuristicWeight < 0 || c.Ranking.LearnedWeight < 0 || sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("config: ranking weights must be non-negative and sum to 1, got %.3f + %.3f",
			c.Ranking.HeuristicWeight, c.Ranking.LearnedWeight)
	}

	if c.Training.TrainFraction <= 0 || c.Training.TrainFraction >= 1 {
		return fmt.Errorf("config: training.train_fraction must be in (0, 1), got %.2f", c.Training.TrainFraction)
	}
	if c.Training.LearningRate <= 0 {
		return fmt.Errorf("config: training.learning_rate must be > 0")
	}

	if c.LinkPrediction.MaxConfidence <= 0 || c.LinkPrediction.MaxConfidence > 1 {
		return fmt.Errorf("config: link_prediction.max_confidence must be in (0, 1], got %.2f", c.LinkPrediction.MaxConfidence)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}

//Personal.AI order the ending
