// Package config provides configuration loading, defaults, and validation for
// the TradeLink discovery platform.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all platform settings.
const envPrefix = "TRADELINK"

// newViper builds a Viper instance with YAML file type, TRADELINK_ env
// prefix and a "." → "_" key replacer so that "database.host" resolves to
// TRADELINK_DATABASE_HOST.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys(v)
	return v
}

// bindEnvKeys registers every leaf key so that AutomaticEnv can resolve it
// during Unmarshal even when no config file mentions the key.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"server.port", "server.mode",
		"database.driver", "database.host", "database.port", "database.user", "database.password", "database.db_name", "database.ssl_mode",
		"neo4j.uri", "neo4j.user", "neo4j.password", "neo4j.database",
		"redis.addr", "redis.password", "redis.db",
		"kafka.brokers", "kafka.group_id",
		"opensearch.addresses", "opensearch.user", "opensearch.password",
		"milvus.addr", "milvus.collection", "milvus.embedding_dim",
		"minio.endpoint", "minio.access_key", "minio.secret_key", "minio.model_bucket", "minio.use_ssl",
		"log.level", "log.format",
		"search.home_country",
		"ranking.model_path", "ranking.model_object_key",
	} {
		_ = v.BindEnv(key)
	}
}

// Load reads the YAML file at configPath, merges any TRADELINK_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from TRADELINK_* environment variables.
//
//	TRADELINK_<SECTION>_<FIELD>   e.g.  TRADELINK_DATABASE_HOST
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// LoadOrEnv loads from configPath when it is non-empty and from the
// environment otherwise.
func LoadOrEnv(configPath string) (*Config, error) {
	if configPath == "" {
		return LoadFromEnv()
	}
	return Load(configPath)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the re-parsed Config
// whenever the file is written.  Invalid revisions are reported to onError
// (when non-nil) and never reach onChange.
func Watch(configPath string, onChange func(*Config), onError func(error)) error {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// MustLoad wraps LoadOrEnv and panics on error.  Intended for main().
func MustLoad(configPath string) *Config {
	cfg, err := LoadOrEnv(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}

//Personal.AI order the ending
