// Package config loads service configuration from a YAML file with
// environment-variable overrides. It provides typed structs for the
// dictionary, the indexer and searcher services, and their backing stores.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Postgres   PostgresConfig  `yaml:"postgres"`
	Kafka      KafkaConfig     `yaml:"kafka"`
	Redis      RedisConfig     `yaml:"redis"`
	Dictionary softdict.Config `yaml:"dictionary"`
	Indexer    IndexerConfig   `yaml:"indexer"`
	Ingestion  IngestionConfig `yaml:"ingestion"`
	Search     SearchConfig    `yaml:"search"`
	Logging    LoggingConfig   `yaml:"logging"`
	Metrics    MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimitRPS caps lookups per second across all callers. Zero
	// disables limiting.
	RateLimitRPS   float64 `yaml:"rateLimitRps"`
	RateLimitBurst int     `yaml:"rateLimitBurst"`
}

// PostgresConfig holds PostgreSQL connection parameters and the table the
// indexer reads aliases from.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	AliasTable      string        `yaml:"aliasTable"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AliasEvents   string `yaml:"aliasEvents"`
	SnapshotReady string `yaml:"snapshotReady"`
	// LookupEvents receives one event per served lookup. Empty disables
	// publishing; the searcher still aggregates locally.
	LookupEvents string `yaml:"lookupEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexerConfig controls where dictionary snapshots are built from and
// written to.
type IndexerConfig struct {
	Port            int           `yaml:"port"`
	DataDir         string        `yaml:"dataDir"`
	SnapshotName    string        `yaml:"snapshotName"`
	AliasFile       string        `yaml:"aliasFile"`
	RebuildInterval time.Duration `yaml:"rebuildInterval"`
}

// SnapshotPath is the file the indexer writes and the searcher restores.
func (c IndexerConfig) SnapshotPath() string {
	return filepath.Join(c.DataDir, c.SnapshotName)
}

// IngestionConfig controls the alias ingestion API.
type IngestionConfig struct {
	Port int `yaml:"port"`
}

// SearchConfig controls lookup defaults and limits.
type SearchConfig struct {
	DefaultMinScore float64       `yaml:"defaultMinScore"`
	DefaultLimit    int           `yaml:"defaultLimit"`
	MaxResults      int           `yaml:"maxResults"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	// Rescore names a string distance applied to lookup candidates. Empty
	// disables rescoring.
	Rescore              string  `yaml:"rescore"`
	RescoreInnerMinScore float64 `yaml:"rescoreInnerMinScore"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Dictionary.Validate(); err != nil {
		return nil, fmt.Errorf("dictionary config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "softdict",
			User:            "softdict",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			AliasTable:      "aliases",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "softdict-indexer",
			Topics: KafkaTopics{
				AliasEvents:   "alias-events",
				SnapshotReady: "dictionary.snapshot",
				LookupEvents:  "lookup-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Dictionary: softdict.DefaultConfig(),
		Indexer: IndexerConfig{
			Port:            8081,
			DataDir:         "./data",
			SnapshotName:    "dictionary.sdct",
			RebuildInterval: 30 * time.Second,
		},
		Ingestion: IngestionConfig{
			Port: 8082,
		},
		Search: SearchConfig{
			DefaultMinScore:      0.8,
			DefaultLimit:         10,
			MaxResults:           100,
			RequestTimeout:       2 * time.Second,
			RescoreInnerMinScore: 0.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SD_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SD_INDEXER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Port = port
		}
	}
	if v := os.Getenv("SD_INGESTION_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Ingestion.Port = port
		}
	}
	if v := os.Getenv("SD_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("SD_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("SD_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SD_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SD_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SD_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SD_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SD_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SD_POSTGRES_ALIAS_TABLE"); v != "" {
		cfg.Postgres.AliasTable = v
	}
	if v := os.Getenv("SD_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("SD_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SD_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("SD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SD_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SD_DICTIONARY_MIN_TOKEN_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Dictionary.MinTokenSimilarity = f
		}
	}
	if v := os.Getenv("SD_DICTIONARY_WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dictionary.WindowSize = n
		}
	}
	if v := os.Getenv("SD_DICTIONARY_MAX_INVERTED_INDEX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dictionary.MaxInvertedIndexSize = n
		}
	}
	if v := os.Getenv("SD_DICTIONARY_BOUND_MERGE"); v != "" {
		cfg.Dictionary.BoundMerge = softdict.BoundMerge(v)
	}
	if v := os.Getenv("SD_INDEXER_DATA_DIR"); v != "" {
		cfg.Indexer.DataDir = v
	}
	if v := os.Getenv("SD_INDEXER_ALIAS_FILE"); v != "" {
		cfg.Indexer.AliasFile = v
	}
	if v := os.Getenv("SD_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SD_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
