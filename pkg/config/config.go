// Package config loads and validates configuration from YAML files with
// environment-variable overrides. It provides typed structs for the index
// pipeline, the export sinks and the ambient subsystems.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/worker"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

// Merge strategies understood by the pipeline.
const (
	MergeSequential = "sequential"
	MergeTree       = "tree"
)

// Sink names understood by the exporter.
const (
	SinkText     = "text"
	SinkJSON     = "json"
	SinkKafka    = "kafka"
	SinkRedis    = "redis"
	SinkPostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Index    IndexConfig    `yaml:"index"`
	Output   OutputConfig   `yaml:"output"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// IndexConfig controls document discovery, parallelism and the shard layout.
// Workers of 0 means one per CPU.
type IndexConfig struct {
	Root          string `yaml:"root"`
	Workers       int    `yaml:"workers"`
	Shards        int    `yaml:"shards"`
	MergeStrategy string `yaml:"mergeStrategy"`
	MaxWordBytes  int    `yaml:"maxWordBytes"`
}

// OutputConfig selects the export sink.
type OutputConfig struct {
	Sink      string        `yaml:"sink"`
	Path      string        `yaml:"path"`
	Top       int           `yaml:"top"`
	BatchSize int           `yaml:"batchSize"`
	Timeout   time.Duration `yaml:"timeout"`
}

// KafkaConfig holds the brokers and topic used by the Kafka sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig holds connection parameters and key layout for the Redis sink.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
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

// TracingConfig toggles logging of the per-run span tree.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
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
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Index: IndexConfig{
			Root:          ".",
			Workers:       0,
			Shards:        shard.DefaultShards,
			MergeStrategy: MergeSequential,
			MaxWordBytes:  worker.DefaultMaxWordBytes,
		},
		Output: OutputConfig{
			Sink:      SinkText,
			BatchSize: 500,
			Timeout:   2 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topic:   "word-frequencies",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			KeyPrefix: "wordindex",
			TTL:       24 * time.Hour,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wordindex",
			User:            "wordindex",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
		Tracing: TracingConfig{
			Enabled: true,
		},
	}
}

// Validate reports the first configuration problem, if any.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.KindConfiguration, format, args...)
	}
	if c.Index.Shards < 1 {
		return invalid("index.shards must be at least 1, got %d", c.Index.Shards)
	}
	if c.Index.Workers < 0 {
		return invalid("index.workers must not be negative, got %d", c.Index.Workers)
	}
	switch c.Index.MergeStrategy {
	case MergeSequential, MergeTree:
	default:
		return invalid("unknown index.mergeStrategy %q", c.Index.MergeStrategy)
	}
	switch c.Output.Sink {
	case SinkText, SinkJSON:
	case SinkKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return invalid("kafka sink needs kafka.brokers and kafka.topic")
		}
	case SinkRedis:
		if c.Redis.Addr == "" {
			return invalid("redis sink needs redis.addr")
		}
	case SinkPostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return invalid("postgres sink needs postgres.host and postgres.database")
		}
	default:
		return invalid("unknown output.sink %q", c.Output.Sink)
	}
	if c.Output.Top < 0 {
		return invalid("output.top must not be negative, got %d", c.Output.Top)
	}
	return nil
}

// applyEnvOverrides reads WI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WI_INDEX_ROOT"); v != "" {
		cfg.Index.Root = v
	}
	if v := os.Getenv("WI_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Workers = n
		}
	}
	if v := os.Getenv("WI_INDEX_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Index.Shards = n
		}
	}
	if v := os.Getenv("WI_INDEX_MERGE_STRATEGY"); v != "" {
		cfg.Index.MergeStrategy = v
	}
	if v := os.Getenv("WI_OUTPUT_SINK"); v != "" {
		cfg.Output.Sink = v
	}
	if v := os.Getenv("WI_OUTPUT_PATH"); v != "" {
		cfg.Output.Path = v
	}
	if v := os.Getenv("WI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("WI_KAFKA_TOPIC"); v != "" {
		cfg.Kafka.Topic = v
	}
	if v := os.Getenv("WI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("WI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("WI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("WI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("WI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("WI_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("WI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("WI_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("WI_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
