package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Index.Shards)
	assert.Equal(t, MergeSequential, cfg.Index.MergeStrategy)
	assert.Equal(t, SinkText, cfg.Output.Sink)
	assert.NoError(t, cfg.Validate())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordindex.yaml")
	yamlDoc := `
index:
  root: /data/books
  workers: 3
  shards: 32
  mergeStrategy: tree
output:
  sink: redis
  timeout: 30s
redis:
  addr: cache:6379
  ttl: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0644))
	t.Setenv("WI_INDEX_SHARDS", "8")
	t.Setenv("WI_LOGGING_LEVEL", "debug")
	t.Setenv("WI_METRICS_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/books", cfg.Index.Root)
	assert.Equal(t, 3, cfg.Index.Workers)
	assert.Equal(t, 8, cfg.Index.Shards)
	assert.Equal(t, MergeTree, cfg.Index.MergeStrategy)
	assert.Equal(t, SinkRedis, cfg.Output.Sink)
	assert.Equal(t, 30*time.Second, cfg.Output.Timeout)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "wordindex", cfg.Redis.KeyPrefix)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero shards", func(c *Config) { c.Index.Shards = 0 }},
		{"negative workers", func(c *Config) { c.Index.Workers = -1 }},
		{"bad merge", func(c *Config) { c.Index.MergeStrategy = "random" }},
		{"bad sink", func(c *Config) { c.Output.Sink = "printer" }},
		{"kafka without topic", func(c *Config) { c.Output.Sink = SinkKafka; c.Kafka.Topic = "" }},
		{"redis without addr", func(c *Config) { c.Output.Sink = SinkRedis; c.Redis.Addr = "" }},
		{"postgres without db", func(c *Config) { c.Output.Sink = SinkPostgres; c.Postgres.Database = "" }},
		{"negative top", func(c *Config) { c.Output.Top = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	p := Default().Postgres
	assert.Equal(t, "host=localhost port=5432 user=wordindex password=localdev dbname=wordindex sslmode=disable", p.DSN())
}
