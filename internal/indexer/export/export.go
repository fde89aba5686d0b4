// Package export writes a finished dictionary to one of several sinks:
// plain text, JSON, Kafka, Redis or PostgreSQL.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/resilience"
)

// Sink receives the final dictionary once per run.
type Sink interface {
	Export(ctx context.Context, dict *index.Dictionary) error
	Close() error
}

// Record is one word as published to remote sinks.
type Record struct {
	RunID       string             `json:"run_id"`
	Word        string             `json:"word"`
	Count       uint64             `json:"count"`
	DocumentIDs []index.DocumentID `json:"document_ids"`
}

func newRecord(runID string, ws index.WordStat) Record {
	return Record{
		RunID:       runID,
		Word:        ws.Word,
		Count:       ws.Count,
		DocumentIDs: ws.DocumentIDs,
	}
}

// remote carries what every network sink shares: run id, batching, the
// per-call timeout and retry policy, and metrics.
type remote struct {
	name      string
	runID     string
	batchSize int
	timeout   time.Duration
	retry     resilience.RetryConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func newRemote(name string, cfg *config.Config, runID string, m *metrics.Metrics) remote {
	batch := cfg.Output.BatchSize
	if batch <= 0 {
		batch = 500
	}
	return remote{
		name:      name,
		runID:     runID,
		batchSize: batch,
		timeout:   cfg.Output.Timeout,
		metrics:   m,
		logger:    logger.WithComponent("export").With("sink", name, "run_id", runID),
	}
}

// call runs one remote write under the timeout, retrying transient failures.
func (r remote) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	name := r.name + "." + op
	return resilience.Retry(ctx, name, r.retry, func() error {
		return resilience.WithTimeout(ctx, r.timeout, name, fn)
	})
}

// batches splits the dictionary's sorted snapshot into runs of batchSize.
func (r remote) batches(dict *index.Dictionary) [][]index.WordStat {
	stats := dict.Snapshot()
	var out [][]index.WordStat
	for start := 0; start < len(stats); start += r.batchSize {
		out = append(out, stats[start:min(start+r.batchSize, len(stats))])
	}
	return out
}

func (r remote) finish(records int, err error) error {
	r.metrics.SinkWrite(r.name, records, err)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindDependency {
			return err
		}
		return &apperrors.Error{
			Err:     fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err),
			Kind:    apperrors.KindDependency,
			Message: r.name + " export failed",
		}
	}
	r.logger.Info("export complete", "records", records)
	return nil
}

// Open builds the sink selected by cfg.Output.Sink. Remote sinks connect
// eagerly; stdout is used by the text and JSON sinks when no path is set.
func Open(cfg *config.Config, runID string, stdout io.Writer, m *metrics.Metrics) (Sink, error) {
	switch cfg.Output.Sink {
	case config.SinkText, config.SinkJSON:
		w, closer, err := openOutput(cfg.Output.Path, stdout)
		if err != nil {
			return nil, err
		}
		if cfg.Output.Sink == config.SinkJSON {
			return &JSONSink{w: w, closer: closer, metrics: m}, nil
		}
		return &TextSink{w: w, closer: closer, top: cfg.Output.Top, metrics: m}, nil
	case config.SinkKafka:
		return NewKafkaSink(kafka.NewProducer(cfg.Kafka, cfg.Output.BatchSize), cfg, runID, m), nil
	case config.SinkRedis:
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, unavailable("redis", err)
		}
		return NewRedisSink(client, cfg, runID, m), nil
	case config.SinkPostgres:
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, unavailable("postgres", err)
		}
		return NewPostgresSink(client, cfg, runID, m), nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.KindConfiguration,
			"unknown output.sink %q", cfg.Output.Sink)
	}
}

func unavailable(name string, err error) error {
	return &apperrors.Error{
		Err:     fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err),
		Kind:    apperrors.KindDependency,
		Message: "connecting to " + name,
	}
}

func openOutput(path string, stdout io.Writer) (io.Writer, io.Closer, error) {
	if path == "" {
		return stdout, nil, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file %s: %w", path, err)
	}
	return f, f, nil
}
