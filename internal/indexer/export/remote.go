package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/metrics"
)

type publisher interface {
	PublishBatch(ctx context.Context, messages []kafka.Message) error
	Ping(ctx context.Context) error
	Close() error
}

// KafkaSink publishes one message per word, keyed by the word.
type KafkaSink struct {
	remote
	producer publisher
}

func NewKafkaSink(p publisher, cfg *config.Config, runID string, m *metrics.Metrics) *KafkaSink {
	return &KafkaSink{remote: newRemote(config.SinkKafka, cfg, runID, m), producer: p}
}

func (s *KafkaSink) Export(ctx context.Context, dict *index.Dictionary) error {
	records := 0
	for _, batch := range s.batches(dict) {
		msgs := make([]kafka.Message, len(batch))
		for i, ws := range batch {
			msgs[i] = kafka.Message{Key: ws.Word, Value: newRecord(s.runID, ws)}
		}
		err := s.call(ctx, "publish", func(ctx context.Context) error {
			return s.producer.PublishBatch(ctx, msgs)
		})
		if err != nil {
			return s.finish(records, fmt.Errorf("publishing batch at %q: %w", batch[0].Word, err))
		}
		records += len(batch)
	}
	return s.finish(records, nil)
}

func (s *KafkaSink) Ping(ctx context.Context) error { return s.producer.Ping(ctx) }
func (s *KafkaSink) Close() error                   { return s.producer.Close() }

type hashWriter interface {
	WriteHash(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// RedisSink stores the run as one hash, <prefix>:<run id>, mapping each
// word to its JSON record.
type RedisSink struct {
	remote
	client hashWriter
	key    string
	ttl    time.Duration
}

func NewRedisSink(c hashWriter, cfg *config.Config, runID string, m *metrics.Metrics) *RedisSink {
	return &RedisSink{
		remote: newRemote(config.SinkRedis, cfg, runID, m),
		client: c,
		key:    cfg.Redis.KeyPrefix + ":" + runID,
		ttl:    cfg.Redis.TTL,
	}
}

// Key is the hash the run is written to.
func (s *RedisSink) Key() string { return s.key }

func (s *RedisSink) Export(ctx context.Context, dict *index.Dictionary) error {
	if err := s.call(ctx, "reset", func(ctx context.Context) error {
		return s.client.Del(ctx, s.key)
	}); err != nil {
		return s.finish(0, err)
	}
	records := 0
	for _, batch := range s.batches(dict) {
		fields := make(map[string]string, len(batch))
		for _, ws := range batch {
			value, err := json.Marshal(newRecord(s.runID, ws))
			if err != nil {
				return s.finish(records, fmt.Errorf("marshaling %q: %w", ws.Word, err))
			}
			fields[ws.Word] = string(value)
		}
		err := s.call(ctx, "hset", func(ctx context.Context) error {
			return s.client.WriteHash(ctx, s.key, fields, s.ttl)
		})
		if err != nil {
			return s.finish(records, err)
		}
		records += len(batch)
	}
	return s.finish(records, nil)
}

func (s *RedisSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }
func (s *RedisSink) Close() error                   { return s.client.Close() }

const createWordFrequencies = `CREATE TABLE IF NOT EXISTS word_frequencies (
	run_id       TEXT   NOT NULL,
	word         TEXT   NOT NULL,
	word_count   BIGINT NOT NULL,
	document_ids BIGINT[] NOT NULL,
	PRIMARY KEY (run_id, word)
)`

const insertWordFrequency = `INSERT INTO word_frequencies (run_id, word, word_count, document_ids)
VALUES ($1, $2, $3, $4)
ON CONFLICT (run_id, word) DO UPDATE
SET word_count = EXCLUDED.word_count, document_ids = EXCLUDED.document_ids`

type txRunner interface {
	Migrate(ctx context.Context, statements ...string) error
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// PostgresSink writes every word of the run in a single transaction.
type PostgresSink struct {
	remote
	db txRunner
}

func NewPostgresSink(db txRunner, cfg *config.Config, runID string, m *metrics.Metrics) *PostgresSink {
	return &PostgresSink{remote: newRemote(config.SinkPostgres, cfg, runID, m), db: db}
}

func (s *PostgresSink) Export(ctx context.Context, dict *index.Dictionary) error {
	if err := s.call(ctx, "migrate", func(ctx context.Context) error {
		return s.db.Migrate(ctx, createWordFrequencies)
	}); err != nil {
		return s.finish(0, err)
	}
	stats := dict.Snapshot()
	err := s.call(ctx, "insert", func(ctx context.Context) error {
		return s.db.InTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, insertWordFrequency)
			if err != nil {
				return fmt.Errorf("preparing insert: %w", err)
			}
			defer stmt.Close()
			for _, ws := range stats {
				if _, err := stmt.ExecContext(ctx, s.runID, ws.Word, int64(ws.Count), pq.Array(documentIDs(ws.DocumentIDs))); err != nil {
					return fmt.Errorf("inserting %q: %w", ws.Word, err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return s.finish(0, err)
	}
	return s.finish(len(stats), nil)
}

func (s *PostgresSink) Ping(ctx context.Context) error { return s.db.Ping(ctx) }
func (s *PostgresSink) Close() error                   { return s.db.Close() }

func documentIDs(ids []index.DocumentID) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
