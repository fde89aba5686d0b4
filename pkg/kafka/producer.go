// Package kafka wraps a segmentio/kafka-go writer for publishing JSON
// records keyed for partition hashing.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/config"
)

// Message is one record to publish. Key is used for partition hashing and
// Value is JSON-serialised.
type Message struct {
	Key   string
	Value any
}

// Producer publishes JSON-encoded messages to one topic.
type Producer struct {
	writer  *kafka.Writer
	brokers []string
	logger  *slog.Logger
}

// NewProducer creates a Producer for cfg.Topic. batchSize bounds how many
// messages the writer groups into one request.
func NewProducer(cfg config.KafkaConfig, batchSize int) *Producer {
	if batchSize <= 0 {
		batchSize = 100
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    batchSize,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &Producer{
		writer:  w,
		brokers: cfg.Brokers,
		logger:  slog.Default().With("component", "kafka-producer", "topic", cfg.Topic),
	}
}

// PublishBatch writes messages to Kafka in a single synchronous call.
func (p *Producer) PublishBatch(ctx context.Context, messages []Message) error {
	out := make([]kafka.Message, 0, len(messages))
	for _, m := range messages {
		value, err := json.Marshal(m.Value)
		if err != nil {
			return fmt.Errorf("marshaling message value: %w", err)
		}
		out = append(out, kafka.Message{
			Key:   []byte(m.Key),
			Value: value,
		})
	}
	if err := p.writer.WriteMessages(ctx, out...); err != nil {
		p.logger.Error("failed to publish batch",
			"count", len(out),
			"error", err,
		)
		return fmt.Errorf("publishing batch to kafka: %w", err)
	}
	p.logger.Debug("batch published", "count", len(out))
	return nil
}

// Ping dials the first reachable broker.
func (p *Producer) Ping(ctx context.Context) error {
	var lastErr error
	for _, broker := range p.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	if lastErr == nil {
		lastErr = &net.AddrError{Err: "no brokers configured"}
	}
	return fmt.Errorf("dialing kafka: %w", lastErr)
}

// Close flushes pending writes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
