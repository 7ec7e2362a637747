// Package kafka publishes linking audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// SchemaVersion is stamped on every message as a header
const SchemaVersion = "1.0"

// MessageWriter is the subset of *kafka.Writer the producer uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// Producer writes JSON messages to one topic
type Producer struct {
	writer MessageWriter
	logger ectologger.Logger
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	var compression kafka.Compression
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	default:
		compression = kafka.Snappy
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return NewProducerWithWriter(writer, cfg.Topic, logger)
}

// NewProducerWithWriter wraps an existing writer
func NewProducerWithWriter(writer MessageWriter, topic string, logger ectologger.Logger) *Producer {
	return &Producer{writer: writer, logger: logger, topic: topic}
}

// Topic returns the topic the producer writes to
func (p *Producer) Topic() string { return p.topic }

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// PublishJSON marshals value and writes it keyed by key. Keys keep every event
// about one subject on one partition so consumers see them in order.
func (p *Producer) PublishJSON(ctx context.Context, key string, headers map[string]string, value any) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishJSON")
	defer span.End()

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: []kafka.Header{{Key: "schema_version", Value: []byte(SchemaVersion)}},
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithField("key", key).Error("Failed to publish message")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"topic": p.topic,
		"key":   key,
	}).Debug("Published message")

	return nil
}
