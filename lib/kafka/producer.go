package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Producer publishes messages with full-acknowledgment writes.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer returns a Producer for the configured brokers.
func NewProducer(cfg *Config) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

// Send publishes one message to topic. The payload is already encoded by the
// caller (the outbox stores encoded payloads).
func (p *Producer) Send(topic string, key string, payload []byte) error {
	return p.writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
}

// Close releases the underlying writer.
func (p *Producer) Close() error { return p.writer.Close() }
