package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Config identifies the brokers and consumer group used by producers and
// workers. Built once at startup and injected.
type Config struct {
	Brokers []string
	GroupID string
}

// Ping dials the first broker to verify connectivity. Startup continues
// without Kafka; the outbox worker keeps retrying publishes until the broker
// is back.
func (c *Config) Ping(ctx context.Context) error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(dialCtx, "tcp", c.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka: dial %s: %w", c.Brokers[0], err)
	}
	defer conn.Close()

	logrus.WithField("broker", c.Brokers[0]).Info("Kafka connection established")
	return nil
}
