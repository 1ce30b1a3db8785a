package kafka

import (
	"fmt"

	"github.com/segmentio/kafka-go"
)

// CreateTopic creates a topic on the cluster controller if it does not exist.
func CreateTopic(cfg *Config, topic string, partitions int, replicationFactor int) error {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	return controllerConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	})
}
