package kafka

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Producer publishes JSON events. It satisfies posts.EventPublisher.
type Producer struct {
	producer *kafka.Producer
	config   *Config
	logger   *slog.Logger
}

func NewProducer(config *Config, logger *slog.Logger) (*Producer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	producerConfig := &kafka.ConfigMap{
		"bootstrap.servers":                     strings.Join(config.GetBrokersList(), ","),
		"enable.idempotence":                    config.EnableIdempotence,
		"acks":                                  config.Acks,
		"max.in.flight.requests.per.connection": 5,
		"retries":                               2147483647,
	}

	p, err := kafka.NewProducer(producerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	producer := &Producer{
		producer: p,
		config:   config,
		logger:   logger,
	}

	go producer.handleDeliveryReports()

	logger.Info("Kafka producer initialized",
		"brokers", config.Brokers,
		"idempotence", config.EnableIdempotence)

	return producer, nil
}

func newMessage(topic, key string, event any) (*kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Value: value,
	}
	// Events of one post share a key so they land on one partition in order.
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

// Publish enqueues an event without waiting for the broker. Delivery failures are
// reported through the logger.
func (p *Producer) Publish(topic, key string, event any) error {
	msg, err := newMessage(topic, key, event)
	if err != nil {
		return err
	}

	if err := p.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	p.logger.Debug("Event published to Kafka",
		"topic", topic,
		"key", key,
		"size", len(msg.Value))
	return nil
}

// PublishSync publishes an event and waits for the delivery report.
func (p *Producer) PublishSync(topic, key string, event any) error {
	msg, err := newMessage(topic, key, event)
	if err != nil {
		return err
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	e := <-deliveryChan
	m, ok := e.(*kafka.Message)
	if !ok {
		return fmt.Errorf("unexpected delivery event: %v", e)
	}
	if m.TopicPartition.Error != nil {
		return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
	}

	p.logger.Info("Event published to Kafka (sync)",
		"topic", *m.TopicPartition.Topic,
		"partition", m.TopicPartition.Partition,
		"offset", m.TopicPartition.Offset)
	return nil
}

func (p *Producer) handleDeliveryReports() {
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				p.logger.Error("Delivery failed",
					"topic", *ev.TopicPartition.Topic,
					"key", string(ev.Key),
					"error", ev.TopicPartition.Error)
			} else {
				p.logger.Debug("Message delivered",
					"topic", *ev.TopicPartition.Topic,
					"partition", ev.TopicPartition.Partition,
					"offset", ev.TopicPartition.Offset)
			}
		case kafka.Error:
			p.logger.Warn("Kafka client error", "error", ev, "code", ev.Code())
		}
	}
}

// Flush waits for all messages to be delivered
func (p *Producer) Flush(timeoutMs int) int {
	remaining := p.producer.Flush(timeoutMs)
	if remaining > 0 {
		p.logger.Warn("Failed to flush all messages",
			"remaining", remaining)
	}
	return remaining
}

// Close flushes pending messages for up to ten seconds and closes the producer.
func (p *Producer) Close() {
	p.logger.Info("Closing Kafka producer...")

	remaining := p.Flush(10000)
	if remaining > 0 {
		p.logger.Error("Some messages were not delivered",
			"count", remaining)
	}

	p.producer.Close()
	p.logger.Info("Kafka producer closed")
}
