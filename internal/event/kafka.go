package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const writeTimeout = 10 * time.Second

// KafkaRecorder publishes firing events as JSON to a Kafka topic, keyed by
// rule ID so one rule's history lands on one partition in order.
type KafkaRecorder struct {
	writer *kafka.Writer
	topic  string
}

// NewKafkaRecorder creates a Kafka-backed event recorder with at-least-once
// semantics and synchronous writes.
func NewKafkaRecorder(brokers, topic string) (*KafkaRecorder, error) {
	if brokers == "" {
		return nil, fmt.Errorf("brokers cannot be empty")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	brokerList := ParseBrokers(brokers)

	slog.Info("Initializing Kafka event recorder",
		"brokers", brokerList,
		"topic", topic,
	)

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokerList...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // Key-based partitioning (hashes rule ID)
		WriteTimeout: writeTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &KafkaRecorder{
		writer: writer,
		topic:  topic,
	}, nil
}

// Record publishes the event. Callers treat failures as best-effort history
// loss, not firing failures.
func (r *KafkaRecorder) Record(ctx context.Context, ev *FiringEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal firing event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.RuleID),
		Value: value,
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish firing event: %w", err)
	}

	slog.Debug("Published firing event",
		"event_id", ev.EventID,
		"kind", ev.Kind,
		"rule_id", ev.RuleID,
		"topic", r.topic,
	)
	return nil
}

// Close closes the underlying Kafka writer.
func (r *KafkaRecorder) Close() error {
	return r.writer.Close()
}

// ParseBrokers splits a comma-separated broker list and trims whitespace.
func ParseBrokers(brokers string) []string {
	if brokers == "" {
		return nil
	}
	list := strings.Split(brokers, ",")
	for i := range list {
		list[i] = strings.TrimSpace(list[i])
	}
	return list
}
