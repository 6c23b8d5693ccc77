package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the sink uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink forwards change events to a Kafka topic. It registers with the
// hub like any other viewer, but stays registered when a write fails.
type KafkaSink struct {
	writer MessageWriter
	topic  string
	logger zerolog.Logger
}

// NewKafkaSink creates a sink writing to topic on the given brokers.
func NewKafkaSink(brokers []string, topic string, logger zerolog.Logger) *KafkaSink {
	return NewKafkaSinkWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}, topic, logger)
}

// NewKafkaSinkWithWriter creates a sink on an existing writer.
func NewKafkaSinkWithWriter(writer MessageWriter, topic string, logger zerolog.Logger) *KafkaSink {
	logger = logger.With().Str("component", "kafka-sink").Str("topic", topic).Logger()
	logger.Info().Msg("kafka change sink initialised")

	return &KafkaSink{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

// ID returns the session identifier.
func (k *KafkaSink) ID() string {
	return "kafka:" + k.topic
}

// Persistent keeps the sink registered after a failed write.
func (k *KafkaSink) Persistent() bool {
	return true
}

// Send writes the event keyed by document ID so changes to one document stay
// on one partition.
func (k *KafkaSink) Send(ctx context.Context, payload []byte) error {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(payload, &head)

	msg := kafka.Message{Value: payload}
	if head.ID != "" {
		msg.Key = []byte(head.ID)
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write change event to kafka: %w", err)
	}
	return nil
}

var _ PersistentSession = (*KafkaSink)(nil)

// Close flushes and closes the writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
