package kafkaclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/segmentio/kafka-go"
)

// KafkaWriter defines the interface for a Kafka message writer.
// This allows for easy mocking in unit tests.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer publishes JSON messages to a single topic.
type KafkaProducer struct {
	writer KafkaWriter
	topic  string
	logger log.Interface
}

// NewKafkaProducer creates a producer for topic on broker. Writes are
// synchronous and wait for all in-sync replicas.
func NewKafkaProducer(topic, broker string, logger log.Interface) (*KafkaProducer, error) {
	if topic == "" || broker == "" {
		return nil, fmt.Errorf("kafka producer needs a broker and a topic")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		// One message per run; do not wait for a batch to fill up.
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaProducerWithWriter(writer, topic, logger), nil
}

// NewKafkaProducerWithWriter wraps an existing writer.
func NewKafkaProducerWithWriter(w KafkaWriter, topic string, logger log.Interface) *KafkaProducer {
	return &KafkaProducer{writer: w, topic: topic, logger: logger}
}

// PublishJSON writes value, encoded as JSON, under key.
func (kp *KafkaProducer) PublishJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal kafka message: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write message to %s: %w", kp.topic, err)
	}
	kp.logger.WithFields(log.Fields{"topic": kp.topic, "key": key}).Info("published message")
	return nil
}

// Close flushes and closes the underlying writer.
func (kp *KafkaProducer) Close() error {
	if err := kp.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
