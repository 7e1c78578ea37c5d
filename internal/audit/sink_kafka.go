package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaSink publishes audit records to a Kafka topic, keyed by entity id so
// one entity's trail stays ordered within a partition.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink constructs a Kafka-backed sink.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaSink{client: client, topic: topic}, nil
}

var _ Sink = (*KafkaSink)(nil)

func (s *KafkaSink) Create(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	msg := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(string(rec.EntityType) + ":" + rec.EntityID),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, msg).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes buffered produce requests and releases the client.
func (s *KafkaSink) Close() {
	s.client.Close()
}
