package forward

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/nao1215/lure/internal/model"
)

// KafkaSink writes events as JSON messages keyed by remote address.
type KafkaSink struct {
	writer *kafka.Writer
}

// NewKafkaSink creates a sink producing to topic on brokers.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// Publish implements Sink.
func (k *KafkaSink) Publish(ctx context.Context, events []model.Event) error {
	msgs, err := encodeMessages(events)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, msgs...)
}

// Close flushes pending writes and closes the producer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

func encodeMessages(events []model.Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for i := range events {
		data, err := json.Marshal(&events[i])
		if err != nil {
			return nil, fmt.Errorf("failed to encode event %d: %w", events[i].ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(events[i].IP),
			Value: data,
			Time:  events[i].Timestamp,
			Headers: []kafka.Header{
				{Key: "service", Value: []byte(events[i].Service)},
			},
		})
	}
	return msgs, nil
}
