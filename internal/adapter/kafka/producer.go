// Package kafka carries driver location samples over a Kafka topic.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
)

const publishTimeout = 2 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type LocationProducer struct {
	writer messageWriter
	topic  string
}

func NewLocationProducer(brokers []string, topic string) *LocationProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &LocationProducer{writer: w, topic: topic}
}

// PublishLocation keys messages by driver so one driver's samples stay ordered.
func (k *LocationProducer) PublishLocation(ctx context.Context, loc models.DriverLocation) (err error) {
	defer func() { metrics.RecordPublish("kafka", k.topic, err) }()

	b, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("encode location: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(loc.DriverID.String()), Value: b})
}

func (k *LocationProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
