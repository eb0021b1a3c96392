package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
)

const maxBackoff = 30 * time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type LocationConsumer struct {
	reader messageReader
	topic  string
	l      logger.Logger
}

func NewLocationConsumer(brokers []string, topic, groupID string, l logger.Logger) *LocationConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &LocationConsumer{reader: r, topic: topic, l: l}
}

// Run hands every sample to handle until ctx is done. Read errors back off
// exponentially; malformed messages and handler failures are logged and skipped.
func (c *LocationConsumer) Run(ctx context.Context, handle func(ctx context.Context, loc models.DriverLocation) error) error {
	c.l.Info(ctx, "location consumer started", "topic", c.topic)

	backoff := time.Second
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.l.Info(ctx, "location consumer stopped")
				return nil
			}
			c.l.Warn(ctx, "kafka read failed", "error", err.Error(), "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		var loc models.DriverLocation
		if err := json.Unmarshal(m.Value, &loc); err != nil {
			metrics.RecordConsume("kafka", c.topic, fmt.Errorf("decode: %w", err))
			c.l.Warn(ctx, "invalid location message", "offset", m.Offset, "error", err.Error())
			continue
		}

		err = handle(ctx, loc)
		metrics.RecordConsume("kafka", c.topic, err)
		if err != nil {
			c.l.Warn(ctx, "failed to handle location", "driver_id", loc.DriverID.String(), "error", err.Error())
		}
	}
}

func (c *LocationConsumer) Close() error {
	return c.reader.Close()
}
