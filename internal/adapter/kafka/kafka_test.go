package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

// memTopic is an in-memory stand-in for one partition.
type memTopic struct {
	mu   sync.Mutex
	msgs []kafka.Message
	pos  int
	fail int
}

func (m *memTopic) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *memTopic) ReadMessage(ctx context.Context) (kafka.Message, error) {
	for {
		m.mu.Lock()
		if m.fail > 0 {
			m.fail--
			m.mu.Unlock()
			return kafka.Message{}, errors.New("broker not available")
		}
		if m.pos < len(m.msgs) {
			msg := m.msgs[m.pos]
			msg.Offset = int64(m.pos)
			m.pos++
			m.mu.Unlock()
			return msg, nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (m *memTopic) Close() error { return nil }

func TestProducerConsumerRoundTrip(t *testing.T) {
	topic := &memTopic{}
	producer := &LocationProducer{writer: topic, topic: "driver-locations"}
	consumer := &LocationConsumer{reader: topic, topic: "driver-locations", l: logger.New(io.Discard, "test", logger.LevelError)}

	driverID := uuid.New()
	for i := range 3 {
		require.NoError(t, producer.PublishLocation(context.Background(), models.DriverLocation{
			DriverID: driverID,
			City:     "Agadir",
			Point:    models.GeoPoint{Lat: 30.42, Lng: -9.59 + float64(i)/100},
		}))
	}
	require.Len(t, topic.msgs, 3)
	assert.Equal(t, driverID.String(), string(topic.msgs[0].Key))

	// a malformed message in the middle is skipped
	topic.msgs = append(topic.msgs[:1], append([]kafka.Message{{Value: []byte("{oops")}}, topic.msgs[1:]...)...)

	ctx, cancel := context.WithCancel(context.Background())
	var got []models.DriverLocation
	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx, func(_ context.Context, loc models.DriverLocation) error {
			got = append(got, loc)
			if len(got) == 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	require.Len(t, got, 3)
	assert.InDelta(t, -9.57, got[2].Point.Lng, 1e-9)
}

func TestConsumerBacksOffOnReadErrors(t *testing.T) {
	loc := models.DriverLocation{DriverID: uuid.New(), City: "Oujda"}
	raw, err := json.Marshal(loc)
	require.NoError(t, err)

	topic := &memTopic{fail: 1, msgs: []kafka.Message{{Value: raw}}}
	consumer := &LocationConsumer{reader: topic, topic: "t", l: logger.New(io.Discard, "test", logger.LevelError)}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	handled := make(chan models.DriverLocation, 1)
	go func() {
		_ = consumer.Run(ctx, func(_ context.Context, l models.DriverLocation) error {
			handled <- l
			return errors.New("redis down")
		})
	}()

	select {
	case l := <-handled:
		assert.Equal(t, "Oujda", l.City)
	case <-ctx.Done():
		t.Fatal("message never handled after the read error")
	}
}
