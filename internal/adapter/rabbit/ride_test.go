package rabbit

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

type ackRecorder struct {
	acked, rejected bool
	requeued        *bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked = true; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.requeued = &requeue
	return nil
}

func (a *ackRecorder) Reject(uint64, bool) error { a.rejected = true; return nil }

func delivery(t *testing.T, ack amqp.Acknowledger, body any, redelivered bool) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{
		Acknowledger: ack,
		Body:         raw,
		RoutingKey:   "ride.status.completed",
		Redelivered:  redelivered,
	}
}

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "ride.status.in_progress", statusKey(types.StatusInProgress))
	assert.Equal(t, "ride.status.searching", statusKey(types.StatusSearching))
}

func TestHandleMessage(t *testing.T) {
	broker := NewRideBroker(nil, logger.New(io.Discard, "test", logger.LevelError))
	ctx := context.Background()
	msg := models.RideStatusUpdateMessage{RideID: "r1", Status: types.StatusCompleted, Price: 18.5}

	t.Run("handled", func(t *testing.T) {
		ack := &ackRecorder{}
		var got models.RideStatusUpdateMessage
		broker.handleMessage(ctx, func(_ context.Context, m models.RideStatusUpdateMessage) error {
			got = m
			return nil
		}, delivery(t, ack, msg, false))

		assert.True(t, ack.acked)
		assert.Equal(t, msg.RideID, got.RideID)
		assert.InDelta(t, 18.5, got.Price, 1e-9)
	})

	t.Run("undecodable", func(t *testing.T) {
		ack := &ackRecorder{}
		broker.handleMessage(ctx, func(context.Context, models.RideStatusUpdateMessage) error {
			t.Fatal("handler must not run")
			return nil
		}, delivery(t, ack, []byte("<xml/>"), false))
		assert.True(t, ack.rejected)
	})

	t.Run("handler fails once", func(t *testing.T) {
		ack := &ackRecorder{}
		fail := func(context.Context, models.RideStatusUpdateMessage) error { return errors.New("boom") }

		broker.handleMessage(ctx, fail, delivery(t, ack, msg, false))
		require.NotNil(t, ack.requeued)
		assert.True(t, *ack.requeued)

		broker.handleMessage(ctx, fail, delivery(t, ack, msg, true))
		assert.False(t, *ack.requeued)
	})
}
