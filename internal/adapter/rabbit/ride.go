package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
	"github.com/Temutjin2k/ladies-drive/pkg/rabbit"
)

const (
	ExchangeRideTopic = "ride_topic"
	QueueRideActivity = "ride_activity"
	BindingRideStatus = "ride.status.*"
)

// RideBroker publishes committed ride status changes and lets other services
// follow them.
type RideBroker struct {
	client *rabbit.RabbitMQ
	l      logger.Logger
}

func NewRideBroker(client *rabbit.RabbitMQ, l logger.Logger) *RideBroker {
	return &RideBroker{client: client, l: l}
}

func (r *RideBroker) declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(ExchangeRideTopic, "topic", true, false, false, false, nil)
}

// PublishRideStatus is called after commit; a failure never undoes the change.
func (r *RideBroker) PublishRideStatus(ctx context.Context, msg models.RideStatusUpdateMessage) (err error) {
	const op = "RideBroker.PublishRideStatus"
	key := statusKey(msg.Status)
	defer func() { metrics.RecordPublish("rabbitmq", key, err) }()

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: marshal: %w", op, err))
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Body:          body,
		Timestamp:     time.Now(),
		MessageId:     msg.RideID,
		CorrelationId: msg.CorrelationID,
	}

	err = retry(ctx, 3, 500*time.Millisecond, func() error {
		ch, err := r.client.Channel()
		if err != nil {
			if rerr := r.client.EnsureConnection(ctx); rerr != nil {
				return rerr
			}
			if ch, err = r.client.Channel(); err != nil {
				return err
			}
		}
		if err := r.declareExchange(ch); err != nil {
			return err
		}
		return ch.PublishWithContext(ctx, ExchangeRideTopic, key, false, false, pub)
	})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: publish: %w", op, err))
	}
	return nil
}

// ConsumeRideStatus delivers ride status changes to handler until ctx is
// done, reconnecting whenever the broker goes away.
func (r *RideBroker) ConsumeRideStatus(ctx context.Context, handler func(ctx context.Context, msg models.RideStatusUpdateMessage) error) error {
	const op = "RideBroker.ConsumeRideStatus"

	for {
		if ctx.Err() != nil {
			r.l.Debug(ctx, "ride status consumer stopped by context")
			return nil
		}

		msgs, err := r.subscribe(ctx)
		if err != nil {
			r.l.Error(ctx, "subscribe failed", err, "op", op)
			sleepCtx(ctx, 2*time.Second)
			continue
		}
		r.l.Info(ctx, "start consuming ride status", "queue", QueueRideActivity)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				r.l.Info(ctx, "ride status consumer shutting down", "op", op)
				return nil

			case msg, ok := <-msgs:
				if !ok {
					r.l.Warn(ctx, "message channel closed, reconnecting", "op", op)
					sleepCtx(ctx, 2*time.Second)
					break consumeLoop
				}
				r.handleMessage(ctx, handler, msg)
			}
		}
	}
}

func (r *RideBroker) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	if err := r.client.EnsureConnection(ctx); err != nil {
		return nil, fmt.Errorf("ensure connection: %w", err)
	}
	ch, err := r.client.Channel()
	if err != nil {
		return nil, err
	}
	if err := r.declareExchange(ch); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(QueueRideActivity, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, BindingRideStatus, ExchangeRideTopic, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.Qos(32, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	return ch.Consume(q.Name, "", false, false, false, false, nil)
}

// handleMessage acks handled and undecodable messages and requeues a message
// once when the handler fails.
func (r *RideBroker) handleMessage(ctx context.Context, fn func(ctx context.Context, msg models.RideStatusUpdateMessage) error, d amqp.Delivery) {
	const op = "RideBroker.handleMessage"

	var msg models.RideStatusUpdateMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		metrics.RecordConsume("rabbitmq", d.RoutingKey, err)
		r.l.Error(ctx, "decode failed", err, "op", op)
		_ = d.Reject(false)
		return
	}

	ctx = wrap.WithRequestID(wrap.WithRideID(ctx, msg.RideID), d.CorrelationId)
	err := fn(ctx, msg)
	metrics.RecordConsume("rabbitmq", d.RoutingKey, err)
	if err != nil {
		r.l.Error(ctx, "handler failed", err, "op", op)
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	if err := d.Ack(false); err != nil {
		r.l.Warn(ctx, "ack failed", "error", err.Error(), "op", op)
	}
}
