package ride

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

/*
Service owns the ride state machine. Every state change runs in one
transaction; side effects that must not fail a committed change (events,
broker messages, metrics) run after commit.
*/
type Service struct {
	repos     repos
	rater     Rater
	publisher Publisher
	trm       trm.TxManager
	policy    trm.RetryPolicy

	searchTimeout time.Duration
	now           func() time.Time
	l             logger.Logger
}

type repos struct {
	ride  RideRepo
	user  UserRepo
	event EventRepo
}

type Option func(*Service)

// WithSearchTimeout enables expiry of rides left SEARCHING longer than d.
func WithSearchTimeout(d time.Duration) Option {
	return func(s *Service) { s.searchTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithRetryPolicy(p trm.RetryPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// New returns the ride lifecycle service. publisher may be nil.
func New(rideRepo RideRepo, userRepo UserRepo, eventRepo EventRepo, rater Rater, publisher Publisher, tm trm.TxManager, l logger.Logger, opts ...Option) *Service {
	s := &Service{
		repos: repos{
			ride:  rideRepo,
			user:  userRepo,
			event: eventRepo,
		},
		rater:     rater,
		publisher: publisher,
		trm:       tm,
		policy:    trm.DefaultRetryPolicy,
		now:       time.Now,
		l:         l,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newRideID() string {
	return ulid.Make().String()
}

// fail records the failure and keeps domain errors as they are; anything the
// store returned becomes ErrTransactionFailed.
func (s *Service) fail(ctx context.Context, op string, err error) error {
	metrics.RecordRideError(op, types.ErrorKind(err))
	if types.IsDomain(err) {
		s.l.Debug(wrap.ErrorCtx(ctx, err), "ride operation rejected", "reason", err.Error())
		return wrap.Error(ctx, err)
	}
	s.l.Error(ctx, "ride transaction failed", err)
	return wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrTransactionFailed, err))
}

// afterCommit runs the non-transactional side effects of a committed change.
// Failures are logged and never returned.
func (s *Service) afterCommit(ctx context.Context, ride *models.RideRequest, event types.RideEvent, actor *uuid.UUID, data any) {
	metrics.RecordTransition(ride.Status.String())

	ev := models.RideEvent{
		ID:        ulid.Make().String(),
		RideID:    ride.ID,
		Type:      event,
		ActorID:   actor,
		CreatedAt: s.now(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			ev.Data = raw
		}
	}
	if err := s.repos.event.Record(ctx, ev); err != nil {
		s.l.Warn(ctx, "failed to record ride event", "event", event, "err", err.Error())
	}

	if s.publisher == nil {
		return
	}
	msg := models.NewRideStatusUpdate(ride, ev.CreatedAt, wrap.GetRequestID(ctx))
	if err := s.publisher.PublishRideStatus(ctx, msg); err != nil {
		s.l.Warn(wrap.WithAction(ctx, types.ActionExternalServiceFailed), "failed to publish ride status", "status", ride.Status, "err", err.Error())
	}
}

// Get returns the ride.
func (s *Service) Get(ctx context.Context, rideID string) (*models.RideRequest, error) {
	ride, err := s.repos.ride.Get(ctx, rideID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return ride, nil
}

// ListForPassenger returns the passenger's rides, newest first.
func (s *Service) ListForPassenger(ctx context.Context, passengerID uuid.UUID, filters models.Filters) ([]models.RideRequest, error) {
	rides, err := s.repos.ride.List(ctx, models.RideFilter{
		PassengerID: &passengerID,
		NewestFirst: true,
		Limit:       filters.Limit(),
		Offset:      filters.Offset(),
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("list passenger rides: %w", err))
	}
	return rides, nil
}

func ptr[T any](v T) *T {
	return &v
}
