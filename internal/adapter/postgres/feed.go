package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/pkg/broadcast"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

const (
	rideChannel = "ride_changes"
	userChannel = "user_changes"
)

// Feed turns LISTEN/NOTIFY into the ride and user change feeds. Postgres
// delivers notifications on commit and in commit order.
type Feed struct {
	db    *pgxpool.Pool
	rides *broadcast.Hub[models.RideRequest]
	users *broadcast.Hub[models.User]
	l     logger.Logger
}

func NewFeed(db *pgxpool.Pool, l logger.Logger) *Feed {
	return &Feed{
		db:    db,
		rides: broadcast.New[models.RideRequest](),
		users: broadcast.New[models.User](),
		l:     l,
	}
}

func (f *Feed) SubscribeRides(ctx context.Context) <-chan models.RideRequest {
	return f.rides.Subscribe(ctx)
}

func (f *Feed) SubscribeUsers(ctx context.Context) <-chan models.User {
	return f.users.Subscribe(ctx)
}

// Run listens until ctx is done, reconnecting with backoff. Commits that
// happen while the listener is reconnecting are not replayed.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := f.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		f.l.Error(ctx, "change feed listener stopped, reconnecting", err, "backoff", backoff.String())

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}

func (f *Feed) listen(ctx context.Context) error {
	conn, err := f.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	for _, ch := range []string{rideChannel, userChannel} {
		if _, err := conn.Exec(ctx, "LISTEN "+ch); err != nil {
			return fmt.Errorf("listen %s: %w", ch, err)
		}
	}
	f.l.Info(ctx, "change feed listening", "channels", rideChannel+","+userChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if err := f.dispatch(ctx, n.Channel, n.Payload); err != nil {
			f.l.Warn(ctx, "dropping change notification", "channel", n.Channel, "error", err.Error())
		}
	}
}

// dispatch decodes a full document or, for a bare id, re-reads the record.
func (f *Feed) dispatch(ctx context.Context, channel, payload string) error {
	inline := strings.HasPrefix(payload, "{")

	switch channel {
	case rideChannel:
		var ride *models.RideRequest
		var err error
		if inline {
			ride, err = decodeRide([]byte(payload))
		} else {
			ride, err = NewRideRepo(f.db).Get(ctx, payload)
		}
		if err != nil {
			return err
		}
		f.rides.Publish(*ride)

	case userChannel:
		var user *models.User
		var err error
		if inline {
			user, err = decodeUser([]byte(payload))
		} else {
			id, perr := uuid.Parse(payload)
			if perr != nil {
				return perr
			}
			user, err = NewUserRepo(f.db).Get(ctx, id)
		}
		if err != nil {
			return err
		}
		f.users.Publish(*user)

	default:
		return errors.New("unknown channel")
	}
	return nil
}

func (f *Feed) Close() {
	f.rides.Close()
	f.users.Close()
}

