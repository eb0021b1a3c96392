package dispatch

import (
	"context"
	"sort"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
)

// WatchRide streams every committed version of one ride, starting with the
// current one, in order. The channel is closed after a terminal status has been
// delivered or when ctx is done.
func (s *Service) WatchRide(ctx context.Context, rideID string) (<-chan models.RideRequest, error) {
	ctx = wrap.WithAction(wrap.WithRideID(ctx, rideID), types.ActionWatchRide)

	feedCtx, cancel := context.WithCancel(ctx)
	feed := s.feed.SubscribeRides(feedCtx)

	current, err := s.rides.Get(ctx, rideID)
	if err != nil {
		cancel()
		return nil, wrap.Error(ctx, err)
	}

	out := make(chan models.RideRequest)
	metrics.LiveViewsGauge.WithLabelValues("ride").Inc()

	go func() {
		defer metrics.LiveViewsGauge.WithLabelValues("ride").Dec()
		defer close(out)
		defer cancel()

		send := func(r models.RideRequest) bool {
			select {
			case out <- r:
				return true
			case <-feedCtx.Done():
				return false
			}
		}

		last := current.Version
		if !send(*current) || current.Status.IsTerminal() {
			return
		}
		for r := range feed {
			if r.ID != rideID || r.Version <= last {
				continue
			}
			last = r.Version
			if !send(r) || r.Status.IsTerminal() {
				return
			}
		}
	}()

	return out, nil
}

// DriversWatch is the passenger's live list of available drivers in a city.
type DriversWatch struct {
	updates *mailbox[[]models.AvailableDriver]
}

// Updates carries the latest complete list and is closed when the watch stops.
func (w *DriversWatch) Updates() <-chan []models.AvailableDriver { return w.updates.ch }

// WatchAvailableDrivers keeps AvailableDrivers(city) live.
func (s *Service) WatchAvailableDrivers(ctx context.Context, city string) (*DriversWatch, error) {
	ctx = wrap.WithAction(ctx, types.ActionWatchDrivers)

	feedCtx, cancel := context.WithCancel(ctx)
	feed := s.feed.SubscribeUsers(feedCtx)

	filter := models.UserFilter{
		Role:         types.RoleDriver,
		City:         city,
		Availability: types.AvailabilityAvailable,
	}
	initial, err := s.users.List(ctx, filter)
	if err != nil {
		cancel()
		return nil, wrap.Error(ctx, err)
	}

	set := newVersioned[models.User]()
	for _, u := range initial {
		if set.observe(u.ID.String(), u.Version) {
			set.update(u.ID.String(), u, true)
		}
	}

	w := &DriversWatch{updates: newMailbox[[]models.AvailableDriver]()}
	snapshot := func() []models.AvailableDriver {
		users := make([]models.User, 0, len(set.items))
		for _, u := range set.items {
			users = append(users, u)
		}
		sort.Slice(users, func(i, j int) bool {
			if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
				return users[i].CreatedAt.Before(users[j].CreatedAt)
			}
			return users[i].ID.String() < users[j].ID.String()
		})
		out := make([]models.AvailableDriver, 0, len(users))
		for i := range users {
			out = append(out, users[i].AsAvailableDriver())
		}
		s.withPositions(feedCtx, out)
		return out
	}
	w.updates.put(snapshot())

	metrics.LiveViewsGauge.WithLabelValues("drivers").Inc()
	go func() {
		defer metrics.LiveViewsGauge.WithLabelValues("drivers").Dec()
		defer close(w.updates.ch)
		defer cancel()

		for u := range feed {
			id := u.ID.String()
			if !set.observe(id, u.Version) {
				continue
			}
			if set.update(id, u, filter.Match(&u)) {
				w.updates.put(snapshot())
			}
		}
	}()

	return w, nil
}
