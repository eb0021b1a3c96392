package dispatch

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
)

// View is a driver's live dispatch view. Updates always carries the latest
// complete snapshot; intermediate snapshots a slow reader missed are dropped.
type View struct {
	updates *mailbox[models.DispatchView]
	refresh chan struct{}
	done    chan struct{}
}

// Updates is closed when the view stops.
func (v *View) Updates() <-chan models.DispatchView { return v.updates.ch }

// Done is closed when the view stops.
func (v *View) Done() <-chan struct{} { return v.done }

// Refresh re-emits the view, for example after the session skipped a ride.
func (v *View) Refresh() {
	select {
	case v.refresh <- struct{}{}:
	default:
	}
}

type driverView struct {
	s       *Service
	driver  *models.User
	exclude *SkipSet
	rides   *versioned[models.RideRequest]
}

// WatchDriver opens the live dispatch view of driverID. exclude may be
// mutated by the caller at any time; call Refresh afterwards.
func (s *Service) WatchDriver(ctx context.Context, driverID uuid.UUID, exclude *SkipSet) (*View, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(ctx, driverID.String()), types.ActionWatchDispatch)

	// subscribe before the initial query so no commit falls in between
	feedCtx, cancel := context.WithCancel(ctx)
	rideCh := s.feed.SubscribeRides(feedCtx)
	userCh := s.feed.SubscribeUsers(feedCtx)

	driver, err := s.driver(ctx, driverID)
	if err != nil {
		cancel()
		return nil, wrap.Error(ctx, err)
	}

	dv := &driverView{s: s, driver: driver, exclude: exclude, rides: newVersioned[models.RideRequest]()}
	if err := dv.load(ctx); err != nil {
		cancel()
		return nil, wrap.Error(ctx, err)
	}

	v := &View{
		updates: newMailbox[models.DispatchView](),
		refresh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	v.updates.put(dv.snapshot())

	metrics.LiveViewsGauge.WithLabelValues("dispatch").Inc()
	go func() {
		defer metrics.LiveViewsGauge.WithLabelValues("dispatch").Dec()
		defer close(v.done)
		defer close(v.updates.ch)
		defer cancel()
		dv.run(feedCtx, v, rideCh, userCh)
	}()

	return v, nil
}

// load fills the set with every ride the view could show: SEARCHING rides in
// the driver's city and the driver's own active rides.
func (dv *driverView) load(ctx context.Context) error {
	open, err := dv.s.rides.List(ctx, models.RideFilter{
		Statuses: []types.RideStatus{types.StatusSearching},
		City:     dv.driver.City,
	})
	if err != nil {
		return fmt.Errorf("list open rides: %w", err)
	}
	active, err := dv.s.rides.List(ctx, models.RideFilter{
		DriverID: &dv.driver.ID,
		Statuses: types.ActiveRideStatuses,
	})
	if err != nil {
		return fmt.Errorf("list active rides: %w", err)
	}

	dv.rides.reset()
	for _, r := range append(open, active...) {
		if dv.rides.observe(r.ID, r.Version) {
			dv.rides.update(r.ID, r, true)
		}
	}
	return nil
}

// relevant is the superset kept in memory; the skip set is applied at snapshot time.
func (dv *driverView) relevant(r *models.RideRequest) bool {
	if r.AssignedTo(dv.driver.ID) && r.Status.IsActive() {
		return true
	}
	return r.Status == types.StatusSearching && r.City == dv.driver.City && r.Targets(dv.driver.ID)
}

func (dv *driverView) snapshot() models.DispatchView {
	view := models.DispatchView{Open: []models.RideRequest{}}
	for _, r := range dv.rides.items {
		if r.AssignedTo(dv.driver.ID) && r.Status.IsActive() {
			if view.Active == nil || r.ID < view.Active.ID {
				active := r.Clone()
				view.Active = &active
			}
			continue
		}
		if Eligible(&r, dv.driver, dv.exclude) {
			view.Open = append(view.Open, r.Clone())
		}
	}
	if view.Active != nil {
		view.Open = []models.RideRequest{}
	}
	sortRides(view.Open)
	return view
}

func (dv *driverView) run(ctx context.Context, v *View, rideCh <-chan models.RideRequest, userCh <-chan models.User) {
	for {
		select {
		case <-ctx.Done():
			return

		case r, ok := <-rideCh:
			if !ok {
				return
			}
			if !dv.rides.observe(r.ID, r.Version) {
				continue
			}
			if dv.rides.update(r.ID, r, dv.relevant(&r)) {
				v.updates.put(dv.snapshot())
			}

		case u, ok := <-userCh:
			if !ok {
				return
			}
			if u.ID != dv.driver.ID || u.Version <= dv.driver.Version {
				continue
			}
			cityChanged := u.City != dv.driver.City
			dv.driver = &u
			if cityChanged {
				if err := dv.load(ctx); err != nil {
					dv.s.l.Error(ctx, "failed to reload dispatch view", err)
					return
				}
				v.updates.put(dv.snapshot())
			}

		case <-v.refresh:
			v.updates.put(dv.snapshot())
		}
	}
}
