package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

// Service computes what each driver may see and keeps those views live. It
// never writes: races between drivers are settled by the ride service's accept.
type Service struct {
	rides     RideRepo
	users     UserRepo
	feed      ChangeFeed
	locations LocationIndex
	l         logger.Logger
}

// New returns the dispatch coordinator. locations may be nil.
func New(rides RideRepo, users UserRepo, feed ChangeFeed, locations LocationIndex, l logger.Logger) *Service {
	return &Service{
		rides:     rides,
		users:     users,
		feed:      feed,
		locations: locations,
		l:         l,
	}
}

func (s *Service) driver(ctx context.Context, driverID uuid.UUID) (*models.User, error) {
	driver, err := s.users.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !driver.IsDriver() {
		return nil, fmt.Errorf("%w: not a driver", types.ErrNotEligible)
	}
	return driver, nil
}

// OpenRides is the one-shot form of the dispatch query.
func (s *Service) OpenRides(ctx context.Context, driverID uuid.UUID, exclude *SkipSet) ([]models.RideRequest, error) {
	driver, err := s.driver(ctx, driverID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	candidates, err := s.rides.List(ctx, models.RideFilter{
		Statuses: []types.RideStatus{types.StatusSearching},
		City:     driver.City,
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("list open rides: %w", err))
	}

	open := make([]models.RideRequest, 0, len(candidates))
	for i := range candidates {
		if Eligible(&candidates[i], driver, exclude) {
			open = append(open, candidates[i])
		}
	}
	return open, nil
}

// ActiveRide returns the non-terminal ride the driver is assigned to, or nil.
func (s *Service) ActiveRide(ctx context.Context, driverID uuid.UUID) (*models.RideRequest, error) {
	active, err := s.rides.List(ctx, models.RideFilter{
		DriverID: &driverID,
		Statuses: types.ActiveRideStatuses,
		Limit:    1,
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("list active rides: %w", err))
	}
	if len(active) == 0 {
		return nil, nil
	}
	return &active[0], nil
}

// Snapshot is the one-shot dispatch view. A driver inside a trip gets that
// trip and no open candidates.
func (s *Service) Snapshot(ctx context.Context, driverID uuid.UUID, exclude *SkipSet) (*models.DispatchView, error) {
	active, err := s.ActiveRide(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return &models.DispatchView{Active: active, Open: []models.RideRequest{}}, nil
	}

	open, err := s.OpenRides(ctx, driverID, exclude)
	if err != nil {
		return nil, err
	}
	return &models.DispatchView{Open: open}, nil
}

// AvailableDrivers lists every AVAILABLE driver in city, unranked, with the
// freshest known position when a location index is configured.
func (s *Service) AvailableDrivers(ctx context.Context, city string) ([]models.AvailableDriver, error) {
	ctx = wrap.WithAction(ctx, types.ActionWatchDrivers)

	drivers, err := s.users.List(ctx, models.UserFilter{
		Role:         types.RoleDriver,
		City:         city,
		Availability: types.AvailabilityAvailable,
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("list available drivers: %w", err))
	}

	out := make([]models.AvailableDriver, 0, len(drivers))
	for i := range drivers {
		out = append(out, drivers[i].AsAvailableDriver())
	}
	s.withPositions(ctx, out)
	return out, nil
}

// withPositions overlays index positions; failures only cost freshness.
func (s *Service) withPositions(ctx context.Context, drivers []models.AvailableDriver) {
	if s.locations == nil || len(drivers) == 0 {
		return
	}

	ids := make([]uuid.UUID, 0, len(drivers))
	for _, d := range drivers {
		ids = append(ids, d.ID)
	}
	positions, err := s.locations.Positions(ctx, ids)
	if err != nil {
		s.l.Warn(ctx, "location index unavailable", "err", err.Error())
		return
	}
	for i := range drivers {
		if p, ok := positions[drivers[i].ID]; ok {
			drivers[i].Location = &p
		}
	}
}

func sortRides(rides []models.RideRequest) {
	sort.Slice(rides, func(i, j int) bool { return rides[i].ID < rides[j].ID })
}
