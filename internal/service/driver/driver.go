package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

/*
Service provides driver self-management: vehicle registration,
availability and the location stream. Ride state is never written here.
*/
type Service struct {
	users  UserRepo
	rides  RideRepo
	index  LocationIndex
	stream LocationStream
	geo    GeoCoder
	trm    trm.TxManager
	policy trm.RetryPolicy
	now    func() time.Time
	l      logger.Logger
}

// New returns the driver service. index, stream and geo may be nil.
func New(users UserRepo, rides RideRepo, index LocationIndex, stream LocationStream, geo GeoCoder, tm trm.TxManager, l logger.Logger) *Service {
	return &Service{
		users:  users,
		rides:  rides,
		index:  index,
		stream: stream,
		geo:    geo,
		trm:    tm,
		policy: trm.DefaultRetryPolicy,
		now:    time.Now,
		l:      l,
	}
}

type RegisterInput struct {
	Vehicle  models.Vehicle
	City     string
	Phone    string
	Avatar   string
	Location *models.GeoPoint
}

func (in *RegisterInput) validate() error {
	in.Vehicle.Make = strings.TrimSpace(in.Vehicle.Make)
	in.Vehicle.Model = strings.TrimSpace(in.Vehicle.Model)
	in.Vehicle.Plate = strings.ToUpper(strings.TrimSpace(in.Vehicle.Plate))
	in.City = strings.TrimSpace(in.City)

	switch {
	case in.Vehicle.Make == "" || in.Vehicle.Model == "":
		return fmt.Errorf("%w: vehicle make and model are required", types.ErrInvalidInput)
	case in.Vehicle.Plate == "":
		return fmt.Errorf("%w: vehicle plate is required", types.ErrInvalidInput)
	case in.Vehicle.Year != 0 && (in.Vehicle.Year < 1980 || in.Vehicle.Year > time.Now().Year()+1):
		return fmt.Errorf("%w: vehicle year %d is out of range", types.ErrInvalidInput, in.Vehicle.Year)
	case in.Location != nil && !in.Location.Valid():
		return fmt.Errorf("%w: location is out of range", types.ErrInvalidInput)
	case in.City == "" && in.Location == nil:
		return fmt.Errorf("%w: city or location is required", types.ErrInvalidInput)
	}
	return nil
}

// Register records the driver's vehicle and operating city and submits the
// documents for verification. A missing city is resolved from the location.
func (s *Service) Register(ctx context.Context, driverID uuid.UUID, in RegisterInput) (*models.User, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(ctx, driverID.String()), types.ActionRegisterDriver)

	if err := in.validate(); err != nil {
		return nil, wrap.Error(ctx, err)
	}
	if in.City == "" {
		in.City = s.cityOf(ctx, *in.Location)
		if in.City == "" {
			return nil, wrap.Error(ctx, fmt.Errorf("%w: could not resolve the city from the location", types.ErrInvalidInput))
		}
	}

	var registered *models.User
	err := trm.DoRetryable(ctx, s.trm, s.policy, func(ctx context.Context) error {
		driver, err := s.driver(ctx, driverID)
		if err != nil {
			return err
		}
		if driver.Vehicle != nil && driver.Verification != types.VerificationUnverified {
			return types.ErrDriverRegistered
		}

		vehicle := in.Vehicle
		driver.Vehicle = &vehicle
		driver.City = in.City
		driver.Verification = types.VerificationPending
		if in.Phone != "" {
			driver.Phone = in.Phone
		}
		if in.Avatar != "" {
			driver.Avatar = in.Avatar
		}
		if in.Location != nil {
			p := *in.Location
			driver.Location = &p
		}
		if err := s.users.Update(ctx, driver); err != nil {
			return fmt.Errorf("update driver: %w", err)
		}
		registered = driver
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	s.l.Info(ctx, "driver registered", "city", registered.City, "plate", registered.Vehicle.Plate)
	return registered, nil
}

// GoOnline makes the driver AVAILABLE. A driver inside a trip stays BUSY.
func (s *Service) GoOnline(ctx context.Context, driverID uuid.UUID, at *models.GeoPoint) (*models.User, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(ctx, driverID.String()), types.ActionDriverOnline)

	if at != nil && !at.Valid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: location is out of range", types.ErrInvalidInput))
	}

	var online *models.User
	err := trm.DoRetryable(ctx, s.trm, s.policy, func(ctx context.Context) error {
		driver, err := s.driver(ctx, driverID)
		if err != nil {
			return err
		}
		switch {
		case driver.Vehicle == nil:
			return types.ErrDriverNotRegistered
		case driver.Verification == types.VerificationRejected:
			return types.ErrDriverRejected
		}

		busy, err := s.hasActiveRide(ctx, driverID)
		if err != nil {
			return err
		}
		if busy {
			driver.Availability = types.AvailabilityBusy
		} else {
			driver.Availability = types.AvailabilityAvailable
		}
		if at != nil {
			p := *at
			driver.Location = &p
		}
		if err := s.users.Update(ctx, driver); err != nil {
			return fmt.Errorf("update driver: %w", err)
		}
		online = driver
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	if online.Location != nil {
		s.fanOut(ctx, s.sample(online, *online.Location, LocationInput{}))
	}
	s.l.Info(ctx, "driver is online", "availability", online.Availability)
	return online, nil
}

// GoOffline stops new offers for the driver. It is refused while a ride is
// assigned to the driver.
func (s *Service) GoOffline(ctx context.Context, driverID uuid.UUID) (*models.User, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(ctx, driverID.String()), types.ActionDriverOffline)

	var offline *models.User
	err := trm.DoRetryable(ctx, s.trm, s.policy, func(ctx context.Context) error {
		driver, err := s.driver(ctx, driverID)
		if err != nil {
			return err
		}
		busy, err := s.hasActiveRide(ctx, driverID)
		if err != nil {
			return err
		}
		if busy {
			return types.ErrDriverBusy
		}

		driver.Availability = types.AvailabilityOffline
		if err := s.users.Update(ctx, driver); err != nil {
			return fmt.Errorf("update driver: %w", err)
		}
		offline = driver
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, driverID); err != nil {
			s.l.Warn(ctx, "failed to drop driver from location index", "error", err.Error())
		}
	}
	s.l.Info(ctx, "driver is offline")
	return offline, nil
}

// Profile returns the driver together with the ride currently assigned to them.
func (s *Service) Profile(ctx context.Context, driverID uuid.UUID) (*models.User, *models.RideRequest, error) {
	ctx = wrap.WithDriverID(ctx, driverID.String())

	driver, err := s.driver(ctx, driverID)
	if err != nil {
		return nil, nil, wrap.Error(ctx, err)
	}
	active, err := s.rides.List(ctx, models.RideFilter{
		DriverID: &driverID,
		Statuses: types.ActiveRideStatuses,
		Limit:    1,
	})
	if err != nil {
		return nil, nil, wrap.Error(ctx, fmt.Errorf("list active rides: %w", err))
	}
	if len(active) == 0 {
		return driver, nil, nil
	}
	return driver, &active[0], nil
}

func (s *Service) driver(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsDriver() {
		return nil, fmt.Errorf("%w: not a driver", types.ErrForbidden)
	}
	return u, nil
}

func (s *Service) hasActiveRide(ctx context.Context, driverID uuid.UUID) (bool, error) {
	active, err := s.rides.List(ctx, models.RideFilter{
		DriverID: &driverID,
		Statuses: types.ActiveRideStatuses,
		Limit:    1,
	})
	if err != nil {
		return false, fmt.Errorf("list active rides: %w", err)
	}
	return len(active) > 0, nil
}

// cityOf asks the geocoder; failures leave the city empty.
func (s *Service) cityOf(ctx context.Context, p models.GeoPoint) string {
	if s.geo == nil {
		return ""
	}
	addr, err := s.geo.Reverse(ctx, p)
	if err != nil {
		s.l.Warn(ctx, "reverse geocoding failed", "error", err.Error())
		return ""
	}
	return addr.City
}

func (s *Service) fail(ctx context.Context, err error) error {
	if !types.IsDomain(err) {
		err = fmt.Errorf("%w: %w", types.ErrTransactionFailed, err)
	}
	if errors.Is(err, types.ErrTransactionFailed) {
		s.l.Error(ctx, "driver operation failed", err)
	}
	return wrap.Error(ctx, err)
}
