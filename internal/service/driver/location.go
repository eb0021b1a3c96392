package driver

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

type LocationInput struct {
	Point          models.GeoPoint
	AccuracyMeters float64
	SpeedKmh       float64
	HeadingDegrees float64
}

func (in LocationInput) validate() error {
	switch {
	case !in.Point.Valid():
		return fmt.Errorf("%w: location is out of range", types.ErrInvalidInput)
	case in.AccuracyMeters < 0 || in.SpeedKmh < 0:
		return fmt.Errorf("%w: accuracy and speed must not be negative", types.ErrInvalidInput)
	case in.HeadingDegrees < 0 || in.HeadingDegrees >= 360:
		return fmt.Errorf("%w: heading must be within [0, 360)", types.ErrInvalidInput)
	}
	return nil
}

// UpdateLocation stores the driver's last known position and forwards the
// sample to the location index and stream. The user record is authoritative;
// the index and the stream are best effort and never fail the call.
func (s *Service) UpdateLocation(ctx context.Context, driverID uuid.UUID, in LocationInput) (*models.DriverLocation, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(ctx, driverID.String()), types.ActionUpdateLocation)

	if err := in.validate(); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	var driver *models.User
	err := trm.DoRetryable(ctx, s.trm, s.policy, func(ctx context.Context) error {
		d, err := s.driver(ctx, driverID)
		if err != nil {
			return err
		}
		if d.Availability == types.AvailabilityOffline {
			return fmt.Errorf("%w: go online before sharing the location", types.ErrNotEligible)
		}
		p := in.Point
		d.Location = &p
		if err := s.users.Update(ctx, d); err != nil {
			return fmt.Errorf("update driver location: %w", err)
		}
		driver = d
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	loc := s.sample(driver, in.Point, in)
	s.fanOut(ctx, loc)
	return &loc, nil
}

func (s *Service) sample(driver *models.User, p models.GeoPoint, in LocationInput) models.DriverLocation {
	return models.DriverLocation{
		DriverID:       driver.ID,
		City:           driver.City,
		Point:          p,
		AccuracyMeters: in.AccuracyMeters,
		SpeedKmh:       in.SpeedKmh,
		HeadingDegrees: in.HeadingDegrees,
		Availability:   driver.Availability.String(),
		Rating:         driver.Rating,
		Timestamp:      s.now().UTC(),
	}
}

func (s *Service) fanOut(ctx context.Context, loc models.DriverLocation) {
	if s.index != nil {
		if err := s.index.Index(ctx, loc); err != nil {
			s.l.Warn(ctx, "failed to index driver location", "error", err.Error())
		}
	}
	if s.stream != nil {
		if err := s.stream.PublishLocation(ctx, loc); err != nil {
			s.l.Warn(ctx, "failed to publish driver location", "error", err.Error())
		}
	}
}
