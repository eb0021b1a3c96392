package ride

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/internal/service/rating"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

// RateRide lets one party of a completed ride rate the other, once. The ride
// flag and the counterparty's aggregate are written in the same transaction.
func (s *Service) RateRide(ctx context.Context, rideID string, raterID uuid.UUID, value int) (*models.User, error) {
	ctx = wrap.WithAction(wrap.WithRideID(wrap.WithUserID(ctx, raterID.String()), rideID), types.ActionRateRide)

	if err := rating.Validate(value); err != nil {
		return nil, s.fail(ctx, types.ActionRateRide, err)
	}

	var (
		rated *models.User
		ride  *models.RideRequest
	)
	err := trm.DoRetryable(ctx, s.trm, s.policy, func(ctx context.Context) error {
		var err error
		ride, err = s.repos.ride.Get(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.Status != types.StatusCompleted {
			return fmt.Errorf("%w: only completed rides can be rated", types.ErrInvalidTransition)
		}

		var target uuid.UUID
		switch {
		case ride.Passenger.ID == raterID:
			if ride.PassengerRated {
				return types.ErrAlreadyRated
			}
			ride.PassengerRated = true
			target = ride.Driver.ID
		case ride.AssignedTo(raterID):
			if ride.DriverRated {
				return types.ErrAlreadyRated
			}
			ride.DriverRated = true
			target = ride.Passenger.ID
		default:
			return fmt.Errorf("%w: only the passenger or the driver of the ride can rate it", types.ErrNotEligible)
		}

		if err := s.repos.ride.Update(ctx, ride); err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		rated, err = s.rater.Apply(ctx, target, value)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, types.ActionRateRide, err)
	}

	s.afterCommit(ctx, ride, types.EventRideRated, &raterID, map[string]any{"rated_user": rated.ID, "value": value})
	s.l.Info(ctx, "ride rated", "rated_user", rated.ID.String(), "value", value)

	return rated, nil
}
