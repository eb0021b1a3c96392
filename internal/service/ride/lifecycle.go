package ride

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

const UnknownCity = "Unknown"

type RequestRideInput struct {
	PassengerID    uuid.UUID
	Pickup         models.Location
	Destination    models.Location
	Class          types.ServiceClass
	Price          float64
	Options        models.RideOptions
	City           string
	TargetDriverID *uuid.UUID
}

func (in *RequestRideInput) validate() error {
	switch {
	case in.PassengerID == uuid.Nil:
		return fmt.Errorf("%w: passenger is required", types.ErrInvalidInput)
	case !in.Pickup.HasPoint():
		return fmt.Errorf("%w: pickup coordinates are missing", types.ErrInvalidInput)
	case !in.Destination.HasPoint():
		return fmt.Errorf("%w: destination coordinates are missing", types.ErrInvalidInput)
	case in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0):
		return fmt.Errorf("%w: price must be a non-negative number", types.ErrInvalidInput)
	}
	if in.Class == "" {
		in.Class = types.ClassRegular
	}
	if !in.Class.IsValid() {
		return fmt.Errorf("%w: unknown service class %q", types.ErrInvalidInput, in.Class)
	}
	return nil
}

// RequestRide creates a SEARCHING ride with a snapshot of the passenger.
// The city defaults to the passenger's city, then to "Unknown".
func (s *Service) RequestRide(ctx context.Context, in RequestRideInput) (*models.RideRequest, error) {
	ctx = wrap.WithAction(wrap.WithPassengerID(ctx, in.PassengerID.String()), types.ActionRequestRide)

	if err := in.validate(); err != nil {
		return nil, s.fail(ctx, types.ActionRequestRide, err)
	}

	var created *models.RideRequest
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		passenger, err := s.repos.user.Get(ctx, in.PassengerID)
		if err != nil {
			if errors.Is(err, types.ErrUserNotFound) {
				return fmt.Errorf("%w: unknown passenger", types.ErrInvalidInput)
			}
			return fmt.Errorf("get passenger: %w", err)
		}
		if passenger.Role != types.RolePassenger {
			return fmt.Errorf("%w: only passengers can request rides", types.ErrInvalidInput)
		}

		if in.TargetDriverID != nil {
			driver, err := s.repos.user.Get(ctx, *in.TargetDriverID)
			if err != nil {
				if errors.Is(err, types.ErrUserNotFound) {
					return fmt.Errorf("%w: unknown target driver", types.ErrInvalidInput)
				}
				return fmt.Errorf("get target driver: %w", err)
			}
			if !driver.IsDriver() {
				return fmt.Errorf("%w: target is not a driver", types.ErrInvalidInput)
			}
		}

		city := strings.TrimSpace(in.City)
		if city == "" {
			city = passenger.City
		}
		if city == "" {
			city = UnknownCity
		}

		ride := &models.RideRequest{
			ID:             newRideID(),
			Passenger:      passenger.PassengerSnapshot(),
			Pickup:         in.Pickup,
			Destination:    in.Destination,
			Class:          in.Class,
			Price:          in.Price,
			Options:        in.Options,
			Status:         types.StatusSearching,
			City:           city,
			TargetDriverID: in.TargetDriverID,
			CreatedAt:      s.now(),
		}
		if err := s.repos.ride.Create(ctx, ride); err != nil {
			return fmt.Errorf("create ride: %w", err)
		}
		created = ride
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, types.ActionRequestRide, err)
	}

	ctx = wrap.WithRideID(ctx, created.ID)
	s.afterCommit(ctx, created, types.EventRideRequested, &in.PassengerID, nil)
	s.l.Info(ctx, "ride requested", "city", created.City, "class", created.Class, "price", created.Price)

	return created, nil
}

// Accept assigns the driver to a SEARCHING ride. The first commit wins; every
// later call observes the new status and fails with ErrAlreadyTaken. Never retried.
func (s *Service) Accept(ctx context.Context, rideID string, driverID uuid.UUID) (*models.RideRequest, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(wrap.WithRideID(ctx, rideID), driverID.String()), types.ActionAcceptRide)

	var accepted *models.RideRequest
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		ride, err := s.repos.ride.Get(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.Status != types.StatusSearching {
			return types.ErrAlreadyTaken
		}
		if !ride.Targets(driverID) {
			return fmt.Errorf("%w: ride is reserved for another driver", types.ErrNotEligible)
		}

		driver, err := s.repos.user.Get(ctx, driverID)
		if err != nil {
			return err
		}
		if !driver.IsDriver() {
			return fmt.Errorf("%w: not a driver", types.ErrNotEligible)
		}
		if driver.City != ride.City {
			return fmt.Errorf("%w: driver works in another city", types.ErrNotEligible)
		}

		active, err := s.repos.ride.List(ctx, models.RideFilter{
			DriverID: &driverID,
			Statuses: types.ActiveRideStatuses,
			Limit:    1,
		})
		if err != nil {
			return fmt.Errorf("check active rides: %w", err)
		}
		if len(active) > 0 {
			return types.ErrDriverBusy
		}

		ride.Status = types.StatusAccepted
		ride.Driver = driver.DriverSnapshot()
		ride.AcceptedAt = ptr(s.now())
		if err := s.repos.ride.Update(ctx, ride); err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		driver.Availability = types.AvailabilityBusy
		if err := s.repos.user.Update(ctx, driver); err != nil {
			return fmt.Errorf("mark driver busy: %w", err)
		}

		accepted = ride
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, types.ActionAcceptRide, err)
	}

	s.afterCommit(ctx, accepted, types.EventDriverMatched, &driverID, nil)
	s.l.Info(ctx, "ride accepted")

	return accepted, nil
}

// Advance moves the ride to next along the transition table. Arrival and trip
// start are driver actions; COMPLETED and CANCELLED are routed to Complete and
// Cancel, and ACCEPTED can only be reached through Accept.
func (s *Service) Advance(ctx context.Context, rideID string, actorID uuid.UUID, next types.RideStatus) (*models.RideRequest, error) {
	ctx = wrap.WithAction(wrap.WithRideID(ctx, rideID), types.ActionAdvanceRide)

	switch {
	case !next.IsValid():
		return nil, s.fail(ctx, types.ActionAdvanceRide, fmt.Errorf("%w: unknown status %q", types.ErrInvalidInput, next))
	case next == types.StatusSearching || next == types.StatusAccepted:
		return nil, s.fail(ctx, types.ActionAdvanceRide, fmt.Errorf("%w: use accept to assign a driver", types.ErrInvalidTransition))
	case next == types.StatusCancelled:
		return s.Cancel(ctx, rideID, actorID, "")
	case next == types.StatusCompleted:
		ride, err := s.repos.ride.Get(ctx, rideID)
		if err != nil {
			return nil, s.fail(ctx, types.ActionAdvanceRide, err)
		}
		if !ride.Status.CanTransitionTo(next) {
			return nil, s.fail(ctx, types.ActionAdvanceRide, transitionError(ride.Status, next))
		}
		if !ride.AssignedTo(actorID) {
			return nil, s.fail(ctx, types.ActionAdvanceRide, fmt.Errorf("%w: only the assigned driver can complete the trip", types.ErrNotEligible))
		}
		return s.Complete(ctx, rideID, ride.Passenger.ID, actorID)
	}

	var advanced *models.RideRequest
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		ride, err := s.repos.ride.Get(ctx, rideID)
		if err != nil {
			return err
		}
		if !ride.Status.CanTransitionTo(next) {
			return transitionError(ride.Status, next)
		}
		if !ride.AssignedTo(actorID) {
			return fmt.Errorf("%w: only the assigned driver can advance the trip", types.ErrNotEligible)
		}

		now := s.now()
		ride.Status = next
		switch next {
		case types.StatusArrived:
			ride.ArrivedAt = &now
		case types.StatusInProgress:
			ride.StartedAt = &now
		}
		if err := s.repos.ride.Update(ctx, ride); err != nil {
			return fmt.Errorf("update ride: %w", err)
		}
		advanced = ride
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, types.ActionAdvanceRide, err)
	}

	s.afterCommit(ctx, advanced, next.Event(), &actorID, nil)
	s.l.Info(ctx, "ride advanced", "status", next)

	return advanced, nil
}

// Complete finishes an IN_PROGRESS ride and credits one completed trip to both
// parties. The three writes commit together; the whole transaction is retried
// only on a write conflict.
func (s *Service) Complete(ctx context.Context, rideID string, passengerID, driverID uuid.UUID) (*models.RideRequest, error) {
	ctx = wrap.WithAction(wrap.WithRideID(ctx, rideID), types.ActionCompleteRide)

	var completed *models.RideRequest
	err := trm.DoRetryable(ctx, s.trm, s.policy, func(ctx context.Context) error {
		ride, err := s.repos.ride.Get(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.Status != types.StatusInProgress {
			return transitionError(ride.Status, types.StatusCompleted)
		}
		if ride.Passenger.ID != passengerID || !ride.AssignedTo(driverID) {
			return fmt.Errorf("%w: passenger or driver does not match the ride", types.ErrInvalidInput)
		}

		ride.Status = types.StatusCompleted
		ride.CompletedAt = ptr(s.now())
		if err := s.repos.ride.Update(ctx, ride); err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		passenger, err := s.repos.user.Get(ctx, passengerID)
		if err != nil {
			return fmt.Errorf("get passenger: %w", err)
		}
		passenger.CompletedTrips++
		if err := s.repos.user.Update(ctx, passenger); err != nil {
			return fmt.Errorf("update passenger: %w", err)
		}

		driver, err := s.repos.user.Get(ctx, driverID)
		if err != nil {
			return fmt.Errorf("get driver: %w", err)
		}
		driver.CompletedTrips++
		if driver.Availability == types.AvailabilityBusy {
			driver.Availability = types.AvailabilityAvailable
		}
		if err := s.repos.user.Update(ctx, driver); err != nil {
			return fmt.Errorf("update driver: %w", err)
		}

		completed = ride
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, types.ActionCompleteRide, err)
	}

	s.afterCommit(ctx, completed, types.EventRideCompleted, &driverID, nil)
	s.l.Info(ctx, "ride completed", "price", completed.Price)

	return completed, nil
}

// Cancel cancels a SEARCHING or ACCEPTED ride on behalf of its passenger or
// assigned driver, and frees the driver.
func (s *Service) Cancel(ctx context.Context, rideID string, actorID uuid.UUID, reason string) (*models.RideRequest, error) {
	return s.cancel(ctx, rideID, &actorID, reason)
}

// cancel with a nil actor is a system cancellation.
func (s *Service) cancel(ctx context.Context, rideID string, actorID *uuid.UUID, reason string) (*models.RideRequest, error) {
	ctx = wrap.WithAction(wrap.WithRideID(ctx, rideID), types.ActionCancelRide)

	var cancelled *models.RideRequest
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		ride, err := s.repos.ride.Get(ctx, rideID)
		if err != nil {
			return err
		}
		if !ride.Status.CanTransitionTo(types.StatusCancelled) {
			return transitionError(ride.Status, types.StatusCancelled)
		}
		if actorID != nil && ride.Passenger.ID != *actorID && !ride.AssignedTo(*actorID) {
			return fmt.Errorf("%w: only the passenger or the assigned driver can cancel", types.ErrNotEligible)
		}

		ride.Status = types.StatusCancelled
		ride.CancelledAt = ptr(s.now())
		ride.CancellationReason = strings.TrimSpace(reason)
		if err := s.repos.ride.Update(ctx, ride); err != nil {
			return fmt.Errorf("update ride: %w", err)
		}

		if ride.Driver != nil {
			driver, err := s.repos.user.Get(ctx, ride.Driver.ID)
			if err != nil {
				return fmt.Errorf("get driver: %w", err)
			}
			if driver.Availability == types.AvailabilityBusy {
				driver.Availability = types.AvailabilityAvailable
				if err := s.repos.user.Update(ctx, driver); err != nil {
					return fmt.Errorf("free driver: %w", err)
				}
			}
		}

		cancelled = ride
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, types.ActionCancelRide, err)
	}

	s.afterCommit(ctx, cancelled, types.EventRideCancelled, actorID, map[string]string{"reason": cancelled.CancellationReason})
	s.l.Info(ctx, "ride cancelled", "reason", cancelled.CancellationReason)

	return cancelled, nil
}

func transitionError(from, to types.RideStatus) error {
	return fmt.Errorf("%w: %s -> %s", types.ErrInvalidTransition, from, to)
}
