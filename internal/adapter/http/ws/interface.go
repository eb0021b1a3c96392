package wshandler

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/dispatch"
)

type Dispatcher interface {
	WatchDriver(ctx context.Context, driverID uuid.UUID, exclude *dispatch.SkipSet) (*dispatch.View, error)
	WatchRide(ctx context.Context, rideID string) (<-chan models.RideRequest, error)
	WatchAvailableDrivers(ctx context.Context, city string) (*dispatch.DriversWatch, error)
}

type RideLifecycle interface {
	Get(ctx context.Context, rideID string) (*models.RideRequest, error)
	Accept(ctx context.Context, rideID string, driverID uuid.UUID) (*models.RideRequest, error)
	Advance(ctx context.Context, rideID string, actorID uuid.UUID, next types.RideStatus) (*models.RideRequest, error)
	Complete(ctx context.Context, rideID string, passengerID, driverID uuid.UUID) (*models.RideRequest, error)
}
