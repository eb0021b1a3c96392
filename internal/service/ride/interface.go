package ride

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
)

/*=================Ride Repository======================*/

type RideRepo interface {
	Create(ctx context.Context, ride *models.RideRequest) error
	// Get locks the ride for the rest of the transaction carried by ctx.
	Get(ctx context.Context, id string) (*models.RideRequest, error)
	// Update fails with trm.ErrConflict when ride.Version is stale.
	Update(ctx context.Context, ride *models.RideRequest) error
	List(ctx context.Context, filter models.RideFilter) ([]models.RideRequest, error)
}

/*=================User Repository======================*/

type UserRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

/*=================Ride Event Repository================*/

type EventRepo interface {
	Record(ctx context.Context, ev models.RideEvent) error
}

/*=================Rating Aggregator====================*/

type Rater interface {
	// Apply joins the transaction carried by ctx.
	Apply(ctx context.Context, userID uuid.UUID, value int) (*models.User, error)
}

/*=================Broker===============================*/

type Publisher interface {
	PublishRideStatus(ctx context.Context, msg models.RideStatusUpdateMessage) error
}
