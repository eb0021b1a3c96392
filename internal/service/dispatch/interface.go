package dispatch

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
)

type RideRepo interface {
	Get(ctx context.Context, id string) (*models.RideRequest, error)
	List(ctx context.Context, filter models.RideFilter) ([]models.RideRequest, error)
}

type UserRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
}

// ChangeFeed streams committed writes in commit order. Each subscription is
// lossless and ends when ctx is done.
type ChangeFeed interface {
	SubscribeRides(ctx context.Context) <-chan models.RideRequest
	SubscribeUsers(ctx context.Context) <-chan models.User
}

// LocationIndex returns the freshest known positions of drivers. Ids without a
// position are left out of the result.
type LocationIndex interface {
	Positions(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.GeoPoint, error)
}
