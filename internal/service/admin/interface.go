package admin

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
)

type RideRepo interface {
	Stats(ctx context.Context) (*models.RideStats, error)
	List(ctx context.Context, filter models.RideFilter) ([]models.RideRequest, error)
}

type UserRepo interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, error)
	Count(ctx context.Context, filter models.UserFilter) (int, error)
}

type TokenIssuer interface {
	IssueFor(ctx context.Context, userID uuid.UUID) (*models.IssuedToken, error)
}

// StatusConsumer delivers ride status changes published by the ride service.
type StatusConsumer interface {
	ConsumeRideStatus(ctx context.Context, handler func(ctx context.Context, msg models.RideStatusUpdateMessage) error) error
}
