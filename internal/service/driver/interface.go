package driver

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
)

/*=====================User Repository============================*/

type UserRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
}

/*=====================Ride Repository============================*/

type RideRepo interface {
	List(ctx context.Context, filter models.RideFilter) ([]models.RideRequest, error)
}

/*=====================Location Index=============================*/

// LocationIndex keeps the freshest position of every online driver.
type LocationIndex interface {
	Index(ctx context.Context, loc models.DriverLocation) error
	Remove(ctx context.Context, driverID uuid.UUID) error
}

/*=====================Location Stream============================*/

type LocationStream interface {
	PublishLocation(ctx context.Context, loc models.DriverLocation) error
}

/*===================== Address Geo Coder ========================*/

type GeoCoder interface {
	Reverse(ctx context.Context, p models.GeoPoint) (*models.Address, error)
}
