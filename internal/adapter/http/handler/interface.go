package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/admin"
	"github.com/Temutjin2k/ladies-drive/internal/service/dispatch"
	"github.com/Temutjin2k/ladies-drive/internal/service/driver"
	"github.com/Temutjin2k/ladies-drive/internal/service/ride"
)

type RideService interface {
	RequestRide(ctx context.Context, in ride.RequestRideInput) (*models.RideRequest, error)
	Quote(pickup, destination models.GeoPoint, class types.ServiceClass) (*models.Quote, error)
	Get(ctx context.Context, rideID string) (*models.RideRequest, error)
	ListForPassenger(ctx context.Context, passengerID uuid.UUID, filters models.Filters) ([]models.RideRequest, error)
	Accept(ctx context.Context, rideID string, driverID uuid.UUID) (*models.RideRequest, error)
	Advance(ctx context.Context, rideID string, actorID uuid.UUID, next types.RideStatus) (*models.RideRequest, error)
	Complete(ctx context.Context, rideID string, passengerID, driverID uuid.UUID) (*models.RideRequest, error)
	Cancel(ctx context.Context, rideID string, actorID uuid.UUID, reason string) (*models.RideRequest, error)
	RateRide(ctx context.Context, rideID string, raterID uuid.UUID, value int) (*models.User, error)
}

type DispatchService interface {
	OpenRides(ctx context.Context, driverID uuid.UUID, exclude *dispatch.SkipSet) ([]models.RideRequest, error)
	ActiveRide(ctx context.Context, driverID uuid.UUID) (*models.RideRequest, error)
	AvailableDrivers(ctx context.Context, city string) ([]models.AvailableDriver, error)
}

type DriverService interface {
	Register(ctx context.Context, driverID uuid.UUID, in driver.RegisterInput) (*models.User, error)
	GoOnline(ctx context.Context, driverID uuid.UUID, at *models.GeoPoint) (*models.User, error)
	GoOffline(ctx context.Context, driverID uuid.UUID) (*models.User, error)
	UpdateLocation(ctx context.Context, driverID uuid.UUID, in driver.LocationInput) (*models.DriverLocation, error)
	Profile(ctx context.Context, driverID uuid.UUID) (*models.User, *models.RideRequest, error)
}

type AdminService interface {
	GetOverview(ctx context.Context) (*models.Overview, error)
	GetActiveRides(ctx context.Context, filters models.Filters) ([]models.RideRequest, error)
	ListDrivers(ctx context.Context, filter models.UserFilter, filters models.Filters) ([]models.User, models.Metadata, error)
	ListPassengers(ctx context.Context, city string, filters models.Filters) ([]models.User, models.Metadata, error)
	CreateUser(ctx context.Context, in admin.CreateUserInput) (*models.User, error)
	SetVerification(ctx context.Context, driverID uuid.UUID, status types.Verification) (*models.User, error)
	IssueToken(ctx context.Context, userID uuid.UUID) (*models.IssuedToken, error)
	RecentActivity(limit int) []models.Activity
}
