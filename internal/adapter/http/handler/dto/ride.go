package dto

import (
	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/ride"
)

type Point struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

func (p Point) ToModel() *models.GeoPoint {
	return &models.GeoPoint{Lat: p.Lat, Lng: p.Lng}
}

type Place struct {
	Address string `json:"address" validate:"max=255"`
	Point   Point  `json:"point"`
}

func (p Place) ToModel() models.Location {
	return models.Location{Address: p.Address, Point: p.Point.ToModel()}
}

type CreateRideRequest struct {
	Pickup         Place              `json:"pickup" validate:"required"`
	Destination    Place              `json:"destination" validate:"required"`
	Class          string             `json:"class" validate:"service_class"`
	Price          float64            `json:"price" validate:"gte=0"`
	Options        models.RideOptions `json:"options"`
	City           string             `json:"city" validate:"max=100"`
	TargetDriverID string             `json:"target_driver_id" validate:"omitempty,uuid"`
}

func (r *CreateRideRequest) ToInput(passengerID uuid.UUID) ride.RequestRideInput {
	in := ride.RequestRideInput{
		PassengerID: passengerID,
		Pickup:      r.Pickup.ToModel(),
		Destination: r.Destination.ToModel(),
		Class:       types.ServiceClass(r.Class),
		Price:       r.Price,
		Options:     r.Options,
		City:        r.City,
	}
	if r.TargetDriverID != "" {
		id := uuid.MustParse(r.TargetDriverID)
		in.TargetDriverID = &id
	}
	return in
}

type QuoteRequest struct {
	Pickup      Point  `json:"pickup" validate:"required"`
	Destination Point  `json:"destination" validate:"required"`
	Class       string `json:"class" validate:"service_class"`
}

type CancelRideRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// RateRideRequest takes any JSON number so fractional ratings are rejected
// as invalid ratings rather than as malformed bodies.
type RateRideRequest struct {
	Rating float64 `json:"rating"`
}

type RideStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ARRIVED IN_PROGRESS"`
}

type CompleteRideRequest struct {
	PassengerID string `json:"passenger_id" validate:"required,uuid"`
}
