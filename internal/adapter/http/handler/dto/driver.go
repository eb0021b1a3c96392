package dto

import (
	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/service/driver"
)

type VehicleRequest struct {
	Make  string `json:"make" validate:"required,max=50"`
	Model string `json:"model" validate:"required,max=50"`
	Color string `json:"color" validate:"required,max=30"`
	Plate string `json:"plate" validate:"required,max=12"`
	Year  int    `json:"year" validate:"omitempty,gte=1980"`
}

type RegisterDriverRequest struct {
	Vehicle  VehicleRequest `json:"vehicle" validate:"required"`
	City     string         `json:"city" validate:"max=100"`
	Phone    string         `json:"phone" validate:"omitempty,e164"`
	Avatar   string         `json:"avatar" validate:"omitempty,url"`
	Location *Point         `json:"location"`
}

func (r *RegisterDriverRequest) ToInput() driver.RegisterInput {
	in := driver.RegisterInput{
		Vehicle: models.Vehicle{
			Make:  r.Vehicle.Make,
			Model: r.Vehicle.Model,
			Color: r.Vehicle.Color,
			Plate: r.Vehicle.Plate,
			Year:  r.Vehicle.Year,
		},
		City:   r.City,
		Phone:  r.Phone,
		Avatar: r.Avatar,
	}
	if r.Location != nil {
		in.Location = r.Location.ToModel()
	}
	return in
}

type GoOnlineRequest struct {
	Location *Point `json:"location"`
}

type LocationUpdateRequest struct {
	Lat            float64 `json:"lat" validate:"latitude"`
	Lng            float64 `json:"lng" validate:"longitude"`
	AccuracyMeters float64 `json:"accuracy_meters" validate:"gte=0"`
	SpeedKmh       float64 `json:"speed_kmh" validate:"gte=0"`
	HeadingDegrees float64 `json:"heading_degrees" validate:"gte=0,lt=360"`
}

func (r *LocationUpdateRequest) ToInput() driver.LocationInput {
	return driver.LocationInput{
		Point:          models.GeoPoint{Lat: r.Lat, Lng: r.Lng},
		AccuracyMeters: r.AccuracyMeters,
		SpeedKmh:       r.SpeedKmh,
		HeadingDegrees: r.HeadingDegrees,
	}
}
