package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

const earthRadiusKm = 6371.0

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies inside WGS84 bounds.
func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180 &&
		!math.IsNaN(p.Lat) && !math.IsNaN(p.Lng)
}

// DistanceKm returns the haversine distance between two points.
func (p GeoPoint) DistanceKm(o GeoPoint) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := o.Lat * math.Pi / 180
	dLat := (o.Lat - p.Lat) * math.Pi / 180
	dLng := (o.Lng - p.Lng) * math.Pi / 180

	a := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Location is a free-text label plus its coordinates.
// Point is nil when the coordinates are unknown.
type Location struct {
	Address string    `json:"address"`
	Point   *GeoPoint `json:"point,omitempty"`
}

func (l Location) HasPoint() bool {
	return l.Point != nil && l.Point.Valid()
}

// DriverLocation is one sample of the driver location stream.
type DriverLocation struct {
	DriverID       uuid.UUID `json:"driver_id"`
	City           string    `json:"city,omitempty"`
	Point          GeoPoint  `json:"point"`
	AccuracyMeters float64   `json:"accuracy_meters,omitempty"`
	SpeedKmh       float64   `json:"speed_kmh,omitempty"`
	HeadingDegrees float64   `json:"heading_degrees,omitempty"`
	Availability   string    `json:"availability,omitempty"`
	Rating         float64   `json:"rating,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Address is a geocoding result.
type Address struct {
	DisplayName string   `json:"display_name"`
	City        string   `json:"city,omitempty"`
	Country     string   `json:"country,omitempty"`
	Point       GeoPoint `json:"point"`
}
