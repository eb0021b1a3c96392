package models

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
)

type RideOptions struct {
	Quiet      bool `json:"quiet"`
	Luggage    bool `json:"luggage"`
	Assistance bool `json:"assistance"`
	Wait       bool `json:"wait"`
}

// PassengerSnapshot is a copy of the passenger's display fields taken when the ride is requested.
type PassengerSnapshot struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Avatar string    `json:"avatar,omitempty"`
	Rating float64   `json:"rating"`
}

// DriverSnapshot is a copy of the driver's display fields taken at acceptance.
// It is never refreshed from the live profile.
type DriverSnapshot struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Avatar  string    `json:"avatar,omitempty"`
	Vehicle Vehicle   `json:"vehicle"`
	Rating  float64   `json:"rating"`
	Phone   string    `json:"phone,omitempty"`
}

type RideRequest struct {
	ID             string             `json:"id"`
	Passenger      PassengerSnapshot  `json:"passenger"`
	Pickup         Location           `json:"pickup"`
	Destination    Location           `json:"destination"`
	Class          types.ServiceClass `json:"class"`
	Price          float64            `json:"price"`
	Options        RideOptions        `json:"options"`
	Status         types.RideStatus   `json:"status"`
	City           string             `json:"city"`
	TargetDriverID *uuid.UUID         `json:"target_driver_id,omitempty"`
	Driver         *DriverSnapshot    `json:"driver,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`
	PassengerRated     bool   `json:"passenger_rated"`
	DriverRated        bool   `json:"driver_rated"`

	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	// Version grows by one on every committed write of the record.
	Version int64 `json:"version"`
}

// Clone returns a deep copy so callers never share pointers with a store.
func (r RideRequest) Clone() RideRequest {
	c := r
	if r.TargetDriverID != nil {
		id := *r.TargetDriverID
		c.TargetDriverID = &id
	}
	if r.Driver != nil {
		d := *r.Driver
		c.Driver = &d
	}
	c.Pickup = r.Pickup.clone()
	c.Destination = r.Destination.clone()
	c.AcceptedAt = cloneTime(r.AcceptedAt)
	c.ArrivedAt = cloneTime(r.ArrivedAt)
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return c
}

// AssignedTo reports whether driverID is the ride's driver.
func (r *RideRequest) AssignedTo(driverID uuid.UUID) bool {
	return r.Driver != nil && r.Driver.ID == driverID
}

// Targets reports whether the ride may be accepted by driverID given its target restriction.
func (r *RideRequest) Targets(driverID uuid.UUID) bool {
	return r.TargetDriverID == nil || *r.TargetDriverID == driverID
}

// Quote is an informational fare estimate.
type Quote struct {
	Class       types.ServiceClass `json:"class"`
	DistanceKm  float64            `json:"distance_km"`
	DurationMin int                `json:"duration_min"`
	Price       float64            `json:"price"`
}

// RideStatusUpdateMessage is published to the broker on every committed status change.
type RideStatusUpdateMessage struct {
	RideID        string           `json:"ride_id"`
	Status        types.RideStatus `json:"status"`
	City          string           `json:"city"`
	PassengerID   uuid.UUID        `json:"passenger_id"`
	DriverID      *uuid.UUID       `json:"driver_id,omitempty"`
	Price         float64          `json:"price"`
	Timestamp     time.Time        `json:"timestamp"`
	CorrelationID string           `json:"correlation_id,omitempty"`
}

func NewRideStatusUpdate(r *RideRequest, at time.Time, correlationID string) RideStatusUpdateMessage {
	msg := RideStatusUpdateMessage{
		RideID:        r.ID,
		Status:        r.Status,
		City:          r.City,
		PassengerID:   r.Passenger.ID,
		Price:         r.Price,
		Timestamp:     at,
		CorrelationID: correlationID,
	}
	if r.Driver != nil {
		id := r.Driver.ID
		msg.DriverID = &id
	}
	return msg
}

func (l Location) clone() Location {
	if l.Point != nil {
		p := *l.Point
		l.Point = &p
	}
	return l
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// RideFilter narrows ride listings. Zero fields match everything.
type RideFilter struct {
	Statuses      []types.RideStatus
	City          string
	PassengerID   *uuid.UUID
	DriverID      *uuid.UUID
	CreatedBefore *time.Time
	// NewestFirst reverses the default creation order.
	NewestFirst bool
	Limit       int
	Offset      int
}

func (f RideFilter) Match(r *RideRequest) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, r.Status) {
		return false
	}
	if f.City != "" && r.City != f.City {
		return false
	}
	if f.PassengerID != nil && r.Passenger.ID != *f.PassengerID {
		return false
	}
	if f.DriverID != nil && !r.AssignedTo(*f.DriverID) {
		return false
	}
	if f.CreatedBefore != nil && !r.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	return true
}

// RideStats is the aggregate the admin overview is built from.
type RideStats struct {
	ByStatus         map[types.RideStatus]int
	CompletedRevenue float64
}
