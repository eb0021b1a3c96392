package models

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
)

const (
	DefaultRating      = 5.0
	DefaultRatingCount = 0
)

type Vehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color"`
	Plate string `json:"plate"`
	Year  int    `json:"year,omitempty"`
}

// User is the projection of a passenger, driver or admin that the ride core needs.
// Rating, RatingCount and CompletedTrips are written only by the ride lifecycle.
type User struct {
	ID             uuid.UUID      `json:"id"`
	Role           types.UserRole `json:"role"`
	Name           string         `json:"name"`
	Avatar         string         `json:"avatar,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	City           string         `json:"city,omitempty"`
	Rating         float64        `json:"rating"`
	RatingCount    int            `json:"rating_count"`
	CompletedTrips int            `json:"completed_trips"`

	// driver only
	Availability types.Availability `json:"availability,omitempty"`
	Location     *GeoPoint          `json:"location,omitempty"`
	Vehicle      *Vehicle           `json:"vehicle,omitempty"`
	Verification types.Verification `json:"verification,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// NewUser returns a user with the default aggregates.
func NewUser(id uuid.UUID, role types.UserRole, name string) *User {
	u := &User{
		ID:          id,
		Role:        role,
		Name:        name,
		Rating:      DefaultRating,
		RatingCount: DefaultRatingCount,
	}
	if role == types.RoleDriver {
		u.Availability = types.AvailabilityOffline
		u.Verification = types.VerificationUnverified
	}
	return u
}

func (u User) Clone() User {
	c := u
	if u.Location != nil {
		p := *u.Location
		c.Location = &p
	}
	if u.Vehicle != nil {
		v := *u.Vehicle
		c.Vehicle = &v
	}
	return c
}

func (u *User) IsDriver() bool {
	return u.Role == types.RoleDriver
}

func (u *User) IsAnonymous() bool {
	return u.ID == uuid.Nil
}

func (u *User) PassengerSnapshot() PassengerSnapshot {
	return PassengerSnapshot{
		ID:     u.ID,
		Name:   u.Name,
		Avatar: u.Avatar,
		Rating: u.Rating,
	}
}

// DriverSnapshot freezes the driver's display fields at this instant.
func (u *User) DriverSnapshot() *DriverSnapshot {
	s := &DriverSnapshot{
		ID:     u.ID,
		Name:   u.Name,
		Avatar: u.Avatar,
		Rating: u.Rating,
		Phone:  u.Phone,
	}
	if u.Vehicle != nil {
		s.Vehicle = *u.Vehicle
	}
	return s
}

// UserFilter narrows user listings. Zero fields match everything.
type UserFilter struct {
	Role         types.UserRole
	City         string
	Availability types.Availability
	Verification types.Verification
	Limit        int
	Offset       int
}

func (f UserFilter) Match(u *User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.City != "" && u.City != f.City {
		return false
	}
	if f.Availability != "" && u.Availability != f.Availability {
		return false
	}
	if f.Verification != "" && u.Verification != f.Verification {
		return false
	}
	return true
}

type userCtxKey struct{}

var anonymous = &User{}

func AnonymousUser() *User {
	return anonymous
}

func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the authenticated user or the anonymous user.
func UserFromContext(ctx context.Context) *User {
	if u, ok := ctx.Value(userCtxKey{}).(*User); ok && u != nil {
		return u
	}
	return anonymous
}

// AvailableDriver is what a passenger sees when choosing a driver.
type AvailableDriver struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Avatar         string    `json:"avatar,omitempty"`
	Rating         float64   `json:"rating"`
	RatingCount    int       `json:"rating_count"`
	CompletedTrips int       `json:"completed_trips"`
	City           string    `json:"city"`
	Vehicle        *Vehicle  `json:"vehicle,omitempty"`
	Location       *GeoPoint `json:"location,omitempty"`
}

func (u *User) AsAvailableDriver() AvailableDriver {
	c := u.Clone()
	return AvailableDriver{
		ID:             c.ID,
		Name:           c.Name,
		Avatar:         c.Avatar,
		Rating:         c.Rating,
		RatingCount:    c.RatingCount,
		CompletedTrips: c.CompletedTrips,
		City:           c.City,
		Vehicle:        c.Vehicle,
		Location:       c.Location,
	}
}
