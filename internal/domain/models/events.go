package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
)

// RideEvent is an audit record of something that happened to a ride.
type RideEvent struct {
	ID        string          `json:"id"`
	RideID    string          `json:"ride_id"`
	Type      types.RideEvent `json:"event_type"`
	ActorID   *uuid.UUID      `json:"actor_id,omitempty"`
	Data      []byte          `json:"data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
