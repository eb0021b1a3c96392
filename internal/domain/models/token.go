package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
)

const AccessToken = "access"

type IssuedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Claims struct {
	TokenID   uuid.UUID
	UserID    uuid.UUID
	Role      types.UserRole
	ExpiresAt time.Time
}
