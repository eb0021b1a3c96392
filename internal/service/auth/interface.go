package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
)

type UserRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type TokenProvider interface {
	Issue(ctx context.Context, user *models.User) (*models.IssuedToken, error)
	Validate(ctx context.Context, token string) (*models.Claims, error)
}
