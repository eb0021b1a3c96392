package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

// AuthService resolves bearer tokens to users. Credentials live with the
// external identity provider; only access tokens are handled here.
type AuthService struct {
	userRepo     UserRepo
	tokenService TokenProvider
	log          logger.Logger
}

func NewAuthService(userRepo UserRepo, tokenService TokenProvider, log logger.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		tokenService: tokenService,
		log:          log,
	}
}

// RoleCheck validates token and loads the user it was issued for. A token
// whose role no longer matches the stored user is rejected.
func (s *AuthService) RoleCheck(ctx context.Context, token string) (*models.User, error) {
	claims, err := s.tokenService.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	ctx = wrap.WithUserID(ctx, claims.UserID.String())
	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return nil, wrap.Error(ctx, ErrInvalidToken)
		}
		return nil, wrap.Error(ctx, err)
	}
	if user.Role != claims.Role {
		s.log.Warn(ctx, "token role does not match user", "token_role", claims.Role, "user_role", user.Role)
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	return user, nil
}

// IssueFor mints an access token for an existing user.
func (s *AuthService) IssueFor(ctx context.Context, userID uuid.UUID) (*models.IssuedToken, error) {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return s.tokenService.Issue(ctx, user)
}
