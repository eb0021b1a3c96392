package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

type TokenService struct {
	AccessTTL time.Duration
	secret    string
	now       func() time.Time
	log       logger.Logger
}

func NewTokenService(secret string, accessTTL time.Duration, log logger.Logger) *TokenService {
	return &TokenService{
		AccessTTL: accessTTL,
		secret:    secret,
		now:       time.Now,
		log:       log,
	}
}

// Issue signs an HS256 access token for user.
func (s *TokenService) Issue(ctx context.Context, user *models.User) (*models.IssuedToken, error) {
	ctx = wrap.WithAction(ctx, types.ActionIssueToken)
	if user == nil || user.IsAnonymous() {
		return nil, wrap.Error(ctx, errors.New("cannot issue a token for an anonymous user"))
	}

	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.AccessTTL)

	token, err := s.signClaims(NewAccessClaim(user, issuedAt, s.AccessTTL, uuid.New()))
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to sign access token: %w", err))
	}

	return &models.IssuedToken{
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// Validate validates the given JWT token string, returning its claims if valid.
func (s *TokenService) Validate(ctx context.Context, token string) (*models.Claims, error) {
	ctx = wrap.WithAction(ctx, "validate_token")

	parsedToken, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return []byte(s.secret), nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, wrap.Error(ctx, ErrExpToken)
		}
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}
	if !parsedToken.Valid {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	mc, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	if typ, _ := mc["typ"].(string); typ != models.AccessToken {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	userID, err := uuidClaim(mc, "user_id")
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	tokenID, err := uuidClaim(mc, "jti")
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	role := types.UserRole(fmt.Sprint(mc["role"]))
	if !role.IsValid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role))
	}

	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, wrap.Error(ctx, ErrInvalidToken)
	}

	return &models.Claims{
		TokenID:   tokenID,
		UserID:    userID,
		Role:      role,
		ExpiresAt: exp.Time,
	}, nil
}

func uuidClaim(mc jwt.MapClaims, key string) (uuid.UUID, error) {
	raw, _ := mc[key].(string)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: missing %q", ErrInvalidToken, key)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed %q", ErrInvalidToken, key)
	}
	return id, nil
}

func (s *TokenService) signClaims(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func NewAccessClaim(user *models.User, issuedAt time.Time, accessTTL time.Duration, tokenID uuid.UUID) jwt.Claims {
	return jwt.MapClaims{
		"typ":     models.AccessToken,
		"jti":     tokenID.String(),
		"user_id": user.ID.String(),
		"role":    user.Role.String(),
		"iat":     issuedAt.Unix(),
		"exp":     issuedAt.Add(accessTTL).Unix(),
	}
}
