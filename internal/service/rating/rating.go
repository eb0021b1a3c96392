// Package rating folds single 1..5 ratings into a user's running average.
// Individual ratings are never stored.
package rating

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

const (
	MinValue = 1
	MaxValue = 5
)

// Validate accepts only the integers 1..5.
func Validate(x int) error {
	if x < MinValue || x > MaxValue {
		return fmt.Errorf("%w: got %d", types.ErrInvalidRating, x)
	}
	return nil
}

// ParseValue accepts a JSON number that must be a whole number in 1..5.
func ParseValue(v float64) (int, error) {
	if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: got %v", types.ErrInvalidRating, v)
	}
	x := int(v)
	return x, Validate(x)
}

// Fold applies the incremental mean: count' = count+1,
// rating' = round2((rating*count + x) / count').
func Fold(rating float64, count, x int) (float64, int) {
	next := count + 1
	return round2((rating*float64(count) + float64(x)) / float64(next)), next
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type Service struct {
	users  UserRepo
	trm    trm.TxManager
	policy trm.RetryPolicy
	l      logger.Logger
}

func New(users UserRepo, tm trm.TxManager, policy trm.RetryPolicy, l logger.Logger) *Service {
	return &Service{
		users:  users,
		trm:    tm,
		policy: policy,
		l:      l,
	}
}

// Apply folds x into the user's aggregate. It joins the transaction carried
// by ctx, so a caller can rate as part of a larger atomic change.
func (s *Service) Apply(ctx context.Context, userID uuid.UUID, x int) (*models.User, error) {
	if err := Validate(x); err != nil {
		return nil, wrap.Error(ctx, err)
	}

	var rated *models.User
	err := s.trm.Do(ctx, func(ctx context.Context) error {
		u, err := s.users.Get(ctx, userID)
		if err != nil {
			return fmt.Errorf("get user: %w", err)
		}

		u.Rating, u.RatingCount = Fold(u.Rating, u.RatingCount, x)
		if err := s.users.Update(ctx, u); err != nil {
			return fmt.Errorf("update user rating: %w", err)
		}
		rated = u
		return nil
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	return rated, nil
}

// Rate folds x into the user's aggregate in its own transaction, retrying
// the whole read-fold-write only when the store reports a write conflict.
func (s *Service) Rate(ctx context.Context, userID uuid.UUID, x int) (*models.User, error) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, userID.String()), types.ActionRateUser)

	var rated *models.User
	err := trm.DoRetryable(ctx, s.trm, s.policy, func(ctx context.Context) error {
		u, err := s.Apply(ctx, userID, x)
		if err != nil {
			return err
		}
		rated = u
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrInvalidRating) || errors.Is(err, types.ErrUserNotFound) {
			return nil, err
		}
		s.l.Error(ctx, "failed to rate user", err)
		return nil, wrap.Error(ctx, fmt.Errorf("%w: %w", types.ErrTransactionFailed, err))
	}

	metrics.RecordRating(rated.Role.String(), x)
	s.l.Debug(ctx, "rating folded", "rating", rated.Rating, "rating_count", rated.RatingCount)
	return rated, nil
}
