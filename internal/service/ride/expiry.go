package ride

import (
	"context"
	"errors"
	"time"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/metrics"
)

const ExpiredReason = "expired"

// ExpireStale cancels every ride still SEARCHING after the search timeout and
// returns how many it cancelled. A zero timeout disables expiry.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	if s.searchTimeout <= 0 {
		return 0, nil
	}
	ctx = wrap.WithAction(ctx, types.ActionExpireRides)

	cutoff := now.Add(-s.searchTimeout)
	stale, err := s.repos.ride.List(ctx, models.RideFilter{
		Statuses:      []types.RideStatus{types.StatusSearching},
		CreatedBefore: &cutoff,
	})
	if err != nil {
		return 0, wrap.Error(ctx, err)
	}

	expired := 0
	for _, ride := range stale {
		_, err := s.cancel(ctx, ride.ID, nil, ExpiredReason)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, types.ErrInvalidTransition):
			// accepted or cancelled since the listing
		default:
			return expired, err
		}
	}

	if expired > 0 {
		metrics.ExpiredRidesTotal.Add(float64(expired))
		s.l.Info(ctx, "expired searching rides", "count", expired)
	}
	return expired, nil
}

// RunExpirer calls ExpireStale every interval until ctx is done.
func (s *Service) RunExpirer(ctx context.Context, interval time.Duration) {
	if s.searchTimeout <= 0 || interval <= 0 {
		s.l.Info(ctx, "ride expiry disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireStale(ctx, s.now()); err != nil && ctx.Err() == nil {
				s.l.Error(ctx, "failed to expire rides", err)
			}
		}
	}
}
