package admin

import (
	"context"
	"slices"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

// RecordActivity keeps the latest status changes, newest last.
func (s *AdminService) RecordActivity(a models.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activity = append(s.activity, a)
	if over := len(s.activity) - activityCapacity; over > 0 {
		s.activity = slices.Delete(s.activity, 0, over)
	}
}

// RecentActivity returns up to limit status changes, newest first.
func (s *AdminService) RecentActivity(limit int) []models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.activity) {
		limit = len(s.activity)
	}
	out := make([]models.Activity, 0, limit)
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.activity[i])
	}
	return out
}

// FollowActivity feeds the activity log from the broker until ctx is done.
func (s *AdminService) FollowActivity(ctx context.Context, consumer StatusConsumer) error {
	ctx = wrap.WithAction(ctx, types.ActionRideActivity)

	return consumer.ConsumeRideStatus(ctx, func(ctx context.Context, msg models.RideStatusUpdateMessage) error {
		s.RecordActivity(models.Activity{
			RideID:     msg.RideID,
			Status:     msg.Status,
			City:       msg.City,
			Price:      msg.Price,
			OccurredAt: msg.Timestamp,
		})
		s.l.Debug(wrap.WithRideID(ctx, msg.RideID), "ride activity recorded", "status", msg.Status)
		return nil
	})
}
