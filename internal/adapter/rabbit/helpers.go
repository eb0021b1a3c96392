package rabbit

import (
	"context"
	"strings"
	"time"

	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
)

func retry(ctx context.Context, n int, sleep time.Duration, fn func() error) error {
	var err error
	for i := range n {
		if err = fn(); err == nil {
			return nil
		}
		if i == n-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(sleep):
		}
	}
	return err
}

// statusKey is the routing key of a ride status change, e.g. ride.status.in_progress.
func statusKey(status types.RideStatus) string {
	return "ride.status." + strings.ToLower(status.String())
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
