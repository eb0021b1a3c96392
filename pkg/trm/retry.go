package trm

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConflict is returned by a store when a concurrent writer invalidated the
// transaction's reads (optimistic concurrency).
var ErrConflict = errors.New("transaction conflict")

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// IsRetryable reports whether the store asked for the whole transaction to be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}

// RetryPolicy bounds DoRetryable.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 20 * time.Millisecond}

// DoRetryable runs fn in a fresh transaction and re-runs the whole transaction
// only while the failure is a conflict the store reported. Any other error is
// returned as is. Must not be called with a transaction already in ctx.
func DoRetryable(ctx context.Context, tm TxManager, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := max(policy.Attempts, 1)
	backoff := policy.Backoff

	var err error
	for i := range attempts {
		err = tm.Do(ctx, fn)
		if !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		onRetry()

		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// onRetry is replaced by the metrics hook at startup.
var onRetry = func() {}

// SetRetryHook installs a callback invoked before every retry.
func SetRetryHook(fn func()) {
	if fn != nil {
		onRetry = fn
	}
}
