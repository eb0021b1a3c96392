package trm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	calls int
}

func (f *fakeTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

var fastPolicy = RetryPolicy{Attempts: 4, Backoff: time.Millisecond}

func TestDoRetryableRetriesConflicts(t *testing.T) {
	tm := &fakeTx{}
	runs := 0

	err := DoRetryable(context.Background(), tm, fastPolicy, func(ctx context.Context) error {
		runs++
		if runs < 3 {
			return fmt.Errorf("update ride: %w", ErrConflict)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, runs)
	assert.Equal(t, 3, tm.calls)
}

func TestDoRetryableStopsAfterAttempts(t *testing.T) {
	tm := &fakeTx{}

	err := DoRetryable(context.Background(), tm, fastPolicy, func(ctx context.Context) error {
		return &pgconn.PgError{Code: sqlStateSerializationFailure}
	})

	require.Error(t, err)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, fastPolicy.Attempts, tm.calls)
}

func TestDoRetryableNeverRetriesOtherErrors(t *testing.T) {
	tm := &fakeTx{}
	boom := errors.New("boom")

	err := DoRetryable(context.Background(), tm, fastPolicy, func(ctx context.Context) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, tm.calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(nil))
}
