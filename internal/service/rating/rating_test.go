package rating

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/internal/adapter/memstore"
	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

func TestFoldFiveFivesFromDefault(t *testing.T) {
	r, n := models.DefaultRating, models.DefaultRatingCount
	for range 5 {
		r, n = Fold(r, n, 5)
	}
	assert.Equal(t, 5.0, r)
	assert.Equal(t, 5, n)
}

func TestFoldIncrementalMean(t *testing.T) {
	r, n := Fold(4.0, 1, 2)
	assert.Equal(t, 3.0, r)
	assert.Equal(t, 2, n)

	// first real rating replaces the default
	r, n = Fold(models.DefaultRating, 0, 3)
	assert.Equal(t, 3.0, r)
	assert.Equal(t, 1, n)

	r, _ = Fold(4.67, 3, 4)
	assert.Equal(t, 4.5, r)
}

func TestFoldIsOrderIndependent(t *testing.T) {
	seqs := [][]int{{1, 5, 3, 4}, {4, 3, 5, 1}, {5, 4, 1, 3}}
	var results []float64
	for _, seq := range seqs {
		r, n := models.DefaultRating, 0
		for _, x := range seq {
			r, n = Fold(r, n, x)
		}
		results = append(results, r)
	}
	for _, r := range results {
		assert.InDelta(t, 3.25, r, 0.011)
	}
}

func TestValidate(t *testing.T) {
	for x := 1; x <= 5; x++ {
		assert.NoError(t, Validate(x))
	}
	for _, x := range []int{-1, 0, 6, 10} {
		assert.ErrorIs(t, Validate(x), types.ErrInvalidRating)
	}

	_, err := ParseValue(4.5)
	assert.ErrorIs(t, err, types.ErrInvalidRating)
	x, err := ParseValue(4)
	require.NoError(t, err)
	assert.Equal(t, 4, x)
}

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	t.Cleanup(store.Close)
	l := logger.New(io.Discard, "test", logger.LevelError)
	return New(store.Users(), store, trm.RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, l), store
}

func TestRatePersists(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	u := models.NewUser(uuid.New(), types.RoleDriver, "Nadia")
	u.Rating, u.RatingCount = 4.0, 1
	require.NoError(t, store.Users().Create(ctx, u))

	rated, err := svc.Rate(ctx, u.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.0, rated.Rating)

	got, err := store.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got.Rating)
	assert.Equal(t, 2, got.RatingCount)
}

func TestRateInvalidLeavesUserUntouched(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	u := models.NewUser(uuid.New(), types.RolePassenger, "Amal")
	require.NoError(t, store.Users().Create(ctx, u))

	_, err := svc.Rate(ctx, u.ID, 0)
	assert.ErrorIs(t, err, types.ErrInvalidRating)

	got, _ := store.Users().Get(ctx, u.ID)
	assert.Equal(t, models.DefaultRating, got.Rating)
	assert.Zero(t, got.RatingCount)
	assert.EqualValues(t, 1, got.Version)
}

func TestRateConcurrentNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	u := models.NewUser(uuid.New(), types.RoleDriver, "Nadia")
	require.NoError(t, store.Users().Create(ctx, u))

	const n = 40
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Rate(ctx, u.ID, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, n, got.RatingCount)
	assert.Equal(t, 5.0, got.Rating)
}

func TestRateRetriesOnlyConflicts(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	u := models.NewUser(uuid.New(), types.RoleDriver, "Nadia")
	require.NoError(t, store.Users().Create(ctx, u))

	store.FailCommits(2, trm.ErrConflict)
	rated, err := svc.Rate(ctx, u.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, rated.RatingCount)

	got, _ := store.Users().Get(ctx, u.ID)
	assert.Equal(t, 1, got.RatingCount)

	store.FailCommits(3, trm.ErrConflict)
	_, err = svc.Rate(ctx, u.ID, 4)
	assert.ErrorIs(t, err, types.ErrTransactionFailed)

	got, _ = store.Users().Get(ctx, u.ID)
	assert.Equal(t, 1, got.RatingCount)
}
