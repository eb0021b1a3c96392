package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

func newRide(city string) *models.RideRequest {
	return &models.RideRequest{
		ID:        ulid.Make().String(),
		Passenger: models.PassengerSnapshot{ID: uuid.New(), Name: "Salma"},
		Status:    types.StatusSearching,
		City:      city,
		Price:     18.5,
		CreatedAt: time.Now(),
	}
}

func TestCommitIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	ride := newRide("Casablanca")
	require.NoError(t, s.Rides().Create(ctx, ride))
	u := models.NewUser(uuid.New(), types.RolePassenger, "Salma")
	require.NoError(t, s.Users().Create(ctx, u))

	boom := errors.New("disk on fire")
	s.FailCommits(1, boom)

	err := s.Do(ctx, func(ctx context.Context) error {
		r, err := s.Rides().Get(ctx, ride.ID)
		if err != nil {
			return err
		}
		r.Status = types.StatusCancelled
		if err := s.Rides().Update(ctx, r); err != nil {
			return err
		}

		p, err := s.Users().Get(ctx, u.ID)
		if err != nil {
			return err
		}
		p.CompletedTrips++
		return s.Users().Update(ctx, p)
	})
	require.ErrorIs(t, err, boom)

	r, err := s.Rides().Get(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSearching, r.Status)
	assert.EqualValues(t, 1, r.Version)

	p, err := s.Users().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, p.CompletedTrips)
}

func TestReadsInsideTxSeeStagedWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	ride := newRide("Rabat")
	err := s.Do(ctx, func(ctx context.Context) error {
		if err := s.Rides().Create(ctx, ride); err != nil {
			return err
		}
		got, err := s.Rides().Get(ctx, ride.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, "Rabat", got.City)

		list, err := s.Rides().List(ctx, models.RideFilter{City: "Rabat"})
		assert.Len(t, list, 1)
		return err
	})
	require.NoError(t, err)
}

func TestStaleUpdateConflicts(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	ride := newRide("Casablanca")
	require.NoError(t, s.Rides().Create(ctx, ride))

	a, _ := s.Rides().Get(ctx, ride.ID)
	b, _ := s.Rides().Get(ctx, ride.ID)

	a.Status = types.StatusCancelled
	require.NoError(t, s.Rides().Update(ctx, a))
	assert.EqualValues(t, 2, a.Version)

	b.Status = types.StatusAccepted
	err := s.Rides().Update(ctx, b)
	assert.True(t, trm.IsRetryable(err))
}

func TestGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	ride := newRide("Casablanca")
	require.NoError(t, s.Rides().Create(ctx, ride))

	got, err := s.Rides().Get(ctx, ride.ID)
	require.NoError(t, err)
	got.City = "Fes"

	again, _ := s.Rides().Get(ctx, ride.ID)
	assert.Equal(t, "Casablanca", again.City)

	_, err = s.Rides().Get(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrRideNotFound)
}

func TestFeedPublishesOnlyCommitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()
	defer s.Close()

	feed := s.SubscribeRides(ctx)

	s.FailCommits(1, errors.New("rejected"))
	_ = s.Rides().Create(ctx, newRide("Tangier"))

	committed := newRide("Casablanca")
	require.NoError(t, s.Rides().Create(ctx, committed))

	select {
	case got := <-feed:
		assert.Equal(t, committed.ID, got.ID)
		assert.EqualValues(t, 1, got.Version)
	case <-time.After(time.Second):
		t.Fatal("no change published")
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	driver := uuid.New()
	first := newRide("Casablanca")
	second := newRide("Casablanca")
	second.Status = types.StatusAccepted
	second.Driver = &models.DriverSnapshot{ID: driver}
	other := newRide("Marrakech")

	for _, r := range []*models.RideRequest{first, second, other} {
		require.NoError(t, s.Rides().Create(ctx, r))
	}

	all, err := s.Rides().List(ctx, models.RideFilter{City: "Casablanca"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)

	newest, _ := s.Rides().List(ctx, models.RideFilter{City: "Casablanca", NewestFirst: true, Limit: 1})
	require.Len(t, newest, 1)
	assert.Equal(t, second.ID, newest[0].ID)

	active, _ := s.Rides().List(ctx, models.RideFilter{DriverID: &driver, Statuses: types.ActiveRideStatuses})
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	stats, err := s.Rides().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ByStatus[types.StatusSearching])
	assert.Equal(t, 1, stats.ByStatus[types.StatusAccepted])
}
