package admin

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/internal/adapter/memstore"
	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

type stubIssuer struct{}

func (stubIssuer) IssueFor(_ context.Context, userID uuid.UUID) (*models.IssuedToken, error) {
	return &models.IssuedToken{AccessToken: "token-" + userID.String()}, nil
}

type stubConsumer struct {
	msgs []models.RideStatusUpdateMessage
}

func (c stubConsumer) ConsumeRideStatus(ctx context.Context, handler func(ctx context.Context, msg models.RideStatusUpdateMessage) error) error {
	for _, m := range c.msgs {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func newService(t *testing.T) (*AdminService, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	t.Cleanup(store.Close)
	svc := NewAdminService(store.Rides(), store.Users(), stubIssuer{}, store, logger.New(io.Discard, "test", logger.LevelError))
	return svc, store
}

func TestOverview(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	statuses := []types.RideStatus{
		types.StatusSearching, types.StatusAccepted, types.StatusInProgress,
		types.StatusCompleted, types.StatusCompleted, types.StatusCompleted, types.StatusCancelled,
	}
	for i, st := range statuses {
		require.NoError(t, store.Rides().Create(ctx, &models.RideRequest{
			ID:     fmt.Sprintf("01J0000000000000000000000%d", i),
			Status: st,
			City:   "Casablanca",
			Price:  20,
		}))
	}
	for _, av := range []types.Availability{types.AvailabilityAvailable, types.AvailabilityBusy, types.AvailabilityBusy} {
		d := models.NewUser(uuid.New(), types.RoleDriver, "d")
		d.Availability = av
		require.NoError(t, store.Users().Create(ctx, d))
	}

	o, err := svc.GetOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, o.RidesByStatus[types.StatusCompleted])
	assert.Equal(t, 2, o.Metrics.ActiveRides)
	assert.Equal(t, 1, o.Metrics.SearchingRides)
	assert.Equal(t, 1, o.Metrics.AvailableDrivers)
	assert.Equal(t, 2, o.Metrics.BusyDrivers)
	assert.Equal(t, 0, o.DriverDistribution[types.AvailabilityOffline])
	assert.InDelta(t, 60.0, o.Metrics.CompletedRevenue, 1e-9)
	assert.InDelta(t, 0.25, o.Metrics.CancellationRate, 1e-9)
}

func TestListDriversPaginates(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	for i := range 7 {
		_, err := svc.CreateUser(ctx, CreateUserInput{Role: types.RoleDriver, Name: fmt.Sprintf("driver %d", i), City: "Rabat"})
		require.NoError(t, err)
	}
	_, err := svc.CreateUser(ctx, CreateUserInput{Role: types.RolePassenger, Name: "passenger", City: "Rabat"})
	require.NoError(t, err)

	page, meta, err := svc.ListDrivers(ctx, models.UserFilter{City: "Rabat"}, models.Filters{Page: 2, PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, 7, meta.TotalRecords)
	assert.Equal(t, 2, meta.LastPage)

	passengers, meta, err := svc.ListPassengers(ctx, "", models.Filters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, passengers, 1)
	assert.Equal(t, 1, meta.TotalRecords)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Role: types.RolePassenger, Name: "  "})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = svc.CreateUser(ctx, CreateUserInput{Role: "PILOT", Name: "Hind"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	u, err := svc.CreateUser(ctx, CreateUserInput{Role: types.RolePassenger, Name: "Hind"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultRating, u.Rating)
	assert.Zero(t, u.RatingCount)
}

func TestSetVerification(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	d, err := svc.CreateUser(ctx, CreateUserInput{Role: types.RoleDriver, Name: "Kenza"})
	require.NoError(t, err)

	got, err := svc.SetVerification(ctx, d.ID, types.VerificationVerified)
	require.NoError(t, err)
	assert.Equal(t, types.VerificationVerified, got.Verification)

	_, err = svc.SetVerification(ctx, d.ID, "MAYBE")
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	p, err := svc.CreateUser(ctx, CreateUserInput{Role: types.RolePassenger, Name: "Rim"})
	require.NoError(t, err)
	_, err = svc.SetVerification(ctx, p.ID, types.VerificationVerified)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = svc.SetVerification(ctx, uuid.New(), types.VerificationVerified)
	assert.ErrorIs(t, err, types.ErrUserNotFound)
}

func TestActivityLog(t *testing.T) {
	svc, _ := newService(t)

	var msgs []models.RideStatusUpdateMessage
	for i := range activityCapacity + 5 {
		msgs = append(msgs, models.RideStatusUpdateMessage{
			RideID:    fmt.Sprintf("ride-%d", i),
			Status:    types.StatusCompleted,
			Timestamp: time.Unix(int64(i), 0),
		})
	}
	require.NoError(t, svc.FollowActivity(context.Background(), stubConsumer{msgs: msgs}))

	recent := svc.RecentActivity(3)
	require.Len(t, recent, 3)
	assert.Equal(t, fmt.Sprintf("ride-%d", activityCapacity+4), recent[0].RideID)

	all := svc.RecentActivity(0)
	assert.Len(t, all, activityCapacity)
	assert.Equal(t, "ride-5", all[len(all)-1].RideID)
}
