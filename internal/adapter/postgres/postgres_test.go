package postgres

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

func TestUserWhere(t *testing.T) {
	where, args := userWhere(models.UserFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = userWhere(models.UserFilter{
		Role:         types.RoleDriver,
		City:         "Marrakech",
		Availability: types.AvailabilityAvailable,
	})
	assert.Equal(t, " WHERE role = $1 AND city = $2 AND availability = $3", where)
	assert.Equal(t, []any{types.RoleDriver, "Marrakech", types.AvailabilityAvailable}, args)
}

func TestFeedDispatchInlineDocuments(t *testing.T) {
	feed := NewFeed(nil, logger.New(io.Discard, "test", logger.LevelError))
	defer feed.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rides := feed.SubscribeRides(ctx)
	users := feed.SubscribeUsers(ctx)

	driverID := uuid.New()
	ride := models.RideRequest{
		ID:        "01JBZ5N6V0Q4M3W7B8C9D0E1F2",
		Status:    types.StatusAccepted,
		City:      "Tangier",
		Price:     42.5,
		Driver:    &models.DriverSnapshot{ID: driverID, Name: "Loubna"},
		CreatedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		Version:   2,
	}
	doc, err := json.Marshal(ride)
	require.NoError(t, err)
	require.NoError(t, feed.dispatch(ctx, rideChannel, string(doc)))

	select {
	case got := <-rides:
		assert.Equal(t, ride.ID, got.ID)
		assert.Equal(t, int64(2), got.Version)
		assert.True(t, got.AssignedTo(driverID))
	case <-time.After(time.Second):
		t.Fatal("ride change not published")
	}

	u := models.NewUser(driverID, types.RoleDriver, "Loubna")
	doc, err = json.Marshal(u)
	require.NoError(t, err)
	require.NoError(t, feed.dispatch(ctx, userChannel, string(doc)))

	select {
	case got := <-users:
		assert.Equal(t, driverID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("user change not published")
	}

	assert.Error(t, feed.dispatch(ctx, "other", "{}"))
	assert.Error(t, feed.dispatch(ctx, userChannel, "not-a-uuid"))
}
