package driver

import (
	"context"
	"errors"
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
)

type fakeIndex struct {
	mu      sync.Mutex
	indexed []models.DriverLocation
	removed []uuid.UUID
	err     error
}

func (f *fakeIndex) Index(_ context.Context, loc models.DriverLocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.indexed = append(f.indexed, loc)
	return nil
}

func (f *fakeIndex) Remove(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

type fakeStream struct {
	published []models.DriverLocation
}

func (f *fakeStream) PublishLocation(_ context.Context, loc models.DriverLocation) error {
	f.published = append(f.published, loc)
	return nil
}

type fakeGeo struct{}

func (fakeGeo) Reverse(_ context.Context, p models.GeoPoint) (*models.Address, error) {
	return &models.Address{DisplayName: "Boulevard de la Corniche", City: "Casablanca", Point: p}, nil
}

type env struct {
	ctx    context.Context
	store  *memstore.Store
	index  *fakeIndex
	stream *fakeStream
	svc    *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	t.Cleanup(store.Close)

	e := &env{
		ctx:    context.Background(),
		store:  store,
		index:  &fakeIndex{},
		stream: &fakeStream{},
	}
	e.svc = New(store.Users(), store.Rides(), e.index, e.stream, fakeGeo{}, store, logger.New(io.Discard, "test", logger.LevelError))
	e.svc.now = func() time.Time { return time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC) }
	return e
}

func (e *env) user(t *testing.T, role types.UserRole) *models.User {
	t.Helper()
	u := models.NewUser(uuid.New(), role, "Salma")
	require.NoError(t, e.store.Users().Create(e.ctx, u))
	return u
}

func (e *env) registered(t *testing.T) *models.User {
	t.Helper()
	d := e.user(t, types.RoleDriver)
	u, err := e.svc.Register(e.ctx, d.ID, RegisterInput{
		Vehicle: models.Vehicle{Make: "Dacia", Model: "Logan", Plate: "12345-a-6"},
		City:    "Casablanca",
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	e := newEnv(t)

	d := e.registered(t)
	assert.Equal(t, types.VerificationPending, d.Verification)
	assert.Equal(t, "12345-A-6", d.Vehicle.Plate)
	assert.Equal(t, "Casablanca", d.City)
	assert.Equal(t, types.AvailabilityOffline, d.Availability)

	_, err := e.svc.Register(e.ctx, d.ID, RegisterInput{
		Vehicle: models.Vehicle{Make: "Kia", Model: "Rio", Plate: "1"},
		City:    "Rabat",
	})
	assert.ErrorIs(t, err, types.ErrDriverRegistered)

	passenger := e.user(t, types.RolePassenger)
	_, err = e.svc.Register(e.ctx, passenger.ID, RegisterInput{
		Vehicle: models.Vehicle{Make: "Kia", Model: "Rio", Plate: "1"},
		City:    "Rabat",
	})
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestRegisterResolvesCityFromLocation(t *testing.T) {
	e := newEnv(t)
	d := e.user(t, types.RoleDriver)

	got, err := e.svc.Register(e.ctx, d.ID, RegisterInput{
		Vehicle:  models.Vehicle{Make: "Toyota", Model: "Yaris", Plate: "9-B-9"},
		Location: &models.GeoPoint{Lat: 33.59, Lng: -7.68},
	})
	require.NoError(t, err)
	assert.Equal(t, "Casablanca", got.City)
	require.NotNil(t, got.Location)
}

func TestRegisterValidation(t *testing.T) {
	e := newEnv(t)
	d := e.user(t, types.RoleDriver)

	cases := map[string]RegisterInput{
		"no plate":     {Vehicle: models.Vehicle{Make: "Kia", Model: "Rio"}, City: "Rabat"},
		"no model":     {Vehicle: models.Vehicle{Make: "Kia", Plate: "1"}, City: "Rabat"},
		"no city":      {Vehicle: models.Vehicle{Make: "Kia", Model: "Rio", Plate: "1"}},
		"bad year":     {Vehicle: models.Vehicle{Make: "Kia", Model: "Rio", Plate: "1", Year: 1900}, City: "Rabat"},
		"bad location": {Vehicle: models.Vehicle{Make: "Kia", Model: "Rio", Plate: "1"}, Location: &models.GeoPoint{Lat: 120}},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.svc.Register(e.ctx, d.ID, in)
			assert.ErrorIs(t, err, types.ErrInvalidInput)
		})
	}
}

func TestGoOnline(t *testing.T) {
	e := newEnv(t)

	unregistered := e.user(t, types.RoleDriver)
	_, err := e.svc.GoOnline(e.ctx, unregistered.ID, nil)
	assert.ErrorIs(t, err, types.ErrDriverNotRegistered)

	d := e.registered(t)
	online, err := e.svc.GoOnline(e.ctx, d.ID, &models.GeoPoint{Lat: 33.57, Lng: -7.61})
	require.NoError(t, err)
	assert.Equal(t, types.AvailabilityAvailable, online.Availability)
	require.Len(t, e.index.indexed, 1)
	assert.Equal(t, "Casablanca", e.index.indexed[0].City)
	assert.Len(t, e.stream.published, 1)

	stored, err := e.store.Users().Get(e.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AvailabilityAvailable, stored.Availability)
}

func TestGoOnlineRejected(t *testing.T) {
	e := newEnv(t)
	d := e.registered(t)
	d.Verification = types.VerificationRejected
	require.NoError(t, e.store.Users().Update(e.ctx, d))

	_, err := e.svc.GoOnline(e.ctx, d.ID, nil)
	assert.ErrorIs(t, err, types.ErrDriverRejected)
}

func TestGoOfflineRefusedDuringTrip(t *testing.T) {
	e := newEnv(t)
	d := e.registered(t)
	_, err := e.svc.GoOnline(e.ctx, d.ID, nil)
	require.NoError(t, err)

	ride := &models.RideRequest{
		ID:     "01J00000000000000000000000",
		Status: types.StatusAccepted,
		City:   "Casablanca",
		Driver: &models.DriverSnapshot{ID: d.ID},
	}
	require.NoError(t, e.store.Rides().Create(e.ctx, ride))

	_, err = e.svc.GoOffline(e.ctx, d.ID)
	assert.ErrorIs(t, err, types.ErrDriverBusy)

	_, active, err := e.svc.Profile(e.ctx, d.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, ride.ID, active.ID)

	ride.Status = types.StatusCancelled
	require.NoError(t, e.store.Rides().Update(e.ctx, ride))

	offline, err := e.svc.GoOffline(e.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, types.AvailabilityOffline, offline.Availability)
	assert.Equal(t, []uuid.UUID{d.ID}, e.index.removed)
}

func TestUpdateLocation(t *testing.T) {
	e := newEnv(t)
	d := e.registered(t)

	in := LocationInput{Point: models.GeoPoint{Lat: 33.58, Lng: -7.62}, SpeedKmh: 42, HeadingDegrees: 90}
	_, err := e.svc.UpdateLocation(e.ctx, d.ID, in)
	assert.ErrorIs(t, err, types.ErrNotEligible)

	_, err = e.svc.GoOnline(e.ctx, d.ID, nil)
	require.NoError(t, err)

	loc, err := e.svc.UpdateLocation(e.ctx, d.ID, in)
	require.NoError(t, err)
	assert.Equal(t, in.Point, loc.Point)
	assert.Equal(t, "AVAILABLE", loc.Availability)

	stored, err := e.store.Users().Get(e.ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Point, *stored.Location)
	assert.Len(t, e.stream.published, 1)

	_, err = e.svc.UpdateLocation(e.ctx, d.ID, LocationInput{Point: models.GeoPoint{Lat: 33.58, Lng: -7.62}, HeadingDegrees: 400})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestUpdateLocationSurvivesIndexOutage(t *testing.T) {
	e := newEnv(t)
	d := e.registered(t)
	_, err := e.svc.GoOnline(e.ctx, d.ID, nil)
	require.NoError(t, err)

	e.index.err = errors.New("redis: connection refused")
	_, err = e.svc.UpdateLocation(e.ctx, d.ID, LocationInput{Point: models.GeoPoint{Lat: 34.02, Lng: -6.83}})
	require.NoError(t, err)
	assert.Len(t, e.stream.published, 1)
}
