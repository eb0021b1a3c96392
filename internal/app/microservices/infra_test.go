package microservices

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/config"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

func memoryConfig(mode types.ServiceMode) config.Config {
	cfg := config.Config{Mode: mode}
	cfg.Store.Driver = types.StoreMemory
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AccessTokenTTL = time.Hour
	cfg.Dispatch.SearchTimeout = time.Minute
	cfg.Dispatch.ExpiryInterval = time.Second
	cfg.WebSocket.ReadBufferSize = 1024
	cfg.WebSocket.WriteBufferSize = 1024
	return cfg
}

func TestNewInfraMemoryLeavesOptionalBackendsNil(t *testing.T) {
	ctx := context.Background()
	l := logger.New(io.Discard, "test", logger.LevelError)

	in, err := newInfra(ctx, memoryConfig(types.RideService), l)
	require.NoError(t, err)
	defer in.close(ctx)

	assert.NotNil(t, in.mem)
	assert.NotNil(t, in.tm)
	assert.NotNil(t, in.feed)
	assert.Nil(t, in.publisher())
	assert.Nil(t, in.positions())
	assert.Nil(t, in.driverIndex())
	assert.Nil(t, in.locationStream())
	assert.Empty(t, in.pingers)
}

func TestRetryPolicyFromConfig(t *testing.T) {
	in := &infra{}
	cfg := memoryConfig(types.RideService)

	assert.Equal(t, 3, in.retryPolicy(cfg).Attempts)

	cfg.Dispatch.RetryAttempts = 7
	assert.Equal(t, 7, in.retryPolicy(cfg).Attempts)
}

func TestServicesBuildOnMemoryStore(t *testing.T) {
	ctx := context.Background()
	l := logger.New(io.Discard, "test", logger.LevelError)

	rideSvc, err := NewRide(ctx, memoryConfig(types.RideService), l)
	require.NoError(t, err)
	rideSvc.infra.close(ctx)

	driverSvc, err := NewDriver(ctx, memoryConfig(types.DriverService), l)
	require.NoError(t, err)
	driverSvc.infra.close(ctx)

	adminSvc, err := NewAdmin(ctx, memoryConfig(types.AdminService), l)
	require.NoError(t, err)
	adminSvc.infra.close(ctx)

	_, err = NewLocationConsumer(ctx, memoryConfig(types.LocationConsumer), l)
	assert.Error(t, err)
}
