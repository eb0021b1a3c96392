package logger_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

func TestErrorKeepsContextOfOrigin(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "ride-service", logger.LevelDebug)

	ctx := wrap.WithRequestID(context.Background(), "req-12345")
	ctx = wrap.WithAction(ctx, "handler")

	err := acceptRide(ctx)
	require.Error(t, err)

	// Error restores the action and ride id captured where the error was wrapped.
	l.Error(ctx, "failed to accept ride", err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "failed to accept ride", record["message"])
	assert.Equal(t, "ERROR", record["level"])
	assert.Equal(t, "ride-service", record["service"])
	assert.Equal(t, "accept_ride", record["action"])
	assert.Equal(t, "req-12345", record["request_id"])
	assert.Equal(t, "01J0RIDE", record["ride_id"])
	assert.Equal(t, "d-1", record["driver_id"])
	assert.Contains(t, record, "timestamp")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(&buf, "svc", logger.LevelWarn)

	l.Info(context.Background(), "hidden")
	assert.Zero(t, buf.Len())

	l.Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestValidateLogLevel(t *testing.T) {
	assert.True(t, logger.ValidateLogLevel(logger.LevelInfo))
	assert.False(t, logger.ValidateLogLevel("TRACE"))
}

func TestGetRequestID(t *testing.T) {
	ctx := wrap.WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", wrap.GetRequestID(ctx))
	assert.Empty(t, wrap.GetRequestID(context.Background()))
}

func acceptRide(ctx context.Context) error {
	ctx = wrap.WithDriverID(wrap.WithRideID(wrap.WithAction(ctx, "accept_ride"), "01J0RIDE"), "d-1")

	if err := loadRide(ctx); err != nil {
		return wrap.Error(ctx, fmt.Errorf("load ride: %w", err))
	}
	return nil
}

func loadRide(ctx context.Context) error {
	return wrap.Error(ctx, errors.New("connection reset"))
}
