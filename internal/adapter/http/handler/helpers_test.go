package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/internal/service/auth"
)

func TestGetCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{types.ErrInvalidInput, http.StatusUnprocessableEntity},
		{types.ErrInvalidRating, http.StatusUnprocessableEntity},
		{types.ErrInvalidTransition, http.StatusConflict},
		{types.ErrAlreadyTaken, http.StatusConflict},
		{types.ErrDriverBusy, http.StatusConflict},
		{types.ErrAlreadyRated, http.StatusConflict},
		{types.ErrDriverRegistered, http.StatusConflict},
		{types.ErrUserExists, http.StatusConflict},
		{types.ErrNotEligible, http.StatusForbidden},
		{types.ErrForbidden, http.StatusForbidden},
		{types.ErrDriverRejected, http.StatusForbidden},
		{types.ErrDriverNotRegistered, http.StatusForbidden},
		{types.ErrRideNotFound, http.StatusNotFound},
		{types.ErrUserNotFound, http.StatusNotFound},
		{types.ErrLocationNotFound, http.StatusNotFound},
		{auth.ErrInvalidToken, http.StatusUnauthorized},
		{auth.ErrExpToken, http.StatusUnauthorized},
		{types.ErrTransactionFailed, http.StatusServiceUnavailable},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, GetCode(tt.err))
			assert.Equal(t, tt.want, GetCode(fmt.Errorf("accept ride: %w", tt.err)), "wrapped")
		})
	}
}

func TestTransactionFailureKeepsItsCause(t *testing.T) {
	err := fmt.Errorf("%w: %w", types.ErrTransactionFailed, types.ErrAlreadyTaken)

	// The first matching row wins, so a failed commit caused by a lost race still reads as a conflict.
	assert.Equal(t, http.StatusConflict, GetCode(err))
}

func TestServiceErrorResponseHidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	serviceErrorResponse(rec, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body["error"], "password")

	rec = httptest.NewRecorder()
	serviceErrorResponse(rec, fmt.Errorf("ride 01J0: %w", types.ErrRideNotFound))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ride 01J0: ride not found", body["error"])
}
