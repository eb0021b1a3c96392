package types

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRideStatusTransitions(t *testing.T) {
	legal := map[RideStatus][]RideStatus{
		StatusSearching:  {StatusAccepted, StatusCancelled},
		StatusAccepted:   {StatusArrived, StatusCancelled},
		StatusArrived:    {StatusInProgress},
		StatusInProgress: {StatusCompleted},
	}

	for _, from := range AllRideStatuses {
		for _, to := range AllRideStatuses {
			want := false
			for _, allowed := range legal[from] {
				if allowed == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatusesHaveNoSuccessor(t *testing.T) {
	for _, s := range []RideStatus{StatusCompleted, StatusCancelled} {
		assert.True(t, s.IsTerminal())
		for _, to := range AllRideStatuses {
			assert.False(t, s.CanTransitionTo(to), "%s -> %s", s, to)
		}
	}
}

func TestCancellationOnlyBeforeTripStart(t *testing.T) {
	assert.True(t, StatusSearching.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusAccepted.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusArrived.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusInProgress.CanTransitionTo(StatusCancelled))
}

func TestIsActive(t *testing.T) {
	active := []RideStatus{StatusAccepted, StatusArrived, StatusInProgress}
	for _, s := range AllRideStatuses {
		assert.Equal(t, slices.Contains(active, s), s.IsActive(), s)
	}
}

func TestServiceClassMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, ClassRegular.Multiplier())
	assert.Equal(t, 1.4, ClassFamily.Multiplier())
	assert.Equal(t, 2.0, ClassVIP.Multiplier())
	assert.Equal(t, 1.2, ClassInstant.Multiplier())
	assert.False(t, ServiceClass("LIMO").IsValid())
	assert.Equal(t, 1.0, ServiceClass("LIMO").Multiplier())
}
