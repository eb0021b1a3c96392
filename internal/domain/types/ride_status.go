package types

import "slices"

type RideStatus string

func (s RideStatus) String() string {
	return string(s)
}

const (
	StatusSearching  RideStatus = "SEARCHING"
	StatusAccepted   RideStatus = "ACCEPTED"
	StatusArrived    RideStatus = "ARRIVED"
	StatusInProgress RideStatus = "IN_PROGRESS"
	StatusCompleted  RideStatus = "COMPLETED"
	StatusCancelled  RideStatus = "CANCELLED"
)

// AllRideStatuses in lifecycle order.
var AllRideStatuses = []RideStatus{
	StatusSearching,
	StatusAccepted,
	StatusArrived,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// transitions is the only source of legal status changes.
// ActiveRideStatuses are the non-terminal statuses of a ride that has a driver.
var ActiveRideStatuses = []RideStatus{StatusAccepted, StatusArrived, StatusInProgress}

var transitions = map[RideStatus][]RideStatus{
	StatusSearching:  {StatusAccepted, StatusCancelled},
	StatusAccepted:   {StatusArrived, StatusCancelled},
	StatusArrived:    {StatusInProgress},
	StatusInProgress: {StatusCompleted},
}

func (s RideStatus) IsValid() bool {
	switch s {
	case StatusSearching, StatusAccepted, StatusArrived, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	return slices.Contains(transitions[s], next)
}

// IsTerminal reports whether no transition leaves s.
func (s RideStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsActive reports whether a driver is assigned and the trip is not finished.
func (s RideStatus) IsActive() bool {
	return s == StatusAccepted || s == StatusArrived || s == StatusInProgress
}

// Event returns the ride event recorded when a ride enters s.
func (s RideStatus) Event() RideEvent {
	switch s {
	case StatusSearching:
		return EventRideRequested
	case StatusAccepted:
		return EventDriverMatched
	case StatusArrived:
		return EventDriverArrived
	case StatusInProgress:
		return EventRideStarted
	case StatusCompleted:
		return EventRideCompleted
	case StatusCancelled:
		return EventRideCancelled
	}
	return EventStatusChanged
}
