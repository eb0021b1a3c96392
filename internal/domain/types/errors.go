package types

import "errors"

// Ride core taxonomy.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyTaken      = errors.New("ride is no longer available")
	ErrNotEligible       = errors.New("driver is not eligible for this ride")
	ErrInvalidRating     = errors.New("rating must be an integer from 1 to 5")
	ErrTransactionFailed = errors.New("transaction failed")
)

var (
	ErrRideNotFound        = errors.New("ride not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrDriverBusy          = errors.New("driver already has an active ride")
	ErrAlreadyRated        = errors.New("ride already rated by this party")
	ErrForbidden           = errors.New("action forbidden")
	ErrDriverNotRegistered = errors.New("driver vehicle is not registered")
	ErrDriverRejected      = errors.New("driver verification was rejected")
	ErrDriverRegistered    = errors.New("driver is already registered")
	ErrUserExists          = errors.New("user already exists")
	ErrLocationNotFound    = errors.New("location not found")
)

var domainErrors = []error{
	ErrInvalidInput,
	ErrInvalidTransition,
	ErrAlreadyTaken,
	ErrNotEligible,
	ErrInvalidRating,
	ErrTransactionFailed,
	ErrRideNotFound,
	ErrUserNotFound,
	ErrDriverBusy,
	ErrAlreadyRated,
	ErrForbidden,
	ErrDriverNotRegistered,
	ErrDriverRejected,
	ErrDriverRegistered,
	ErrUserExists,
	ErrLocationNotFound,
}

// IsDomain reports whether err carries one of the sentinel errors above.
func IsDomain(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var errorKinds = map[error]string{
	ErrInvalidInput:      "invalid_input",
	ErrInvalidTransition: "invalid_transition",
	ErrAlreadyTaken:      "already_taken",
	ErrNotEligible:       "not_eligible",
	ErrInvalidRating:     "invalid_rating",
	ErrTransactionFailed: "transaction_failed",
	ErrRideNotFound:      "ride_not_found",
	ErrUserNotFound:      "user_not_found",
	ErrDriverBusy:        "driver_busy",
	ErrAlreadyRated:      "already_rated",
	ErrForbidden:         "forbidden",

	ErrDriverNotRegistered: "driver_not_registered",
	ErrDriverRejected:      "driver_rejected",
	ErrDriverRegistered:    "driver_registered",
	ErrUserExists:          "user_exists",
	ErrLocationNotFound:    "location_not_found",
}

// ErrorKind returns a short stable name for err, usable as a metric label.
func ErrorKind(err error) string {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			if kind, ok := errorKinds[target]; ok {
				return kind
			}
			return "domain"
		}
	}
	return "internal"
}
