package types

type ServiceMode string

// Ride Service - passenger flows and the ride lifecycle (request, cancel, rate, live ride status)
// Driver Service - dispatch views, acceptance, trip progression, availability and location
// Admin Service - back-office overview, user provisioning and driver verification
// Location Consumer - indexes the driver location stream into the geo store
const (
	RideService      ServiceMode = "ride-service"
	DriverService    ServiceMode = "driver-service"
	AdminService     ServiceMode = "admin-service"
	LocationConsumer ServiceMode = "location-consumer"
)

func (m ServiceMode) IsValid() bool {
	switch m {
	case RideService, DriverService, AdminService, LocationConsumer:
		return true
	}
	return false
}

// UserRole is the role supplied by the identity collaborator.
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RolePassenger UserRole = "PASSENGER"
	RoleDriver    UserRole = "DRIVER"
	RoleAdmin     UserRole = "ADMIN"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RolePassenger, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// Availability of a driver for new requests.
type Availability string

func (a Availability) String() string {
	return string(a)
}

const (
	AvailabilityAvailable Availability = "AVAILABLE"
	AvailabilityBusy      Availability = "BUSY"
	AvailabilityOffline   Availability = "OFFLINE"
)

// Verification state of a driver's documents.
type Verification string

const (
	VerificationUnverified Verification = "UNVERIFIED"
	VerificationPending    Verification = "PENDING"
	VerificationVerified   Verification = "VERIFIED"
	VerificationRejected   Verification = "REJECTED"
)

func (v Verification) IsValid() bool {
	switch v {
	case VerificationUnverified, VerificationPending, VerificationVerified, VerificationRejected:
		return true
	}
	return false
}

// ServiceClass is the fixed set of ride products a passenger can book.
type ServiceClass string

func (c ServiceClass) String() string {
	return string(c)
}

const (
	ClassRegular ServiceClass = "REGULAR"
	ClassFamily  ServiceClass = "FAMILY"
	ClassVIP     ServiceClass = "VIP"
	ClassInstant ServiceClass = "INSTANT"
)

var classMultipliers = map[ServiceClass]float64{
	ClassRegular: 1.0,
	ClassFamily:  1.4,
	ClassVIP:     2.0,
	ClassInstant: 1.2,
}

func (c ServiceClass) IsValid() bool {
	_, ok := classMultipliers[c]
	return ok
}

// Multiplier applied to the base fare of the class. Unknown classes price as regular.
func (c ServiceClass) Multiplier() float64 {
	if m, ok := classMultipliers[c]; ok {
		return m
	}
	return 1.0
}

// StoreDriver selects the persistence backend.
type StoreDriver string

const (
	StorePostgres StoreDriver = "postgres"
	StoreMemory   StoreDriver = "memory"
)
