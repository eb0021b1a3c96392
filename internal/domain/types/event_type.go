package types

type RideEvent string

func (s RideEvent) String() string {
	return string(s)
}

const (
	EventRideRequested   RideEvent = "RIDE_REQUESTED"
	EventDriverMatched   RideEvent = "DRIVER_MATCHED"
	EventDriverArrived   RideEvent = "DRIVER_ARRIVED"
	EventRideStarted     RideEvent = "RIDE_STARTED"
	EventRideCompleted   RideEvent = "RIDE_COMPLETED"
	EventRideCancelled   RideEvent = "RIDE_CANCELLED"
	EventRideRated       RideEvent = "RIDE_RATED"
	EventStatusChanged   RideEvent = "STATUS_CHANGED"
	EventLocationUpdated RideEvent = "LOCATION_UPDATED"
)

// Websocket message types.
const (
	MessageOpenRides  = "open_rides"
	MessageActiveRide = "active_ride"
	MessageRideUpdate = "ride_update"
	MessageDrivers    = "available_drivers"
	MessageError      = "error"
	MessageAck        = "ack"
)
