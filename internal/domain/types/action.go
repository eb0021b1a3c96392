package types

const (
	ActionRabbitMQConnected       = "rabbitmq_connected"
	ActionRabbitConnectionClosed  = "rabbitmq_connection_closed"
	ActionRabbitConnectionClosing = "rabbitmq_connection_closing"
	ActionRabbitReconnected       = "rabbitmq_reconnection_success"

	ActionDatabaseTransactionFailed = "database_transaction_failed"
	ActionExternalServiceFailed     = "external_service_failed"

	ActionRequestRide  = "request_ride"
	ActionAcceptRide   = "accept_ride"
	ActionAdvanceRide  = "advance_ride"
	ActionCompleteRide = "complete_ride"
	ActionCancelRide   = "cancel_ride"
	ActionRateRide     = "rate_ride"
	ActionRateUser     = "rate_user"
	ActionExpireRides  = "expire_rides"

	ActionWatchDispatch = "watch_dispatch"
	ActionWatchRide     = "watch_ride"
	ActionWatchDrivers  = "watch_drivers"
	ActionChangeFeed    = "change_feed"

	ActionRegisterDriver = "register_driver"
	ActionDriverOnline   = "driver_online"
	ActionDriverOffline  = "driver_offline"
	ActionUpdateLocation = "update_location"
	ActionIndexLocation  = "index_location"

	ActionSetVerification = "set_verification"
	ActionIssueToken      = "issue_token"
	ActionRideActivity    = "ride_activity"

	ActionWSConnected    = "ws_connected"
	ActionWSDisconnected = "ws_disconnected"

	ActionServerStarting = "server_starting"
	ActionServerStopping = "server_stopping"
	ActionMigrate        = "migrate"
)
