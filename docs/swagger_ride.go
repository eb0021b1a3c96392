package docs

// @title           Ride Service API
// @version         1.0
// @description     Passenger side of Ladies Drive: ride requests, quotes, cancellations, ratings and live ride tracking over WebSocket.

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
