package docs

// @title           Driver Service API
// @version         1.0
// @description     Driver side of Ladies Drive: registration, availability, location, the live dispatch view and trip progression.

// @host      localhost:3001
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
