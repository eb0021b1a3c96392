package docs

// @title           Admin Service API
// @version         1.0
// @description     Back office of Ladies Drive: overview, user provisioning, driver verification and token issuing.

// @host      localhost:3004
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
