package server

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Temutjin2k/ladies-drive/docs"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/middleware"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

// setupRoutes - setups http routes
func setupRoutes(mux *http.ServeMux, routes Handlers, m *middleware.Middleware, mode types.ServiceMode, log logger.Logger) {
	// System Health
	mux.HandleFunc("GET /health", routes.Health.HealthCheck)

	setupSwaggerRoutes(mux, mode, log)
	setupMetricsRoute(mux)

	switch mode {
	case types.AdminService:
		setupAdminRoutes(mux, routes, m)
	case types.RideService:
		setupRideRoutes(mux, routes, m)
	case types.DriverService:
		setupDriverRoutes(mux, routes, m)
	}
}

// setupAdminRoutes setups routes for admin service
func setupAdminRoutes(mux *http.ServeMux, routes Handlers, m *middleware.Middleware) {
	admin := routes.Admin
	mux.Handle("GET /admin/overview", m.RequireRoles(admin.GetOverview, types.RoleAdmin))
	mux.Handle("GET /admin/rides/active", m.RequireRoles(admin.GetActiveRides, types.RoleAdmin))
	mux.Handle("GET /admin/drivers", m.RequireRoles(admin.ListDrivers, types.RoleAdmin))
	mux.Handle("GET /admin/passengers", m.RequireRoles(admin.ListPassengers, types.RoleAdmin))
	mux.Handle("GET /admin/activity", m.RequireRoles(admin.RecentActivity, types.RoleAdmin))
	mux.Handle("POST /admin/users", m.RequireRoles(admin.CreateUser, types.RoleAdmin))
	mux.Handle("POST /admin/drivers/{driver_id}/verification", m.RequireRoles(admin.SetVerification, types.RoleAdmin))
	mux.Handle("POST /admin/tokens", m.RequireRoles(admin.IssueToken, types.RoleAdmin))
}

// setupRideRoutes setups routes for ride service
func setupRideRoutes(mux *http.ServeMux, routes Handlers, m *middleware.Middleware) {
	ride := routes.Ride
	mux.Handle("POST /rides", m.RequireRoles(ride.CreateRide, types.RolePassenger))
	mux.Handle("POST /rides/quote", m.RequireRoles(ride.QuoteRide))
	mux.Handle("GET /rides/{ride_id}", m.RequireRoles(ride.GetRide))
	mux.Handle("POST /rides/{ride_id}/cancel", m.RequireRoles(ride.CancelRide, types.RolePassenger))
	mux.Handle("POST /rides/{ride_id}/rate", m.RequireRoles(ride.RateRide, types.RolePassenger))
	mux.Handle("GET /passengers/{id}/rides", m.RequireRoles(ride.ListPassengerRides, types.RolePassenger, types.RoleAdmin))
	mux.Handle("GET /drivers/available", m.RequireRoles(ride.AvailableDrivers, types.RolePassenger, types.RoleAdmin))
	mux.HandleFunc("GET /ws/passengers/{passenger_id}", routes.PassengerWS.Serve) // WebSocket connection for passengers
}

// setupDriverRoutes setups routes for driver service
func setupDriverRoutes(mux *http.ServeMux, routes Handlers, m *middleware.Middleware) {
	driver, ride := routes.Driver, routes.Ride
	mux.Handle("POST /drivers", m.RequireRoles(driver.Register, types.RoleDriver))
	mux.Handle("GET /drivers/{driver_id}", m.RequireRoles(driver.Profile, types.RoleDriver, types.RoleAdmin))
	mux.Handle("POST /drivers/{driver_id}/online", m.RequireRoles(driver.GoOnline, types.RoleDriver))
	mux.Handle("POST /drivers/{driver_id}/offline", m.RequireRoles(driver.GoOffline, types.RoleDriver))
	mux.Handle("POST /drivers/{driver_id}/location", m.RequireRoles(driver.UpdateLocation, types.RoleDriver))
	mux.Handle("GET /drivers/{driver_id}/rides/open", m.RequireRoles(driver.OpenRides, types.RoleDriver, types.RoleAdmin))
	mux.Handle("GET /drivers/{driver_id}/rides/active", m.RequireRoles(driver.ActiveRide, types.RoleDriver, types.RoleAdmin))

	mux.Handle("GET /rides/{ride_id}", m.RequireRoles(ride.GetRide))
	mux.Handle("POST /rides/{ride_id}/accept", m.RequireRoles(ride.AcceptRide, types.RoleDriver))
	mux.Handle("POST /rides/{ride_id}/status", m.RequireRoles(ride.UpdateRideStatus, types.RoleDriver))
	mux.Handle("POST /rides/{ride_id}/complete", m.RequireRoles(ride.CompleteRide, types.RoleDriver))
	mux.Handle("POST /rides/{ride_id}/cancel", m.RequireRoles(ride.CancelRide, types.RoleDriver))
	mux.Handle("POST /rides/{ride_id}/rate", m.RequireRoles(ride.RateRide, types.RoleDriver))
	mux.HandleFunc("GET /ws/drivers/{driver_id}", routes.DriverWS.Serve) // WebSocket connection for drivers
}

// setupSwaggerRoutes configures Swagger UI endpoints based on service mode
func setupSwaggerRoutes(mux *http.ServeMux, mode types.ServiceMode, log logger.Logger) {
	var instanceName string

	switch mode {
	case types.RideService:
		instanceName = "ride"
	case types.DriverService:
		instanceName = "driver"
	case types.AdminService:
		instanceName = "admin"
	default:
		log.Debug(wrap.WithAction(context.Background(), "setup swagger routes"), "no swagger for service mode", "mode", mode)
		return
	}

	mux.HandleFunc("GET /swagger/", httpSwagger.Handler(httpSwagger.InstanceName(instanceName)))
}

// setupMetricsRoute configures the Prometheus metrics endpoint
func setupMetricsRoute(mux *http.ServeMux) {
	mux.Handle("GET /metrics", promhttp.Handler())
}
