package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Temutjin2k/ladies-drive/config"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/middleware"
	wshandler "github.com/Temutjin2k/ladies-drive/internal/adapter/http/ws"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
)

const serverIPAddress = "%s:%s"

// Handlers are the handlers of one service mode; unused ones stay nil.
type Handlers struct {
	Health      *handler.Health
	Ride        *handler.Ride
	Driver      *handler.Driver
	Admin       *handler.Admin
	DriverWS    *wshandler.DriverSessions
	PassengerWS *wshandler.PassengerSessions
}

type API struct {
	mode   types.ServiceMode
	mux    *http.ServeMux
	server *http.Server
	routes Handlers
	m      *middleware.Middleware

	addr string
	log  logger.Logger
}

func New(cfg config.Config, routes Handlers, authService middleware.AuthService, logger logger.Logger) (*API, error) {
	if authService == nil {
		return nil, errors.New("auth service is required")
	}
	if routes.Health == nil {
		return nil, errors.New("health handler is required")
	}

	switch cfg.Mode {
	case types.RideService:
		if routes.Ride == nil || routes.PassengerWS == nil {
			return nil, errors.New("ride handlers are required")
		}
	case types.DriverService:
		if routes.Ride == nil || routes.Driver == nil || routes.DriverWS == nil {
			return nil, errors.New("driver handlers are required")
		}
	case types.AdminService:
		if routes.Admin == nil {
			return nil, errors.New("admin handler is required")
		}
	case types.LocationConsumer:
	default:
		return nil, fmt.Errorf("invalid mode: %s", cfg.Mode)
	}

	api := &API{
		mode:   cfg.Mode,
		mux:    http.NewServeMux(),
		routes: routes,
		m:      middleware.NewMiddleware(authService, logger),
		addr:   fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Port()),
		log:    logger,
	}

	setupRoutes(api.mux, routes, api.m, api.mode, logger)

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api, nil
}

// Handler exposes the full middleware chain, for tests.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

func (a *API) Run(ctx context.Context, errCh chan<- error) {
	go func() {
		ctx = wrap.WithAction(ctx, "http_server_start")
		a.log.Info(ctx, "started http server", "address", a.addr, "mode", a.mode)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
			return
		}
	}()
}

// withMiddleware applies middlewares to the mux. Metrics wraps the mux
// directly so it sees the matched route pattern.
func (a *API) withMiddleware() http.Handler {
	return a.m.Recover(a.m.RequestID(a.m.Logging(a.m.Auth(a.m.Metrics(string(a.mode))(a.mux)))))
}
