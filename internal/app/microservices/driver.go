package microservices

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/ladies-drive/config"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/server"
	wshandler "github.com/Temutjin2k/ladies-drive/internal/adapter/http/ws"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/locationIQ"
	"github.com/Temutjin2k/ladies-drive/internal/service/auth"
	"github.com/Temutjin2k/ladies-drive/internal/service/dispatch"
	"github.com/Temutjin2k/ladies-drive/internal/service/driver"
	"github.com/Temutjin2k/ladies-drive/internal/service/rating"
	"github.com/Temutjin2k/ladies-drive/internal/service/ride"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	"github.com/Temutjin2k/ladies-drive/pkg/wshub"
)

// DriverService serves drivers: registration, availability, location updates,
// the open ride feed and ride progression.
type DriverService struct {
	infra      *infra
	httpServer *server.API
	cfg        config.Config
	log        logger.Logger
}

func NewDriver(ctx context.Context, cfg config.Config, log logger.Logger) (*DriverService, error) {
	in, err := newInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	var geo driver.GeoCoder
	if cfg.ExternalAPI.LocationIQapiKey != "" {
		geo, err = locationIQ.New(cfg.ExternalAPI.LocationIQapiKey, cfg.ExternalAPI.LocationIQBaseURL, cfg.ExternalAPI.GeocodeCacheTTL)
		if err != nil {
			log.Error(ctx, "Failed to setup geocoder", err)
			in.close(ctx)
			return nil, err
		}
	} else {
		log.Warn(ctx, "locationiq api key is not set, driver addresses will not be resolved")
	}

	policy := in.retryPolicy(cfg)
	rater := rating.New(in.users, in.tm, policy, log)
	rideService := ride.New(in.rides, in.users, in.events, rater, in.publisher(), in.tm, log,
		ride.WithSearchTimeout(cfg.Dispatch.SearchTimeout),
		ride.WithRetryPolicy(policy),
	)
	driverService := driver.New(in.users, in.rides, in.driverIndex(), in.locationStream(), geo, in.tm, log)
	dispatcher := dispatch.New(in.rides, in.users, in.feed, in.positions(), log)
	authService := auth.NewAuthService(in.users, auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log), log)

	handlers := server.Handlers{
		Health: handler.NewHealth(string(cfg.Mode), in.pingers, log),
		Ride:   handler.NewRide(rideService, dispatcher, log),
		Driver: handler.NewDriver(driverService, dispatcher, log),
		DriverWS: wshandler.NewDriverSessions(dispatcher, rideService, wshub.New(log),
			cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, log),
	}

	httpServer, err := server.New(cfg, handlers, authService, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		in.close(ctx)
		return nil, err
	}

	return &DriverService{
		infra:      in,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *DriverService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 2)

	s.infra.start(ctx, errCh)
	s.httpServer.Run(ctx, errCh)
	defer func() {
		cancel()
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "driver service closed")
	}()

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "driver service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (s *DriverService) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}
	s.infra.close(ctx)
}
