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
	"github.com/Temutjin2k/ladies-drive/internal/service/auth"
	"github.com/Temutjin2k/ladies-drive/internal/service/dispatch"
	"github.com/Temutjin2k/ladies-drive/internal/service/rating"
	"github.com/Temutjin2k/ladies-drive/internal/service/ride"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	"github.com/Temutjin2k/ladies-drive/pkg/wshub"
)

// RideService serves passengers: ride requests, cancellation, rating and the
// live ride feed.
type RideService struct {
	infra      *infra
	rides      *ride.Service
	httpServer *server.API
	cfg        config.Config
	log        logger.Logger
}

func NewRide(ctx context.Context, cfg config.Config, log logger.Logger) (*RideService, error) {
	in, err := newInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	policy := in.retryPolicy(cfg)
	rater := rating.New(in.users, in.tm, policy, log)
	rideService := ride.New(in.rides, in.users, in.events, rater, in.publisher(), in.tm, log,
		ride.WithSearchTimeout(cfg.Dispatch.SearchTimeout),
		ride.WithRetryPolicy(policy),
	)
	dispatcher := dispatch.New(in.rides, in.users, in.feed, in.positions(), log)
	authService := auth.NewAuthService(in.users, auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log), log)

	handlers := server.Handlers{
		Health: handler.NewHealth(string(cfg.Mode), in.pingers, log),
		Ride:   handler.NewRide(rideService, dispatcher, log),
		PassengerWS: wshandler.NewPassengerSessions(dispatcher, rideService, wshub.New(log),
			cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, log),
	}

	httpServer, err := server.New(cfg, handlers, authService, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		in.close(ctx)
		return nil, err
	}

	return &RideService{
		infra:      in,
		rides:      rideService,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *RideService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 2)

	s.infra.start(ctx, errCh)
	go s.rides.RunExpirer(ctx, s.cfg.Dispatch.ExpiryInterval)
	s.httpServer.Run(ctx, errCh)
	defer func() {
		cancel()
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "ride service closed")
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "ride service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (s *RideService) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}
	s.infra.close(ctx)
}
