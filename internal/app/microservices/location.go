package microservices

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/ladies-drive/config"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/server"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/kafka"
	"github.com/Temutjin2k/ladies-drive/internal/service/auth"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

// LocationConsumer moves driver location samples from the kafka topic into
// the redis location index read by dispatch.
type LocationConsumer struct {
	infra      *infra
	consumer   *kafka.LocationConsumer
	httpServer *server.API
	cfg        config.Config
	log        logger.Logger
}

func NewLocationConsumer(ctx context.Context, cfg config.Config, log logger.Logger) (*LocationConsumer, error) {
	if !cfg.Redis.Enabled {
		return nil, errors.New("location consumer requires redis")
	}

	in, err := newInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	authService := auth.NewAuthService(in.users, auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log), log)
	httpServer, err := server.New(cfg, server.Handlers{
		Health: handler.NewHealth(string(cfg.Mode), in.pingers, log),
	}, authService, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		in.close(ctx)
		return nil, err
	}

	return &LocationConsumer{
		infra:      in,
		consumer:   kafka.NewLocationConsumer(cfg.Kafka.Brokers, cfg.Kafka.LocationTopic, cfg.Kafka.GroupID, log),
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *LocationConsumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 2)

	go func() {
		if err := s.consumer.Run(ctx, s.infra.locations.Index); err != nil {
			errCh <- fmt.Errorf("location consumer: %w", err)
		}
	}()
	s.httpServer.Run(ctx, errCh)
	defer func() {
		cancel()
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "location consumer closed")
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "location consumer started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (s *LocationConsumer) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}
	if err := s.consumer.Close(); err != nil {
		s.log.Warn(ctx, "failed to close kafka consumer", "error", err.Error())
	}
	s.infra.close(ctx)
}
