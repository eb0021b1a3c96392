package microservices

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Temutjin2k/ladies-drive/config"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/handler"
	"github.com/Temutjin2k/ladies-drive/internal/adapter/http/server"
	"github.com/Temutjin2k/ladies-drive/internal/service/admin"
	"github.com/Temutjin2k/ladies-drive/internal/service/auth"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
)

// AdminService serves operators: ride overview, user provisioning, driver
// verification and the recent ride activity log.
type AdminService struct {
	infra      *infra
	admin      *admin.AdminService
	httpServer *server.API
	cfg        config.Config
	log        logger.Logger
}

func NewAdmin(ctx context.Context, cfg config.Config, log logger.Logger) (*AdminService, error) {
	in, err := newInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	authService := auth.NewAuthService(in.users, auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, log), log)
	adminService := admin.NewAdminService(in.rides, in.users, authService, in.tm, log)

	handlers := server.Handlers{
		Health: handler.NewHealth(string(cfg.Mode), in.pingers, log),
		Admin:  handler.NewAdmin(adminService, log),
	}

	httpServer, err := server.New(cfg, handlers, authService, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		in.close(ctx)
		return nil, err
	}

	return &AdminService{
		infra:      in,
		admin:      adminService,
		httpServer: httpServer,
		cfg:        cfg,
		log:        log,
	}, nil
}

func (s *AdminService) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 2)

	s.infra.start(ctx, errCh)
	if s.infra.broker != nil {
		go func() {
			if err := s.admin.FollowActivity(ctx, s.infra.broker); err != nil {
				s.log.Error(ctx, "ride activity feed stopped", err)
			}
		}()
	} else {
		s.log.Warn(ctx, "rabbitmq is disabled, ride activity log stays empty")
	}
	s.httpServer.Run(ctx, errCh)
	defer func() {
		cancel()
		s.close(context.WithoutCancel(ctx))
		s.log.Info(ctx, "admin service closed")
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	s.log.Info(ctx, "admin service started")

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		s.log.Info(ctx, "shutting down application", "signal", sig.String())
		return nil
	}
}

func (s *AdminService) close(ctx context.Context) {
	if s.httpServer != nil {
		if err := s.httpServer.Stop(ctx); err != nil {
			s.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}
	s.infra.close(ctx)
}
