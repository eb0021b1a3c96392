package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Temutjin2k/ladies-drive/config"
	"github.com/Temutjin2k/ladies-drive/internal/app"
)

var mode string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run one service mode",
	Long: `Run one service mode: ride-service, driver-service, admin-service or
location-consumer. The mode may also come from the MODE environment variable.`,
	RunE: serve,
}

func init() {
	serveCmd.Flags().StringVar(&mode, "mode", "", "service mode to run")
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := config.NewConfig(cfgPath, mode)
	if err != nil {
		return fmt.Errorf("config.NewConfig(%q): %w", cfgPath, err)
	}

	log, err := newLogger(string(cfg.Mode), cfg.LogLevel)
	if err != nil {
		return err
	}
	log.Info(ctx, "configuration loaded", "mode", cfg.Mode, "store", cfg.Store.Driver, "port", cfg.Port())

	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		return err
	}

	if err = application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		return err
	}
	return nil
}
