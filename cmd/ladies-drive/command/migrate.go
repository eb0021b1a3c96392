package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Temutjin2k/ladies-drive/config"
	repo "github.com/Temutjin2k/ladies-drive/internal/adapter/postgres"
	"github.com/Temutjin2k/ladies-drive/pkg/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the postgres schema",
	RunE:  migrate,
}

func migrate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config.Load(%q): %w", cfgPath, err)
	}
	log, err := newLogger("migrate", cfg.LogLevel)
	if err != nil {
		return err
	}

	db, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	if err := repo.Migrate(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	log.Info(ctx, "schema is up to date", "database", cfg.Database.Database)
	return nil
}
