package cmd

import (
	"fmt"
	"log/slog"

	"github.com/clonebrain/clonebrain/db"
	"github.com/clonebrain/clonebrain/internal/config"
)

// runMigrate applies the embedded migrations and exits.
// serve also migrates on startup; this command exists for deploy pipelines
// that migrate before rolling instances.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	slog.Info("migrations applied",
		"host", cfg.PostgresHost, "database", cfg.PostgresDBName)
	return nil
}
