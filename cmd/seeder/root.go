package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/credentials"
	"github.com/geocoder89/devcamper/internal/db"
	"github.com/geocoder89/devcamper/internal/observability"
	"github.com/geocoder89/devcamper/internal/security"
)

const defaultTimeout = 30 * time.Second

var timeout time.Duration

// NewRootCmd creates the root command for the seeder CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seeder",
		Short: "Load or wipe devcamper user data",
		Long: `seeder manages user records outside the API: bulk import from a JSON
file, wiping every user, and applying schema migrations. It reads the same
environment as the API (DB_DRIVER, DATABASE_URL, SQLITE_PATH, ...).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().DurationVar(&timeout, "timeout", defaultTimeout, "timeout for database operations (e.g., 30s, 1m)")

	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewDestroyCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// openCredentials connects the configured store. The caller must call the
// returned close func.
func openCredentials(ctx context.Context) (*credentials.Store, func(), error) {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	store, err := db.OpenStore(ctx, cfg, nil, log)
	if err != nil {
		return nil, nil, fail("DB_CONNECT_FAILED", err, "operation", "open store")
	}

	return credentials.NewStore(store.Repo, security.NewHasher(cfg.BcryptCost)), store.Close, nil
}
