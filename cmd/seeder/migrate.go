package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/db"
)

// NewMigrateCmd creates the migrate subcommand (postgres only; the sqlite
// store creates its table on open).
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *db.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				cmd.Println("Migrations completed successfully")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *db.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *db.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("version=%d dirty=%t\n", v, dirty)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(m *db.Migrator) error) error {
	cfg := config.Load()
	if cfg.DBDriver != db.DriverPostgres {
		return oops.Code("CONFIG_INVALID").Errorf("migrate requires DB_DRIVER=postgres, got %q", cfg.DBDriver)
	}

	m, err := db.NewMigrator(cfg.DBURL)
	if err != nil {
		return err
	}
	defer m.Close()

	return fn(m)
}
