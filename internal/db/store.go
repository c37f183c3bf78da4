package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/credentials"
	"github.com/geocoder89/devcamper/internal/repo/memory"
	"github.com/geocoder89/devcamper/internal/repo/postgres"
	"github.com/geocoder89/devcamper/internal/repo/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Store is an opened user repository plus what the process needs to probe
// and release it.
type Store struct {
	Driver string
	Repo   credentials.Repository
	Ping   func(ctx context.Context) error
	Close  func()
}

// OpenStore connects the backend named by cfg.DBDriver. Postgres schemas are
// migrated before the repository is handed out; obs may be nil.
func OpenStore(ctx context.Context, cfg config.Config, obs postgres.DBObserver, log *slog.Logger) (*Store, error) {
	switch cfg.DBDriver {
	case DriverPostgres, "":
		m, err := NewMigrator(cfg.DBURL)
		if err != nil {
			return nil, err
		}
		upErr := m.Up()
		closeErr := m.Close()
		if upErr != nil {
			return nil, upErr
		}
		if closeErr != nil {
			log.Warn("migrator close failed", "err", closeErr)
		}

		pool, err := NewPool(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		return &Store{
			Driver: DriverPostgres,
			Repo:   postgres.NewUsersRepo(pool, obs),
			Ping:   pool.Ping,
			Close:  pool.Close,
		}, nil

	case DriverSQLite:
		sqlDB, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}

		repo := sqlite.NewUsersRepo(sqlDB)
		if err := repo.Init(ctx); err != nil {
			sqlDB.Close()
			return nil, err
		}

		return &Store{
			Driver: DriverSQLite,
			Repo:   repo,
			Ping:   sqlDB.PingContext,
			Close:  func() { _ = sqlDB.Close() },
		}, nil

	case DriverMemory:
		log.Warn("using in-memory user store; data is lost on restart")

		return &Store{
			Driver: DriverMemory,
			Repo:   memory.NewUsersRepo(),
			Ping:   func(context.Context) error { return nil },
			Close:  func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}
