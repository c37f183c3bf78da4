package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/credentials"
	"github.com/geocoder89/devcamper/internal/db"
	"github.com/geocoder89/devcamper/internal/observability"
	"github.com/geocoder89/devcamper/internal/security"
	"github.com/geocoder89/devcamper/internal/worker"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env).With("component", "worker")
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	store, err := db.OpenStore(ctx, cfg, nil, log)
	if err != nil {
		log.Error("open store failed", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	if store.Driver == db.DriverMemory {
		log.Warn("memory store is private to this process; nothing to sweep")
	}

	creds := credentials.NewStore(store.Repo, security.NewHasher(cfg.BcryptCost))

	sweeper := worker.NewSweeper(worker.Config{
		Interval: cfg.SweepInterval,
		Timeout:  5 * time.Second,
	}, creds, log)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           sweeper.HealthHandler(pingFunc(store.Ping)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "interval", cfg.SweepInterval, "health_port", cfg.WorkerHealthPort)

	if err := sweeper.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}

type pingFunc func(ctx context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }
