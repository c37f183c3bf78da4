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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/geocoder89/devcamper/internal/auth"
	"github.com/geocoder89/devcamper/internal/config"
	"github.com/geocoder89/devcamper/internal/credentials"
	"github.com/geocoder89/devcamper/internal/db"
	httpx "github.com/geocoder89/devcamper/internal/http"
	"github.com/geocoder89/devcamper/internal/http/handlers"
	"github.com/geocoder89/devcamper/internal/http/middlewares"
	"github.com/geocoder89/devcamper/internal/notifications"
	"github.com/geocoder89/devcamper/internal/observability"
	"github.com/geocoder89/devcamper/internal/redisclient"
	"github.com/geocoder89/devcamper/internal/security"
	"github.com/geocoder89/devcamper/internal/users"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("refusing to start", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: observability.ServiceName,
			Endpoint:    cfg.OTLPEndpoint,
			Env:         cfg.Env,
			SampleRatio: cfg.TraceSampleRatio,
		})
		if err != nil {
			log.Warn("tracing disabled", "err", err)
		} else {
			defer func() {
				sctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdownTracer(sctx)
			}()
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	store, err := db.OpenStore(ctx, cfg, prom, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	creds := credentials.NewStore(store.Repo, security.NewHasher(cfg.BcryptCost))

	seedCtx, cancelSeed := config.WithTimeout(ctx, 10*time.Second)
	created, err := db.EnsureAdminUser(seedCtx, creds, cfg)
	cancelSeed()
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	checks := map[string]handlers.Check{"db": store.Ping}

	var limiter middlewares.Limiter = middlewares.NewRateLimiter(cfg.RateLimitAuthRequests, cfg.RateLimitWindow)
	if cfg.RedisAddr != "" {
		rdb, err := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis config: %w", err)
		}
		defer rdb.Close()

		pctx, cancel := config.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pctx); err != nil {
			// the limiter fails open, so a cold redis is not fatal
			log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
		}
		cancel()

		limiter = middlewares.NewRedisLimiter(rdb.Cmdable(), cfg.RateLimitAuthRequests, cfg.RateLimitWindow)
		checks["redis"] = rdb.Ping
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	authSvc := auth.NewService(
		creds,
		tokens,
		auth.NewResetTokens(creds, cfg.ResetTokenTTL),
		newNotifier(cfg, log, prom),
		log,
		prom,
	)

	router := httpx.NewRouter(log, httpx.Deps{
		Config:   cfg,
		Auth:     authSvc,
		Users:    users.NewService(creds),
		AuthMW:   middlewares.NewAuthMiddleware(tokens, creds, 30*time.Second, log),
		Limiter:  limiter,
		Prom:     prom,
		Gatherer: reg,
		Checks:   checks,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Graceful shutdown
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}

// newNotifier delivers over SMTP when a host is configured and logs the
// message otherwise. Either way sends go through the circuit breaker.
func newNotifier(cfg config.Config, log *slog.Logger, obs notifications.DeliveryObserver) notifications.Notifier {
	var inner notifications.Notifier = notifications.NewLogNotifier(log)

	if cfg.SMTPHost != "" {
		inner = notifications.NewSMTPNotifier(notifications.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		log.Warn("SMTP_HOST not set; reset emails are only logged")
	}

	return notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{Observer: obs})
}
