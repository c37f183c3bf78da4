// Package worker runs background maintenance next to the API: today that is
// clearing reset tokens nobody redeemed before they expired.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type ResetTokenPurger interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type Config struct {
	Interval time.Duration
	// per-sweep bound on the store call
	Timeout time.Duration
	// zero value means 2s doubling to 5m
	Backoff Backoff
}

type Sweeper struct {
	cfg   Config
	store ResetTokenPurger
	log   *slog.Logger
	now   func() time.Time
	wait  func(ctx context.Context, d time.Duration) bool

	readyMu sync.RWMutex
	ready   bool
}

func NewSweeper(cfg Config, store ResetTokenPurger, log *slog.Logger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Backoff.Base <= 0 || cfg.Backoff.Max <= 0 {
		cfg.Backoff = defaultBackoff
	}

	return &Sweeper{
		cfg:   cfg,
		store: store,
		log:   log,
		now:   time.Now,
		wait:  sleepCtx,
	}
}

// SweepOnce clears the tokens expired as of now.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	return s.store.ClearExpiredResetTokens(cctx, s.now().UTC())
}

// Run sweeps every Interval until ctx is done. Failures back off
// exponentially instead of hammering a struggling store.
func (s *Sweeper) Run(ctx context.Context) error {
	s.setReady(true)
	defer s.setReady(false)

	failures := 0

	for {
		delay := s.cfg.Interval

		n, err := s.SweepOnce(ctx)
		switch {
		case ctx.Err() != nil:
			s.log.Info("sweeper received shutdown signal")
			return nil
		case err != nil:
			delay = s.cfg.Backoff.Next(failures)
			failures++
			s.log.ErrorContext(ctx, "sweeper.sweep_failed", "err", err, "attempt", failures, "retry_in", delay)
		default:
			failures = 0
			if n > 0 {
				s.log.InfoContext(ctx, "sweeper.reset_tokens_cleared", "count", n)
			}
		}

		if !s.wait(ctx, delay) {
			s.log.Info("sweeper received shutdown signal")
			return nil
		}
	}
}

func (s *Sweeper) Ready() bool {
	s.readyMu.RLock()
	defer s.readyMu.RUnlock()
	return s.ready
}

func (s *Sweeper) setReady(v bool) {
	s.readyMu.Lock()
	s.ready = v
	s.readyMu.Unlock()
}

// sleepCtx reports false when ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
