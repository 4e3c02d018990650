// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/danielhkuo/applicant-pipeline/models"
)

// Sweeper runs one inactivity sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (models.SweepResult, error)
}

// AutoPurger purges applicants past their pipeline's retention window.
type AutoPurger interface {
	AutoPurge(ctx context.Context) (models.PurgeResult, error)
}

// Runner ticks the sweep and the retention purge on a fixed interval.
type Runner struct {
	sweeper  Sweeper
	purger   AutoPurger
	interval time.Duration
}

// NewRunner creates a Runner. A nil purger skips the retention step.
func NewRunner(sweeper Sweeper, purger AutoPurger, interval time.Duration) *Runner {
	return &Runner{sweeper: sweeper, purger: purger, interval: interval}
}

// Run blocks until ctx is cancelled. A non-positive interval returns at once.
func (r *Runner) Run(ctx context.Context) {
	if r.interval <= 0 {
		slog.Info("background sweep disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("background sweep scheduled", "interval", r.interval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Shutdown stops the next cycle, not the one in flight.
			r.RunOnce(context.WithoutCancel(ctx))
		}
	}
}

// RunOnce performs a single sweep followed by the retention purge.
func (r *Runner) RunOnce(ctx context.Context) {
	start := time.Now()

	res, err := r.sweeper.Sweep(ctx)
	if err != nil {
		slog.Error("inactivity sweep failed", "error", err)
	} else {
		slog.Info("inactivity sweep completed",
			"scanned", res.Scanned,
			"deactivated", res.Deactivated,
			"failed", res.Failed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	if r.purger == nil {
		return
	}
	purged, err := r.purger.AutoPurge(ctx)
	if err != nil {
		slog.Error("retention purge failed", "error", err)
		return
	}
	if purged.PurgedCount > 0 || len(purged.Failed) > 0 {
		slog.Info("retention purge completed",
			"purged", purged.PurgedCount,
			"failed", len(purged.Failed),
		)
	}
}
