// Package worker runs queued generation jobs in the background.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paultaki/whisperprompts/internal/db"
	"github.com/paultaki/whisperprompts/internal/pipeline"
)

// Defaults for Config fields left zero.
const (
	DefaultInterval    = 5 * time.Second
	DefaultBatchSize   = 10
	DefaultMaxAttempts = 3
)

// Health components.
const (
	ComponentJobs    = "jobs"
	ComponentCleanup = "cleanup"
)

// JobRunner executes one job.
type JobRunner interface {
	RunJob(ctx context.Context, j db.Job) error
}

// Config holds worker configuration.
type Config struct {
	Store       *db.Store
	Runner      JobRunner
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int

	// CleanupInterval of zero disables periodic cleanup.
	CleanupInterval time.Duration
	CleanupMinScore int
}

// Worker claims pending jobs on a ticker and runs them one at a time.
type Worker struct {
	cfg    Config
	store  *db.Store
	runner JobRunner
	health *Health
	Now    func() time.Time
}

// New creates a worker.
func New(cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	return &Worker{
		cfg:    cfg,
		store:  cfg.Store,
		runner: cfg.Runner,
		health: NewHealth(),
		Now:    time.Now,
	}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("starting worker",
		"interval", w.cfg.Interval,
		"batch_size", w.cfg.BatchSize,
		"max_attempts", w.cfg.MaxAttempts,
		"cleanup_interval", w.cfg.CleanupInterval,
	)

	// Jobs left running by a crashed process go back in the queue.
	if n, err := w.store.ResetRunningJobs(ctx, w.Now()); err != nil {
		return fmt.Errorf("reset running jobs: %w", err)
	} else if n > 0 {
		slog.Info("requeued interrupted jobs", "count", n)
	}

	jobTicker := time.NewTicker(w.cfg.Interval)
	defer jobTicker.Stop()

	var cleanupC <-chan time.Time
	if w.cfg.CleanupInterval > 0 {
		cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
		defer cleanupTicker.Stop()
		cleanupC = cleanupTicker.C
	}

	w.runJobCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker shutting down")
			return ctx.Err()

		case <-jobTicker.C:
			w.runJobCycle(ctx)

		case <-cleanupC:
			w.runCleanupCycle(ctx)
		}
	}
}

// RunOnce claims and runs a single batch. It returns how many jobs were
// claimed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	jobs, err := w.store.ClaimPendingJobs(ctx, w.cfg.BatchSize, w.Now())
	if err != nil {
		return 0, err
	}

	for _, j := range jobs {
		if ctx.Err() != nil {
			return len(jobs), ctx.Err()
		}
		w.runJob(ctx, j)
	}
	return len(jobs), nil
}

func (w *Worker) runJob(ctx context.Context, j db.Job) {
	start := time.Now()
	err := w.runner.RunJob(ctx, j)
	if err != nil {
		slog.Error("job failed",
			"job_id", j.ID,
			"kind", j.Kind,
			"user_id", j.UserID,
			"attempt", j.Attempts,
			"error", err)
		if ferr := w.store.FailJob(ctx, j.ID, err.Error(), w.cfg.MaxAttempts, w.Now()); ferr != nil {
			slog.Error("failed to record job failure", "job_id", j.ID, "error", ferr)
		}
		w.health.SetUnhealthy(ComponentJobs, err)
		return
	}

	if err := w.store.CompleteJob(ctx, j.ID, w.Now()); err != nil {
		slog.Error("failed to complete job", "job_id", j.ID, "error", err)
		return
	}
	w.health.SetHealthy(ComponentJobs, "last job succeeded")
	slog.Debug("job done", "job_id", j.ID, "kind", j.Kind, "duration", time.Since(start))
}

func (w *Worker) runJobCycle(ctx context.Context) {
	n, err := w.RunOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.health.SetUnhealthy(ComponentJobs, err)
			slog.Error("job cycle failed", "error", err)
		}
		return
	}
	if n > 0 {
		slog.Debug("job cycle complete", "jobs", n)
	}
}

func (w *Worker) runCleanupCycle(ctx context.Context) {
	res, err := pipeline.Cleanup(ctx, w.store, w.cfg.CleanupMinScore, w.Now())
	if err != nil {
		w.health.SetUnhealthy(ComponentCleanup, err)
		slog.Error("cleanup cycle failed", "error", err)
		return
	}

	w.health.SetHealthy(ComponentCleanup, "cleanup complete")
	slog.Info("cleanup cycle complete",
		"checked", res.Checked,
		"retired_invalid", res.RetiredInvalid,
		"retired_low_score", res.RetiredLowScore)
}

// Health returns the health tracker.
func (w *Worker) Health() *Health {
	return w.health
}
