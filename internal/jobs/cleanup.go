package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/dscnitrourkela/project-zucchini/internal/metrics"
)

// WindowCleaner deletes rate-limit windows that ended before cutoff.
type WindowCleaner interface {
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
}

type RateLimitCleanupArgs struct{}

func (RateLimitCleanupArgs) Kind() string { return JobKindRateLimitCleanup }

// RateLimitCleanupWorker prunes the Postgres rate-limit table. Windows are
// kept for MaxWindow after they start so no live window is removed.
type RateLimitCleanupWorker struct {
	river.WorkerDefaults[RateLimitCleanupArgs]
	Store     WindowCleaner
	MaxWindow time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

func (w RateLimitCleanupWorker) Work(ctx context.Context, job *river.Job[RateLimitCleanupArgs]) error {
	if w.Store == nil {
		return fmt.Errorf("rate limit store not configured")
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cutoff := now().Add(-w.MaxWindow)
	deleted, err := w.Store.Cleanup(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete expired rate limit windows: %w", err)
	}

	metrics.RateLimitWindowsDeleted.Add(float64(deleted))
	logger.Info("rate limit cleanup finished", "deleted", deleted, "cutoff", cutoff, "attempt", job.Attempt)
	return nil
}
