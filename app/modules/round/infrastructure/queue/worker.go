package roundqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"
)

// ExpiredRoundCompleter is the part of the round service the sweeper drives.
type ExpiredRoundCompleter interface {
	CompleteExpiredRound(ctx context.Context) (bool, error)
}

// SweepWorker completes the active round once its window has elapsed, so a
// round with no further traffic still gets its ratings and audit trail.
type SweepWorker struct {
	river.WorkerDefaults[SweepExpiredRoundJob]
	completer ExpiredRoundCompleter
	logger    *slog.Logger
	metrics   Metrics
}

// NewSweepWorker creates a sweep worker.
func NewSweepWorker(logger *slog.Logger, completer ExpiredRoundCompleter, metrics Metrics) *SweepWorker {
	return &SweepWorker{
		completer: completer,
		logger:    logger,
		metrics:   metrics,
	}
}

// Timeout bounds a single sweep.
func (w *SweepWorker) Timeout(*river.Job[SweepExpiredRoundJob]) time.Duration {
	return 30 * time.Second
}

// Work runs one sweep.
func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepExpiredRoundJob]) error {
	start := time.Now()
	w.metrics.RecordOperationAttempt(ctx, "sweep_expired_round", "river")

	completed, err := w.completer.CompleteExpiredRound(ctx)
	w.metrics.RecordOperationDuration(ctx, "sweep_expired_round", "river", time.Since(start))
	if err != nil {
		w.metrics.RecordOperationFailure(ctx, "sweep_expired_round", "river")
		w.logger.ErrorContext(ctx, "Expired round sweep failed",
			slog.Int64("job_id", job.ID),
			slog.Int("attempt", job.Attempt),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to complete expired round: %w", err)
	}

	w.metrics.RecordOperationSuccess(ctx, "sweep_expired_round", "river")
	if completed {
		w.logger.InfoContext(ctx, "Sweeper completed expired round", slog.Int64("job_id", job.ID))
	} else {
		w.logger.DebugContext(ctx, "Sweeper found nothing to complete", slog.Int64("job_id", job.ID))
	}
	return nil
}
