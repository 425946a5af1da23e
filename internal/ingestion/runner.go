package ingestion

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"amm-launch-lab/internal/domain"
	"amm-launch-lab/internal/launch"
	"amm-launch-lab/internal/observability"
)

// Runner feeds events from a Source into a Handler.
type Runner struct {
	source  Source
	handler Handler
	logger  *zap.Logger
	metrics *observability.Metrics

	processed atomic.Int64
	created   atomic.Int64
	merged    atomic.Int64
	ignored   atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source  Source
	Handler Handler
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		source:  opts.Source,
		handler: opts.Handler,
		logger:  logger,
		metrics: opts.Metrics,
	}
}

// Run blocks until the source is exhausted or ctx is cancelled.
// Handler failures are counted and do not stop ingestion.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting ingestion runner")

	err := r.source.Run(ctx, r.handle)

	stats := r.Stats()
	r.logger.Info("ingestion runner stopped",
		zap.Int64("processed", stats.EventsProcessed),
		zap.Int64("created", stats.Created),
		zap.Int64("merged", stats.Merged),
		zap.Int64("failed", stats.Failed),
	)
	return err
}

func (r *Runner) handle(ctx context.Context, ev domain.LiquidityEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	outcome, err := r.handler.HandleLiquidity(ctx, ev)
	r.processed.Add(1)

	switch outcome {
	case launch.OutcomeCreated:
		r.created.Add(1)
	case launch.OutcomeMerged:
		r.merged.Add(1)
	case launch.OutcomeIgnored:
		r.ignored.Add(1)
	case launch.OutcomeSkipped:
		r.skipped.Add(1)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		r.failed.Add(1)
		r.metrics.RecordEventError("handle")
	}
	return nil
}

// RunnerStats is a snapshot of runner counters.
type RunnerStats struct {
	EventsProcessed int64
	Created         int64
	Merged          int64
	Ignored         int64
	Skipped         int64
	Failed          int64
}

// Stats returns current runner statistics.
func (r *Runner) Stats() RunnerStats {
	return RunnerStats{
		EventsProcessed: r.processed.Load(),
		Created:         r.created.Load(),
		Merged:          r.merged.Load(),
		Ignored:         r.ignored.Load(),
		Skipped:         r.skipped.Load(),
		Failed:          r.failed.Load(),
	}
}
