package reconciler

import (
	"context"

	"github.com/riverqueue/river"
)

// SweepArgs is the periodic job resolving lapsed accepted requests.
type SweepArgs struct{}

func (SweepArgs) Kind() string { return "reconcile_sweep" }

// CleanupArgs is the periodic job closing stale pending requests.
type CleanupArgs struct{}

func (CleanupArgs) Kind() string { return "reconcile_cleanup" }

type SweepWorker struct {
	river.WorkerDefaults[SweepArgs]
	reconciler *Reconciler
}

func NewSweepWorker(r *Reconciler) *SweepWorker {
	return &SweepWorker{reconciler: r}
}

func (w *SweepWorker) Work(ctx context.Context, _ *river.Job[SweepArgs]) error {
	_, err := w.reconciler.Sweep(ctx)
	return err
}

type CleanupWorker struct {
	river.WorkerDefaults[CleanupArgs]
	reconciler *Reconciler
}

func NewCleanupWorker(r *Reconciler) *CleanupWorker {
	return &CleanupWorker{reconciler: r}
}

func (w *CleanupWorker) Work(ctx context.Context, _ *river.Job[CleanupArgs]) error {
	_, err := w.reconciler.CleanupStalePending(ctx)
	return err
}
