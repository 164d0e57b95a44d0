package daemon

import (
	"context"
	"log/slog"
	"time"
)

// DefaultReconcileInterval is used when ReconcilerConfig.Interval is unset.
const DefaultReconcileInterval = 10 * time.Second

// Target is reconciled on every pass. *desktop.Desktop re-queries its
// bounds and flushes pending persistence.
type Target interface {
	Reconcile(ctx context.Context) error
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks for state drift and corrects it. It
// catches display changes whose notifications were lost and retries
// persistence writes that failed.
type Reconciler struct {
	interval time.Duration
	target   Target
	logger   *slog.Logger

	passes   int
	failures int
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, target Target) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		target:   target,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped", "passes", r.passes, "failures", r.failures)
			return nil
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.failures++
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	r.passes++
	if err := r.target.Reconcile(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.failures++
		r.logger.Warn("reconciler: pass failed", "error", err)
	}
}

// ReconcileNow triggers an immediate reconciliation pass. It must not run
// concurrently with Run.
func (r *Reconciler) ReconcileNow(ctx context.Context) {
	r.reconcile(ctx)
}
