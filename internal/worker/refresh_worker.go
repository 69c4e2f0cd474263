// Package worker runs the dashboard's background maintenance: periodic
// sheet refreshes and load history retention.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custos/internal/core"
	applog "custos/internal/log"
	"custos/internal/services"
)

// pruneEvery is how often history retention is applied after startup.
const pruneEvery = 24 * time.Hour

// Refresher reloads the cost sheet bypassing the cache.
type Refresher interface {
	Refresh(ctx context.Context) (services.LoadResult, error)
}

// Pruner deletes load history older than a cutoff.
type Pruner interface {
	PruneBefore(ctx context.Context, t time.Time) (int64, error)
}

// Config controls the worker. Zero durations disable the matching job.
type Config struct {
	RefreshInterval  time.Duration
	HistoryRetention time.Duration
}

// RefreshWorker keeps the cached sheet fresh and trims old history.
type RefreshWorker struct {
	refresher Refresher
	pruner    Pruner
	cfg       Config
	logger    *applog.Logger
	now       func() time.Time
}

// NewRefreshWorker builds a worker. pruner may be nil when history is
// disabled.
func NewRefreshWorker(refresher Refresher, pruner Pruner, cfg Config, logger *applog.Logger) *RefreshWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &RefreshWorker{
		refresher: refresher,
		pruner:    pruner,
		cfg:       cfg,
		logger:    logger.WithComponent(applog.ComponentWorker),
		now:       time.Now,
	}
}

// StartupCheck applies history retention once before the tickers start.
func (w *RefreshWorker) StartupCheck(ctx context.Context) error {
	_, err := w.PruneHistory(ctx)
	return err
}

// PruneHistory removes records older than the retention window and
// returns how many went.
func (w *RefreshWorker) PruneHistory(ctx context.Context) (int64, error) {
	if w.pruner == nil || w.cfg.HistoryRetention <= 0 {
		return 0, nil
	}
	cutoff := w.now().Add(-w.cfg.HistoryRetention)
	n, err := w.pruner.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune load history: %w", err)
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "Pruned load history",
			"removed", n,
			"cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// RefreshOnce reloads the sheet. A schema error is logged and not
// returned: the next tick will not fix the workbook either.
func (w *RefreshWorker) RefreshOnce(ctx context.Context) error {
	res, err := w.refresher.Refresh(ctx)
	if errors.Is(err, core.ErrSchema) {
		w.logger.WarnContext(ctx, "Scheduled refresh hit an invalid sheet",
			applog.FieldLoadID, res.ID, applog.FieldError, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("scheduled refresh: %w", err)
	}
	w.logger.DebugContext(ctx, "Scheduled refresh finished",
		applog.FieldOperation, applog.OpRefresh,
		applog.FieldLoadID, res.ID,
		applog.FieldOutcome, res.Outcome.Status)
	return nil
}

// Run blocks until ctx is done, refreshing every RefreshInterval and
// pruning history daily.
func (w *RefreshWorker) Run(ctx context.Context) {
	var refreshC, pruneC <-chan time.Time

	if w.cfg.RefreshInterval > 0 {
		ticker := time.NewTicker(w.cfg.RefreshInterval)
		defer ticker.Stop()
		refreshC = ticker.C
	}
	if w.pruner != nil && w.cfg.HistoryRetention > 0 {
		ticker := time.NewTicker(pruneEvery)
		defer ticker.Stop()
		pruneC = ticker.C
	}
	if refreshC == nil && pruneC == nil {
		return
	}

	w.logger.InfoContext(ctx, "Background worker started",
		"refresh_interval", w.cfg.RefreshInterval.String(),
		"history_retention", w.cfg.HistoryRetention.String())

	for {
		select {
		case <-ctx.Done():
			return
		case <-refreshC:
			if err := w.RefreshOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic refresh failed", applog.FieldError, err)
			}
		case <-pruneC:
			if _, err := w.PruneHistory(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic history prune failed", applog.FieldError, err)
			}
		}
	}
}
