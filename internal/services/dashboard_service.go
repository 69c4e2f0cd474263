package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"custos/internal/amqp"
	"custos/internal/core"
	applog "custos/internal/log"
	"custos/internal/metrics"
	"custos/internal/report"
	"custos/internal/sheets"
	"custos/internal/storage"
)

// Load outcome statuses.
const (
	StatusOK              = "ok"
	StatusEmpty           = "empty"
	StatusUpstreamFailure = "upstream_failure"
	StatusSchemaError     = "schema_error"
)

type (
	// LoadOutcome says how a load ended. Reason is set for failures.
	LoadOutcome struct {
		Status string `json:"status"`
		Reason string `json:"reason,omitempty"`
	}

	// LoadResult is one pass through loader and normalizer.
	LoadResult struct {
		ID      string              `json:"id"`
		Table   core.Table          `json:"-"`
		Stats   core.NormalizeStats `json:"stats"`
		Outcome LoadOutcome         `json:"outcome"`
	}

	// Report is a load plus the dashboard built from it.
	Report struct {
		Dashboard report.Dashboard    `json:"dashboard"`
		Stats     core.NormalizeStats `json:"stats"`
		Outcome   LoadOutcome         `json:"outcome"`
	}

	// History persists load metadata.
	History interface {
		RecordLoad(ctx context.Context, rec storage.LoadRecord) (storage.LoadRecord, error)
		RecentLoads(ctx context.Context, limit int) ([]storage.LoadRecord, error)
	}

	// Publisher announces finished loads.
	Publisher interface {
		PublishLoadCompleted(ctx context.Context, msg *amqp.LoadCompletedMessage) error
	}

	// Invalidator drops a cached source.
	Invalidator interface {
		Invalidate()
	}
)

// Failed reports whether the load produced no usable table because of an
// error.
func (o LoadOutcome) Failed() bool {
	return o.Status == StatusUpstreamFailure || o.Status == StatusSchemaError
}

// Options carries the optional collaborators of a DashboardService. Nil
// fields disable the matching side channel.
type Options struct {
	History   History
	Publisher Publisher
	Metrics   *metrics.Metrics
	Logger    *applog.Logger
}

// DashboardService loads the cost sheet, normalizes it and builds the
// dashboard view.
type DashboardService struct {
	source     sheets.Source
	normalizer core.Normalizer
	history    History
	publisher  Publisher
	metrics    *metrics.Metrics
	logger     *applog.Logger
	ready      atomic.Bool
	now        func() time.Time
}

func NewDashboardService(source sheets.Source, opts Options) *DashboardService {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	return &DashboardService{
		source:     source,
		normalizer: core.NewNormalizer(),
		history:    opts.History,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		logger:     logger.WithComponent(applog.ComponentLoader),
		now:        time.Now,
	}
}

// Load fetches and normalizes the sheet. Upstream failures never return an
// error: they yield an empty table with an upstream_failure outcome. A
// missing required column returns a *core.SchemaError.
func (s *DashboardService) Load(ctx context.Context) (LoadResult, error) {
	started := s.now()
	res := LoadResult{ID: uuid.NewString()}
	sourceKey := s.source.SourceKey()

	raw, err := s.source.Load(ctx)
	switch {
	case err != nil:
		res.Outcome = LoadOutcome{Status: StatusUpstreamFailure, Reason: err.Error()}
	case len(raw.Columns) == 0 && len(raw.Rows) == 0:
		res.Outcome = LoadOutcome{Status: StatusEmpty}
	default:
		normalized, nerr := s.normalizer.Normalize(raw)
		if nerr != nil {
			res.Outcome = LoadOutcome{Status: StatusSchemaError, Reason: nerr.Error()}
			err = nerr
			break
		}
		res.Table = normalized.Table
		res.Stats = normalized.Stats
		res.Outcome = LoadOutcome{Status: StatusOK}
		if normalized.Table.IsEmpty() {
			res.Outcome.Status = StatusEmpty
		}
	}

	s.finish(ctx, sourceKey, started, res)

	if res.Outcome.Status == StatusSchemaError {
		return res, err
	}
	return res, nil
}

func (s *DashboardService) finish(ctx context.Context, sourceKey string, started time.Time, res LoadResult) {
	finished := s.now()
	fields := applog.NewFields().
		WithOperation(applog.OpLoad).
		WithSource(sourceKey).
		WithStats(res.Stats)
	fields[applog.FieldLoadID] = res.ID
	fields[applog.FieldOutcome] = res.Outcome.Status
	fields[applog.FieldDuration] = finished.Sub(started).Milliseconds()

	switch res.Outcome.Status {
	case StatusUpstreamFailure:
		fields[applog.FieldReason] = res.Outcome.Reason
		s.logger.WarnContext(ctx, "Cost sheet unavailable", fields.ToSlice()...)
	case StatusSchemaError:
		fields[applog.FieldReason] = res.Outcome.Reason
		s.logger.ErrorContext(ctx, "Cost sheet schema invalid", fields.ToSlice()...)
	default:
		s.ready.Store(true)
		s.logger.InfoContext(ctx, "Cost sheet loaded", fields.ToSlice()...)
	}

	if s.metrics != nil {
		s.metrics.ObserveLoad(res.Outcome.Status, finished.Sub(started), res.Stats)
	}

	if s.history != nil {
		_, err := s.history.RecordLoad(ctx, storage.LoadRecord{
			ID:         res.ID,
			Source:     sourceKey,
			StartedAt:  started,
			FinishedAt: finished,
			Outcome:    res.Outcome.Status,
			Reason:     res.Outcome.Reason,
			Stats:      res.Stats,
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to record load history",
				applog.FieldLoadID, res.ID, applog.FieldError, err)
		}
	}

	if s.publisher != nil {
		msg := amqp.NewLoadCompletedMessage(res.ID, sourceKey, res.Outcome.Status, res.Outcome.Reason, res.Stats)
		if err := s.publisher.PublishLoadCompleted(ctx, msg); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish load completed message",
				applog.FieldLoadID, res.ID, applog.FieldError, err)
		}
	}
}

// Refresh drops any cached copy of the sheet and loads again.
func (s *DashboardService) Refresh(ctx context.Context) (LoadResult, error) {
	if inv, ok := s.source.(Invalidator); ok {
		inv.Invalidate()
		s.logger.InfoContext(ctx, "Cache invalidated",
			applog.FieldOperation, applog.OpRefresh,
			applog.FieldSource, s.source.SourceKey())
	}
	return s.Load(ctx)
}

// Report loads the sheet and builds the dashboard for f. On upstream
// failure or an empty sheet the dashboard is empty and no error is
// returned.
func (s *DashboardService) Report(ctx context.Context, f report.Filter) (Report, error) {
	res, err := s.Load(ctx)
	if err != nil {
		return Report{Stats: res.Stats, Outcome: res.Outcome}, err
	}
	return Report{
		Dashboard: report.Build(res.Table, f),
		Stats:     res.Stats,
		Outcome:   res.Outcome,
	}, nil
}

// Ready reports whether a load has completed without error.
func (s *DashboardService) Ready() bool {
	return s.ready.Load()
}

// SourceKey names the configured source.
func (s *DashboardService) SourceKey() string {
	return s.source.SourceKey()
}

// HistoryEnabled reports whether loads are being recorded.
func (s *DashboardService) HistoryEnabled() bool {
	return s.history != nil
}

// RecentLoads lists recorded loads, newest first. It returns an empty list
// when history is disabled.
func (s *DashboardService) RecentLoads(ctx context.Context, limit int) ([]storage.LoadRecord, error) {
	if s.history == nil {
		return []storage.LoadRecord{}, nil
	}
	loads, err := s.history.RecentLoads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent loads: %w", err)
	}
	return loads, nil
}

// HandleRefreshRequest serves refresh requests coming from the broker.
// Requests for another source are acknowledged and ignored.
func (s *DashboardService) HandleRefreshRequest(ctx context.Context, msg *amqp.RefreshRequestMessage) error {
	if msg.Source != "" && msg.Source != s.source.SourceKey() {
		s.logger.DebugContext(ctx, "Ignoring refresh for another source", applog.FieldSource, msg.Source)
		return nil
	}
	_, err := s.Refresh(ctx)
	if errors.Is(err, core.ErrSchema) {
		// Reloading again will not fix the sheet.
		return nil
	}
	return err
}
