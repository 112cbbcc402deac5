package telemetry

import (
	"context"
	"time"

	"github.com/housing/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// DirectoryMetrics tracks view cache efficiency, degraded view fields and
// lifecycle outcomes. It satisfies cache.Recorder.
type DirectoryMetrics struct {
	cacheLookups      *Counter
	recomputeDuration *Histogram
	recomputeFailures *Counter
	degradations      *Counter
	lifecycleTotal    *Counter
	reconciled        *Counter
	occupancyRate     *FloatGauge
	jobRuns           *Counter
}

// NewDirectoryMetrics registers the directory instruments on meter
func NewDirectoryMetrics(meter metric.Meter) (*DirectoryMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &DirectoryMetrics{}
	var err error

	if m.cacheLookups, err = NewCounter(meter,
		"housing_view_cache_lookups_total",
		"View cache lookups by cache and hit",
		"{lookups}"); err != nil {
		return nil, err
	}
	if m.recomputeDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "housing_view_recompute_duration_seconds",
		Description: "Time spent rebuilding a cached view",
		Unit:        "s",
		Boundaries:  RecomputeDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.recomputeFailures, err = NewCounter(meter,
		"housing_view_recompute_failures_total",
		"View rebuilds that failed and kept the previous value",
		"{failures}"); err != nil {
		return nil, err
	}
	if m.degradations, err = NewCounter(meter,
		"housing_view_degraded_fields_total",
		"View fields replaced by placeholders after a failed lookup",
		"{fields}"); err != nil {
		return nil, err
	}
	if m.lifecycleTotal, err = NewCounter(meter,
		"housing_occupancy_mutations_total",
		"Occupancy lifecycle mutations by operation and outcome code",
		"{mutations}"); err != nil {
		return nil, err
	}
	if m.reconciled, err = NewCounter(meter,
		"housing_approval_intents_reconciled_total",
		"Approval intents repaired by the reconcile sweep",
		"{intents}"); err != nil {
		return nil, err
	}
	if m.occupancyRate, err = NewFloatGauge(meter,
		"housing_manager_occupancy_rate",
		"Occupied share of flats for the last computed manager statistics",
		"%"); err != nil {
		return nil, err
	}
	if m.jobRuns, err = NewCounter(meter,
		"housing_scheduler_job_runs_total",
		"Scheduled job executions by job and outcome",
		"{runs}"); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCacheLookup counts a cache hit or miss
func (m *DirectoryMetrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	m.cacheLookups.Inc(ctx, AttrCache.String(cache), AttrHit.Bool(hit))
}

// RecordRecompute records the duration of a rebuild and counts failures
func (m *DirectoryMetrics) RecordRecompute(ctx context.Context, cache string, d time.Duration, err error) {
	m.recomputeDuration.RecordDuration(ctx, d, AttrCache.String(cache))
	if err != nil {
		m.recomputeFailures.Inc(ctx, AttrCache.String(cache), AttrCode.String(shared.Code(err)))
	}
}

// RecordDegradation counts a placeholder substituted into view for field
func (m *DirectoryMetrics) RecordDegradation(ctx context.Context, view, field string) {
	m.degradations.Inc(ctx, AttrView.String(view), AttrField.String(field))
}

// RecordMutation counts a lifecycle mutation; a nil err is recorded as "OK"
func (m *DirectoryMetrics) RecordMutation(ctx context.Context, operation string, err error) {
	code := "OK"
	if err != nil {
		code = shared.Code(err)
	}
	m.lifecycleTotal.Inc(ctx, AttrOperation.String(operation), AttrCode.String(code))
}

// RecordReconciled counts intents repaired by a sweep
func (m *DirectoryMetrics) RecordReconciled(ctx context.Context, n int) {
	if n > 0 {
		m.reconciled.Add(ctx, int64(n))
	}
}

// RecordOccupancyRate publishes the latest occupancy percentage
func (m *DirectoryMetrics) RecordOccupancyRate(ctx context.Context, rate decimal.Decimal) {
	m.occupancyRate.Record(ctx, rate.InexactFloat64())
}

// RecordJobRun counts a scheduler job execution
func (m *DirectoryMetrics) RecordJobRun(ctx context.Context, job string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.jobRuns.Inc(ctx, AttrJob.String(job), AttrOutcome.String(outcome))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewDirectoryMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
