package directory

import (
	"context"
	"time"

	"github.com/housing/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Metrics receives cache, degradation and occupancy measurements.
// *telemetry.DirectoryMetrics implements it.
type Metrics interface {
	cache.Recorder
	RecordDegradation(ctx context.Context, view, field string)
	RecordOccupancyRate(ctx context.Context, rate decimal.Decimal)
}

type nopMetrics struct{}

func (nopMetrics) RecordCacheLookup(context.Context, string, bool) {}
func (nopMetrics) RecordRecompute(context.Context, string, time.Duration, error) {}
func (nopMetrics) RecordDegradation(context.Context, string, string) {}
func (nopMetrics) RecordOccupancyRate(context.Context, decimal.Decimal) {}

// Option configures the builder, aggregator and service
type Option func(*options)

type options struct {
	logger      *zap.Logger
	metrics     Metrics
	retry       RetryPolicy
	fanOut      int
	invalidator cache.Invalidator
	now         func() time.Time
}

func defaultOptions() options {
	return options{
		logger:      zap.NewNop(),
		metrics:     nopMetrics{},
		retry:       DefaultRetryPolicy(),
		fanOut:      8,
		invalidator: cache.NopInvalidator{},
		now:         time.Now,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithRetryPolicy sets the read-path retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *options) {
		o.retry = p
	}
}

// WithFanOut bounds concurrent tenant lookups in one flat list build
func WithFanOut(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.fanOut = n
		}
	}
}

// WithInvalidator broadcasts invalidations to peer instances
func WithInvalidator(inv cache.Invalidator) Option {
	return func(o *options) {
		if inv != nil {
			o.invalidator = inv
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
