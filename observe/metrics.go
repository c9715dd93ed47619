package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names.
const (
	MetricQueryTotal    = "health.query.total"
	MetricQueryErrors   = "health.query.errors"
	MetricQueryDuration = "health.query.duration_ms"
	MetricStatus        = "health.status"
)

// Metrics records health-query telemetry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordQuery records one metadata-store query for a component.
	RecordQuery(ctx context.Context, c Component, duration time.Duration, err error)

	// RecordStatus counts one derived status for a report section.
	// An empty status is recorded as "null".
	RecordStatus(ctx context.Context, section string, status string)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	statusCount  metric.Int64Counter
}

// NewMetrics creates the health instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		MetricQueryTotal,
		metric.WithDescription("Total number of health queries against the metadata store"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricQueryErrors,
		metric.WithDescription("Total number of failed health queries"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricQueryDuration,
		metric.WithDescription("Health query duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	statusCount, err := meter.Int64Counter(
		MetricStatus,
		metric.WithDescription("Derived health statuses by report section"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		statusCount:  statusCount,
	}, nil
}

func (m *metricsImpl) RecordQuery(ctx context.Context, c Component, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("component.name", c.Name),
	}
	if c.JobType != "" {
		attrs = append(attrs, attribute.String("component.job_type", c.JobType))
	}
	opt := metric.WithAttributes(attrs...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordStatus(ctx context.Context, section string, status string) {
	if status == "" {
		status = "null"
	}
	m.statusCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("section", section),
		attribute.String("status", status),
	))
}

type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordQuery(context.Context, Component, time.Duration, error) {}
func (noopMetrics) RecordStatus(context.Context, string, string)                 {}
