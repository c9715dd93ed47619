package observe

import (
	"context"
	"time"
)

// QueryFunc is a single metadata-store lookup for one component.
type QueryFunc func(ctx context.Context) error

// Middleware wraps health queries with tracing, metrics, and logging.
//
// Contract:
//   - Concurrency: Wrap returns a QueryFunc safe for concurrent use.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware. Nil arguments are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// MiddlewareFromObserver builds a Middleware from an Observer's providers.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Metrics returns the metrics sink used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger {
	return m.logger
}

// Wrap instruments fn as a query about component c.
func (m *Middleware) Wrap(c Component, fn QueryFunc) QueryFunc {
	return func(ctx context.Context) error {
		ctx, span := m.tracer.StartSpan(ctx, c)
		start := time.Now()

		err := fn(ctx)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordQuery(ctx, c, duration, err)

		logger := m.logger.WithComponent(c)
		fields := []Field{
			F("duration_ms", float64(duration.Microseconds())/1000),
		}
		if err != nil {
			fields = append(fields, F("error", err))
			logger.Warn(ctx, "health query failed", fields...)
		} else {
			logger.Debug(ctx, "health query completed", fields...)
		}

		return err
	}
}
