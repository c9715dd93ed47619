package health

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/jobhealth/jobrun"
	"github.com/jonwraymond/jobhealth/observe"
	"github.com/jonwraymond/jobhealth/resilience"
)

// DefaultQueryTimeout bounds each metadata-store lookup.
const DefaultQueryTimeout = 5 * time.Second

// Aggregator combines the scheduler and triggerer run records into a Report.
// It holds no state between calls and is safe for concurrent use.
type Aggregator struct {
	scheduler jobrun.Source
	triggerer jobrun.Source

	schedulerComponent observe.Component
	triggererComponent observe.Component

	timeout  *resilience.Timeout
	parallel bool
	mw       *observe.Middleware
	logger   observe.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithParallel issues the two lookups concurrently when true.
// Default: true
func WithParallel(parallel bool) Option {
	return func(a *Aggregator) {
		a.parallel = parallel
	}
}

// WithQueryTimeout bounds each lookup; a lookup that exceeds it is reported
// as a metadata-store failure. A non-positive d disables the bound.
// Default: 5 seconds
func WithQueryTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d <= 0 {
			a.timeout = nil
			return
		}
		a.timeout = resilience.NewTimeout(resilience.TimeoutConfig{Timeout: d})
	}
}

// WithLogger sets the logger used for failed lookups and report summaries.
func WithLogger(logger observe.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMiddleware instruments each lookup with tracing, metrics and logging.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(a *Aggregator) {
		a.mw = mw
	}
}

// WithJobTypes labels the lookups with the job types they query.
func WithJobTypes(scheduler, triggerer string) Option {
	return func(a *Aggregator) {
		a.schedulerComponent.JobType = scheduler
		a.triggererComponent.JobType = triggerer
	}
}

// NewAggregator creates an Aggregator over the two run-record sources.
func NewAggregator(scheduler, triggerer jobrun.Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		scheduler:          scheduler,
		triggerer:          triggerer,
		schedulerComponent: observe.Component{Name: SectionScheduler},
		triggererComponent: observe.Component{Name: SectionTriggerer},
		timeout:            resilience.NewTimeout(resilience.TimeoutConfig{Timeout: DefaultQueryTimeout}),
		parallel:           true,
		logger:             observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.mw == nil {
		a.mw = observe.NewMiddleware(nil, nil, a.logger)
	}
	return a
}

// lookup is the outcome of one source query: a failure, or a success with
// an optional record.
type lookup struct {
	record *jobrun.Record
	err    error
}

// GetHealth queries both sources and derives the report. It always returns
// a valid Report; lookup failures are folded into it.
func (a *Aggregator) GetHealth(ctx context.Context) Report {
	var sched, trig lookup

	if a.parallel {
		var g errgroup.Group
		g.Go(func() error {
			sched = a.query(ctx, a.schedulerComponent, a.scheduler)
			return nil
		})
		g.Go(func() error {
			trig = a.query(ctx, a.triggererComponent, a.triggerer)
			return nil
		})
		_ = g.Wait()
	} else {
		sched = a.query(ctx, a.schedulerComponent, a.scheduler)
		trig = a.query(ctx, a.triggererComponent, a.triggerer)
	}

	report := deriveReport(sched, trig)

	metrics := a.mw.Metrics()
	metrics.RecordStatus(ctx, SectionMetadatabase, report.Metadatabase.Status.String())
	metrics.RecordStatus(ctx, SectionScheduler, report.Scheduler.Status.String())
	metrics.RecordStatus(ctx, SectionTriggerer, report.TriggererStatus().String())

	a.logger.Debug(ctx, "health report",
		observe.F(SectionMetadatabase, report.Metadatabase.Status),
		observe.F(SectionScheduler, report.Scheduler.Status),
		observe.F(SectionTriggerer, report.TriggererStatus()),
	)

	return report
}

func (a *Aggregator) query(ctx context.Context, c observe.Component, src jobrun.Source) lookup {
	if src == nil {
		return lookup{err: ErrNilSource}
	}

	var out lookup
	_ = a.mw.Wrap(c, func(ctx context.Context) error {
		rec, err := resilience.Call(ctx, a.timeout, src.MostRecentRun)
		out = lookup{record: rec, err: err}
		return err
	})(ctx)
	return out
}

// deriveReport applies the status rules to the two lookup outcomes. Both
// lookups read the metadata store, so either failure is attributed to it.
func deriveReport(sched, trig lookup) Report {
	report := Report{
		Metadatabase: MetadatabaseInfo{Status: StatusHealthy},
		Scheduler:    SchedulerInfo{Status: StatusUnhealthy},
		Triggerer:    TriggererInfo{Status: StatusUnhealthy.Ptr()},
	}

	switch {
	case sched.err != nil:
		report.Metadatabase.Status = StatusUnhealthy
	case sched.record != nil:
		report.Scheduler.LatestHeartbeat = heartbeatOf(sched.record)
		if sched.record.IsAlive() {
			report.Scheduler.Status = StatusHealthy
		}
	}

	switch {
	case trig.err != nil:
		report.Metadatabase.Status = StatusUnhealthy
	case trig.record == nil:
		report.Triggerer.Status = nil
	default:
		report.Triggerer.LatestHeartbeat = heartbeatOf(trig.record)
		if trig.record.IsAlive() {
			report.Triggerer.Status = StatusHealthy.Ptr()
		}
	}

	return report
}

func heartbeatOf(rec *jobrun.Record) *time.Time {
	if !rec.HasHeartbeat() {
		return nil
	}
	t := rec.LatestHeartbeat.UTC()
	return &t
}
