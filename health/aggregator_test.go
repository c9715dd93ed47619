package health

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/jobhealth/jobrun"
	"github.com/jonwraymond/jobhealth/observe"
)

var (
	schedulerBeat = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	triggererBeat = time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	errStoreDown  = errors.New("connection refused")
)

func record(jobType string, beat time.Time, alive bool) *jobrun.Record {
	return &jobrun.Record{
		JobType:         jobType,
		State:           jobrun.StateRunning,
		LatestHeartbeat: beat,
		Alive:           alive,
	}
}

func present(rec *jobrun.Record) jobrun.Source { return jobrun.StaticSource{Record: rec} }
func absent() jobrun.Source                    { return jobrun.StaticSource{} }
func failing(err error) jobrun.Source          { return jobrun.StaticSource{Err: err} }

func encode(t *testing.T, r Report) string {
	t.Helper()

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return string(b)
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator(absent(), absent())

	if !agg.parallel {
		t.Error("default parallel should be true")
	}
	if agg.timeout == nil || agg.timeout.Config().Timeout != DefaultQueryTimeout {
		t.Errorf("default timeout = %v, want %v", agg.timeout, DefaultQueryTimeout)
	}
	if agg.mw == nil {
		t.Error("expected default middleware")
	}
}

func TestNewAggregator_Options(t *testing.T) {
	agg := NewAggregator(absent(), absent(),
		WithParallel(false),
		WithQueryTimeout(0),
		WithJobTypes("SchedulerJob", "TriggererJob"),
	)

	if agg.parallel {
		t.Error("parallel should be false")
	}
	if agg.timeout != nil {
		t.Error("timeout should be disabled")
	}
	if agg.schedulerComponent.JobType != "SchedulerJob" || agg.triggererComponent.JobType != "TriggererJob" {
		t.Errorf("job types = %q/%q", agg.schedulerComponent.JobType, agg.triggererComponent.JobType)
	}
}

// TestAggregator_StatusMatrix covers every combination of scheduler and
// triggerer being absent, present and alive, or present and stale.
func TestAggregator_StatusMatrix(t *testing.T) {
	type state int
	const (
		missing state = iota
		alive
		stale
	)

	source := func(s state, jobType string, beat time.Time) jobrun.Source {
		switch s {
		case alive:
			return present(record(jobType, beat, true))
		case stale:
			return present(record(jobType, beat, false))
		default:
			return absent()
		}
	}

	healthy, unhealthy := StatusHealthy, StatusUnhealthy

	tests := []struct {
		name          string
		scheduler     state
		triggerer     state
		wantScheduler Status
		wantTriggerer *Status
	}{
		{"scheduler absent, triggerer absent", missing, missing, unhealthy, nil},
		{"scheduler absent, triggerer alive", missing, alive, unhealthy, &healthy},
		{"scheduler absent, triggerer stale", missing, stale, unhealthy, &unhealthy},
		{"scheduler alive, triggerer absent", alive, missing, healthy, nil},
		{"scheduler alive, triggerer alive", alive, alive, healthy, &healthy},
		{"scheduler alive, triggerer stale", alive, stale, healthy, &unhealthy},
		{"scheduler stale, triggerer absent", stale, missing, unhealthy, nil},
		{"scheduler stale, triggerer alive", stale, alive, unhealthy, &healthy},
		{"scheduler stale, triggerer stale", stale, stale, unhealthy, &unhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(
				source(tt.scheduler, jobrun.SchedulerJobType, schedulerBeat),
				source(tt.triggerer, jobrun.TriggererJobType, triggererBeat),
			)

			report := agg.GetHealth(context.Background())

			if report.Metadatabase.Status != StatusHealthy {
				t.Errorf("metadatabase = %q, want healthy", report.Metadatabase.Status)
			}
			if report.Scheduler.Status != tt.wantScheduler {
				t.Errorf("scheduler = %q, want %q", report.Scheduler.Status, tt.wantScheduler)
			}

			switch {
			case tt.wantTriggerer == nil && report.Triggerer.Status != nil:
				t.Errorf("triggerer = %q, want null", *report.Triggerer.Status)
			case tt.wantTriggerer != nil && report.Triggerer.Status == nil:
				t.Errorf("triggerer = null, want %q", *tt.wantTriggerer)
			case tt.wantTriggerer != nil && *report.Triggerer.Status != *tt.wantTriggerer:
				t.Errorf("triggerer = %q, want %q", *report.Triggerer.Status, *tt.wantTriggerer)
			}

			// A heartbeat is reported whenever a record exists, regardless of status.
			if got := report.Scheduler.LatestHeartbeat != nil; got != (tt.scheduler != missing) {
				t.Errorf("scheduler heartbeat present = %v", got)
			}
			if got := report.Triggerer.LatestHeartbeat != nil; got != (tt.triggerer != missing) {
				t.Errorf("triggerer heartbeat present = %v", got)
			}
		})
	}
}

func TestAggregator_SchedulerQueryError(t *testing.T) {
	triggerers := map[string]jobrun.Source{
		"absent":  absent(),
		"alive":   present(record(jobrun.TriggererJobType, triggererBeat, true)),
		"stale":   present(record(jobrun.TriggererJobType, triggererBeat, false)),
		"failing": failing(errStoreDown),
	}

	for name, trig := range triggerers {
		t.Run("triggerer "+name, func(t *testing.T) {
			report := NewAggregator(failing(errStoreDown), trig).GetHealth(context.Background())

			if report.Metadatabase.Status != StatusUnhealthy {
				t.Errorf("metadatabase = %q, want unhealthy", report.Metadatabase.Status)
			}
			if report.Scheduler.Status != StatusUnhealthy {
				t.Errorf("scheduler = %q, want unhealthy", report.Scheduler.Status)
			}
			if report.Scheduler.LatestHeartbeat != nil {
				t.Errorf("scheduler heartbeat = %v, want nil", report.Scheduler.LatestHeartbeat)
			}
		})
	}
}

func TestAggregator_TriggererQueryError(t *testing.T) {
	schedulers := map[string]jobrun.Source{
		"absent": absent(),
		"alive":  present(record(jobrun.SchedulerJobType, schedulerBeat, true)),
		"stale":  present(record(jobrun.SchedulerJobType, schedulerBeat, false)),
	}

	for name, sched := range schedulers {
		t.Run("scheduler "+name, func(t *testing.T) {
			report := NewAggregator(sched, failing(errStoreDown)).GetHealth(context.Background())

			if report.Metadatabase.Status != StatusUnhealthy {
				t.Errorf("metadatabase = %q, want unhealthy", report.Metadatabase.Status)
			}
			if report.Triggerer.Status == nil || *report.Triggerer.Status != StatusUnhealthy {
				t.Errorf("triggerer = %v, want unhealthy", report.Triggerer.Status)
			}
			if report.Triggerer.LatestHeartbeat != nil {
				t.Errorf("triggerer heartbeat = %v, want nil", report.Triggerer.LatestHeartbeat)
			}
		})
	}
}

func TestAggregator_MissingTriggererIsNullNotUnhealthy(t *testing.T) {
	sched := present(record(jobrun.SchedulerJobType, schedulerBeat, true))

	missing := NewAggregator(sched, absent()).GetHealth(context.Background())
	broken := NewAggregator(sched, failing(errStoreDown)).GetHealth(context.Background())

	if missing.Triggerer.Status != nil {
		t.Errorf("missing triggerer status = %q, want null", *missing.Triggerer.Status)
	}
	if missing.Triggerer.LatestHeartbeat != nil {
		t.Error("missing triggerer heartbeat should be null")
	}
	if broken.Triggerer.Status == nil || *broken.Triggerer.Status != StatusUnhealthy {
		t.Errorf("failed triggerer status = %v, want unhealthy", broken.Triggerer.Status)
	}
}

func TestAggregator_Idempotent(t *testing.T) {
	agg := NewAggregator(
		present(record(jobrun.SchedulerJobType, schedulerBeat, true)),
		present(record(jobrun.TriggererJobType, triggererBeat, false)),
	)

	first := encode(t, agg.GetHealth(context.Background()))
	second := encode(t, agg.GetHealth(context.Background()))

	if first != second {
		t.Errorf("reports differ:\n%s\n%s", first, second)
	}
}

func TestAggregator_ScenarioA(t *testing.T) {
	agg := NewAggregator(
		present(record(jobrun.SchedulerJobType, schedulerBeat, true)),
		absent(),
	)

	got := encode(t, agg.GetHealth(context.Background()))
	want := `{"metadatabase":{"status":"healthy"},"scheduler":{"status":"healthy","latest_scheduler_heartbeat":"2024-01-01T00:00:00Z"},"triggerer":{"status":null,"latest_triggerer_heartbeat":null}}`

	if got != want {
		t.Errorf("report =\n%s\nwant\n%s", got, want)
	}
}

func TestAggregator_ScenarioB(t *testing.T) {
	agg := NewAggregator(
		present(record(jobrun.SchedulerJobType, schedulerBeat, false)),
		present(record(jobrun.TriggererJobType, triggererBeat, true)),
	)

	got := encode(t, agg.GetHealth(context.Background()))
	want := `{"metadatabase":{"status":"healthy"},"scheduler":{"status":"unhealthy","latest_scheduler_heartbeat":"2024-01-01T00:00:00Z"},"triggerer":{"status":"healthy","latest_triggerer_heartbeat":"2024-01-01T00:05:00Z"}}`

	if got != want {
		t.Errorf("report =\n%s\nwant\n%s", got, want)
	}
}

func TestAggregator_ScenarioC(t *testing.T) {
	agg := NewAggregator(
		failing(errStoreDown),
		present(record(jobrun.TriggererJobType, triggererBeat, true)),
	)

	got := encode(t, agg.GetHealth(context.Background()))
	want := `{"metadatabase":{"status":"unhealthy"},"scheduler":{"status":"unhealthy","latest_scheduler_heartbeat":null},"triggerer":{"status":"healthy","latest_triggerer_heartbeat":"2024-01-01T00:05:00Z"}}`

	if got != want {
		t.Errorf("report =\n%s\nwant\n%s", got, want)
	}
}

func TestAggregator_HeartbeatNormalizedToUTC(t *testing.T) {
	local := schedulerBeat.In(time.FixedZone("CET", 3600))
	agg := NewAggregator(present(record(jobrun.SchedulerJobType, local, true)), absent())

	report := agg.GetHealth(context.Background())
	if report.Scheduler.LatestHeartbeat.Location() != time.UTC {
		t.Errorf("heartbeat location = %v, want UTC", report.Scheduler.LatestHeartbeat.Location())
	}
	if !report.Scheduler.LatestHeartbeat.Equal(schedulerBeat) {
		t.Errorf("heartbeat = %v, want %v", report.Scheduler.LatestHeartbeat, schedulerBeat)
	}
}

func TestAggregator_QueryTimeoutIsUnhealthy(t *testing.T) {
	slow := jobrun.SourceFunc(func(ctx context.Context) (*jobrun.Record, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	agg := NewAggregator(slow, absent(), WithQueryTimeout(10*time.Millisecond))

	start := time.Now()
	report := agg.GetHealth(context.Background())
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("GetHealth took %v, want it bounded by the query timeout", elapsed)
	}

	if report.Metadatabase.Status != StatusUnhealthy {
		t.Errorf("metadatabase = %q, want unhealthy", report.Metadatabase.Status)
	}
	if report.Scheduler.Status != StatusUnhealthy {
		t.Errorf("scheduler = %q, want unhealthy", report.Scheduler.Status)
	}
	if report.Triggerer.Status != nil {
		t.Errorf("triggerer = %q, want null", *report.Triggerer.Status)
	}
}

func TestAggregator_ParallelMatchesSequential(t *testing.T) {
	sched := present(record(jobrun.SchedulerJobType, schedulerBeat, true))
	trig := failing(errStoreDown)

	parallel := encode(t, NewAggregator(sched, trig, WithParallel(true)).GetHealth(context.Background()))
	sequential := encode(t, NewAggregator(sched, trig, WithParallel(false)).GetHealth(context.Background()))

	if parallel != sequential {
		t.Errorf("parallel =\n%s\nsequential =\n%s", parallel, sequential)
	}
}

func TestAggregator_QueriesRunConcurrently(t *testing.T) {
	var inflight, peak atomic.Int32
	release := make(chan struct{})

	src := jobrun.SourceFunc(func(ctx context.Context) (*jobrun.Record, error) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		if n == 2 {
			close(release)
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		inflight.Add(-1)
		return nil, nil
	})

	NewAggregator(src, src, WithQueryTimeout(time.Second)).GetHealth(context.Background())

	if peak.Load() != 2 {
		t.Errorf("peak concurrent queries = %d, want 2", peak.Load())
	}
}

func TestAggregator_NilSource(t *testing.T) {
	report := NewAggregator(nil, absent()).GetHealth(context.Background())

	if report.Metadatabase.Status != StatusUnhealthy {
		t.Errorf("metadatabase = %q, want unhealthy", report.Metadatabase.Status)
	}
	if report.Scheduler.Status != StatusUnhealthy {
		t.Errorf("scheduler = %q, want unhealthy", report.Scheduler.Status)
	}
}

func TestAggregator_RecordWithoutHeartbeat(t *testing.T) {
	rec := &jobrun.Record{JobType: jobrun.SchedulerJobType, State: jobrun.StateRunning}
	report := NewAggregator(present(rec), absent()).GetHealth(context.Background())

	if report.Scheduler.LatestHeartbeat != nil {
		t.Errorf("heartbeat = %v, want nil", report.Scheduler.LatestHeartbeat)
	}
	if report.Scheduler.Status != StatusUnhealthy {
		t.Errorf("scheduler = %q, want unhealthy", report.Scheduler.Status)
	}
}

func TestAggregator_LogsFailures(t *testing.T) {
	var logs bytes.Buffer
	logger := observe.NewLoggerWithWriter("warn", &logs)

	NewAggregator(failing(errStoreDown), absent(), WithLogger(logger)).GetHealth(context.Background())

	if !bytes.Contains(logs.Bytes(), []byte("connection refused")) {
		t.Errorf("expected failure in logs, got %q", logs.String())
	}
	if !bytes.Contains(logs.Bytes(), []byte(`"component.name":"scheduler"`)) {
		t.Errorf("expected component name in logs, got %q", logs.String())
	}
}

func TestAggregator_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	mw := observe.NewMiddleware(nil, metrics, nil)

	NewAggregator(failing(errStoreDown), absent(), WithMiddleware(mw)).GetHealth(context.Background())

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					counts[m.Name] += dp.Value
				}
			}
		}
	}

	if counts[observe.MetricQueryTotal] != 2 {
		t.Errorf("%s = %d, want 2", observe.MetricQueryTotal, counts[observe.MetricQueryTotal])
	}
	if counts[observe.MetricQueryErrors] != 1 {
		t.Errorf("%s = %d, want 1", observe.MetricQueryErrors, counts[observe.MetricQueryErrors])
	}
	if counts[observe.MetricStatus] != 3 {
		t.Errorf("%s = %d, want 3", observe.MetricStatus, counts[observe.MetricStatus])
	}
}

func TestReport_Ready(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   bool
	}{
		{
			name: "all healthy",
			report: Report{
				Metadatabase: MetadatabaseInfo{Status: StatusHealthy},
				Scheduler:    SchedulerInfo{Status: StatusHealthy},
				Triggerer:    TriggererInfo{Status: StatusHealthy.Ptr()},
			},
			want: true,
		},
		{
			name: "no triggerer",
			report: Report{
				Metadatabase: MetadatabaseInfo{Status: StatusHealthy},
				Scheduler:    SchedulerInfo{Status: StatusHealthy},
			},
			want: true,
		},
		{
			name: "triggerer unhealthy",
			report: Report{
				Metadatabase: MetadatabaseInfo{Status: StatusHealthy},
				Scheduler:    SchedulerInfo{Status: StatusHealthy},
				Triggerer:    TriggererInfo{Status: StatusUnhealthy.Ptr()},
			},
			want: false,
		},
		{
			name: "scheduler unhealthy",
			report: Report{
				Metadatabase: MetadatabaseInfo{Status: StatusHealthy},
				Scheduler:    SchedulerInfo{Status: StatusUnhealthy},
			},
			want: false,
		},
		{
			name: "metadatabase unhealthy",
			report: Report{
				Metadatabase: MetadatabaseInfo{Status: StatusUnhealthy},
				Scheduler:    SchedulerInfo{Status: StatusHealthy},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.report.Ready(); got != tt.want {
				t.Errorf("Ready() = %v, want %v", got, tt.want)
			}
		})
	}
}
