package jobrun

import "time"

// State is the lifecycle state of a job run.
type State string

const (
	StateRunning    State = "running"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
	StateRestarting State = "restarting"
	StateShutdown   State = "shutdown"
)

// Well-known job types.
const (
	SchedulerJobType = "SchedulerJob"
	TriggererJobType = "TriggererJob"
)

// Record is the most recent execution attempt of a background job.
type Record struct {
	ID              int64
	JobType         string
	State           State
	Hostname        string
	StartDate       time.Time
	LatestHeartbeat time.Time

	// Alive is the liveness verdict computed by the Source when the record
	// was read.
	Alive bool
}

// IsAlive reports whether the job was considered alive when read.
func (r *Record) IsAlive() bool {
	return r != nil && r.Alive
}

// HasHeartbeat reports whether the record carries a heartbeat timestamp.
func (r *Record) HasHeartbeat() bool {
	return r != nil && !r.LatestHeartbeat.IsZero()
}

// LivenessPolicy decides whether a run record is alive.
type LivenessPolicy struct {
	// Threshold is the maximum heartbeat age of a live job.
	// Default: 30 seconds
	Threshold time.Duration
}

// DefaultLivenessThreshold is used when LivenessPolicy.Threshold is unset.
const DefaultLivenessThreshold = 30 * time.Second

// Evaluate reports whether rec is running and its heartbeat is younger than
// the threshold at now.
func (p LivenessPolicy) Evaluate(rec *Record, now time.Time) bool {
	if rec == nil || rec.State != StateRunning || rec.LatestHeartbeat.IsZero() {
		return false
	}
	threshold := p.Threshold
	if threshold <= 0 {
		threshold = DefaultLivenessThreshold
	}
	return now.Sub(rec.LatestHeartbeat) < threshold
}
