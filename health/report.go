package health

import "time"

// Report section names.
const (
	SectionMetadatabase = "metadatabase"
	SectionScheduler    = "scheduler"
	SectionTriggerer    = "triggerer"
)

// Report is the combined health of the platform. It is built fresh on every
// call and encodes to the wire contract of the health endpoint.
type Report struct {
	Metadatabase MetadatabaseInfo `json:"metadatabase"`
	Scheduler    SchedulerInfo    `json:"scheduler"`
	Triggerer    TriggererInfo    `json:"triggerer"`
}

// MetadatabaseInfo is the metadata store section.
type MetadatabaseInfo struct {
	Status Status `json:"status"`
}

// SchedulerInfo is the scheduler section.
type SchedulerInfo struct {
	Status          Status     `json:"status"`
	LatestHeartbeat *time.Time `json:"latest_scheduler_heartbeat"`
}

// TriggererInfo is the triggerer section. A nil Status means no triggerer
// has ever run, which is not a fault.
type TriggererInfo struct {
	Status          *Status    `json:"status"`
	LatestHeartbeat *time.Time `json:"latest_triggerer_heartbeat"`
}

// Ready reports whether the platform can do work: the metadata store and the
// scheduler are healthy and the triggerer, if one exists, is not unhealthy.
func (r Report) Ready() bool {
	if r.Metadatabase.Status != StatusHealthy || r.Scheduler.Status != StatusHealthy {
		return false
	}
	return r.Triggerer.Status == nil || *r.Triggerer.Status == StatusHealthy
}

// TriggererStatus returns the triggerer status, or "" when it is null.
func (r Report) TriggererStatus() Status {
	if r.Triggerer.Status == nil {
		return ""
	}
	return *r.Triggerer.Status
}
