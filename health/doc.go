// Package health reports the combined liveness of the job-processing
// platform: its metadata store, its scheduler and its (optional) triggerer.
//
// The Aggregator asks two jobrun.Source collaborators for their most recent
// run record and folds the outcomes into a Report. It never returns an error:
// a failed lookup degrades the report instead, because a health endpoint that
// fails defeats its purpose.
//
// # Status derivation
//
//   - A lookup error marks the metadatabase unhealthy and leaves the component
//     unhealthy with no heartbeat.
//   - A missing scheduler record is unhealthy. A missing triggerer record is
//     null: deployments may run without a triggerer.
//   - A present record contributes its heartbeat, and is healthy iff it is alive.
//
// # Usage
//
//	agg := health.NewAggregator(schedulerSource, triggererSource,
//	    health.WithQueryTimeout(5*time.Second),
//	)
//
//	report := agg.GetHealth(ctx)
//	if !report.Ready() {
//	    log.Printf("degraded: %+v", report)
//	}
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg)
//	// GET /api/v1/health  full report, always 200
//	// GET /healthz        liveness
//	// GET /readyz         200 when Ready, 503 otherwise
package health
