// Command jobhealth reports the health of a job-processing platform's
// metadata store, scheduler and triggerer.
//
// Usage:
//
//	# Serve /api/v1/health, /healthz, /readyz and /metrics
//	jobhealth serve --config /etc/jobhealth.json
//
//	# Print one report; exit status 1 unless ready
//	jobhealth check --database.driver sqlite --database.dsn ./airflow.db
//
// Settings come from defaults, the --config JSON file, JOBHEALTH_*
// environment variables (JOBHEALTH_DATABASE__DSN) and flags, in that order.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
