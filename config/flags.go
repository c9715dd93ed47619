package config

import (
	"github.com/spf13/pflag"
)

// BindFlags registers one flag per overridable setting, named after its
// dotted key. Flag defaults mirror Default so help output is accurate.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()

	fs.String("server.addr", d.Server.Addr, "HTTP listen address")
	fs.Duration("server.read_timeout", d.Server.ReadTimeout, "HTTP read timeout")
	fs.Duration("server.write_timeout", d.Server.WriteTimeout, "HTTP write timeout")
	fs.Duration("server.shutdown_timeout", d.Server.ShutdownTimeout, "graceful shutdown timeout")

	fs.String("database.driver", d.Database.Driver, "database driver (pgx or sqlite)")
	fs.String("database.dsn", "", "database DSN; accepts ${VAR} and secretref:<provider>:<ref>")
	fs.Int("database.max_open_conns", d.Database.MaxOpenConns, "maximum open connections")
	fs.String("database.table", d.Database.Table, "job table name")

	fs.String("health.scheduler_job_type", d.Health.SchedulerJobType, "job type of scheduler runs")
	fs.String("health.triggerer_job_type", d.Health.TriggererJobType, "job type of triggerer runs")
	fs.Duration("health.scheduler_threshold", d.Health.SchedulerThreshold, "scheduler heartbeat threshold")
	fs.Duration("health.triggerer_threshold", d.Health.TriggererThreshold, "triggerer heartbeat threshold")
	fs.Duration("health.query_timeout", d.Health.QueryTimeout, "timeout for each job query")
	fs.Bool("health.parallel", d.Health.Parallel, "run the scheduler and triggerer queries concurrently")

	fs.String("observe.logging.level", d.Observe.Logging.Level, "log level (debug, info, warn, error)")
	fs.String("observe.tracing.exporter", d.Observe.Tracing.Exporter, "trace exporter (otlp, stdout, none)")
	fs.String("observe.metrics.exporter", d.Observe.Metrics.Exporter, "metrics exporter (prometheus, otlp, stdout, none)")
}
