// Package config loads the service configuration from defaults, an optional
// JSON file, JOBHEALTH_* environment variables and command-line flags, in
// that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/jobhealth/jobrun"
	"github.com/jonwraymond/jobhealth/observe"
)

var (
	// ErrInvalidDriver indicates an unsupported database driver.
	ErrInvalidDriver = errors.New("config: invalid database driver")

	// ErrMissingDSN indicates database.dsn is empty.
	ErrMissingDSN = errors.New("config: database dsn is required")

	// ErrInvalidDuration indicates a non-positive duration setting.
	ErrInvalidDuration = errors.New("config: duration must be positive")

	// ErrMissingJobType indicates an empty job type.
	ErrMissingJobType = errors.New("config: job type is required")
)

type Config struct {
	Server   Server   `koanf:"server" json:"server"`
	Database Database `koanf:"database" json:"database"`
	Health   Health   `koanf:"health" json:"health"`
	Observe  Observe  `koanf:"observe" json:"observe"`
}

type Server struct {
	Addr            string        `koanf:"addr" json:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

type Database struct {
	Driver       string `koanf:"driver" json:"driver"`
	DSN          string `koanf:"dsn" json:"-"`
	MaxOpenConns int    `koanf:"max_open_conns" json:"max_open_conns"`
	Table        string `koanf:"table" json:"table"`
}

type Health struct {
	SchedulerJobType   string        `koanf:"scheduler_job_type" json:"scheduler_job_type"`
	TriggererJobType   string        `koanf:"triggerer_job_type" json:"triggerer_job_type"`
	SchedulerThreshold time.Duration `koanf:"scheduler_threshold" json:"scheduler_threshold"`
	TriggererThreshold time.Duration `koanf:"triggerer_threshold" json:"triggerer_threshold"`
	QueryTimeout       time.Duration `koanf:"query_timeout" json:"query_timeout"`
	Parallel           bool          `koanf:"parallel" json:"parallel"`
}

type Observe struct {
	ServiceName string  `koanf:"service_name" json:"service_name"`
	Version     string  `koanf:"version" json:"version"`
	Tracing     Tracing `koanf:"tracing" json:"tracing"`
	Metrics     Metrics `koanf:"metrics" json:"metrics"`
	Logging     Logging `koanf:"logging" json:"logging"`
}

type Tracing struct {
	Enabled   bool    `koanf:"enabled" json:"enabled"`
	Exporter  string  `koanf:"exporter" json:"exporter"`
	SamplePct float64 `koanf:"sample_pct" json:"sample_pct"`
}

type Metrics struct {
	Enabled  bool   `koanf:"enabled" json:"enabled"`
	Exporter string `koanf:"exporter" json:"exporter"`
}

type Logging struct {
	Enabled bool   `koanf:"enabled" json:"enabled"`
	Level   string `koanf:"level" json:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: Database{
			Driver:       jobrun.DriverPostgres,
			MaxOpenConns: 4,
			Table:        "job",
		},
		Health: Health{
			SchedulerJobType:   jobrun.SchedulerJobType,
			TriggererJobType:   jobrun.TriggererJobType,
			SchedulerThreshold: 30 * time.Second,
			TriggererThreshold: 30 * time.Second,
			QueryTimeout:       5 * time.Second,
			Parallel:           true,
		},
		Observe: Observe{
			ServiceName: "jobhealth",
			Tracing:     Tracing{Exporter: "none", SamplePct: 1.0},
			Metrics:     Metrics{Enabled: true, Exporter: "prometheus"},
			Logging:     Logging{Enabled: true, Level: "info"},
		},
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case jobrun.DriverPostgres, jobrun.DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidDriver, c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, ErrMissingDSN)
	}

	durations := []struct {
		key string
		d   time.Duration
	}{
		{"server.read_timeout", c.Server.ReadTimeout},
		{"server.write_timeout", c.Server.WriteTimeout},
		{"server.shutdown_timeout", c.Server.ShutdownTimeout},
		{"health.scheduler_threshold", c.Health.SchedulerThreshold},
		{"health.triggerer_threshold", c.Health.TriggererThreshold},
		{"health.query_timeout", c.Health.QueryTimeout},
	}
	for _, v := range durations {
		if v.d <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s = %s", ErrInvalidDuration, v.key, v.d))
		}
	}

	if c.Health.SchedulerJobType == "" {
		errs = append(errs, fmt.Errorf("%w: health.scheduler_job_type", ErrMissingJobType))
	}
	if c.Health.TriggererJobType == "" {
		errs = append(errs, fmt.Errorf("%w: health.triggerer_job_type", ErrMissingJobType))
	}

	obs := c.ObserveConfig()
	if err := obs.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ObserveConfig converts the observe section.
func (c Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName: c.Observe.ServiceName,
		Version:     c.Observe.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Observe.Tracing.Enabled,
			Exporter:  c.Observe.Tracing.Exporter,
			SamplePct: c.Observe.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Observe.Metrics.Enabled,
			Exporter: c.Observe.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: c.Observe.Logging.Enabled,
			Level:   c.Observe.Logging.Level,
		},
	}
}

// DBConfig converts the database section.
func (c Config) DBConfig() jobrun.DBConfig {
	return jobrun.DBConfig{
		Driver:       c.Database.Driver,
		DSN:          c.Database.DSN,
		MaxOpenConns: c.Database.MaxOpenConns,
	}
}

// StoreConfig converts the database section for jobrun.NewStore.
func (c Config) StoreConfig() jobrun.StoreConfig {
	return jobrun.StoreConfig{
		Table:  c.Database.Table,
		Driver: c.Database.Driver,
	}
}
