package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/jobhealth/config"
	"github.com/jonwraymond/jobhealth/health"
	"github.com/jonwraymond/jobhealth/jobrun"
	"github.com/jonwraymond/jobhealth/observe"
)

// app holds everything a command needs, built once from the config.
type app struct {
	cfg        config.Config
	db         *sql.DB
	observer   observe.Observer
	logger     observe.Logger
	aggregator *health.Aggregator
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	var sources []*config.Source
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		sources = append(sources, config.NewJsonFileSource(path))
	}
	sources = append(sources, config.NewEnvVarSource(), config.NewPFlagSource(cmd.Flags()))

	return config.Load(cmd.Context(), config.NewSecretResolver(), sources...)
}

// newApp opens the metadata store and wires the aggregator. logOut receives
// log lines; nil means stderr.
func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	obsCfg := cfg.ObserveConfig()
	obsCfg.Version = firstNonEmpty(obsCfg.Version, version)
	obsCfg.Output = logOut

	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}
	logger := obs.Logger()

	db, err := jobrun.OpenDB(ctx, cfg.DBConfig())
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	// An unreachable store is reported through the health report, not here.
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Health.QueryTimeout)
	if err := jobrun.Ping(pingCtx, db); err != nil {
		logger.Warn(ctx, "metadata store unreachable at startup",
			observe.F("driver", cfg.Database.Driver),
			observe.F("error", err),
		)
	}
	cancel()

	store, err := jobrun.NewStore(db, cfg.StoreConfig())
	if err != nil {
		_ = db.Close()
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = db.Close()
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("failed to set up query middleware: %w", err)
	}

	h := cfg.Health
	agg := health.NewAggregator(
		store.Source(h.SchedulerJobType, jobrun.LivenessPolicy{Threshold: h.SchedulerThreshold}),
		store.Source(h.TriggererJobType, jobrun.LivenessPolicy{Threshold: h.TriggererThreshold}),
		health.WithJobTypes(h.SchedulerJobType, h.TriggererJobType),
		health.WithParallel(h.Parallel),
		health.WithQueryTimeout(h.QueryTimeout),
		health.WithLogger(logger),
		health.WithMiddleware(mw),
	)

	return &app{
		cfg:        cfg,
		db:         db,
		observer:   obs,
		logger:     logger,
		aggregator: agg,
	}, nil
}

// Close releases the database and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.db.Close(), a.observer.Shutdown(ctx))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
