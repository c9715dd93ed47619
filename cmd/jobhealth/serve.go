package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/jobhealth/observe"
	"github.com/jonwraymond/jobhealth/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the health endpoints over HTTP",
		Long: `Serve the health report and probes until interrupted.

Endpoints:
  GET /api/v1/health  health report, always 200
  GET /healthz        liveness
  GET /readyz         200 when ready, 503 otherwise
  GET /metrics        Prometheus exposition (metrics exporter "prometheus")`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			a.logger.Warn(closeCtx, "shutdown incomplete", observe.F("error", err))
		}
	}()

	srv, err := newServer(a)
	if err != nil {
		return err
	}

	a.logger.Info(ctx, "jobhealth starting",
		observe.F("version", version),
		observe.F("driver", cfg.Database.Driver),
		observe.F("table", cfg.Database.Table),
	)
	return srv.Run(ctx)
}

// newServer mounts /metrics only when metrics export through Prometheus.
func newServer(a *app) (*server.Server, error) {
	cfg := a.cfg
	opts := []server.Option{server.WithLogger(a.logger)}
	if cfg.Observe.Metrics.Enabled && cfg.Observe.Metrics.Exporter == "prometheus" {
		opts = append(opts, server.WithMetricsHandler(promhttp.Handler()))
	}

	return server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, a.aggregator, opts...)
}
