package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errNotReady makes check exit non-zero when the report is not ready.
var errNotReady = errors.New("jobhealth: not ready")

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Print one health report and exit",
		Long: `Query the metadata store once, print the health report as JSON and exit.

The exit status is 0 when the metadata store and scheduler are healthy and
the triggerer is not unhealthy, and 1 otherwise.`,
		Args: cobra.NoArgs,
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	report := a.aggregator.GetHealth(ctx)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if !report.Ready() {
		return errNotReady
	}
	return nil
}
