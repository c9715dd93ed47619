package main

import (
	"github.com/spf13/cobra"

	"github.com/jonwraymond/jobhealth/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobhealth",
		Short: "Health reporting for job scheduler and triggerer processes",
		Long: `jobhealth combines the liveness of the metadata store, the scheduler and
the triggerer into a single report.

Configuration precedence, lowest first: built-in defaults, the --config JSON
file, JOBHEALTH_* environment variables, command-line flags.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config", "", "path to a JSON config file")
	config.BindFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd(), newCheckCmd())
	return root
}
