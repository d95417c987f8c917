// Package cli implements the bqflow command tree.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"bqflow/internal/config"
	"bqflow/internal/pipeline"
)

var (
	version = "dev"
	commit  = "none"
)

// deps carries the shared collaborators commands need. clientOpts is a test
// hook: integration tests point the Google API clients at a local server.
type deps struct {
	cfg        *config.Config
	logger     *slog.Logger
	resolver   *pipeline.Resolver
	clientOpts []option.ClientOption
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cfg := config.LoadFromEnv()
	logger := cfg.NewLogger()
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	rootCmd := newRootCmd(&deps{
		cfg:      cfg,
		logger:   logger,
		resolver: pipeline.NewResolver(logger),
	})
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			_ = printJSON(os.Stdout, map[string]any{"error": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(d *deps) *cobra.Command {
	var output string

	rootCmd := &cobra.Command{
		Use:           "bqflow",
		Short:         "Spec-driven SQL automation for BigQuery",
		Long:          "Validates declarative job specs, renders parameterized SQL, and manages BigQuery dry-runs and scheduled queries.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return validateOutputFormat(output)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	rootCmd.AddCommand(
		newValidateCmd(d),
		newRenderCmd(d),
		newScheduleCmd(d),
		newDryRunCmd(d),
		newDeployCmd(d),
		newHistoryCmd(d),
		newVersionCmd(),
	)

	return rootCmd
}
