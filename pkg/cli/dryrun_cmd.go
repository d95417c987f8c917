package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bqflow/internal/bigquery"
	"bqflow/internal/pipeline"
)

func newDryRunCmd(d *deps) *cobra.Command {
	var (
		specPath      string
		templatesRoot string
		project       string
	)

	cmd := &cobra.Command{
		Use:   "dry-run",
		Short: "Dry-run the job's rendered queries against BigQuery",
		Long:  "Renders the job and submits each query as a BigQuery dry-run, reporting estimated bytes processed without executing anything.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			job, err := d.resolver.Resolve(specPath, templatesRoot)
			if err != nil {
				return err
			}

			proj := resolveProject(project, d)
			if proj == "" {
				return fmt.Errorf("--project is required (or set BQFLOW_PROJECT)")
			}

			client, err := bigquery.NewClient(ctx, proj, d.logger, d.clientOpts...)
			if err != nil {
				return err
			}

			results, err := client.DryRunJob(ctx, job)
			recordDryRun(ctx, d, job, results, err)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]any{
					"job_name": job.JobName,
					"results":  results,
				})
			}

			fmt.Fprintf(os.Stdout, "Dry-run succeeded for job %q:\n", job.JobName)
			for _, r := range results {
				fmt.Fprintf(os.Stdout, "  %s: %d bytes estimated, %d slot-ms\n",
					r.Query, r.TotalBytesProcessed, r.TotalSlotMillis)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "Path to the job spec YAML file")
	cmd.Flags().StringVar(&templatesRoot, "templates-root", "", "Root directory containing SQL templates")
	cmd.Flags().StringVar(&project, "project", "", "GCP project id (defaults to BQFLOW_PROJECT)")
	_ = cmd.MarkFlagRequired("spec")
	_ = cmd.MarkFlagRequired("templates-root")

	return cmd
}

func resolveProject(flag string, d *deps) string {
	if flag != "" {
		return flag
	}
	return d.cfg.Project
}

// recordDryRun writes history rows for the dry-run outcome. History is
// best-effort: failures are logged, never returned.
func recordDryRun(ctx context.Context, d *deps, job *pipeline.ResolvedJob, results []bigquery.DryRunResult, runErr error) {
	recordHistory(ctx, d, job.JobName, "dry-run", func(add func(query, status, message string, bytes int64)) {
		if runErr != nil {
			add("", "failed", runErr.Error(), 0)
			return
		}
		for _, r := range results {
			add(r.Query, "ok", "", r.TotalBytesProcessed)
		}
	})
}
