package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bqflow/internal/bigquery"
)

func newDeployCmd(d *deps) *cobra.Command {
	var (
		specPath      string
		templatesRoot string
		project       string
		location      string
		skipDryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the job as BigQuery scheduled queries",
		Long:  "Renders and dry-runs the job, then creates or updates one scheduled-query transfer config per query.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			job, err := d.resolver.Resolve(specPath, templatesRoot)
			if err != nil {
				return err
			}
			if job.Schedule == "" {
				return fmt.Errorf("job %q has no schedule; deploy requires one", job.JobName)
			}

			proj := resolveProject(project, d)
			if proj == "" {
				return fmt.Errorf("--project is required (or set BQFLOW_PROJECT)")
			}
			loc := location
			if loc == "" {
				loc = d.cfg.Location
			}

			// Mandatory dry-run: deploy acts on exactly what dry-run saw.
			if !skipDryRun {
				client, err := bigquery.NewClient(ctx, proj, d.logger, d.clientOpts...)
				if err != nil {
					return err
				}
				if _, err := client.DryRunJob(ctx, job); err != nil {
					return fmt.Errorf("dry-run before deploy failed: %w", err)
				}
			}

			deployer, err := bigquery.NewDeployer(ctx, proj, d.logger, d.clientOpts...)
			if err != nil {
				return err
			}

			deployed, err := deployer.Deploy(ctx, job, loc)
			recordHistory(ctx, d, job.JobName, "deploy", func(add func(query, status, message string, bytes int64)) {
				if err != nil {
					add("", "failed", err.Error(), 0)
					return
				}
				for _, cfg := range deployed {
					add(cfg.Query, "ok", cfg.Name, 0)
				}
			})
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]any{
					"job_name": job.JobName,
					"configs":  deployed,
				})
			}

			fmt.Fprintf(os.Stdout, "Deployed job %q:\n", job.JobName)
			for _, cfg := range deployed {
				action := "updated"
				if cfg.Created {
					action = "created"
				}
				fmt.Fprintf(os.Stdout, "  %s: %s %s\n", cfg.Query, action, cfg.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "Path to the job spec YAML file")
	cmd.Flags().StringVar(&templatesRoot, "templates-root", "", "Root directory containing SQL templates")
	cmd.Flags().StringVar(&project, "project", "", "GCP project id (defaults to BQFLOW_PROJECT)")
	cmd.Flags().StringVar(&location, "location", "", "BigQuery/transfer location (defaults to BQFLOW_LOCATION)")
	cmd.Flags().BoolVar(&skipDryRun, "skip-dry-run", false, "Skip the pre-deploy dry-run check")
	_ = cmd.MarkFlagRequired("spec")
	_ = cmd.MarkFlagRequired("templates-root")

	return cmd
}
