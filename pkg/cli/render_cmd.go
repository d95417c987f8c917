package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newRenderCmd(d *deps) *cobra.Command {
	var (
		specPath      string
		templatesRoot string
		outputDir     string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the job's SQL from spec and templates",
		Long:  "Runs the full resolution pipeline and prints the rendered SQL for every query, or writes one .sql file per query.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := d.resolver.Resolve(specPath, templatesRoot)
			if err != nil {
				return err
			}

			if outputDir != "" {
				if err := os.MkdirAll(outputDir, 0o755); err != nil {
					return fmt.Errorf("create output dir: %w", err)
				}
				for _, q := range job.Queries {
					path := filepath.Join(outputDir, q.Name+".sql")
					if err := os.WriteFile(path, []byte(q.SQL+"\n"), 0o644); err != nil {
						return fmt.Errorf("write %s: %w", path, err)
					}
					d.logger.Info("rendered SQL written", "query", q.Name, "path", path)
				}
				return nil
			}

			if getOutputFormat(cmd) == "json" {
				queries := make([]map[string]any, 0, len(job.Queries))
				for _, q := range job.Queries {
					queries = append(queries, map[string]any{
						"name":        q.Name,
						"sql":         q.SQL,
						"destination": q.Destination.String(),
						"variables":   q.Variables,
					})
				}
				return printJSON(os.Stdout, map[string]any{
					"job_name": job.JobName,
					"queries":  queries,
				})
			}

			for i, q := range job.Queries {
				if len(job.Queries) > 1 {
					if i > 0 {
						fmt.Fprintln(os.Stdout)
					}
					fmt.Fprintf(os.Stdout, "-- query: %s\n", q.Name)
				}
				fmt.Fprintln(os.Stdout, q.SQL)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "Path to the job spec YAML file")
	cmd.Flags().StringVar(&templatesRoot, "templates-root", "", "Root directory containing SQL templates")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Write one .sql file per query instead of printing")
	_ = cmd.MarkFlagRequired("spec")
	_ = cmd.MarkFlagRequired("templates-root")

	return cmd
}
