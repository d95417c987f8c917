package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bqflow/internal/jobspec"
)

func newScheduleCmd(_ *deps) *cobra.Command {
	var (
		specPath string
		count    int
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview upcoming fire times for the job's schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, err := jobspec.Load(specPath)
			if err != nil {
				return err
			}
			if spec.Schedule == "" {
				return fmt.Errorf("job %q has no schedule", spec.JobName)
			}

			runs, err := jobspec.NextRuns(spec.Schedule, time.Now(), count)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				times := make([]string, len(runs))
				for i, t := range runs {
					times[i] = t.Format(time.RFC3339)
				}
				return printJSON(os.Stdout, map[string]any{
					"job_name": spec.JobName,
					"schedule": spec.Schedule,
					"next":     times,
				})
			}

			fmt.Fprintf(os.Stdout, "Job %q (schedule %q) next runs:\n", spec.JobName, spec.Schedule)
			for _, t := range runs {
				fmt.Fprintf(os.Stdout, "  %s\n", t.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "Path to the job spec YAML file")
	cmd.Flags().IntVar(&count, "count", 5, "Number of upcoming runs to show")
	_ = cmd.MarkFlagRequired("spec")

	return cmd
}
