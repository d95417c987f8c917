package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bqflow/internal/jobspec"
)

func newValidateCmd(d *deps) *cobra.Command {
	var (
		specPath      string
		templatesRoot string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a job spec offline",
		Long:  "Loads a job spec YAML file and checks it for errors, including template existence, without contacting BigQuery.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, issues, err := d.resolver.Validate(specPath, templatesRoot)
			if err != nil {
				return err
			}

			hasErrors := jobspec.HasErrors(issues)
			if getOutputFormat(cmd) == "json" {
				if err := printJSON(os.Stdout, map[string]any{
					"job_name": spec.JobName,
					"valid":    !hasErrors,
					"issues":   issues,
				}); err != nil {
					return err
				}
				if hasErrors {
					os.Exit(1)
				}
				return nil
			}

			if len(issues) > 0 {
				fmt.Fprintf(os.Stderr, "Spec has %d issue(s):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(os.Stderr, "  - %s\n", issue)
				}
			}
			if hasErrors {
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Job spec %q is valid.\n", spec.JobName)
			return nil
		},
	}

	cmd.Flags().StringVar(&specPath, "spec", "", "Path to the job spec YAML file")
	cmd.Flags().StringVar(&templatesRoot, "templates-root", "", "Root directory containing SQL templates")
	_ = cmd.MarkFlagRequired("spec")
	_ = cmd.MarkFlagRequired("templates-root")

	return cmd
}
