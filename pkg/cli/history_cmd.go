package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"bqflow/internal/history"
)

func newHistoryCmd(d *deps) *cobra.Command {
	var (
		jobName string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded dry-run and deploy outcomes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := history.Open(d.cfg.HistoryDB)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := history.NewStore(db).List(cmd.Context(), jobName, limit)
			if err != nil {
				return err
			}

			if getOutputFormat(cmd) == "json" {
				return printJSON(os.Stdout, map[string]any{"runs": runs})
			}

			if len(runs) == 0 {
				fmt.Fprintln(os.Stdout, "No runs recorded.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tJOB\tQUERY\tCOMMAND\tSTATUS\tBYTES\tMESSAGE")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					r.CreatedAt.Local().Format(time.DateTime),
					r.JobName, r.QueryName, r.Command, r.Status, r.BytesProcessed, r.Message)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&jobName, "job", "", "Filter by job name")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to show")

	return cmd
}

// recordHistory opens the history store and records rows via the supplied
// callback. Any storage failure is logged and swallowed; history must never
// fail the command that produced it.
func recordHistory(ctx context.Context, d *deps, jobName, command string, fill func(add func(query, status, message string, bytes int64))) {
	db, err := history.Open(d.cfg.HistoryDB)
	if err != nil {
		d.logger.Warn("history unavailable", "error", err)
		return
	}
	defer db.Close()

	store := history.NewStore(db)
	fill(func(query, status, message string, bytes int64) {
		err := store.Record(ctx, history.Run{
			JobName:        jobName,
			QueryName:      query,
			Command:        command,
			Status:         status,
			Message:        message,
			BytesProcessed: bytes,
		})
		if err != nil {
			d.logger.Warn("history record failed", "error", err)
		}
	})
}
