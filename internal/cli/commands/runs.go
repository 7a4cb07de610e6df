package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded conversion runs",
		Long: `List the most recent runs from the run ledger. Given a run id, show the
per-record counts of that run.`,
		Example: `  morph runs
  morph runs --limit 5
  morph runs 3f1c9a2e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if len(args) == 1 {
				return runShowRun(cmd, args[0], format)
			}
			return runListRuns(cmd, limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format (table|json)")

	return cmd
}

func runListRuns(cmd *cobra.Command, limit int, format string) error {
	cc, cleanup, err := newCommandContext(cmd, needs{store: true})
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := cc.Store.ListRuns(limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == formatJSON {
		return renderJSON(w, runs)
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, "No runs recorded")
		return nil
	}

	t := newTable(w, "Run", "Mapping", "Status", "Started", "Completed", "Error")
	for _, r := range runs {
		t.AppendRow(table.Row{r.ID, r.Mapping, r.Status, formatTime(&r.StartedAt), formatTime(r.CompletedAt), firstLine(r.Error)})
	}
	t.Render()
	return nil
}

func runShowRun(cmd *cobra.Command, id, format string) error {
	cc, cleanup, err := newCommandContext(cmd, needs{store: true})
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := cc.Store.GetRun(id)
	if err != nil {
		return err
	}
	records, err := cc.Store.GetRecordRunsForRun(id)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == formatJSON {
		return renderJSON(w, map[string]any{"run": run, "records": records})
	}

	_, _ = fmt.Fprintf(w, "Run %s (%s)\n  mapping: %s\n  started: %s\n  completed: %s\n",
		run.ID, run.Status, run.Mapping, formatTime(&run.StartedAt), formatTime(run.CompletedAt))
	if run.Error != "" {
		_, _ = fmt.Fprintf(w, "  error: %s\n", run.Error)
	}
	if len(records) == 0 {
		return nil
	}

	t := newTable(w, "Record", "Source", "Target", "Extracted", "Inserted", "Time")
	for _, rr := range records {
		t.AppendRow(table.Row{rr.Record, rr.SourceTable, rr.TargetTable, rr.Extracted, rr.Inserted, formatDuration(rr.ExecutionMS)})
	}
	t.Render()
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
