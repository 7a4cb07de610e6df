package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/morph/internal/ddl"
	"github.com/leapstack-labs/morph/pkg/dialect"
	"github.com/spf13/cobra"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand() *cobra.Command {
	var showSQL bool
	var format string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the extraction query of every record",
		Long: `Validate the mapping and print, in conversion order, the source and target
table of every record. With --sql the rendered extraction queries are
printed as well.`,
		Example: `  morph plan
  morph plan --sql
  morph plan --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return runPlan(cmd, showSQL, format)
		},
	}

	cmd.Flags().BoolVar(&showSQL, "sql", false, "Print the extraction SQL")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format (table|json)")

	return cmd
}

func runPlan(cmd *cobra.Command, showSQL bool, format string) error {
	cc, cleanup, err := newCommandContext(cmd, needs{mapping: true, source: true})
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := cc.Engine()
	if err != nil {
		return err
	}
	plans, err := eng.Plan(cmd.Context())
	if err != nil {
		return err
	}

	if t := cc.Cfg.Target; t != nil {
		if d, ok := dialect.Get(strings.ToLower(t.Type)); ok && d.CanTarget() {
			for i := range plans {
				if rec, ok := cc.Mapping.Family.Record(plans[i].Record); ok {
					plans[i].Target = ddl.TableName(d, rec)
				}
			}
		}
	}

	w := cmd.OutOrStdout()
	if format == formatJSON {
		return renderJSON(w, plans)
	}

	t := newTable(w, "#", "Record", "Source", "Target")
	for i, p := range plans {
		t.AppendRow(table.Row{i + 1, p.Record, p.Source, p.Target})
	}
	t.Render()

	if showSQL {
		for _, p := range plans {
			_, _ = fmt.Fprintf(w, "\n-- %s\n%s;\n", p.Record, p.SQL)
			if len(p.Args) > 0 {
				_, _ = fmt.Fprintf(w, "-- args: %v\n", p.Args)
			}
			if p.TreeSQL != "" {
				_, _ = fmt.Fprintf(w, "-- %s hierarchy\n%s;\n", p.Record, p.TreeSQL)
			}
		}
	}
	return nil
}
