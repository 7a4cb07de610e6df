package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/morph/internal/ddl"
	"github.com/leapstack-labs/morph/internal/engine"
	"github.com/leapstack-labs/morph/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewConvertCommand creates the convert command.
func NewConvertCommand() *cobra.Command {
	var create, drop bool
	var format string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert the legacy database into the target",
		Long: `Validate the mapping against the source catalog, then copy every record
into the target database inside one transaction. Any failure rolls the whole
conversion back. The outcome is recorded in the run ledger.`,
		Example: `  # Convert into existing target tables
  morph convert

  # Create the target tables first
  morph convert --create

  # Recreate the target tables from scratch
  morph convert --drop`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return runConvert(cmd, create || drop, drop, format)
		},
	}

	cmd.Flags().BoolVar(&create, "create", false, "Create target tables before converting")
	cmd.Flags().BoolVar(&drop, "drop", false, "Drop and recreate target tables before converting")
	cmd.Flags().StringVarP(&format, "output", "o", formatTable, "Output format (table|json)")

	return cmd
}

func runConvert(cmd *cobra.Command, create, drop bool, format string) error {
	cc, cleanup, err := newCommandContext(cmd, needs{mapping: true, source: true, target: true, store: true})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if drop {
		stmts, err := ddl.Drop(cc.Mapping.Family, cc.Target.Dialect())
		if err != nil {
			return err
		}
		if err := execAll(ctx, cc.Target, stmts); err != nil {
			return fmt.Errorf("failed to drop target tables: %w", err)
		}
		cc.Logger.Info("dropped target tables", "statements", len(stmts))
	}
	if create {
		stmts, err := ddl.Generate(cc.Mapping.Family, cc.Target.Dialect())
		if err != nil {
			return err
		}
		if err := execAll(ctx, cc.Target, stmts); err != nil {
			return fmt.Errorf("failed to create target tables: %w", err)
		}
		cc.Logger.Info("created target tables", "statements", len(stmts))
	}

	eng, err := cc.Engine()
	if err != nil {
		return err
	}
	result, err := eng.Convert(ctx)
	if err != nil {
		if result != nil && result.RunID != "" {
			return fmt.Errorf("run %s failed: %w", result.RunID, err)
		}
		return err
	}

	if format == formatJSON {
		return renderJSON(cmd.OutOrStdout(), result)
	}
	renderRunResult(cmd.OutOrStdout(), result)
	return nil
}

func execAll(ctx context.Context, a adapter.Adapter, stmts []string) error {
	for _, stmt := range stmts {
		if err := a.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func renderRunResult(w io.Writer, result *engine.RunResult) {
	t := newTable(w, "Record", "Source", "Target", "Extracted", "Inserted", "Time")
	for _, rr := range result.Records {
		t.AppendRow(table.Row{rr.Record, rr.SourceTable, rr.TargetTable, rr.Extracted, rr.Inserted, formatDuration(rr.ExecutionMS)})
	}
	t.AppendFooter(table.Row{"Total", "", "", result.Extracted, result.Inserted, result.Duration.Round(time.Millisecond)})
	t.Render()

	_, _ = fmt.Fprintf(w, "Run %s completed: %d rows in %s\n", result.RunID, result.Inserted, result.Duration.Round(time.Millisecond))
}
