package commands

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leapstack-labs/morph/internal/resolve"
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the mapping against the source catalog",
		Long: `Resolve every conversion against the legacy database without moving data.
All failures are reported together: unknown tables and columns, paths that
are not foreign keys, incompatible field types and missing bindings.`,
		Example: `  morph validate
  morph validate --mapping specify.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}
}

func runValidate(cmd *cobra.Command) error {
	cc, cleanup, err := newCommandContext(cmd, needs{mapping: true, source: true, store: true})
	if err != nil {
		return err
	}
	defer cleanup()

	eng, err := cc.Engine()
	if err != nil {
		return err
	}

	run, err := cc.Store.CreateRun(cc.Cfg.Mapping)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	res, verr := eng.Validate(cmd.Context())
	status, msg := core.RunStatusValidated, ""
	if verr != nil {
		status, msg = core.RunStatusFailed, verr.Error()
	}
	if err := cc.Store.CompleteRun(run.ID, status, msg); err != nil {
		cc.Logger.Warn("failed to record run", "run_id", run.ID, "error", err)
	}

	w := cmd.OutOrStdout()
	if verr != nil {
		var ve *resolve.ValidationError
		if errors.As(verr, &ve) {
			t := newTable(w, "Record", "Field", "Error")
			for _, fe := range ve.Errors {
				t.AppendRow(table.Row{fe.Record, fe.Field, fe.Err.Error()})
			}
			t.Render()
			return fmt.Errorf("validation failed with %d error(s)", len(ve.Errors))
		}
		return verr
	}

	records := 0
	res.Walk(func(*resolve.Plan) { records++ })
	_, _ = fmt.Fprintf(w, "Mapping valid: %d records in %d schemas, %d source tables\n",
		records, len(res.Schemas), len(res.Catalog().Tables()))
	return nil
}
