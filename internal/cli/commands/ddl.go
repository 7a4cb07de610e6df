package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/morph/internal/ddl"
	"github.com/leapstack-labs/morph/pkg/dialect"
	"github.com/spf13/cobra"
)

// NewDDLCommand creates the ddl command.
func NewDDLCommand() *cobra.Command {
	var drop bool
	var dialectName string

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the target schema DDL",
		Long: `Print the CREATE statements of the target schema family for the target
dialect. Nothing is executed.`,
		Example: `  morph ddl
  morph ddl --dialect sqlite
  morph ddl --drop`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDDL(cmd, dialectName, drop)
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "Print DROP statements instead")
	cmd.Flags().StringVar(&dialectName, "dialect", "", "Target dialect (default: target.type)")

	return cmd
}

func runDDL(cmd *cobra.Command, dialectName string, drop bool) error {
	cc, cleanup, err := newCommandContext(cmd, needs{mapping: true})
	if err != nil {
		return err
	}
	defer cleanup()

	if dialectName == "" {
		if cc.Cfg.Target == nil {
			return fmt.Errorf("no target database configured\nHint: pass --dialect or add a target section to morph.yaml")
		}
		dialectName = cc.Cfg.Target.Type
	}
	d, ok := dialect.Get(strings.ToLower(dialectName))
	if !ok {
		return fmt.Errorf("unknown dialect %q (available: %s)", dialectName, strings.Join(dialect.List(), ", "))
	}

	gen := ddl.Generate
	if drop {
		gen = ddl.Drop
	}
	stmts, err := gen(cc.Mapping.Family, d)
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", stmt)
	}
	return nil
}
