// Package ddl projects a schema family onto target tables. Every record
// gets an "id" primary key holding its derived identifier, nested records
// reference their parent by a column named after the parent record, link
// fields reference the linked record's id, and tree records carry the
// tree_structure summary column.
package ddl

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/morph/internal/schema"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

// TableName returns the quoted target table of a record.
func TableName(d *dialect.Dialect, rec *schema.Record) string {
	return d.TableName(rec.Schema().Name(), rec.Name())
}

// Generate renders the statements creating the target schema.
func Generate(family *schema.Family, d *dialect.Dialect) ([]string, error) {
	if err := dialect.RequireTarget(d); err != nil {
		return nil, err
	}
	t := d.Target

	var stmts []string
	if t.CreateSchema != "" {
		for _, s := range family.Schemas() {
			stmts = append(stmts, fmt.Sprintf(t.CreateSchema, d.QuoteIdentifier(s.Name())))
		}
	}

	var constraints []string
	for _, rec := range family.Records() {
		stmt, deferred, err := createTable(d, rec)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		constraints = append(constraints, deferred...)
	}
	return append(stmts, constraints...), nil
}

// Drop renders the statements removing every target table, children first.
func Drop(family *schema.Family, d *dialect.Dialect) ([]string, error) {
	if err := dialect.RequireTarget(d); err != nil {
		return nil, err
	}
	records := family.Records()
	stmts := make([]string, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		stmt := "DROP TABLE IF EXISTS " + TableName(d, records[i])
		if d.Target.DropCascade {
			stmt += " CASCADE"
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

const deferrable = "DEFERRABLE INITIALLY DEFERRED"

// createTable renders one CREATE TABLE and, for dialects that need it,
// the link constraints to add afterwards.
func createTable(d *dialect.Dialect, rec *schema.Record) (string, []string, error) {
	t := d.Target
	table := TableName(d, rec)
	id := d.QuoteIdentifier(schema.IDColumn)

	cols := []string{fmt.Sprintf("%s %s PRIMARY KEY", id, t.UUIDType)}
	if parent := rec.Parent(); parent != nil {
		cols = append(cols, fmt.Sprintf("%s %s NOT NULL REFERENCES %s (%s) ON UPDATE CASCADE %s",
			d.QuoteIdentifier(rec.ParentColumn()), t.UUIDType, TableName(d, parent), id, deferrable))
	}

	var alters []string
	for _, f := range rec.Fields() {
		col := d.QuoteIdentifier(f.Name())
		if !f.IsLink() {
			typ, err := d.ColumnType(string(f.Kind()))
			if err != nil {
				return "", nil, fmt.Errorf("%s.%s: %w", rec.FullName(), f.Name(), err)
			}
			cols = append(cols, col+" "+typ)
			continue
		}

		ref := fmt.Sprintf("REFERENCES %s (%s) %s", TableName(d, f.Target()), id, deferrable)
		if t.AlterForeignKeys {
			name := d.QuoteIdentifier(rec.Name() + "_" + f.Name() + "_fkey")
			cols = append(cols, col+" "+t.UUIDType)
			alters = append(alters,
				fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", table, name),
				fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) %s", table, name, col, ref))
		} else {
			cols = append(cols, col+" "+t.UUIDType+" "+ref)
		}
	}

	if rec.IsTree() {
		cols = append(cols, d.QuoteIdentifier(schema.SummaryColumn)+" "+t.SummaryType)
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", table, strings.Join(cols, ",\n    "))
	return stmt, alters, nil
}
