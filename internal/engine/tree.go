package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/leapstack-labs/morph/internal/conversion"
	"github.com/leapstack-labs/morph/internal/resolve"
	"github.com/leapstack-labs/morph/internal/schema"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

// flattenTree runs the record post-processing, then stores each node's
// ancestor-path summary.
func flattenTree(ctx context.Context, e *Engine, tx *sql.Tx, p *resolve.Plan) error {
	next, err := postprocessors.Next(p.Record.Kind())
	if err != nil {
		return err
	}
	if err := next(ctx, e, tx, p); err != nil {
		return err
	}
	if p.Tree == nil {
		return fmt.Errorf("tree %s has no hierarchy plan", p.Record.FullName())
	}
	return e.flatten(ctx, tx, p)
}

// flatten copies the hierarchy into a scratch table keyed by derived ids,
// computes summaries from the roots down, writes them to the record's
// table and drops the scratch table.
func (e *Engine) flatten(ctx context.Context, tx *sql.Tx, p *resolve.Plan) error {
	d := e.target.Dialect()
	rec := p.Record
	scratch := d.TableName(rec.Schema().Name(), rec.Name()+"ConversionScratch")

	stmt, args := p.Tree.Select.SQL(e.source.Dialect())
	nodes, err := e.queryAll(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("read hierarchy: %w", err)
	}

	declared := make(map[string]bool, len(p.Tree.Ranks))
	for _, r := range p.Tree.Ranks {
		declared[r] = true
	}
	undeclared := make(map[string]bool)

	rows := make([][]any, 0, len(nodes))
	for _, n := range nodes {
		name, _ := conversion.ToText(n[2])
		rank, _ := conversion.ToText(n[3])
		if r, ok := rank.(string); ok && !declared[r] && !undeclared[r] {
			undeclared[r] = true
			e.logger.Debug("rank outside declared sequence", "record", rec.FullName(), "rank", r)
		}
		rows = append(rows, []any{
			e.deriver.Row(p.Table.Name, n[0]),
			e.deriver.Row(p.Table.Name, n[1]),
			name,
			rank,
		})
	}

	create, err := scratchDDL(d, scratch)
	if err != nil {
		return err
	}
	for _, stmt := range []string{"DROP TABLE IF EXISTS " + scratch, create} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create scratch table: %w", err)
		}
	}

	if _, err := e.insert(ctx, tx, d, scratch, []string{"id", "p_id", "name", "rank"}, rows); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, summarySQL(d, targetTable(d, rec), scratch))
	if err != nil {
		return fmt.Errorf("compute tree summaries: %w", err)
	}
	updated, _ := res.RowsAffected()
	e.logger.Info("flattened tree", "record", rec.FullName(), "nodes", len(rows), "updated", updated)

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+scratch); err != nil {
		return fmt.Errorf("drop scratch table: %w", err)
	}
	return nil
}

func scratchDDL(d *dialect.Dialect, table string) (string, error) {
	text, err := d.ColumnType(string(schema.FieldText))
	if err != nil {
		return "", err
	}
	id := d.Target.UUIDType
	return fmt.Sprintf("CREATE TABLE %s (%s %s NOT NULL, %s %s, %s %s NOT NULL, %s %s NOT NULL)",
		table,
		d.QuoteIdentifier("id"), id,
		d.QuoteIdentifier("p_id"), id,
		d.QuoteIdentifier("name"), text,
		d.QuoteIdentifier("rank"), text,
	), nil
}

// summarySQL walks the scratch hierarchy from its roots and stores each
// node's summary on the matching target row. Root summaries hold one
// rank/name pair; each child adds its own pair to its parent's summary.
func summarySQL(d *dialect.Dialect, target, scratch string) string {
	q := d.QuoteIdentifier
	rank, name := "s."+q("rank"), "s."+q("name")
	root := fmt.Sprintf(d.Target.SummaryRoot, rank, name)
	extend := fmt.Sprintf(d.Target.SummaryExtend, "nodes.summary", rank, name)

	return fmt.Sprintf("WITH RECURSIVE nodes (id, summary, depth) AS ("+
		"SELECT s.%[1]s, %[2]s, 1 FROM %[3]s AS s WHERE s.%[4]s IS NULL"+
		" UNION ALL "+
		"SELECT s.%[1]s, %[5]s, nodes.depth + 1 FROM %[3]s AS s JOIN nodes ON s.%[4]s = nodes.id WHERE nodes.depth < %[6]d"+
		") UPDATE %[7]s SET %[8]s = (SELECT nodes.summary FROM nodes WHERE nodes.id = %[7]s.%[9]s)"+
		" WHERE %[9]s IN (SELECT id FROM nodes)",
		q("id"), root, scratch, q("p_id"), extend, maxTreeDepth,
		target, q(schema.SummaryColumn), q(schema.IDColumn))
}
