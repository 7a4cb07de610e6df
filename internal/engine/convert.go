package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leapstack-labs/morph/internal/ddl"
	"github.com/leapstack-labs/morph/internal/dispatch"
	"github.com/leapstack-labs/morph/internal/ident"
	"github.com/leapstack-labs/morph/internal/query"
	"github.com/leapstack-labs/morph/internal/resolve"
	"github.com/leapstack-labs/morph/internal/schema"
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
	"golang.org/x/sync/errgroup"
)

type (
	queryFn       func(e *Engine, p *resolve.Plan) (string, []any, error)
	rowFn         func(e *Engine, p *resolve.Plan, raw []any) ([]any, error)
	postprocessFn func(ctx context.Context, e *Engine, tx *sql.Tx, p *resolve.Plan) error
)

var (
	queries        = dispatch.New[queryFn]("query")
	rowBuilders    = dispatch.New[rowFn]("row")
	postprocessors = dispatch.New[postprocessFn]("postprocess")
)

func init() {
	queries.Register(schema.KindRecord, recordQuery)
	rowBuilders.Register(schema.KindRecord, recordRow)
	postprocessors.Register(schema.KindRecord, func(context.Context, *Engine, *sql.Tx, *resolve.Plan) error { return nil })
	postprocessors.Register(schema.KindTree, flattenTree)
}

func verifyDispatch() error {
	kinds := schema.Kinds()
	return errors.Join(queries.Verify(kinds...), rowBuilders.Verify(kinds...), postprocessors.Verify(kinds...))
}

// RunResult summarizes one conversion.
type RunResult struct {
	RunID     string
	Records   []*core.RecordRun
	Extracted int64
	Inserted  int64
	Duration  time.Duration
}

// Convert validates the conversions and copies every record into the
// target inside one transaction. Any error rolls the whole family back.
func (e *Engine) Convert(ctx context.Context) (*RunResult, error) {
	if e.target == nil {
		return nil, fmt.Errorf("engine: target adapter is required to convert")
	}
	if err := dialect.RequireTarget(e.target.Dialect()); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	result := &RunResult{}
	if e.store != nil {
		run, err := e.store.CreateRun(e.mapping)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		result.RunID = run.ID
		e.logger.Debug("created run", "run_id", run.ID)
	}

	start := time.Now()
	err := e.convert(ctx, result)
	result.Duration = time.Since(start)

	if err != nil {
		e.logger.Info("conversion failed", "run_id", result.RunID, "error", err.Error())
	} else {
		e.logger.Info("conversion completed",
			"run_id", result.RunID,
			"records", len(result.Records),
			"rows", result.Inserted,
			"duration", result.Duration)
	}
	e.finishRun(result, err)
	return result, err
}

// finishRun writes the outcome to the ledger. Ledger failures are logged,
// never returned, since the conversion itself has already finished.
func (e *Engine) finishRun(result *RunResult, runErr error) {
	if e.store == nil {
		return
	}
	if runErr != nil {
		if err := e.store.CompleteRun(result.RunID, core.RunStatusFailed, runErr.Error()); err != nil {
			e.logger.Warn("failed to record run", "run_id", result.RunID, "error", err)
		}
		return
	}
	for _, rr := range result.Records {
		if err := e.store.RecordRecordRun(rr); err != nil {
			e.logger.Warn("failed to record record run", "record", rr.Record, "error", err)
		}
	}
	if err := e.store.CompleteRun(result.RunID, core.RunStatusCompleted, ""); err != nil {
		e.logger.Warn("failed to record run", "run_id", result.RunID, "error", err)
	}
}

func (e *Engine) convert(ctx context.Context, result *RunResult) (err error) {
	res, err := e.Validate(ctx)
	if err != nil {
		return err
	}

	d := e.target.Dialect()
	tx, err := e.target.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin target transaction: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			e.logger.Warn("rollback failed", "error", rbErr)
		}
	}()

	if stmt := d.Target.DeferConstraints; stmt != "" {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to defer constraints: %w", err)
		}
	}

	for _, sp := range res.Schemas {
		e.logger.Info("converting schema", "schema", sp.Schema.Name())

		var pre map[*resolve.Plan][][]any
		if pre, err = e.prefetch(ctx, sp); err != nil {
			return err
		}
		for _, p := range sp.Plans {
			if err = e.convertRecord(ctx, tx, d, p, pre, result); err != nil {
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversion: %w", err)
	}
	return nil
}

// prefetch extracts every record of a schema concurrently when more than
// one worker is configured. Insertion stays serial.
func (e *Engine) prefetch(ctx context.Context, sp *resolve.SchemaPlan) (map[*resolve.Plan][][]any, error) {
	if e.workers < 2 {
		return nil, nil
	}

	var plans []*resolve.Plan
	for _, p := range sp.Plans {
		p.Walk(func(p *resolve.Plan) { plans = append(plans, p) })
	}

	out := make(map[*resolve.Plan][][]any, len(plans))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, p := range plans {
		g.Go(func() error {
			rows, err := e.extract(gctx, p)
			if err != nil {
				return fmt.Errorf("convert %s: %w", p.Record.FullName(), err)
			}
			mu.Lock()
			out[p] = rows
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Debug("prefetched records", "schema", sp.Schema.Name(), "records", len(plans), "workers", e.workers)
	return out, nil
}

func (e *Engine) convertRecord(ctx context.Context, tx *sql.Tx, d *dialect.Dialect, p *resolve.Plan,
	pre map[*resolve.Plan][][]any, result *RunResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := p.Record.FullName()
	start := time.Now()
	rr := &core.RecordRun{
		RunID:       result.RunID,
		Record:      name,
		SourceTable: p.Conv.Source,
		TargetTable: targetTable(d, p.Record),
		StartedAt:   start.UTC(),
	}

	e.logger.Info("converting record", "record", name, "source", p.Conv.Source)

	raw, ok := pre[p]
	if !ok {
		var err error
		if raw, err = e.extract(ctx, p); err != nil {
			return fmt.Errorf("convert %s: %w", name, err)
		}
	}
	rr.Extracted = int64(len(raw))

	build, err := rowBuilders.Lookup(p.Record.Kind())
	if err != nil {
		return fmt.Errorf("convert %s: %w", name, err)
	}
	rows := make([][]any, 0, len(raw))
	for _, r := range raw {
		row, err := build(e, p, r)
		if err != nil {
			return fmt.Errorf("convert %s: %w", name, err)
		}
		rows = append(rows, row)
	}

	if rr.Inserted, err = e.insert(ctx, tx, d, rr.TargetTable, insertColumns(p), rows); err != nil {
		return fmt.Errorf("convert %s: %w", name, err)
	}

	post, err := postprocessors.Lookup(p.Record.Kind())
	if err != nil {
		return fmt.Errorf("convert %s: %w", name, err)
	}
	if err := post(ctx, e, tx, p); err != nil {
		return fmt.Errorf("convert %s: %w", name, err)
	}

	rr.ExecutionMS = time.Since(start).Milliseconds()
	result.Records = append(result.Records, rr)
	result.Extracted += rr.Extracted
	result.Inserted += rr.Inserted

	for _, c := range p.Children {
		if err := e.convertRecord(ctx, tx, d, c, pre, result); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) querySQL(p *resolve.Plan) (string, []any, error) {
	fn, err := queries.Lookup(p.Record.Kind())
	if err != nil {
		return "", nil, err
	}
	return fn(e, p)
}

func recordQuery(e *Engine, p *resolve.Plan) (string, []any, error) {
	stmt, args := p.Select.SQL(e.source.Dialect())
	return stmt, args, nil
}

// extract materializes every row of a record's query.
func (e *Engine) extract(ctx context.Context, p *resolve.Plan) ([][]any, error) {
	stmt, args, err := e.querySQL(p)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("extracting", "record", p.Record.FullName(), "sql", stmt)
	return e.queryAll(ctx, stmt, args...)
}

func (e *Engine) queryAll(ctx context.Context, stmt string, args ...any) ([][]any, error) {
	rows, err := e.source.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var out [][]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("extract: %w", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return out, nil
}

// recordRow builds one output row: own id, parent id, then one value per
// bound field.
func recordRow(e *Engine, p *resolve.Plan, raw []any) ([]any, error) {
	out := make([]any, 0, 2+len(p.Fields))
	out = append(out, e.deriver.Row(p.Table.Name, raw[0]))
	if p.ParentIndex >= 0 {
		out = append(out, e.deriver.Row(p.Parent.Table.Name, raw[p.ParentIndex]))
	}
	for _, f := range p.Fields {
		v := raw[f.Index]
		if f.Link != nil {
			out = append(out, e.deriver.Row(f.Link.Name, v))
			continue
		}
		cv, err := f.Conv.Apply(v)
		if err != nil {
			key, _ := ident.KeyText(raw[0])
			return nil, fmt.Errorf("row %s: field %s: %w", key, f.Target.Name(), err)
		}
		out = append(out, cv)
	}
	return out, nil
}

func insertColumns(p *resolve.Plan) []string {
	cols := make([]string, 0, 2+len(p.Fields))
	cols = append(cols, schema.IDColumn)
	if p.ParentIndex >= 0 {
		cols = append(cols, p.Record.ParentColumn())
	}
	for _, f := range p.Fields {
		cols = append(cols, f.Target.Name())
	}
	return cols
}

// insert writes rows in multi-row statements of at most batchSize rows,
// further capped by the dialect's bind parameter limit.
func (e *Engine) insert(ctx context.Context, tx *sql.Tx, d *dialect.Dialect, table string, cols []string, rows [][]any) (int64, error) {
	per := query.RowsPerStatement(d, len(cols), e.batchSize)
	var n int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		stmt, args := query.Insert(d, table, cols, rows[start:end])
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return n, fmt.Errorf("insert into %s: %w", table, err)
		}
		n += int64(end - start)
		e.logger.Info("inserted batch", "table", table, "rows", end-start, "total", n)
	}
	return n, nil
}

func targetTable(d *dialect.Dialect, rec *schema.Record) string {
	return ddl.TableName(d, rec)
}
