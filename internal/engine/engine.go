// Package engine converts a schema family from a legacy source database
// into a target database. Records are converted depth-first, parents
// before children, inside one target transaction with foreign-key checks
// deferred to commit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/morph/internal/conversion"
	"github.com/leapstack-labs/morph/internal/ident"
	"github.com/leapstack-labs/morph/internal/resolve"
	"github.com/leapstack-labs/morph/internal/schema"
	"github.com/leapstack-labs/morph/pkg/adapter"
	"github.com/leapstack-labs/morph/pkg/core"
)

// DefaultBatchSize is the number of rows inserted per statement when the
// configuration does not say otherwise.
const DefaultBatchSize = 1000

// maxTreeDepth bounds the ancestor walk of tree summaries so a cycle in the
// source hierarchy cannot recurse forever.
const maxTreeDepth = 100

// Config holds engine configuration.
type Config struct {
	// Family is the target schema family.
	Family *schema.Family
	// Conversions declare how each record is read from the source.
	Conversions []conversion.Schema
	// Bindings are the conversions already bound to Family. Nil binds
	// Conversions.
	Bindings *conversion.Bindings
	// Source is the connected legacy database.
	Source adapter.Adapter
	// Target is the connected target database. Only Convert needs it.
	Target adapter.Adapter
	// Deriver derives identifiers. Nil uses the default namespace.
	Deriver *ident.Deriver
	// BatchSize is the number of rows per INSERT.
	BatchSize int
	// Workers bounds concurrent extraction. Values below 2 extract serially.
	Workers int
	// Store records runs in the ledger (optional).
	Store core.Store
	// Mapping names the mapping in the ledger.
	Mapping string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine converts one schema family.
type Engine struct {
	family    *schema.Family
	bindings  *conversion.Bindings
	source    adapter.Adapter
	target    adapter.Adapter
	deriver   *ident.Deriver
	resolver  *resolve.Resolver
	batchSize int
	workers   int
	store     core.Store
	mapping   string
	logger    *slog.Logger
}

// Check verifies that every record kind can be planned and converted. It
// needs no database and runs before any connection is opened.
func Check() error {
	return errors.Join(resolve.Verify(), verifyDispatch())
}

// New checks the definitions and creates an engine. Definition errors are
// reported before any database is touched.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Family == nil {
		return nil, fmt.Errorf("engine: schema family is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("engine: source adapter is required")
	}

	if err := Check(); err != nil {
		return nil, err
	}

	bindings := cfg.Bindings
	if bindings == nil {
		var err error
		if bindings, err = conversion.Bind(cfg.Family, cfg.Conversions...); err != nil {
			return nil, err
		}
	}

	resolver, err := resolve.New(cfg.Family, bindings, resolve.NewCatalog(cfg.Source), logger)
	if err != nil {
		return nil, err
	}

	deriver := cfg.Deriver
	if deriver == nil {
		deriver = ident.New(ident.DefaultRoot)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	logger.Debug("initializing engine",
		"records", len(cfg.Family.Records()),
		"batch_size", batchSize,
		"workers", cfg.Workers)

	return &Engine{
		family:    cfg.Family,
		bindings:  bindings,
		source:    cfg.Source,
		target:    cfg.Target,
		deriver:   deriver,
		resolver:  resolver,
		batchSize: batchSize,
		workers:   cfg.Workers,
		store:     cfg.Store,
		mapping:   cfg.Mapping,
		logger:    logger,
	}, nil
}

// Validate resolves every conversion against the source catalog without
// moving data. Failures are reported together as a *resolve.ValidationError.
func (e *Engine) Validate(ctx context.Context) (*resolve.Result, error) {
	e.logger.Info("validating conversions")
	res, err := e.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	n := 0
	res.Walk(func(*resolve.Plan) { n++ })
	e.logger.Info("validation passed", "records", n, "tables", len(res.Catalog().Tables()))
	return res, nil
}

// RecordPlan is the rendered extraction of one record.
type RecordPlan struct {
	Record   string
	Source   string
	Target   string
	SQL      string
	Args     []any
	TreeSQL  string
	TreeArgs []any
}

// Plan validates the conversions and renders each record's extraction SQL
// in conversion order.
func (e *Engine) Plan(ctx context.Context) ([]RecordPlan, error) {
	res, err := e.Validate(ctx)
	if err != nil {
		return nil, err
	}

	var out []RecordPlan
	var perr error
	res.Walk(func(p *resolve.Plan) {
		if perr != nil {
			return
		}
		sql, args, err := e.querySQL(p)
		if err != nil {
			perr = err
			return
		}
		rp := RecordPlan{
			Record: p.Record.FullName(),
			Source: p.Conv.Source,
			SQL:    sql,
			Args:   args,
		}
		if e.target != nil {
			rp.Target = targetTable(e.target.Dialect(), p.Record)
		}
		if p.Tree != nil {
			rp.TreeSQL, rp.TreeArgs = p.Tree.Select.SQL(e.source.Dialect())
		}
		out = append(out, rp)
	})
	return out, perr
}
