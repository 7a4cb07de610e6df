// Package resolve validates conversions against the live source catalog
// and turns them into extraction plans. Every field path is walked through
// reflected foreign keys and reverse joins; every failure of one pass is
// collected and reported together before any data moves.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/morph/internal/conversion"
	"github.com/leapstack-labs/morph/internal/dispatch"
	"github.com/leapstack-labs/morph/internal/query"
	"github.com/leapstack-labs/morph/internal/schema"
	"github.com/leapstack-labs/morph/pkg/core"
)

// reflectFn resolves one record. It returns nil when the record cannot be
// planned at all; failures are recorded on the pass.
type reflectFn func(ctx context.Context, ps *pass, rec *schema.Record, parent *Plan) *Plan

var reflectors = dispatch.New[reflectFn]("reflect")

func init() {
	reflectors.Register(schema.KindRecord, reflectRecord)
	reflectors.Register(schema.KindTree, reflectTree)
}

// Resolver plans the conversion of a family.
type Resolver struct {
	family   *schema.Family
	bindings *conversion.Bindings
	catalog  *Catalog
	logger   *slog.Logger
}

// Verify checks that every record kind has a reflect implementation.
func Verify() error {
	return reflectors.Verify(schema.Kinds()...)
}

// New creates a resolver. It fails when a record kind has no reflect
// implementation.
func New(family *schema.Family, bindings *conversion.Bindings, catalog *Catalog, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := Verify(); err != nil {
		return nil, err
	}
	return &Resolver{family: family, bindings: bindings, catalog: catalog, logger: logger}, nil
}

type pass struct {
	*Resolver
	errs []*FieldError
}

func (ps *pass) fail(rec *schema.Record, field string, err error) {
	ps.errs = append(ps.errs, &FieldError{Record: rec.FullName(), Field: field, Err: err})
}

// Resolve validates every converted record and returns the plans. The
// error is a *ValidationError listing every failure.
func (r *Resolver) Resolve(ctx context.Context) (*Result, error) {
	ps := &pass{Resolver: r}
	res := &Result{catalog: r.catalog}

	for _, s := range r.family.Schemas() {
		if s.Skip() {
			r.logger.Debug("skipping schema", "schema", s.Name())
			continue
		}
		sp := &SchemaPlan{Schema: s}
		for _, rec := range s.Records() {
			if p := ps.resolve(ctx, rec, nil); p != nil {
				sp.Plans = append(sp.Plans, p)
			}
		}
		res.Schemas = append(res.Schemas, sp)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(ps.errs) > 0 {
		return nil, &ValidationError{Errors: ps.errs}
	}
	return res, nil
}

// resolve plans a record and its children. Skipped records are left out
// together with their descendants.
func (ps *pass) resolve(ctx context.Context, rec *schema.Record, parent *Plan) *Plan {
	if rec.Skip() {
		ps.logger.Debug("skipping record", "record", rec.FullName())
		return nil
	}
	fn, err := reflectors.Lookup(rec.Kind())
	if err != nil {
		ps.fail(rec, "", err)
		return nil
	}
	p := fn(ctx, ps, rec, parent)
	for _, child := range rec.Children() {
		if cp := ps.resolve(ctx, child, p); cp != nil && p != nil {
			p.Children = append(p.Children, cp)
		}
	}
	return p
}

func reflectRecord(ctx context.Context, ps *pass, rec *schema.Record, parent *Plan) *Plan {
	conv, ok := ps.bindings.Record(rec)
	if !ok {
		ps.fail(rec, "", fmt.Errorf("%w: no conversion declared", ErrMissingBinding))
		return nil
	}
	if conv.Source == "" {
		ps.fail(rec, "", fmt.Errorf("%w: no source table", ErrMissingBinding))
		return nil
	}
	meta, err := ps.catalog.Table(ctx, conv.Source)
	if err != nil {
		ps.fail(rec, "", err)
		return nil
	}
	pk, err := meta.PK()
	if err != nil {
		ps.fail(rec, "", fmt.Errorf("%w: %w", ErrNoPrimaryKey, err))
		return nil
	}

	p := &Plan{Record: rec, Conv: conv, Table: meta, PK: pk, Parent: parent, ParentIndex: -1}
	b := newSelectBuilder(conv.Source, meta)
	b.column(b.root.Col(pk))

	if rec.Parent() != nil {
		switch c, ok := meta.Column(conv.ParentColumn); {
		case conv.ParentColumn == "":
			ps.fail(rec, "", fmt.Errorf("%w: no parent column", ErrMissingBinding))
		case !ok:
			ps.fail(rec, "", fmt.Errorf("parent column: %w %s on table %s", ErrUnknownColumn, conv.ParentColumn, meta.Name))
		default:
			p.ParentColumn = c.Name
			p.ParentIndex = b.column(b.root.Col(c.Name))
			b.ancestors(c.Name, parent)
		}
	}

	if conv.Where != nil {
		e := conv.Where(b.root)
		if err := b.root.Err(); err != nil {
			ps.fail(rec, "where", err)
		} else {
			b.where(e)
		}
	}

	if conv.OrderBy != "" {
		if c, ok := meta.Column(conv.OrderBy); ok {
			b.sel.OrderBy = append(b.sel.OrderBy, b.root.Col(c.Name))
		} else {
			ps.fail(rec, "order_by", fmt.Errorf("%w %s on table %s", ErrUnknownColumn, conv.OrderBy, meta.Name))
		}
	}

	for _, tf := range rec.Fields() {
		cf, ok := conv.Field(tf.Name())
		if !ok {
			if tf.Required() {
				ps.fail(rec, tf.Name(), fmt.Errorf("%w: required field has no source", ErrMissingBinding))
			}
			continue
		}
		bf, err := ps.bindField(ctx, b, tf, cf)
		if err != nil {
			ps.fail(rec, tf.Name(), err)
			continue
		}
		p.Fields = append(p.Fields, bf)
	}

	p.Select = b.sel
	return p
}

func (ps *pass) bindField(ctx context.Context, b *selectBuilder, tf *schema.Field, cf *conversion.Field) (*BoundField, error) {
	fk := cf.Kind == conversion.FieldForeignKey
	switch {
	case fk && !tf.IsLink():
		return nil, fmt.Errorf("%w: foreign-key conversion bound to %s field", ErrIncompatibleTypes, tf.Kind())
	case !fk && tf.IsLink():
		return nil, fmt.Errorf("%w: %s conversion bound to link field", ErrIncompatibleTypes, cf.Kind)
	}

	col, meta, err := ps.walk(ctx, b, cf.Path)
	if err != nil {
		return nil, err
	}
	bf := &BoundField{Target: tf, Conv: cf, Index: b.column(col)}
	if !fk {
		return bf, nil
	}

	edge, ok := meta.ForeignKey(col.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s on table %s", ErrNotForeignKey, col.Name, meta.Name)
	}
	remote, err := ps.catalog.Table(ctx, edge.RefTable)
	if err != nil {
		return nil, err
	}
	if pk, err := remote.PK(); err != nil || !strings.EqualFold(pk, edge.RefColumn) {
		return nil, fmt.Errorf("%w: %s references %s.%s, which is not its primary key",
			ErrIncompatibleTypes, col.Name, remote.Name, edge.RefColumn)
	}

	target := tf.Target()
	if excluded(target) {
		return nil, fmt.Errorf("%w: link target %s is skipped", ErrMissingBinding, target.FullName())
	}
	targetConv, ok := ps.bindings.Record(target)
	if !ok {
		return nil, fmt.Errorf("%w: link target %s is not converted", ErrMissingBinding, target.FullName())
	}
	targetMeta, err := ps.catalog.Table(ctx, targetConv.Source)
	if err != nil {
		return nil, err
	}
	if !SameTable(targetMeta, remote) {
		return nil, fmt.Errorf("%w: link target %s converts table %s but %s references %s",
			ErrIncompatibleTypes, target.FullName(), targetMeta.Name, col.Name, remote.Name)
	}
	bf.Link = remote
	return bf, nil
}

// walk follows a path from the record's table and returns the terminal
// column and the table it belongs to.
func (ps *pass) walk(ctx context.Context, b *selectBuilder, path conversion.Path) (query.Column, *core.TableMetadata, error) {
	cur := b.root
	for i, hop := range path {
		last := i == len(path)-1
		origin := cur

		if hop.Reverse() {
			if last {
				return query.Column{}, nil, fmt.Errorf("%w: %s", ErrReverseTerminal, path)
			}
			remote, err := ps.catalog.Table(ctx, hop.Table)
			if err != nil {
				return query.Column{}, nil, err
			}
			link, ok := remote.Column(hop.Column)
			if !ok {
				return query.Column{}, nil, fmt.Errorf("%w %s on table %s", ErrUnknownColumn, hop.Column, remote.Name)
			}
			pk, err := origin.Meta().PK()
			if err != nil {
				return query.Column{}, nil, fmt.Errorf("%w: %w", ErrNoPrimaryKey, err)
			}
			cur = b.join(query.LeftJoin, origin, hop, hop.Table, remote, func(h query.Table) query.Expr {
				return query.Eq(h.Col(link.Name), origin.Col(pk))
			})
			continue
		}

		c, ok := origin.Meta().Column(hop.Column)
		if !ok {
			return query.Column{}, nil, fmt.Errorf("%w %s on table %s", ErrUnknownColumn, hop.Column, origin.Meta().Name)
		}
		if last {
			return origin.Col(c.Name), origin.Meta(), nil
		}
		edge, ok := origin.Meta().ForeignKey(c.Name)
		if !ok {
			return query.Column{}, nil, fmt.Errorf("%w: %s on table %s", ErrNotForeignKey, c.Name, origin.Meta().Name)
		}
		remote, err := ps.catalog.Table(ctx, edge.RefTable)
		if err != nil {
			return query.Column{}, nil, err
		}
		if _, ok := remote.Column(edge.RefColumn); !ok {
			return query.Column{}, nil, fmt.Errorf("%w %s on table %s", ErrUnknownColumn, edge.RefColumn, remote.Name)
		}
		// A null key midway drops the row.
		cur = b.join(query.InnerJoin, origin, hop, edge.RefTable, remote, func(h query.Table) query.Expr {
			return query.Eq(origin.Col(c.Name), h.Col(edge.RefColumn))
		})
	}
	return query.Column{}, nil, fmt.Errorf("empty path")
}

func reflectTree(ctx context.Context, ps *pass, rec *schema.Record, parent *Plan) *Plan {
	next, err := reflectors.Next(rec.Kind())
	if err != nil {
		ps.fail(rec, "", err)
		return nil
	}
	p := next(ctx, ps, rec, parent)
	if p == nil || p.Conv.Tree == nil {
		return p
	}
	tp, err := ps.reflectHierarchy(ctx, p, p.Conv.Tree.WithDefaults())
	if err != nil {
		ps.fail(rec, "tree", err)
		return p
	}
	p.Tree = tp
	return p
}

// reflectHierarchy plans the read of a tree's nodes joined to the rank
// items of one tree definition.
func (ps *pass) reflectHierarchy(ctx context.Context, p *Plan, tree conversion.Tree) (*TreePlan, error) {
	def, err := ps.catalog.Table(ctx, tree.DefinitionTable)
	if err != nil {
		return nil, err
	}
	defPK, err := def.PK()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoPrimaryKey, err)
	}
	item, err := ps.catalog.Table(ctx, tree.ItemTable())
	if err != nil {
		return nil, err
	}

	var edge *core.ForeignKey
	for i := range p.Table.ForeignKeys {
		ref := p.Table.ForeignKeys[i].RefTable
		if j := strings.LastIndexByte(ref, '.'); j >= 0 {
			ref = ref[j+1:]
		}
		if strings.EqualFold(ref, item.Name) {
			edge = &p.Table.ForeignKeys[i]
			break
		}
	}
	if edge == nil {
		return nil, fmt.Errorf("%w: table %s has no foreign key to %s", ErrNotForeignKey, p.Table.Name, item.Name)
	}

	src := query.NewTable("t0", p.Table)
	it := query.NewTable("i", item)
	sel := &query.Select{
		From:  p.Conv.Source,
		Alias: src.Alias(),
		Columns: []query.Expr{
			src.Col(p.PK),
			src.Col(tree.ParentColumn),
			src.Col(tree.NameColumn),
			it.Col(tree.RankColumn),
		},
		Joins: []query.Join{{
			Kind:  query.InnerJoin,
			Table: tree.ItemTable(),
			Alias: it.Alias(),
			On:    query.Eq(src.Col(edge.Column), it.Col(edge.RefColumn)),
		}},
		Where: query.Eq(it.Col(defPK), tree.DefinitionID),
	}
	if err := src.Err(); err != nil {
		return nil, err
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return &TreePlan{Item: item, Ranks: p.Record.Ranks(), Select: sel}, nil
}

// excluded reports whether a record or one of its ancestors is skipped.
func excluded(rec *schema.Record) bool {
	for r := rec; r != nil; r = r.Parent() {
		if r.Skip() {
			return true
		}
	}
	return false
}
