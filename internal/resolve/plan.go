package resolve

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/morph/internal/conversion"
	"github.com/leapstack-labs/morph/internal/query"
	"github.com/leapstack-labs/morph/internal/schema"
	"github.com/leapstack-labs/morph/pkg/core"
)

// Plan is the resolved extraction of one record.
//
// Select columns are laid out as: the primary key, then the parent key
// when the record has a parent, then one column per bound field.
type Plan struct {
	Record *schema.Record
	Conv   *conversion.Record
	Table  *core.TableMetadata
	PK     string

	Parent       *Plan
	ParentColumn string
	ParentIndex  int

	Fields   []*BoundField
	Select   *query.Select
	Tree     *TreePlan
	Children []*Plan
}

// Walk visits the plan and its descendants depth-first, parents first.
func (p *Plan) Walk(fn func(*Plan)) {
	fn(p)
	for _, c := range p.Children {
		c.Walk(fn)
	}
}

// BoundField is a target field bound to one selected source column.
type BoundField struct {
	Target *schema.Field
	Conv   *conversion.Field
	Index  int
	// Link is the table whose identifiers a foreign-key field derives.
	Link *core.TableMetadata
}

// TreePlan reads the external hierarchy of a tree record. Its select
// yields (key, parent key, name, rank name).
type TreePlan struct {
	Item   *core.TableMetadata
	Ranks  []string
	Select *query.Select
}

// Result holds the plans of one family in conversion order.
type Result struct {
	// Schemas lists converted schemas in declaration order.
	Schemas []*SchemaPlan
	catalog *Catalog
}

// SchemaPlan holds the top-level record plans of one schema.
type SchemaPlan struct {
	Schema *schema.Schema
	Plans  []*Plan
}

// Walk visits every plan depth-first in conversion order.
func (r *Result) Walk(fn func(*Plan)) {
	for _, s := range r.Schemas {
		for _, p := range s.Plans {
			p.Walk(fn)
		}
	}
}

// Catalog returns the catalog the plans were resolved against.
func (r *Result) Catalog() *Catalog { return r.catalog }

// selectBuilder assembles the select of one record and deduplicates the
// joins introduced by field paths.
type selectBuilder struct {
	sel   *query.Select
	root  query.Table
	joins map[string]query.Table
	n     int
}

func newSelectBuilder(source string, meta *core.TableMetadata) *selectBuilder {
	root := query.NewTable("t0", meta)
	return &selectBuilder{
		sel:   &query.Select{From: source, Alias: root.Alias()},
		root:  root,
		joins: make(map[string]query.Table),
	}
}

func (b *selectBuilder) column(c query.Column) int {
	b.sel.Columns = append(b.sel.Columns, c)
	return len(b.sel.Columns) - 1
}

func (b *selectBuilder) where(e query.Expr) {
	b.sel.Where = query.And(b.sel.Where, e)
}

// join adds a join of the given kind reached from origin through hop, or
// returns the existing one.
func (b *selectBuilder) join(kind query.JoinKind, origin query.Table, hop conversion.Hop, table string,
	meta *core.TableMetadata, on func(h query.Table) query.Expr) query.Table {
	key := origin.Alias() + "/" + strings.ToLower(hop.String())
	if h, ok := b.joins[key]; ok {
		return h
	}
	b.n++
	h := query.NewTable(fmt.Sprintf("j%d", b.n), meta)
	b.sel.Joins = append(b.sel.Joins, query.Join{Kind: kind, Table: table, Alias: h.Alias(), On: on(h)})
	b.joins[key] = h
	return h
}

// ancestors joins the parent chain so ancestor filters restrict the record.
func (b *selectBuilder) ancestors(linkColumn string, parent *Plan) {
	from, col := b.root.Alias(), linkColumn
	for i, anc := 1, parent; anc != nil && anc.Table != nil; i, anc = i+1, anc.Parent {
		h := query.NewTable(fmt.Sprintf("p%d", i), anc.Table)
		b.sel.Joins = append(b.sel.Joins, query.Join{
			Kind:  query.InnerJoin,
			Table: anc.Conv.Source,
			Alias: h.Alias(),
			On:    query.Eq(query.Column{Table: from, Name: col}, h.Col(anc.PK)),
		})
		if anc.Conv.Where != nil {
			// Errors in an ancestor filter are reported on the ancestor.
			if e := anc.Conv.Where(h); h.Err() == nil {
				b.where(e)
			}
		}
		if anc.ParentColumn == "" {
			break
		}
		from, col = h.Alias(), anc.ParentColumn
	}
}
