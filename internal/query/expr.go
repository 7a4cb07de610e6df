// Package query builds parameterized SQL for source extraction and target
// insertion. Expressions render against a dialect, which decides quoting
// and placeholder style.
package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

// ErrUnknownColumn is recorded when a table handle is asked for a column
// its metadata does not have.
var ErrUnknownColumn = errors.New("unknown column")

// Expr is a SQL expression fragment.
type Expr interface {
	render(w *writer)
}

type writer struct {
	d    *dialect.Dialect
	sb   strings.Builder
	args []any
}

func (w *writer) write(s string) { w.sb.WriteString(s) }

func (w *writer) bind(v any) {
	w.args = append(w.args, v)
	w.sb.WriteString(w.d.FormatPlaceholder(len(w.args)))
}

// Render renders a standalone expression.
func Render(d *dialect.Dialect, e Expr) (string, []any) {
	w := &writer{d: d}
	e.render(w)
	return w.sb.String(), w.args
}

// Table is a handle on a source table inside a query. Column references
// made through it are checked against the table's metadata.
type Table struct {
	alias string
	meta  *core.TableMetadata
	errs  *[]error
}

// NewTable returns a handle for a table under an alias. A nil meta
// disables column checking.
func NewTable(alias string, meta *core.TableMetadata) Table {
	return Table{alias: alias, meta: meta, errs: new([]error)}
}

// Alias returns the alias the table is joined under.
func (t Table) Alias() string { return t.alias }

// Meta returns the reflected table metadata.
func (t Table) Meta() *core.TableMetadata { return t.meta }

// Col references a column of the table.
func (t Table) Col(name string) Column {
	if t.meta != nil {
		c, ok := t.meta.Column(name)
		if !ok {
			*t.errs = append(*t.errs, fmt.Errorf("%w %s on table %s", ErrUnknownColumn, name, t.meta.Name))
		} else {
			name = c.Name
		}
	}
	return Column{Table: t.alias, Name: name}
}

// Err returns the column reference errors recorded so far.
func (t Table) Err() error {
	if t.errs == nil {
		return nil
	}
	return errors.Join(*t.errs...)
}

// Column is a column reference.
type Column struct {
	Table string
	Name  string
}

func (c Column) render(w *writer) {
	if c.Table != "" {
		w.write(w.d.QuoteIdentifier(c.Table))
		w.write(".")
	}
	w.write(w.d.QuoteIdentifier(c.Name))
}

// Value is a bound parameter.
type Value struct {
	V any
}

func (v Value) render(w *writer) { w.bind(v.V) }

type binary struct {
	op   string
	l, r Expr
}

func (b binary) render(w *writer) {
	b.l.render(w)
	w.write(" " + b.op + " ")
	b.r.render(w)
}

type junction struct {
	op    string
	terms []Expr
}

func (j junction) render(w *writer) {
	if len(j.terms) == 1 {
		j.terms[0].render(w)
		return
	}
	w.write("(")
	for i, t := range j.terms {
		if i > 0 {
			w.write(" " + j.op + " ")
		}
		t.render(w)
	}
	w.write(")")
}

type nullTest struct {
	e   Expr
	not bool
}

func (n nullTest) render(w *writer) {
	n.e.render(w)
	if n.not {
		w.write(" IS NOT NULL")
	} else {
		w.write(" IS NULL")
	}
}

type inList struct {
	e      Expr
	values []any
}

func (in inList) render(w *writer) {
	if len(in.values) == 0 {
		w.write("1 = 0")
		return
	}
	in.e.render(w)
	w.write(" IN (")
	for i, v := range in.values {
		if i > 0 {
			w.write(", ")
		}
		operand(v).render(w)
	}
	w.write(")")
}

type not struct{ e Expr }

func (n not) render(w *writer) {
	w.write("NOT (")
	n.e.render(w)
	w.write(")")
}

type raw struct {
	sql  string
	args []any
}

func (r raw) render(w *writer) {
	parts := strings.Split(r.sql, "?")
	for i, p := range parts {
		w.write(p)
		if i < len(parts)-1 && i < len(r.args) {
			w.bind(r.args[i])
		}
	}
}

// operand wraps plain values as bound parameters.
func operand(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Value{V: v}
}

// Eq compares an expression with a value or another expression.
// A nil value compares with IS NULL.
func Eq(e Expr, v any) Expr {
	if v == nil {
		return IsNull(e)
	}
	return binary{op: "=", l: e, r: operand(v)}
}

// Ne is the negation of Eq.
func Ne(e Expr, v any) Expr {
	if v == nil {
		return NotNull(e)
	}
	return binary{op: "<>", l: e, r: operand(v)}
}

// Lt compares e < v.
func Lt(e Expr, v any) Expr { return binary{op: "<", l: e, r: operand(v)} }

// Gt compares e > v.
func Gt(e Expr, v any) Expr { return binary{op: ">", l: e, r: operand(v)} }

// In tests membership. An empty list is always false.
func In(e Expr, values ...any) Expr { return inList{e: e, values: values} }

// IsNull tests e IS NULL.
func IsNull(e Expr) Expr { return nullTest{e: e} }

// NotNull tests e IS NOT NULL.
func NotNull(e Expr) Expr { return nullTest{e: e, not: true} }

// Not negates an expression.
func Not(e Expr) Expr { return not{e: e} }

// And conjoins expressions, ignoring nils. It returns nil when nothing remains.
func And(terms ...Expr) Expr { return join("AND", terms) }

// Or disjoins expressions, ignoring nils. It returns nil when nothing remains.
func Or(terms ...Expr) Expr { return join("OR", terms) }

func join(op string, terms []Expr) Expr {
	kept := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if t != nil {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return junction{op: op, terms: kept}
}

// Raw embeds literal SQL. Each ? is replaced by the dialect placeholder
// bound to the next argument.
func Raw(sql string, args ...any) Expr { return raw{sql: sql, args: args} }
