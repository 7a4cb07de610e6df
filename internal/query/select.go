package query

import (
	"strings"

	"github.com/leapstack-labs/morph/pkg/dialect"
)

// JoinKind selects inner or left outer joins.
type JoinKind int

// Join kinds.
const (
	InnerJoin JoinKind = iota
	LeftJoin
)

func (k JoinKind) String() string {
	if k == LeftJoin {
		return "LEFT JOIN"
	}
	return "JOIN"
}

// Join is one joined table.
type Join struct {
	Kind  JoinKind
	Table string
	Alias string
	On    Expr
}

// Select is a SELECT statement over one source table and its joins.
type Select struct {
	From    string
	Alias   string
	Columns []Expr
	Joins   []Join
	Where   Expr
	OrderBy []Expr
}

// SQL renders the statement and its bound arguments.
func (s *Select) SQL(d *dialect.Dialect) (string, []any) {
	w := &writer{d: d}
	w.write("SELECT ")
	for i, c := range s.Columns {
		if i > 0 {
			w.write(", ")
		}
		c.render(w)
	}
	w.write(" FROM ")
	w.write(d.QuoteTable(s.From))
	if s.Alias != "" {
		w.write(" AS " + d.QuoteIdentifier(s.Alias))
	}
	for _, j := range s.Joins {
		w.write(" " + j.Kind.String() + " ")
		w.write(d.QuoteTable(j.Table))
		if j.Alias != "" {
			w.write(" AS " + d.QuoteIdentifier(j.Alias))
		}
		w.write(" ON ")
		j.On.render(w)
	}
	if s.Where != nil {
		w.write(" WHERE ")
		s.Where.render(w)
	}
	if len(s.OrderBy) > 0 {
		w.write(" ORDER BY ")
		for i, o := range s.OrderBy {
			if i > 0 {
				w.write(", ")
			}
			o.render(w)
		}
	}
	return w.sb.String(), w.args
}

// Insert renders a multi-row INSERT into an already-quoted table name.
func Insert(d *dialect.Dialect, table string, columns []string, rows [][]any) (string, []any) {
	w := &writer{d: d}
	w.write("INSERT INTO " + table + " (")
	for i, c := range columns {
		if i > 0 {
			w.write(", ")
		}
		w.write(d.QuoteIdentifier(c))
	}
	w.write(") VALUES ")
	for i, row := range rows {
		if i > 0 {
			w.write(", ")
		}
		w.write("(")
		for j, v := range row {
			if j > 0 {
				w.write(", ")
			}
			w.bind(v)
		}
		w.write(")")
	}
	return w.sb.String(), w.args
}

// RowsPerStatement caps a batch size so that one multi-row INSERT stays
// within the dialect's bind parameter limit.
func RowsPerStatement(d *dialect.Dialect, columns, batchSize int) int {
	if batchSize < 1 {
		batchSize = 1
	}
	if columns < 1 || d.MaxParams < 1 {
		return batchSize
	}
	if limit := d.MaxParams / columns; limit < batchSize {
		if limit < 1 {
			return 1
		}
		return limit
	}
	return batchSize
}

// Quote joins quoted identifiers with commas.
func Quote(d *dialect.Dialect, names ...string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}
