// Package conversion declares how each target record is filled from the
// legacy source: the source table, row ordering and filtering, the link
// to the parent row, and one path per target field.
package conversion

import (
	"github.com/leapstack-labs/morph/internal/query"
)

// FieldKind selects how a field value is produced.
type FieldKind int

// Field kinds.
const (
	// FieldColumn copies the source value through the transform.
	FieldColumn FieldKind = iota
	// FieldEnum maps an integer index to a label.
	FieldEnum
	// FieldForeignKey derives the identifier of the referenced source row.
	FieldForeignKey
)

func (k FieldKind) String() string {
	switch k {
	case FieldEnum:
		return "enum"
	case FieldForeignKey:
		return "foreign key"
	default:
		return "column"
	}
}

// Transform converts one source value. It must accept nil.
type Transform func(any) (any, error)

// Filter restricts the rows of a record. It is evaluated once at plan
// time against a handle on the record's source table.
type Filter func(t query.Table) query.Expr

// Field binds a target field to a source path.
type Field struct {
	Name      string
	Path      Path
	Kind      FieldKind
	Enum      []string
	Transform Transform
}

// Tree configures how a tree record reads its external hierarchy.
type Tree struct {
	// DefinitionTable names the tree definition table. Its rank items live
	// in DefinitionTable + "item".
	DefinitionTable string
	// DefinitionID selects one tree definition.
	DefinitionID any
	ParentColumn string
	NameColumn   string
	// RankColumn is the column of the item table holding the rank name.
	RankColumn string
}

// Defaults used by tree conversions when columns are not named.
const (
	DefaultTreeParentColumn = "ParentID"
	DefaultTreeNameColumn   = "Name"
	DefaultTreeRankColumn   = "Name"
)

// WithDefaults fills unnamed columns.
func (t Tree) WithDefaults() Tree {
	if t.ParentColumn == "" {
		t.ParentColumn = DefaultTreeParentColumn
	}
	if t.NameColumn == "" {
		t.NameColumn = DefaultTreeNameColumn
	}
	if t.RankColumn == "" {
		t.RankColumn = DefaultTreeRankColumn
	}
	return t
}

// ItemTable returns the name of the rank item table.
func (t Tree) ItemTable() string { return t.DefinitionTable + "item" }

// Record declares the conversion of one target record.
type Record struct {
	Name string
	// Source is the legacy table rows are read from.
	Source string
	// OrderBy optionally orders extracted rows ascending.
	OrderBy string
	// ParentColumn is the column of Source holding the parent row's key.
	ParentColumn string
	Where        Filter
	Fields       []Field
	Children     []Record
	Tree         *Tree
}

// Field returns a field binding by target field name.
func (r *Record) Field(name string) (*Field, bool) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return &r.Fields[i], true
		}
	}
	return nil, false
}

// Schema groups the record conversions of one target schema.
type Schema struct {
	Name    string
	Records []Record
}
