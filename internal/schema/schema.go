// Package schema is the target-side metamodel: schemas own ordered records,
// records own ordered fields and child records, and tree records carry a
// fixed rank sequence. A Family is built once from definitions and is
// immutable afterwards.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the dispatch kind of a record.
type Kind int

// Record kinds.
const (
	KindRecord Kind = iota
	KindTree
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindTree:
		return "tree"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Parent returns the more general kind, if any.
func (k Kind) Parent() (Kind, bool) {
	if k == KindTree {
		return KindRecord, true
	}
	return 0, false
}

// Kinds lists every declared kind.
func Kinds() []Kind {
	return []Kind{KindRecord, KindTree}
}

// Generated target columns.
const (
	// IDColumn holds the derived identifier of every record.
	IDColumn = "id"
	// SummaryColumn holds the ancestor-path summary of tree records.
	SummaryColumn = "tree_structure"
)

// FieldKind is the value type of a target field.
type FieldKind string

// Field kinds.
const (
	FieldText    FieldKind = "text"
	FieldInteger FieldKind = "integer"
	FieldFloat   FieldKind = "float"
	FieldBoolean FieldKind = "boolean"
	FieldDate    FieldKind = "date"
	FieldLink    FieldKind = "link"
)

// ParseFieldKind validates a field kind name. An empty name means text.
func ParseFieldKind(s string) (FieldKind, error) {
	switch k := FieldKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return FieldText, nil
	case FieldText, FieldInteger, FieldFloat, FieldBoolean, FieldDate, FieldLink:
		return k, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

// SchemaDef declares one schema.
type SchemaDef struct {
	Name    string
	Skip    bool
	Records []RecordDef
}

// RecordDef declares one record and its nested children.
type RecordDef struct {
	Name     string
	Skip     bool
	Tree     bool
	Ranks    []string
	Fields   []FieldDef
	Children []RecordDef
}

// FieldDef declares one field. Target names the linked record of a link
// field, either local to the schema or as "Schema.Record".
type FieldDef struct {
	Name     string
	Kind     FieldKind
	Required bool
	Target   string
}

// Family is the set of schemas taking part in one migration.
type Family struct {
	schemas []*Schema
	byName  map[string]*Schema
	records []*Record
	byFull  map[string]*Record
}

// Schemas returns the schemas in declaration order.
func (f *Family) Schemas() []*Schema { return f.schemas }

// Schema returns a schema by name.
func (f *Family) Schema(name string) (*Schema, bool) {
	s, ok := f.byName[name]
	return s, ok
}

// Records returns every record, depth-first in declaration order.
func (f *Family) Records() []*Record { return f.records }

// Record returns a record by full name ("Schema.Record").
func (f *Family) Record(fullName string) (*Record, bool) {
	r, ok := f.byFull[fullName]
	return r, ok
}

// Lookup returns a record by schema and local name.
func (f *Family) Lookup(schema, record string) (*Record, bool) {
	return f.Record(schema + "." + record)
}

// Schema is a named grouping of records. Its name prefixes target tables.
type Schema struct {
	name    string
	skip    bool
	records []*Record
	local   map[string]*Record
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Skip reports whether the schema is excluded from conversion.
func (s *Schema) Skip() bool { return s.skip }

// Records returns the top-level records in declaration order.
func (s *Schema) Records() []*Record { return s.records }

// Record is a target entity.
type Record struct {
	name     string
	kind     Kind
	skip     bool
	ranks    []string
	fields   []*Field
	children []*Record
	parent   *Record
	schema   *Schema
}

// Name returns the local record name.
func (r *Record) Name() string { return r.name }

// FullName returns "Schema.Record".
func (r *Record) FullName() string { return r.Schema().name + "." + r.name }

// Kind returns the dispatch kind.
func (r *Record) Kind() Kind { return r.kind }

// IsTree reports whether the record is a hierarchy.
func (r *Record) IsTree() bool { return r.kind == KindTree }

// Skip reports whether the record is excluded. A record is also excluded
// when its schema is.
func (r *Record) Skip() bool { return r.skip || r.Schema().skip }

// Ranks returns the declared rank sequence of a tree record.
func (r *Record) Ranks() []string { return r.ranks }

// Fields returns the fields in declaration order.
func (r *Record) Fields() []*Field { return r.fields }

// Field returns a field by name.
func (r *Record) Field(name string) (*Field, bool) {
	for _, f := range r.fields {
		if f.name == name {
			return f, true
		}
	}
	return nil, false
}

// Children returns nested records in declaration order.
func (r *Record) Children() []*Record { return r.children }

// Parent returns the enclosing record, nil for top-level records.
func (r *Record) Parent() *Record { return r.parent }

// ParentColumn returns the name of the column referencing the parent
// record, which is the parent's local name. Empty for top-level records.
func (r *Record) ParentColumn() string {
	if r.parent == nil {
		return ""
	}
	return r.parent.name
}

// Schema returns the owning schema, which for nested records is the
// schema of the nearest ancestor.
func (r *Record) Schema() *Schema {
	for cur := r; cur != nil; cur = cur.parent {
		if cur.schema != nil {
			return cur.schema
		}
	}
	return nil
}

// Field is a target column of a record.
type Field struct {
	name     string
	kind     FieldKind
	required bool
	target   *Record
	record   *Record
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Kind returns the field kind.
func (f *Field) Kind() FieldKind { return f.kind }

// Required reports whether the field must be bound to a source.
func (f *Field) Required() bool { return f.required }

// Target returns the linked record of a link field.
func (f *Field) Target() *Record { return f.target }

// Record returns the owning record.
func (f *Field) Record() *Record { return f.record }

// IsLink reports whether the field references another record.
func (f *Field) IsLink() bool { return f.kind == FieldLink }
