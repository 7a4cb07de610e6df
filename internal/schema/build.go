package schema

import (
	"errors"
	"fmt"
	"strings"
)

// DefinitionError reports an invalid schema definition.
type DefinitionError struct {
	Path   string
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("schema definition %s: %s", e.Path, e.Reason)
}

type builder struct {
	family *Family
	errs   []error
	links  []pendingLink
}

type pendingLink struct {
	field  *Field
	target string
	path   string
}

func (b *builder) fail(path, format string, args ...any) {
	b.errs = append(b.errs, &DefinitionError{Path: path, Reason: fmt.Sprintf(format, args...)})
}

// Build registers every schema and nested record, in declaration order,
// into a new Family and resolves link targets. All definition errors are
// reported together.
func Build(defs ...SchemaDef) (*Family, error) {
	b := &builder{family: &Family{
		byName: make(map[string]*Schema),
		byFull: make(map[string]*Record),
	}}

	for _, def := range defs {
		b.schema(def)
	}
	b.resolveLinks()

	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return b.family, nil
}

func (b *builder) schema(def SchemaDef) {
	if def.Name == "" {
		b.fail("<schema>", "empty schema name")
		return
	}
	if _, dup := b.family.byName[def.Name]; dup {
		b.fail(def.Name, "duplicate schema name")
		return
	}

	s := &Schema{name: def.Name, skip: def.Skip, local: make(map[string]*Record)}
	b.family.byName[def.Name] = s
	b.family.schemas = append(b.family.schemas, s)

	seen := make(map[string]bool)
	for _, rd := range def.Records {
		if seen[rd.Name] {
			b.fail(def.Name+"."+rd.Name, "duplicate record name")
			continue
		}
		seen[rd.Name] = true
		if r := b.record(rd, s, nil); r != nil {
			s.records = append(s.records, r)
		}
	}
}

func (b *builder) record(def RecordDef, s *Schema, parent *Record) *Record {
	path := s.name + "." + def.Name
	if def.Name == "" {
		b.fail(s.name+".<record>", "empty record name")
		return nil
	}
	if _, dup := b.family.byFull[path]; dup {
		b.fail(path, "duplicate full record name")
		return nil
	}

	r := &Record{name: def.Name, skip: def.Skip, parent: parent}
	if parent == nil {
		r.schema = s
	}

	if def.Tree {
		r.kind = KindTree
		if len(def.Ranks) == 0 {
			b.fail(path, "tree record declares no ranks")
		}
		ranks := make(map[string]bool)
		for _, rank := range def.Ranks {
			if ranks[rank] {
				b.fail(path, "duplicate rank %q", rank)
			}
			ranks[rank] = true
		}
		r.ranks = append([]string(nil), def.Ranks...)
	} else if len(def.Ranks) > 0 {
		b.fail(path, "ranks declared on a non-tree record")
	}

	b.family.byFull[path] = r
	s.local[def.Name] = r
	b.family.records = append(b.family.records, r)

	fieldNames := make(map[string]bool)
	for _, fd := range def.Fields {
		fpath := path + "." + fd.Name
		switch {
		case fd.Name == "":
			b.fail(path+".<field>", "empty field name")
			continue
		case fieldNames[fd.Name]:
			b.fail(fpath, "duplicate field name")
			continue
		}
		fieldNames[fd.Name] = true
		if reserved(fd.Name, def, parent) {
			b.fail(fpath, "field name is reserved")
		}

		kind := fd.Kind
		if kind == "" {
			kind = FieldText
		}
		f := &Field{name: fd.Name, kind: kind, required: fd.Required, record: r}
		switch {
		case kind == FieldLink && fd.Target == "":
			b.fail(fpath, "link field has no target")
		case kind == FieldLink:
			b.links = append(b.links, pendingLink{field: f, target: fd.Target, path: fpath})
		case fd.Target != "":
			b.fail(fpath, "target declared on %s field", kind)
		}
		r.fields = append(r.fields, f)
	}

	childNames := make(map[string]bool)
	for _, cd := range def.Children {
		if childNames[cd.Name] {
			b.fail(path+"."+cd.Name, "duplicate child record name")
			continue
		}
		childNames[cd.Name] = true
		if c := b.record(cd, s, r); c != nil {
			r.children = append(r.children, c)
		}
	}
	return r
}

// reserved reports whether a field name collides with a generated column.
func reserved(name string, def RecordDef, parent *Record) bool {
	switch {
	case strings.EqualFold(name, IDColumn):
		return true
	case def.Tree && strings.EqualFold(name, SummaryColumn):
		return true
	case parent != nil && strings.EqualFold(name, parent.name):
		return true
	}
	return false
}

// resolveLinks turns link target names into record pointers. Names are
// looked up in the declaring schema first, then as "Schema.Record".
func (b *builder) resolveLinks() {
	for _, l := range b.links {
		s := l.field.record.Schema()
		if r, ok := s.local[l.target]; ok {
			l.field.target = r
			continue
		}
		if strings.Contains(l.target, ".") {
			if r, ok := b.family.byFull[l.target]; ok {
				l.field.target = r
				continue
			}
		}
		b.fail(l.path, "link target %q does not exist", l.target)
	}
}
