package conversion

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/morph/internal/schema"
)

// DefinitionError reports a conversion declaration that does not match the
// schema family.
type DefinitionError struct {
	Path   string
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("conversion definition %s: %s", e.Path, e.Reason)
}

// Bindings associates target records with their conversions.
type Bindings struct {
	records map[*schema.Record]*Record
}

// Record returns the conversion of a target record.
func (b *Bindings) Record(r *schema.Record) (*Record, bool) {
	c, ok := b.records[r]
	return c, ok
}

// Len returns the number of bound records.
func (b *Bindings) Len() int { return len(b.records) }

// Bind matches conversion declarations to the records of a family by
// name. Nested conversions match nested records. Every mismatch is
// reported together.
func Bind(family *schema.Family, defs ...Schema) (*Bindings, error) {
	b := &Bindings{records: make(map[*schema.Record]*Record)}
	var errs []error
	fail := func(path, format string, args ...any) {
		errs = append(errs, &DefinitionError{Path: path, Reason: fmt.Sprintf(format, args...)})
	}

	var bind func(conv *Record, rec *schema.Record, path string)
	bind = func(conv *Record, rec *schema.Record, path string) {
		if _, dup := b.records[rec]; dup {
			fail(path, "record converted twice")
			return
		}
		b.records[rec] = conv

		switch {
		case rec.IsTree() && conv.Tree == nil:
			fail(path, "tree record needs a tree conversion")
		case !rec.IsTree() && conv.Tree != nil:
			fail(path, "tree conversion on a non-tree record")
		case conv.Tree != nil && conv.Tree.DefinitionTable == "":
			fail(path, "tree conversion names no definition table")
		}

		seen := make(map[string]bool)
		for i := range conv.Fields {
			f := &conv.Fields[i]
			fpath := path + "." + f.Name
			if seen[f.Name] {
				fail(fpath, "field converted twice")
				continue
			}
			seen[f.Name] = true

			target, ok := rec.Field(f.Name)
			if !ok {
				fail(fpath, "record has no such field")
				continue
			}
			if len(f.Path) == 0 {
				fail(fpath, "empty source path")
			}
			if f.Kind == FieldEnum && len(f.Enum) == 0 {
				fail(fpath, "enum field declares no labels")
			}
			if f.Kind == FieldEnum && target.IsLink() {
				fail(fpath, "enum conversion of a link field")
			}
		}

		for i := range conv.Children {
			child := &conv.Children[i]
			cpath := path + "." + child.Name
			var match *schema.Record
			for _, c := range rec.Children() {
				if c.Name() == child.Name {
					match = c
					break
				}
			}
			if match == nil {
				fail(cpath, "record has no such child")
				continue
			}
			bind(child, match, cpath)
		}
	}

	for _, sd := range defs {
		s, ok := family.Schema(sd.Name)
		if !ok {
			fail(sd.Name, "no such schema")
			continue
		}
		for i := range sd.Records {
			conv := &sd.Records[i]
			var match *schema.Record
			for _, r := range s.Records() {
				if r.Name() == conv.Name {
					match = r
					break
				}
			}
			if match == nil {
				fail(sd.Name+"."+conv.Name, "no such record")
				continue
			}
			bind(conv, match, sd.Name+"."+conv.Name)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return b, nil
}
