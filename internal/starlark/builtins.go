package starlark

import (
	"fmt"

	"github.com/leapstack-labs/morph/internal/conversion"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// FieldInfo names the field an expression converts.
// Exposed as the "field" global in Starlark expressions.
type FieldInfo struct {
	Schema string
	Record string
	Name   string
}

// ToStarlark converts FieldInfo to a Starlark struct value.
func (f FieldInfo) ToStarlark() starlark.Value {
	return starlarkstruct.FromStringDict(starlark.String("field"), starlark.StringDict{
		"schema": starlark.String(f.Schema),
		"record": starlark.String(f.Record),
		"name":   starlark.String(f.Name),
	})
}

func (f FieldInfo) String() string {
	return f.Schema + "." + f.Record + "." + f.Name
}

// transformBuiltin exposes the named transforms as convert(name, value).
func transformBuiltin(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var value starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &name, &value); err != nil {
		return nil, err
	}
	fn, err := conversion.LookupTransform(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	in, err := ToGo(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	out, err := fn(in)
	if err != nil {
		return nil, fmt.Errorf("%s(%q): %w", b.Name(), name, err)
	}
	return GoToStarlark(out)
}

// Predeclared returns the globals visible to expressions: field and
// convert.
func Predeclared(field FieldInfo) starlark.StringDict {
	globals := starlark.StringDict{
		"field":   field.ToStarlark(),
		"convert": starlark.NewBuiltin("convert", transformBuiltin),
	}
	globals.Freeze()
	return globals
}
