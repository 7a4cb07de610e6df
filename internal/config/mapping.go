package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/morph/internal/conversion"
	"github.com/leapstack-labs/morph/internal/query"
	"github.com/leapstack-labs/morph/internal/schema"
	"github.com/leapstack-labs/morph/internal/starlark"
)

// Mapping is the decoded form of a mapping file: the target schemas and
// how each record is read from the legacy database.
type Mapping struct {
	Schemas []SchemaMapping `koanf:"schemas"`
}

// SchemaMapping declares one target schema.
type SchemaMapping struct {
	Name    string          `koanf:"name"`
	Skip    bool            `koanf:"skip"`
	Records []RecordMapping `koanf:"records"`
}

// RecordMapping declares one record, its source and its children.
type RecordMapping struct {
	Name         string          `koanf:"name"`
	Skip         bool            `koanf:"skip"`
	Source       string          `koanf:"source"`
	OrderBy      string          `koanf:"order_by"`
	ParentColumn string          `koanf:"parent_column"`
	Where        map[string]any  `koanf:"where"`
	Tree         *TreeMapping    `koanf:"tree"`
	Fields       []FieldMapping  `koanf:"fields"`
	Children     []RecordMapping `koanf:"children"`
}

// TreeMapping marks a tree record and names its rank definition.
type TreeMapping struct {
	Ranks           []string `koanf:"ranks"`
	DefinitionTable string   `koanf:"definition_table"`
	DefinitionID    any      `koanf:"definition_id"`
	ParentColumn    string   `koanf:"parent_column"`
	NameColumn      string   `koanf:"name_column"`
	RankColumn      string   `koanf:"rank_column"`
}

// FieldMapping declares one field. A field without "from" is declared in
// the target but not converted. ForeignKey overrides the conversion kind,
// which otherwise follows the field type.
type FieldMapping struct {
	Name       string   `koanf:"name"`
	Type       string   `koanf:"type"`
	Target     string   `koanf:"target"`
	Required   bool     `koanf:"required"`
	From       string   `koanf:"from"`
	ForeignKey *bool    `koanf:"foreign_key"`
	Enum       []string `koanf:"enum"`
	Transform  []string `koanf:"transform"`
	Expr       string   `koanf:"expr"`
}

// Loaded is a built mapping ready for the engine.
type Loaded struct {
	Family      *schema.Family
	Conversions []conversion.Schema
	Bindings    *conversion.Bindings
}

// LoadMapping reads and builds a mapping file. Unknown keys are rejected.
func LoadMapping(path string, logger *slog.Logger) (*Loaded, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("error reading mapping %s: %w", path, err)
	}

	var m Mapping
	if err := k.UnmarshalWithConf("", &m, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			ErrorUnused:      true,
			WeaklyTypedInput: true,
			Result:           &m,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode mapping %s: %w", path, err)
	}

	loaded, err := m.Build(logger)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return loaded, nil
}

// Build turns the mapping into a schema family and binds its conversions.
// Field-level errors are collected and returned together.
func (m *Mapping) Build(logger *slog.Logger) (*Loaded, error) {
	b := &mappingBuilder{compiler: starlark.NewCompiler(logger)}

	defs := make([]schema.SchemaDef, 0, len(m.Schemas))
	convs := make([]conversion.Schema, 0, len(m.Schemas))
	for _, sm := range m.Schemas {
		def := schema.SchemaDef{Name: sm.Name, Skip: sm.Skip}
		conv := conversion.Schema{Name: sm.Name}
		for _, rm := range sm.Records {
			rd, rc := b.record(sm.Name, rm)
			def.Records = append(def.Records, rd)
			conv.Records = append(conv.Records, rc)
		}
		defs = append(defs, def)
		convs = append(convs, conv)
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	family, err := schema.Build(defs...)
	if err != nil {
		return nil, err
	}
	bindings, err := conversion.Bind(family, convs...)
	if err != nil {
		return nil, err
	}
	return &Loaded{Family: family, Conversions: convs, Bindings: bindings}, nil
}

type mappingBuilder struct {
	compiler *starlark.Compiler
	errs     []error
}

func (b *mappingBuilder) fail(path string, err error) {
	b.errs = append(b.errs, fmt.Errorf("%s: %w", path, err))
}

func (b *mappingBuilder) record(schemaName string, rm RecordMapping) (schema.RecordDef, conversion.Record) {
	path := schemaName + "." + rm.Name
	def := schema.RecordDef{Name: rm.Name, Skip: rm.Skip}
	conv := conversion.Record{
		Name:         rm.Name,
		Source:       rm.Source,
		OrderBy:      rm.OrderBy,
		ParentColumn: rm.ParentColumn,
	}
	if len(rm.Where) > 0 {
		conv.Where = whereFilter(rm.Where)
	}
	if t := rm.Tree; t != nil {
		def.Tree = true
		def.Ranks = t.Ranks
		conv.Tree = &conversion.Tree{
			DefinitionTable: t.DefinitionTable,
			DefinitionID:    t.DefinitionID,
			ParentColumn:    t.ParentColumn,
			NameColumn:      t.NameColumn,
			RankColumn:      t.RankColumn,
		}
	}

	for _, fm := range rm.Fields {
		fd, fc, ok := b.field(schemaName, rm.Name, fm)
		def.Fields = append(def.Fields, fd)
		if ok {
			conv.Fields = append(conv.Fields, fc)
		}
	}
	for _, cm := range rm.Children {
		cd, cc := b.record(schemaName, cm)
		def.Children = append(def.Children, cd)
		conv.Children = append(conv.Children, cc)
	}
	if rm.Source == "" && !rm.Skip {
		b.fail(path, fmt.Errorf("record has no source table"))
	}
	return def, conv
}

func (b *mappingBuilder) field(schemaName, record string, fm FieldMapping) (schema.FieldDef, conversion.Field, bool) {
	path := schemaName + "." + record + "." + fm.Name
	kind, err := schema.ParseFieldKind(fm.Type)
	if err != nil {
		b.fail(path, err)
	}
	def := schema.FieldDef{Name: fm.Name, Kind: kind, Required: fm.Required, Target: fm.Target}
	if fm.From == "" {
		return def, conversion.Field{}, false
	}

	conv := conversion.Field{Name: fm.Name, Kind: conversion.FieldColumn, Enum: fm.Enum}
	foreignKey := kind == schema.FieldLink
	if fm.ForeignKey != nil {
		foreignKey = *fm.ForeignKey
	}
	switch {
	case foreignKey:
		conv.Kind = conversion.FieldForeignKey
	case len(fm.Enum) > 0:
		conv.Kind = conversion.FieldEnum
	}

	if conv.Path, err = conversion.ParsePath(fm.From); err != nil {
		b.fail(path, err)
	}

	var chain []conversion.Transform
	for _, name := range fm.Transform {
		t, err := conversion.LookupTransform(name)
		if err != nil {
			b.fail(path, err)
			continue
		}
		chain = append(chain, t)
	}
	if fm.Expr != "" {
		t, err := b.compiler.Compile(starlark.FieldInfo{Schema: schemaName, Record: record, Name: fm.Name}, fm.Expr)
		if err != nil {
			b.fail(path, err)
		} else {
			chain = append(chain, t)
		}
	}
	conv.Transform = conversion.Chain(chain...)
	return def, conv, true
}

// whereFilter compiles a where map: a list matches any of its values, null
// matches NULL and anything else matches by equality.
func whereFilter(where map[string]any) conversion.Filter {
	cols := slices.Sorted(maps.Keys(where))
	return func(t query.Table) query.Expr {
		terms := make([]query.Expr, 0, len(cols))
		for _, c := range cols {
			switch v := where[c].(type) {
			case []any:
				terms = append(terms, query.In(t.Col(c), v...))
			default:
				terms = append(terms, query.Eq(t.Col(c), v))
			}
		}
		return query.And(terms...)
	}
}
