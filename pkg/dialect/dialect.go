// Package dialect describes how each SQL engine quotes identifiers, binds
// parameters and, for engines that can receive converted data, which column
// types and statements the converter and DDL projector must use.
package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/morph/pkg/core"
)

// Separators used to place a target table inside a schema.
const (
	// SeparatorSchema qualifies tables with a real schema: "schema"."table".
	SeparatorSchema = "."
	// SeparatorPrefix emulates schemas with a name prefix: "schema_table".
	SeparatorPrefix = "_"
)

// TargetFeatures holds what a dialect needs to act as a conversion target.
type TargetFeatures struct {
	// UUIDType is the column type of derived identifiers.
	UUIDType string
	// SummaryType is the column type of the tree_structure column.
	SummaryType string
	// Types maps field kinds (text, integer, float, boolean, date) to column types.
	Types map[string]string
	// SchemaSeparator is SeparatorSchema or SeparatorPrefix.
	SchemaSeparator string
	// CreateSchema is a format string taking the quoted schema name.
	// Empty when schemas are emulated.
	CreateSchema string
	// DeferConstraints postpones foreign-key checks to commit.
	DeferConstraints string
	// SummaryRoot builds a one-entry summary from (rank, name) expressions.
	SummaryRoot string
	// SummaryExtend merges (summary, rank, name) into a new summary.
	SummaryExtend string
	// AlterForeignKeys adds link constraints once every table exists,
	// for engines that check REFERENCES targets at creation.
	AlterForeignKeys bool
	// DropCascade appends CASCADE to DROP TABLE.
	DropCascade bool
}

// Dialect is the runtime view of one SQL engine.
type Dialect struct {
	Name          string
	Identifiers   core.IdentifierConfig
	DefaultSchema string
	Placeholder   core.PlaceholderStyle
	MaxParams     int

	// Target is nil for source-only dialects.
	Target *TargetFeatures

	reservedWords map[string]struct{}
}

// Config returns the static configuration of the dialect.
func (d *Dialect) Config() *core.DialectConfig {
	return &core.DialectConfig{
		Name:          d.Name,
		Identifiers:   d.Identifiers,
		DefaultSchema: d.DefaultSchema,
		Placeholder:   d.Placeholder,
		MaxParams:     d.MaxParams,
	}
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// NormalizeName normalizes an identifier according to the dialect's rules.
func (d *Dialect) NormalizeName(name string) string {
	switch d.Identifiers.Normalization {
	case core.NormUppercase:
		return strings.ToUpper(name)
	case core.NormCaseSensitive:
		return name
	default:
		return strings.ToLower(name)
	}
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	case core.PlaceholderAtP:
		return "@p" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[d.NormalizeName(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., ] -> ]])
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteTable quotes a possibly schema-qualified table reference part by part.
func (d *Dialect) QuoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// CanTarget reports whether converted data can be written with this dialect.
func (d *Dialect) CanTarget() bool {
	return d.Target != nil
}

// TableName returns the quoted name of a target table inside a schema.
func (d *Dialect) TableName(schema, table string) string {
	if schema == "" {
		return d.QuoteIdentifier(table)
	}
	if d.Target != nil && d.Target.SchemaSeparator == SeparatorPrefix {
		return d.QuoteIdentifier(schema + SeparatorPrefix + table)
	}
	return d.QuoteIdentifier(schema) + "." + d.QuoteIdentifier(table)
}

// ColumnType returns the target column type for a field kind.
func (d *Dialect) ColumnType(kind string) (string, error) {
	if d.Target == nil {
		return "", fmt.Errorf("dialect %s cannot be a conversion target", d.Name)
	}
	t, ok := d.Target.Types[kind]
	if !ok {
		return "", fmt.Errorf("dialect %s has no column type for %q", d.Name, kind)
	}
	return t, nil
}

// ---------- Builder ----------

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:         `"`,
				QuoteEnd:      `"`,
				Escape:        `""`,
				Normalization: core.NormLowercase,
			},
			MaxParams:     999,
			reservedWords: make(map[string]struct{}),
		},
	}
}

// New creates a dialect builder from a DialectConfig.
func New(cfg *core.DialectConfig) *Builder {
	b := NewDialect(cfg.Name)
	b.dialect.Identifiers = cfg.Identifiers
	b.dialect.DefaultSchema = cfg.DefaultSchema
	b.dialect.Placeholder = cfg.Placeholder
	if cfg.MaxParams > 0 {
		b.dialect.MaxParams = cfg.MaxParams
	}
	return b
}

// Identifiers configures identifier quoting and normalization.
func (b *Builder) Identifiers(quote, quoteEnd, escape string, norm core.NormalizationStrategy) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:         quote,
		QuoteEnd:      quoteEnd,
		Escape:        escape,
		Normalization: norm,
	}
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// MaxParams sets the bind parameter limit of one statement.
func (b *Builder) MaxParams(n int) *Builder {
	b.dialect.MaxParams = n
	return b
}

// WithReservedWords registers words that need quoting when used as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[b.dialect.NormalizeName(w)] = struct{}{}
	}
	return b
}

// AsTarget marks the dialect as able to receive converted data.
func (b *Builder) AsTarget(t TargetFeatures) *Builder {
	if t.SchemaSeparator == "" {
		t.SchemaSeparator = SeparatorSchema
	}
	b.dialect.Target = &t
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
