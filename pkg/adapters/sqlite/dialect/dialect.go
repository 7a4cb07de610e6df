// Package dialect provides the SQLite SQL dialect definition.
package dialect

import (
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

func init() {
	dialect.Register(SQLite)
}

// SQLite is the SQLite dialect configuration. SQLite has no schemas inside
// one database file, so target schemas become table name prefixes and the
// tree summary is stored as JSON text.
var SQLite = dialect.NewDialect("sqlite").
	Identifiers(`"`, `"`, `""`, core.NormCaseInsensitive).
	DefaultSchema("main").
	PlaceholderStyle(core.PlaceholderQuestion).
	MaxParams(32766).
	WithReservedWords("order", "group", "table", "select", "from", "where", "index", "references").
	AsTarget(dialect.TargetFeatures{
		UUIDType:    "TEXT",
		SummaryType: "TEXT",
		Types: map[string]string{
			"text":    "TEXT",
			"integer": "INTEGER",
			"float":   "REAL",
			"boolean": "INTEGER",
			"date":    "TEXT",
		},
		SchemaSeparator:  dialect.SeparatorPrefix,
		DeferConstraints: "PRAGMA defer_foreign_keys = ON",
		SummaryRoot:      "json_object(%s, %s)",
		SummaryExtend:    "json_patch(%s, json_object(%s, %s))",
	}).
	Build()
