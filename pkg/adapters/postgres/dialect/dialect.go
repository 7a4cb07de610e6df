// Package dialect provides the PostgreSQL SQL dialect definition.
// This package is lightweight and has no database driver dependencies,
// making it suitable for the DDL projector and plan rendering without the
// overhead of database connections.
package dialect

import (
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

func init() {
	dialect.Register(Postgres)
}

// postgresReservedWords contains common PostgreSQL reserved words.
var postgresReservedWords = []string{
	"user", "order", "group", "table", "select", "from", "where", "index",
	"all", "and", "any", "array", "as", "asc", "authorization", "between",
	"both", "case", "cast", "check", "collate", "column", "constraint",
	"create", "cross", "default", "deferrable", "desc", "distinct", "do",
	"else", "end", "except", "false", "fetch", "for", "foreign", "from",
	"full", "grant", "having", "in", "initially", "inner", "intersect",
	"into", "is", "join", "leading", "left", "like", "limit", "natural",
	"not", "null", "offset", "on", "only", "or", "outer", "primary",
	"references", "returning", "right", "some", "then", "to", "trailing",
	"true", "union", "unique", "using", "when", "window", "with",
}

// Postgres is the PostgreSQL dialect configuration.
var Postgres = dialect.NewDialect("postgres").
	Identifiers(`"`, `"`, `""`, core.NormLowercase).
	DefaultSchema("public").
	PlaceholderStyle(core.PlaceholderDollar).
	MaxParams(65535).
	WithReservedWords(postgresReservedWords...).
	AsTarget(dialect.TargetFeatures{
		UUIDType:    "UUID",
		SummaryType: "JSONB",
		Types: map[string]string{
			"text":    "TEXT",
			"integer": "BIGINT",
			"float":   "DOUBLE PRECISION",
			"boolean": "BOOLEAN",
			"date":    "DATE",
		},
		SchemaSeparator:  dialect.SeparatorSchema,
		CreateSchema:     "CREATE SCHEMA IF NOT EXISTS %s",
		DeferConstraints: "SET CONSTRAINTS ALL DEFERRED",
		SummaryRoot:      "jsonb_build_object(%s, %s)",
		SummaryExtend:    "%s || jsonb_build_object(%s, %s)",
		AlterForeignKeys: true,
		DropCascade:      true,
	}).
	Build()
