// Package dialect provides the DuckDB SQL dialect definition.
// This package is lightweight and has no database driver dependencies.
package dialect

import (
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

func init() {
	dialect.Register(DuckDB)
}

// DuckDB is the DuckDB dialect configuration. DuckDB is read as a source
// only, typically over an attached legacy export.
var DuckDB = dialect.NewDialect("duckdb").
	Identifiers(`"`, `"`, `""`, core.NormCaseInsensitive).
	DefaultSchema("main").
	PlaceholderStyle(core.PlaceholderQuestion).
	MaxParams(65535).
	WithReservedWords("order", "group", "table", "select", "from", "where", "user").
	Build()
