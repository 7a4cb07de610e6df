// Package dialect provides the Microsoft SQL Server dialect definition.
package dialect

import (
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

func init() {
	dialect.Register(SQLServer)
}

// SQLServer is the SQL Server dialect configuration.
var SQLServer = dialect.NewDialect("sqlserver").
	Identifiers("[", "]", "]]", core.NormCaseInsensitive).
	DefaultSchema("dbo").
	PlaceholderStyle(core.PlaceholderAtP).
	MaxParams(2100).
	WithReservedWords("order", "group", "table", "select", "from", "where", "user", "key", "rank").
	Build()
