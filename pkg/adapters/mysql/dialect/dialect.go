// Package dialect provides the MySQL/MariaDB SQL dialect definition.
package dialect

import (
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

func init() {
	dialect.Register(MySQL)
}

// MySQL is the MySQL dialect configuration. Unqualified tables resolve
// against the connected database, so there is no default schema.
var MySQL = dialect.NewDialect("mysql").
	Identifiers("`", "`", "``", core.NormCaseSensitive).
	PlaceholderStyle(core.PlaceholderQuestion).
	MaxParams(65535).
	WithReservedWords("order", "group", "table", "select", "from", "where", "key", "range", "rank").
	Build()
