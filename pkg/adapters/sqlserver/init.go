// Package sqlserver provides a Microsoft SQL Server adapter for morph.
//
// This file registers the SQL Server adapter with the adapter registry.
// Import this package with a blank identifier to register the adapter:
//
//	import _ "github.com/leapstack-labs/morph/pkg/adapters/sqlserver"
package sqlserver

import (
	"log/slog"

	"github.com/leapstack-labs/morph/pkg/adapter"

	// Import dialect to ensure it's registered
	_ "github.com/leapstack-labs/morph/pkg/adapters/sqlserver/dialect"
)

func init() {
	adapter.Register("sqlserver", func(logger *slog.Logger) adapter.Adapter { return New(logger) })
}
