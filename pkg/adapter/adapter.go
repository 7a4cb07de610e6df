// Package adapter provides the database adapter contract used by morph to
// read legacy source catalogs and write converted rows.
//
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves in init().
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

// Type aliases for the core types most adapter code touches.
type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)

// Adapter defines the interface that all database adapters must implement.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string, args ...any) (*Rows, error)

	// Begin starts a transaction on the underlying connection pool.
	Begin(ctx context.Context) (*sql.Tx, error)

	// GetTableMetadata retrieves columns, primary key and foreign-key edges
	// of a table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// Dialect returns the SQL dialect of this adapter.
	Dialect() *dialect.Dialect
}
