// Package duckdb provides a DuckDB database adapter for morph.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/morph/pkg/adapter"
	duckdialect "github.com/leapstack-labs/morph/pkg/adapters/duckdb/dialect"
	"github.com/leapstack-labs/morph/pkg/dialect"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// foreignKeysQuery lists forward foreign-key edges of one table.
// Only the first column of composite keys is reported.
const foreignKeysQuery = `
	SELECT
		constraint_column_names[1],
		schema_name,
		referenced_table,
		referenced_column_names[1]
	FROM duckdb_constraints()
	WHERE constraint_type = 'FOREIGN KEY'
		AND schema_name = ? AND table_name = ?
`

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the DuckDB dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return duckdialect.DuckDB
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	for _, stmt := range params.setupStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply %q: %w", stmt, err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// GetTableMetadata retrieves columns, primary key and foreign keys of a table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	meta, err := a.GetTableMetadataCommon(ctx, table, a.Dialect())
	if err != nil {
		return nil, err
	}

	fks, err := a.QueryForeignKeys(ctx, meta.Schema, foreignKeysQuery, meta.Schema, meta.Name)
	if err != nil {
		return nil, err
	}
	meta.ForeignKeys = fks
	return meta, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
