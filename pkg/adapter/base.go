package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query and Begin implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Query executes a SQL statement that returns rows.
func (b *BaseSQLAdapter) Query(ctx context.Context, sqlStr string, args ...any) (*core.Rows, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	//nolint:rowserrcheck // rows.Err() must be checked by caller after iteration completes
	rows, err := b.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	return &core.Rows{Rows: rows}, nil
}

// Begin starts a transaction.
func (b *BaseSQLAdapter) Begin(ctx context.Context) (*sql.Tx, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// ParseQualifiedName splits a table reference into schema and name.
// Unqualified names fall back to the configured schema, then the dialect's
// default schema, then the configured database.
func (b *BaseSQLAdapter) ParseQualifiedName(table string, d *dialect.Dialect) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	switch {
	case b.Cfg.Schema != "":
		return b.Cfg.Schema, table
	case d.DefaultSchema != "":
		return d.DefaultSchema, table
	default:
		return b.Cfg.Database, table
	}
}

// GetTableMetadataCommon loads columns and the primary key of a table from
// information_schema with dialect-appropriate placeholders. Foreign keys are
// engine specific and loaded separately with QueryForeignKeys.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table string, d *dialect.Dialect) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema, tableName := b.ParseQualifiedName(table, d)

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT 
			column_name,
			data_type,
			is_nullable,
			ordinal_position
		FROM information_schema.columns 
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	pkQuery := fmt.Sprintf(`
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = %s AND tc.table_name = %s
		ORDER BY kcu.ordinal_position
	`, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	pkRows, err := b.DB.QueryContext(ctx, pkQuery, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key: %w", err)
	}
	defer func() { _ = pkRows.Close() }()

	var pk []string
	for pkRows.Next() {
		var name string
		if err := pkRows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan primary key: %w", err)
		}
		pk = append(pk, name)
	}
	if err := pkRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary key: %w", err)
	}

	meta := &core.TableMetadata{
		Schema:     schema,
		Name:       tableName,
		Columns:    columns,
		PrimaryKey: pk,
	}
	MarkPrimaryKey(meta)
	return meta, nil
}

// QueryForeignKeys runs a query returning (column, referenced schema,
// referenced table, referenced column) rows. References into another schema
// than fromSchema keep their schema qualifier.
func (b *BaseSQLAdapter) QueryForeignKeys(ctx context.Context, fromSchema, query string, args ...any) ([]core.ForeignKey, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fks []core.ForeignKey
	for rows.Next() {
		var fk core.ForeignKey
		var refSchema sql.NullString
		if err := rows.Scan(&fk.Column, &refSchema, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if refSchema.Valid && refSchema.String != "" && refSchema.String != fromSchema {
			fk.RefTable = refSchema.String + "." + fk.RefTable
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return fks, nil
}

// MarkPrimaryKey sets Column.PrimaryKey for every primary-key column.
func MarkPrimaryKey(meta *core.TableMetadata) {
	for _, name := range meta.PrimaryKey {
		if col, ok := meta.Column(name); ok {
			col.PrimaryKey = true
		}
	}
}
