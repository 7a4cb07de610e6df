// Package sqlite provides a SQLite database adapter for morph. It serves as
// both a conversion source and a conversion target.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/leapstack-labs/morph/pkg/adapter"
	litedialect "github.com/leapstack-labs/morph/pkg/adapters/sqlite/dialect"
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"

	_ "modernc.org/sqlite" // sqlite driver
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the SQLite dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return litedialect.SQLite
}

// Connect opens a SQLite database file. Use ":memory:" for an in-memory
// database; it is pinned to a single connection so every statement sees
// the same data.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = ":memory:"
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", buildSQLiteDSN(path))
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildSQLiteDSN enables foreign keys and a busy timeout on every connection.
func buildSQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
}

// GetTableMetadata retrieves columns, primary key and foreign keys of a
// table through the table-valued PRAGMA functions.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	schema, name := a.ParseQualifiedName(table, a.Dialect())

	rows, err := a.DB.QueryContext(ctx,
		`SELECT cid, name, type, "notnull", pk FROM pragma_table_info(?, ?) ORDER BY cid`,
		name, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type pkCol struct {
		name string
		pos  int
	}
	var columns []core.Column
	var pks []pkCol
	for rows.Next() {
		var col core.Column
		var notNull, pk int
		if err := rows.Scan(&col.Position, &col.Name, &col.Type, &notNull, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Position++
		col.Nullable = notNull == 0 && pk == 0
		columns = append(columns, col)
		if pk > 0 {
			pks = append(pks, pkCol{name: col.Name, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	sort.Slice(pks, func(i, j int) bool { return pks[i].pos < pks[j].pos })
	meta := &core.TableMetadata{Schema: schema, Name: name, Columns: columns}
	for _, p := range pks {
		meta.PrimaryKey = append(meta.PrimaryKey, p.name)
	}
	adapter.MarkPrimaryKey(meta)

	fks, err := a.foreignKeys(ctx, schema, name)
	if err != nil {
		return nil, err
	}
	meta.ForeignKeys = fks
	return meta, nil
}

// foreignKeys reads pragma_foreign_key_list. A NULL "to" column means the
// reference targets the remote primary key.
func (a *Adapter) foreignKeys(ctx context.Context, schema, table string) ([]core.ForeignKey, error) {
	rows, err := a.DB.QueryContext(ctx,
		`SELECT "from", "table", "to" FROM pragma_foreign_key_list(?, ?) ORDER BY id, seq`,
		table, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}

	var fks []core.ForeignKey
	var implicit []int
	for rows.Next() {
		var fk core.ForeignKey
		var to sql.NullString
		if err := rows.Scan(&fk.Column, &fk.RefTable, &to); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fk.RefColumn = to.String
		if !to.Valid || to.String == "" {
			implicit = append(implicit, len(fks))
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}
	_ = rows.Close()

	for _, i := range implicit {
		pk, err := a.primaryKeyOf(ctx, schema, fks[i].RefTable)
		if err != nil {
			return nil, err
		}
		fks[i].RefColumn = pk
	}
	return fks, nil
}

func (a *Adapter) primaryKeyOf(ctx context.Context, schema, table string) (string, error) {
	var name string
	err := a.DB.QueryRowContext(ctx,
		`SELECT name FROM pragma_table_info(?, ?) WHERE pk = 1`, table, schema).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("failed to resolve primary key of %s: %w", table, err)
	}
	return name, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
