// Package sqlserver provides a Microsoft SQL Server adapter for morph.
package sqlserver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/leapstack-labs/morph/pkg/adapter"
	msdialect "github.com/leapstack-labs/morph/pkg/adapters/sqlserver/dialect"
	"github.com/leapstack-labs/morph/pkg/dialect"
	_ "github.com/microsoft/go-mssqldb" // sqlserver driver
	"github.com/microsoft/go-mssqldb/msdsn"
)

// foreignKeysQuery lists forward foreign-key edges of one table.
const foreignKeysQuery = `
	SELECT
		pc.name,
		OBJECT_SCHEMA_NAME(fkc.referenced_object_id),
		OBJECT_NAME(fkc.referenced_object_id),
		rc.name
	FROM sys.foreign_key_columns fkc
	JOIN sys.columns pc
		ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
	JOIN sys.columns rc
		ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
	WHERE fkc.parent_object_id = OBJECT_ID(QUOTENAME(@p1) + '.' + QUOTENAME(@p2))
	ORDER BY fkc.constraint_column_id
`

// Adapter implements the adapter.Adapter interface for SQL Server.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQL Server adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the SQL Server dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return msdialect.SQLServer
}

// Connect establishes a connection to SQL Server.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildSQLServerDSN(cfg)

	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(dsn); err != nil {
		return fmt.Errorf("invalid sqlserver dsn: %w", err)
	}

	a.Logger.Debug("connecting to sqlserver", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlserver connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlserver: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildSQLServerDSN constructs a sqlserver:// URL. Options become query
// parameters (e.g. encrypt, TrustServerCertificate).
func buildSQLServerDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 1433
	}

	q := url.Values{}
	if cfg.Database != "" {
		q.Set("database", cfg.Database)
	}
	for k, v := range cfg.Options {
		q.Set(k, v)
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
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
