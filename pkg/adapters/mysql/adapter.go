// Package mysql provides a MySQL/MariaDB database adapter for morph.
// Legacy collection databases are usually MySQL, so this is the common
// conversion source.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	driver "github.com/go-sql-driver/mysql"
	"github.com/leapstack-labs/morph/pkg/adapter"
	mydialect "github.com/leapstack-labs/morph/pkg/adapters/mysql/dialect"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

// foreignKeysQuery lists forward foreign-key edges of one table.
const foreignKeysQuery = `
	SELECT
		COLUMN_NAME,
		REFERENCED_TABLE_SCHEMA,
		REFERENCED_TABLE_NAME,
		REFERENCED_COLUMN_NAME
	FROM information_schema.KEY_COLUMN_USAGE
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		AND REFERENCED_TABLE_NAME IS NOT NULL
	ORDER BY ORDINAL_POSITION
`

// Adapter implements the adapter.Adapter interface for MySQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new MySQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Dialect returns the MySQL dialect.
func (a *Adapter) Dialect() *dialect.Dialect {
	return mydialect.MySQL
}

// Connect establishes a connection to MySQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildMySQLDSN(cfg)

	a.Logger.Debug("connecting to mysql", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open mysql connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping mysql: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildMySQLDSN constructs a MySQL DSN. Options are passed through as
// connection parameters; "tls" selects a registered TLS config.
func buildMySQLDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	c := driver.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.ParseTime = true

	for k, v := range cfg.Options {
		if k == "tls" {
			c.TLSConfig = v
			continue
		}
		if c.Params == nil {
			c.Params = make(map[string]string)
		}
		c.Params[k] = v
	}

	return c.FormatDSN()
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

	a.Logger.Debug("reflected table",
		slog.String("table", table),
		slog.Int("columns", len(meta.Columns)),
		slog.Int("foreign_keys", len(fks)))
	return meta, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
