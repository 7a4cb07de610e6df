package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		expectErr bool
	}{
		{
			name:      "close with nil DB",
			setupDB:   false,
			expectErr: false,
		},
		{
			name:      "close with open DB",
			setupDB:   true,
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			err := base.Close()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		expectErr bool
		errMsg    string
	}{
		{
			name:      "exec without connection",
			setupDB:   false,
			sql:       "SELECT 1",
			expectErr: true,
			errMsg:    "database connection not established",
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE TABLE users").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql:       "CREATE TABLE users (id INT)",
			expectErr: false,
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:       "INVALID SQL",
			expectErr: true,
			errMsg:    "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()

				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.DB = db
			}

			err := base.Exec(ctx, tt.sql)
			if tt.expectErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBaseSQLAdapter_Query(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		expectErr bool
		errMsg    string
	}{
		{
			name:      "query without connection",
			setupDB:   false,
			sql:       "SELECT 1",
			expectErr: true,
			errMsg:    "database connection not established",
		},
		{
			name:    "query success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "name"}).
					AddRow(1, "alice").
					AddRow(2, "bob")
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			sql:       "SELECT id, name FROM users",
			expectErr: false,
		},
		{
			name:    "query with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("INVALID").WillReturnError(assert.AnError)
			},
			sql:       "INVALID SQL",
			expectErr: true,
			errMsg:    "failed to execute query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()

				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.DB = db
			}

			rows, err := base.Query(ctx, tt.sql)
			if tt.expectErr {
				require.Error(t, err)
				assert.Nil(t, rows)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				require.NoError(t, err)
				assert.NotNil(t, rows)
				defer func() { _ = rows.Close() }()
			}
		})
	}
}

func TestBaseSQLAdapter_IsConnected(t *testing.T) {
	tests := []struct {
		name     string
		setupDB  bool
		expected bool
	}{
		{
			name:     "not connected",
			setupDB:  false,
			expected: false,
		},
		{
			name:     "connected",
			setupDB:  true,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, _, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				base.DB = db
			}

			assert.Equal(t, tt.expected, base.IsConnected())
		})
	}
}

func TestBaseSQLAdapter_Begin(t *testing.T) {
	base := &BaseSQLAdapter{}
	_, err := base.Begin(context.Background())
	require.Error(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	base.DB = db

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx, err := base.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_ParseQualifiedName(t *testing.T) {
	pg := dialect.NewDialect("pg").DefaultSchema("public").Build()
	my := dialect.NewDialect("my").Build()

	tests := []struct {
		name       string
		cfg        core.AdapterConfig
		d          *dialect.Dialect
		table      string
		wantSchema string
		wantName   string
	}{
		{"qualified", core.AdapterConfig{}, pg, "legacy.taxon", "legacy", "taxon"},
		{"configured schema", core.AdapterConfig{Schema: "specify"}, pg, "taxon", "specify", "taxon"},
		{"dialect default", core.AdapterConfig{}, pg, "taxon", "public", "taxon"},
		{"database as schema", core.AdapterConfig{Database: "specify"}, my, "taxon", "specify", "taxon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{Cfg: tt.cfg}
			schema, name := base.ParseQualifiedName(tt.table, tt.d)
			assert.Equal(t, tt.wantSchema, schema)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestBaseSQLAdapter_GetTableMetadataCommon(t *testing.T) {
	d := dialect.NewDialect("pg").DefaultSchema("public").PlaceholderStyle(core.PlaceholderDollar).Build()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", "collectionobject").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("CollectionObjectID", "integer", "NO", 1).
			AddRow("CatalogNumber", "text", "YES", 2))
	mock.ExpectQuery("PRIMARY KEY").
		WithArgs("public", "collectionobject").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("CollectionObjectID"))

	base := &BaseSQLAdapter{DB: db}
	meta, err := base.GetTableMetadataCommon(context.Background(), "collectionobject", d)
	require.NoError(t, err)

	assert.Equal(t, "public", meta.Schema)
	assert.Equal(t, []string{"CollectionObjectID"}, meta.PrimaryKey)
	require.Len(t, meta.Columns, 2)
	assert.True(t, meta.Columns[0].PrimaryKey)
	assert.False(t, meta.Columns[1].PrimaryKey)
	assert.True(t, meta.Columns[1].Nullable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_GetTableMetadataCommon_NotFound(t *testing.T) {
	d := dialect.NewDialect("pg").DefaultSchema("public").Build()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	base := &BaseSQLAdapter{DB: db}
	_, err = base.GetTableMetadataCommon(context.Background(), "missing", d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table missing not found")
}

func TestBaseSQLAdapter_QueryForeignKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FOREIGN").
		WillReturnRows(sqlmock.NewRows([]string{"column", "ref_schema", "ref_table", "ref_column"}).
			AddRow("CollectingEventID", "specify", "collectingevent", "CollectingEventID").
			AddRow("AgentID", "shared", "agent", "AgentID"))

	base := &BaseSQLAdapter{DB: db}
	fks, err := base.QueryForeignKeys(context.Background(), "specify", "SELECT FOREIGN")
	require.NoError(t, err)

	assert.Equal(t, []core.ForeignKey{
		{Column: "CollectingEventID", RefTable: "collectingevent", RefColumn: "CollectingEventID"},
		{Column: "AgentID", RefTable: "shared.agent", RefColumn: "AgentID"},
	}, fks)
}
