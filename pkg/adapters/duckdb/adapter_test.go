package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/morph/pkg/adapter"
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		params    map[string]any
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				tmpDir := t.TempDir()
				return filepath.Join(tmpDir, "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
		{
			name: "with settings",
			setupPath: func(_ *testing.T) string {
				return ":memory:"
			},
			params: map[string]any{"settings": map[string]any{"memory_limit": "512MB"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: dbPath, Params: tt.params}))
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_ConnectInvalidParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), core.AdapterConfig{Params: map[string]any{"bogus": 1}})
	require.Error(t, err)
	assert.False(t, adp.IsConnected())
}

func TestAdapter_GetTableMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("main", "determination").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("DeterminationID", "INTEGER", "NO", 1).
			AddRow("TaxonID", "INTEGER", "YES", 2))
	mock.ExpectQuery("PRIMARY KEY").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("DeterminationID"))
	mock.ExpectQuery("duckdb_constraints").
		WithArgs("main", "determination").
		WillReturnRows(sqlmock.NewRows([]string{"c", "s", "t", "r"}).
			AddRow("TaxonID", "main", "taxon", "TaxonID"))

	adp := New(nil)
	adp.DB = db

	meta, err := adp.GetTableMetadata(context.Background(), "determination")
	require.NoError(t, err)

	fk, ok := meta.ForeignKey("TaxonID")
	require.True(t, ok)
	assert.Equal(t, "taxon", fk.RefTable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	require.Error(t, adp.Exec(ctx, "SELECT 1"))
	_, err := adp.GetTableMetadata(ctx, "taxon")
	require.Error(t, err)
	assert.NoError(t, adp.Close())
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("duckdb")
	require.True(t, ok)

	adp, ok := factory(nil).(*Adapter)
	require.True(t, ok)
	assert.Equal(t, "duckdb", adp.Dialect().Name)
	assert.False(t, adp.Dialect().CanTarget())
}
