package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/morph/pkg/adapter"
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T) *Adapter {
	t.Helper()
	adp := New(nil)
	path := filepath.Join(t.TempDir(), "legacy.db")
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: path}))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_GetTableMetadata(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	require.NoError(t, adp.Exec(ctx, `CREATE TABLE collectingevent (
		CollectingEventID INTEGER PRIMARY KEY,
		StationFieldNumber TEXT
	)`))
	require.NoError(t, adp.Exec(ctx, `CREATE TABLE collectionobject (
		CollectionObjectID INTEGER PRIMARY KEY,
		CatalogNumber TEXT NOT NULL,
		CollectingEventID INTEGER REFERENCES collectingevent(CollectingEventID),
		AccessionID INTEGER REFERENCES collectingevent
	)`))

	meta, err := adp.GetTableMetadata(ctx, "collectionobject")
	require.NoError(t, err)

	assert.Equal(t, "main", meta.Schema)
	assert.Equal(t, "collectionobject", meta.Name)
	require.Len(t, meta.Columns, 4)
	assert.Equal(t, "CatalogNumber", meta.Columns[1].Name)
	assert.False(t, meta.Columns[1].Nullable)
	assert.True(t, meta.Columns[2].Nullable)
	assert.True(t, meta.Columns[0].PrimaryKey)
	assert.Equal(t, []string{"CollectionObjectID"}, meta.PrimaryKey)

	fk, ok := meta.ForeignKey("CollectingEventID")
	require.True(t, ok)
	assert.Equal(t, core.ForeignKey{Column: "CollectingEventID", RefTable: "collectingevent", RefColumn: "CollectingEventID"}, *fk)

	implicit, ok := meta.ForeignKey("AccessionID")
	require.True(t, ok)
	assert.Equal(t, "CollectingEventID", implicit.RefColumn, "implicit reference resolves to the remote primary key")
}

func TestAdapter_GetTableMetadata_Missing(t *testing.T) {
	adp := connect(t)
	_, err := adp.GetTableMetadata(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table nope not found")
}

func TestAdapter_InMemory(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: ":memory:"}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)"))
	require.NoError(t, adp.Exec(ctx, "INSERT INTO t (id) VALUES (?)", 7))

	rows, err := adp.Query(ctx, "SELECT id FROM t")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var id int
	require.NoError(t, rows.Scan(&id))
	assert.Equal(t, 7, id)
}

func TestAdapter_ForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	adp := connect(t)

	require.NoError(t, adp.Exec(ctx, "CREATE TABLE p (id INTEGER PRIMARY KEY)"))
	require.NoError(t, adp.Exec(ctx, "CREATE TABLE c (id INTEGER PRIMARY KEY, p_id INTEGER REFERENCES p(id))"))

	err := adp.Exec(ctx, "INSERT INTO c (id, p_id) VALUES (1, 99)")
	require.Error(t, err)
}

func TestAdapter_Registry(t *testing.T) {
	factory, ok := adapter.Get("sqlite")
	require.True(t, ok)

	adp, ok := factory(nil).(*Adapter)
	require.True(t, ok)
	d := adp.Dialect()
	assert.True(t, d.CanTarget())
	assert.Equal(t, `"accession_Agent"`, d.TableName("accession", "Agent"))
}
