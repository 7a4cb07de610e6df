package ddl

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/morph/internal/schema"
	pgdialect "github.com/leapstack-labs/morph/pkg/adapters/postgres/dialect"
	"github.com/leapstack-labs/morph/pkg/adapters/sqlite"
	litedialect "github.com/leapstack-labs/morph/pkg/adapters/sqlite/dialect"
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T) *schema.Family {
	t.Helper()
	fam, err := schema.Build(
		schema.SchemaDef{Name: "taxonomy", Records: []schema.RecordDef{
			{Name: "Taxon", Tree: true, Ranks: []string{"Kingdom", "Genus"}, Fields: []schema.FieldDef{{Name: "name"}}},
		}},
		schema.SchemaDef{Name: "collection", Records: []schema.RecordDef{
			{
				Name:   "Collection",
				Fields: []schema.FieldDef{{Name: "code"}},
				Children: []schema.RecordDef{{
					Name: "Object",
					Fields: []schema.FieldDef{
						{Name: "count", Kind: schema.FieldInteger},
						{Name: "taxon", Kind: schema.FieldLink, Target: "taxonomy.Taxon"},
					},
				}},
			},
		}},
	)
	require.NoError(t, err)
	return fam
}

func TestGenerate_Postgres(t *testing.T) {
	stmts, err := Generate(family(t), pgdialect.Postgres)
	require.NoError(t, err)

	assert.Equal(t, []string{
		`CREATE SCHEMA IF NOT EXISTS "taxonomy"`,
		`CREATE SCHEMA IF NOT EXISTS "collection"`,
		"CREATE TABLE IF NOT EXISTS \"taxonomy\".\"Taxon\" (\n" +
			"    \"id\" UUID PRIMARY KEY,\n" +
			"    \"name\" TEXT,\n" +
			"    \"tree_structure\" JSONB\n)",
		"CREATE TABLE IF NOT EXISTS \"collection\".\"Collection\" (\n" +
			"    \"id\" UUID PRIMARY KEY,\n" +
			"    \"code\" TEXT\n)",
		"CREATE TABLE IF NOT EXISTS \"collection\".\"Object\" (\n" +
			"    \"id\" UUID PRIMARY KEY,\n" +
			"    \"Collection\" UUID NOT NULL REFERENCES \"collection\".\"Collection\" (\"id\") ON UPDATE CASCADE DEFERRABLE INITIALLY DEFERRED,\n" +
			"    \"count\" BIGINT,\n" +
			"    \"taxon\" UUID\n)",
		`ALTER TABLE "collection"."Object" DROP CONSTRAINT IF EXISTS "Object_taxon_fkey"`,
		`ALTER TABLE "collection"."Object" ADD CONSTRAINT "Object_taxon_fkey" FOREIGN KEY ("taxon") REFERENCES "taxonomy"."Taxon" ("id") DEFERRABLE INITIALLY DEFERRED`,
	}, stmts)
}

func TestGenerate_SQLiteInlinesLinks(t *testing.T) {
	stmts, err := Generate(family(t), litedialect.SQLite)
	require.NoError(t, err)
	require.Len(t, stmts, 3, "no schemas and no deferred constraints")

	assert.Contains(t, stmts[0], `"taxonomy_Taxon"`)
	assert.Contains(t, stmts[0], `"tree_structure" TEXT`)
	assert.Contains(t, stmts[2], `"taxon" TEXT REFERENCES "taxonomy_Taxon" ("id") DEFERRABLE INITIALLY DEFERRED`)
	assert.Contains(t, stmts[2], `"count" INTEGER`)
}

func TestGenerate_AppliesOnSQLite(t *testing.T) {
	ctx := context.Background()
	adp := sqlite.New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: filepath.Join(t.TempDir(), "target.db")}))
	t.Cleanup(func() { _ = adp.Close() })

	fam := family(t)
	create, err := Generate(fam, adp.Dialect())
	require.NoError(t, err)
	for range 2 {
		for _, stmt := range create {
			require.NoError(t, adp.Exec(ctx, stmt), stmt)
		}
	}

	meta, err := adp.GetTableMetadata(ctx, "collection_Object")
	require.NoError(t, err)
	fk, ok := meta.ForeignKey("Collection")
	require.True(t, ok)
	assert.Equal(t, "collection_Collection", fk.RefTable)

	drop, err := Drop(fam, adp.Dialect())
	require.NoError(t, err)
	for _, stmt := range drop {
		require.NoError(t, adp.Exec(ctx, stmt), stmt)
	}
	_, err = adp.GetTableMetadata(ctx, "collection_Object")
	require.Error(t, err)
}

func TestDrop_Postgres(t *testing.T) {
	stmts, err := Drop(family(t), pgdialect.Postgres)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`DROP TABLE IF EXISTS "collection"."Object" CASCADE`,
		`DROP TABLE IF EXISTS "collection"."Collection" CASCADE`,
		`DROP TABLE IF EXISTS "taxonomy"."Taxon" CASCADE`,
	}, stmts)
}

func TestGenerate_SourceOnlyDialect(t *testing.T) {
	_, err := Generate(family(t), dialect.NewDialect("legacy").Build())
	require.ErrorIs(t, err, dialect.ErrNotTarget)
	assert.Contains(t, err.Error(), "postgres", "error lists the writable dialects")
	_, err = Drop(family(t), dialect.NewDialect("legacy").Build())
	require.ErrorIs(t, err, dialect.ErrNotTarget)
}
