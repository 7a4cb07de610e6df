package conversion

import (
	"errors"
	"math"
	"testing"

	"github.com/leapstack-labs/morph/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    Path
		wantErr bool
	}{
		{in: "Name", want: Path{{Column: "Name"}}},
		{in: "CollectionID.Code", want: Path{{Column: "CollectionID"}, {Column: "Code"}}},
		{in: "determination(CollectionObjectID).TaxonID", want: Path{{Table: "determination", Column: "CollectionObjectID"}, {Column: "TaxonID"}}},
		{in: " a . b ", want: Path{{Column: "a"}, {Column: "b"}}},
		{in: "", wantErr: true},
		{in: "a..b", wantErr: true},
		{in: "t(c", wantErr: true},
		{in: "t)c", wantErr: true},
		{in: "t()", wantErr: true},
		{in: "(c)", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePath(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPath_String(t *testing.T) {
	p := Path{{Table: "determination", Column: "CollectionObjectID"}, {Column: "TaxonID"}}
	assert.Equal(t, "determination(CollectionObjectID).TaxonID", p.String())
	assert.True(t, p[0].Reverse())
	assert.False(t, p[1].Reverse())
}

func TestTransforms(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    any
		wantErr bool
	}{
		{"int", "5", int64(5), false},
		{"int", []byte(" 12 "), int64(12), false},
		{"int", 3.0, int64(3), false},
		{"int", "", nil, false},
		{"int", "5x", nil, true},
		{"int", 2.5, nil, true},
		{"int", 1e19, nil, true},
		{"int", -1e19, nil, true},
		{"int", math.Inf(1), nil, true},
		{"int", float64(-1 << 62), int64(-1 << 62), false},
		{"int", "010", int64(10), false},
		{"float", "2.5", 2.5, false},
		{"float", int64(4), 4.0, false},
		{"bool", "true", true, false},
		{"bool", int64(0), false, false},
		{"bool", "maybe", nil, true},
		{"text", int64(7), "7", false},
		{"text", 1.5, "1.5", false},
		{"trim", "  x ", "x", false},
		{"upper", "abc", "ABC", false},
		{"lower", []byte("ABC"), "abc", false},
		{"date", "2021-03-04 10:11:12", "2021-03-04", false},
		{"date", "yesterday", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, err := LookupTransform(tt.name)
			require.NoError(t, err)
			got, err := fn(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransforms_NilPassesThrough(t *testing.T) {
	for _, name := range TransformNames() {
		fn, err := LookupTransform(name)
		require.NoError(t, err)
		got, err := fn(nil)
		require.NoError(t, err, name)
		assert.Nil(t, got, name)
	}
}

func TestLookupTransform_Unknown(t *testing.T) {
	_, err := LookupTransform("rot13")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "available: bool, date, float")
}

func TestChain(t *testing.T) {
	trim, _ := LookupTransform("trim")
	toInt, _ := LookupTransform("int")

	got, err := Chain(trim, toInt)(" 42 ")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
	assert.Nil(t, Chain())
}

func TestField_Apply(t *testing.T) {
	enum := &Field{Name: "status", Kind: FieldEnum, Enum: []string{"draft", "final"}}

	got, err := enum.Apply(int64(1))
	require.NoError(t, err)
	assert.Equal(t, "final", got)

	got, err = enum.Apply(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = enum.Apply(int64(2))
	require.Error(t, err)

	upper, _ := LookupTransform("upper")
	enum.Transform = upper
	got, err = enum.Apply("0")
	require.NoError(t, err)
	assert.Equal(t, "DRAFT", got)

	plain := &Field{Name: "remarks"}
	got, err = plain.Apply([]byte("text"))
	require.NoError(t, err)
	assert.Equal(t, "text", got, "byte slices become strings")
}

func testFamily(t *testing.T) *schema.Family {
	t.Helper()
	fam, err := schema.Build(schema.SchemaDef{
		Name: "s",
		Records: []schema.RecordDef{
			{
				Name:     "Parent",
				Fields:   []schema.FieldDef{{Name: "name"}},
				Children: []schema.RecordDef{{Name: "Child", Fields: []schema.FieldDef{{Name: "n", Kind: schema.FieldInteger}}}},
			},
			{
				Name:   "Taxon",
				Tree:   true,
				Ranks:  []string{"Kingdom"},
				Fields: []schema.FieldDef{{Name: "parent", Kind: schema.FieldLink, Target: "Parent"}},
			},
		},
	})
	require.NoError(t, err)
	return fam
}

func TestBind(t *testing.T) {
	fam := testFamily(t)

	b, err := Bind(fam, Schema{Name: "s", Records: []Record{
		{
			Name:     "Parent",
			Source:   "parent",
			Fields:   []Field{{Name: "name", Path: Path{{Column: "Name"}}}},
			Children: []Record{{Name: "Child", Source: "child", ParentColumn: "ParentID"}},
		},
		{Name: "Taxon", Source: "taxon", Tree: &Tree{DefinitionTable: "taxontreedef", DefinitionID: 1}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())

	parent, _ := fam.Lookup("s", "Parent")
	conv, ok := b.Record(parent)
	require.True(t, ok)
	assert.Equal(t, "parent", conv.Source)

	child := parent.Children()[0]
	conv, ok = b.Record(child)
	require.True(t, ok)
	assert.Equal(t, "ParentID", conv.ParentColumn)
}

func TestBind_Errors(t *testing.T) {
	fam := testFamily(t)

	_, err := Bind(fam,
		Schema{Name: "missing"},
		Schema{Name: "s", Records: []Record{
			{Name: "Nope"},
			{
				Name: "Parent",
				Fields: []Field{
					{Name: "ghost", Path: Path{{Column: "x"}}},
					{Name: "name"},
				},
				Children: []Record{{Name: "Orphan"}},
			},
			{Name: "Taxon"},
		}},
	)
	require.Error(t, err)

	for _, want := range []string{
		"missing: no such schema",
		"s.Nope: no such record",
		"s.Parent.ghost: record has no such field",
		"s.Parent.name: empty source path",
		"s.Parent.Orphan: record has no such child",
		"s.Taxon: tree record needs a tree conversion",
	} {
		assert.Contains(t, err.Error(), want)
	}

	var defErr *DefinitionError
	assert.True(t, errors.As(err, &defErr))
}

func TestTree_WithDefaults(t *testing.T) {
	tree := Tree{DefinitionTable: "geographytreedef", NameColumn: "FullName"}.WithDefaults()

	assert.Equal(t, "ParentID", tree.ParentColumn)
	assert.Equal(t, "FullName", tree.NameColumn)
	assert.Equal(t, "Name", tree.RankColumn)
	assert.Equal(t, "geographytreedefitem", tree.ItemTable())
}
