package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accessionDefs() []SchemaDef {
	return []SchemaDef{
		{
			Name: "shared",
			Records: []RecordDef{
				{Name: "Agent", Fields: []FieldDef{{Name: "lastName"}, {Name: "firstName"}}},
			},
		},
		{
			Name: "accession",
			Records: []RecordDef{
				{
					Name: "Accession",
					Fields: []FieldDef{
						{Name: "number", Required: true},
						{Name: "received", Kind: FieldDate},
					},
					Children: []RecordDef{
						{
							Name: "Agents",
							Fields: []FieldDef{
								{Name: "role"},
								{Name: "agent", Kind: FieldLink, Target: "shared.Agent"},
							},
						},
					},
				},
				{
					Name:  "Taxon",
					Tree:  true,
					Ranks: []string{"Kingdom", "Genus", "Species"},
					Fields: []FieldDef{
						{Name: "name"},
						{Name: "accession", Kind: FieldLink, Target: "Accession"},
					},
				},
			},
		},
	}
}

func TestBuild_OrderAndLinks(t *testing.T) {
	fam, err := Build(accessionDefs()...)
	require.NoError(t, err)

	var names []string
	for _, r := range fam.Records() {
		names = append(names, r.FullName())
	}
	assert.Equal(t, []string{"shared.Agent", "accession.Accession", "accession.Agents", "accession.Taxon"}, names)

	acc, ok := fam.Lookup("accession", "Accession")
	require.True(t, ok)
	require.Len(t, acc.Children(), 1)

	agents := acc.Children()[0]
	assert.Same(t, acc, agents.Parent())
	assert.Equal(t, "Accession", agents.ParentColumn())
	assert.Empty(t, acc.ParentColumn())
	assert.Equal(t, "accession", agents.Schema().Name(), "nested records resolve the ancestor schema")

	link, ok := agents.Field("agent")
	require.True(t, ok)
	agent, _ := fam.Record("shared.Agent")
	assert.Same(t, agent, link.Target())
	assert.True(t, link.IsLink())

	taxon, _ := fam.Lookup("accession", "Taxon")
	assert.True(t, taxon.IsTree())
	assert.Equal(t, KindTree, taxon.Kind())
	assert.Equal(t, []string{"Kingdom", "Genus", "Species"}, taxon.Ranks())
	local, _ := taxon.Field("accession")
	assert.Same(t, acc, local.Target(), "unqualified targets resolve in the declaring schema")

	fields := acc.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "number", fields[0].Name())
	assert.True(t, fields[0].Required())
	assert.Equal(t, FieldText, fields[0].Kind(), "empty kind defaults to text")
	assert.Equal(t, FieldDate, fields[1].Kind())
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		defs []SchemaDef
		want string
	}{
		{
			name: "duplicate sibling fields",
			defs: []SchemaDef{{Name: "s", Records: []RecordDef{{Name: "R", Fields: []FieldDef{{Name: "a"}, {Name: "a"}}}}}},
			want: "s.R.a: duplicate field name",
		},
		{
			name: "duplicate sibling records",
			defs: []SchemaDef{{Name: "s", Records: []RecordDef{{Name: "R"}, {Name: "R"}}}},
			want: "s.R: duplicate record name",
		},
		{
			name: "duplicate full name across nesting",
			defs: []SchemaDef{{Name: "s", Records: []RecordDef{{Name: "R", Children: []RecordDef{{Name: "C"}}}, {Name: "Q", Children: []RecordDef{{Name: "C"}}}}}},
			want: "s.C: duplicate full record name",
		},
		{
			name: "dangling link",
			defs: []SchemaDef{{Name: "s", Records: []RecordDef{{Name: "R", Fields: []FieldDef{{Name: "l", Kind: FieldLink, Target: "Missing"}}}}}},
			want: `link target "Missing" does not exist`,
		},
		{
			name: "tree without ranks",
			defs: []SchemaDef{{Name: "s", Records: []RecordDef{{Name: "T", Tree: true}}}},
			want: "tree record declares no ranks",
		},
		{
			name: "duplicate rank",
			defs: []SchemaDef{{Name: "s", Records: []RecordDef{{Name: "T", Tree: true, Ranks: []string{"Genus", "Genus"}}}}},
			want: `duplicate rank "Genus"`,
		},
		{
			name: "reserved id field",
			defs: []SchemaDef{{Name: "s", Records: []RecordDef{{Name: "R", Fields: []FieldDef{{Name: "id"}}}}}},
			want: "s.R.id: field name is reserved",
		},
		{
			name: "child field named after parent",
			defs: []SchemaDef{{Name: "s", Records: []RecordDef{{Name: "R", Children: []RecordDef{{Name: "C", Fields: []FieldDef{{Name: "R"}}}}}}}},
			want: "s.C.R: field name is reserved",
		},
		{
			name: "duplicate schema",
			defs: []SchemaDef{{Name: "s"}, {Name: "s"}},
			want: "s: duplicate schema name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.defs...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var defErr *DefinitionError
			assert.True(t, errors.As(err, &defErr))
		})
	}
}

func TestBuild_ReportsEveryError(t *testing.T) {
	_, err := Build(SchemaDef{Name: "s", Records: []RecordDef{
		{Name: "A", Fields: []FieldDef{{Name: "x"}, {Name: "x"}}},
		{Name: "B", Fields: []FieldDef{{Name: "l", Kind: FieldLink}}},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate field name")
	assert.Contains(t, err.Error(), "link field has no target")
}

func TestSkip(t *testing.T) {
	fam, err := Build(SchemaDef{Name: "s", Skip: true, Records: []RecordDef{{Name: "R"}}},
		SchemaDef{Name: "t", Records: []RecordDef{{Name: "R", Skip: true}, {Name: "Q"}}})
	require.NoError(t, err)

	r, _ := fam.Lookup("s", "R")
	assert.True(t, r.Skip(), "skipped schema skips its records")
	r, _ = fam.Lookup("t", "R")
	assert.True(t, r.Skip())
	q, _ := fam.Lookup("t", "Q")
	assert.False(t, q.Skip())
}

func TestKindChain(t *testing.T) {
	parent, ok := KindTree.Parent()
	require.True(t, ok)
	assert.Equal(t, KindRecord, parent)

	_, ok = KindRecord.Parent()
	assert.False(t, ok)
	assert.Equal(t, "tree", KindTree.String())
}

func TestParseFieldKind(t *testing.T) {
	tests := []struct {
		in      string
		want    FieldKind
		wantErr bool
	}{
		{"", FieldText, false},
		{"Integer", FieldInteger, false},
		{" link ", FieldLink, false},
		{"blob", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFieldKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
