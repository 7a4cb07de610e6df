package starlark

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestGoToStarlark(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		wantStr string
		wantErr bool
	}{
		{name: "string", input: "hello", wantStr: `"hello"`},
		{name: "bytes", input: []byte("raw"), wantStr: `"raw"`},
		{name: "int", input: 42, wantStr: "42"},
		{name: "int32", input: int32(7), wantStr: "7"},
		{name: "int64", input: int64(123456789), wantStr: "123456789"},
		{name: "float64", input: 3.14, wantStr: "3.14"},
		{name: "bool true", input: true, wantStr: "True"},
		{name: "nil", input: nil, wantStr: "None"},
		{name: "time", input: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), wantStr: `"2024-03-01T12:00:00Z"`},
		{name: "string slice", input: []string{"a", "b"}, wantStr: `["a", "b"]`},
		{name: "any slice", input: []any{"x", 1, true}, wantStr: `["x", 1, True]`},
		{name: "map", input: map[string]any{"key": "value"}, wantStr: `{"key": "value"}`},
		{name: "unsupported", input: struct{}{}, wantErr: true},
		{name: "unsupported in list", input: []any{struct{}{}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GoToStarlark(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStr, got.String())
		})
	}
}

func TestToGo(t *testing.T) {
	big := starlark.MakeInt64(1 << 62).Mul(starlark.MakeInt(16))

	tests := []struct {
		name    string
		input   starlark.Value
		want    any
		wantErr bool
	}{
		{name: "string", input: starlark.String("hello"), want: "hello"},
		{name: "int", input: starlark.MakeInt(42), want: int64(42)},
		{name: "float", input: starlark.Float(3.14), want: 3.14},
		{name: "bool", input: starlark.Bool(true), want: true},
		{name: "none", input: starlark.None, want: nil},
		{name: "tuple", input: starlark.Tuple{starlark.String("a"), starlark.MakeInt(1)}, want: []any{"a", int64(1)}},
		{name: "list", input: starlark.NewList([]starlark.Value{starlark.True}), want: []any{true}},
		{name: "overflow", input: big, wantErr: true},
		{name: "function", input: starlark.NewBuiltin("f", nil), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToGo(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToGo_Dict(t *testing.T) {
	d := starlark.NewDict(1)
	require.NoError(t, d.SetKey(starlark.String("k"), starlark.MakeInt(1)))
	got, err := ToGo(d)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": int64(1)}, got)

	bad := starlark.NewDict(1)
	require.NoError(t, bad.SetKey(starlark.MakeInt(1), starlark.None))
	_, err = ToGo(bad)
	assert.Error(t, err)
}
