package adapter

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	tests := []struct {
		name string
		role Role
		hint string
	}{
		{"source", RoleSource, "check source.type in morph.yaml"},
		{"target", RoleTarget, "check target.type in morph.yaml"},
		{"no role", "", "check source.type and target.type in morph.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &UnknownAdapterError{Role: tt.role, Type: "informix", Available: []string{"mysql", "postgres"}}
			msg := err.Error()
			assert.Contains(t, msg, `"informix"`)
			assert.Contains(t, msg, "mysql, postgres")
			assert.Contains(t, msg, tt.hint)
		})
	}
}

func TestRegister_IgnoresCase(t *testing.T) {
	Register("Legacy_Test", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("legacy_test"))
	assert.True(t, IsRegistered("LEGACY_TEST"))
	assert.Contains(t, ListAdapters(), "legacy_test")

	factory, ok := Get("Legacy_Test")
	require.True(t, ok)
	assert.NotNil(t, factory)
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, RoleTarget, nil)
	require.Error(t, err)
	assert.Equal(t, "target type is required", err.Error())
}
