package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/leapstack-labs/morph/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConvertCommand(t *testing.T) {
	cmd := NewConvertCommand()

	assert.Equal(t, "convert", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	for _, flag := range []string{"create", "drop", "output"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewPlanCommand(t *testing.T) {
	cmd := NewPlanCommand()

	assert.Equal(t, "plan", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("sql"))
	assert.NotNil(t, cmd.Flags().Lookup("output"))
}

func TestNewDDLCommand(t *testing.T) {
	cmd := NewDDLCommand()

	assert.Equal(t, "ddl", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("dialect"))
	assert.NotNil(t, cmd.Flags().Lookup("drop"))
}

func TestNewRunsCommand(t *testing.T) {
	cmd := NewRunsCommand()

	assert.Equal(t, "runs [run-id]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.Equal(t, "20", cmd.Flags().Lookup("limit").DefValue)
	assert.Error(t, cmd.Args(cmd, []string{"a", "b"}))
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	assert.Equal(t, "validate", cmd.Use)
	assert.NotEmpty(t, cmd.Long, "Long should not be empty")
}

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "release", version: "0.1.0", want: "morph v0.1.0\n"},
		{name: "dev", version: "dev", want: "morph vdev\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.version, "abc123", "2024-01-01")
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetArgs(nil)

			require.NoError(t, cmd.Execute())
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), "commit abc123")
		})
	}
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("table"))
	assert.NoError(t, checkFormat("json"))
	assert.ErrorContains(t, checkFormat("yaml"), `unknown output format "yaml"`)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "one", firstLine("one"))
	assert.Equal(t, "one ...", firstLine("one\ntwo"))
}

func TestContext(t *testing.T) {
	_, err := GetConfig(context.Background())
	assert.ErrorContains(t, err, "configuration not loaded")
	assert.NotNil(t, GetLogger(context.Background()))

	cfg := &config.Config{Mapping: "m.yaml"}
	got, err := GetConfig(WithConfig(context.Background(), cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}
