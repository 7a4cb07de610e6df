package duckdb

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "mysql", "sqlite", "postgres")
	Extensions []string `mapstructure:"extensions"`

	// Attach lists databases to attach before reading, keyed by alias.
	// Values are DuckDB ATTACH targets such as "legacy.sqlite" or
	// "host=localhost database=specify".
	Attach map[string]AttachConfig `mapstructure:"attach"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// AttachConfig describes one attached database.
type AttachConfig struct {
	// Path is the ATTACH target.
	Path string `mapstructure:"path"`

	// Type is the storage extension: "sqlite", "mysql", "postgres".
	Type string `mapstructure:"type"`

	// ReadOnly attaches the database read only (default true).
	ReadOnly *bool `mapstructure:"read_only,omitempty"`
}

// parseParams decodes adapter params into Params.
func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}

// setupStatements renders the statements applied right after connecting.
func (p *Params) setupStatements() []string {
	var stmts []string
	for _, ext := range p.Extensions {
		stmts = append(stmts, fmt.Sprintf("INSTALL %s", ext), fmt.Sprintf("LOAD %s", ext))
	}
	for _, name := range sortedKeys(p.Settings) {
		stmts = append(stmts, fmt.Sprintf("SET %s = '%s'", name, p.Settings[name]))
	}
	for _, alias := range sortedKeys(p.Attach) {
		att := p.Attach[alias]
		opts := ""
		readOnly := att.ReadOnly == nil || *att.ReadOnly
		switch {
		case att.Type != "" && readOnly:
			opts = fmt.Sprintf(" (TYPE %s, READ_ONLY)", att.Type)
		case att.Type != "":
			opts = fmt.Sprintf(" (TYPE %s)", att.Type)
		case readOnly:
			opts = " (READ_ONLY)"
		}
		stmts = append(stmts, fmt.Sprintf("ATTACH IF NOT EXISTS '%s' AS %s%s", att.Path, alias, opts))
	}
	return stmts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
