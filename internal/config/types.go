// Package config loads morph's run configuration (morph.yaml, MORPH_
// environment variables, command-line flags) and mapping files.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/morph/internal/ident"
	"github.com/leapstack-labs/morph/pkg/adapter"
	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

// DatabaseConfig holds the connection settings of a source or target
// database.
type DatabaseConfig struct {
	Type string `koanf:"type"` // sqlite, postgres, mysql, sqlserver, duckdb

	// File-based databases (SQLite, DuckDB)
	Path string `koanf:"path"`

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB settings)
	Params map[string]any `koanf:"params"`
}

// ApplyDefaults fills in the default port of network databases.
func (d *DatabaseConfig) ApplyDefaults() {
	if d == nil || d.Port != 0 {
		return
	}
	switch strings.ToLower(d.Type) {
	case "postgres":
		d.Port = 5432
	case "mysql":
		d.Port = 3306
	case "sqlserver":
		d.Port = 1433
	}
}

// Validate checks the database type against the adapter registry and,
// for a target, that converted data can be written to it.
func (d *DatabaseConfig) Validate(role adapter.Role) error {
	if d.Type == "" {
		return fmt.Errorf("%s type is required", role)
	}
	factory, ok := adapter.Get(d.Type)
	if !ok {
		return &adapter.UnknownAdapterError{
			Role:      role,
			Type:      d.Type,
			Available: adapter.ListAdapters(),
		}
	}
	if role == adapter.RoleTarget {
		return dialect.RequireTarget(factory(nil).Dialect())
	}
	return nil
}

// AdapterConfig converts the settings for adapter.NewAdapter.
func (d *DatabaseConfig) AdapterConfig() core.AdapterConfig {
	return core.AdapterConfig{
		Type:     strings.ToLower(d.Type),
		Path:     d.Path,
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		Username: d.User,
		Password: d.Password,
		Schema:   d.Schema,
		Options:  d.Options,
		Params:   d.Params,
	}
}

// Config holds all run configuration options.
type Config struct {
	Mapping   string          `koanf:"mapping"`
	StatePath string          `koanf:"state_path"`
	BatchSize int             `koanf:"batch_size"`
	Workers   int             `koanf:"workers"`
	Namespace string          `koanf:"namespace"`
	Verbose   bool            `koanf:"verbose"`
	Source    *DatabaseConfig `koanf:"source"`
	Target    *DatabaseConfig `koanf:"target"`

	// File is the config file that was read, empty if none.
	File string `koanf:"-"`
}

// Validate checks the settings every command relies on. Source and target
// are checked by the commands that connect to them.
func (c *Config) Validate() error {
	if c.Mapping == "" {
		return fmt.Errorf("mapping is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := ident.Parse(c.Namespace); err != nil {
		return err
	}
	return nil
}

// Deriver returns the identifier deriver for the configured namespace.
func (c *Config) Deriver() (*ident.Deriver, error) {
	return ident.Parse(c.Namespace)
}
