package core

import (
	"database/sql"
	"fmt"
	"strings"
)

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column represents a column in a database table.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Position   int
}

// ForeignKey is a forward edge from a column of one table to a column of
// another table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	Schema      string
	Name        string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

// Column looks up a column by name. Exact matches win over
// case-insensitive ones.
func (m *TableMetadata) Column(name string) (*Column, bool) {
	for i := range m.Columns {
		if m.Columns[i].Name == name {
			return &m.Columns[i], true
		}
	}
	for i := range m.Columns {
		if strings.EqualFold(m.Columns[i].Name, name) {
			return &m.Columns[i], true
		}
	}
	return nil, false
}

// ForeignKey returns the foreign-key edge leaving the named column.
func (m *TableMetadata) ForeignKey(column string) (*ForeignKey, bool) {
	for i := range m.ForeignKeys {
		if strings.EqualFold(m.ForeignKeys[i].Column, column) {
			return &m.ForeignKeys[i], true
		}
	}
	return nil, false
}

// PK returns the single primary-key column of the table.
func (m *TableMetadata) PK() (string, error) {
	switch len(m.PrimaryKey) {
	case 0:
		return "", fmt.Errorf("table %s has no primary key", m.Name)
	case 1:
		return m.PrimaryKey[0], nil
	default:
		return "", fmt.Errorf("table %s has a composite primary key (%s)", m.Name, strings.Join(m.PrimaryKey, ", "))
	}
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
