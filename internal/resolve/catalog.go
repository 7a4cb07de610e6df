package resolve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/leapstack-labs/morph/pkg/core"
)

// MetadataSource reflects source tables. Adapters implement it.
type MetadataSource interface {
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)
}

// Catalog caches reflected source tables. Tables load on first use and
// are shared afterwards. Safe for concurrent use.
type Catalog struct {
	src    MetadataSource
	mu     sync.Mutex
	tables map[string]*core.TableMetadata
}

// NewCatalog creates an empty catalog over a metadata source.
func NewCatalog(src MetadataSource) *Catalog {
	return &Catalog{src: src, tables: make(map[string]*core.TableMetadata)}
}

// Table returns the metadata of a table, reflecting it if needed.
func (c *Catalog) Table(ctx context.Context, name string) (*core.TableMetadata, error) {
	key := strings.ToLower(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if meta, ok := c.tables[key]; ok {
		return meta, nil
	}
	meta, err := c.src.GetTableMetadata(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnknownTable, name, err)
	}
	c.tables[key] = meta
	return meta, nil
}

// Tables returns the names of every cached table.
func (c *Catalog) Tables() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.tables))
	for _, m := range c.tables {
		names = append(names, m.Name)
	}
	return names
}

// SameTable reports whether two reflected tables are the same relation.
func SameTable(a, b *core.TableMetadata) bool {
	if a == nil || b == nil {
		return false
	}
	if !strings.EqualFold(a.Name, b.Name) {
		return false
	}
	return a.Schema == "" || b.Schema == "" || strings.EqualFold(a.Schema, b.Schema)
}
