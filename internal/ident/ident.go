// Package ident derives target identifiers from source keys. A row id is
// UUIDv5(UUIDv5(root, table), text(key)), so the same table and key always
// produce the same id and no old-to-new mapping needs to be stored.
package ident

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRoot is the root namespace used when none is configured.
var DefaultRoot = uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8")

// Deriver derives identifiers under one root namespace. Safe for
// concurrent use.
type Deriver struct {
	root  uuid.UUID
	cache sync.Map // table name -> uuid.UUID
}

// New creates a Deriver. A nil root selects DefaultRoot.
func New(root uuid.UUID) *Deriver {
	if root == uuid.Nil {
		root = DefaultRoot
	}
	return &Deriver{root: root}
}

// Parse creates a Deriver from a textual namespace; empty selects DefaultRoot.
func Parse(namespace string) (*Deriver, error) {
	if namespace == "" {
		return New(uuid.Nil), nil
	}
	root, err := uuid.Parse(namespace)
	if err != nil {
		return nil, fmt.Errorf("invalid namespace %q: %w", namespace, err)
	}
	return New(root), nil
}

// Root returns the root namespace.
func (d *Deriver) Root() uuid.UUID { return d.root }

// TableNamespace returns the namespace of a source table. Table names are
// case-insensitive: "Taxon" and "taxon" share a namespace.
func (d *Deriver) TableNamespace(table string) uuid.UUID {
	table = strings.ToLower(table)
	if ns, ok := d.cache.Load(table); ok {
		return ns.(uuid.UUID)
	}
	ns := uuid.NewSHA1(d.root, []byte(table))
	actual, _ := d.cache.LoadOrStore(table, ns)
	return actual.(uuid.UUID)
}

// Row derives the identifier of a source row. A nil key yields an invalid
// NullUUID.
func (d *Deriver) Row(table string, key any) uuid.NullUUID {
	text, ok := KeyText(key)
	if !ok {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.NewSHA1(d.TableNamespace(table), []byte(text)), Valid: true}
}

// KeyText renders a key the way it participates in derivation. Integral
// floats render as integers so that 5.0 and 5 derive the same id.
func KeyText(key any) (string, bool) {
	switch v := key.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		if v == nil {
			return "", false
		}
		return string(v), true
	case int:
		return strconv.Itoa(v), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return formatFloat(float64(v)), true
	case float64:
		return formatFloat(v), true
	case time.Time:
		return v.Format(time.RFC3339Nano), true
	case uuid.UUID:
		return v.String(), true
	case uuid.NullUUID:
		if !v.Valid {
			return "", false
		}
		return v.UUID.String(), true
	default:
		return fmt.Sprint(v), true
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
