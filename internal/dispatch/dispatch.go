// Package dispatch selects behavior by record kind. Each Table maps kinds
// to implementations; lookup walks from a kind to its more general parent
// kinds, and a specialized implementation reaches the next applicable one
// through Next.
package dispatch

import (
	"fmt"
	"sync"

	"github.com/leapstack-labs/morph/internal/schema"
)

// NoMethodError is returned when no implementation exists for a kind or
// any of its parent kinds.
type NoMethodError struct {
	Func string
	Kind schema.Kind
}

func (e *NoMethodError) Error() string {
	return fmt.Sprintf("no implementation of %s for %s records", e.Func, e.Kind)
}

// Table is a named registry of implementations keyed by kind.
type Table[F any] struct {
	name    string
	mu      sync.RWMutex
	methods map[schema.Kind]F
}

// New creates an empty table. The name appears in NoMethodError.
func New[F any](name string) *Table[F] {
	return &Table[F]{name: name, methods: make(map[schema.Kind]F)}
}

// Name returns the function name of the table.
func (t *Table[F]) Name() string { return t.name }

// Register installs the implementation for a kind, replacing any previous one.
func (t *Table[F]) Register(kind schema.Kind, fn F) *Table[F] {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.methods[kind] = fn
	return t
}

// Lookup returns the most specific implementation applicable to kind.
func (t *Table[F]) Lookup(kind schema.Kind) (F, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for k, ok := kind, true; ok; k, ok = k.Parent() {
		if fn, found := t.methods[k]; found {
			return fn, nil
		}
	}
	var zero F
	return zero, &NoMethodError{Func: t.name, Kind: kind}
}

// Next returns the implementation that kind's own implementation
// specializes, i.e. the lookup result for the parent kind.
func (t *Table[F]) Next(kind schema.Kind) (F, error) {
	parent, ok := kind.Parent()
	if !ok {
		var zero F
		return zero, &NoMethodError{Func: t.name + " (next)", Kind: kind}
	}
	return t.Lookup(parent)
}

// Verify checks that every kind has an applicable implementation.
func (t *Table[F]) Verify(kinds ...schema.Kind) error {
	for _, k := range kinds {
		if _, err := t.Lookup(k); err != nil {
			return err
		}
	}
	return nil
}
