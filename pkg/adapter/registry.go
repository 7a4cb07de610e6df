package adapter

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/morph/pkg/core"
	"github.com/leapstack-labs/morph/pkg/dialect"
)

// Role is the side of a conversion a database is opened for.
type Role string

// Conversion roles.
const (
	RoleSource Role = "source"
	RoleTarget Role = "target"
)

// Factory creates an unconnected adapter.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds an adapter factory under a case-insensitive name.
// Called by adapter implementations in their init() functions.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// Get retrieves an adapter factory by name, ignoring case.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[strings.ToLower(name)]
	return f, ok
}

// IsRegistered checks if an adapter type is registered.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// ListAdapters returns all registered adapter names (sorted).
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewAdapter creates the adapter configured for a role. Targets must have
// a dialect converted data can be written with (nil logger uses discard).
func NewAdapter(cfg core.AdapterConfig, role Role, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("%s type is required", role)
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Role: role, Type: cfg.Type, Available: ListAdapters()}
	}
	a := factory(logger)
	if role == RoleTarget {
		if err := dialect.RequireTarget(a.Dialect()); err != nil {
			return nil, fmt.Errorf("%w\nHint: set target.type in morph.yaml to one of %s",
				err, strings.Join(dialect.Targets(), ", "))
		}
	}
	return a, nil
}

// UnknownAdapterError is returned when an unknown adapter type is requested.
type UnknownAdapterError struct {
	Role      Role
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	key := "source.type and target.type"
	if e.Role != "" {
		key = string(e.Role) + ".type"
	}
	return fmt.Sprintf("unknown adapter type %q\nAvailable adapters: %s\nHint: check %s in morph.yaml",
		e.Type, strings.Join(e.Available, ", "), key)
}
