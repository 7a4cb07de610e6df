package dialect

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Dialects register from their package init under a case-insensitive name.
// Source adapters use them to reflect and query; the target side renders
// DDL and inserts through them.
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
)

// ErrNotTarget is returned when converted data is written with a dialect
// that has no target features.
var ErrNotTarget = errors.New("cannot be a conversion target")

// Register adds d under its lower-cased name, replacing any earlier entry.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(d.Name)] = d
}

// Get returns a dialect by name, ignoring case.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// List returns all registered dialect names (sorted).
func List() []string {
	return names(func(*Dialect) bool { return true })
}

// Targets returns the names of the dialects converted data can be written
// with (sorted).
func Targets() []string {
	return names((*Dialect).CanTarget)
}

// RequireTarget fails with ErrNotTarget unless d can be written to.
func RequireTarget(d *Dialect) error {
	if d.CanTarget() {
		return nil
	}
	return fmt.Errorf("dialect %s %w (targets: %s)", d.Name, ErrNotTarget, strings.Join(Targets(), ", "))
}

func names(keep func(*Dialect) bool) []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	out := make([]string, 0, len(dialects))
	for name, d := range dialects {
		if keep(d) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}
