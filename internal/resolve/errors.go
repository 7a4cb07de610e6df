package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/morph/internal/query"
)

// Validation error kinds.
var (
	ErrUnknownTable      = errors.New("unknown table")
	ErrUnknownColumn     = query.ErrUnknownColumn
	ErrNotForeignKey     = errors.New("column is not a foreign key")
	ErrReverseTerminal   = errors.New("path ends in a reverse join")
	ErrIncompatibleTypes = errors.New("incompatible field types")
	ErrMissingBinding    = errors.New("missing binding")
	ErrNoPrimaryKey      = errors.New("no usable primary key")
)

// FieldError locates one validation failure. Field is empty for errors
// concerning the record as a whole.
type FieldError struct {
	Record string
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Record, e.Err)
	}
	return fmt.Sprintf("%s.%s: %v", e.Record, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ValidationError aggregates every failure found by one validation pass.
type ValidationError struct {
	Errors []*FieldError
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d error(s):", len(e.Errors))
	for _, fe := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(fe.Error())
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe
	}
	return errs
}
