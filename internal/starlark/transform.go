package starlark

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/morph/internal/conversion"
	"go.starlark.net/starlark"
)

// Compiler turns expr transforms into conversion.Transform values. Each
// expression is compiled once; every call runs on a pooled thread.
type Compiler struct {
	pool   *ThreadPool
	logger *slog.Logger
}

// NewCompiler creates a compiler. Logger is optional.
func NewCompiler(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compiler{pool: NewThreadPool(0, logger), logger: logger}
}

// Compile evaluates expr as the body of a one-argument function with the
// source value bound to "value".
func (c *Compiler) Compile(field FieldInfo, expr string) (conversion.Transform, error) {
	name := field.String()
	thread := c.pool.Get(name)
	defer c.pool.Put(thread)

	v, err := starlark.Eval(thread, name, "lambda value: "+expr, Predeclared(field)) //nolint:staticcheck // SA1019: will migrate to EvalOptions later
	if err != nil {
		return nil, &EvalError{Name: name, Expr: expr, Message: err.Error()}
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, &EvalError{Name: name, Expr: expr, Message: fmt.Sprintf("not callable: %s", v.Type())}
	}
	fn.Freeze()

	c.logger.Debug("compiled expression", "field", name, "expr", expr)

	return func(in any) (any, error) {
		arg, err := GoToStarlark(in)
		if err != nil {
			return nil, &EvalError{Name: name, Expr: expr, Message: err.Error()}
		}
		thread := c.pool.Get(name)
		defer c.pool.Put(thread)

		out, err := starlark.Call(thread, fn, starlark.Tuple{arg}, nil)
		if err != nil {
			return nil, &EvalError{Name: name, Expr: expr, Message: err.Error()}
		}
		return ToGo(out)
	}, nil
}

// EvalError represents an error compiling or running an expression.
type EvalError struct {
	Name    string
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: error evaluating %q: %s", e.Name, e.Expr, e.Message)
}
