package capture

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoSource is returned when a function value's defining source file
// cannot be located or parsed. Without source there is nothing to
// analyze; callers choose whether that is fatal.
var ErrNoSource = errors.New("capture: source for function not available")

// ErrNotFunc is returned when the inspected value is not a function.
var ErrNotFunc = errors.New("capture: value is not a function")

// ViolationError reports that a reactive body closes over bindings from
// an enclosing function scope. It is raised at boundary construction,
// before any evaluation.
type ViolationError struct {
	// Func is the runtime name of the offending function, when known.
	Func string

	// Bindings are the captured bindings, in first-use order.
	Bindings []Binding
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	names := make([]string, len(e.Bindings))
	for i, b := range e.Bindings {
		names[i] = b.String()
	}
	fn := e.Func
	if fn == "" {
		fn = "reactive body"
	}
	return fmt.Sprintf("capture: %s must be free of captures; closes over %s",
		fn, strings.Join(names, ", "))
}
