package glint

import (
	"errors"

	"github.com/glint-ui/glint/pkg/capture"
)

// defaultIntrospector is shared across boundary constructions so parsed
// source files are cached process-wide.
var defaultIntrospector = capture.NewSourceIntrospector()

// ErrNilBody is returned when a boundary is constructed without a body.
var ErrNilBody = errors.New("glint: boundary body is nil")

type boundaryConfig struct {
	introspector capture.Introspector
	name         string
}

// BoundaryOption configures boundary construction.
type BoundaryOption func(*boundaryConfig)

// WithIntrospector substitutes the capture introspection capability.
// Hosts with their own closure analysis (code generation, IR inspection)
// inject it here; tests use it to exercise validation without source.
func WithIntrospector(in capture.Introspector) BoundaryOption {
	return func(c *boundaryConfig) {
		c.introspector = in
	}
}

// WithName attaches a diagnostic name used in violation errors.
func WithName(name string) BoundaryOption {
	return func(c *boundaryConfig) {
		c.name = name
	}
}

// Boundary is a validated reactive computation. The embedded body is
// checked for captures exactly once, at construction; evaluation runs it
// inside a fresh tracking frame.
type Boundary[T any] struct {
	body func() T
	name string
}

// NewBoundary validates body and wraps it in a reactive boundary. A body
// that closes over a binding from an enclosing function scope is rejected
// with a *capture.ViolationError before any evaluation occurs.
//
// When the introspector cannot see the body's source (stripped binary,
// generated code), validation is skipped rather than failed: the check is
// a development-time guarantee, and `glint vet` provides the same
// guarantee statically for built artifacts.
func NewBoundary[T any](body func() T, opts ...BoundaryOption) (*Boundary[T], error) {
	if body == nil {
		return nil, ErrNilBody
	}
	cfg := boundaryConfig{introspector: defaultIntrospector}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validate(body, cfg); err != nil {
		return nil, err
	}
	return &Boundary[T]{body: body, name: cfg.name}, nil
}

// MustBoundary is NewBoundary that panics on a validation error. Capture
// violations are programming errors, so panicking at construction is
// acceptable in static component trees.
func MustBoundary[T any](body func() T, opts ...BoundaryOption) *Boundary[T] {
	b, err := NewBoundary(body, opts...)
	if err != nil {
		panic(err)
	}
	return b
}

// Evaluate runs the body inside a fresh tracking frame and returns its
// result together with the dependencies it read, in first-read order.
// The frame is popped even when the body panics.
func (b *Boundary[T]) Evaluate() (result T, deps []Dep) {
	id := Begin()
	defer func() {
		deps = End(id)
	}()
	result = b.body()
	return
}

// Name returns the diagnostic name, if one was set.
func (b *Boundary[T]) Name() string {
	return b.name
}

// BoundaryArg is a reactive boundary whose body takes one argument. The
// argument is supplied per evaluation and is not a capture: it arrives
// through the call, not through an enclosing scope.
type BoundaryArg[A, T any] struct {
	body func(A) T
	name string
}

// NewBoundaryArg validates a one-argument body. Validation rules are
// identical to NewBoundary; the parameter itself is always allowed.
func NewBoundaryArg[A, T any](body func(A) T, opts ...BoundaryOption) (*BoundaryArg[A, T], error) {
	if body == nil {
		return nil, ErrNilBody
	}
	cfg := boundaryConfig{introspector: defaultIntrospector}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validate(body, cfg); err != nil {
		return nil, err
	}
	return &BoundaryArg[A, T]{body: body, name: cfg.name}, nil
}

// Evaluate runs the body with arg inside a fresh tracking frame.
func (b *BoundaryArg[A, T]) Evaluate(arg A) (result T, deps []Dep) {
	id := Begin()
	defer func() {
		deps = End(id)
	}()
	result = b.body(arg)
	return
}

// Name returns the diagnostic name, if one was set.
func (b *BoundaryArg[A, T]) Name() string {
	return b.name
}

func validate(body any, cfg boundaryConfig) error {
	bindings, err := cfg.introspector.CapturedBindings(body)
	if err != nil {
		if errors.Is(err, capture.ErrNoSource) {
			return nil
		}
		return err
	}
	if len(bindings) > 0 {
		return &capture.ViolationError{Func: cfg.name, Bindings: bindings}
	}
	return nil
}
