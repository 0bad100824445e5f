// Package capture inspects function values for closed-over bindings.
//
// A reactive boundary body is re-invoked repeatedly with only the
// dependency tracker as context. If the body could close over a value
// from an enclosing function, re-invocation would silently reuse stale
// data instead of re-deriving it from tracked keys. Package capture is
// the construction-time gate that prevents this: given a function value,
// it reports every binding the function references that was declared in
// an enclosing function's scope.
//
// Allowed references are package-level declarations, universe names, the
// function's own parameters, and anything declared inside the function
// itself, including further-nested function literals. Everything else is
// a capture.
//
// The default implementation, SourceIntrospector, resolves the function's
// source location through the runtime and analyzes the surrounding file
// with go/ast. It only works when the source tree is present (tests,
// development, go run); stripped deployment binaries get ErrNoSource and
// callers decide whether to treat that as fatal. Checker applies the same
// analysis statically to a whole source tree, without running anything,
// and backs the `glint vet` command.
package capture
