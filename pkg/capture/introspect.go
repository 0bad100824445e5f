package capture

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"reflect"
	"runtime"
	"sync"
)

// Binding describes one captured reference: the name, the kind of
// declaration it resolved to, and where it was declared and used.
type Binding struct {
	Name string
	Kind string // "var", "const", or "func"
	Decl token.Position
	Use  token.Position
}

// String renders the binding as "name (kind declared at file:line:col)".
func (b Binding) String() string {
	return fmt.Sprintf("%s (%s declared at %s)", b.Name, b.Kind, b.Decl)
}

// Interface note: Introspector is the injected capability boundaries
// validate through. SourceIntrospector is the default; tests substitute a
// stub to exercise the policy without source files.
type Introspector interface {
	// CapturedBindings returns the bindings fn references from enclosing
	// function scopes. An empty result means fn is capture-free.
	CapturedBindings(fn any) ([]Binding, error)
}

// SourceIntrospector analyzes a function value by parsing its defining
// source file. Parsed files are cached by path and modification time, so
// repeated boundary construction in one file parses it once.
type SourceIntrospector struct {
	mu    sync.Mutex
	files map[string]*parsedFile
}

type parsedFile struct {
	fset    *token.FileSet
	file    *ast.File
	modTime int64
}

// NewSourceIntrospector creates an introspector with an empty parse cache.
func NewSourceIntrospector() *SourceIntrospector {
	return &SourceIntrospector{files: make(map[string]*parsedFile)}
}

// CapturedBindings implements Introspector.
func (si *SourceIntrospector) CapturedBindings(fn any) ([]Binding, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, ErrNotFunc
	}
	if v.IsNil() {
		return nil, ErrNotFunc
	}

	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return nil, ErrNoSource
	}
	path, line := rf.FileLine(rf.Entry())

	pf, err := si.parse(path)
	if err != nil {
		return nil, err
	}

	lit := findFuncLit(pf.fset, pf.file, line)
	if lit == nil {
		// A named top-level function: Go's own scoping already restricts it
		// to package-level bindings, so there is nothing to capture.
		if hasFuncDeclAtLine(pf.fset, pf.file, line) {
			return nil, nil
		}
		return nil, ErrNoSource
	}

	return FreeBindings(pf.fset, pf.file, lit), nil
}

// parse returns the cached parse of path, re-parsing when the file on
// disk changed.
func (si *SourceIntrospector) parse(path string) (*parsedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, ErrNoSource
	}
	mod := info.ModTime().UnixNano()

	si.mu.Lock()
	defer si.mu.Unlock()

	if pf, ok := si.files[path]; ok && pf.modTime == mod {
		return pf, nil
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, ErrNoSource
	}
	pf := &parsedFile{fset: fset, file: file, modTime: mod}
	si.files[path] = pf
	return pf, nil
}

// findFuncLit locates the innermost function literal whose opening line
// matches the runtime-reported entry line.
func findFuncLit(fset *token.FileSet, file *ast.File, line int) *ast.FuncLit {
	var found *ast.FuncLit
	ast.Inspect(file, func(n ast.Node) bool {
		lit, ok := n.(*ast.FuncLit)
		if !ok {
			return true
		}
		if fset.Position(lit.Pos()).Line == line {
			// Keep descending: a later match is nested inside this one.
			found = lit
		}
		return true
	})
	return found
}

func hasFuncDeclAtLine(fset *token.FileSet, file *ast.File, line int) bool {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		if fset.Position(fd.Pos()).Line <= line && line <= fset.Position(fd.End()).Line {
			return true
		}
	}
	return false
}

// FreeBindings returns the bindings lit references that were declared in
// an enclosing function scope within file. Package-level declarations,
// universe names, lit's own parameters, and declarations inside lit
// (including nested literals) are not captures. Identifiers that resolve
// outside the file (imports, other files of the package) cannot be
// function-local and are ignored.
func FreeBindings(fset *token.FileSet, file *ast.File, lit *ast.FuncLit) []Binding {
	spans := functionSpans(file, lit)

	var out []Binding
	seen := make(map[token.Pos]struct{})

	ast.Inspect(lit, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok || id.Obj == nil {
			return true
		}

		var kind string
		switch id.Obj.Kind {
		case ast.Var:
			kind = "var"
		case ast.Con:
			kind = "const"
		case ast.Fun:
			kind = "func"
		default:
			return true // types, labels, packages carry no state
		}

		decl := id.Obj.Pos()
		if decl == token.NoPos {
			return true
		}
		if lit.Pos() <= decl && decl <= lit.End() {
			return true // declared inside the body (or its parameter list)
		}
		if !spans.contains(decl) {
			return true // package level
		}
		if _, dup := seen[decl]; dup {
			return true
		}
		seen[decl] = struct{}{}
		out = append(out, Binding{
			Name: id.Name,
			Kind: kind,
			Decl: fset.Position(decl),
			Use:  fset.Position(id.Pos()),
		})
		return true
	})

	return out
}

// posSpans is the set of source ranges occupied by function bodies other
// than the literal under analysis. A declaration inside one of these is a
// function-local binding.
type posSpans []struct{ from, to token.Pos }

func (s posSpans) contains(p token.Pos) bool {
	for _, span := range s {
		if span.from <= p && p <= span.to {
			return true
		}
	}
	return false
}

func functionSpans(file *ast.File, exclude *ast.FuncLit) posSpans {
	var spans posSpans
	ast.Inspect(file, func(n ast.Node) bool {
		switch fn := n.(type) {
		case *ast.FuncDecl:
			if fn.Body != nil {
				spans = append(spans, struct{ from, to token.Pos }{fn.Pos(), fn.End()})
			}
		case *ast.FuncLit:
			if fn != exclude {
				spans = append(spans, struct{ from, to token.Pos }{fn.Pos(), fn.End()})
			}
		}
		return true
	})
	return spans
}
