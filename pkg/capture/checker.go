package capture

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strings"
)

// boundaryConstructors are the call names whose first argument is a
// reactive body. Both the bare identifier (dot import) and the selector
// form (glint.NewBoundary) are recognized.
var boundaryConstructors = map[string]bool{
	"NewBoundary":     true,
	"MustBoundary":    true,
	"NewBoundaryArg":  true,
	"MustBoundaryArg": true,
}

// Violation is one capture violation found by a static scan.
type Violation struct {
	// File and Line locate the boundary construction call.
	File string
	Line int

	// Bindings are the captured bindings of the body literal.
	Bindings []Binding
}

// String renders the violation in file:line: message form.
func (v Violation) String() string {
	names := make([]string, len(v.Bindings))
	for i, b := range v.Bindings {
		names[i] = b.String()
	}
	return fmt.Sprintf("%s:%d: reactive body closes over %s",
		v.File, v.Line, strings.Join(names, ", "))
}

// Checker statically scans a source tree for boundary constructions whose
// body literal captures enclosing bindings. It applies the same analysis
// as SourceIntrospector but without running the program, so violations
// surface before first render.
type Checker struct {
	rootDir string
}

// NewChecker creates a checker rooted at rootDir.
func NewChecker(rootDir string) *Checker {
	return &Checker{rootDir: rootDir}
}

// Check walks the tree and returns every violation found. Test files are
// skipped; a file that fails to parse aborts the walk with an error.
func (c *Checker) Check() ([]Violation, error) {
	var violations []Violation

	err := filepath.WalkDir(c.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		found, err := c.checkFile(path)
		if err != nil {
			return fmt.Errorf("checking %s: %w", path, err)
		}
		violations = append(violations, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return violations, nil
}

// checkFile parses one file and analyzes every boundary call site in it.
func (c *Checker) checkFile(path string) ([]Violation, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, err
	}

	var violations []Violation
	ast.Inspect(file, func(n ast.Node) bool {
		call, ok := n.(*ast.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		if !isBoundaryCall(call.Fun) {
			return true
		}
		lit, ok := call.Args[0].(*ast.FuncLit)
		if !ok {
			return true // body passed by name; named functions cannot capture
		}
		if bindings := FreeBindings(fset, file, lit); len(bindings) > 0 {
			pos := fset.Position(call.Pos())
			violations = append(violations, Violation{
				File:     pos.Filename,
				Line:     pos.Line,
				Bindings: bindings,
			})
		}
		return true
	})
	return violations, nil
}

func isBoundaryCall(fun ast.Expr) bool {
	switch f := fun.(type) {
	case *ast.Ident:
		return boundaryConstructors[f.Name]
	case *ast.SelectorExpr:
		return boundaryConstructors[f.Sel.Name]
	case *ast.IndexExpr: // explicit instantiation: glint.NewBoundary[string](...)
		return isBoundaryCall(f.X)
	}
	return false
}
