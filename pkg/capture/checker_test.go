package capture

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckerFindsViolations(t *testing.T) {
	violations, err := NewChecker("testdata").Check()
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("got %d violations, want 2: %v", len(violations), violations)
	}

	for _, v := range violations {
		if filepath.Base(v.File) != "leaky.go" {
			t.Errorf("violation in %s, want leaky.go only", v.File)
		}
	}

	var names []string
	for _, b := range violations[1].Bindings {
		names = append(names, b.Name)
	}
	if strings.Join(names, ",") != "a,b" {
		t.Errorf("second violation bindings = %v, want [a b]", names)
	}
}

func TestCheckerSkipsTestFiles(t *testing.T) {
	violations, err := NewChecker("testdata").Check()
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range violations {
		if strings.HasSuffix(v.File, "_test.go") {
			t.Errorf("violation reported in test file %s", v.File)
		}
	}
}

func TestViolationString(t *testing.T) {
	violations, err := NewChecker("testdata").Check()
	if err != nil {
		t.Fatal(err)
	}
	if len(violations) == 0 {
		t.Fatal("no violations to render")
	}
	s := violations[0].String()
	if !strings.Contains(s, "leaky.go") || !strings.Contains(s, "closes over") {
		t.Errorf("String = %q", s)
	}
}

func TestCheckerMissingDir(t *testing.T) {
	if _, err := NewChecker("testdata/does-not-exist").Check(); err == nil {
		t.Fatal("missing root accepted")
	}
}
