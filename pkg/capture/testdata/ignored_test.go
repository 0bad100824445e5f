package testdata

import "github.com/glint-ui/glint/pkg/glint"

func testOnlyViolation() {
	fixture := "x"
	glint.MustBoundary(func() string {
		return fixture
	})
}
