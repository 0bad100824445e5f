package testdata

import "github.com/glint-ui/glint/pkg/glint"

func leakyComponent() {
	user := "ada"
	glint.MustBoundary(func() string {
		return user
	})
}

func leakyTwice() {
	a, b := 1, 2
	glint.NewBoundary(func() int {
		return a + b
	})
}

func namedBodyIsFine() {
	glint.MustBoundary(topLevelBody)
}

func topLevelBody() string { return "static" }
