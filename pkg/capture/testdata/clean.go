package testdata

import "github.com/glint-ui/glint/pkg/glint"

var greeting = "hello"

func cleanComponents() {
	glint.MustBoundary(func() string {
		return greeting
	})

	glint.MustBoundary(func() int {
		total := 0
		for i := 0; i < 3; i++ {
			total += i
		}
		return total
	})
}
