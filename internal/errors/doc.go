// Package errors provides structured, terminal-friendly errors for the
// glint CLI: an error code registry, source locations with context
// lines, and colored formatting. The reactive engine itself uses plain
// sentinel errors; this package only dresses them up for humans running
// `glint vet` and `glint serve`.
package errors
