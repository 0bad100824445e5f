package errors

import (
	"bufio"
	"fmt"
	"os"
)

// Category represents the type of error.
type Category string

const (
	CategoryCapture    Category = "capture"
	CategoryValidation Category = "validation"
	CategoryConfig     Category = "config"
	CategoryCLI        Category = "cli"
)

// Location represents a source code location.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// GlintError is a structured error with source location, a suggestion,
// and a documentation code.
type GlintError struct {
	// Code is a unique error identifier (e.g. "G001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation.
	Detail string

	// Location is where the error occurred.
	Location *Location

	// Context contains surrounding source lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *GlintError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *GlintError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a source location and pulls context lines from the
// file when it is readable.
func (e *GlintError) WithLocation(file string, line, column int) *GlintError {
	e.Location = &Location{File: file, Line: line, Column: column}
	e.Context = readContextLines(file, line, 5)
	return e
}

// WithSuggestion adds a fix suggestion.
func (e *GlintError) WithSuggestion(s string) *GlintError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation.
func (e *GlintError) WithDetail(d string) *GlintError {
	e.Detail = d
	return e
}

// Wrap attaches an underlying error.
func (e *GlintError) Wrap(err error) *GlintError {
	e.Wrapped = err
	return e
}

// New creates a GlintError from a registered error code.
func New(code string) *GlintError {
	template, ok := registry[code]
	if !ok {
		return &GlintError{Code: code, Message: "Unknown error"}
	}
	return &GlintError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a GlintError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *GlintError {
	return &GlintError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// readContextLines reads lines around targetLine from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}
	return lines
}
