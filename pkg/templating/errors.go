package templating

import (
	"fmt"
	"strings"
)

// RenderingError represents a failure to parse or evaluate a template
// format string. Errors returned by fetchers are never wrapped in a
// RenderingError; they propagate to the caller unchanged.
type RenderingError struct {
	// Template is the format string that failed.
	Template string

	// Cause is the underlying parse or evaluation error.
	Cause error
}

// Error implements the error interface.
func (e *RenderingError) Error() string {
	return fmt.Sprintf("failed to render template %q: %v", e.Template, e.Cause)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *RenderingError) Unwrap() error {
	return e.Cause
}

// ReferencedDataError indicates that the substitution pass referenced a
// fetcher invocation absent from the resolution cache. The discovery pass
// collects every invocation before the barrier runs, so this error always
// signals a programming error rather than bad input.
type ReferencedDataError struct {
	// Fetcher is the name of the fetcher whose result was missing.
	Fetcher string

	// Args is the argument list of the missing invocation.
	Args []any
}

// Error implements the error interface.
func (e *ReferencedDataError) Error() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = fmt.Sprintf("%v", a)
	}
	return fmt.Sprintf("no resolved data for fetcher call %s(%s)", e.Fetcher, strings.Join(args, ", "))
}

// NewRenderingError creates a RenderingError for the given format string.
func NewRenderingError(template string, cause error) *RenderingError {
	return &RenderingError{Template: template, Cause: cause}
}

// NewReferencedDataError creates a ReferencedDataError for a cache miss.
func NewReferencedDataError(fetcher string, args []any) *ReferencedDataError {
	return &ReferencedDataError{Fetcher: fetcher, Args: args}
}
