package configuration

import "fmt"

// ValueNotFoundError indicates that a required configuration path does not
// exist in the merged tree.
type ValueNotFoundError struct {
	// Path is the dotted path that was requested.
	Path string
}

// Error implements the error interface.
func (e *ValueNotFoundError) Error() string {
	return fmt.Sprintf("no configuration value at path %q", e.Path)
}

// UnformattedTemplateValueError indicates that a plain getter would have
// returned a subtree still containing template objects. Callers that can
// handle raw templates opt out with the Unsafe option.
type UnformattedTemplateValueError struct {
	// Path is the dotted path whose subtree contains a template object.
	Path string
}

// Error implements the error interface.
func (e *UnformattedTemplateValueError) Error() string {
	return fmt.Sprintf("configuration value at path %q contains an unrendered template", e.Path)
}

// CircularTemplateReferenceError indicates that a template requested a
// configuration path that is currently being rendered further up the
// evaluation chain.
type CircularTemplateReferenceError struct {
	// Path is the requested path that closed the cycle.
	Path string
}

// Error implements the error interface.
func (e *CircularTemplateReferenceError) Error() string {
	return fmt.Sprintf("circular template reference to configuration path %q", e.Path)
}

// NewValueNotFoundError creates a ValueNotFoundError for the given path.
func NewValueNotFoundError(path string) *ValueNotFoundError {
	return &ValueNotFoundError{Path: path}
}

// NewUnformattedTemplateValueError creates an UnformattedTemplateValueError.
func NewUnformattedTemplateValueError(path string) *UnformattedTemplateValueError {
	return &UnformattedTemplateValueError{Path: path}
}

// NewCircularTemplateReferenceError creates a CircularTemplateReferenceError.
func NewCircularTemplateReferenceError(path string) *CircularTemplateReferenceError {
	return &CircularTemplateReferenceError{Path: path}
}
