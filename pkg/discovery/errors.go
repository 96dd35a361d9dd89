package discovery

import "fmt"

// InvalidWorkspaceFilesError indicates that the configuration files found
// (or not found) around the working directory do not form a valid
// workspace.
type InvalidWorkspaceFilesError struct {
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *InvalidWorkspaceFilesError) Error() string {
	return e.Message
}

// NewInvalidWorkspaceFilesError creates an InvalidWorkspaceFilesError.
func NewInvalidWorkspaceFilesError(format string, args ...any) *InvalidWorkspaceFilesError {
	return &InvalidWorkspaceFilesError{Message: fmt.Sprintf(format, args...)}
}
