// Package functions provides the polymorphic function registry.
//
// An abstract operation is described by a Definition: a unique name, an
// argument schema (carried as a prototype struct for the validation
// package), and a return descriptor. Concrete Implementations of a
// definition are materialized from a caller-supplied argument map and
// selected at call time by their Supports predicate against the current
// workspace context.
//
// The registry is generic over the workspace context type C so it carries
// no dependency on the package that assembles it.
package functions

import "context"

// Definition describes an abstract operation.
//
// Definitions are identified by name: registering two distinct definition
// types under the same name is an error.
type Definition[C any] interface {
	// Name uniquely identifies the operation within a registry.
	Name() string

	// NewArguments returns a pointer to a fresh argument struct declaring
	// the operation's argument fields and their validation constraints.
	NewArguments() any

	// Returns describes the operation's return value.
	Returns() string
}

// Implementation is a concrete realization of a Definition.
//
// Implementations are structs whose exported fields are the operation's
// arguments; the registry materializes a fresh instance from the argument
// map before every dispatch. Supports runs on that materialized instance,
// so it may inspect arguments as well as the workspace context, but it
// must be free of side effects.
type Implementation[C any] interface {
	// Definition returns the abstract operation this implementation
	// realizes. The association is static; returning nil marks the
	// implementation as invalid.
	Definition() Definition[C]

	// Call executes the operation against the workspace context.
	Call(ctx context.Context, workspace C) (any, error)

	// Supports reports whether this implementation handles the given
	// workspace context (and the materialized arguments).
	Supports(workspace C) bool
}
