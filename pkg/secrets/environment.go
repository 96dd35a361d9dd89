// Package secrets provides built-in secret backends.
//
// A secret backend is an implementation of the FetchSecret operation
// whose Supports predicate selects it by the backend argument. Backends
// register like any other function implementation, either directly
// through workspace Options or from a module registration function.
package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/causa-io/workspace/pkg/functions"
	"github.com/causa-io/workspace/pkg/modules"
	"github.com/causa-io/workspace/pkg/workspace"
)

// EnvironmentVariableBackend is the backend identifier for secrets read
// from environment variables.
const EnvironmentVariableBackend = "environment-variable"

// ModuleName is the module identifier under which the built-in backends
// register.
const ModuleName = "causa-secrets"

// EnvironmentVariableSecret fetches a secret from the environment
// variable named by the record's name field.
//
// Example secret record:
//
//	secrets:
//	  apiKey:
//	    backend: environment-variable
//	    name: MY_API_KEY
type EnvironmentVariableSecret struct {
	workspace.FetchSecretArguments `mapstructure:",squash"`
}

// Definition implements functions.Implementation.
func (s *EnvironmentVariableSecret) Definition() functions.Definition[*workspace.Context] {
	return workspace.FetchSecretDefinition{}
}

// Supports implements functions.Implementation.
func (s *EnvironmentVariableSecret) Supports(_ *workspace.Context) bool {
	return s.Backend == EnvironmentVariableBackend
}

// Call implements functions.Implementation.
func (s *EnvironmentVariableSecret) Call(_ context.Context, _ *workspace.Context) (any, error) {
	name, _ := s.Configuration["name"].(string)
	if name == "" {
		return nil, &workspace.InvalidSecretDefinitionError{
			Message: "Expected a name with the environment variable to read.",
		}
	}

	value, ok := os.LookupEnv(name)
	if !ok {
		return nil, &workspace.SecretValueNotFoundError{
			Message: fmt.Sprintf("environment variable %q is not set", name),
		}
	}
	return value, nil
}

// Implementations returns the built-in secret backends, for registration
// through workspace Options.
func Implementations() []functions.Implementation[*workspace.Context] {
	return []functions.Implementation[*workspace.Context]{
		&EnvironmentVariableSecret{},
	}
}

// Module is the registration entry point used when the built-in backends
// are declared as a workspace module.
func Module(reg modules.Registrar[*workspace.Context]) error {
	return reg.RegisterFunctionImplementations(Implementations()...)
}
