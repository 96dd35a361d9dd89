package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/causa-io/workspace/pkg/functions"
	"github.com/causa-io/workspace/pkg/templating"
)

// FetchSecretFunctionName is the registered name of the secret fetching
// operation. Secret backends are implementations of this definition whose
// Supports predicate selects them by the backend argument.
const FetchSecretFunctionName = "FetchSecret"

// SecretFetcherName is the name of the secret fetcher injected into
// template rendering: ${ secret('id') }.
const SecretFetcherName = "secret"

// DefaultBackendConfigurationPath is where the merged configuration may
// name the backend used by secrets that do not name their own.
const DefaultBackendConfigurationPath = "causa.secrets.defaultBackend"

// secretBackendKey is the field of a secret record naming its backend.
const secretBackendKey = "backend"

// FetchSecretArguments are the arguments of the FetchSecret operation.
// Backend implementations embed this struct so the Backend field is
// available to their Supports predicate.
type FetchSecretArguments struct {
	// Backend identifies the backend that should fetch the secret.
	Backend string `mapstructure:"backend" validate:"string"`

	// Configuration is the secret's record without its backend field.
	Configuration map[string]any `mapstructure:"configuration" validate:"object"`
}

// FetchSecretDefinition describes the secret fetching operation.
type FetchSecretDefinition struct{}

// Name implements functions.Definition.
func (FetchSecretDefinition) Name() string { return FetchSecretFunctionName }

// NewArguments implements functions.Definition.
func (FetchSecretDefinition) NewArguments() any { return &FetchSecretArguments{} }

// Returns implements functions.Definition.
func (FetchSecretDefinition) Returns() string { return "the secret value as a string" }

// Secret resolves the secrets.<id> record through its backend.
//
// The backend is the record's backend field, falling back to
// causa.secrets.defaultBackend. The record without that field is passed
// to the single FetchSecret implementation supporting the backend.
func (c *Context) Secret(ctx context.Context, id string) (string, error) {
	raw, err := c.GetOrError("secrets." + id)
	if err != nil {
		return "", err
	}

	record, ok := raw.(map[string]any)
	if !ok {
		return "", &InvalidSecretDefinitionError{Message: "Expected an object.", SecretID: id}
	}

	backend, _ := record[secretBackendKey].(string)
	if backend == "" {
		if defaultBackend, _, err := c.Get(DefaultBackendConfigurationPath); err == nil {
			backend, _ = defaultBackend.(string)
		}
	}
	if backend == "" {
		return "", &SecretBackendNotSpecifiedError{SecretID: id}
	}

	backendConfiguration := make(map[string]any, len(record))
	for key, value := range record {
		if key != secretBackendKey {
			backendConfiguration[key] = value
		}
	}

	result, err := c.Call(ctx, FetchSecretDefinition{}, map[string]any{
		"backend":       backend,
		"configuration": backendConfiguration,
	})
	if err != nil {
		var noImpl *functions.NoImplementationFoundError
		if errors.As(err, &noImpl) {
			return "", &SecretBackendNotFoundError{Backend: backend}
		}
		var invalidDefinition *InvalidSecretDefinitionError
		if errors.As(err, &invalidDefinition) && invalidDefinition.SecretID == "" {
			return "", &InvalidSecretDefinitionError{Message: invalidDefinition.Message, SecretID: id}
		}
		return "", err
	}

	value, ok := result.(string)
	if !ok {
		return "", &InvalidSecretDefinitionError{
			Message:  fmt.Sprintf("Backend %q returned %T, expected a string.", backend, result),
			SecretID: id,
		}
	}
	return value, nil
}

// secretFetcher adapts Secret to the template fetcher contract. When
// rendering without secrets, the fetcher yields the empty string without
// touching any backend.
func (c *Context) secretFetcher(renderSecrets bool) templating.Fetcher {
	return func(ctx context.Context, args ...any) (any, error) {
		if !renderSecrets {
			return "", nil
		}
		if len(args) != 1 {
			return nil, fmt.Errorf("the secret fetcher takes exactly one identifier argument, got %d", len(args))
		}
		id, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("the secret fetcher takes a string identifier, got %T", args[0])
		}

		c.instruments.RecordFetcherInvocation(SecretFetcherName)
		return c.Secret(ctx, id)
	}
}
