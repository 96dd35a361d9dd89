// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package functions

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/causa-io/workspace/pkg/validation"
)

// registeredFunction groups a definition with its implementation types,
// kept in registration order.
type registeredFunction[C any] struct {
	definition Definition[C]
	implTypes  []reflect.Type
}

// Registry maps operation names to their definition and implementations.
//
// Registration is append-only and safe for concurrent use: module loads
// run in parallel and register implementations in nondeterministic order
// relative to each other. Within one definition, implementations keep
// their registration order.
type Registry[C any] struct {
	mu        sync.RWMutex
	functions map[string]*registeredFunction[C]
	names     []string
}

// NewRegistry creates an empty function registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{functions: make(map[string]*registeredFunction[C])}
}

// Register binds an implementation to its definition. A name already owned
// by a different definition type fails with *DefinitionMismatchError.
func (r *Registry[C]) Register(definition Definition[C], impl Implementation[C]) error {
	implDef, err := r.DefinitionForImplementation(impl)
	if err != nil {
		return err
	}
	if reflect.TypeOf(implDef) != reflect.TypeOf(definition) {
		return &DefinitionMismatchError{Name: definition.Name()}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := definition.Name()
	entry, exists := r.functions[name]
	if !exists {
		entry = &registeredFunction[C]{definition: definition}
		r.functions[name] = entry
		r.names = append(r.names, name)
	} else if reflect.TypeOf(entry.definition) != reflect.TypeOf(definition) {
		return &DefinitionMismatchError{Name: name}
	}

	entry.implTypes = append(entry.implTypes, implStructType(impl))
	return nil
}

// RegisterImplementations resolves each implementation's definition and
// registers it.
func (r *Registry[C]) RegisterImplementations(impls ...Implementation[C]) error {
	for _, impl := range impls {
		definition, err := r.DefinitionForImplementation(impl)
		if err != nil {
			return err
		}
		if err := r.Register(definition, impl); err != nil {
			return err
		}
	}
	return nil
}

// DefinitionForImplementation returns the definition an implementation
// realizes, failing with *InvalidFunctionError when there is none.
func (r *Registry[C]) DefinitionForImplementation(impl Implementation[C]) (Definition[C], error) {
	definition := impl.Definition()
	if definition == nil {
		return nil, &InvalidFunctionError{
			Message: fmt.Sprintf("implementation %T does not resolve to a function definition", impl),
		}
	}
	return definition, nil
}

// Definitions returns a snapshot of all registered definitions, in
// first-registration order.
func (r *Registry[C]) Definitions() []Definition[C] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	definitions := make([]Definition[C], 0, len(r.names))
	for _, name := range r.names {
		definitions = append(definitions, r.functions[name].definition)
	}
	return definitions
}

// Implementations materializes every implementation registered under the
// name with the given arguments and returns those whose Supports predicate
// accepts the workspace context, in registration order. An unknown name
// fails with *NoImplementationFoundError.
func (r *Registry[C]) Implementations(name string, args map[string]any, workspace C) ([]Implementation[C], error) {
	entry, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	supporting := make([]Implementation[C], 0, len(entry.implTypes))
	for _, implType := range entry.implTypes {
		impl, err := materialize[C](name, implType, args)
		if err != nil {
			return nil, err
		}
		if impl.Supports(workspace) {
			supporting = append(supporting, impl)
		}
	}
	return supporting, nil
}

// Implementation returns the single supporting implementation, failing
// with *NoImplementationFoundError for zero supporters and
// *TooManyImplementationsError for more than one.
func (r *Registry[C]) Implementation(name string, args map[string]any, workspace C) (Implementation[C], error) {
	supporting, err := r.Implementations(name, args, workspace)
	if err != nil {
		return nil, err
	}
	switch len(supporting) {
	case 0:
		return nil, &NoImplementationFoundError{Definition: name}
	case 1:
		return supporting[0], nil
	default:
		return nil, &TooManyImplementationsError{Definition: name, Count: len(supporting)}
	}
}

// Call dispatches to the single supporting implementation.
func (r *Registry[C]) Call(ctx context.Context, name string, args map[string]any, workspace C) (any, error) {
	impl, err := r.Implementation(name, args, workspace)
	if err != nil {
		return nil, err
	}
	return impl.Call(ctx, workspace)
}

// CallAll dispatches to every supporting implementation in registration
// order and collects the results.
func (r *Registry[C]) CallAll(ctx context.Context, name string, args map[string]any, workspace C) ([]any, error) {
	supporting, err := r.Implementations(name, args, workspace)
	if err != nil {
		return nil, err
	}

	results := make([]any, 0, len(supporting))
	for _, impl := range supporting {
		result, err := impl.Call(ctx, workspace)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ValidateArguments checks an argument map against the definition's
// declared schema and returns the definition on success. Failures are
// reported as *InvalidArgumentsError with the joined messages.
func (r *Registry[C]) ValidateArguments(name string, args map[string]any) (Definition[C], error) {
	entry, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	prototype := entry.definition.NewArguments()
	if err := validation.ValidateMap(args, prototype); err != nil {
		var validationErr *validation.ValidationError
		if errors.As(err, &validationErr) {
			return nil, &InvalidArgumentsError{Definition: name, Messages: validationErr.Messages}
		}
		return nil, err
	}
	return entry.definition, nil
}

func (r *Registry[C]) lookup(name string) (*registeredFunction[C], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.functions[name]
	if !ok {
		return nil, &NoImplementationFoundError{Definition: name}
	}
	return entry, nil
}

// implStructType returns the underlying struct type of an implementation,
// unwrapping a pointer if the implementation was registered as one.
func implStructType[C any](impl Implementation[C]) reflect.Type {
	t := reflect.TypeOf(impl)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// materialize builds a fresh implementation instance whose exported fields
// are populated from the argument map. Extra keys are ignored here; the
// whitelist is enforced by ValidateArguments when the caller asks for it.
func materialize[C any](name string, implType reflect.Type, args map[string]any) (Implementation[C], error) {
	instance := reflect.New(implType).Interface()
	if err := mapstructure.Decode(args, instance); err != nil {
		return nil, &InvalidArgumentsError{Definition: name, Messages: []string{err.Error()}}
	}

	impl, ok := instance.(Implementation[C])
	if !ok {
		return nil, &InvalidFunctionError{
			Message: fmt.Sprintf("materialized %T is not an implementation", instance),
		}
	}
	return impl, nil
}
