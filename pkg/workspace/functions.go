package workspace

import (
	"context"

	"github.com/causa-io/workspace/pkg/functions"
)

// Call dispatches the definition to its single supporting implementation.
// Arguments are not validated; use CallByName for validated dispatch.
func (c *Context) Call(ctx context.Context, definition functions.Definition[*Context], args map[string]any) (any, error) {
	c.instruments.RecordFunctionCall(definition.Name())
	return c.registry.Call(ctx, definition.Name(), args, c)
}

// CallAll dispatches the definition to every supporting implementation in
// registration order and collects the results.
func (c *Context) CallAll(ctx context.Context, definition functions.Definition[*Context], args map[string]any) ([]any, error) {
	c.instruments.RecordFunctionCall(definition.Name())
	return c.registry.CallAll(ctx, definition.Name(), args, c)
}

// CallByName validates the arguments against the definition registered
// under the name, then dispatches to the single supporting
// implementation.
func (c *Context) CallByName(ctx context.Context, name string, args map[string]any) (any, error) {
	if _, err := c.registry.ValidateArguments(name, args); err != nil {
		return nil, err
	}
	c.instruments.RecordFunctionCall(name)
	return c.registry.Call(ctx, name, args, c)
}

// ValidateFunctionArguments checks the arguments against the definition
// registered under the name and returns that definition.
func (c *Context) ValidateFunctionArguments(name string, args map[string]any) (functions.Definition[*Context], error) {
	return c.registry.ValidateArguments(name, args)
}

// FunctionDefinitions returns a snapshot of all registered definitions.
func (c *Context) FunctionDefinitions() []functions.Definition[*Context] {
	return c.registry.Definitions()
}

// FunctionImplementation returns the single implementation of the
// definition supporting this context, materialized with the arguments.
func (c *Context) FunctionImplementation(definition functions.Definition[*Context], args map[string]any) (functions.Implementation[*Context], error) {
	return c.registry.Implementation(definition.Name(), args, c)
}

// FunctionImplementations returns every implementation of the definition
// supporting this context, in registration order.
func (c *Context) FunctionImplementations(definition functions.Definition[*Context], args map[string]any) ([]functions.Implementation[*Context], error) {
	return c.registry.Implementations(definition.Name(), args, c)
}
