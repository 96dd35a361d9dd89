package workspace

import (
	"context"

	"github.com/causa-io/workspace/pkg/configuration"
)

// ProcessorInstruction names a processor function and its arguments.
// Processors run during Init: each call's returned configuration is
// merged back as an additional layer before the next processor runs.
type ProcessorInstruction struct {
	// Name is the registered function name of the processor.
	Name string `mapstructure:"name"`

	// Args are the arguments the processor is called with.
	Args map[string]any `mapstructure:"args"`
}

// processorResultConfigurationKey is the field a processor's output must
// carry its partial configuration under.
const processorResultConfigurationKey = "configuration"

// applyProcessor runs one processor against the current context and
// returns the successor context with the processor's configuration merged
// as a new layer. The receiver must be considered moved-from afterwards.
func (c *Context) applyProcessor(ctx context.Context, instruction ProcessorInstruction) (*Context, error) {
	result, err := c.CallByName(ctx, instruction.Name, instruction.Args)
	if err != nil {
		return nil, err
	}

	resultMap, ok := result.(map[string]any)
	if !ok {
		return nil, &InvalidProcessorOutputError{Processor: instruction.Name}
	}
	partial, ok := resultMap[processorResultConfigurationKey].(map[string]any)
	if !ok {
		return nil, &InvalidProcessorOutputError{Processor: instruction.Name}
	}

	reader, err := c.reader.MergedWith(configuration.RawConfiguration{
		SourceType:    configuration.SourceTypeProcessor,
		Source:        instruction.Name,
		Configuration: partial,
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("applied processor", "processor", instruction.Name)
	return c.successor(reader, instruction), nil
}
