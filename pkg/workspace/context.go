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

// Package workspace provides the public facade of the workspace engine.
//
// A Context is the immutable result of initializing the engine against a
// working directory: discovered configuration, workspace and project
// roots, the function registry populated by loaded modules, and the
// processor history. Contexts are never mutated; Clone re-initializes
// with overrides and returns a fresh value.
package workspace

import (
	"context"
	"fmt"
	"log/slog"

	"dario.cat/mergo"
	"github.com/google/uuid"

	"github.com/causa-io/workspace/pkg/configuration"
	"github.com/causa-io/workspace/pkg/discovery"
	"github.com/causa-io/workspace/pkg/functions"
	"github.com/causa-io/workspace/pkg/metrics"
	"github.com/causa-io/workspace/pkg/modules"
	"github.com/causa-io/workspace/pkg/servicecache"
)

// ModulesConfigurationPath is where the merged configuration declares the
// modules a workspace requires.
const ModulesConfigurationPath = "causa.modules"

// Context is an initialized, immutable workspace.
type Context struct {
	id               string
	workingDirectory string
	environment      string
	rootPath         string
	projectPath      string
	marker           string

	reader      *configuration.Reader
	registry    *functions.Registry[*Context]
	processors  []ProcessorInstruction
	logger      *slog.Logger
	baseLogger  *slog.Logger
	services    *servicecache.Cache
	instruments *metrics.Instruments

	// Re-init inputs, retained for Clone.
	moduleRegistrations map[string]modules.RegisterFunc[*Context]
	implementations     []functions.Implementation[*Context]
}

// Options configures Init.
type Options struct {
	// WorkingDirectory is where discovery starts. Defaults to ".".
	WorkingDirectory string

	// Environment selects the environments.<id> overlay. Empty means no
	// overlay.
	Environment string

	// Processors are applied in order after module loading. Each call's
	// returned configuration is merged as an additional layer.
	Processors []ProcessorInstruction

	// TemplateMarker overrides the template object marker ($format).
	TemplateMarker string

	// Logger receives the engine's structured logs. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Instruments receives engine metrics. Nil disables instrumentation.
	Instruments *metrics.Instruments

	// ModuleRegistrations announces compiled-in modules to the loader,
	// keyed by module identifier.
	ModuleRegistrations map[string]modules.RegisterFunc[*Context]

	// FunctionImplementations are registered before modules load, e.g.
	// built-in secret backends.
	FunctionImplementations []functions.Implementation[*Context]
}

// registryCapability is the narrow capability object handed to module
// registration functions.
type registryCapability struct {
	registry *functions.Registry[*Context]
}

func (r registryCapability) RegisterFunctionImplementations(impls ...functions.Implementation[*Context]) error {
	return r.registry.RegisterImplementations(impls...)
}

// Init discovers the workspace around the working directory, loads its
// modules, applies the processors, and returns the resulting immutable
// context.
func Init(ctx context.Context, options Options) (*Context, error) {
	if options.WorkingDirectory == "" {
		options.WorkingDirectory = "."
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	result, err := discovery.LoadWorkspaceConfiguration(options.WorkingDirectory, options.Environment, options.TemplateMarker, logger)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	c := &Context{
		id:                  id,
		workingDirectory:    options.WorkingDirectory,
		environment:         options.Environment,
		rootPath:            result.RootPath,
		projectPath:         result.ProjectPath,
		marker:              options.TemplateMarker,
		reader:              result.Reader,
		registry:            functions.NewRegistry[*Context](),
		logger:              logger.With("context_id", id, "root_path", result.RootPath),
		baseLogger:          logger,
		services:            servicecache.New(),
		instruments:         options.Instruments,
		moduleRegistrations: options.ModuleRegistrations,
		implementations:     options.FunctionImplementations,
	}

	if err := c.registry.RegisterImplementations(options.FunctionImplementations...); err != nil {
		return nil, err
	}

	if err := c.loadModules(ctx); err != nil {
		return nil, err
	}

	for _, instruction := range options.Processors {
		c, err = c.applyProcessor(ctx, instruction)
		if err != nil {
			return nil, err
		}
	}

	c.logger.Debug("initialized workspace context",
		"project_path", c.projectPath,
		"environment", c.environment,
		"processors", len(c.processors))
	return c, nil
}

// CloneOptions configures Clone. Zero-valued fields inherit from the
// cloned context.
type CloneOptions struct {
	// WorkingDirectory overrides the working directory.
	WorkingDirectory string

	// Environment overrides the environment overlay. ClearEnvironment
	// drops it instead.
	Environment      string
	ClearEnvironment bool

	// Processors are appended after the context's existing processors.
	// ClearProcessors drops the existing ones instead of prepending them.
	Processors      []ProcessorInstruction
	ClearProcessors bool

	// TemplateMarker overrides the template object marker.
	TemplateMarker string

	// Logger overrides the logger.
	Logger *slog.Logger
}

// Clone re-initializes the workspace with overrides applied on top of the
// receiver's options. The receiver is left untouched.
func (c *Context) Clone(ctx context.Context, overrides CloneOptions) (*Context, error) {
	options := Options{
		WorkingDirectory: overrides.WorkingDirectory,
		Environment:      overrides.Environment,
		TemplateMarker:   overrides.TemplateMarker,
		Logger:           overrides.Logger,
	}

	inherited := Options{
		WorkingDirectory:        c.workingDirectory,
		Environment:             c.environment,
		TemplateMarker:          c.marker,
		Logger:                  c.baseLogger,
		Instruments:             c.instruments,
		ModuleRegistrations:     c.moduleRegistrations,
		FunctionImplementations: c.implementations,
	}
	if err := mergo.Merge(&options, inherited); err != nil {
		return nil, fmt.Errorf("failed to merge clone options: %w", err)
	}

	if overrides.ClearEnvironment {
		options.Environment = ""
	}

	if overrides.ClearProcessors {
		options.Processors = overrides.Processors
	} else {
		options.Processors = append(append([]ProcessorInstruction{}, c.processors...), overrides.Processors...)
	}

	return Init(ctx, options)
}

// loadModules reads causa.modules and runs every module's registration
// function against the registry capability.
func (c *Context) loadModules(ctx context.Context) error {
	raw, _, err := c.reader.Get(ModulesConfigurationPath)
	if err != nil {
		return err
	}

	requirements := make(map[string]string)
	if rawMap, ok := raw.(map[string]any); ok {
		for name, version := range rawMap {
			versionString, ok := version.(string)
			if !ok {
				return fmt.Errorf("version of module %q in %s must be a string, got %T", name, ModulesConfigurationPath, version)
			}
			requirements[name] = versionString
		}
	}
	if len(requirements) == 0 {
		return nil
	}

	loader := modules.NewLoader[*Context](c.logger)
	for name, fn := range c.moduleRegistrations {
		loader.RegisterModule(name, fn)
	}

	if err := loader.Load(ctx, c.rootPath, requirements, registryCapability{registry: c.registry}); err != nil {
		return err
	}
	for name := range requirements {
		c.instruments.RecordModuleLoad(name)
	}
	return nil
}

// successor builds the next context in a processor chain: same identity
// and registry, new reader, extended history, fresh service cache. The
// predecessor must be considered moved-from.
func (c *Context) successor(reader *configuration.Reader, instruction ProcessorInstruction) *Context {
	next := *c
	next.reader = reader
	next.processors = append(append([]ProcessorInstruction{}, c.processors...), instruction)
	next.services = servicecache.New()
	return &next
}

// ID returns the unique identifier of this context instance.
func (c *Context) ID() string { return c.id }

// WorkingDirectory returns the directory discovery started from.
func (c *Context) WorkingDirectory() string { return c.workingDirectory }

// Environment returns the selected environment identifier, or "".
func (c *Context) Environment() string { return c.environment }

// RootPath returns the workspace root directory.
func (c *Context) RootPath() string { return c.rootPath }

// ProjectPath returns the project root directory, or "" outside projects.
func (c *Context) ProjectPath() string { return c.projectPath }

// Processors returns the applied processor instructions in order.
func (c *Context) Processors() []ProcessorInstruction {
	processors := make([]ProcessorInstruction, len(c.processors))
	copy(processors, c.processors)
	return processors
}

// Logger returns the context's logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Service returns the per-context singleton built by the constructor,
// creating it on first use. Clones never share service instances.
func Service[T any](c *Context, constructor func(*Context) T) T {
	return c.services.GetOrCreate(constructor, func() any {
		return constructor(c)
	}).(T)
}
