package workspace

import (
	"context"
	"time"

	"github.com/causa-io/workspace/pkg/configuration"
	"github.com/causa-io/workspace/pkg/discovery"
	"github.com/causa-io/workspace/pkg/templating"
)

// Get returns the configuration value at the dotted path. See
// configuration.Reader.Get for the unrendered-template guard and the
// Unsafe option.
func (c *Context) Get(path string, opts ...configuration.GetOption) (any, bool, error) {
	return c.reader.Get(path, opts...)
}

// GetOrError is Get, failing with *configuration.ValueNotFoundError when
// the path does not exist.
func (c *Context) GetOrError(path string, opts ...configuration.GetOption) (any, error) {
	return c.reader.GetOrError(path, opts...)
}

// renderOptions configures GetAndRender.
type renderOptions struct {
	renderSecrets bool
}

// RenderOption customizes rendering behavior.
type RenderOption func(*renderOptions)

// WithoutSecrets makes the injected secret fetcher return the empty
// string instead of resolving, so configurations can be rendered without
// touching secret backends.
func WithoutSecrets() RenderOption {
	return func(o *renderOptions) { o.renderSecrets = false }
}

// GetAndRender returns the value at the path with all template objects
// under it rendered. The configuration and secret fetchers are always
// available to templates.
func (c *Context) GetAndRender(ctx context.Context, path string, opts ...RenderOption) (any, bool, error) {
	options := renderOptions{renderSecrets: true}
	for _, opt := range opts {
		opt(&options)
	}

	c.instruments.RecordConfigurationRender()
	start := time.Now()
	defer func() {
		c.instruments.ObserveRenderDuration(time.Since(start))
	}()

	return c.reader.GetAndRender(ctx, c.fetchers(options), path)
}

// GetAndRenderOrError is GetAndRender, failing with
// *configuration.ValueNotFoundError when the path does not exist.
func (c *Context) GetAndRenderOrError(ctx context.Context, path string, opts ...RenderOption) (any, error) {
	value, found, err := c.GetAndRender(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, configuration.NewValueNotFoundError(path)
	}
	return value, nil
}

// AsConfiguration decodes the subtree at the given path onto out, a
// struct pointer. A missing path leaves out untouched.
func (c *Context) AsConfiguration(path string, out any) error {
	return c.reader.Decode(path, out)
}

// Configuration returns the underlying reader.
func (c *Context) Configuration() *configuration.Reader {
	return c.reader
}

// ProjectPathOrError returns the project root, failing with
// *NotAProjectError when the working directory is not inside a project.
func (c *Context) ProjectPathOrError() (string, error) {
	if c.projectPath == "" {
		return "", &NotAProjectError{WorkingDirectory: c.workingDirectory}
	}
	return c.projectPath, nil
}

// EnvironmentOrError returns the environment identifier, failing with
// *EnvironmentNotSetError when the context has none.
func (c *Context) EnvironmentOrError() (string, error) {
	if c.environment == "" {
		return "", &EnvironmentNotSetError{}
	}
	return c.environment, nil
}

// ListProjectPaths returns the directories of every project declared
// under the workspace root.
func (c *Context) ListProjectPaths() ([]string, error) {
	return discovery.ListProjectPaths(c.rootPath)
}

// ProjectExternalPaths resolves the project.externalFiles globs from the
// workspace root, honoring gitignore and not following symlinks.
func (c *Context) ProjectExternalPaths() ([]string, error) {
	raw, _, err := c.Get("project.externalFiles")
	if err != nil {
		return nil, err
	}

	var patterns []string
	if rawList, ok := raw.([]any); ok {
		for _, entry := range rawList {
			if pattern, ok := entry.(string); ok {
				patterns = append(patterns, pattern)
			}
		}
	}
	if len(patterns) == 0 {
		return nil, nil
	}

	return discovery.ProjectExternalPaths(c.rootPath, patterns)
}

// fetchers builds the fetcher table injected into every render.
func (c *Context) fetchers(options renderOptions) templating.FetcherTable {
	return templating.FetcherTable{
		SecretFetcherName: c.secretFetcher(options.renderSecrets),
	}
}
