package configuration

import (
	"context"
	"fmt"

	"github.com/causa-io/workspace/pkg/templating"
)

// ConfigurationFetcherName is the name under which the reader injects its
// own fetcher into every rendering call. Templates use it as
// ${ configuration('dotted.path') }.
const ConfigurationFetcherName = "configuration"

// GetAndRender returns the value at the dotted path with every template
// object under it rendered through the given fetchers. The configuration
// fetcher is always injected (replacing any caller-supplied entry of the
// same name) and renders referenced paths recursively, failing with
// *CircularTemplateReferenceError when a nested template requests a path
// that is a prefix of one currently being rendered.
func (r *Reader) GetAndRender(ctx context.Context, fetchers templating.FetcherTable, path string) (any, bool, error) {
	return r.getAndRender(ctx, fetchers, path, nil)
}

// GetAndRenderOrError is GetAndRender, failing with *ValueNotFoundError
// when the path does not exist.
func (r *Reader) GetAndRenderOrError(ctx context.Context, fetchers templating.FetcherTable, path string) (any, error) {
	value, found, err := r.GetAndRender(ctx, fetchers, path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewValueNotFoundError(path)
	}
	return value, nil
}

func (r *Reader) getAndRender(ctx context.Context, fetchers templating.FetcherTable, path string, chain []string) (any, bool, error) {
	raw, found := navigate(r.merged, path)
	if !found {
		return nil, false, nil
	}

	// Concurrent barrier fetches each extend the chain independently, so
	// the extension must not share the caller's backing array.
	extended := make([]string, len(chain)+1)
	copy(extended, chain)
	extended[len(chain)] = path

	table := make(templating.FetcherTable, len(fetchers)+1)
	for name, fetcher := range fetchers {
		table[name] = fetcher
	}
	table[ConfigurationFetcherName] = r.configurationFetcher(fetchers, extended)

	rendered, err := templating.NewRenderer(r.marker).Render(ctx, raw, table)
	if err != nil {
		return nil, true, err
	}
	return rendered, true, nil
}

// configurationFetcher resolves ${ configuration(path) } expressions by
// rendering the requested subtree with the rendering chain extended. A
// missing path yields Undefined, leaving the requesting template intact.
func (r *Reader) configurationFetcher(fetchers templating.FetcherTable, chain []string) templating.Fetcher {
	return func(ctx context.Context, args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("the configuration fetcher takes exactly one path argument, got %d", len(args))
		}
		path, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("the configuration fetcher takes a string path, got %T", args[0])
		}

		for _, rendering := range chain {
			if isPathPrefix(path, rendering) {
				return nil, NewCircularTemplateReferenceError(path)
			}
		}

		value, found, err := r.getAndRender(ctx, fetchers, path, chain)
		if err != nil {
			return nil, err
		}
		if !found {
			return templating.Undefined, nil
		}
		return value, nil
	}
}
