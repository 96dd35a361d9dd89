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

package templating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mitchellh/copystructure"
	"golang.org/x/sync/errgroup"
)

// Renderer resolves every template object in a value tree.
//
// Rendering never mutates its input: both passes operate on a deep clone.
// The renderer is single-level over that clone: a fetcher result that is
// itself template-shaped is substituted as-is, not rendered again.
type Renderer struct {
	// Marker is the map key identifying template objects.
	Marker string
}

// NewRenderer creates a Renderer for the given template marker. An empty
// marker selects DefaultMarker.
func NewRenderer(marker string) *Renderer {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Renderer{Marker: marker}
}

// invocation is one unique (fetcher, args) pair collected during the
// discovery pass. Each invocation owns its result slot, so the barrier
// goroutines never share a write target.
type invocation struct {
	name   string
	args   []any
	result any
}

// Render returns a deep copy of value in which every template object has
// been replaced by its rendered result.
//
// The discovery pass evaluates each format string against a recording
// lookup table, deduplicating invocations by fetcher name and structural
// argument equality. The barrier then invokes every unique pair
// concurrently. The substitution pass evaluates the same expressions
// against the populated cache.
//
// Parse and evaluation failures are reported as *RenderingError; errors
// returned by fetchers propagate unchanged.
func (r *Renderer) Render(ctx context.Context, value any, fetchers FetcherTable) (any, error) {
	cloned, err := copystructure.Copy(value)
	if err != nil {
		return nil, fmt.Errorf("failed to clone value for rendering: %w", err)
	}

	// Pass 1: collect unique fetcher invocations.
	invocations := make(map[string]*invocation)
	err = r.walkTemplates(cloned, func(format string) error {
		parsed, err := parseFormat(format)
		if err != nil {
			return NewRenderingError(format, err)
		}
		_, err = parsed.evaluate(func(name string, args []any) (any, error) {
			if _, ok := fetchers[name]; !ok {
				return nil, NewRenderingError(format, fmt.Errorf("unknown fetcher %q", name))
			}
			invocations[invocationKey(name, args)] = &invocation{name: name, args: args}
			return "", nil
		})
		var renderingErr *RenderingError
		if err != nil && !errors.As(err, &renderingErr) {
			return NewRenderingError(format, err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	// Barrier: resolve all unique invocations concurrently.
	g, gctx := errgroup.WithContext(ctx)
	for _, inv := range invocations {
		g.Go(func() error {
			result, err := fetchers[inv.name](gctx, inv.args...)
			if err != nil {
				return err
			}
			inv.result = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Pass 2: substitute results from the populated cache.
	return r.substitute(cloned, invocations)
}

// walkTemplates visits the format string of every template object in the
// subtree, in depth-first order.
func (r *Renderer) walkTemplates(value any, visit func(format string) error) error {
	switch v := value.(type) {
	case map[string]any:
		if IsTemplateObject(r.Marker, v) {
			format, err := r.formatString(v)
			if err != nil {
				return err
			}
			return visit(format)
		}
		for _, child := range v {
			if err := r.walkTemplates(child, visit); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range v {
			if err := r.walkTemplates(child, visit); err != nil {
				return err
			}
		}
	}
	return nil
}

// substitute rebuilds the cloned tree, replacing template objects with
// their rendered results. A template evaluating to Undefined stays intact.
func (r *Renderer) substitute(value any, invocations map[string]*invocation) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if IsTemplateObject(r.Marker, v) {
			format, err := r.formatString(v)
			if err != nil {
				return nil, err
			}
			parsed, err := parseFormat(format)
			if err != nil {
				return nil, NewRenderingError(format, err)
			}
			result, err := parsed.evaluate(func(name string, args []any) (any, error) {
				inv, ok := invocations[invocationKey(name, args)]
				if !ok {
					return nil, NewReferencedDataError(name, args)
				}
				return inv.result, nil
			})
			if err != nil {
				return nil, err
			}
			if IsUndefined(result) {
				return v, nil
			}
			return result, nil
		}
		for key, child := range v {
			rendered, err := r.substitute(child, invocations)
			if err != nil {
				return nil, err
			}
			v[key] = rendered
		}
		return v, nil
	case []any:
		for i, child := range v {
			rendered, err := r.substitute(child, invocations)
			if err != nil {
				return nil, err
			}
			v[i] = rendered
		}
		return v, nil
	default:
		return value, nil
	}
}

// formatString extracts the format string of a template object.
func (r *Renderer) formatString(obj map[string]any) (string, error) {
	raw := obj[r.Marker]
	format, ok := raw.(string)
	if !ok {
		return "", NewRenderingError(fmt.Sprintf("%v", raw), fmt.Errorf("template marker %q must hold a string, got %T", r.Marker, raw))
	}
	return format, nil
}

// invocationKey builds the dedup key for a fetcher invocation. Arguments
// are restricted to scalars by the expression grammar, so their JSON
// encoding is a stable structural identity.
func invocationKey(name string, args []any) string {
	encoded, err := json.Marshal(args)
	if err != nil {
		encoded = fmt.Appendf(nil, "%v", args)
	}
	return name + ":" + string(encoded)
}
