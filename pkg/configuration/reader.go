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

package configuration

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/causa-io/workspace/pkg/templating"
)

// Reader exposes a merged view over an ordered list of configuration
// layers. Readers are immutable: MergedWith returns a new Reader, and
// getters hand out deep copies of the merged tree.
type Reader struct {
	marker string
	layers []RawConfiguration
	merged map[string]any
}

// NewReader builds a reader from the given layers, folded left to right
// under the merge rule. An empty marker selects templating.DefaultMarker.
func NewReader(marker string, layers ...RawConfiguration) (*Reader, error) {
	if marker == "" {
		marker = templating.DefaultMarker
	}

	r := &Reader{
		marker: marker,
		layers: make([]RawConfiguration, 0, len(layers)),
		merged: map[string]any{},
	}
	for _, layer := range layers {
		cloned, err := cloneTree(layer.Configuration)
		if err != nil {
			return nil, fmt.Errorf("failed to clone configuration layer from %s %q: %w", layer.SourceType, layer.Source, err)
		}
		r.layers = append(r.layers, RawConfiguration{
			SourceType:    layer.SourceType,
			Source:        layer.Source,
			Configuration: cloned,
		})

		forMerge, err := cloneTree(cloned)
		if err != nil {
			return nil, err
		}
		r.merged = mergeTrees(r.merged, forMerge)
	}
	return r, nil
}

// Marker returns the template marker this reader detects.
func (r *Reader) Marker() string {
	return r.marker
}

// Layers returns the reader's layers in merge order.
func (r *Reader) Layers() []RawConfiguration {
	layers := make([]RawConfiguration, len(r.layers))
	copy(layers, r.layers)
	return layers
}

// MergedWith returns a new reader with the additional layers appended.
// The receiver is left untouched.
func (r *Reader) MergedWith(layers ...RawConfiguration) (*Reader, error) {
	return NewReader(r.marker, append(r.Layers(), layers...)...)
}

type getOptions struct {
	unsafe bool
}

// GetOption customizes the behavior of the plain getters.
type GetOption func(*getOptions)

// Unsafe disables the unrendered-template guard, returning raw template
// objects to callers that know how to handle them.
func Unsafe() GetOption {
	return func(o *getOptions) { o.unsafe = true }
}

// Get returns a deep copy of the value at the dotted path, or found ==
// false if the path does not exist. An empty path returns the whole tree.
//
// Unless the Unsafe option is given, a template object anywhere in the
// returned subtree fails with *UnformattedTemplateValueError: handing out
// raw template markers to code that cannot resolve them is almost always
// a bug.
func (r *Reader) Get(path string, opts ...GetOption) (any, bool, error) {
	var options getOptions
	for _, opt := range opts {
		opt(&options)
	}

	raw, found := navigate(r.merged, path)
	if !found {
		return nil, false, nil
	}

	if !options.unsafe && templating.ContainsTemplateObject(r.marker, raw) {
		return nil, true, NewUnformattedTemplateValueError(path)
	}

	value, err := cloneValue(raw)
	if err != nil {
		return nil, true, fmt.Errorf("failed to clone configuration value at %q: %w", path, err)
	}
	return value, true, nil
}

// GetOrError is Get, failing with *ValueNotFoundError when the path does
// not exist.
func (r *Reader) GetOrError(path string, opts ...GetOption) (any, error) {
	value, found, err := r.Get(path, opts...)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NewValueNotFoundError(path)
	}
	return value, nil
}

// Decode populates out (a struct pointer) from the subtree at the given
// path. Missing paths leave out untouched. The subtree must not contain
// unrendered template objects.
func (r *Reader) Decode(path string, out any) error {
	value, found, err := r.Get(path)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if err := mapstructure.Decode(value, out); err != nil {
		return fmt.Errorf("failed to decode configuration at %q: %w", path, err)
	}
	return nil
}
