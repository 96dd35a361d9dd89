// Package configuration provides the layered configuration reader.
//
// A configuration is a tree of scalars, lists, and mappings, composed from
// an ordered list of raw layers. Mappings merge recursively, lists
// concatenate (right appended to left), and all other values are
// right-wins. Layers are deep-cloned on the way in, so merging never
// mutates its inputs.
//
// Values under a path may be template objects (see the templating
// package). Plain getters guard against returning unrendered templates;
// the rendering getters resolve them through a fetcher table.
package configuration

import (
	"strconv"
	"strings"

	"github.com/mitchellh/copystructure"
)

// RawConfiguration is one configuration layer together with its origin.
type RawConfiguration struct {
	// SourceType describes the kind of origin. The file, environment, and
	// processor types are reserved; other values are allowed.
	SourceType string

	// Source identifies the origin within its type, e.g. a file path or a
	// processor name. May be empty.
	Source string

	// Configuration is the layer's tree. Expected to be a mapping.
	Configuration map[string]any
}

// Reserved layer source types.
const (
	SourceTypeFile        = "file"
	SourceTypeEnvironment = "environment"
	SourceTypeProcessor   = "processor"
)

// mergeTrees folds src into dst under the merge rule and returns dst.
// Both trees must already be owned by the caller: values are moved, not
// copied.
func mergeTrees(dst, src map[string]any) map[string]any {
	for key, srcValue := range src {
		dstValue, exists := dst[key]
		if !exists {
			dst[key] = srcValue
			continue
		}

		dstMap, dstIsMap := dstValue.(map[string]any)
		srcMap, srcIsMap := srcValue.(map[string]any)
		if dstIsMap && srcIsMap {
			dst[key] = mergeTrees(dstMap, srcMap)
			continue
		}

		dstList, dstIsList := dstValue.([]any)
		srcList, srcIsList := srcValue.([]any)
		if dstIsList && srcIsList {
			dst[key] = append(dstList, srcList...)
			continue
		}

		dst[key] = srcValue
	}
	return dst
}

// cloneTree deep-copies a configuration tree.
func cloneTree(tree map[string]any) (map[string]any, error) {
	if tree == nil {
		return map[string]any{}, nil
	}
	cloned, err := copystructure.Copy(tree)
	if err != nil {
		return nil, err
	}
	return cloned.(map[string]any), nil
}

// cloneValue deep-copies an arbitrary configuration value.
func cloneValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return copystructure.Copy(v)
}

// navigate descends a dotted path into a value tree. Numeric segments
// index lists. A missing segment yields found == false, never an error.
func navigate(tree any, path string) (any, bool) {
	if path == "" {
		return tree, true
	}

	current := tree
	for segment := range strings.SplitSeq(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			index, err := strconv.Atoi(segment)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}
			current = node[index]
		default:
			return nil, false
		}
	}
	return current, true
}

// isPathPrefix reports whether requested is path itself or a dotted-path
// ancestor of it. Rendering a value re-renders everything under its path,
// so requesting a prefix of a path currently being rendered is circular.
func isPathPrefix(requested, path string) bool {
	return requested == path || strings.HasPrefix(path, requested+".")
}
