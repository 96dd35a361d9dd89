package configuration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileLayer(source string, tree map[string]any) RawConfiguration {
	return RawConfiguration{SourceType: SourceTypeFile, Source: source, Configuration: tree}
}

func TestNewReader_MergesLayers(t *testing.T) {
	reader, err := NewReader("",
		fileLayer("base.yaml", map[string]any{
			"a": int64(1),
			"b": []any{"x"},
			"nested": map[string]any{
				"kept":       "base",
				"overridden": "base",
			},
		}),
		fileLayer("override.yaml", map[string]any{
			"b": []any{"y"},
			"nested": map[string]any{
				"overridden": "override",
				"added":      true,
			},
		}),
	)
	require.NoError(t, err)

	tree, err := reader.GetOrError("")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": int64(1),
		"b": []any{"x", "y"},
		"nested": map[string]any{
			"kept":       "base",
			"overridden": "override",
			"added":      true,
		},
	}, tree)
}

func TestNewReader_ScalarsAreRightWins(t *testing.T) {
	reader, err := NewReader("",
		fileLayer("base.yaml", map[string]any{"flag": true, "count": int64(5), "name": "base"}),
		fileLayer("override.yaml", map[string]any{"flag": false, "count": int64(0), "name": ""}),
	)
	require.NoError(t, err)

	// Right-wins applies to every scalar, including zero values.
	flag, err := reader.GetOrError("flag")
	require.NoError(t, err)
	assert.Equal(t, false, flag)

	count, err := reader.GetOrError("count")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	name, err := reader.GetOrError("name")
	require.NoError(t, err)
	assert.Equal(t, "", name)
}

func TestNewReader_MappingReplacesScalar(t *testing.T) {
	reader, err := NewReader("",
		fileLayer("base.yaml", map[string]any{"value": "scalar"}),
		fileLayer("override.yaml", map[string]any{"value": map[string]any{"k": "v"}}),
	)
	require.NoError(t, err)

	value, err := reader.GetOrError("value")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, value)
}

func TestMergedWith_IsLeftAssociative(t *testing.T) {
	l1 := fileLayer("one.yaml", map[string]any{"a": int64(1), "list": []any{"x"}})
	l2 := fileLayer("two.yaml", map[string]any{"a": int64(2), "list": []any{"y"}, "b": "added"})

	base, err := NewReader("")
	require.NoError(t, err)

	together, err := base.MergedWith(l1, l2)
	require.NoError(t, err)
	chained, err := base.MergedWith(l1)
	require.NoError(t, err)
	chained, err = chained.MergedWith(l2)
	require.NoError(t, err)

	for _, path := range []string{"", "a", "list", "b"} {
		got, foundTogether, err := together.Get(path)
		require.NoError(t, err)
		want, foundChained, err := chained.Get(path)
		require.NoError(t, err)
		assert.Equal(t, foundTogether, foundChained)
		assert.Equal(t, want, got, "path %q", path)
	}
}

func TestMergedWith_DoesNotMutateInputs(t *testing.T) {
	layerTree := map[string]any{"list": []any{"x"}, "nested": map[string]any{"a": int64(1)}}
	layer := fileLayer("base.yaml", layerTree)

	reader, err := NewReader("", layer)
	require.NoError(t, err)
	_, err = reader.MergedWith(fileLayer("more.yaml", map[string]any{
		"list":   []any{"y"},
		"nested": map[string]any{"b": int64(2)},
	}))
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"list": []any{"x"}, "nested": map[string]any{"a": int64(1)}}, layerTree)

	// The original reader keeps its own view.
	list, err := reader.GetOrError("list")
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, list)
}

func TestGet_MissingPath(t *testing.T) {
	reader, err := NewReader("", fileLayer("base.yaml", map[string]any{"a": map[string]any{"b": int64(1)}}))
	require.NoError(t, err)

	_, found, err := reader.Get("a.missing.deeper")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = reader.GetOrError("a.missing")
	var notFound *ValueNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "a.missing", notFound.Path)
}

func TestGet_NumericSegmentsIndexLists(t *testing.T) {
	reader, err := NewReader("", fileLayer("base.yaml", map[string]any{
		"items": []any{
			map[string]any{"name": "first"},
			map[string]any{"name": "second"},
		},
	}))
	require.NoError(t, err)

	name, err := reader.GetOrError("items.1.name")
	require.NoError(t, err)
	assert.Equal(t, "second", name)

	_, found, err := reader.Get("items.7.name")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestGet_TemplateGuard(t *testing.T) {
	template := map[string]any{"$format": "${ secret('s') }"}
	reader, err := NewReader("", fileLayer("base.yaml", map[string]any{"a": template}))
	require.NoError(t, err)

	_, _, err = reader.Get("a")
	var unformatted *UnformattedTemplateValueError
	require.ErrorAs(t, err, &unformatted)
	assert.Equal(t, "a", unformatted.Path)

	// The guard also trips on templates nested below the requested path.
	_, _, err = reader.Get("")
	require.ErrorAs(t, err, &unformatted)

	raw, _, err := reader.Get("a", Unsafe())
	require.NoError(t, err)
	assert.Equal(t, template, raw)
}

func TestGet_ReturnsDeepCopy(t *testing.T) {
	reader, err := NewReader("", fileLayer("base.yaml", map[string]any{
		"nested": map[string]any{"a": int64(1)},
	}))
	require.NoError(t, err)

	first, err := reader.GetOrError("nested")
	require.NoError(t, err)
	first.(map[string]any)["a"] = int64(99)

	second, err := reader.GetOrError("nested")
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.(map[string]any)["a"])
}

func TestDecode_PopulatesStruct(t *testing.T) {
	reader, err := NewReader("", fileLayer("base.yaml", map[string]any{
		"project": map[string]any{
			"name":     "api",
			"type":     "service",
			"language": "go",
		},
	}))
	require.NoError(t, err)

	var project struct {
		Name     string `mapstructure:"name"`
		Type     string `mapstructure:"type"`
		Language string `mapstructure:"language"`
	}
	require.NoError(t, reader.Decode("project", &project))
	assert.Equal(t, "api", project.Name)
	assert.Equal(t, "service", project.Type)
	assert.Equal(t, "go", project.Language)
}
