package templating

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticFetcher(value any) Fetcher {
	return func(_ context.Context, _ ...any) (any, error) {
		return value, nil
	}
}

func TestRender_ScalarLeavesUnchanged(t *testing.T) {
	renderer := NewRenderer("")

	input := map[string]any{
		"name":    "workspace",
		"count":   int64(3),
		"nested":  map[string]any{"flag": true},
		"entries": []any{"a", "b"},
	}

	rendered, err := renderer.Render(context.Background(), input, nil)
	require.NoError(t, err)
	assert.Equal(t, input, rendered)

	// The result is a deep clone, not the input itself.
	renderedMap := rendered.(map[string]any)
	renderedMap["name"] = "changed"
	assert.Equal(t, "workspace", input["name"])
}

func TestRender_SingleHoleStringifiesScalar(t *testing.T) {
	renderer := NewRenderer("")
	fetchers := FetcherTable{"configuration": staticFetcher(int64(1))}

	rendered, err := renderer.Render(context.Background(), map[string]any{
		"$format": "${ configuration('a') }",
	}, fetchers)
	require.NoError(t, err)
	assert.Equal(t, "1", rendered)
}

func TestRender_SingleHolePassesThroughMapping(t *testing.T) {
	renderer := NewRenderer("")
	value := map[string]any{"k": "v"}
	fetchers := FetcherTable{"configuration": staticFetcher(value)}

	rendered, err := renderer.Render(context.Background(), map[string]any{
		"$format": "${ configuration('section') }",
	}, fetchers)
	require.NoError(t, err)
	assert.Equal(t, value, rendered)
}

func TestRender_ConcatenationAndLiterals(t *testing.T) {
	renderer := NewRenderer("")
	fetchers := FetcherTable{
		"configuration": func(_ context.Context, args ...any) (any, error) {
			require.Len(t, args, 1)
			return map[string]any{"host": "db.local", "port": int64(5432)}[args[0].(string)], nil
		},
	}

	rendered, err := renderer.Render(context.Background(), map[string]any{
		"$format": "postgres://${ configuration('host') }:${ configuration('port') }/main",
	}, fetchers)
	require.NoError(t, err)
	assert.Equal(t, "postgres://db.local:5432/main", rendered)
}

func TestRender_ExpressionConcatenationOperator(t *testing.T) {
	renderer := NewRenderer("")
	fetchers := FetcherTable{
		"secret": func(_ context.Context, args ...any) (any, error) {
			return "value-of-" + args[0].(string), nil
		},
	}

	rendered, err := renderer.Render(context.Background(), map[string]any{
		"$format": "${ 'prefix-' + secret('id') }",
	}, fetchers)
	require.NoError(t, err)
	assert.Equal(t, "prefix-value-of-id", rendered)
}

func TestRender_DuplicateInvocationsFetchOnce(t *testing.T) {
	renderer := NewRenderer("")

	var calls atomic.Int64
	fetchers := FetcherTable{
		"secret": func(_ context.Context, _ ...any) (any, error) {
			calls.Add(1)
			return "s3cr3t", nil
		},
	}

	rendered, err := renderer.Render(context.Background(), map[string]any{
		"first":  map[string]any{"$format": "${ secret('token') }"},
		"second": map[string]any{"$format": "${ secret('token') }"},
		"inner":  []any{map[string]any{"$format": "a ${ secret('token') } b"}},
	}, fetchers)
	require.NoError(t, err)

	assert.Equal(t, int64(1), calls.Load())
	result := rendered.(map[string]any)
	assert.Equal(t, "s3cr3t", result["first"])
	assert.Equal(t, "s3cr3t", result["second"])
	assert.Equal(t, []any{"a s3cr3t b"}, result["inner"])
}

func TestRender_DistinctArgumentsFetchSeparately(t *testing.T) {
	renderer := NewRenderer("")

	var calls atomic.Int64
	fetchers := FetcherTable{
		"secret": func(_ context.Context, args ...any) (any, error) {
			calls.Add(1)
			return args[0], nil
		},
	}

	rendered, err := renderer.Render(context.Background(), map[string]any{
		"a": map[string]any{"$format": "${ secret('one') }"},
		"b": map[string]any{"$format": "${ secret('two') }"},
	}, fetchers)
	require.NoError(t, err)

	assert.Equal(t, int64(2), calls.Load())
	result := rendered.(map[string]any)
	assert.Equal(t, "one", result["a"])
	assert.Equal(t, "two", result["b"])
}

func TestRender_FetcherErrorPropagatesUnchanged(t *testing.T) {
	renderer := NewRenderer("")

	backendErr := errors.New("vault sealed")
	fetchers := FetcherTable{
		"secret": func(_ context.Context, _ ...any) (any, error) {
			return nil, backendErr
		},
	}

	_, err := renderer.Render(context.Background(), map[string]any{
		"$format": "${ secret('token') }",
	}, fetchers)
	require.ErrorIs(t, err, backendErr)

	var renderingErr *RenderingError
	assert.False(t, errors.As(err, &renderingErr))
}

func TestRender_UndefinedLeavesTemplateIntact(t *testing.T) {
	renderer := NewRenderer("")
	fetchers := FetcherTable{"configuration": staticFetcher(Undefined)}

	template := map[string]any{"$format": "${ configuration('missing') }"}
	rendered, err := renderer.Render(context.Background(), map[string]any{"out": template}, fetchers)
	require.NoError(t, err)

	assert.Equal(t, template, rendered.(map[string]any)["out"])
}

func TestRender_TemplateShapedFetcherResultNotReRendered(t *testing.T) {
	renderer := NewRenderer("")

	nested := map[string]any{"$format": "${ secret('inner') }"}
	var calls atomic.Int64
	fetchers := FetcherTable{
		"configuration": staticFetcher(nested),
		"secret": func(_ context.Context, _ ...any) (any, error) {
			calls.Add(1)
			return "never", nil
		},
	}

	rendered, err := renderer.Render(context.Background(), map[string]any{
		"$format": "${ configuration('x') }",
	}, fetchers)
	require.NoError(t, err)

	assert.Equal(t, nested, rendered)
	assert.Equal(t, int64(0), calls.Load())
}

func TestRender_ParseErrorWrapsAsRenderingError(t *testing.T) {
	renderer := NewRenderer("")

	_, err := renderer.Render(context.Background(), map[string]any{
		"$format": "${ secret('unterminated }",
	}, FetcherTable{"secret": staticFetcher("x")})
	require.Error(t, err)

	var renderingErr *RenderingError
	require.ErrorAs(t, err, &renderingErr)
	assert.Contains(t, renderingErr.Template, "unterminated")
}

func TestRender_UnknownFetcherFailsDuringDiscovery(t *testing.T) {
	renderer := NewRenderer("")

	_, err := renderer.Render(context.Background(), map[string]any{
		"$format": "${ unknown('x') }",
	}, FetcherTable{})
	require.Error(t, err)

	var renderingErr *RenderingError
	require.ErrorAs(t, err, &renderingErr)
	assert.Contains(t, renderingErr.Error(), "unknown fetcher")
}

func TestRender_NonStringMarkerValueFails(t *testing.T) {
	renderer := NewRenderer("")

	_, err := renderer.Render(context.Background(), map[string]any{
		"$format": int64(42),
	}, nil)
	require.Error(t, err)

	var renderingErr *RenderingError
	require.ErrorAs(t, err, &renderingErr)
}

func TestRender_CustomMarker(t *testing.T) {
	renderer := NewRenderer("$tpl")
	fetchers := FetcherTable{"configuration": staticFetcher("ok")}

	rendered, err := renderer.Render(context.Background(), map[string]any{
		"custom":  map[string]any{"$tpl": "${ configuration('a') }"},
		"default": map[string]any{"$format": "${ configuration('a') }"},
	}, fetchers)
	require.NoError(t, err)

	result := rendered.(map[string]any)
	assert.Equal(t, "ok", result["custom"])
	// The default marker is not special for a renderer with a custom one.
	assert.Equal(t, map[string]any{"$format": "${ configuration('a') }"}, result["default"])
}

func TestContainsTemplateObject(t *testing.T) {
	template := map[string]any{"$format": "${ secret('x') }"}

	assert.True(t, ContainsTemplateObject(DefaultMarker, template))
	assert.True(t, ContainsTemplateObject(DefaultMarker, map[string]any{"deep": []any{template}}))
	assert.False(t, ContainsTemplateObject(DefaultMarker, map[string]any{"a": int64(1)}))
	assert.False(t, ContainsTemplateObject(DefaultMarker, "plain"))

	// A map with the marker key plus other keys is not a template object.
	assert.False(t, ContainsTemplateObject(DefaultMarker, map[string]any{
		"$format": "${ secret('x') }",
		"other":   true,
	}))
}

func TestContainsTemplateObject_MatchesRenderAltering(t *testing.T) {
	renderer := NewRenderer("")
	fetchers := FetcherTable{"configuration": staticFetcher("v")}

	for _, value := range []any{
		map[string]any{"a": int64(1)},
		map[string]any{"a": map[string]any{"$format": "${ configuration('x') }"}},
		[]any{"plain", map[string]any{"$format": "x ${ configuration('x') }"}},
	} {
		rendered, err := renderer.Render(context.Background(), value, fetchers)
		require.NoError(t, err)

		altered := !assert.ObjectsAreEqual(value, rendered)
		assert.Equal(t, ContainsTemplateObject(DefaultMarker, value), altered)
	}
}
