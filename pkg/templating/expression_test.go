package templating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalLiteral(t *testing.T, format string) any {
	t.Helper()
	parsed, err := parseFormat(format)
	require.NoError(t, err)
	result, err := parsed.evaluate(func(name string, args []any) (any, error) {
		t.Fatalf("unexpected fetcher call %s(%v)", name, args)
		return nil, nil
	})
	require.NoError(t, err)
	return result
}

func TestParseFormat_PlainText(t *testing.T) {
	assert.Equal(t, "hello", evalLiteral(t, "hello"))
	assert.Equal(t, "", evalLiteral(t, ""))
}

func TestParseFormat_Literals(t *testing.T) {
	assert.Equal(t, "text", evalLiteral(t, "${ 'text' }"))
	assert.Equal(t, "5", evalLiteral(t, "${ 5 }"))
	assert.Equal(t, "2.5", evalLiteral(t, "${ 2.5 }"))
	assert.Equal(t, "true", evalLiteral(t, "${ true }"))
	assert.Equal(t, "null", evalLiteral(t, "${ null }"))
	assert.Equal(t, "a-b", evalLiteral(t, "${ 'a' + '-' + 'b' }"))
}

func TestParseFormat_EscapedQuoteInString(t *testing.T) {
	assert.Equal(t, "it's", evalLiteral(t, `${ 'it\'s' }`))
	assert.Equal(t, `say "hi"`, evalLiteral(t, `${ "say \"hi\"" }`))
}

func TestParseFormat_BraceInsideStringLiteral(t *testing.T) {
	assert.Equal(t, "a}b", evalLiteral(t, "${ 'a}b' }"))
}

func TestParseFormat_CallArguments(t *testing.T) {
	parsed, err := parseFormat("${ fetch('a', 2, true, 'x' + 'y') }")
	require.NoError(t, err)

	var gotName string
	var gotArgs []any
	_, err = parsed.evaluate(func(name string, args []any) (any, error) {
		gotName = name
		gotArgs = args
		return "", nil
	})
	require.NoError(t, err)

	assert.Equal(t, "fetch", gotName)
	assert.Equal(t, []any{"a", int64(2), true, "xy"}, gotArgs)
}

func TestParseFormat_NoArgumentCall(t *testing.T) {
	parsed, err := parseFormat("${ fetch() }")
	require.NoError(t, err)

	_, err = parsed.evaluate(func(name string, args []any) (any, error) {
		assert.Empty(t, args)
		return "ok", nil
	})
	require.NoError(t, err)
}

func TestParseFormat_Errors(t *testing.T) {
	cases := map[string]string{
		"unterminated hole":   "${ 'x'",
		"unterminated string": "${ 'x }",
		"bare identifier":     "${ secret }",
		"trailing garbage":    "${ secret('x') ! }",
		"nested call arg":     "${ secret(configuration('x')) }",
		"unterminated call":   "${ secret('x' }",
	}

	for name, format := range cases {
		t.Run(name, func(t *testing.T) {
			parsed, err := parseFormat(format)
			if err != nil {
				return
			}
			_, err = parsed.evaluate(func(string, []any) (any, error) { return "", nil })
			assert.Error(t, err)
		})
	}
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "null", stringify(nil))
	assert.Equal(t, "true", stringify(true))
	assert.Equal(t, "7", stringify(int64(7)))
	assert.Equal(t, "1.5", stringify(1.5))
	assert.Equal(t, "s", stringify("s"))
	assert.Equal(t, `["a","b"]`, stringify([]any{"a", "b"}))
}
