package templating

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The expression grammar is deliberately minimal: a format string is
// literal text with ${ expr } holes, where expr is a fetcher call with
// literal arguments, a literal, or a concatenation of those with "+".
// Expressions are evaluated twice against two lookup tables of identical
// shape (discovery and substitution), which is the entire contract the
// renderer needs.
//
//	expr    := term { "+" term }
//	term    := call | literal
//	call    := ident "(" [ arg { "," arg } ] ")"
//	arg     := literal { "+" literal }
//	literal := string | number | "true" | "false" | "null"

type exprNode interface{}

type literalNode struct {
	value any
}

type callNode struct {
	name string
	args []exprNode
}

type concatNode struct {
	parts []exprNode
}

// templatePart is either literal text or a parsed expression hole.
type templatePart struct {
	text string
	expr exprNode
}

// parsedTemplate is a compiled format string.
type parsedTemplate struct {
	format string
	parts  []templatePart
}

// lookupFunc resolves a fetcher call during evaluation. The discovery pass
// installs a recording lookup, the substitution pass a cache lookup.
type lookupFunc func(name string, args []any) (any, error)

// parseFormat compiles a format string into its literal and expression
// parts. Returns an error for unterminated holes or invalid expressions.
func parseFormat(format string) (*parsedTemplate, error) {
	t := &parsedTemplate{format: format}

	rest := format
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			if rest != "" {
				t.parts = append(t.parts, templatePart{text: rest})
			}
			return t, nil
		}
		if start > 0 {
			t.parts = append(t.parts, templatePart{text: rest[:start]})
		}

		end := findHoleEnd(rest[start+2:])
		if end < 0 {
			return nil, fmt.Errorf("unterminated ${ expression")
		}

		exprSrc := rest[start+2 : start+2+end]
		expr, err := parseExpression(exprSrc)
		if err != nil {
			return nil, err
		}
		t.parts = append(t.parts, templatePart{expr: expr})

		rest = rest[start+2+end+1:]
	}
}

// findHoleEnd locates the closing brace of a hole, skipping braces inside
// string literals. Returns -1 if the hole never closes.
func findHoleEnd(s string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '}':
			return i
		}
	}
	return -1
}

type exprParser struct {
	src string
	pos int
}

// parseExpression parses a single hole expression.
func parseExpression(src string) (exprNode, error) {
	p := &exprParser{src: src}
	node, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected %q in expression %q", p.src[p.pos:], src)
	}
	return node, nil
}

func (p *exprParser) parseConcat() (exprNode, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}

	parts := []exprNode{first}
	for {
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != '+' {
			break
		}
		p.pos++
		next, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		parts = append(parts, next)
	}

	if len(parts) == 1 {
		return parts[0], nil
	}
	return &concatNode{parts: parts}, nil
}

func (p *exprParser) parseTerm() (exprNode, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, fmt.Errorf("unexpected end of expression %q", p.src)
	}

	c := p.src[p.pos]
	switch {
	case c == '\'' || c == '"':
		return p.parseString(c)
	case c == '-' || unicode.IsDigit(rune(c)):
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseIdentOrCall()
	default:
		return nil, fmt.Errorf("unexpected character %q in expression %q", c, p.src)
	}
}

func (p *exprParser) parseString(quote byte) (exprNode, error) {
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case '\\':
			if p.pos+1 >= len(p.src) {
				return nil, fmt.Errorf("dangling escape in string literal")
			}
			p.pos++
			b.WriteByte(p.src[p.pos])
			p.pos++
		case quote:
			p.pos++
			return &literalNode{value: b.String()}, nil
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return nil, fmt.Errorf("unterminated string literal")
}

func (p *exprParser) parseNumber() (exprNode, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && (unicode.IsDigit(rune(p.src[p.pos])) || p.src[p.pos] == '.') {
		p.pos++
	}
	text := p.src[start:p.pos]

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &literalNode{value: i}, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number literal %q", text)
	}
	return &literalNode{value: f}, nil
}

func (p *exprParser) parseIdentOrCall() (exprNode, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	name := p.src[start:p.pos]

	switch name {
	case "true":
		return &literalNode{value: true}, nil
	case "false":
		return &literalNode{value: false}, nil
	case "null":
		return &literalNode{value: nil}, nil
	}

	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return nil, fmt.Errorf("bare identifier %q; only fetcher calls and literals are supported", name)
	}
	p.pos++

	call := &callNode{name: name}
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ')' {
		p.pos++
		return call, nil
	}

	for {
		arg, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)

		p.skipSpace()
		if p.pos >= len(p.src) {
			return nil, fmt.Errorf("unterminated call to %q", name)
		}
		switch p.src[p.pos] {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return call, nil
		default:
			return nil, fmt.Errorf("unexpected character %q in call to %q", p.src[p.pos], name)
		}
	}
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || unicode.IsLetter(rune(c))
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || unicode.IsDigit(rune(c))
}

// evaluate resolves the template against a lookup table. The result is the
// concatenation of all parts, except for a format string that is exactly
// one hole: there, a mapping or list result passes through unchanged so
// fetchers can inject structured values. Any hole evaluating to Undefined
// makes the whole template Undefined.
func (t *parsedTemplate) evaluate(lookup lookupFunc) (any, error) {
	if len(t.parts) == 1 && t.parts[0].expr != nil {
		v, err := evalNode(t.parts[0].expr, lookup)
		if err != nil {
			return nil, err
		}
		if IsUndefined(v) {
			return Undefined, nil
		}
		switch v.(type) {
		case map[string]any, []any:
			return v, nil
		}
		return stringify(v), nil
	}

	var b strings.Builder
	for _, part := range t.parts {
		if part.expr == nil {
			b.WriteString(part.text)
			continue
		}
		v, err := evalNode(part.expr, lookup)
		if err != nil {
			return nil, err
		}
		if IsUndefined(v) {
			return Undefined, nil
		}
		b.WriteString(stringify(v))
	}
	return b.String(), nil
}

func evalNode(node exprNode, lookup lookupFunc) (any, error) {
	switch n := node.(type) {
	case *literalNode:
		return n.value, nil
	case *concatNode:
		var b strings.Builder
		for _, part := range n.parts {
			v, err := evalNode(part, lookup)
			if err != nil {
				return nil, err
			}
			if IsUndefined(v) {
				return Undefined, nil
			}
			b.WriteString(stringify(v))
		}
		return b.String(), nil
	case *callNode:
		args, err := staticArgs(n)
		if err != nil {
			return nil, err
		}
		return lookup(n.name, args)
	default:
		return nil, fmt.Errorf("unknown expression node %T", node)
	}
}

// staticArgs evaluates a call's arguments. Arguments must be literals or
// concatenations of literals; a fetcher call inside another call's
// arguments has no stable identity across the two passes and is rejected.
func staticArgs(call *callNode) ([]any, error) {
	args := make([]any, 0, len(call.args))
	for _, argNode := range call.args {
		v, err := evalNode(argNode, func(name string, _ []any) (any, error) {
			return nil, fmt.Errorf("call to %q cannot appear in the arguments of %q", name, call.name)
		})
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

// stringify renders a resolved value into the surrounding format string.
// Scalars use their natural textual form; structured values are encoded as
// JSON.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}
