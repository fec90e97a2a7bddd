package cleaning

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Sentinel errors for literal parsing.
var (
	// ErrNotAnObject is returned when a literal parses but is not a mapping.
	ErrNotAnObject = errors.New("literal is not an object")

	// ErrBadLiteral is returned for literals that cannot be parsed at all.
	ErrBadLiteral = errors.New("malformed literal expression")
)

// ParseLiteralObject parses a permissive literal expression into a mapping.
//
// Some producers stringify nested objects with repr-style syntax instead of
// JSON: single-quoted strings, True/False/None constants, trailing commas.
// This parser accepts that dialect (a superset of JSON for the value shapes
// events actually carry) and rejects anything that is not a mapping at the
// top level.
func ParseLiteralObject(input string) (map[string]any, error) {
	p := &literalParser{input: input}

	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	p.skipSpace()

	if p.pos != len(p.input) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", ErrBadLiteral, p.pos)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}

	return obj, nil
}

type literalParser struct {
	input string
	pos   int
}

func (p *literalParser) parseValue() (any, error) {
	p.skipSpace()

	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrBadLiteral)
	}

	switch c := p.input[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '-' || c == '+' || unicode.IsDigit(rune(c)):
		return p.parseNumber()
	default:
		return p.parseConstant()
	}
}

func (p *literalParser) parseObject() (map[string]any, error) {
	p.pos++ // consume '{'
	obj := make(map[string]any)

	p.skipSpace()

	if p.pos < len(p.input) && p.input[p.pos] == '}' {
		p.pos++

		return obj, nil
	}

	for {
		p.skipSpace()

		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("%w: unterminated object", ErrBadLiteral)
		}

		// Trailing comma before the closing brace is accepted.
		if p.input[p.pos] == '}' {
			p.pos++

			return obj, nil
		}

		key, err := p.parseString()
		if err != nil {
			return nil, err
		}

		p.skipSpace()

		if p.pos >= len(p.input) || p.input[p.pos] != ':' {
			return nil, fmt.Errorf("%w: expected ':' after key %q", ErrBadLiteral, key)
		}

		p.pos++

		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		obj[key] = value

		p.skipSpace()

		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("%w: unterminated object", ErrBadLiteral)
		}

		switch p.input[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++

			return obj, nil
		default:
			return nil, fmt.Errorf("%w: expected ',' or '}' at offset %d", ErrBadLiteral, p.pos)
		}
	}
}

func (p *literalParser) parseArray() ([]any, error) {
	p.pos++ // consume '['

	var arr []any

	p.skipSpace()

	if p.pos < len(p.input) && p.input[p.pos] == ']' {
		p.pos++

		return []any{}, nil
	}

	for {
		p.skipSpace()

		if p.pos < len(p.input) && p.input[p.pos] == ']' {
			p.pos++

			return arr, nil
		}

		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		arr = append(arr, value)

		p.skipSpace()

		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("%w: unterminated array", ErrBadLiteral)
		}

		switch p.input[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++

			return arr, nil
		default:
			return nil, fmt.Errorf("%w: expected ',' or ']' at offset %d", ErrBadLiteral, p.pos)
		}
	}
}

func (p *literalParser) parseString() (string, error) {
	if p.pos >= len(p.input) {
		return "", fmt.Errorf("%w: expected string", ErrBadLiteral)
	}

	quote := p.input[p.pos]
	if quote != '\'' && quote != '"' {
		return "", fmt.Errorf("%w: expected quote at offset %d", ErrBadLiteral, p.pos)
	}

	p.pos++

	var b strings.Builder

	for p.pos < len(p.input) {
		c := p.input[p.pos]

		switch c {
		case quote:
			p.pos++

			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.input) {
				return "", fmt.Errorf("%w: dangling escape", ErrBadLiteral)
			}

			switch esc := p.input[p.pos]; esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			default:
				// Covers \\, \', \" and anything repr passed through verbatim.
				b.WriteByte(esc)
			}

			p.pos++
		default:
			b.WriteByte(c)
			p.pos++
		}
	}

	return "", fmt.Errorf("%w: unterminated string", ErrBadLiteral)
}

func (p *literalParser) parseNumber() (any, error) {
	start := p.pos

	if p.input[p.pos] == '-' || p.input[p.pos] == '+' {
		p.pos++
	}

	isFloat := false

	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if unicode.IsDigit(rune(c)) {
			p.pos++

			continue
		}

		if c == '.' || c == 'e' || c == 'E' || c == '-' || c == '+' {
			isFloat = true
			p.pos++

			continue
		}

		break
	}

	text := p.input[start:p.pos]

	if !isFloat {
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return float64(n), nil // match encoding/json: numbers decode as float64
		}
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %q", ErrBadLiteral, text)
	}

	return f, nil
}

func (p *literalParser) parseConstant() (any, error) {
	rest := p.input[p.pos:]

	constants := []struct {
		text  string
		value any
	}{
		{"True", true},
		{"False", false},
		{"None", nil},
		{"true", true},
		{"false", false},
		{"null", nil},
	}

	for _, c := range constants {
		if strings.HasPrefix(rest, c.text) {
			p.pos += len(c.text)

			return c.value, nil
		}
	}

	return nil, fmt.Errorf("%w: unexpected token at offset %d", ErrBadLiteral, p.pos)
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}
