package literal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// SyntaxError describes where a literal stopped making sense.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("literal: %s at offset %d", e.Msg, e.Offset)
}

// Parse reads exactly one relaxed literal from s: JSON plus unquoted keys,
// single quoted strings, trailing commas and the undefined keyword.
func Parse(s string) (any, error) {
	p := &parser{src: s}
	p.skipSpace()
	if p.eof() {
		return nil, p.errorf("empty input")
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) value() (any, error) {
	switch c := p.peek(); {
	case c == '{':
		return p.object()
	case c == '[':
		return p.array()
	case c == '"' || c == '\'':
		return p.str()
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		word := p.ident()
		switch word {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null", "undefined":
			return nil, nil
		}
		p.pos -= len(word)
		return nil, p.errorf("unexpected identifier %q", word)
	default:
		return nil, p.errorf("unexpected %q", c)
	}
}

func (p *parser) object() (any, error) {
	p.pos++ // {
	doc := bson.D{}
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return doc, nil
		}
		key, err := p.key()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() != ':' {
			return nil, p.errorf("expected ':' after key %q", key)
		}
		p.pos++
		p.skipSpace()
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: key, Value: val})

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return doc, nil
		default:
			return nil, p.errorf("expected ',' or '}' in object")
		}
	}
}

func (p *parser) key() (string, error) {
	c := p.peek()
	if c == '"' || c == '\'' {
		return p.str()
	}
	start := p.pos
	for !p.eof() && isKeyChar(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return "", p.errorf("expected object key")
	}
	return p.src[start:p.pos], nil
}

func (p *parser) array() (any, error) {
	p.pos++ // [
	arr := bson.A{}
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			return arr, nil
		}
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			return arr, nil
		default:
			return nil, p.errorf("expected ',' or ']' in array")
		}
	}
}

func (p *parser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			p.pos++
			if p.eof() {
				return "", p.errorf("unterminated escape")
			}
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *parser) escape(b *strings.Builder) error {
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'u':
		if p.pos+4 > len(p.src) {
			return p.errorf("short unicode escape")
		}
		n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
		if err != nil {
			return p.errorf("bad unicode escape")
		}
		b.WriteRune(rune(n))
		p.pos += 4
	default:
		// \" \' \\ \/ and anything else stand for themselves
		b.WriteByte(c)
	}
	return nil
}

func (p *parser) number() (any, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	float := false
	for !p.eof() {
		c := p.src[p.pos]
		switch {
		case isDigit(c):
		case c == '.' || c == 'e' || c == 'E':
			float = true
		case (c == '-' || c == '+') && float:
			prev := p.src[p.pos-1]
			if prev != 'e' && prev != 'E' {
				return p.finishNumber(start, float)
			}
		default:
			return p.finishNumber(start, float)
		}
		p.pos++
	}
	return p.finishNumber(start, float)
}

func (p *parser) finishNumber(start int, float bool) (any, error) {
	text := strings.TrimPrefix(p.src[start:p.pos], "+")
	if !float {
		n, err := strconv.ParseInt(text, 10, 64)
		if err == nil {
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return int32(n), nil
			}
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.pos = start
		return nil, p.errorf("invalid number %q", text)
	}
	return f, nil
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() && isKeyChar(p.src[p.pos]) && p.src[p.pos] != '.' {
		p.pos++
	}
	return p.src[start:p.pos]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// isKeyChar admits dotted paths and operator names as bare keys.
func isKeyChar(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.' || c == '-'
}
