// Package literal splits and coerces the argument text of console-style
// method calls into structured values.
//
// Values are represented with the driver's own types so they can be handed
// to the store unchanged: objects become bson.D (key order preserved), arrays
// become bson.A, integers become int32 or int64, decimals become float64.
package literal

import (
	"regexp"
	"strconv"
	"strings"
)

// Split returns the top-level comma separated segments of s. Commas nested
// inside braces, brackets, parentheses or quoted strings do not separate.
// Blank input yields an empty slice, and a single trailing comma is ignored.
func Split(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}

	var (
		parts []string
		sc    scanner
		start int
	)
	for i := 0; i < len(s); i++ {
		if sc.step(s, i) && s[i] == ',' && sc.depth == 0 {
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	last := strings.TrimSpace(s[start:])
	if last != "" || len(parts) == 0 {
		parts = append(parts, last)
	}
	return parts
}

// Balanced expects s to begin just after an opening parenthesis. It returns
// the text up to the matching closing parenthesis and everything after it.
// ok is false when the parenthesis is never closed.
func Balanced(s string) (inner, rest string, ok bool) {
	var sc scanner
	sc.depth = 1
	for i := 0; i < len(s); i++ {
		if !sc.step(s, i) {
			continue
		}
		if s[i] == ')' && sc.depth == 0 {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// scanner tracks nesting depth and quote state over a byte stream.
type scanner struct {
	depth   int
	quote   byte
	escaped bool
}

// step consumes s[i] and reports whether it was structural, i.e. outside any
// quoted string. Closers lower the depth before step returns.
func (sc *scanner) step(s string, i int) bool {
	c := s[i]
	if sc.quote != 0 {
		switch {
		case sc.escaped:
			sc.escaped = false
		case c == '\\':
			sc.escaped = true
		case c == sc.quote:
			sc.quote = 0
		}
		return false
	}
	switch c {
	case '"', '\'', '`':
		sc.quote = c
		return false
	case '{', '[', '(':
		sc.depth++
	case '}', ']', ')':
		sc.depth--
	}
	return true
}

// ParseArgs splits s and coerces every segment. It never fails: segments
// that are not literals are kept as raw strings.
func ParseArgs(s string) []any {
	parts := Split(s)
	args := make([]any, 0, len(parts))
	for _, part := range parts {
		args = append(args, Coerce(part))
	}
	return args
}

// Coerce converts one argument segment into a value. It tries a direct
// parse, then retries after rewriting identifier constructors such as
// ObjectId('...') into plain strings, and finally returns s itself.
func Coerce(s string) any {
	s = strings.TrimSpace(s)
	if v, err := ParseLenient(s); err == nil {
		return v
	}
	return s
}

// ParseLenient is Parse with the constructor rewrite applied on failure.
func ParseLenient(s string) (any, error) {
	v, err := Parse(s)
	if err == nil {
		return v, nil
	}
	if rewritten, ok := RewriteConstructors(s); ok {
		if v, rerr := Parse(rewritten); rerr == nil {
			return v, nil
		}
	}
	return nil, err
}

var constructorRe = regexp.MustCompile(`(?:new\s+)?(?:ObjectId|ObjectID|ISODate|UUID)\(\s*(?:"([^"]*)"|'([^']*)')\s*\)`)

// RewriteConstructors replaces every ObjectId("x"), ISODate('x') or UUID("x")
// call in s with the quoted string "x". ok reports whether anything changed.
func RewriteConstructors(s string) (string, bool) {
	if !constructorRe.MatchString(s) {
		return s, false
	}
	out := constructorRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := constructorRe.FindStringSubmatch(m)
		val := sub[1]
		if val == "" {
			val = sub[2]
		}
		return strconv.Quote(val)
	})
	return out, true
}
