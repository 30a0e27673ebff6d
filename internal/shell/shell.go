// Package shell recognizes console-style method chains such as
// db.users.find({age: {$gt: 21}}).sort({name: 1}).limit(10).
//
// The grammar is deliberately narrow: a handle, an optional collection, one
// method call and a run of chained cursor modifiers. Anything else is
// reported as "not shell syntax" so the caller can fall back to structured
// parsing.
package shell

import (
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/querybridge/querybridge/internal/literal"
)

// Invocation is one parsed method chain.
type Invocation struct {
	Handle     string
	Collection string // empty for database-level calls
	Method     string
	Args       []any
	Modifiers  []Modifier
}

// Modifier is a chained cursor call and its unparsed argument text.
type Modifier struct {
	Name string
	Args string
}

// DatabaseLevel reports whether the call targets the database rather than
// a collection, e.g. db.runCommand({ping: 1}).
func (inv *Invocation) DatabaseLevel() bool {
	return inv.Collection == ""
}

const ident = `[A-Za-z_$][\w$]*`

var (
	namedCollectionRe  = regexp.MustCompile(`^\s*(` + ident + `)\s*\.\s*getCollection\(\s*(?:"([^"]+)"|'([^']+)')\s*\)\s*\.\s*(` + ident + `)\s*\(`)
	dottedCollectionRe = regexp.MustCompile(`^\s*(` + ident + `)\s*\.\s*(` + ident + `)\s*\.\s*(` + ident + `)\s*\(`)
	databaseCallRe     = regexp.MustCompile(`^\s*(` + ident + `)\s*\.\s*(runCommand|adminCommand)\s*\(`)
	chainRe            = regexp.MustCompile(`^\s*\.\s*(` + ident + `)\s*\(`)
	fieldNameRe        = regexp.MustCompile(`^[A-Za-z_$][\w$.]*$`)
)

// cursorModifiers are the chained calls folded into a find. Others are
// skipped over without effect.
var cursorModifiers = map[string]bool{
	"sort":    true,
	"limit":   true,
	"skip":    true,
	"project": true,
	"count":   true,
}

// Parse returns the invocation described by text, or ok=false when text is
// not a method chain this package understands.
func Parse(text string) (inv *Invocation, ok bool) {
	inv, rest, ok := matchHead(text)
	if !ok {
		return nil, false
	}

	argText, rest, ok := literal.Balanced(rest)
	if !ok {
		return nil, false
	}
	inv.Args = literal.ParseArgs(argText)
	mods, rest := scanModifiers(rest)
	if strings.TrimSpace(strings.TrimRight(strings.TrimSpace(rest), ";")) != "" {
		return nil, false
	}
	inv.Modifiers = mods

	if inv.Method == "find" {
		foldFind(inv)
	}
	return inv, true
}

func matchHead(text string) (*Invocation, string, bool) {
	if m := namedCollectionRe.FindStringSubmatchIndex(text); m != nil {
		name := submatch(text, m, 2)
		if name == "" {
			name = submatch(text, m, 3)
		}
		return &Invocation{
			Handle:     submatch(text, m, 1),
			Collection: name,
			Method:     submatch(text, m, 4),
		}, text[m[1]:], true
	}
	if m := dottedCollectionRe.FindStringSubmatchIndex(text); m != nil {
		return &Invocation{
			Handle:     submatch(text, m, 1),
			Collection: submatch(text, m, 2),
			Method:     submatch(text, m, 3),
		}, text[m[1]:], true
	}
	if m := databaseCallRe.FindStringSubmatchIndex(text); m != nil {
		return &Invocation{
			Handle: submatch(text, m, 1),
			Method: submatch(text, m, 2),
		}, text[m[1]:], true
	}
	return nil, "", false
}

func submatch(s string, loc []int, n int) string {
	if loc[2*n] < 0 {
		return ""
	}
	return s[loc[2*n]:loc[2*n+1]]
}

// scanModifiers walks the text after the primary call. It stops at the
// first thing that is not a chained call and returns what is left, which
// Parse accepts only when blank or a closing semicolon.
func scanModifiers(rest string) ([]Modifier, string) {
	var mods []Modifier
	for {
		m := chainRe.FindStringSubmatchIndex(rest)
		if m == nil {
			return mods, rest
		}
		name := submatch(rest, m, 1)
		args, after, ok := literal.Balanced(rest[m[1]:])
		if !ok {
			return mods, rest
		}
		if cursorModifiers[name] {
			mods = append(mods, Modifier{Name: name, Args: strings.TrimSpace(args)})
		}
		rest = after
	}
}

// foldFind rewrites a find so that Args is always [filter, options], with
// chained modifiers merged into options. A chained count() turns the call
// into countDocuments(filter).
func foldFind(inv *Invocation) {
	var filter any = bson.D{}
	if len(inv.Args) > 0 && inv.Args[0] != nil {
		filter = inv.Args[0]
	}

	opts := bson.D{}
	if len(inv.Args) > 1 {
		opts = AsFindOptions(inv.Args[1])
	}
	if len(inv.Args) > 2 {
		if extra, ok := inv.Args[2].(bson.D); ok {
			for _, e := range extra {
				opts = SetOption(opts, e.Key, e.Value)
			}
		}
	}

	counted := false
	for _, mod := range inv.Modifiers {
		switch mod.Name {
		case "sort":
			if v, ok := sortSpec(mod.Args); ok {
				opts = SetOption(opts, "sort", v)
			}
		case "limit", "skip":
			if n, err := strconv.ParseInt(mod.Args, 10, 64); err == nil {
				opts = SetOption(opts, mod.Name, n)
			}
		case "project":
			if v, ok := document(mod.Args); ok {
				opts = SetOption(opts, "projection", v)
			}
		case "count":
			counted = true
		}
	}

	if counted {
		inv.Method = "countDocuments"
		inv.Args = []any{filter}
		return
	}
	inv.Args = []any{filter, opts}
}

// findOptionKeys are the keys that mark a find's second argument as an
// options document rather than a projection.
var findOptionKeys = map[string]bool{
	"sort":                true,
	"limit":               true,
	"skip":                true,
	"projection":          true,
	"hint":                true,
	"collation":           true,
	"batchSize":           true,
	"comment":             true,
	"maxTimeMS":           true,
	"allowDiskUse":        true,
	"min":                 true,
	"max":                 true,
	"returnKey":           true,
	"showRecordId":        true,
	"let":                 true,
	"noCursorTimeout":     true,
	"allowPartialResults": true,
}

// AsFindOptions interprets the second argument of a find. A document that
// names at least one option key is returned as is; any other document is a
// projection, as in the console. Non-documents yield empty options.
func AsFindOptions(v any) bson.D {
	doc, ok := v.(bson.D)
	if !ok {
		return bson.D{}
	}
	for _, e := range doc {
		if findOptionKeys[e.Key] {
			return doc
		}
	}
	if len(doc) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "projection", Value: doc}}
}

// SetOption replaces key in place when present, otherwise appends it.
func SetOption(opts bson.D, key string, value any) bson.D {
	for i := range opts {
		if opts[i].Key == key {
			opts[i].Value = value
			return opts
		}
	}
	return append(opts, bson.E{Key: key, Value: value})
}

// sortSpec accepts {a: 1}, the brace-less form a: 1, b: -1 and a bare
// field name.
func sortSpec(arg string) (any, bool) {
	if v, ok := document(arg); ok {
		return v, true
	}
	if v, err := literal.Parse(arg); err == nil {
		if s, ok := v.(string); ok && fieldNameRe.MatchString(s) {
			return bson.D{{Key: s, Value: int32(1)}}, true
		}
		return nil, false
	}
	if fieldNameRe.MatchString(arg) {
		return bson.D{{Key: arg, Value: int32(1)}}, true
	}
	return nil, false
}

func document(arg string) (bson.D, bool) {
	if arg == "" {
		return nil, false
	}
	if v, err := literal.ParseLenient(arg); err == nil {
		doc, ok := v.(bson.D)
		return doc, ok
	}
	if v, err := literal.ParseLenient("{" + arg + "}"); err == nil {
		doc, ok := v.(bson.D)
		return doc, ok
	}
	return nil, false
}
