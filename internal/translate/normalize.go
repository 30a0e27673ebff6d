package translate

import (
	"encoding/json"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/querybridge/querybridge/internal/literal"
	"github.com/querybridge/querybridge/internal/shell"
)

// stageNames are the aggregation operators accepted without a $ prefix.
var stageNames = map[string]bool{
	"match":       true,
	"sort":        true,
	"limit":       true,
	"skip":        true,
	"project":     true,
	"group":       true,
	"unwind":      true,
	"lookup":      true,
	"count":       true,
	"facet":       true,
	"addFields":   true,
	"replaceRoot": true,
	"sample":      true,
}

// Parse turns request text into a canonical command without touching a
// store. Shell syntax is tried first, then structured text.
func Parse(text string, params []any, mode Mode) (*Command, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, newError(MalformedInput, "empty request")
	}

	var (
		cmd *Command
		err error
	)
	if inv, ok := shell.Parse(trimmed); ok {
		cmd, err = fromShell(inv)
	} else {
		v, derr := decode(trimmed)
		if derr != nil {
			return nil, newError(MalformedInput, "not shell syntax or structured text").wrap(derr).withInput(trimmed)
		}
		cmd, err = Normalize(v, params, mode)
	}
	if err != nil {
		var te *Error
		if errors.As(err, &te) && te.Kind == AmbiguousOrUnsupportedShape && te.Input == "" {
			te.withInput(trimmed)
		}
		return nil, err
	}
	return cmd, nil
}

// decode reads structured text. Strict JSON goes through the Extended JSON
// reader so {"$oid": ..} and friends keep their types; anything else gets
// the relaxed literal grammar.
func decode(text string) (any, error) {
	if json.Valid([]byte(text)) {
		var wrapper bson.D
		if err := bson.UnmarshalExtJSON([]byte(`{"v":`+text+`}`), false, &wrapper); err == nil && len(wrapper) == 1 {
			return wrapper[0].Value, nil
		}
	}
	return literal.ParseLenient(text)
}

func fromShell(inv *shell.Invocation) (*Command, error) {
	if inv.DatabaseLevel() {
		if len(inv.Args) == 0 {
			return nil, newError(MissingRequiredArgument, "%s requires a command document", inv.Method)
		}
		doc, err := commandDocument(inv.Args[0])
		if err != nil {
			return nil, err
		}
		return &Command{Raw: &RawCommand{Document: doc}}, nil
	}
	return &Command{Invocation: &Invocation{
		Collection: inv.Collection,
		Method:     inv.Method,
		Args:       inv.Args,
	}}, nil
}

// Normalize maps a decoded value onto one canonical command. Only the top
// level is inspected; stage bodies and filters pass through untouched.
//
// A document with a collection and any stage-name key (match, sort, limit,
// ...) is read as pipeline shorthand before the flat-filter rule. If such a
// document also carries keys that are not stage names, it is rejected as
// AmbiguousOrUnsupportedShape rather than having those keys dropped or
// turned into a filter; use the method or pipeline form to filter on a
// field named like a stage.
func Normalize(v any, params []any, mode Mode) (*Command, error) {
	switch val := v.(type) {
	case bson.A:
		return normalizeArray(val, params)
	case bson.D:
		return normalizeDocument(val, mode)
	default:
		return nil, newError(AmbiguousOrUnsupportedShape, "top-level value is %s, want a document or an array", describe(v))
	}
}

func normalizeArray(arr bson.A, params []any) (*Command, error) {
	collection := paramCollection(params)

	elems := make(bson.A, 0, len(arr))
	for i, el := range arr {
		doc, ok := el.(bson.D)
		if !ok {
			return nil, newError(AmbiguousOrUnsupportedShape, "pipeline element %d is %s, want a document", i, describe(el))
		}
		if i == 0 {
			if name, rest, found := take(doc, "collection"); found {
				s, err := collectionName(name)
				if err != nil {
					return nil, err
				}
				if collection == "" {
					collection = s
				}
				if len(rest) == 0 {
					continue
				}
				doc = rest
			}
		}
		elems = append(elems, doc)
	}
	stages, err := pipelineStages(elems)
	if err != nil {
		return nil, err
	}
	if collection == "" {
		return nil, newError(MissingCollection, "pipeline has no collection; pass it as the first parameter")
	}
	return &Command{Pipeline: &Pipeline{Collection: collection, Stages: stages}}, nil
}

func normalizeDocument(doc bson.D, mode Mode) (*Command, error) {
	if len(doc) == 0 {
		return nil, newError(AmbiguousOrUnsupportedShape, "empty document")
	}

	if v, ok := lookup(doc, "runCommand"); ok {
		body, err := commandDocument(v)
		if err != nil {
			return nil, err
		}
		return &Command{Raw: &RawCommand{Document: body}}, nil
	}

	rawName, hasCollection := lookup(doc, "collection")
	if !hasCollection {
		return &Command{Raw: &RawCommand{Document: doc}}, nil
	}
	collection, err := collectionName(rawName)
	if err != nil {
		return nil, err
	}

	if v, ok := lookup(doc, "pipeline"); ok {
		arr, ok := v.(bson.A)
		if !ok {
			return nil, newError(AmbiguousOrUnsupportedShape, "pipeline is %s, want an array", describe(v))
		}
		stages, err := pipelineStages(arr)
		if err != nil {
			return nil, err
		}
		return &Command{Pipeline: &Pipeline{Collection: collection, Stages: stages}}, nil
	}

	if v, ok := lookup(doc, "method"); ok {
		method, ok := v.(string)
		if !ok || method == "" {
			return nil, newError(AmbiguousOrUnsupportedShape, "method is %s, want a name", describe(v))
		}
		args := []any{}
		if a, ok := lookup(doc, "args"); ok {
			arr, ok := a.(bson.A)
			if !ok {
				return nil, newError(AmbiguousOrUnsupportedShape, "args is %s, want an array", describe(a))
			}
			args = append(args, arr...)
		}
		return &Command{Invocation: &Invocation{Collection: collection, Method: method, Args: args}}, nil
	}

	if mode == ModeWrite {
		if _, ok := lookup(doc, "operation"); ok {
			inv, err := writeShape(doc)
			if err != nil {
				return nil, err
			}
			inv.Collection = collection
			return &Command{Invocation: inv}, nil
		}
	}

	if hasStageKey(doc) {
		return shorthandPipeline(doc, collection)
	}

	filter := bson.D{}
	for _, e := range doc {
		if e.Key != "collection" {
			filter = append(filter, e)
		}
	}
	return &Command{Invocation: &Invocation{Collection: collection, Method: "find", Args: []any{filter}}}, nil
}

// shorthandPipeline turns {collection, match: .., sort: ..} into stages in
// key order. Keys that are not stage names make the shape ambiguous.
func shorthandPipeline(doc bson.D, collection string) (*Command, error) {
	stages := make([]bson.D, 0, len(doc))
	for _, e := range doc {
		if e.Key == "collection" {
			continue
		}
		name := strings.TrimPrefix(e.Key, "$")
		if !stageNames[name] {
			return nil, newError(AmbiguousOrUnsupportedShape, "key %q mixes filter fields with pipeline stages", e.Key)
		}
		stages = append(stages, bson.D{{Key: "$" + name, Value: e.Value}})
	}
	return &Command{Pipeline: &Pipeline{Collection: collection, Stages: stages}}, nil
}

func hasStageKey(doc bson.D) bool {
	for _, e := range doc {
		if stageNames[strings.TrimPrefix(e.Key, "$")] {
			return true
		}
	}
	return false
}

// pipelineStages checks that every element is a single-key stage document.
// Known stage names get their $ prefix; other $ operators pass through.
func pipelineStages(arr bson.A) ([]bson.D, error) {
	stages := make([]bson.D, 0, len(arr))
	for i, el := range arr {
		doc, ok := el.(bson.D)
		if !ok {
			return nil, newError(AmbiguousOrUnsupportedShape, "stage %d is %s, want a document", i, describe(el))
		}
		if len(doc) != 1 {
			return nil, newError(AmbiguousOrUnsupportedShape, "stage %d has %d keys, want exactly one operator", i, len(doc))
		}
		key := doc[0].Key
		switch {
		case strings.HasPrefix(key, "$"):
		case stageNames[key]:
			key = "$" + key
		default:
			return nil, newError(AmbiguousOrUnsupportedShape, "stage %d uses unknown operator %q", i, key)
		}
		stages = append(stages, bson.D{{Key: key, Value: doc[0].Value}})
	}
	return stages, nil
}

func commandDocument(v any) (bson.D, error) {
	switch c := v.(type) {
	case bson.D:
		if len(c) == 0 {
			return nil, newError(AmbiguousOrUnsupportedShape, "empty command document")
		}
		return c, nil
	case string:
		if c == "" {
			return nil, newError(MissingRequiredArgument, "empty command name")
		}
		return bson.D{{Key: c, Value: int32(1)}}, nil
	default:
		return nil, newError(AmbiguousOrUnsupportedShape, "runCommand body is %s, want a document", describe(v))
	}
}

func collectionName(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", newError(AmbiguousOrUnsupportedShape, "collection is %s, want a name", describe(v))
	}
	if s == "" {
		return "", newError(MissingCollection, "collection name is empty")
	}
	return s, nil
}

func paramCollection(params []any) string {
	if len(params) == 0 {
		return ""
	}
	s, _ := params[0].(string)
	return s
}

func lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// take returns the value of key and doc without it.
func take(doc bson.D, key string) (any, bson.D, bool) {
	for i, e := range doc {
		if e.Key == key {
			rest := make(bson.D, 0, len(doc)-1)
			rest = append(rest, doc[:i]...)
			rest = append(rest, doc[i+1:]...)
			return e.Value, rest, true
		}
	}
	return nil, doc, false
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bson.D:
		return "a document"
	case bson.A:
		return "an array"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case int32, int64, float64:
		return "a number"
	default:
		return "an unsupported value"
	}
}
