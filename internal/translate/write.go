package translate

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// writeShape reads the operation of a {collection, operation} request.
// operation is either a method name with its parts as sibling keys, or a
// single-key write model such as {"updateOne": {"filter": .., "update": ..}}.
func writeShape(doc bson.D) (*Invocation, error) {
	op, _ := lookup(doc, "operation")
	switch o := op.(type) {
	case string:
		return writeModel(o, doc)
	case bson.D:
		if len(o) != 1 {
			return nil, newError(AmbiguousOrUnsupportedShape, "operation has %d keys, want exactly one write model", len(o))
		}
		body, ok := o[0].Value.(bson.D)
		if !ok {
			return nil, newError(AmbiguousOrUnsupportedShape, "%s body is %s, want a document", o[0].Key, describe(o[0].Value))
		}
		return writeModel(o[0].Key, body)
	default:
		return nil, newError(AmbiguousOrUnsupportedShape, "operation is %s, want a name or a write model", describe(op))
	}
}

func writeModel(method string, body bson.D) (*Invocation, error) {
	inv := &Invocation{Method: method}
	switch method {
	case "insertOne":
		d, err := required(body, method, "document")
		if err != nil {
			return nil, err
		}
		inv.Args = []any{d}
	case "insertMany":
		d, err := required(body, method, "documents")
		if err != nil {
			return nil, err
		}
		inv.Args = []any{d}
	case "updateOne", "updateMany", "replaceOne":
		second := "update"
		if method == "replaceOne" {
			second = "replacement"
		}
		f, err := required(body, method, "filter")
		if err != nil {
			return nil, err
		}
		u, err := required(body, method, second)
		if err != nil {
			return nil, err
		}
		inv.Args = []any{f, u}
		if opts := modelOptions(body); len(opts) > 0 {
			inv.Args = append(inv.Args, opts)
		}
	case "deleteOne", "deleteMany":
		f, err := required(body, method, "filter")
		if err != nil {
			return nil, err
		}
		inv.Args = []any{f}
	default:
		return nil, newError(AmbiguousOrUnsupportedShape, "unknown write operation %q", method)
	}
	return inv, nil
}

func required(body bson.D, method, key string) (any, error) {
	v, ok := lookup(body, key)
	if !ok || v == nil {
		return nil, newError(MissingRequiredArgument, "%s requires %q", method, key)
	}
	return v, nil
}

// modelOptions gathers update options given inline or under "options".
func modelOptions(body bson.D) bson.D {
	opts := bson.D{}
	if o, ok := lookup(body, "options"); ok {
		if d, ok := o.(bson.D); ok {
			opts = append(opts, d...)
		}
	}
	for _, key := range []string{"upsert", "arrayFilters", "hint"} {
		if v, ok := lookup(body, key); ok {
			opts = append(opts, bson.E{Key: key, Value: v})
		}
	}
	return opts
}
