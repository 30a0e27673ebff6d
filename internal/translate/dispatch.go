package translate

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/querybridge/querybridge/internal/shell"
)

type readOperation func(ctx context.Context, coll Collection, args []any) (*Result, error)

type writeOperation func(ctx context.Context, coll Collection, args []any) (*WriteSummary, error)

var readOperations = map[string]readOperation{
	"find":           readFind,
	"findOne":        readFindOne,
	"aggregate":      readAggregate,
	"count":          readCount,
	"countDocuments": readCount,
	"distinct":       readDistinct,
}

var writeOperations = map[string]writeOperation{
	"insertOne":  writeInsertOne,
	"insertMany": writeInsertMany,
	"updateOne":  writeUpdate(Collection.UpdateOne, "updateOne"),
	"updateMany": writeUpdate(Collection.UpdateMany, "updateMany"),
	"replaceOne": writeUpdate(Collection.ReplaceOne, "replaceOne"),
	"deleteOne":  writeDelete(Collection.DeleteOne, "deleteOne"),
	"deleteMany": writeDelete(Collection.DeleteMany, "deleteMany"),
}

// DispatchRead performs the single store operation cmd describes and
// returns what the store produced.
func DispatchRead(ctx context.Context, db Database, cmd *Command) (*Result, error) {
	switch {
	case cmd.Raw != nil:
		doc, err := db.RunCommand(ctx, cmd.Raw.Document)
		if err != nil {
			return nil, storeError("runCommand", err)
		}
		return &Result{Kind: ResultDocument, Document: doc}, nil

	case cmd.Pipeline != nil:
		coll, err := resolve(db, cmd.Pipeline.Collection)
		if err != nil {
			return nil, err
		}
		docs, err := coll.Aggregate(ctx, cmd.Pipeline.Stages)
		if err != nil {
			return nil, storeError("aggregate", err)
		}
		return &Result{Kind: ResultDocuments, Documents: docs}, nil

	case cmd.Invocation != nil:
		inv := cmd.Invocation
		op, ok := readOperations[inv.Method]
		if !ok {
			doc, err := generic(ctx, db, inv)
			if err != nil {
				return nil, err
			}
			return &Result{Kind: ResultDocument, Document: doc}, nil
		}
		coll, err := resolve(db, inv.Collection)
		if err != nil {
			return nil, err
		}
		return op(ctx, coll, inv.Args)

	default:
		return nil, newError(AmbiguousOrUnsupportedShape, "empty command")
	}
}

// DispatchWrite performs the single store operation cmd describes. The
// summary is nil for raw commands and pipelines.
func DispatchWrite(ctx context.Context, db Database, cmd *Command) (*WriteSummary, error) {
	switch {
	case cmd.Raw != nil:
		if _, err := db.RunCommand(ctx, cmd.Raw.Document); err != nil {
			return nil, storeError("runCommand", err)
		}
		return nil, nil

	case cmd.Pipeline != nil:
		// $out and $merge pipelines write; their output is drained.
		coll, err := resolve(db, cmd.Pipeline.Collection)
		if err != nil {
			return nil, err
		}
		if _, err := coll.Aggregate(ctx, cmd.Pipeline.Stages); err != nil {
			return nil, storeError("aggregate", err)
		}
		return nil, nil

	case cmd.Invocation != nil:
		inv := cmd.Invocation
		op, ok := writeOperations[inv.Method]
		if !ok {
			if _, err := generic(ctx, db, inv); err != nil {
				return nil, err
			}
			return nil, nil
		}
		coll, err := resolve(db, inv.Collection)
		if err != nil {
			return nil, err
		}
		return op(ctx, coll, inv.Args)

	default:
		return nil, newError(AmbiguousOrUnsupportedShape, "empty command")
	}
}

func resolve(db Database, name string) (Collection, error) {
	if name == "" {
		return nil, newError(MissingCollection, "no collection named")
	}
	coll, err := db.Collection(name)
	if err != nil {
		return nil, newError(MissingCollection, "unknown or unavailable collection %q", name).wrap(err)
	}
	return coll, nil
}

// readShaped methods keep their query structure when they fall back to the
// generic command path. find and count have read primitives, so only the
// write path gets here with them.
var readShaped = map[string]string{
	"find":  "filter",
	"count": "query",
}

// generic submits inv as a command document keyed by its method name.
func generic(ctx context.Context, db Database, inv *Invocation) (bson.Raw, error) {
	doc, err := db.RunCommand(ctx, genericCommand(inv))
	if err != nil {
		return nil, newError(UnsupportedMethod, "method %q has no primitive and the generic command failed", inv.Method).wrap(err)
	}
	return doc, nil
}

func genericCommand(inv *Invocation) bson.D {
	cmd := bson.D{{Key: inv.Method, Value: inv.Collection}}

	filterKey, shaped := readShaped[inv.Method]
	if !shaped {
		for i, a := range inv.Args {
			cmd = append(cmd, bson.E{Key: fmt.Sprintf("arg%d", i), Value: a})
		}
		return cmd
	}

	if filter := arg(inv.Args, 0); filter != nil {
		cmd = append(cmd, bson.E{Key: filterKey, Value: filter})
	}
	opts := shell.AsFindOptions(arg(inv.Args, 1))
	for _, key := range []string{"projection", "limit", "skip", "sort"} {
		if v, ok := lookup(opts, key); ok {
			cmd = append(cmd, bson.E{Key: key, Value: v})
		}
	}
	return cmd
}

func readFind(ctx context.Context, coll Collection, args []any) (*Result, error) {
	docs, err := coll.Find(ctx, filterArg(args, 0), findOptions(args))
	if err != nil {
		return nil, storeError("find", err)
	}
	return &Result{Kind: ResultDocuments, Documents: docs}, nil
}

func readFindOne(ctx context.Context, coll Collection, args []any) (*Result, error) {
	doc, err := coll.FindOne(ctx, filterArg(args, 0), findOptions(args))
	if err != nil {
		return nil, storeError("findOne", err)
	}
	return &Result{Kind: ResultDocument, Document: doc}, nil
}

func readAggregate(ctx context.Context, coll Collection, args []any) (*Result, error) {
	stages, err := aggregateStages(args)
	if err != nil {
		return nil, err
	}
	docs, err := coll.Aggregate(ctx, stages)
	if err != nil {
		return nil, storeError("aggregate", err)
	}
	return &Result{Kind: ResultDocuments, Documents: docs}, nil
}

func readCount(ctx context.Context, coll Collection, args []any) (*Result, error) {
	n, err := coll.CountDocuments(ctx, filterArg(args, 0))
	if err != nil {
		return nil, storeError("countDocuments", err)
	}
	return &Result{Kind: ResultCount, Count: n}, nil
}

func readDistinct(ctx context.Context, coll Collection, args []any) (*Result, error) {
	field, ok := arg(args, 0).(string)
	if !ok || field == "" {
		return nil, newError(MissingRequiredArgument, "distinct requires a field name")
	}
	values, err := coll.Distinct(ctx, field, filterArg(args, 1))
	if err != nil {
		return nil, storeError("distinct", err)
	}
	return &Result{Kind: ResultValues, Values: values}, nil
}

func writeInsertOne(ctx context.Context, coll Collection, args []any) (*WriteSummary, error) {
	doc := arg(args, 0)
	if doc == nil {
		return nil, newError(MissingRequiredArgument, "insertOne requires a document")
	}
	sum, err := coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, storeError("insertOne", err)
	}
	return sum, nil
}

func writeInsertMany(ctx context.Context, coll Collection, args []any) (*WriteSummary, error) {
	docs, ok := arg(args, 0).(bson.A)
	if !ok || len(docs) == 0 {
		return nil, newError(MissingRequiredArgument, "insertMany requires a non-empty array of documents")
	}
	sum, err := coll.InsertMany(ctx, []any(docs))
	if err != nil {
		return nil, storeError("insertMany", err)
	}
	return sum, nil
}

type updateFunc func(Collection, context.Context, any, any, UpdateOptions) (*WriteSummary, error)

func writeUpdate(call updateFunc, name string) writeOperation {
	return func(ctx context.Context, coll Collection, args []any) (*WriteSummary, error) {
		if len(args) < 2 || args[0] == nil || args[1] == nil {
			return nil, newError(MissingRequiredArgument, "%s requires a filter and a second document", name)
		}
		sum, err := call(coll, ctx, args[0], args[1], updateOptions(arg(args, 2)))
		if err != nil {
			return nil, storeError(name, err)
		}
		return sum, nil
	}
}

type deleteFunc func(Collection, context.Context, any) (*WriteSummary, error)

func writeDelete(call deleteFunc, name string) writeOperation {
	return func(ctx context.Context, coll Collection, args []any) (*WriteSummary, error) {
		filter := arg(args, 0)
		if filter == nil {
			return nil, newError(MissingRequiredArgument, "%s requires a filter", name)
		}
		sum, err := call(coll, ctx, filter)
		if err != nil {
			return nil, storeError(name, err)
		}
		return sum, nil
	}
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func filterArg(args []any, i int) any {
	if f := arg(args, i); f != nil {
		return f
	}
	return bson.D{}
}

// findOptions reads the options of a find or findOne. A third argument is
// merged over the second.
func findOptions(args []any) FindOptions {
	doc := shell.AsFindOptions(arg(args, 1))
	if extra, ok := arg(args, 2).(bson.D); ok {
		for _, e := range extra {
			doc = shell.SetOption(doc, e.Key, e.Value)
		}
	}

	var opts FindOptions
	for _, e := range doc {
		switch e.Key {
		case "sort":
			opts.Sort = e.Value
		case "projection":
			opts.Projection = e.Value
		case "limit":
			opts.Limit, _ = toInt64(e.Value)
		case "skip":
			opts.Skip, _ = toInt64(e.Value)
		case "hint":
			opts.Hint = e.Value
		}
	}
	return opts
}

func updateOptions(v any) UpdateOptions {
	var opts UpdateOptions
	doc, ok := v.(bson.D)
	if !ok {
		return opts
	}
	for _, e := range doc {
		switch e.Key {
		case "upsert":
			if b, ok := e.Value.(bool); ok {
				opts.Upsert = &b
			}
		case "arrayFilters":
			if a, ok := e.Value.(bson.A); ok {
				opts.ArrayFilters = []any(a)
			}
		case "hint":
			opts.Hint = e.Value
		}
	}
	return opts
}

// aggregateStages reads the stages of an aggregate call, either one array or
// one stage per argument. Both go through the same checks as a pipeline
// document.
func aggregateStages(args []any) ([]bson.D, error) {
	if arr, ok := arg(args, 0).(bson.A); ok {
		return pipelineStages(arr)
	}
	// aggregate({$match: ..}, {$sort: ..}) passes stages as arguments.
	return pipelineStages(bson.A(args))
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
