package translate

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Database resolves collections and runs generic commands.
type Database interface {
	// Collection fails when name cannot be resolved.
	Collection(name string) (Collection, error)
	RunCommand(ctx context.Context, cmd bson.D) (bson.Raw, error)
}

// Collection is the set of primitives the dispatcher may call. Each call
// is one round trip to the store.
type Collection interface {
	Find(ctx context.Context, filter any, opts FindOptions) ([]bson.Raw, error)
	// FindOne returns nil, nil when nothing matches.
	FindOne(ctx context.Context, filter any, opts FindOptions) (bson.Raw, error)
	Aggregate(ctx context.Context, stages []bson.D) ([]bson.Raw, error)
	CountDocuments(ctx context.Context, filter any) (int64, error)
	Distinct(ctx context.Context, field string, filter any) ([]any, error)

	InsertOne(ctx context.Context, doc any) (*WriteSummary, error)
	InsertMany(ctx context.Context, docs []any) (*WriteSummary, error)
	UpdateOne(ctx context.Context, filter, update any, opts UpdateOptions) (*WriteSummary, error)
	UpdateMany(ctx context.Context, filter, update any, opts UpdateOptions) (*WriteSummary, error)
	ReplaceOne(ctx context.Context, filter, replacement any, opts UpdateOptions) (*WriteSummary, error)
	DeleteOne(ctx context.Context, filter any) (*WriteSummary, error)
	DeleteMany(ctx context.Context, filter any) (*WriteSummary, error)
}

// FindOptions carries the recognized find options. Zero values mean unset.
type FindOptions struct {
	Sort       any
	Projection any
	Limit      int64
	Skip       int64
	Hint       any
}

// UpdateOptions applies to updates and replacements.
type UpdateOptions struct {
	Upsert       *bool
	ArrayFilters []any
	Hint         any
}

// WriteSummary is the metadata a write primitive reports.
type WriteSummary struct {
	Inserted    int64 `json:"inserted,omitempty"`
	Matched     int64 `json:"matched,omitempty"`
	Modified    int64 `json:"modified,omitempty"`
	Upserted    int64 `json:"upserted,omitempty"`
	Deleted     int64 `json:"deleted,omitempty"`
	InsertedIDs []any `json:"insertedIds,omitempty"`
	UpsertedID  any   `json:"upsertedId,omitempty"`
}

// Affected is the number of documents the write touched.
func (s *WriteSummary) Affected() int64 {
	if s == nil {
		return 0
	}
	return s.Inserted + s.Modified + s.Upserted + s.Deleted
}

// ResultKind tells which field of a Result is meaningful.
type ResultKind int

const (
	ResultDocuments ResultKind = iota
	ResultDocument
	ResultCount
	ResultValues
)

// Result is what a read produces. Documents are returned exactly as the
// store sent them.
type Result struct {
	Kind      ResultKind
	Documents []bson.Raw
	Document  bson.Raw // nil when findOne matched nothing
	Count     int64
	Values    []any
}
