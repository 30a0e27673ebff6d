package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/querybridge/querybridge/internal/translate"
)

// Collection implements translate.Collection over a driver collection.
// Every method is exactly one round trip.
type Collection struct {
	coll *mongo.Collection
}

func (c *Collection) Find(ctx context.Context, filter any, o translate.FindOptions) ([]bson.Raw, error) {
	opts := options.Find()
	if o.Sort != nil {
		opts.SetSort(o.Sort)
	}
	if o.Projection != nil {
		opts.SetProjection(o.Projection)
	}
	if o.Limit > 0 {
		opts.SetLimit(o.Limit)
	}
	if o.Skip > 0 {
		opts.SetSkip(o.Skip)
	}
	if o.Hint != nil {
		opts.SetHint(o.Hint)
	}

	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	return drain(ctx, cursor)
}

func (c *Collection) FindOne(ctx context.Context, filter any, o translate.FindOptions) (bson.Raw, error) {
	opts := options.FindOne()
	if o.Sort != nil {
		opts.SetSort(o.Sort)
	}
	if o.Projection != nil {
		opts.SetProjection(o.Projection)
	}
	if o.Skip > 0 {
		opts.SetSkip(o.Skip)
	}
	if o.Hint != nil {
		opts.SetHint(o.Hint)
	}

	doc, err := c.coll.FindOne(ctx, filter, opts).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Collection) Aggregate(ctx context.Context, stages []bson.D) ([]bson.Raw, error) {
	cursor, err := c.coll.Aggregate(ctx, mongo.Pipeline(stages))
	if err != nil {
		return nil, err
	}
	return drain(ctx, cursor)
}

func (c *Collection) CountDocuments(ctx context.Context, filter any) (int64, error) {
	return c.coll.CountDocuments(ctx, filter)
}

func (c *Collection) Distinct(ctx context.Context, field string, filter any) ([]any, error) {
	res := c.coll.Distinct(ctx, field, filter)
	if err := res.Err(); err != nil {
		return nil, err
	}
	var values []any
	if err := res.Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *Collection) InsertOne(ctx context.Context, doc any) (*translate.WriteSummary, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &translate.WriteSummary{Inserted: 1, InsertedIDs: []any{res.InsertedID}}, nil
}

func (c *Collection) InsertMany(ctx context.Context, docs []any) (*translate.WriteSummary, error) {
	res, err := c.coll.InsertMany(ctx, docs)
	if err != nil {
		return nil, err
	}
	return &translate.WriteSummary{Inserted: int64(len(res.InsertedIDs)), InsertedIDs: res.InsertedIDs}, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter, update any, o translate.UpdateOptions) (*translate.WriteSummary, error) {
	opts := options.UpdateOne()
	if o.Upsert != nil {
		opts.SetUpsert(*o.Upsert)
	}
	if len(o.ArrayFilters) > 0 {
		opts.SetArrayFilters(o.ArrayFilters)
	}
	if o.Hint != nil {
		opts.SetHint(o.Hint)
	}
	res, err := c.coll.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return nil, err
	}
	return updateSummary(res), nil
}

func (c *Collection) UpdateMany(ctx context.Context, filter, update any, o translate.UpdateOptions) (*translate.WriteSummary, error) {
	opts := options.UpdateMany()
	if o.Upsert != nil {
		opts.SetUpsert(*o.Upsert)
	}
	if len(o.ArrayFilters) > 0 {
		opts.SetArrayFilters(o.ArrayFilters)
	}
	if o.Hint != nil {
		opts.SetHint(o.Hint)
	}
	res, err := c.coll.UpdateMany(ctx, filter, update, opts)
	if err != nil {
		return nil, err
	}
	return updateSummary(res), nil
}

func (c *Collection) ReplaceOne(ctx context.Context, filter, replacement any, o translate.UpdateOptions) (*translate.WriteSummary, error) {
	opts := options.Replace()
	if o.Upsert != nil {
		opts.SetUpsert(*o.Upsert)
	}
	if o.Hint != nil {
		opts.SetHint(o.Hint)
	}
	res, err := c.coll.ReplaceOne(ctx, filter, replacement, opts)
	if err != nil {
		return nil, err
	}
	return updateSummary(res), nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter any) (*translate.WriteSummary, error) {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &translate.WriteSummary{Deleted: res.DeletedCount}, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter any) (*translate.WriteSummary, error) {
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &translate.WriteSummary{Deleted: res.DeletedCount}, nil
}

func updateSummary(res *mongo.UpdateResult) *translate.WriteSummary {
	return &translate.WriteSummary{
		Matched:    res.MatchedCount,
		Modified:   res.ModifiedCount,
		Upserted:   res.UpsertedCount,
		UpsertedID: res.UpsertedID,
	}
}

// drain reads every document of cursor. Current is reused by the driver,
// so each document is copied.
func drain(ctx context.Context, cursor *mongo.Cursor) ([]bson.Raw, error) {
	defer cursor.Close(ctx)

	docs := []bson.Raw{}
	for cursor.Next(ctx) {
		docs = append(docs, bson.Raw(append([]byte(nil), cursor.Current...)))
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}
