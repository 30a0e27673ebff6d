package docstore

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/querybridge/querybridge/internal/translate"
)

// Render converts a read result into relaxed Extended JSON, one item per
// document. Counts render as {"count": n} and distinct values as
// {"value": v}.
func Render(res *translate.Result) ([]json.RawMessage, error) {
	items := []json.RawMessage{}
	switch res.Kind {
	case translate.ResultDocuments:
		for _, doc := range res.Documents {
			item, err := bson.MarshalExtJSON(doc, false, false)
			if err != nil {
				return nil, fmt.Errorf("rendering document: %w", err)
			}
			items = append(items, item)
		}
	case translate.ResultDocument:
		if res.Document != nil {
			item, err := bson.MarshalExtJSON(res.Document, false, false)
			if err != nil {
				return nil, fmt.Errorf("rendering document: %w", err)
			}
			items = append(items, item)
		}
	case translate.ResultCount:
		item, err := bson.MarshalExtJSON(bson.D{{Key: "count", Value: res.Count}}, false, false)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	case translate.ResultValues:
		for _, v := range res.Values {
			item, err := bson.MarshalExtJSON(bson.D{{Key: "value", Value: v}}, false, false)
			if err != nil {
				return nil, fmt.Errorf("rendering value: %w", err)
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// RenderSummary converts write metadata into relaxed Extended JSON. A nil
// summary renders as {"acknowledged": true}.
func RenderSummary(sum *translate.WriteSummary) (json.RawMessage, error) {
	doc := bson.D{{Key: "acknowledged", Value: true}}
	if sum != nil {
		for _, f := range []struct {
			key string
			n   int64
		}{
			{"insertedCount", sum.Inserted},
			{"matchedCount", sum.Matched},
			{"modifiedCount", sum.Modified},
			{"upsertedCount", sum.Upserted},
			{"deletedCount", sum.Deleted},
		} {
			if f.n > 0 {
				doc = append(doc, bson.E{Key: f.key, Value: f.n})
			}
		}
		if len(sum.InsertedIDs) > 0 {
			doc = append(doc, bson.E{Key: "insertedIds", Value: bson.A(sum.InsertedIDs)})
		}
		if sum.UpsertedID != nil {
			doc = append(doc, bson.E{Key: "upsertedId", Value: sum.UpsertedID})
		}
	}
	out, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("rendering write summary: %w", err)
	}
	return out, nil
}

// RenderCommand converts a canonical command preview into relaxed Extended
// JSON.
func RenderCommand(cmd *translate.Command) (json.RawMessage, error) {
	out, err := bson.MarshalExtJSON(cmd.Document(), false, false)
	if err != nil {
		return nil, fmt.Errorf("rendering command: %w", err)
	}
	return out, nil
}
