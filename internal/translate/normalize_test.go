package translate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// extJSON renders v as relaxed Extended JSON so decoded and hand-built
// values compare equal regardless of integer width.
func extJSON(t *testing.T, v any) string {
	t.Helper()
	out, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(out)
}

func mustParse(t *testing.T, text string, params []any, mode Mode) *Command {
	t.Helper()
	cmd, err := Parse(text, params, mode)
	if err != nil {
		t.Fatalf("Parse(%q): %v", text, err)
	}
	return cmd
}

func TestParse_ShellFormsAgree(t *testing.T) {
	want := &Invocation{Collection: "x", Method: "find", Args: []any{bson.D{}, bson.D{}}}
	for _, text := range []string{`db.getCollection('x').find({})`, `db.x.find({})`} {
		cmd := mustParse(t, text, nil, ModeRead)
		if !reflect.DeepEqual(cmd.Invocation, want) {
			t.Errorf("%s: got %#v, want %#v", text, cmd.Invocation, want)
		}
	}
}

func TestParse_ShellModifiers(t *testing.T) {
	cmd := mustParse(t, `db.x.find({a:1}).sort({a:1}).limit(5).skip(2)`, nil, ModeRead)
	want := &Invocation{
		Collection: "x",
		Method:     "find",
		Args: []any{
			bson.D{{Key: "a", Value: int32(1)}},
			bson.D{
				{Key: "sort", Value: bson.D{{Key: "a", Value: int32(1)}}},
				{Key: "limit", Value: int64(5)},
				{Key: "skip", Value: int64(2)},
			},
		},
	}
	if !reflect.DeepEqual(cmd.Invocation, want) {
		t.Errorf("got %#v, want %#v", cmd.Invocation, want)
	}
}

func TestParse_ShellRunCommand(t *testing.T) {
	cmd := mustParse(t, `db.runCommand({collStats: "users"})`, nil, ModeRead)
	if cmd.Raw == nil {
		t.Fatalf("expected raw command, got %s", cmd.Kind())
	}
	want := bson.D{{Key: "collStats", Value: "users"}}
	if !reflect.DeepEqual(cmd.Raw.Document, want) {
		t.Errorf("Document = %#v, want %#v", cmd.Raw.Document, want)
	}
}

func TestParse_PipelineArrayWithParam(t *testing.T) {
	cmd := mustParse(t, `[{"$match":{"age":{"$gt":21}}}, {"$sort":{"name":1}}]`, []any{"users"}, ModeRead)
	if cmd.Pipeline == nil {
		t.Fatalf("expected pipeline, got %s", cmd.Kind())
	}
	if cmd.Pipeline.Collection != "users" {
		t.Errorf("Collection = %q, want users", cmd.Pipeline.Collection)
	}
	want := []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: 21}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "name", Value: 1}}}},
	}
	if got := extJSON(t, cmd.Pipeline.Stages); got != extJSON(t, want) {
		t.Errorf("stages = %s, want %s", got, extJSON(t, want))
	}
}

func TestParse_PipelineArrayCollectionElement(t *testing.T) {
	tests := []struct {
		name       string
		params     []any
		collection string
		stages     int
	}{
		{"from element", nil, "orders", 1},
		{"parameter wins", []any{"users"}, "users", 1},
	}
	text := `[{"collection": "orders"}, {"$limit": 3}]`

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := mustParse(t, text, tt.params, ModeRead)
			if cmd.Pipeline.Collection != tt.collection {
				t.Errorf("Collection = %q, want %q", cmd.Pipeline.Collection, tt.collection)
			}
			if len(cmd.Pipeline.Stages) != tt.stages {
				t.Errorf("stages = %v, want %d", cmd.Pipeline.Stages, tt.stages)
			}
		})
	}
}

func TestParse_PipelineArrayWithoutCollection(t *testing.T) {
	_, err := Parse(`[{"$match": {}}]`, nil, ModeRead)
	if KindOf(err) != MissingCollection {
		t.Errorf("kind = %v, want MissingCollection (err: %v)", KindOf(err), err)
	}
}

func TestParse_StageShorthand(t *testing.T) {
	cmd := mustParse(t, `{"collection":"users","match":{"age":{"$gt":21}},"sort":{"name":1},"limit":10}`, nil, ModeRead)
	if cmd.Pipeline == nil {
		t.Fatalf("expected pipeline, got %s", cmd.Kind())
	}
	want := []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: 21}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "name", Value: 1}}}},
		{{Key: "$limit", Value: 10}},
	}
	if got := extJSON(t, cmd.Pipeline.Stages); got != extJSON(t, want) {
		t.Errorf("stages = %s, want %s", got, extJSON(t, want))
	}
}

func TestParse_FlatFilter(t *testing.T) {
	cmd := mustParse(t, `{"collection":"users","age":{"$gt":21},"status":"active"}`, nil, ModeRead)
	if cmd.Invocation == nil || cmd.Invocation.Method != "find" {
		t.Fatalf("expected find invocation, got %#v", cmd)
	}
	want := bson.D{
		{Key: "age", Value: bson.D{{Key: "$gt", Value: 21}}},
		{Key: "status", Value: "active"},
	}
	if got := extJSON(t, cmd.Invocation.Args[0]); got != extJSON(t, want) {
		t.Errorf("filter = %s, want %s", got, extJSON(t, want))
	}
}

func TestParse_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		mode   Mode
		kind   string
		method string
	}{
		{"collection and pipeline", `{"collection": "u", "pipeline": [{"$count": "n"}]}`, ModeRead, "pipeline", "aggregate"},
		{"method with args", `{"collection": "u", "method": "findOne", "args": [{"a": 1}]}`, ModeRead, "invocation", "findOne"},
		{"method without args", `{"collection": "u", "method": "estimatedDocumentCount"}`, ModeRead, "invocation", "estimatedDocumentCount"},
		{"runCommand wrapper", `{"runCommand": {"dbStats": 1}}`, ModeRead, "command", "dbStats"},
		{"raw command", `{"listCollections": 1, "nameOnly": true}`, ModeRead, "command", "listCollections"},
		{"relaxed literal", `{collection: 'u', status: 'a'}`, ModeRead, "invocation", "find"},
		{"operation in read mode is a filter", `{"collection": "u", "operation": "x"}`, ModeRead, "invocation", "find"},
		{"dollar shorthand", `{"collection": "u", "$match": {}}`, ModeRead, "pipeline", "aggregate"},
		{"write model", `{"collection": "u", "operation": {"deleteMany": {"filter": {}}}}`, ModeWrite, "invocation", "deleteMany"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := mustParse(t, tt.text, nil, tt.mode)
			if cmd.Kind() != tt.kind {
				t.Errorf("Kind = %q, want %q", cmd.Kind(), tt.kind)
			}
			if cmd.Method() != tt.method {
				t.Errorf("Method = %q, want %q", cmd.Method(), tt.method)
			}
		})
	}
}

func TestParse_ExtendedJSONTypes(t *testing.T) {
	cmd := mustParse(t, `{"collection": "u", "_id": {"$oid": "507f1f77bcf86cd799439011"}}`, nil, ModeRead)
	filter := cmd.Invocation.Args[0].(bson.D)
	if _, ok := filter[0].Value.(bson.ObjectID); !ok {
		t.Errorf("_id = %T, want bson.ObjectID", filter[0].Value)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		mode Mode
		kind ErrorKind
	}{
		{"empty", "  ", ModeRead, MalformedInput},
		{"garbage", `find everything please`, ModeRead, MalformedInput},
		{"unclosed", `{"collection": "u"`, ModeRead, MalformedInput},
		{"scalar", `42`, ModeRead, AmbiguousOrUnsupportedShape},
		{"empty document", `{}`, ModeRead, AmbiguousOrUnsupportedShape},
		{"pipeline not array", `{"collection": "u", "pipeline": {}}`, ModeRead, AmbiguousOrUnsupportedShape},
		{"multi key stage", `{"collection": "u", "pipeline": [{"$match": {}, "$limit": 1}]}`, ModeRead, AmbiguousOrUnsupportedShape},
		{"unknown stage", `[{"filter": {}}]`, ModeRead, AmbiguousOrUnsupportedShape},
		{"non-document stage", `[1, 2]`, ModeRead, AmbiguousOrUnsupportedShape},
		{"shorthand mixed with filter", `{"collection": "u", "match": {}, "status": "a"}`, ModeRead, AmbiguousOrUnsupportedShape},
		{"collection not string", `{"collection": 5}`, ModeRead, AmbiguousOrUnsupportedShape},
		{"empty collection", `{"collection": ""}`, ModeRead, MissingCollection},
		{"args not array", `{"collection": "u", "method": "find", "args": {}}`, ModeRead, AmbiguousOrUnsupportedShape},
		{"unknown operation", `{"collection": "u", "operation": "upsertAll"}`, ModeWrite, AmbiguousOrUnsupportedShape},
		{"missing update", `{"collection": "u", "operation": {"updateOne": {"filter": {}}}}`, ModeWrite, MissingRequiredArgument},
		{"runCommand without body", `db.runCommand()`, ModeRead, MissingRequiredArgument},
		{"second statement", `db.users.find({}); db.dropDatabase()`, ModeWrite, MalformedInput},
		{"trailing text", `db.users.deleteOne({a: 1}) and more`, ModeWrite, MalformedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text, nil, tt.mode)
			if err == nil {
				t.Fatal("expected error")
			}
			if KindOf(err) != tt.kind {
				t.Errorf("kind = %v, want %v (err: %v)", KindOf(err), tt.kind, err)
			}
		})
	}
}

func TestParse_ErrorCarriesInput(t *testing.T) {
	text := `not a query at all ` + strings.Repeat("x", 500)
	_, err := Parse(text, nil, ModeRead)
	var te *Error
	if !errors.As(err, &te) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if te.Input == "" || len(te.Input) > maxInputEcho {
		t.Errorf("Input length = %d, want 1..%d", len(te.Input), maxInputEcho)
	}
	if !strings.HasPrefix(text, te.Input) {
		t.Errorf("Input %q is not a prefix of the request", te.Input)
	}

	_, err = Parse(`[1]`, []any{"u"}, ModeRead)
	if !errors.As(err, &te) || te.Input != "[1]" {
		t.Errorf("ambiguous error should carry the input, got %v", err)
	}

	mixed := `{collection: "u", sort: {a: 1}, status: "A"}`
	_, err = Parse(mixed, nil, ModeRead)
	if !errors.As(err, &te) || te.Input != mixed || !strings.Contains(te.Detail, `"status"`) {
		t.Errorf("mixed shorthand error = %v", err)
	}
}

func TestParse_WriteShapes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *Invocation
	}{
		{
			name: "insertOne model",
			text: `{collection: 'u', operation: {insertOne: {document: {a: 1}}}}`,
			want: &Invocation{Collection: "u", Method: "insertOne", Args: []any{bson.D{{Key: "a", Value: int32(1)}}}},
		},
		{
			name: "insertMany string form",
			text: `{collection: 'u', operation: 'insertMany', documents: [{a: 1}, {a: 2}]}`,
			want: &Invocation{Collection: "u", Method: "insertMany", Args: []any{bson.A{
				bson.D{{Key: "a", Value: int32(1)}},
				bson.D{{Key: "a", Value: int32(2)}},
			}}},
		},
		{
			name: "updateOne with upsert",
			text: `{collection: 'u', operation: {updateOne: {filter: {a: 1}, update: {$set: {b: 2}}, upsert: true}}}`,
			want: &Invocation{Collection: "u", Method: "updateOne", Args: []any{
				bson.D{{Key: "a", Value: int32(1)}},
				bson.D{{Key: "$set", Value: bson.D{{Key: "b", Value: int32(2)}}}},
				bson.D{{Key: "upsert", Value: true}},
			}},
		},
		{
			name: "replaceOne string form",
			text: `{collection: 'u', operation: 'replaceOne', filter: {a: 1}, replacement: {a: 2}}`,
			want: &Invocation{Collection: "u", Method: "replaceOne", Args: []any{
				bson.D{{Key: "a", Value: int32(1)}},
				bson.D{{Key: "a", Value: int32(2)}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := mustParse(t, tt.text, nil, ModeWrite)
			if !reflect.DeepEqual(cmd.Invocation, tt.want) {
				t.Errorf("got %#v, want %#v", cmd.Invocation, tt.want)
			}
		})
	}
}

func TestCommandDocument(t *testing.T) {
	cmd := mustParse(t, `db.users.find({a: 1})`, nil, ModeRead)
	doc := cmd.Document()
	if len(doc) != 1 || doc[0].Key != "invocation" {
		t.Fatalf("Document = %#v", doc)
	}
	if _, err := bson.MarshalExtJSON(doc, false, false); err != nil {
		t.Errorf("preview does not render: %v", err)
	}
}
