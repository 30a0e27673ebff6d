package translate

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func rawDoc(t *testing.T, d bson.D) bson.Raw {
	t.Helper()
	b, err := bson.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestTranslateRead_PipelineDispatchedUnchanged(t *testing.T) {
	db := &MockDatabase{}
	_, err := TranslateRead(context.Background(), db, `[{"$match":{"age":{"$gt":21}}}, {"$sort":{"name":1}}]`, []any{"users"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	users := db.Collections["users"]
	if users == nil || len(users.Calls) != 1 {
		t.Fatalf("expected one call on users, got %#v", db.Collections)
	}
	call := users.Last()
	if call.Method != "aggregate" {
		t.Fatalf("Method = %q, want aggregate", call.Method)
	}
	want := []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: 21}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "name", Value: 1}}}},
	}
	if got := extJSON(t, call.Args[0]); got != extJSON(t, want) {
		t.Errorf("stages = %s, want %s", got, extJSON(t, want))
	}
}

func TestTranslateRead_FlatFilterIsFind(t *testing.T) {
	db := &MockDatabase{}
	_, err := TranslateRead(context.Background(), db, `{"collection":"users","age":{"$gt":21},"status":"active"}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call := db.Collections["users"].Last()
	if call.Method != "find" {
		t.Fatalf("Method = %q, want find", call.Method)
	}
	want := bson.D{
		{Key: "age", Value: bson.D{{Key: "$gt", Value: 21}}},
		{Key: "status", Value: "active"},
	}
	if got := extJSON(t, call.Args[0]); got != extJSON(t, want) {
		t.Errorf("filter = %s, want %s", got, extJSON(t, want))
	}
}

func TestTranslateRead_FindOptions(t *testing.T) {
	db := &MockDatabase{}
	_, err := TranslateRead(context.Background(), db, `db.users.find({a: 1}, {name: 1}).sort({a: -1}).limit(5).skip(2)`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := db.Collections["users"].Last().Args[1].(FindOptions)
	want := FindOptions{
		Sort:       bson.D{{Key: "a", Value: int32(-1)}},
		Projection: bson.D{{Key: "name", Value: int32(1)}},
		Limit:      5,
		Skip:       2,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("options = %#v, want %#v", got, want)
	}
}

func TestTranslateRead_Results(t *testing.T) {
	doc := rawDoc(t, bson.D{{Key: "name", Value: "ada"}})

	tests := []struct {
		name string
		text string
		coll *MockCollection
		kind ResultKind
	}{
		{"find", `db.users.find()`, &MockCollection{Docs: []bson.Raw{doc}}, ResultDocuments},
		{"findOne", `db.users.findOne({name: "ada"})`, &MockCollection{Doc: doc}, ResultDocument},
		{"aggregate varargs", `db.users.aggregate({$match: {}}, {$limit: 1})`, &MockCollection{Docs: []bson.Raw{doc}}, ResultDocuments},
		{"count", `db.users.count({})`, &MockCollection{Count: 7}, ResultCount},
		{"countDocuments", `db.users.find({}).count()`, &MockCollection{Count: 7}, ResultCount},
		{"distinct", `db.users.distinct("name", {active: true})`, &MockCollection{Values: []any{"ada"}}, ResultValues},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &MockDatabase{Collections: map[string]*MockCollection{"users": tt.coll}}
			res, err := TranslateRead(context.Background(), db, tt.text, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", res.Kind, tt.kind)
			}
			if n := db.StoreCalls(); n != 1 {
				t.Errorf("store calls = %d, want 1", n)
			}
		})
	}
}

func TestTranslateRead_DistinctWithoutField(t *testing.T) {
	for _, text := range []string{`db.users.distinct()`, `{"collection": "users", "method": "distinct"}`} {
		db := &MockDatabase{}
		_, err := TranslateRead(context.Background(), db, text, nil)
		if KindOf(err) != MissingRequiredArgument {
			t.Errorf("%s: kind = %v, want MissingRequiredArgument", text, KindOf(err))
		}
		if n := db.StoreCalls(); n != 0 {
			t.Errorf("%s: store calls = %d, want 0", text, n)
		}
	}
}

func TestTranslateRead_MalformedNeverDispatches(t *testing.T) {
	db := &MockDatabase{}
	_, err := TranslateRead(context.Background(), db, `db.users.find({a: 1`, nil)
	if KindOf(err) != MalformedInput {
		t.Errorf("kind = %v, want MalformedInput (err: %v)", KindOf(err), err)
	}
	if n := db.StoreCalls(); n != 0 {
		t.Errorf("store calls = %d, want 0", n)
	}
	if len(db.Collections) != 0 {
		t.Errorf("no collection should be resolved, got %v", db.Collections)
	}
}

func TestTranslateRead_RawCommand(t *testing.T) {
	db := &MockDatabase{CommandResult: rawDoc(t, bson.D{{Key: "ok", Value: 1}})}
	res, err := TranslateRead(context.Background(), db, `{"listCollections": 1}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Kind != ResultDocument || res.Document == nil {
		t.Errorf("result = %#v, want the command reply", res)
	}
	want := []bson.D{{{Key: "listCollections", Value: int32(1)}}}
	if got := extJSON(t, db.Commands); got != extJSON(t, want) {
		t.Errorf("commands = %s, want %s", got, extJSON(t, want))
	}
}

func TestTranslateRead_GenericFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bson.D
	}{
		{
			name: "positional args",
			text: `db.users.estimatedDocumentCount({maxTimeMS: 5})`,
			want: bson.D{
				{Key: "estimatedDocumentCount", Value: "users"},
				{Key: "arg0", Value: bson.D{{Key: "maxTimeMS", Value: int32(5)}}},
			},
		},
		{
			name: "no args",
			text: `{collection: 'users', method: 'validate'}`,
			want: bson.D{{Key: "validate", Value: "users"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &MockDatabase{}
			if _, err := TranslateRead(context.Background(), db, tt.text, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(db.Commands) != 1 {
				t.Fatalf("commands = %d, want 1", len(db.Commands))
			}
			if !reflect.DeepEqual(db.Commands[0], tt.want) {
				t.Errorf("command = %#v, want %#v", db.Commands[0], tt.want)
			}
		})
	}
}

func TestTranslateWrite_ReadShapedFallback(t *testing.T) {
	db := &MockDatabase{}
	err := TranslateWrite(context.Background(), db, `db.users.find({a: 1}, {limit: 2, sort: {a: 1}})`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := bson.D{
		{Key: "find", Value: "users"},
		{Key: "filter", Value: bson.D{{Key: "a", Value: int32(1)}}},
		{Key: "limit", Value: int32(2)},
		{Key: "sort", Value: bson.D{{Key: "a", Value: int32(1)}}},
	}
	if !reflect.DeepEqual(db.Commands[0], want) {
		t.Errorf("command = %#v, want %#v", db.Commands[0], want)
	}
}

func TestTranslateRead_ReadShapedUsesPrimitives(t *testing.T) {
	for method := range readShaped {
		if _, ok := readOperations[method]; !ok {
			t.Errorf("%s has no read primitive", method)
		}
	}
	for _, text := range []string{`db.users.find({a: 1}, {limit: 2})`, `db.users.count({a: 1})`} {
		db := &MockDatabase{}
		if _, err := TranslateRead(context.Background(), db, text, nil); err != nil {
			t.Fatalf("%s: %v", text, err)
		}
		if len(db.Commands) != 0 {
			t.Errorf("%s: read path ran a generic command %v", text, db.Commands)
		}
	}
}

func TestTranslateWrite_CountFallback(t *testing.T) {
	db := &MockDatabase{}
	if err := TranslateWrite(context.Background(), db, `db.users.count({a: 1})`, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := bson.D{
		{Key: "count", Value: "users"},
		{Key: "query", Value: bson.D{{Key: "a", Value: int32(1)}}},
	}
	if !reflect.DeepEqual(db.Commands[0], want) {
		t.Errorf("command = %#v, want %#v", db.Commands[0], want)
	}
}

func TestTranslateRead_AggregateStagesChecked(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"multi key stage in array", `db.users.aggregate([{$match: {}, $limit: 1}])`},
		{"multi key stage as argument", `db.users.aggregate({$match: {}, $limit: 1})`},
		{"unknown operator", `db.users.aggregate([{filter: {}}])`},
		{"non-document stage", `db.users.aggregate([1])`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &MockDatabase{}
			_, err := TranslateRead(context.Background(), db, tt.text, nil)
			if KindOf(err) != AmbiguousOrUnsupportedShape {
				t.Errorf("kind = %v, want AmbiguousOrUnsupportedShape (err: %v)", KindOf(err), err)
			}
			if n := db.StoreCalls(); n != 0 {
				t.Errorf("store calls = %d, want 0", n)
			}
		})
	}
}

func TestTranslateRead_AggregateShorthandStageNames(t *testing.T) {
	db := &MockDatabase{}
	if _, err := TranslateRead(context.Background(), db, `db.users.aggregate([{match: {a: 1}}, {limit: 2}])`, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "a", Value: int32(1)}}}},
		{{Key: "$limit", Value: int32(2)}},
	}
	if got := extJSON(t, db.Collections["users"].Last().Args[0]); got != extJSON(t, want) {
		t.Errorf("stages = %s, want %s", got, extJSON(t, want))
	}
}

func TestTranslateWrite_TrailingStatementNeverDispatches(t *testing.T) {
	db := &MockDatabase{}
	err := TranslateWrite(context.Background(), db, `db.users.deleteMany({}); db.dropDatabase()`, nil)
	if KindOf(err) != MalformedInput {
		t.Errorf("kind = %v, want MalformedInput (err: %v)", KindOf(err), err)
	}
	if n := db.StoreCalls(); n != 0 {
		t.Errorf("store calls = %d, want 0", n)
	}
}

func TestTranslate_UnsupportedMethod(t *testing.T) {
	db := &MockDatabase{CommandErr: errors.New("no such command: 'frobnicate'")}
	_, err := TranslateRead(context.Background(), db, `db.users.frobnicate()`, nil)
	if KindOf(err) != UnsupportedMethod {
		t.Errorf("kind = %v, want UnsupportedMethod", KindOf(err))
	}
}

func TestTranslate_StoreOperationFailed(t *testing.T) {
	storeErr := errors.New("E11000 duplicate key error")
	db := &MockDatabase{Collections: map[string]*MockCollection{"users": {Err: storeErr}}}

	err := TranslateWrite(context.Background(), db, `db.users.insertOne({_id: 1})`, nil)
	if KindOf(err) != StoreOperationFailed {
		t.Fatalf("kind = %v, want StoreOperationFailed", KindOf(err))
	}
	if !errors.Is(err, storeErr) {
		t.Error("error should unwrap to the store error")
	}
	if !strings.Contains(err.Error(), storeErr.Error()) {
		t.Errorf("message %q should contain %q", err.Error(), storeErr.Error())
	}

	db.CommandErr = storeErr
	if _, err := TranslateRead(context.Background(), db, `{"ping": 1}`, nil); KindOf(err) != StoreOperationFailed {
		t.Errorf("raw command kind = %v, want StoreOperationFailed", KindOf(err))
	}
}

func TestTranslate_MissingCollection(t *testing.T) {
	db := &MockDatabase{Strict: true}
	_, err := TranslateRead(context.Background(), db, `db.ghosts.find()`, nil)
	if KindOf(err) != MissingCollection {
		t.Errorf("kind = %v, want MissingCollection", KindOf(err))
	}
}

func TestTranslateWrite_Primitives(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		method string
		nargs  int
	}{
		{"insertOne", `db.users.insertOne({name: "ada"})`, "insertOne", 1},
		{"insertMany", `db.users.insertMany([{a: 1}, {a: 2}])`, "insertMany", 1},
		{"updateOne without options", `db.users.updateOne({a: 1}, {$set: {b: 2}})`, "updateOne", 3},
		{"updateMany", `db.users.updateMany({}, {$inc: {n: 1}}, {upsert: true})`, "updateMany", 3},
		{"replaceOne", `db.users.replaceOne({a: 1}, {a: 2})`, "replaceOne", 3},
		{"deleteOne", `db.users.deleteOne({a: 1})`, "deleteOne", 1},
		{"deleteMany model", `{"collection": "users", "operation": {"deleteMany": {"filter": {"a": 1}}}}`, "deleteMany", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &MockDatabase{}
			if err := TranslateWrite(context.Background(), db, tt.text, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n := db.StoreCalls(); n != 1 {
				t.Fatalf("store calls = %d, want 1", n)
			}
			call := db.Collections["users"].Last()
			if call.Method != tt.method {
				t.Errorf("Method = %q, want %q", call.Method, tt.method)
			}
			if len(call.Args) != tt.nargs {
				t.Errorf("args = %d, want %d", len(call.Args), tt.nargs)
			}
		})
	}
}

func TestTranslateWrite_UpdateOptions(t *testing.T) {
	db := &MockDatabase{}
	text := `db.users.updateMany({}, {$set: {"tags.$[t]": "x"}}, {upsert: true, arrayFilters: [{t: "y"}]})`
	if err := TranslateWrite(context.Background(), db, text, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	opts := db.Collections["users"].Last().Args[2].(UpdateOptions)
	if opts.Upsert == nil || !*opts.Upsert {
		t.Error("upsert should be set")
	}
	if len(opts.ArrayFilters) != 1 {
		t.Errorf("arrayFilters = %v, want 1", opts.ArrayFilters)
	}
}

func TestTranslateWrite_MissingArguments(t *testing.T) {
	for _, text := range []string{
		`db.users.insertOne()`,
		`db.users.insertMany([])`,
		`db.users.updateOne({a: 1})`,
		`db.users.deleteMany()`,
	} {
		db := &MockDatabase{}
		err := TranslateWrite(context.Background(), db, text, nil)
		if KindOf(err) != MissingRequiredArgument {
			t.Errorf("%s: kind = %v, want MissingRequiredArgument", text, KindOf(err))
		}
		if n := db.StoreCalls(); n != 0 {
			t.Errorf("%s: store calls = %d, want 0", text, n)
		}
	}
}

func TestTranslateWrite_PipelineAndRawCommand(t *testing.T) {
	db := &MockDatabase{}
	if err := TranslateWrite(context.Background(), db, `[{"$match": {}}, {"$out": "archive"}]`, []any{"users"}); err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if db.Collections["users"].Last().Method != "aggregate" {
		t.Error("pipeline should aggregate")
	}

	if err := TranslateWrite(context.Background(), db, `db.runCommand({drop: "archive"})`, nil); err != nil {
		t.Fatalf("command: %v", err)
	}
	if len(db.Commands) != 1 {
		t.Errorf("commands = %d, want 1", len(db.Commands))
	}
}
