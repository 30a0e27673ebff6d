package literal

import (
	"reflect"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{}},
		{"blank", "   \n", []string{}},
		{"single", `{a: 1}`, []string{`{a: 1}`}},
		{"two objects", `{a: 1}, {b: 2}`, []string{`{a: 1}`, `{b: 2}`}},
		{"nested comma", `{a: [1, 2], b: {c: 3, d: 4}}, 5`, []string{`{a: [1, 2], b: {c: 3, d: 4}}`, `5`}},
		{"quoted comma", `"a,b", 'c,d'`, []string{`"a,b"`, `'c,d'`}},
		{"escaped quote", `"a\",b", 2`, []string{`"a\",b"`, `2`}},
		{"parens", `ObjectId('x'), {y: 1}`, []string{`ObjectId('x')`, `{y: 1}`}},
		{"trailing comma", `{a: 1},`, []string{`{a: 1}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitRejoinKeepsArgumentCount(t *testing.T) {
	inputs := []string{
		`{a: 1}`,
		`{a: 1}, {b: [1, {c: "x,y"}]}`,
		`"name", {status: 'a,b'}`,
		`[{$match: {a: 1}}, {$limit: 5}], {allowDiskUse: true}`,
		`1, 2, 3, 'four'`,
	}
	for _, in := range inputs {
		first := Split(in)
		second := Split(strings.Join(first, ","))
		if len(first) != len(second) {
			t.Errorf("%q: %d args, %d after rejoin", in, len(first), len(second))
		}
	}
}

func TestBalanced(t *testing.T) {
	inner, rest, ok := Balanced(`{a: "(x)"}, f(1)).sort({a: 1})`)
	if !ok {
		t.Fatal("expected balanced match")
	}
	if inner != `{a: "(x)"}, f(1)` {
		t.Errorf("inner = %q", inner)
	}
	if rest != `.sort({a: 1})` {
		t.Errorf("rest = %q", rest)
	}

	if _, _, ok := Balanced(`{a: 1}`); ok {
		t.Error("unclosed input should not match")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want any
	}{
		{"empty object", `{}`, bson.D{}},
		{"empty array", `[]`, bson.A{}},
		{"json object", `{"a": 1, "b": "x"}`, bson.D{{Key: "a", Value: int32(1)}, {Key: "b", Value: "x"}}},
		{"bare keys", `{age: {$gt: 21}}`, bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: int32(21)}}}}},
		{"dotted key", `{a.b: -1}`, bson.D{{Key: "a.b", Value: int32(-1)}}},
		{"single quotes", `{name: 'O\'Brien'}`, bson.D{{Key: "name", Value: "O'Brien"}}},
		{"trailing comma", `[1, 2,]`, bson.A{int32(1), int32(2)}},
		{"int64", `12345678901`, int64(12345678901)},
		{"float", `-1.5e2`, float64(-150)},
		{"bools and null", `[true, false, null, undefined]`, bson.A{true, false, nil, nil}},
		{"key order kept", `{z: 1, a: 2, m: 3}`, bson.D{{Key: "z", Value: int32(1)}, {Key: "a", Value: int32(2)}, {Key: "m", Value: int32(3)}}},
		{"unicode escape", `"café"`, "café"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{``, `{a 1}`, `{a: 1`, `[1 2]`, `"open`, `foo`, `{a: 1} trailing`, `1.2.3`} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) should fail", in)
		}
	}
}

func TestCoerceConstructorFallback(t *testing.T) {
	got := Coerce(`{_id: ObjectId("507f1f77bcf86cd799439011")}`)
	want := bson.D{{Key: "_id", Value: "507f1f77bcf86cd799439011"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Coerce = %#v, want %#v", got, want)
	}

	got = Coerce(`{at: new ISODate('2024-01-01')}`)
	want = bson.D{{Key: "at", Value: "2024-01-01"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Coerce = %#v, want %#v", got, want)
	}
}

func TestCoerceKeepsRawString(t *testing.T) {
	if got := Coerce(`someVariable`); got != "someVariable" {
		t.Errorf("Coerce = %#v, want raw string", got)
	}
}

func TestParseArgs(t *testing.T) {
	if got := ParseArgs(""); len(got) != 0 {
		t.Errorf("empty args = %#v, want none", got)
	}

	got := ParseArgs(`"status", {active: true}`)
	want := []any{"status", bson.D{{Key: "active", Value: true}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseArgs = %#v, want %#v", got, want)
	}
}
