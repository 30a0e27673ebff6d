package schema

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestWriteAndLoadYAML(t *testing.T) {
	def := "nextval('users_id_seq')"
	c := &Catalog{
		Connection: "warehouse",
		Type:       "postgresql",
		Database:   "testdb",
		SchemaName: "public",
		Resources: []Resource{
			{
				Name:      "users",
				Kind:      "table",
				RowCount:  1000,
				SizeBytes: 65536,
				Columns: []Column{
					{Name: "id", DataType: "integer", Nullable: false, DefaultValue: &def},
					{Name: "name", DataType: "character varying", Nullable: false},
					{Name: "email", DataType: "character varying", Nullable: true},
				},
				PrimaryKey: []string{"id"},
				Indexes:    []Index{{Name: "users_email_idx", Columns: []string{"email"}, Unique: true}},
			},
			{
				Name: "active_users",
				Kind: "view",
			},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "catalog.yaml")

	if err := c.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("catalog file not created: %v", err)
	}

	loaded, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	if !reflect.DeepEqual(loaded, c) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", loaded, c)
	}
}

func TestLoadYAML_NotFound(t *testing.T) {
	_, err := LoadYAML("/nonexistent/path/catalog.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestToJSON(t *testing.T) {
	c := &Catalog{Connection: "app", Type: "mongodb", Resources: []Resource{{Name: "users", Kind: "collection", Sampled: 3}}}
	data, err := c.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	res := m["resources"].([]any)[0].(map[string]any)
	if res["sampled"] != float64(3) {
		t.Errorf("sampled = %v, want 3", res["sampled"])
	}
}

func TestSummary(t *testing.T) {
	c := &Catalog{
		Connection: "app",
		Type:       "mongodb",
		Resources: []Resource{
			{Name: "a", RowCount: 100, SizeBytes: 1024, Columns: []Column{{Name: "_id"}}},
			{Name: "b", RowCount: 200, SizeBytes: 2048, Columns: []Column{{Name: "_id"}, {Name: "val"}}},
		},
	}
	summary := c.Summary()
	for _, want := range []string{"2 collections", "3 columns", "Total rows: 300", "3.0 KB"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary %q missing %q", summary, want)
		}
	}
}

func TestLookup(t *testing.T) {
	c := &Catalog{Resources: []Resource{{Name: "a"}, {Name: "b"}}}
	if r := c.Lookup("b"); r == nil || r.Name != "b" {
		t.Errorf("Lookup(b) = %v", r)
	}
	if r := c.Lookup("z"); r != nil {
		t.Errorf("Lookup(z) = %v, want nil", r)
	}
}

func TestFieldStats(t *testing.T) {
	s := NewFieldStats()
	s.Document(FieldType{"_id", "objectId"}, FieldType{"name", "string"}, FieldType{"age", "int"})
	s.Document(FieldType{"_id", "objectId"}, FieldType{"name", "string"}, FieldType{"age", "double"})
	s.Document(FieldType{"_id", "objectId"}, FieldType{"name", "null"})

	if s.Documents() != 3 {
		t.Fatalf("Documents = %d, want 3", s.Documents())
	}

	want := []Column{
		{Name: "_id", DataType: "objectId", Nullable: false, Types: []string{"objectId"}, Seen: 3},
		{Name: "name", DataType: "mixed", Nullable: true, Types: []string{"null", "string"}, Seen: 3},
		{Name: "age", DataType: "mixed", Nullable: true, Types: []string{"double", "int"}, Seen: 2},
	}
	if got := s.Columns(); !reflect.DeepEqual(got, want) {
		t.Errorf("Columns =\n%#v\nwant\n%#v", got, want)
	}
}
