//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/querybridge/querybridge/internal/api"
	"github.com/querybridge/querybridge/internal/backend"
	"github.com/querybridge/querybridge/internal/config"
)

func TestAPIQueryMongo(t *testing.T) {
	skipIfNoMongo(t)
	coll := uniqueName("qb_api")

	cfg := &config.Config{
		Version: config.CurrentVersion,
		Connections: []config.Connection{{
			Name:             "app",
			Type:             config.TypeMongoDB,
			ConnectionString: mongoURI(t),
			Database:         mongoDatabase(t),
			MaxConnections:   2,
		}},
	}
	registry := backend.NewRegistry(cfg)
	t.Cleanup(func() { _ = registry.Close(context.Background()) })

	srv := httptest.NewServer(api.New(registry, nil, 0).Handler())
	t.Cleanup(srv.Close)

	post := func(path, query string) (*http.Response, api.ToolResponse) {
		t.Helper()
		body, _ := json.Marshal(api.ToolRequest{Query: query})
		resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		defer resp.Body.Close()
		var out api.ToolResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		return resp, out
	}

	resp, out := post("/api/connections/app/execute", fmt.Sprintf(`db.%s.insertMany([{n: 1}, {n: 2}])`, coll))
	if resp.StatusCode != http.StatusOK || out.Affected != 2 {
		t.Fatalf("execute status = %d, affected = %d", resp.StatusCode, out.Affected)
	}
	t.Cleanup(func() {
		post("/api/connections/app/execute", fmt.Sprintf(`db.runCommand({drop: %q})`, coll))
	})

	resp, out = post("/api/connections/app/query", fmt.Sprintf(`{collection: %q, n: {$gt: 1}}`, coll))
	if resp.StatusCode != http.StatusOK || out.Count != 1 {
		t.Errorf("query status = %d, count = %d", resp.StatusCode, out.Count)
	}
}
