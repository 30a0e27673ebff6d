//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func pgConnString(t *testing.T) string {
	t.Helper()
	host := envOrDefault("QUERYBRIDGE_TEST_PG_HOST", "localhost")
	port := envOrDefault("QUERYBRIDGE_TEST_PG_PORT", "25432")
	db := envOrDefault("QUERYBRIDGE_TEST_PG_DATABASE", "querybridge_test")
	user := envOrDefault("QUERYBRIDGE_TEST_PG_USER", "postgres")
	pass := envOrDefault("QUERYBRIDGE_TEST_PG_PASSWORD", "postgres")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, db)
}

func mongoURI(t *testing.T) string {
	t.Helper()
	return envOrDefault("QUERYBRIDGE_TEST_MONGO_URI", "mongodb://localhost:37017/?directConnection=true")
}

func mongoDatabase(t *testing.T) string {
	t.Helper()
	return envOrDefault("QUERYBRIDGE_TEST_MONGO_DATABASE", "querybridge_test")
}

func skipIfNoPostgres(t *testing.T) {
	t.Helper()
	if os.Getenv("QUERYBRIDGE_TEST_PG_HOST") == "" && os.Getenv("QUERYBRIDGE_TEST_PG_PORT") == "" {
		t.Skip("skipping: QUERYBRIDGE_TEST_PG_HOST/PORT not set")
	}
}

func skipIfNoMongo(t *testing.T) {
	t.Helper()
	if os.Getenv("QUERYBRIDGE_TEST_MONGO_URI") == "" {
		t.Skip("skipping: QUERYBRIDGE_TEST_MONGO_URI not set")
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// uniqueName returns a collection or table name no other run uses.
func uniqueName(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}
