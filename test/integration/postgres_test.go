//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/querybridge/querybridge/internal/backend"
	"github.com/querybridge/querybridge/internal/config"
	"github.com/querybridge/querybridge/internal/sqlstore"
)

func openPostgres(t *testing.T) (*backend.SQL, string) {
	t.Helper()
	skipIfNoPostgres(t)
	ctx := testContext(t)

	store := sqlstore.NewPostgres(pgConnString(t), "public", 4)
	if err := store.Connect(ctx); err != nil {
		t.Fatalf("connecting to PostgreSQL: %v", err)
	}
	table := uniqueName("qb_it")
	if _, err := store.Exec(ctx, fmt.Sprintf(`CREATE TABLE %s (id serial PRIMARY KEY, name text NOT NULL, age int)`, table)); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	t.Cleanup(func() {
		_, _ = store.Exec(context.Background(), "DROP TABLE IF EXISTS "+table)
		_ = store.Close()
	})
	return backend.NewSQL("it", config.TypePostgreSQL, store, false, nil), table
}

func TestPostgresExecuteThenQuery(t *testing.T) {
	b, table := openPostgres(t)
	ctx := testContext(t)

	res, err := b.Execute(ctx, fmt.Sprintf(`INSERT INTO %s (name, age) VALUES ($1, $2), ($3, $4)`, table), []any{"ada", int64(36), "bob", int64(19)})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.Affected != 2 {
		t.Errorf("affected = %d, want 2", res.Affected)
	}

	res, err = b.Query(ctx, fmt.Sprintf(`SELECT name FROM %s WHERE age > $1 ORDER BY name`, table), []any{int64(21)})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(res.Items) != 1 || !strings.Contains(string(res.Items[0]), `"ada"`) {
		t.Errorf("items = %s", res.Items)
	}

	_, err = b.Query(ctx, fmt.Sprintf(`DELETE FROM %s`, table), nil)
	if !errors.Is(err, backend.ErrNotReadStatement) {
		t.Errorf("delete through query err = %v", err)
	}
}

func TestPostgresDescribe(t *testing.T) {
	b, table := openPostgres(t)
	ctx := testContext(t)

	res, err := b.Describe(ctx, table)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(res.Columns) != 3 {
		t.Errorf("columns = %+v", res.Columns)
	}
	if len(res.PrimaryKey) != 1 || res.PrimaryKey[0] != "id" {
		t.Errorf("primary key = %v", res.PrimaryKey)
	}

	cat, err := b.Resources(ctx)
	if err != nil {
		t.Fatalf("Resources: %v", err)
	}
	if cat.Lookup(table) == nil {
		t.Errorf("catalog missing %s", table)
	}
}
