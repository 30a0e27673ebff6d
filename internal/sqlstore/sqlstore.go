// Package sqlstore passes SQL text and positional parameters straight to
// relational drivers and answers information-schema lookups.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/querybridge/querybridge/internal/schema"
)

// Store is one relational connection.
type Store interface {
	Connect(ctx context.Context) error
	// QueryRows runs a statement that returns rows.
	QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
	// Exec runs a statement and reports the affected row count.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Catalog(ctx context.Context, connection string) (*schema.Catalog, error)
	Describe(ctx context.Context, table string) (*schema.Resource, error)
	Close() error
}

// readKeywords are the leading keywords a read-only statement may start with.
var readKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"EXPLAIN":  true,
	"SHOW":     true,
	"PRAGMA":   true,
	"DESCRIBE": true,
	"VALUES":   true,
	"TABLE":    true,
}

// LeadingKeyword returns the first keyword of a statement, upper-cased,
// skipping whitespace, comments and opening parentheses.
func LeadingKeyword(stmt string) string {
	s := stmt
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = s[i+2:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
			})
			if end < 0 {
				end = len(s)
			}
			return strings.ToUpper(s[:end])
		}
	}
}

// IsReadStatement reports whether stmt starts with a read keyword.
func IsReadStatement(stmt string) bool {
	return readKeywords[LeadingKeyword(stmt)]
}

// scanRows reads database/sql rows into column-keyed maps.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("getting columns: %w", err)
	}

	results := []map[string]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return results, nil
}

type indexKey struct{ table, index string }

// indexGrouper folds one-row-per-column index listings into indexes.
type indexGrouper struct {
	grouped map[indexKey]*schema.Index
	order   []indexKey
}

func (g *indexGrouper) add(table, index, column, typ string, unique bool) {
	if g.grouped == nil {
		g.grouped = make(map[indexKey]*schema.Index)
	}
	k := indexKey{table, index}
	idx, ok := g.grouped[k]
	if !ok {
		idx = &schema.Index{Name: index, Unique: unique, Type: typ}
		g.grouped[k] = idx
		g.order = append(g.order, k)
	}
	idx.Columns = append(idx.Columns, column)
}

func (g *indexGrouper) indexes() []schema.Index {
	out := make([]schema.Index, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, *g.grouped[k])
	}
	return out
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
