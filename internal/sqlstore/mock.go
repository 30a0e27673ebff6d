package sqlstore

import (
	"context"
	"fmt"

	"github.com/querybridge/querybridge/internal/schema"
)

// MockStore is a test double for the Store interface.
type MockStore struct {
	ConnectErr error

	Rows     []map[string]any
	QueryErr error
	Affected int64
	ExecErr  error

	Catalogs    *schema.Catalog
	CatalogErr  error
	Resources   map[string]*schema.Resource
	DescribeErr error

	// Track calls
	Queries   []string
	Execs     []string
	Args      [][]any
	Connected bool
	Closed    bool
}

func (m *MockStore) Connect(_ context.Context) error {
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.Connected = true
	return nil
}

func (m *MockStore) QueryRows(_ context.Context, sql string, args ...any) ([]map[string]any, error) {
	m.Queries = append(m.Queries, sql)
	m.Args = append(m.Args, args)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return m.Rows, nil
}

func (m *MockStore) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	m.Execs = append(m.Execs, sql)
	m.Args = append(m.Args, args)
	if m.ExecErr != nil {
		return 0, m.ExecErr
	}
	return m.Affected, nil
}

func (m *MockStore) Catalog(_ context.Context, connection string) (*schema.Catalog, error) {
	if m.CatalogErr != nil {
		return nil, m.CatalogErr
	}
	if m.Catalogs == nil {
		return &schema.Catalog{Connection: connection, Type: "mock"}, nil
	}
	cat := *m.Catalogs
	cat.Connection = connection
	return &cat, nil
}

func (m *MockStore) Describe(_ context.Context, table string) (*schema.Resource, error) {
	if m.DescribeErr != nil {
		return nil, m.DescribeErr
	}
	if r, ok := m.Resources[table]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("table %s not found", table)
}

func (m *MockStore) Close() error {
	m.Closed = true
	return nil
}
