package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/querybridge/querybridge/internal/schema"
)

// MockBackend is a test double for the Backend interface.
type MockBackend struct {
	TypeName string

	QueryResult   *Result
	QueryErr      error
	ExecuteResult *Result
	ExecuteErr    error

	Catalog     *schema.Catalog
	ResourceErr error
	Resource    map[string]*schema.Resource

	mu sync.Mutex
	// Track calls
	Queries  []string
	Executes []string
	Params   [][]any
	Closed   bool
}

func (m *MockBackend) Type() string {
	if m.TypeName == "" {
		return "mock"
	}
	return m.TypeName
}

func (m *MockBackend) Query(_ context.Context, text string, params []any) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, text)
	m.Params = append(m.Params, params)
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	if m.QueryResult == nil {
		return &Result{}, nil
	}
	return m.QueryResult, nil
}

func (m *MockBackend) Execute(_ context.Context, text string, params []any) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Executes = append(m.Executes, text)
	m.Params = append(m.Params, params)
	if m.ExecuteErr != nil {
		return nil, m.ExecuteErr
	}
	if m.ExecuteResult == nil {
		return &Result{}, nil
	}
	return m.ExecuteResult, nil
}

func (m *MockBackend) Resources(_ context.Context) (*schema.Catalog, error) {
	if m.ResourceErr != nil {
		return nil, m.ResourceErr
	}
	if m.Catalog == nil {
		return &schema.Catalog{Type: m.Type()}, nil
	}
	return m.Catalog, nil
}

func (m *MockBackend) Describe(_ context.Context, name string) (*schema.Resource, error) {
	if m.ResourceErr != nil {
		return nil, m.ResourceErr
	}
	if r, ok := m.Resource[name]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("resource %s not found", name)
}

func (m *MockBackend) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}
