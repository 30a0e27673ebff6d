package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/querybridge/querybridge/internal/config"
	"github.com/querybridge/querybridge/internal/docstore"
	"github.com/querybridge/querybridge/internal/schema"
	"github.com/querybridge/querybridge/internal/translate"
)

// DocumentStore is what the MongoDB backend needs from its store.
type DocumentStore interface {
	translate.Database
	Catalog(ctx context.Context, connection string) (*schema.Catalog, error)
	Describe(ctx context.Context, name string, sampleSize int) (*schema.Resource, error)
	Close(ctx context.Context) error
}

// Mongo answers requests by translating them into driver calls.
type Mongo struct {
	name     string
	store    DocumentStore
	tr       *translate.Translator
	readOnly bool
}

// NewMongo wraps an open document store.
func NewMongo(name string, store DocumentStore, readOnly bool, logger *slog.Logger) *Mongo {
	return &Mongo{
		name:     name,
		store:    store,
		tr:       translate.NewTranslator(store, logger),
		readOnly: readOnly,
	}
}

func (m *Mongo) Type() string { return config.TypeMongoDB }

func (m *Mongo) Query(ctx context.Context, text string, params []any) (*Result, error) {
	res, err := m.tr.Read(ctx, text, params)
	if err != nil {
		return nil, err
	}
	items, err := docstore.Render(res)
	if err != nil {
		return nil, fmt.Errorf("rendering result: %w", err)
	}
	return &Result{Items: items}, nil
}

func (m *Mongo) Execute(ctx context.Context, text string, params []any) (*Result, error) {
	if m.readOnly {
		return nil, ErrReadOnly
	}
	sum, err := m.tr.Write(ctx, text, params)
	if err != nil {
		return nil, err
	}
	item, err := docstore.RenderSummary(sum)
	if err != nil {
		return nil, fmt.Errorf("rendering summary: %w", err)
	}
	return &Result{Items: []json.RawMessage{item}, Affected: sum.Affected()}, nil
}

func (m *Mongo) Resources(ctx context.Context) (*schema.Catalog, error) {
	return m.store.Catalog(ctx, m.name)
}

// Describe samples documents to report the fields of a collection.
func (m *Mongo) Describe(ctx context.Context, name string) (*schema.Resource, error) {
	return m.store.Describe(ctx, name, docstore.DefaultSampleSize)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.store.Close(ctx)
}
