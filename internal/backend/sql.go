package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/querybridge/querybridge/internal/schema"
	"github.com/querybridge/querybridge/internal/sqlstore"
)

// SQL passes statement text and positional parameters to a relational
// store.
type SQL struct {
	name     string
	typ      string
	store    sqlstore.Store
	readOnly bool
	logger   *slog.Logger
}

// NewSQL wraps an open relational store.
func NewSQL(name, typ string, store sqlstore.Store, readOnly bool, logger *slog.Logger) *SQL {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQL{name: name, typ: typ, store: store, readOnly: readOnly, logger: logger}
}

func (s *SQL) Type() string { return s.typ }

// Query runs a statement whose leading keyword marks it as a read.
func (s *SQL) Query(ctx context.Context, text string, params []any) (*Result, error) {
	if !sqlstore.IsReadStatement(text) {
		return nil, fmt.Errorf("%w: leading keyword %q", ErrNotReadStatement, sqlstore.LeadingKeyword(text))
	}
	rows, err := s.store.QueryRows(ctx, text, params...)
	if err != nil {
		return nil, err
	}
	items := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("encoding row: %w", err)
		}
		items = append(items, b)
	}
	s.logger.Debug("query complete", "rows", len(items))
	return &Result{Items: items}, nil
}

func (s *SQL) Execute(ctx context.Context, text string, params []any) (*Result, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}
	n, err := s.store.Exec(ctx, text, params...)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("execute complete", "affected", n)
	return &Result{Items: []json.RawMessage{}, Affected: n}, nil
}

func (s *SQL) Resources(ctx context.Context) (*schema.Catalog, error) {
	return s.store.Catalog(ctx, s.name)
}

func (s *SQL) Describe(ctx context.Context, name string) (*schema.Resource, error) {
	return s.store.Describe(ctx, name)
}

func (s *SQL) Close(_ context.Context) error {
	return s.store.Close()
}
