// Package backend puts every configured store behind one interface so the
// command line, the console and the HTTP surface do not care which engine
// answers.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/querybridge/querybridge/internal/config"
	"github.com/querybridge/querybridge/internal/docstore"
	"github.com/querybridge/querybridge/internal/schema"
	"github.com/querybridge/querybridge/internal/sqlstore"
)

var (
	// ErrUnknownConnection is returned for a name the config does not define.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrReadOnly is returned by Execute on a read-only connection.
	ErrReadOnly = errors.New("connection is read-only")
	// ErrNotReadStatement is returned by Query for SQL that may write.
	ErrNotReadStatement = errors.New("statement is not a read")
)

// Result is the uniform answer of Query and Execute. Items are JSON
// documents; Affected counts rows or documents changed by a write.
type Result struct {
	Items    []json.RawMessage `json:"items"`
	Affected int64             `json:"affected,omitempty"`
}

// Backend is one open connection.
type Backend interface {
	// Type is the configured connection type.
	Type() string
	Query(ctx context.Context, text string, params []any) (*Result, error)
	Execute(ctx context.Context, text string, params []any) (*Result, error)
	Resources(ctx context.Context) (*schema.Catalog, error)
	Describe(ctx context.Context, name string) (*schema.Resource, error)
	Close(ctx context.Context) error
}

// Opener opens a backend for a connection.
type Opener func(ctx context.Context, conn config.Connection, logger *slog.Logger) (Backend, error)

// Open connects to the store a connection describes.
func Open(ctx context.Context, conn config.Connection, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("connection", conn.Name)

	switch conn.Type {
	case config.TypeMongoDB:
		store, err := docstore.Connect(ctx, conn.DSN(), conn.Database, uint64(conn.MaxConnections))
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", conn.Name, err)
		}
		return NewMongo(conn.Name, store, conn.ReadOnly, logger), nil
	case config.TypePostgreSQL, config.TypeOracle, config.TypeSQLite:
		var store sqlstore.Store
		switch conn.Type {
		case config.TypePostgreSQL:
			store = sqlstore.NewPostgres(conn.DSN(), conn.Schema, conn.MaxConnections)
		case config.TypeOracle:
			store = sqlstore.NewOracle(conn.DSN(), conn.Schema, conn.MaxConnections)
		default:
			store = sqlstore.NewSQLite(conn.Path, conn.ReadOnly)
		}
		if err := store.Connect(ctx); err != nil {
			return nil, fmt.Errorf("opening %s: %w", conn.Name, err)
		}
		return NewSQL(conn.Name, conn.Type, store, conn.ReadOnly, logger), nil
	default:
		return nil, fmt.Errorf("opening %s: unsupported type %q", conn.Name, conn.Type)
	}
}
