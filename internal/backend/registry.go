package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/querybridge/querybridge/internal/config"
)

// Registry holds the configured connections and opens each one on first
// use. It is safe for concurrent use.
type Registry struct {
	conns   map[string]config.Connection
	names   []string
	def     string
	open    Opener
	logger  *slog.Logger
	entries *xsync.MapOf[string, *entry]
}

type entry struct {
	mu      sync.Mutex
	backend Backend
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithOpener replaces the function used to open connections.
func WithOpener(open Opener) RegistryOption {
	return func(r *Registry) { r.open = open }
}

// WithLogger sets the logger handed to opened backends.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates a registry over the connections in cfg.
func NewRegistry(cfg *config.Config, opts ...RegistryOption) *Registry {
	r := &Registry{
		conns:   make(map[string]config.Connection, len(cfg.Connections)),
		def:     cfg.DefaultConnection,
		open:    Open,
		logger:  slog.Default(),
		entries: xsync.NewMapOf[string, *entry](),
	}
	for _, c := range cfg.Connections {
		r.conns[c.Name] = c
		r.names = append(r.names, c.Name)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names returns connection names in config order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

// Default returns the default connection name.
func (r *Registry) Default() string { return r.def }

// Connection returns the config of a named connection; an empty name means
// the default.
func (r *Registry) Connection(name string) (config.Connection, bool) {
	if name == "" {
		name = r.def
	}
	c, ok := r.conns[name]
	return c, ok
}

// Open reports whether the named connection has been opened.
func (r *Registry) Open(name string) bool {
	e, ok := r.entries.Load(name)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend != nil
}

// Get returns the backend for name, opening it if needed. A failed open is
// not remembered, so the next call tries again.
func (r *Registry) Get(ctx context.Context, name string) (Backend, error) {
	conn, ok := r.Connection(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, name)
	}

	e, _ := r.entries.LoadOrStore(conn.Name, &entry{})
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend != nil {
		return e.backend, nil
	}

	b, err := r.open(ctx, conn, r.logger)
	if err != nil {
		return nil, err
	}
	r.logger.Info("connection opened", "connection", conn.Name, "type", conn.Type)
	e.backend = b
	return b, nil
}

// Close closes every opened backend and reports all failures together.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	r.entries.Range(func(name string, e *entry) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.backend == nil {
			return true
		}
		if err := e.backend.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
		e.backend = nil
		return true
	})
	return errors.Join(errs...)
}
