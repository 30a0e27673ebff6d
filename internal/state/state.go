// Package state persists console history between sessions.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/querybridge/querybridge/internal/config"
)

const DefaultPath = "~/.querybridge/state.yaml"

// MaxEntries bounds the history kept per connection.
const MaxEntries = 100

// State is what the console remembers across runs.
type State struct {
	LastUpdated    time.Time           `yaml:"last_updated"`
	LastConnection string              `yaml:"last_connection,omitempty"`
	History        map[string][]string `yaml:"history,omitempty"` // connection -> oldest first
}

// Load reads the state from disk. A missing file yields empty state.
func Load(path string) (*State, error) {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	s := &State{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	if s.History == nil {
		s.History = make(map[string][]string)
	}
	return s, nil
}

// Save writes the state to disk. History may hold credentials typed into
// queries, so the file is private.
func (s *State) Save(path string) error {
	if path == "" {
		path = config.ExpandHome(DefaultPath)
	}

	s.LastUpdated = time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// New creates empty state.
func New() *State {
	return &State{
		LastUpdated: time.Now(),
		History:     make(map[string][]string),
	}
}

// Entries returns the history of one connection, oldest first.
func (s *State) Entries(connection string) []string {
	return append([]string(nil), s.History[connection]...)
}

// SetEntries replaces the history of one connection, keeping the newest
// MaxEntries.
func (s *State) SetEntries(connection string, entries []string) {
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}
	s.History[connection] = append([]string(nil), entries...)
	s.LastConnection = connection
}
