package translate

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MockDatabase is a test double for the Database interface. Collections
// are created on first use unless Strict is set.
type MockDatabase struct {
	Collections map[string]*MockCollection
	Strict      bool

	CommandResult bson.Raw
	CommandErr    error

	// Track calls
	Commands []bson.D
}

// Collection returns the named mock collection.
func (m *MockDatabase) Collection(name string) (Collection, error) {
	if m.Collections == nil {
		m.Collections = make(map[string]*MockCollection)
	}
	c, ok := m.Collections[name]
	if !ok {
		if m.Strict {
			return nil, fmt.Errorf("collection %q not found", name)
		}
		c = &MockCollection{}
		m.Collections[name] = c
	}
	return c, nil
}

func (m *MockDatabase) RunCommand(_ context.Context, cmd bson.D) (bson.Raw, error) {
	m.Commands = append(m.Commands, cmd)
	return m.CommandResult, m.CommandErr
}

// StoreCalls counts every primitive and command issued through m.
func (m *MockDatabase) StoreCalls() int {
	n := len(m.Commands)
	for _, c := range m.Collections {
		n += len(c.Calls)
	}
	return n
}

// MockCall records one primitive call.
type MockCall struct {
	Method string
	Args   []any
}

// MockCollection is a test double for the Collection interface.
type MockCollection struct {
	Docs    []bson.Raw
	Doc     bson.Raw
	Count   int64
	Values  []any
	Summary *WriteSummary
	Err     error

	// Track calls
	Calls []MockCall
}

func (m *MockCollection) record(method string, args ...any) {
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// Last returns the most recent call, or the zero call.
func (m *MockCollection) Last() MockCall {
	if len(m.Calls) == 0 {
		return MockCall{}
	}
	return m.Calls[len(m.Calls)-1]
}

func (m *MockCollection) summary() (*WriteSummary, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Summary == nil {
		return &WriteSummary{}, nil
	}
	return m.Summary, nil
}

func (m *MockCollection) Find(_ context.Context, filter any, opts FindOptions) ([]bson.Raw, error) {
	m.record("find", filter, opts)
	return m.Docs, m.Err
}

func (m *MockCollection) FindOne(_ context.Context, filter any, opts FindOptions) (bson.Raw, error) {
	m.record("findOne", filter, opts)
	return m.Doc, m.Err
}

func (m *MockCollection) Aggregate(_ context.Context, stages []bson.D) ([]bson.Raw, error) {
	m.record("aggregate", stages)
	return m.Docs, m.Err
}

func (m *MockCollection) CountDocuments(_ context.Context, filter any) (int64, error) {
	m.record("countDocuments", filter)
	return m.Count, m.Err
}

func (m *MockCollection) Distinct(_ context.Context, field string, filter any) ([]any, error) {
	m.record("distinct", field, filter)
	return m.Values, m.Err
}

func (m *MockCollection) InsertOne(_ context.Context, doc any) (*WriteSummary, error) {
	m.record("insertOne", doc)
	return m.summary()
}

func (m *MockCollection) InsertMany(_ context.Context, docs []any) (*WriteSummary, error) {
	m.record("insertMany", docs)
	return m.summary()
}

func (m *MockCollection) UpdateOne(_ context.Context, filter, update any, opts UpdateOptions) (*WriteSummary, error) {
	m.record("updateOne", filter, update, opts)
	return m.summary()
}

func (m *MockCollection) UpdateMany(_ context.Context, filter, update any, opts UpdateOptions) (*WriteSummary, error) {
	m.record("updateMany", filter, update, opts)
	return m.summary()
}

func (m *MockCollection) ReplaceOne(_ context.Context, filter, replacement any, opts UpdateOptions) (*WriteSummary, error) {
	m.record("replaceOne", filter, replacement, opts)
	return m.summary()
}

func (m *MockCollection) DeleteOne(_ context.Context, filter any) (*WriteSummary, error) {
	m.record("deleteOne", filter)
	return m.summary()
}

func (m *MockCollection) DeleteMany(_ context.Context, filter any) (*WriteSummary, error) {
	m.record("deleteMany", filter)
	return m.summary()
}
