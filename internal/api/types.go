package api

import (
	"encoding/json"
)

// ToolRequest is the body of the query, execute and translate endpoints.
type ToolRequest struct {
	Query  string `json:"query"`
	Params []any  `json:"params,omitempty"`
	// Mode is read or write; only the translate preview uses it.
	Mode string `json:"mode,omitempty"`
}

// ToolResponse is the answer of the query and execute endpoints.
type ToolResponse struct {
	Connection string            `json:"connection"`
	Items      []json.RawMessage `json:"items"`
	Count      int               `json:"count"`
	Affected   int64             `json:"affected,omitempty"`
	RequestID  string            `json:"request_id"`
	DurationMS int64             `json:"duration_ms"`
}

// TranslateResponse previews the canonical command for a request.
type TranslateResponse struct {
	Route      string          `json:"route"`
	Collection string          `json:"collection,omitempty"`
	Method     string          `json:"method"`
	Command    json.RawMessage `json:"command"`
}

// ConnectionResponse describes one configured connection.
type ConnectionResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Default  bool   `json:"default"`
	Open     bool   `json:"open"`
	ReadOnly bool   `json:"read_only"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
