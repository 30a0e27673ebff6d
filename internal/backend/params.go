package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseParams decodes a JSON array of positional parameters.
func ParseParams(data []byte) ([]any, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var params []any
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("params must be a JSON array: %w", err)
	}
	return NormalizeParams(params), nil
}

// NormalizeParams replaces json.Number values in place with int64 when
// integral and float64 otherwise, so drivers bind concrete types.
func NormalizeParams(params []any) []any {
	for i, p := range params {
		params[i] = normalizeParam(p)
	}
	return params
}

func normalizeParam(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case []any:
		return NormalizeParams(n)
	case map[string]any:
		for k := range n {
			n[k] = normalizeParam(n[k])
		}
		return n
	default:
		return v
	}
}
