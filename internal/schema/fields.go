package schema

import "sort"

// FieldType is one top-level field of a sampled document.
type FieldType struct {
	Name string
	Type string
}

// FieldStats accumulates the fields seen across sampled documents, in
// first-seen order.
type FieldStats struct {
	docs   int
	order  []string
	fields map[string]*fieldStat
}

type fieldStat struct {
	seen  int
	types map[string]bool
}

// NewFieldStats creates an empty accumulator.
func NewFieldStats() *FieldStats {
	return &FieldStats{fields: make(map[string]*fieldStat)}
}

// Document records the fields of one sampled document.
func (s *FieldStats) Document(fields ...FieldType) {
	s.docs++
	for _, f := range fields {
		st, ok := s.fields[f.Name]
		if !ok {
			st = &fieldStat{types: make(map[string]bool)}
			s.fields[f.Name] = st
			s.order = append(s.order, f.Name)
		}
		st.seen++
		st.types[f.Type] = true
	}
}

// Documents returns how many documents were recorded.
func (s *FieldStats) Documents() int { return s.docs }

// Columns reports every field. A field missing from some documents, or
// seen holding null, is nullable. Fields with several types report
// DataType "mixed".
func (s *FieldStats) Columns() []Column {
	cols := make([]Column, 0, len(s.order))
	for _, name := range s.order {
		st := s.fields[name]
		types := make([]string, 0, len(st.types))
		for t := range st.types {
			types = append(types, t)
		}
		sort.Strings(types)

		col := Column{
			Name:     name,
			Nullable: st.seen < s.docs || st.types["null"],
			Types:    types,
			Seen:     st.seen,
		}
		if len(types) == 1 {
			col.DataType = types[0]
		} else {
			col.DataType = "mixed"
		}
		cols = append(cols, col)
	}
	return cols
}
