// Package table implements an ordered-column, ordered-row, nullable-cell
// in-memory table shared between the host and sandboxed user code. No
// third-party dataframe library for Go exists to bind into the sandbox
// environment, so this is a first-party minimal stand-in; see DESIGN.md.
package table

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Row is a single table row, keyed by column name. Cell values are
// JSON-representable primitives: bool, int64, float64, string, nil, or
// time.Time (serialized as an ISO-8601 string at the wire boundary).
type Row map[string]any

// Table is an ordered-column, ordered-row tabular value.
type Table struct {
	Columns []string
	Rows    []Row
}

// New creates an empty table with a declared column order.
func New(columns []string) Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return Table{Columns: cols, Rows: []Row{}}
}

// AddRow appends a row. If the table was created without a declared column
// order (New(nil) or the zero Table), the first row added fixes the column
// order.
func (t *Table) AddRow(row Row) {
	if len(t.Columns) == 0 {
		t.Columns = keysOf(row)
	}
	t.Rows = append(t.Rows, row)
}

// FromRows builds a Table from a list of row mappings, fixing the column
// order to the first row's key order. Go's map[string]any has no recoverable
// key order, so this constructor is for programmatic/test use where exact
// column order doesn't matter; the JSON request boundary uses
// FromOrderedRows instead, which preserves the wire order exactly.
func FromRows(rows []map[string]any) Table {
	t := Table{Rows: make([]Row, 0, len(rows))}
	for i, r := range rows {
		if i == 0 {
			t.Columns = keysOf(r)
		}
		t.Rows = append(t.Rows, Row(r))
	}
	if t.Columns == nil {
		t.Columns = []string{}
	}
	return t
}

// FromOrderedRows builds a Table from JSON-decoded rows that preserve
// per-object key order, fixing the column order to the first row's key
// order.
func FromOrderedRows(rows []*orderedmap.OrderedMap[string, any]) Table {
	t := Table{Rows: make([]Row, 0, len(rows))}
	for i, om := range rows {
		row := make(Row, om.Len())
		keys := make([]string, 0, om.Len())
		for pair := om.Oldest(); pair != nil; pair = pair.Next() {
			row[pair.Key] = pair.Value
			keys = append(keys, pair.Key)
		}
		if i == 0 {
			t.Columns = keys
		}
		t.Rows = append(t.Rows, row)
	}
	if t.Columns == nil {
		t.Columns = []string{}
	}
	return t
}

// ToRows serializes the table back to row mappings in insertion order, for
// the wire boundary.
func (t Table) ToRows() []map[string]any {
	out := make([]map[string]any, 0, len(t.Rows))
	for _, r := range t.Rows {
		out = append(out, map[string]any(r))
	}
	return out
}

// RowCount reports the number of rows.
func (t Table) RowCount() int {
	return len(t.Rows)
}

func keysOf(row map[string]any) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	return cols
}
