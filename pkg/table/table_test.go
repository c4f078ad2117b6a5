package table

import (
	"encoding/json"
	"testing"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

func TestNew_EmptyTable(t *testing.T) {
	tbl := New([]string{"a", "b"})
	if tbl.RowCount() != 0 {
		t.Fatalf("expected 0 rows, got %d", tbl.RowCount())
	}
	if len(tbl.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(tbl.Columns))
	}
}

func TestAddRow_FixesColumnOrderFromFirstRow(t *testing.T) {
	var tbl Table
	tbl.AddRow(Row{"z": 1, "a": 2})
	if len(tbl.Columns) != 2 {
		t.Fatalf("expected 2 columns fixed from first row, got %d", len(tbl.Columns))
	}
	tbl.AddRow(Row{"z": 3, "a": 4})
	if tbl.RowCount() != 2 {
		t.Fatalf("expected 2 rows, got %d", tbl.RowCount())
	}
}

func TestFromOrderedRows_PreservesJSONKeyOrder(t *testing.T) {
	raw := `[{"zeta": 1, "alpha": 2, "mid": 3}]`
	var rows []*orderedmap.OrderedMap[string, any]
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	tbl := FromOrderedRows(rows)

	want := []string{"zeta", "alpha", "mid"}
	if len(tbl.Columns) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(tbl.Columns))
	}
	for i, col := range want {
		if tbl.Columns[i] != col {
			t.Fatalf("column %d: expected %q, got %q", i, col, tbl.Columns[i])
		}
	}
}

func TestFromOrderedRows_Empty(t *testing.T) {
	tbl := FromOrderedRows(nil)
	if tbl.RowCount() != 0 {
		t.Fatalf("expected 0 rows, got %d", tbl.RowCount())
	}
	if tbl.Columns == nil {
		t.Fatal("expected a non-nil empty Columns slice")
	}
}

func TestToRows_RoundTrips(t *testing.T) {
	tbl := FromRows([]map[string]any{
		{"a": 1, "b": "x"},
		{"a": 2, "b": "y"},
	})
	rows := tbl.ToRows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1]["b"] != "y" {
		t.Fatalf("expected row[1].b = y, got %v", rows[1]["b"])
	}
}
