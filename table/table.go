// Package table holds the in-memory data model shared by the fetch, clean and
// storage stages: raw API records and the flat columnar table derived from
// them.
package table

import (
	"sort"
	"strconv"
)

// Record is one raw product entry as returned by the API. There is no fixed
// schema; every field is potentially absent, and values keep whatever shape
// the JSON decoder gave them (string, float64, bool, []any, ...).
type Record map[string]any

// RecordSet is the ordered sequence of Records accumulated across pages.
type RecordSet []Record

// Row is one table row; cells line up with Table.Cols. A nil cell is a null.
type Row []any

// Table is a two-dimensional structure with named columns.
type Table struct {
	Cols []string
	Rows []Row
}

// Kind classifies a column for the cleaning rules.
type Kind int

const (
	// KindNumber covers columns whose non-null cells are all numeric, and
	// all-null columns (they behave like an empty numeric column: median
	// undefined, filled with 0).
	KindNumber Kind = iota
	KindText
)

// FromRecords flattens a RecordSet into a Table. Column order is the
// preferred list first (only the names that actually occur), then any extra
// fields sorted by name. Fields missing from a record become nil cells.
func FromRecords(rs RecordSet, preferred []string) *Table {
	present := make(map[string]bool)
	for _, rec := range rs {
		for k := range rec {
			present[k] = true
		}
	}

	cols := make([]string, 0, len(present))
	for _, name := range preferred {
		if present[name] {
			cols = append(cols, name)
			delete(present, name)
		}
	}
	extra := make([]string, 0, len(present))
	for name := range present {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	cols = append(cols, extra...)

	t := &Table{Cols: cols, Rows: make([]Row, 0, len(rs))}
	for _, rec := range rs {
		row := make(Row, len(cols))
		for i, name := range cols {
			if v, ok := rec[name]; ok {
				row[i] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.Cols) }

// ColIndex returns the index of the named column, or -1.
func (t *Table) ColIndex(name string) int {
	for i, c := range t.Cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all cells of column j in row order.
func (t *Table) Column(j int) []any {
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out
}

// ColKind infers the kind of column j from its current cells.
func (t *Table) ColKind(j int) Kind {
	for _, row := range t.Rows {
		v := row[j]
		if v == nil {
			continue
		}
		if _, ok := AsNumber(v); !ok {
			return KindText
		}
	}
	return KindNumber
}

// Clone returns a deep-enough copy: new row slices, shared immutable cells.
func (t *Table) Clone() *Table {
	cols := make([]string, len(t.Cols))
	copy(cols, t.Cols)
	rows := make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		r := make(Row, len(row))
		copy(r, row)
		rows[i] = r
	}
	return &Table{Cols: cols, Rows: rows}
}

// AsNumber reports the cell value as a float64 if it is numeric. Numeric
// strings do not count; rule 7 of the cleaner parses those explicitly.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Stringify renders a scalar cell the way the cleaned table stores text.
// Floats keep the shortest round-trip form ("2" not "2.000000").
func Stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	default:
		if f, ok := AsNumber(v); ok {
			// 'f' keeps barcodes out of scientific notation.
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return ""
	}
}
