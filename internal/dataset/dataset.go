package dataset

import (
	"fmt"

	"github.com/google/uuid"
)

// RawTable is an unvalidated rectangular grid produced by one parser
// invocation. It has no guaranteed header row and may contain arbitrary
// metadata noise; the normalizer turns it into a Dataset.
type RawTable struct {
	Cells  [][]Cell
	Origin string
}

// Width returns the widest row in the table.
func (t *RawTable) Width() int {
	w := 0
	for _, row := range t.Cells {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// Concat appends the rows of other tables onto a single grid, keeping the
// origin of the first. Parsers that extract several table regions from one
// file use this to present a single RawTable to the normalizer.
func Concat(tables []*RawTable) *RawTable {
	if len(tables) == 0 {
		return &RawTable{}
	}
	out := &RawTable{Origin: tables[0].Origin}
	for _, t := range tables {
		out.Cells = append(out.Cells, t.Cells...)
	}
	return out
}

// Column describes one column of a Dataset.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Dataset is the single normalized active table for a session.
// Rows are aligned with Columns by index. Version changes on every
// replacement and on date coercion, so cached derivations keyed by it can
// never be served stale.
type Dataset struct {
	Columns    []Column
	Rows       [][]Cell
	SourceName string
	Version    uuid.UUID
}

// New validates the dataset invariants and assigns a fresh version.
// Column names must be non-empty and unique; no row may be entirely null.
func New(columns []Column, rows [][]Cell, sourceName string) (*Dataset, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("dataset has no columns")
	}
	seen := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("dataset has an empty column name")
		}
		if _, dup := seen[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
		allNull := true
		for _, c := range row {
			if !c.IsNull() {
				allNull = false
				break
			}
		}
		if allNull {
			return nil, fmt.Errorf("row %d is entirely null", i)
		}
	}
	return &Dataset{
		Columns:    columns,
		Rows:       rows,
		SourceName: sourceName,
		Version:    uuid.New(),
	}, nil
}

// ColumnIndex returns the position of the named column, or -1.
func (d *Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the ordered column names.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		names[i] = col.Name
	}
	return names
}

// NumericColumns returns the names of columns stored as numeric.
func (d *Dataset) NumericColumns() []string {
	var names []string
	for _, col := range d.Columns {
		if col.Kind == KindNumber {
			names = append(names, col.Name)
		}
	}
	return names
}

// IsNumeric reports whether the named column is stored as numeric.
func (d *Dataset) IsNumeric(name string) bool {
	idx := d.ColumnIndex(name)
	return idx >= 0 && d.Columns[idx].Kind == KindNumber
}

// ColumnCells returns the cells of the named column in row order.
func (d *Dataset) ColumnCells(name string) ([]Cell, bool) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	cells := make([]Cell, len(d.Rows))
	for i, row := range d.Rows {
		cells[i] = row[idx]
	}
	return cells, true
}

// NumericValues returns the non-null numeric values of a numeric column.
func (d *Dataset) NumericValues(name string) ([]float64, bool) {
	idx := d.ColumnIndex(name)
	if idx < 0 || d.Columns[idx].Kind != KindNumber {
		return nil, false
	}
	var vals []float64
	for _, row := range d.Rows {
		if v, ok := row[idx].Number(); ok {
			vals = append(vals, v)
		}
	}
	return vals, true
}

// CoerceDateColumn converts the named column to timestamps in place.
// Every non-null value must parse as a date; on partial failure the column
// is left untouched and an error is returned. This is the one mutation a
// Dataset permits after construction, and it bumps the version.
func (d *Dataset) CoerceDateColumn(name string) error {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return fmt.Errorf("column %q not found", name)
	}
	if d.Columns[idx].Kind == KindTime {
		return nil
	}
	coerced := make([]Cell, len(d.Rows))
	for i, row := range d.Rows {
		cell := row[idx]
		if cell.IsNull() {
			coerced[i] = Null()
			continue
		}
		t, ok := cell.ParseTime()
		if !ok {
			return fmt.Errorf("column %q: value %q is not a date", name, cell.String())
		}
		coerced[i] = Time(t)
	}
	for i := range d.Rows {
		d.Rows[i][idx] = coerced[i]
	}
	d.Columns[idx].Kind = KindTime
	d.Version = uuid.New()
	return nil
}

// DateCandidates returns the names of columns that currently hold
// timestamps or whose every non-null value parses as a date.
func (d *Dataset) DateCandidates() []string {
	var names []string
	for idx, col := range d.Columns {
		if col.Kind == KindTime {
			names = append(names, col.Name)
			continue
		}
		if col.Kind != KindText {
			continue
		}
		seen, ok := false, true
		for _, row := range d.Rows {
			cell := row[idx]
			if cell.IsNull() {
				continue
			}
			seen = true
			if _, parsed := cell.ParseTime(); !parsed {
				ok = false
				break
			}
		}
		if seen && ok {
			names = append(names, col.Name)
		}
	}
	return names
}
