// Package normalizer recovers a clean tabular schema from a raw parsed
// grid: it locates the real header row beneath any title or metadata
// noise, cleans up column names, and coerces columns to numeric where
// every value allows it.
package normalizer

import (
	"fmt"
	"log/slog"
	"strings"

	"salesinsights/internal/dataset"
	"salesinsights/internal/errors"
)

// unnamedPrefix is the placeholder spreadsheet readers emit for columns
// without a header cell. Names carrying it are replaced with synthetic ones.
const unnamedPrefix = "Unnamed"

// Normalizer turns raw tables into datasets.
type Normalizer struct {
	logger *slog.Logger
}

// New creates a normalizer.
func New(logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{
		logger: logger.With(slog.String("component", "normalizer")),
	}
}

// Normalize converts a raw table into a Dataset, or fails with an
// EmptyTableError when nothing analyzable survives.
//
// A table that yields a header but no data rows is a failure, not a
// zero-row dataset: installing it would silently clear the user's
// previous data while giving them nothing to analyze.
func (n *Normalizer) Normalize(raw *dataset.RawTable) (*dataset.Dataset, error) {
	grid := pad(raw.Cells, raw.Width())
	grid = dropNullRows(grid)
	grid = dropNullColumns(grid)
	if len(grid) == 0 || len(grid[0]) == 0 {
		return nil, errors.NewEmptyTableError("no data found in file")
	}

	headerRow := detectHeaderRow(grid)
	names := columnNames(grid[headerRow])
	body := grid[headerRow+1:]
	body = dropNullRows(body)
	if len(body) == 0 {
		return nil, errors.NewEmptyTableError("file contains a header but no data rows")
	}

	names, body = dropDuplicateColumns(names, body)

	columns := make([]dataset.Column, len(names))
	for i, name := range names {
		columns[i] = dataset.Column{Name: name, Kind: coerceColumn(body, i)}
	}

	ds, err := dataset.New(columns, body, raw.Origin)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrTypeEmptyTable,
			"normalized table violates dataset invariants", err)
	}

	n.logger.Info("normalized table",
		slog.String("origin", raw.Origin),
		slog.Int("header_row", headerRow),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("columns", len(ds.Columns)))

	return ds, nil
}

// pad extends ragged rows with null cells so every row has the same width.
func pad(rows [][]dataset.Cell, width int) [][]dataset.Cell {
	out := make([][]dataset.Cell, len(rows))
	for i, row := range rows {
		padded := make([]dataset.Cell, width)
		copy(padded, row)
		for j := len(row); j < width; j++ {
			padded[j] = dataset.Null()
		}
		out[i] = padded
	}
	return out
}

func dropNullRows(rows [][]dataset.Cell) [][]dataset.Cell {
	var out [][]dataset.Cell
	for _, row := range rows {
		for _, c := range row {
			if !c.IsNull() {
				out = append(out, row)
				break
			}
		}
	}
	return out
}

func dropNullColumns(rows [][]dataset.Cell) [][]dataset.Cell {
	if len(rows) == 0 {
		return rows
	}
	width := len(rows[0])
	keep := make([]bool, width)
	for j := 0; j < width; j++ {
		for _, row := range rows {
			if !row[j].IsNull() {
				keep[j] = true
				break
			}
		}
	}
	out := make([][]dataset.Cell, len(rows))
	for i, row := range rows {
		kept := make([]dataset.Cell, 0, width)
		for j, c := range row {
			if keep[j] {
				kept = append(kept, c)
			}
		}
		out[i] = kept
	}
	return out
}

// detectHeaderRow scores every row by its count of non-null cells and
// selects the first row with the maximum count. Title and metadata rows
// above the real header are sparser, so the densest row wins.
func detectHeaderRow(rows [][]dataset.Cell) int {
	best, bestCount := 0, -1
	for i, row := range rows {
		count := 0
		for _, c := range row {
			if !c.IsNull() {
				count++
			}
		}
		if count > bestCount {
			best, bestCount = i, count
		}
	}
	return best
}

// columnNames promotes a header row to column names. Blank names and
// placeholder names from unnamed-column inference are replaced with
// positional synthetic names so every column stays distinguishable.
func columnNames(header []dataset.Cell) []string {
	names := make([]string, len(header))
	for i, c := range header {
		name := strings.TrimSpace(c.String())
		if name == "" || strings.HasPrefix(name, unnamedPrefix) {
			name = fmt.Sprintf("Column_%d", i)
		}
		names[i] = name
	}
	return names
}

// dropDuplicateColumns keeps the first occurrence of each column name.
func dropDuplicateColumns(names []string, rows [][]dataset.Cell) ([]string, [][]dataset.Cell) {
	seen := make(map[string]struct{}, len(names))
	keep := make([]bool, len(names))
	var outNames []string
	dropped := false
	for i, name := range names {
		if _, dup := seen[name]; dup {
			dropped = true
			continue
		}
		seen[name] = struct{}{}
		keep[i] = true
		outNames = append(outNames, name)
	}
	if !dropped {
		return names, rows
	}
	outRows := make([][]dataset.Cell, len(rows))
	for i, row := range rows {
		kept := make([]dataset.Cell, 0, len(outNames))
		for j, c := range row {
			if j < len(keep) && keep[j] {
				kept = append(kept, c)
			}
		}
		outRows[i] = kept
	}
	return outNames, outRows
}

// coerceColumn decides the stored kind of column j and rewrites its cells
// in place. Numeric coercion is all-or-nothing: if every non-null value
// parses as a number the column becomes numeric, otherwise the original
// values are preserved untouched. A partial failure never raises.
func coerceColumn(rows [][]dataset.Cell, j int) dataset.Kind {
	numeric, timestamps := true, true
	seen := false
	for _, row := range rows {
		c := row[j]
		if c.IsNull() {
			continue
		}
		seen = true
		if _, ok := c.ParseNumber(); !ok {
			numeric = false
		}
		if _, ok := c.Time(); !ok {
			timestamps = false
		}
		if !numeric && !timestamps {
			break
		}
	}
	if !seen {
		return dataset.KindText
	}
	if numeric {
		for _, row := range rows {
			if row[j].IsNull() {
				continue
			}
			v, _ := row[j].ParseNumber()
			row[j] = dataset.Number(v)
		}
		return dataset.KindNumber
	}
	if timestamps {
		return dataset.KindTime
	}
	return dataset.KindText
}
