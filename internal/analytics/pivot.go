package analytics

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"salesinsights/internal/dataset"
	"salesinsights/internal/errors"
)

// MarginLabel names the trailing aggregate row and column of a pivot.
// A data group whose key equals this label is suffixed with " (group)"
// so it stays distinct from the margin.
const MarginLabel = "All"

// PivotSpec describes a pivot-table request. Row and column fields may
// both be empty; the value field and aggregation are required.
type PivotSpec struct {
	RowFields    []string `json:"row_fields"`
	ColumnFields []string `json:"column_fields"`
	ValueField   string   `json:"value_field" validate:"required"`
	Aggregation  string   `json:"aggregation" validate:"required,oneof=sum mean median count min max std"`
}

// fingerprint identifies the spec inside the memo cache.
func (s PivotSpec) fingerprint() string {
	return fmt.Sprintf("pivot|%s|%s|%s|%s",
		strings.Join(s.RowFields, "\x1f"),
		strings.Join(s.ColumnFields, "\x1f"),
		s.ValueField, s.Aggregation)
}

// PivotResult is a cross-tabulation. RowKeys and ColumnKeys end with the
// margin label; Values is indexed [row][column] and missing cells hold
// zero.
type PivotResult struct {
	RowFields    []string    `json:"row_fields"`
	ColumnFields []string    `json:"column_fields"`
	RowKeys      []string    `json:"row_keys"`
	ColumnKeys   []string    `json:"column_keys"`
	Values       [][]float64 `json:"values"`
}

type aggregator func([]float64) float64

var aggregators = map[string]aggregator{
	"sum": func(vals []float64) float64 {
		s := 0.0
		for _, v := range vals {
			s += v
		}
		return s
	},
	"mean":   func(vals []float64) float64 { return stat.Mean(vals, nil) },
	"median": aggMedian,
	"count":  func(vals []float64) float64 { return float64(len(vals)) },
	"min":    aggMin,
	"max":    aggMax,
	// std is the population standard deviation, not the sample one used
	// by the summary statistics.
	"std": func(vals []float64) float64 {
		if len(vals) < 2 {
			return 0
		}
		return stat.PopStdDev(vals, nil)
	},
}

func aggMedian(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return median(sorted)
}

func aggMin(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func aggMax(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Pivot builds a cross-tabulation of the value field grouped by the row
// and column fields, with margin aggregates computed using the same
// aggregation function over the underlying values.
func (e *Engine) Pivot(ds *dataset.Dataset, spec PivotSpec) (*PivotResult, error) {
	v, err := e.memo(ds.Version, spec.fingerprint(), func() (interface{}, error) {
		return computePivot(ds, spec)
	})
	if err != nil {
		return nil, err
	}
	return v.(*PivotResult), nil
}

func computePivot(ds *dataset.Dataset, spec PivotSpec) (*PivotResult, error) {
	agg, ok := aggregators[spec.Aggregation]
	if !ok {
		return nil, errors.NewPivotError(
			fmt.Sprintf("unknown aggregation %q", spec.Aggregation), nil)
	}

	valueIdx := ds.ColumnIndex(spec.ValueField)
	if valueIdx < 0 {
		return nil, errors.NewPivotError(
			fmt.Sprintf("value field %q not found", spec.ValueField), nil)
	}
	if spec.Aggregation != "count" && !ds.IsNumeric(spec.ValueField) {
		return nil, errors.NewPivotError(
			fmt.Sprintf("value field %q is not numeric", spec.ValueField), nil)
	}

	groupIdx := func(fields []string) ([]int, error) {
		indices := make([]int, len(fields))
		for i, f := range fields {
			idx := ds.ColumnIndex(f)
			if idx < 0 {
				return nil, errors.NewPivotError(
					fmt.Sprintf("grouping field %q not found", f), nil)
			}
			indices[i] = idx
		}
		return indices, nil
	}
	rowIdx, err := groupIdx(spec.RowFields)
	if err != nil {
		return nil, err
	}
	colIdx, err := groupIdx(spec.ColumnFields)
	if err != nil {
		return nil, err
	}

	key := func(row []dataset.Cell, indices []int) string {
		if len(indices) == 0 {
			return MarginLabel
		}
		parts := make([]string, len(indices))
		for i, idx := range indices {
			parts[i] = row[idx].String()
		}
		k := strings.Join(parts, " / ")
		if k == MarginLabel {
			k += " (group)"
		}
		return k
	}

	// Bucket values by (row key, column key). The count aggregation counts
	// non-null values of any kind; the rest need parseable numbers.
	cells := make(map[string]map[string][]float64)
	rowSeen, colSeen := map[string]bool{}, map[string]bool{}
	for _, row := range ds.Rows {
		cell := row[valueIdx]
		if cell.IsNull() {
			continue
		}
		v, numOK := cell.ParseNumber()
		if spec.Aggregation != "count" && !numOK {
			continue
		}
		rk, ck := key(row, rowIdx), key(row, colIdx)
		if cells[rk] == nil {
			cells[rk] = make(map[string][]float64)
		}
		cells[rk][ck] = append(cells[rk][ck], v)
		rowSeen[rk], colSeen[ck] = true, true
	}
	if len(cells) == 0 {
		return nil, errors.NewPivotError("no usable values for pivot", nil)
	}

	sortedKeys := func(seen map[string]bool) []string {
		keys := make([]string, 0, len(seen))
		for k := range seen {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}
	rowKeys := []string{MarginLabel}
	if len(rowIdx) > 0 {
		rowKeys = append(sortedKeys(rowSeen), MarginLabel)
	}
	colKeys := []string{MarginLabel}
	if len(colIdx) > 0 {
		colKeys = append(sortedKeys(colSeen), MarginLabel)
	}

	// collect gathers the underlying values for one result cell; margins
	// span every group on their axis.
	collect := func(rk, ck string) []float64 {
		var out []float64
		for r, byCol := range cells {
			if rk != MarginLabel && r != rk {
				continue
			}
			for c, vals := range byCol {
				if ck != MarginLabel && c != ck {
					continue
				}
				out = append(out, vals...)
			}
		}
		return out
	}

	values := make([][]float64, len(rowKeys))
	for i, rk := range rowKeys {
		values[i] = make([]float64, len(colKeys))
		for j, ck := range colKeys {
			if vals := collect(rk, ck); len(vals) > 0 {
				values[i][j] = agg(vals)
			}
		}
	}

	return &PivotResult{
		RowFields:    spec.RowFields,
		ColumnFields: spec.ColumnFields,
		RowKeys:      rowKeys,
		ColumnKeys:   colKeys,
		Values:       values,
	}, nil
}
