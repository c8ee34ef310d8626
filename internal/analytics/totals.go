package analytics

import (
	"salesinsights/internal/dataset"
)

// ColumnTotal is the sum of one numeric column's non-null values.
type ColumnTotal struct {
	Column string  `json:"column"`
	Total  float64 `json:"total"`
}

// TotalsResult holds the per-column totals and the grand total.
type TotalsResult struct {
	Columns    []ColumnTotal `json:"columns"`
	GrandTotal float64       `json:"grand_total"`
}

// Totals sums every numeric column and then sums those per-column totals
// into the grand total. The order of operations (column sums first) keeps
// the result reproducible regardless of row layout.
func (e *Engine) Totals(ds *dataset.Dataset) (*TotalsResult, error) {
	v, err := e.memo(ds.Version, "totals", func() (interface{}, error) {
		return computeTotals(ds), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TotalsResult), nil
}

func computeTotals(ds *dataset.Dataset) *TotalsResult {
	result := &TotalsResult{Columns: []ColumnTotal{}}
	for _, name := range ds.NumericColumns() {
		vals, _ := ds.NumericValues(name)
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		result.Columns = append(result.Columns, ColumnTotal{Column: name, Total: sum})
		result.GrandTotal += sum
	}
	return result
}
