package analytics

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"salesinsights/internal/dataset"
)

// ColumnStats holds descriptive statistics for one numeric column.
type ColumnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	Min    float64 `json:"min"`
	Std    float64 `json:"std"`
}

// StatsResult holds per-column statistics. An empty Columns slice means
// the dataset has no numeric columns at all, which callers must treat
// differently from statistics that happen to be zero.
type StatsResult struct {
	Columns []ColumnStats `json:"columns"`
}

// CorrelationResult is the Pearson correlation matrix over the numeric
// columns. Columns is empty when fewer than two numeric columns exist.
type CorrelationResult struct {
	Columns []string    `json:"columns"`
	Matrix  [][]float64 `json:"matrix"`
}

// Stats computes count, mean, median, max, min, and sample standard
// deviation for each numeric column.
func (e *Engine) Stats(ds *dataset.Dataset) (*StatsResult, error) {
	v, err := e.memo(ds.Version, "stats", func() (interface{}, error) {
		return computeStats(ds), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*StatsResult), nil
}

func computeStats(ds *dataset.Dataset) *StatsResult {
	result := &StatsResult{Columns: []ColumnStats{}}
	for _, name := range ds.NumericColumns() {
		vals, _ := ds.NumericValues(name)
		if len(vals) == 0 {
			result.Columns = append(result.Columns, ColumnStats{Column: name})
			continue
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)

		cs := ColumnStats{
			Column: name,
			Count:  len(vals),
			Mean:   stat.Mean(vals, nil),
			Median: median(sorted),
			Max:    sorted[len(sorted)-1],
			Min:    sorted[0],
		}
		if len(vals) > 1 {
			cs.Std = stat.StdDev(vals, nil)
		}
		result.Columns = append(result.Columns, cs)
	}
	return result
}

// median expects its input sorted ascending.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Correlation computes the Pearson correlation matrix over numeric
// columns, pairwise on rows where both values are present.
func (e *Engine) Correlation(ds *dataset.Dataset) (*CorrelationResult, error) {
	v, err := e.memo(ds.Version, "correlation", func() (interface{}, error) {
		return computeCorrelation(ds), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CorrelationResult), nil
}

func computeCorrelation(ds *dataset.Dataset) *CorrelationResult {
	names := ds.NumericColumns()
	if len(names) < 2 {
		return &CorrelationResult{Columns: []string{}}
	}

	indices := make([]int, len(names))
	for i, name := range names {
		indices[i] = ds.ColumnIndex(name)
	}

	matrix := make([][]float64, len(names))
	for i := range names {
		matrix[i] = make([]float64, len(names))
		matrix[i][i] = 1
	}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			var xs, ys []float64
			for _, row := range ds.Rows {
				x, okX := row[indices[i]].Number()
				y, okY := row[indices[j]].Number()
				if okX && okY {
					xs = append(xs, x)
					ys = append(ys, y)
				}
			}
			r := 0.0
			if len(xs) > 1 {
				r = stat.Correlation(xs, ys, nil)
			}
			matrix[i][j] = r
			matrix[j][i] = r
		}
	}
	return &CorrelationResult{Columns: names, Matrix: matrix}
}
