package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesinsights/internal/dataset"
	"salesinsights/internal/errors"
)

func buildDataset(t *testing.T, columns []dataset.Column, rows [][]dataset.Cell) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(columns, rows, "test")
	require.NoError(t, err)
	return ds
}

func numericDataset(t *testing.T, values ...float64) *dataset.Dataset {
	t.Helper()
	rows := make([][]dataset.Cell, len(values))
	for i, v := range values {
		rows[i] = []dataset.Cell{dataset.Number(v)}
	}
	return buildDataset(t,
		[]dataset.Column{{Name: "Sales", Kind: dataset.KindNumber}},
		rows)
}

func dateDataset(t *testing.T, points map[string]float64) *dataset.Dataset {
	t.Helper()
	var rows [][]dataset.Cell
	for d, v := range points {
		ts, err := time.Parse("2006-01-02", d)
		require.NoError(t, err)
		rows = append(rows, []dataset.Cell{dataset.Time(ts), dataset.Number(v)})
	}
	return buildDataset(t,
		[]dataset.Column{
			{Name: "Date", Kind: dataset.KindTime},
			{Name: "Sales", Kind: dataset.KindNumber},
		},
		rows)
}

func TestForecastDegreeRule(t *testing.T) {
	tests := []struct {
		name       string
		points     int
		wantDegree int
	}{
		{name: "five points stay linear", points: 5, wantDegree: 1},
		{name: "six points go quadratic", points: 6, wantDegree: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := make([]float64, tt.points)
			for i := range values {
				values[i] = float64(i * i)
			}
			ds := numericDataset(t, values...)

			got, err := NewEngine(nil).Forecast(ds, Request{ValueColumn: "Sales", Horizon: 1})
			require.NoError(t, err)
			assert.Equal(t, tt.wantDegree, got.Degree)
		})
	}
}

func TestForecastLinearSeries(t *testing.T) {
	ds := numericDataset(t, 10, 20, 30, 40, 50)

	got, err := NewEngine(nil).Forecast(ds, Request{ValueColumn: "Sales", Horizon: 3})
	require.NoError(t, err)

	assert.Equal(t, 1, got.Degree)
	require.Len(t, got.History, 5)
	require.Len(t, got.Projection, 3)

	for k, want := range []float64{60, 70, 80} {
		p := got.Projection[k]
		assert.InDelta(t, want, p.Forecast, 1e-9)
		assert.Equal(t, 5+k, p.Index)
		assert.LessOrEqual(t, p.Lower, p.Forecast)
		assert.GreaterOrEqual(t, p.Upper, p.Forecast)
	}
	// Residuals of an exact linear fit vanish, so the band collapses.
	assert.InDelta(t, 0, got.BandWidth, 1e-9)
}

func TestForecastQuadraticSeries(t *testing.T) {
	ds := numericDataset(t, 0, 1, 4, 9, 16, 25)

	got, err := NewEngine(nil).Forecast(ds, Request{ValueColumn: "Sales", Horizon: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, got.Degree)
	require.Len(t, got.Projection, 2)
	assert.InDelta(t, 36, got.Projection[0].Forecast, 1e-6)
	assert.InDelta(t, 49, got.Projection[1].Forecast, 1e-6)
}

func TestForecastBandWidthFromResiduals(t *testing.T) {
	// A zigzag around a flat trend leaves nonzero residuals, so the band
	// must have positive, constant width across the horizon.
	ds := numericDataset(t, 10, 14, 10, 14, 10)

	got, err := NewEngine(nil).Forecast(ds, Request{ValueColumn: "Sales", Horizon: 4})
	require.NoError(t, err)

	assert.Greater(t, got.BandWidth, 0.0)
	for _, p := range got.Projection {
		assert.InDelta(t, got.BandWidth, p.Forecast-p.Lower, 1e-9)
		assert.InDelta(t, got.BandWidth, p.Upper-p.Forecast, 1e-9)
	}
}

func TestForecastErrors(t *testing.T) {
	tests := []struct {
		name     string
		ds       *dataset.Dataset
		req      Request
		wantType errors.ErrorType
	}{
		{
			name:     "single point",
			ds:       numericDataset(t, 42),
			req:      Request{ValueColumn: "Sales", Horizon: 2},
			wantType: errors.ErrTypeInsufficientData,
		},
		{
			name: "non-numeric column",
			ds: buildDataset(t,
				[]dataset.Column{{Name: "Branch", Kind: dataset.KindText}},
				[][]dataset.Cell{{dataset.Text("North")}, {dataset.Text("South")}}),
			req:      Request{ValueColumn: "Branch", Horizon: 2},
			wantType: errors.ErrTypeForecastFailed,
		},
		{
			name:     "unknown column",
			ds:       numericDataset(t, 1, 2, 3),
			req:      Request{ValueColumn: "Nope", Horizon: 2},
			wantType: errors.ErrTypeValidation,
		},
		{
			name:     "unknown date column",
			ds:       numericDataset(t, 1, 2, 3),
			req:      Request{ValueColumn: "Sales", DateColumn: "Nope", Horizon: 2},
			wantType: errors.ErrTypeValidation,
		},
		{
			name:     "zero horizon",
			ds:       numericDataset(t, 1, 2, 3),
			req:      Request{ValueColumn: "Sales"},
			wantType: errors.ErrTypeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(nil).Forecast(tt.ds, tt.req)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestForecastByDateMonthlyBuckets(t *testing.T) {
	// Forty daily observations spanning one month boundary collapse to
	// exactly two monthly buckets.
	points := make(map[string]float64, 40)
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		points[start.AddDate(0, 0, i).Format("2006-01-02")] = 100
	}
	ds := dateDataset(t, points)

	got, err := NewEngine(nil).Forecast(ds, Request{
		ValueColumn: "Sales",
		DateColumn:  "Date",
		Horizon:     2,
		Frequency:   FrequencyMonthly,
	})
	require.NoError(t, err)

	require.Len(t, got.History, 2)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), *got.History[0].Date)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), *got.History[1].Date)
	assert.InDelta(t, 100, got.History[0].Value, 1e-9)

	require.Len(t, got.Projection, 2)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), *got.Projection[0].Date)
	assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), *got.Projection[1].Date)
}

func TestForecastByDateDuplicateTimestamps(t *testing.T) {
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	jan2 := jan1.AddDate(0, 0, 1)
	ds := buildDataset(t,
		[]dataset.Column{
			{Name: "Date", Kind: dataset.KindTime},
			{Name: "Sales", Kind: dataset.KindNumber},
		},
		[][]dataset.Cell{
			{dataset.Time(jan1), dataset.Number(10)},
			{dataset.Time(jan1), dataset.Number(20)},
			{dataset.Time(jan2), dataset.Number(30)},
		})

	got, err := NewEngine(nil).Forecast(ds, Request{ValueColumn: "Sales", DateColumn: "Date", Horizon: 1})
	require.NoError(t, err)

	require.Len(t, got.History, 2)
	assert.InDelta(t, 15, got.History[0].Value, 1e-9)
	assert.InDelta(t, 30, got.History[1].Value, 1e-9)
}

func TestForecastByDateWeeklyDuplicateTimestamps(t *testing.T) {
	// Duplicate rows collapse to a per-date mean before weekly bucketing,
	// so the first week averages mean(0, 10)=5 and 20, not the raw rows.
	jan1 := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	ds := buildDataset(t,
		[]dataset.Column{
			{Name: "Date", Kind: dataset.KindTime},
			{Name: "Sales", Kind: dataset.KindNumber},
		},
		[][]dataset.Cell{
			{dataset.Time(jan1), dataset.Number(0)},
			{dataset.Time(jan1), dataset.Number(10)},
			{dataset.Time(jan1.AddDate(0, 0, 1)), dataset.Number(20)},
			{dataset.Time(jan1.AddDate(0, 0, 8)), dataset.Number(7)},
		})

	got, err := NewEngine(nil).Forecast(ds, Request{
		ValueColumn: "Sales",
		DateColumn:  "Date",
		Horizon:     1,
		Frequency:   FrequencyWeekly,
	})
	require.NoError(t, err)

	require.Len(t, got.History, 2)
	assert.Equal(t, jan1, *got.History[0].Date)
	assert.InDelta(t, 12.5, got.History[0].Value, 1e-9)
	assert.InDelta(t, 7, got.History[1].Value, 1e-9)
}

func TestForecastByDateWeeklyInterpolation(t *testing.T) {
	// Observations on two Mondays three weeks apart leave an empty week
	// in between that is filled linearly.
	ds := dateDataset(t, map[string]float64{
		"2024-01-01": 10,
		"2024-01-15": 30,
	})

	got, err := NewEngine(nil).Forecast(ds, Request{
		ValueColumn: "Sales",
		DateColumn:  "Date",
		Horizon:     1,
		Frequency:   FrequencyWeekly,
	})
	require.NoError(t, err)

	require.Len(t, got.History, 3)
	assert.Equal(t, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC), *got.History[1].Date)
	assert.InDelta(t, 20, got.History[1].Value, 1e-9)

	require.Len(t, got.Projection, 1)
	assert.Equal(t, time.Date(2024, time.January, 22, 0, 0, 0, 0, time.UTC), *got.Projection[0].Date)
}

func TestForecastByDateInferredDailyStep(t *testing.T) {
	ds := dateDataset(t, map[string]float64{
		"2024-03-01": 1,
		"2024-03-02": 2,
		"2024-03-03": 3,
	})

	got, err := NewEngine(nil).Forecast(ds, Request{ValueColumn: "Sales", DateColumn: "Date", Horizon: 2})
	require.NoError(t, err)

	require.Len(t, got.Projection, 2)
	assert.Equal(t, time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), *got.Projection[0].Date)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC), *got.Projection[1].Date)
	assert.InDelta(t, 4, got.Projection[0].Forecast, 1e-9)
}

func TestWeekStart(t *testing.T) {
	wednesday := time.Date(2024, time.January, 10, 13, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC), weekStart(wednesday))

	sunday := time.Date(2024, time.January, 14, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC), weekStart(sunday))
}

func TestInferStep(t *testing.T) {
	day := 24 * time.Hour
	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	regular := []time.Time{base, base.Add(day), base.Add(2 * day), base.Add(4 * day)}
	assert.Equal(t, day, inferStep(regular))

	// No repeating gap falls back to daily.
	irregular := []time.Time{base, base.Add(3 * day), base.Add(10 * day)}
	assert.Equal(t, day, inferStep(irregular))

	assert.Equal(t, day, inferStep([]time.Time{base}))
}

func TestInterpolate(t *testing.T) {
	values := []float64{math.NaN(), 10, math.NaN(), math.NaN(), 40, math.NaN()}
	interpolate(values)
	assert.Equal(t, []float64{10, 10, 20, 30, 40, 40}, values)
}
