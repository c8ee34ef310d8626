package forecast

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"salesinsights/internal/dataset"
	apperrors "salesinsights/internal/errors"
)

// Frequency selects the calendar grid for date-indexed forecasts.
type Frequency string

const (
	// FrequencyDaily keeps the native sampling interval of the series.
	// The step used for future dates is inferred from the observed gaps;
	// when no gap repeats, one day is assumed.
	FrequencyDaily Frequency = "D"
	// FrequencyWeekly buckets observations by calendar week starting Monday.
	FrequencyWeekly Frequency = "W"
	// FrequencyMonthly buckets observations by the first of the month.
	FrequencyMonthly Frequency = "M"
)

// zScore95 is the two-sided normal critical value for a 95% band.
const zScore95 = 1.96

// Request describes a single forecasting run.
type Request struct {
	ValueColumn string    `json:"value_column" validate:"required"`
	DateColumn  string    `json:"date_column,omitempty"`
	Horizon     int       `json:"horizon" validate:"required,min=1"`
	Frequency   Frequency `json:"frequency,omitempty" validate:"omitempty,oneof=D W M"`
}

// HistoryPoint is one observation of the fitted series after resampling
// and gap filling. Date is nil for index-based forecasts.
type HistoryPoint struct {
	Index int        `json:"index"`
	Date  *time.Time `json:"date,omitempty"`
	Value float64    `json:"value"`
}

// ProjectedPoint is one step of the forecast horizon with its band.
type ProjectedPoint struct {
	Index    int        `json:"index"`
	Date     *time.Time `json:"date,omitempty"`
	Forecast float64    `json:"forecast"`
	Lower    float64    `json:"lower"`
	Upper    float64    `json:"upper"`
}

// Result carries the fitted history and the projected horizon.
type Result struct {
	ValueColumn string           `json:"value_column"`
	DateColumn  string           `json:"date_column,omitempty"`
	Frequency   Frequency        `json:"frequency,omitempty"`
	Degree      int              `json:"degree"`
	BandWidth   float64          `json:"band_width"`
	History     []HistoryPoint   `json:"history"`
	Projection  []ProjectedPoint `json:"projection"`
}

// Engine runs forecasts against a dataset.
type Engine struct {
	logger *slog.Logger
}

// NewEngine returns an Engine logging through the given logger.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Forecast fits the requested series and projects it Horizon steps ahead.
// With a date column the series is grouped, resampled and gap-filled first;
// without one the row order is the axis. Fewer than two usable points is an
// insufficient-data error; any numerical failure during fitting surfaces as
// a forecast-failed error rather than a panic.
func (e *Engine) Forecast(ds *dataset.Dataset, req Request) (res *Result, err error) {
	if ds == nil {
		return nil, apperrors.NewNotFoundError("dataset")
	}
	if req.Horizon < 1 {
		return nil, apperrors.NewValidationError("horizon must be at least 1")
	}
	if ds.ColumnIndex(req.ValueColumn) < 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("value column %q not found", req.ValueColumn))
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("forecast panicked", slog.String("column", req.ValueColumn), slog.Any("panic", r))
			res = nil
			err = apperrors.NewForecastFailedError(fmt.Sprintf("forecast for %q failed", req.ValueColumn), nil)
		}
	}()

	if req.DateColumn != "" {
		return e.forecastByDate(ds, req)
	}
	return e.forecastByIndex(ds, req)
}

func (e *Engine) forecastByIndex(ds *dataset.Dataset, req Request) (*Result, error) {
	col := ds.ColumnIndex(req.ValueColumn)

	values := make([]float64, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		c := row[col]
		if c.IsNull() {
			continue
		}
		v, ok := c.ParseNumber()
		if !ok {
			return nil, apperrors.NewForecastFailedError(
				fmt.Sprintf("column %q contains non-numeric values", req.ValueColumn), nil)
		}
		values = append(values, v)
	}
	if len(values) < 2 {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("column %q has %d usable points, need at least 2", req.ValueColumn, len(values)))
	}

	fit, err := fitSeries(values, req.Horizon)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ValueColumn: req.ValueColumn,
		Degree:      fit.degree,
		BandWidth:   fit.band,
	}
	for i, v := range values {
		res.History = append(res.History, HistoryPoint{Index: i, Value: v})
	}
	for k, v := range fit.future {
		res.Projection = append(res.Projection, ProjectedPoint{
			Index:    len(values) + k,
			Forecast: v,
			Lower:    v - fit.band,
			Upper:    v + fit.band,
		})
	}
	e.logger.Debug("forecast complete",
		slog.String("column", req.ValueColumn),
		slog.Int("points", len(values)),
		slog.Int("degree", fit.degree))
	return res, nil
}

func (e *Engine) forecastByDate(ds *dataset.Dataset, req Request) (*Result, error) {
	valCol := ds.ColumnIndex(req.ValueColumn)
	dateCol := ds.ColumnIndex(req.DateColumn)
	if dateCol < 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("date column %q not found", req.DateColumn))
	}

	type obs struct {
		t time.Time
		v float64
	}
	observations := make([]obs, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		t, ok := row[dateCol].ParseTime()
		if !ok {
			continue
		}
		v, ok := row[valCol].ParseNumber()
		if !ok {
			continue
		}
		observations = append(observations, obs{t: t, v: v})
	}
	if len(observations) == 0 {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("no rows have both a valid %q date and a numeric %q value", req.DateColumn, req.ValueColumn))
	}

	// Duplicate timestamps collapse to their mean before resampling.
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, o := range observations {
		sums[o.t] += o.v
		counts[o.t]++
	}
	times := make([]time.Time, 0, len(sums))
	for t := range sums {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	freq := req.Frequency
	if freq == "" {
		freq = FrequencyDaily
	}

	var (
		dates  []time.Time
		values []float64
		step   func(t time.Time, k int) time.Time
	)
	switch freq {
	case FrequencyWeekly:
		dates, values = resampleCalendar(times, sums, counts, weekStart, func(t time.Time) time.Time {
			return t.AddDate(0, 0, 7)
		})
		step = func(t time.Time, k int) time.Time { return t.AddDate(0, 0, 7*k) }
	case FrequencyMonthly:
		dates, values = resampleCalendar(times, sums, counts, monthStart, func(t time.Time) time.Time {
			return t.AddDate(0, 1, 0)
		})
		step = func(t time.Time, k int) time.Time { return t.AddDate(0, k, 0) }
	default:
		// Native grid: keep the deduplicated series as-is and only infer
		// the step used to extend it into the future.
		dates = times
		values = make([]float64, len(times))
		for i, t := range times {
			values[i] = sums[t] / float64(counts[t])
		}
		d := inferStep(times)
		step = func(t time.Time, k int) time.Time { return t.Add(time.Duration(k) * d) }
	}

	interpolate(values)

	if len(values) < 2 {
		return nil, apperrors.NewInsufficientDataError(
			fmt.Sprintf("series for %q has %d points after resampling, need at least 2", req.ValueColumn, len(values)))
	}

	fit, err := fitSeries(values, req.Horizon)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ValueColumn: req.ValueColumn,
		DateColumn:  req.DateColumn,
		Frequency:   freq,
		Degree:      fit.degree,
		BandWidth:   fit.band,
	}
	for i := range values {
		d := dates[i]
		res.History = append(res.History, HistoryPoint{Index: i, Date: &d, Value: values[i]})
	}
	last := dates[len(dates)-1]
	for k, v := range fit.future {
		d := step(last, k+1)
		res.Projection = append(res.Projection, ProjectedPoint{
			Index:    len(values) + k,
			Date:     &d,
			Forecast: v,
			Lower:    v - fit.band,
			Upper:    v + fit.band,
		})
	}
	e.logger.Debug("forecast complete",
		slog.String("column", req.ValueColumn),
		slog.String("date_column", req.DateColumn),
		slog.String("frequency", string(freq)),
		slog.Int("points", len(values)),
		slog.Int("degree", fit.degree))
	return res, nil
}

// fitResult carries the fitted polynomial outputs shared by both branches.
type fitResult struct {
	degree int
	band   float64
	future []float64
}

// fitSeries fits values against indices 0..n-1 and evaluates the polynomial
// over the horizon. Degree is 2 for six or more points, 1 otherwise.
func fitSeries(values []float64, horizon int) (fitResult, error) {
	n := len(values)
	degree := 1
	if n >= 6 {
		degree = 2
	}

	coeffs, err := polyfit(values, degree)
	if err != nil {
		return fitResult{}, apperrors.NewForecastFailedError("polynomial fit failed", err)
	}

	residuals := make([]float64, n)
	for i := range values {
		residuals[i] = values[i] - polyval(coeffs, float64(i))
	}
	band := zScore95 * stat.StdDev(residuals, nil)
	if math.IsNaN(band) {
		band = 0
	}

	future := make([]float64, horizon)
	for k := 0; k < horizon; k++ {
		future[k] = polyval(coeffs, float64(n+k))
	}
	return fitResult{degree: degree, band: band, future: future}, nil
}

// polyfit solves the least-squares Vandermonde system via QR. The returned
// coefficients are ordered from the constant term up.
func polyfit(values []float64, degree int) ([]float64, error) {
	n := len(values)
	a := mat.NewDense(n, degree+1, nil)
	for i := 0; i < n; i++ {
		x := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, x)
			x *= float64(i)
		}
	}
	b := mat.NewVecDense(n, append([]float64(nil), values...))

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, b); err != nil {
		return nil, err
	}
	coeffs := make([]float64, degree+1)
	for j := range coeffs {
		coeffs[j] = sol.AtVec(j)
	}
	return coeffs, nil
}

func polyval(coeffs []float64, x float64) float64 {
	v := 0.0
	for j := len(coeffs) - 1; j >= 0; j-- {
		v = v*x + coeffs[j]
	}
	return v
}

// resampleCalendar buckets the deduplicated series onto a regular grid
// from the first to the last bucket. Each bucket averages the collapsed
// per-timestamp means, so duplicate timestamps never outweigh the other
// dates in their bucket. Empty buckets are NaN for interpolation.
func resampleCalendar(times []time.Time, sums map[time.Time]float64, counts map[time.Time]int,
	anchor func(time.Time) time.Time, next func(time.Time) time.Time) ([]time.Time, []float64) {

	bucketSums := make(map[time.Time]float64)
	bucketCounts := make(map[time.Time]int)
	for _, t := range times {
		b := anchor(t)
		bucketSums[b] += sums[t] / float64(counts[t])
		bucketCounts[b]++
	}

	first := anchor(times[0])
	last := anchor(times[len(times)-1])

	var dates []time.Time
	var values []float64
	for b := first; !b.After(last); b = next(b) {
		dates = append(dates, b)
		if c := bucketCounts[b]; c > 0 {
			values = append(values, bucketSums[b]/float64(c))
		} else {
			values = append(values, math.NaN())
		}
	}
	return dates, values
}

// weekStart truncates to the Monday of t's calendar week.
func weekStart(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// monthStart truncates to the first day of t's month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// inferStep returns the most frequent gap between consecutive timestamps.
// When no gap repeats, or there are fewer than two timestamps, it falls
// back to one day. Ties go to the shorter gap.
func inferStep(times []time.Time) time.Duration {
	gaps := make(map[time.Duration]int)
	for i := 1; i < len(times); i++ {
		gaps[times[i].Sub(times[i-1])]++
	}
	best := 24 * time.Hour
	bestCount := 1
	for g, c := range gaps {
		if c > bestCount || (c == bestCount && c > 1 && g < best) {
			best = g
			bestCount = c
		}
	}
	return best
}

// interpolate fills NaN gaps linearly between known neighbors, then
// extends the first and last known value outward to the edges.
func interpolate(values []float64) {
	n := len(values)
	prev := -1
	for i := 0; i < n; i++ {
		if math.IsNaN(values[i]) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			span := float64(i - prev)
			for k := prev + 1; k < i; k++ {
				frac := float64(k-prev) / span
				values[k] = values[prev] + frac*(values[i]-values[prev])
			}
		}
		prev = i
	}

	firstKnown := -1
	lastKnown := -1
	for i := 0; i < n; i++ {
		if !math.IsNaN(values[i]) {
			if firstKnown < 0 {
				firstKnown = i
			}
			lastKnown = i
		}
	}
	if firstKnown < 0 {
		return
	}
	for i := 0; i < firstKnown; i++ {
		values[i] = values[firstKnown]
	}
	for i := lastKnown + 1; i < n; i++ {
		values[i] = values[lastKnown]
	}
}

