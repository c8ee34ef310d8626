package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"salesinsights/internal/analytics"
	"salesinsights/internal/dataset"
	apperrors "salesinsights/internal/errors"
	"salesinsights/internal/forecast"
	"salesinsights/internal/insights"
	"salesinsights/internal/normalizer"
	"salesinsights/internal/parser"
	"salesinsights/internal/report"
)

// previewRows caps the preview returned by Overview.
const previewRows = 50

// sessionState bundles one session with its cached pivot. The pivot is
// kept so the Excel export can include the user's last cross-tab; it is
// dropped whenever the dataset is replaced.
type sessionState struct {
	session *dataset.Session

	mu        sync.Mutex
	lastPivot *analytics.PivotResult
}

func (s *sessionState) setPivot(p *analytics.PivotResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPivot = p
}

func (s *sessionState) pivot() *analytics.PivotResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPivot
}

// DashboardService is the application service behind the HTTP API.
type DashboardService struct {
	logger     *slog.Logger
	parser     *parser.Parser
	normalizer *normalizer.Normalizer
	analytics  *analytics.Engine
	detector   *insights.Detector
	forecaster *forecast.Engine
	emitter    *report.Emitter

	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewDashboardService wires the full pipeline.
func NewDashboardService(logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardService{
		logger:     logger.With(slog.String("component", "dashboard")),
		parser:     parser.New(logger),
		normalizer: normalizer.New(logger),
		analytics:  analytics.NewEngine(logger),
		detector:   insights.NewDetector(logger),
		forecaster: forecast.NewEngine(logger),
		emitter:    report.NewEmitter(logger),
		sessions:   make(map[string]*sessionState),
	}
}

// state returns the session state, creating it on first touch.
func (d *DashboardService) state(sessionID string) *sessionState {
	d.mu.RLock()
	st, ok := d.sessions[sessionID]
	d.mu.RUnlock()
	if ok {
		return st
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok = d.sessions[sessionID]; ok {
		return st
	}
	st = &sessionState{session: dataset.NewSession(sessionID)}
	d.sessions[sessionID] = st
	return st
}

// activeDataset returns the session's dataset or a not-found error.
func (d *DashboardService) activeDataset(sessionID string) (*sessionState, *dataset.Dataset, error) {
	st := d.state(sessionID)
	ds := st.session.Dataset()
	if ds == nil {
		return nil, nil, apperrors.NewNotFoundError("dataset")
	}
	return st, ds, nil
}

// Load parses and normalizes an uploaded file and installs the result as
// the session's active dataset. On any failure the previous dataset stays
// in place untouched.
func (d *DashboardService) Load(ctx context.Context, sessionID, filename string, r io.Reader) (*Overview, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewParseError("read upload", err)
	}

	raw, err := d.parser.Parse(filename, data)
	if err != nil {
		return nil, err
	}
	ds, err := d.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}

	st := d.state(sessionID)
	st.session.Replace(ds)
	st.setPivot(nil)

	d.logger.InfoContext(ctx, "dataset loaded",
		slog.String("session", sessionID),
		slog.String("source", filename),
		slog.Int("rows", len(ds.Rows)),
		slog.Int("columns", len(ds.Columns)))
	return d.overview(st, ds), nil
}

// LoadSample installs the generated demo dataset.
func (d *DashboardService) LoadSample(ctx context.Context, sessionID string) (*Overview, error) {
	ds := parser.Sample()
	st := d.state(sessionID)
	st.session.Replace(ds)
	st.setPivot(nil)

	d.logger.InfoContext(ctx, "sample dataset loaded",
		slog.String("session", sessionID),
		slog.Int("rows", len(ds.Rows)))
	return d.overview(st, ds), nil
}

// Overview describes the active dataset for the client.
type Overview struct {
	Source         string           `json:"source"`
	RowCount       int              `json:"row_count"`
	Columns        []dataset.Column `json:"columns"`
	Preview        [][]string       `json:"preview"`
	DateCandidates []string         `json:"date_candidates"`
	Roles          dataset.Roles    `json:"roles"`
}

// Overview returns the current dataset description.
func (d *DashboardService) Overview(ctx context.Context, sessionID string) (*Overview, error) {
	st, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return nil, err
	}
	return d.overview(st, ds), nil
}

func (d *DashboardService) overview(st *sessionState, ds *dataset.Dataset) *Overview {
	limit := len(ds.Rows)
	if limit > previewRows {
		limit = previewRows
	}
	preview := make([][]string, limit)
	for i := 0; i < limit; i++ {
		row := make([]string, len(ds.Rows[i]))
		for j, c := range ds.Rows[i] {
			row[j] = c.String()
		}
		preview[i] = row
	}
	return &Overview{
		Source:         ds.SourceName,
		RowCount:       len(ds.Rows),
		Columns:        ds.Columns,
		Preview:        preview,
		DateCandidates: ds.DateCandidates(),
		Roles:          st.session.Roles(),
	}
}

// SetRoles validates and records the user's KPI and date axis choices.
// KPI columns must exist and be numeric; the date column must exist.
func (d *DashboardService) SetRoles(ctx context.Context, sessionID string, roles dataset.Roles) error {
	st, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return err
	}
	for _, name := range roles.KPIColumns {
		if ds.ColumnIndex(name) < 0 {
			return apperrors.NewValidationError(fmt.Sprintf("kpi column %q not found", name))
		}
		if !ds.IsNumeric(name) {
			return apperrors.NewValidationError(fmt.Sprintf("kpi column %q is not numeric", name))
		}
	}
	if roles.DateColumn != "" && ds.ColumnIndex(roles.DateColumn) < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("date column %q not found", roles.DateColumn))
	}
	st.session.SetRoles(roles)
	return nil
}

// CoerceDateColumn converts the named column to timestamps, all values or
// none.
func (d *DashboardService) CoerceDateColumn(ctx context.Context, sessionID, column string) error {
	_, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return err
	}
	if err := ds.CoerceDateColumn(column); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	d.logger.InfoContext(ctx, "date column coerced",
		slog.String("session", sessionID),
		slog.String("column", column))
	return nil
}

// TotalsOverview extends the column totals with the totals of the
// user-selected KPI columns, when roles are set.
type TotalsOverview struct {
	analytics.TotalsResult
	KPI []analytics.ColumnTotal `json:"kpi,omitempty"`
}

// Totals returns per-column sums, the grand total, and KPI totals.
func (d *DashboardService) Totals(ctx context.Context, sessionID string) (*TotalsOverview, error) {
	st, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return nil, err
	}
	totals, err := d.analytics.Totals(ds)
	if err != nil {
		return nil, err
	}

	out := &TotalsOverview{TotalsResult: *totals}
	kpi := st.session.Roles().KPIColumns
	if len(kpi) > 0 {
		byName := make(map[string]float64, len(totals.Columns))
		for _, ct := range totals.Columns {
			byName[ct.Column] = ct.Total
		}
		for _, name := range kpi {
			out.KPI = append(out.KPI, analytics.ColumnTotal{Column: name, Total: byName[name]})
		}
	}
	return out, nil
}

// Stats returns descriptive statistics for the numeric columns.
func (d *DashboardService) Stats(ctx context.Context, sessionID string) (*analytics.StatsResult, error) {
	_, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return nil, err
	}
	return d.analytics.Stats(ds)
}

// Correlation returns the Pearson matrix over the numeric columns.
func (d *DashboardService) Correlation(ctx context.Context, sessionID string) (*analytics.CorrelationResult, error) {
	_, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return nil, err
	}
	return d.analytics.Correlation(ds)
}

// Pivot runs a cross-tabulation and caches the result for export.
func (d *DashboardService) Pivot(ctx context.Context, sessionID string, spec analytics.PivotSpec) (*analytics.PivotResult, error) {
	st, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return nil, err
	}
	result, err := d.analytics.Pivot(ds, spec)
	if err != nil {
		return nil, err
	}
	st.setPivot(result)
	return result, nil
}

// Insights derives the headline metrics from the recognized columns.
func (d *DashboardService) Insights(ctx context.Context, sessionID string) (*insights.InsightSet, error) {
	_, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return nil, err
	}
	return d.detector.Detect(ds), nil
}

// Forecast projects the requested series. When the request names no date
// column but the session's date role is set, the role is used.
func (d *DashboardService) Forecast(ctx context.Context, sessionID string, req forecast.Request) (*forecast.Result, error) {
	st, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return nil, err
	}
	if req.DateColumn == "" {
		req.DateColumn = st.session.Roles().DateColumn
	}
	return d.forecaster.Forecast(ds, req)
}

// Export streams the dataset and its derived analytics in the requested
// format.
func (d *DashboardService) Export(ctx context.Context, sessionID string, format report.Format, w io.Writer) error {
	st, ds, err := d.activeDataset(sessionID)
	if err != nil {
		return err
	}
	if !format.Valid() {
		return apperrors.NewValidationError(fmt.Sprintf("unsupported export format %q", format))
	}

	rep := &report.Report{
		Dataset:     ds,
		Pivot:       st.pivot(),
		GeneratedAt: time.Now(),
	}
	if stats, err := d.analytics.Stats(ds); err == nil {
		rep.Stats = stats
	}
	rep.Insights = d.detector.Detect(ds)

	switch format {
	case report.FormatExcel:
		return d.emitter.WriteExcel(w, rep)
	case report.FormatHTML:
		return d.emitter.WriteHTML(w, rep)
	default:
		return d.emitter.WriteCSV(w, rep)
	}
}
