package report

import (
	"log/slog"
	"time"

	"salesinsights/internal/analytics"
	"salesinsights/internal/dataset"
	"salesinsights/internal/insights"
)

// Format names a supported report output.
type Format string

const (
	FormatExcel Format = "xlsx"
	FormatHTML  Format = "html"
	FormatCSV   Format = "csv"
)

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	switch f {
	case FormatExcel, FormatHTML, FormatCSV:
		return true
	}
	return false
}

// Report bundles everything an emitter may include. Stats, Pivot and
// Insights are optional; emitters skip the sections that are nil.
type Report struct {
	Dataset     *dataset.Dataset
	Stats       *analytics.StatsResult
	Pivot       *analytics.PivotResult
	Insights    *insights.InsightSet
	GeneratedAt time.Time
}

// Emitter renders reports.
type Emitter struct {
	logger *slog.Logger
}

// NewEmitter returns an Emitter logging through the given logger.
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{logger: logger}
}

// headerRow returns the dataset's column names as strings.
func headerRow(ds *dataset.Dataset) []string {
	return ds.ColumnNames()
}

// cellStrings renders one dataset row for text output.
func cellStrings(row []dataset.Cell) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.String()
	}
	return out
}
