package report

import (
	"fmt"
	"html/template"
	"io"
	"log/slog"

	apperrors "salesinsights/internal/errors"
)

// maxHTMLDataRows caps the preview table in the HTML report.
const maxHTMLDataRows = 100

var htmlReport = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sales Report - {{.Source}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #1a1a2e; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.3rem 0.6rem; text-align: left; }
th { background: #f0f2f6; }
.meta { color: #666; }
</style>
</head>
<body>
<h1>Sales Report</h1>
<p class="meta">Source: {{.Source}} &middot; Generated {{.Generated}} &middot; {{.RowCount}} rows &times; {{.ColCount}} columns</p>
{{if .Insights}}
<h2>Insights</h2>
<ul>
{{range .Insights}}<li>{{.Icon}} {{.Metric}}: {{.Value}}</li>
{{end}}</ul>
{{end}}
<h2>Data{{if .Truncated}} (first {{len .Rows}} rows){{end}}</h2>
<table>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
</body>
</html>
`))

type htmlReportData struct {
	Source    string
	Generated string
	RowCount  int
	ColCount  int
	Insights  []htmlInsight
	Header    []string
	Rows      [][]string
	Truncated bool
}

type htmlInsight struct {
	Icon   string
	Metric string
	Value  string
}

// WriteHTML renders a standalone HTML report with the insight list and a
// preview of the data.
func (e *Emitter) WriteHTML(w io.Writer, rep *Report) error {
	if rep.Dataset == nil {
		return apperrors.NewNotFoundError("dataset")
	}

	data := htmlReportData{
		Source:    rep.Dataset.SourceName,
		Generated: rep.GeneratedAt.Format("2006-01-02 15:04:05"),
		RowCount:  len(rep.Dataset.Rows),
		ColCount:  len(rep.Dataset.Columns),
		Header:    headerRow(rep.Dataset),
	}
	if rep.Insights != nil {
		for _, in := range rep.Insights.Items {
			data.Insights = append(data.Insights, htmlInsight{Icon: in.Icon, Metric: in.Metric, Value: in.Value})
		}
	}
	limit := len(rep.Dataset.Rows)
	if limit > maxHTMLDataRows {
		limit = maxHTMLDataRows
		data.Truncated = true
	}
	for i := 0; i < limit; i++ {
		data.Rows = append(data.Rows, cellStrings(rep.Dataset.Rows[i]))
	}

	if err := htmlReport.Execute(w, data); err != nil {
		return fmt.Errorf("render html report: %w", err)
	}
	e.logger.Debug("html report written",
		slog.String("source", rep.Dataset.SourceName),
		slog.Int("rows", data.RowCount))
	return nil
}
