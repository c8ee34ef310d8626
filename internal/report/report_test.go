package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesinsights/internal/analytics"
	"salesinsights/internal/dataset"
	"salesinsights/internal/errors"
	"salesinsights/internal/insights"
)

func testReport(t *testing.T) *Report {
	t.Helper()
	ds, err := dataset.New(
		[]dataset.Column{
			{Name: "Branch", Kind: dataset.KindText},
			{Name: "Sales", Kind: dataset.KindNumber},
		},
		[][]dataset.Cell{
			{dataset.Text("North"), dataset.Number(100)},
			{dataset.Text("South"), dataset.Number(250.5)},
		},
		"unit-test")
	require.NoError(t, err)

	return &Report{
		Dataset:     ds,
		GeneratedAt: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC),
		Stats: &analytics.StatsResult{Columns: []analytics.ColumnStats{
			{Column: "Sales", Count: 2, Mean: 175.25, Median: 175.25, Max: 250.5, Min: 100, Std: 106.42},
		}},
		Insights: &insights.InsightSet{Items: []insights.Insight{
			{Icon: "💰", Metric: "Total Revenue", Value: "350.50"},
			{Icon: "🏢", Metric: "Top Branch", Value: "South"},
		}},
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, FormatExcel.Valid())
	assert.True(t, FormatHTML.Valid())
	assert.True(t, FormatCSV.Valid())
	assert.False(t, Format("pdf").Valid())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(nil).WriteCSV(&buf, testReport(t)))

	out := buf.Bytes()
	require.True(t, bytes.HasPrefix(out, utf8BOM), "missing UTF-8 BOM")

	records, err := csv.NewReader(bytes.NewReader(out[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Branch", "Sales"}, records[0])
	assert.Equal(t, []string{"North", "100"}, records[1])
	assert.Equal(t, []string{"South", "250.5"}, records[2])
}

func TestWriteCSVNoDataset(t *testing.T) {
	var buf bytes.Buffer
	err := NewEmitter(nil).WriteCSV(&buf, &Report{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(nil).WriteExcel(&buf, testReport(t)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Data", "Stats", "Insights"}, f.GetSheetList())

	rows, err := f.GetRows("Data")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Branch", "Sales"}, rows[0])

	stats, err := f.GetRows("Stats")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Sales", stats[1][0])
}

func TestWriteExcelWithPivot(t *testing.T) {
	rep := testReport(t)
	rep.Pivot = &analytics.PivotResult{
		RowFields:  []string{"Branch"},
		RowKeys:    []string{"North", "South", "All"},
		ColumnKeys: []string{"All"},
		Values:     [][]float64{{100}, {250.5}, {350.5}},
	}

	var buf bytes.Buffer
	require.NoError(t, NewEmitter(nil).WriteExcel(&buf, rep))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Pivot")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "All", rows[3][0])
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEmitter(nil).WriteHTML(&buf, testReport(t)))

	out := buf.String()
	assert.Contains(t, out, "unit-test")
	assert.Contains(t, out, "2 rows")
	assert.Contains(t, out, "Total Revenue")
	assert.Contains(t, out, "<td>250.5</td>")
	assert.NotContains(t, out, "first 100 rows")
}

func TestWriteHTMLEscapesCellContent(t *testing.T) {
	ds, err := dataset.New(
		[]dataset.Column{{Name: "Note", Kind: dataset.KindText}},
		[][]dataset.Cell{{dataset.Text("<script>alert(1)</script>")}},
		"escape")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewEmitter(nil).WriteHTML(&buf, &Report{Dataset: ds, GeneratedAt: time.Now()}))

	assert.NotContains(t, buf.String(), "<script>alert")
	assert.True(t, strings.Contains(buf.String(), "&lt;script&gt;"))
}
