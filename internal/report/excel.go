package report

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"salesinsights/internal/dataset"
	apperrors "salesinsights/internal/errors"
)

// maxExcelDataRows caps the Data sheet so huge uploads stay downloadable.
const maxExcelDataRows = 1000

// WriteExcel renders the workbook: a Data sheet with the first rows of
// the dataset, a Stats sheet, a Pivot sheet when a pivot is attached,
// and an Insights sheet when insights are attached.
func (e *Emitter) WriteExcel(w io.Writer, rep *Report) error {
	if rep.Dataset == nil {
		return apperrors.NewNotFoundError("dataset")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Data"); err != nil {
		return fmt.Errorf("rename data sheet: %w", err)
	}
	if err := writeDataSheet(f, rep.Dataset); err != nil {
		return err
	}
	if rep.Stats != nil {
		if err := writeStatsSheet(f, rep); err != nil {
			return err
		}
	}
	if rep.Pivot != nil {
		if err := writePivotSheet(f, rep); err != nil {
			return err
		}
	}
	if rep.Insights != nil {
		if err := writeInsightsSheet(f, rep); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	e.logger.Debug("excel report written",
		slog.String("source", rep.Dataset.SourceName),
		slog.Int("rows", len(rep.Dataset.Rows)))
	return nil
}

func writeDataSheet(f *excelize.File, ds *dataset.Dataset) error {
	header := make([]interface{}, len(ds.Columns))
	for i, c := range ds.Columns {
		header[i] = c.Name
	}
	if err := setRow(f, "Data", 1, header); err != nil {
		return err
	}

	limit := len(ds.Rows)
	if limit > maxExcelDataRows {
		limit = maxExcelDataRows
	}
	for i := 0; i < limit; i++ {
		row := make([]interface{}, len(ds.Rows[i]))
		for j, c := range ds.Rows[i] {
			if c.IsNull() {
				row[j] = nil
				continue
			}
			if n, ok := c.Number(); ok {
				row[j] = n
				continue
			}
			if t, ok := c.Time(); ok {
				row[j] = t
				continue
			}
			row[j] = c.String()
		}
		if err := setRow(f, "Data", i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeStatsSheet(f *excelize.File, rep *Report) error {
	if _, err := f.NewSheet("Stats"); err != nil {
		return fmt.Errorf("create stats sheet: %w", err)
	}
	if err := setRow(f, "Stats", 1, []interface{}{"Column", "Count", "Mean", "Median", "Max", "Min", "Std"}); err != nil {
		return err
	}
	for i, cs := range rep.Stats.Columns {
		row := []interface{}{cs.Column, cs.Count, cs.Mean, cs.Median, cs.Max, cs.Min, cs.Std}
		if err := setRow(f, "Stats", i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writePivotSheet(f *excelize.File, rep *Report) error {
	if _, err := f.NewSheet("Pivot"); err != nil {
		return fmt.Errorf("create pivot sheet: %w", err)
	}
	header := make([]interface{}, 0, len(rep.Pivot.ColumnKeys)+1)
	header = append(header, "")
	for _, k := range rep.Pivot.ColumnKeys {
		header = append(header, k)
	}
	if err := setRow(f, "Pivot", 1, header); err != nil {
		return err
	}
	for i, rowKey := range rep.Pivot.RowKeys {
		row := make([]interface{}, 0, len(rep.Pivot.ColumnKeys)+1)
		row = append(row, rowKey)
		for _, v := range rep.Pivot.Values[i] {
			row = append(row, v)
		}
		if err := setRow(f, "Pivot", i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeInsightsSheet(f *excelize.File, rep *Report) error {
	if _, err := f.NewSheet("Insights"); err != nil {
		return fmt.Errorf("create insights sheet: %w", err)
	}
	if err := setRow(f, "Insights", 1, []interface{}{"Metric", "Value"}); err != nil {
		return err
	}
	for i, in := range rep.Insights.Items {
		if err := setRow(f, "Insights", i+2, []interface{}{in.Metric, in.Value}); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowIdx int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, rowIdx)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", rowIdx, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set row %d on %s: %w", rowIdx, sheet, err)
	}
	return nil
}
