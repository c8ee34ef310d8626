package parser

import (
	"bytes"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"salesinsights/internal/dataset"
	"salesinsights/internal/errors"
)

// parseSpreadsheet reads the active sheet of an Excel workbook into a raw
// table. Cell values come back as display text; typing is decided later
// by the normalizer's coercion pass.
func (p *Parser) parseSpreadsheet(name string, data []byte) (*dataset.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewParseError("could not open spreadsheet", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.NewEmptyTableError("workbook contains no sheets")
	}
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.NewParseError("could not read sheet rows", err)
	}
	if len(rows) == 0 {
		return nil, errors.NewEmptyTableError("sheet contains no rows")
	}

	table := &dataset.RawTable{Origin: name}
	for _, row := range rows {
		cells := make([]dataset.Cell, len(row))
		for i, v := range row {
			cells[i] = dataset.Text(v)
		}
		table.Cells = append(table.Cells, cells)
	}

	p.logger.Info("parsed spreadsheet",
		slog.String("name", name),
		slog.String("sheet", sheet),
		slog.Int("rows", len(table.Cells)))

	return table, nil
}
