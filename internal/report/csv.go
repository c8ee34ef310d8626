package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	apperrors "salesinsights/internal/errors"
)

// utf8BOM helps Excel recognize UTF-8 CSV files, which matters for the
// Arabic column names the parsers accept.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV streams the active dataset as UTF-8 CSV with a BOM prefix.
func (e *Emitter) WriteCSV(w io.Writer, rep *Report) error {
	if rep.Dataset == nil {
		return apperrors.NewNotFoundError("dataset")
	}
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(headerRow(rep.Dataset)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rep.Dataset.Rows {
		if err := cw.Write(cellStrings(row)); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	e.logger.Debug("csv report written",
		slog.String("source", rep.Dataset.SourceName),
		slog.Int("rows", len(rep.Dataset.Rows)))
	return nil
}
