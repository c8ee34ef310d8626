package parser

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"strings"

	"salesinsights/internal/dataset"
	"salesinsights/internal/errors"
)

// sniffDelimiter picks the separator that occurs most often in the first
// line, defaulting to comma. Keeps tab- and semicolon-separated exports
// working without a user-supplied format.
func sniffDelimiter(data []byte) rune {
	line := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		line = data[:idx]
	}
	best, bestCount := ',', 0
	for _, cand := range []rune{',', '\t', ';', '|'} {
		if n := bytes.Count(line, []byte(string(cand))); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}

// parseDelimited reads a delimited text file into a raw table. No header
// row is assumed; every record becomes a grid row and empty fields become
// null cells.
func (p *Parser) parseDelimited(name string, data []byte) (*dataset.RawTable, error) {
	delim := sniffDelimiter(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParseError("could not read delimited file", err)
	}
	if len(records) == 0 {
		return nil, errors.NewEmptyTableError("delimited file contains no records")
	}

	table := &dataset.RawTable{Origin: name}
	for _, record := range records {
		row := make([]dataset.Cell, len(record))
		for i, field := range record {
			row[i] = dataset.Text(strings.TrimSpace(field))
		}
		table.Cells = append(table.Cells, row)
	}

	p.logger.Info("parsed delimited file",
		slog.String("name", name),
		slog.String("delimiter", string(delim)),
		slog.Int("rows", len(table.Cells)))

	return table, nil
}
