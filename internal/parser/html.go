package parser

import (
	"bytes"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"salesinsights/internal/dataset"
	"salesinsights/internal/errors"
)

// parseHTML extracts every <table> element from an HTML document, one raw
// table per element, concatenated in document order.
func (p *Parser) parseHTML(name string, data []byte) (*dataset.RawTable, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewParseError("could not parse HTML document", err)
	}

	var tables []*dataset.RawTable
	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		table := &dataset.RawTable{Origin: name}
		sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var row []dataset.Cell
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				row = append(row, dataset.Text(cell.Text()))
			})
			if len(row) > 0 {
				table.Cells = append(table.Cells, row)
			}
		})
		if len(table.Cells) > 0 {
			tables = append(tables, table)
		}
	})

	if len(tables) == 0 {
		return nil, errors.NewParseError("HTML document contains no tables", nil)
	}

	p.logger.Info("parsed HTML document",
		slog.String("name", name),
		slog.Int("tables", len(tables)))

	return dataset.Concat(tables), nil
}
