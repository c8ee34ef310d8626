package parser

import (
	"bytes"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"salesinsights/internal/dataset"
	"salesinsights/internal/errors"
)

// lineTolerance is the vertical distance within which text runs are
// considered part of the same line.
const lineTolerance = 2.0

// textRun is a positioned fragment of page text.
type textRun struct {
	x, y, w  float64
	fontSize float64
	text     string
}

// pdfCell is a merged run of text forming one table cell candidate.
type pdfCell struct {
	x    float64
	text string
}

// parsePDF recovers tables from a PDF by spatial analysis of its text
// runs: runs are grouped into lines by Y position, merged into cells by
// X gaps, and aligned into columns across consecutive multi-cell lines.
// One raw table per detected region per page, concatenated.
func (p *Parser) parsePDF(name string, data []byte) (table *dataset.RawTable, err error) {
	// The pdf library panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			table = nil
			err = errors.NewParseError("could not read PDF file",
				fmt.Errorf("pdf content stream: %v", rec))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.NewParseError("could not open PDF file", err)
	}

	var tables []*dataset.RawTable
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		runs := collectRuns(page)
		for _, region := range detectRegions(groupLines(runs)) {
			tables = append(tables, regionToTable(name, region))
		}
	}

	if len(tables) == 0 {
		return nil, errors.NewParseError("PDF contains no tables", nil)
	}

	p.logger.Info("parsed PDF",
		slog.String("name", name),
		slog.Int("pages", reader.NumPage()),
		slog.Int("tables", len(tables)))

	return dataset.Concat(tables), nil
}

func collectRuns(page pdf.Page) []textRun {
	var runs []textRun
	for _, t := range page.Content().Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		runs = append(runs, textRun{
			x: t.X, y: t.Y, w: t.W, fontSize: t.FontSize, text: t.S,
		})
	}
	return runs
}

// groupLines buckets runs into visual lines, top of page first, and
// merges horizontally adjacent runs into cells.
func groupLines(runs []textRun) [][]pdfCell {
	if len(runs) == 0 {
		return nil
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].y != runs[j].y {
			return runs[i].y > runs[j].y // PDF origin is bottom-left
		}
		return runs[i].x < runs[j].x
	})

	var lines [][]pdfCell
	var current []textRun
	lineY := runs[0].y
	flush := func() {
		if len(current) > 0 {
			lines = append(lines, mergeCells(current))
			current = nil
		}
	}
	for _, run := range runs {
		if lineY-run.y > lineTolerance {
			flush()
			lineY = run.y
		}
		current = append(current, run)
	}
	flush()
	return lines
}

// mergeCells joins runs separated by less than a cell gap. The gap
// threshold scales with font size so dense and sparse layouts both work.
func mergeCells(runs []textRun) []pdfCell {
	sort.Slice(runs, func(i, j int) bool { return runs[i].x < runs[j].x })

	var cells []pdfCell
	cur := pdfCell{x: runs[0].x, text: runs[0].text}
	end := runs[0].x + runs[0].w
	for _, run := range runs[1:] {
		gap := run.x - end
		threshold := run.fontSize * 0.9
		if threshold < 4 {
			threshold = 4
		}
		if gap > threshold {
			cells = append(cells, cur)
			cur = pdfCell{x: run.x, text: run.text}
		} else {
			cur.text += run.text
		}
		if run.x+run.w > end {
			end = run.x + run.w
		}
	}
	cells = append(cells, cur)
	return cells
}

// detectRegions returns maximal stretches of consecutive lines with at
// least two cells. Single-cell lines are headings or prose, not tables.
func detectRegions(lines [][]pdfCell) [][][]pdfCell {
	var regions [][][]pdfCell
	var current [][]pdfCell
	for _, line := range lines {
		if len(line) >= 2 {
			current = append(current, line)
			continue
		}
		if len(current) >= 2 {
			regions = append(regions, current)
		}
		current = nil
	}
	if len(current) >= 2 {
		regions = append(regions, current)
	}
	return regions
}

// regionToTable aligns the cells of a region into columns by clustering
// their X origins, then emits the grid.
func regionToTable(origin string, region [][]pdfCell) *dataset.RawTable {
	var xs []float64
	for _, line := range region {
		for _, cell := range line {
			xs = append(xs, cell.x)
		}
	}
	anchors := clusterAnchors(xs, 6.0)

	table := &dataset.RawTable{Origin: origin}
	for _, line := range region {
		row := make([]dataset.Cell, len(anchors))
		for i := range row {
			row[i] = dataset.Null()
		}
		for _, cell := range line {
			idx := nearestAnchor(anchors, cell.x)
			if row[idx].IsNull() {
				row[idx] = dataset.Text(cell.text)
			} else {
				row[idx] = dataset.Text(row[idx].String() + " " + cell.text)
			}
		}
		table.Cells = append(table.Cells, row)
	}
	return table
}

func clusterAnchors(xs []float64, tolerance float64) []float64 {
	sort.Float64s(xs)
	var anchors []float64
	for _, x := range xs {
		if len(anchors) == 0 || x-anchors[len(anchors)-1] > tolerance {
			anchors = append(anchors, x)
		}
	}
	return anchors
}

func nearestAnchor(anchors []float64, x float64) int {
	best, bestDist := 0, -1.0
	for i, a := range anchors {
		d := x - a
		if d < 0 {
			d = -d
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
