package parser

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"salesinsights/internal/dataset"
	"salesinsights/internal/errors"
)

// Parser turns uploaded file bytes into raw tables.
type Parser struct {
	logger *slog.Logger
}

// New creates a parser.
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger: logger.With(slog.String("component", "parser")),
	}
}

// supportedExtensions maps file extensions to their parse routine.
var supportedExtensions = map[string]bool{
	".csv":  true,
	".tsv":  true,
	".txt":  true,
	".xlsx": true,
	".xlsm": true,
	".xls":  true,
	".pdf":  true,
	".html": true,
	".htm":  true,
}

// Supported reports whether the file name carries a parseable extension.
func Supported(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Parse extracts a single raw table from the uploaded bytes, dispatching
// on the file extension. Unsupported extensions are rejected before any
// parser runs. Formats that yield several table regions (PDF pages, HTML
// table elements) are concatenated into one grid.
func (p *Parser) Parse(name string, data []byte) (*dataset.RawTable, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !supportedExtensions[ext] {
		return nil, errors.NewParseError(
			fmt.Sprintf("unsupported file type %q", ext), nil)
	}

	p.logger.Info("parsing uploaded file",
		slog.String("name", name),
		slog.String("extension", ext),
		slog.Int("size_bytes", len(data)))

	switch ext {
	case ".csv", ".tsv", ".txt":
		return p.parseDelimited(name, data)
	case ".xlsx", ".xlsm", ".xls":
		return p.parseSpreadsheet(name, data)
	case ".html", ".htm":
		return p.parseHTML(name, data)
	default:
		return p.parsePDF(name, data)
	}
}
