package dataset

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies the type of a cell or column.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindTime
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Cell is a single typed value in a table. The zero value is a null cell.
type Cell struct {
	kind Kind
	num  float64
	str  string
	ts   time.Time
}

// Null returns a null cell.
func Null() Cell {
	return Cell{kind: KindNull}
}

// Text returns a text cell. An empty or all-whitespace string is treated
// as null, matching how parsers report missing values.
func Text(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Null()
	}
	return Cell{kind: KindText, str: s}
}

// Number returns a numeric cell.
func Number(f float64) Cell {
	return Cell{kind: KindNumber, num: f}
}

// Time returns a timestamp cell.
func Time(t time.Time) Cell {
	return Cell{kind: KindTime, ts: t}
}

// Kind returns the cell's kind.
func (c Cell) Kind() Kind { return c.kind }

// IsNull reports whether the cell holds no value.
func (c Cell) IsNull() bool { return c.kind == KindNull }

// Number returns the numeric value and whether the cell is numeric.
func (c Cell) Number() (float64, bool) {
	return c.num, c.kind == KindNumber
}

// Time returns the timestamp value and whether the cell is a timestamp.
func (c Cell) Time() (time.Time, bool) {
	return c.ts, c.kind == KindTime
}

// String renders the cell for display and export.
func (c Cell) String() string {
	switch c.kind {
	case KindText:
		return c.str
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	case KindTime:
		return c.ts.Format("2006-01-02")
	default:
		return ""
	}
}

// ParseNumber attempts to interpret a cell as a number. Numeric cells
// return their value directly; text cells are parsed after stripping
// thousands separators and surrounding whitespace.
func (c Cell) ParseNumber() (float64, bool) {
	switch c.kind {
	case KindNumber:
		return c.num, true
	case KindText:
		s := strings.ReplaceAll(strings.TrimSpace(c.str), ",", "")
		if s == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// timeLayouts are tried in order when coercing text to timestamps.
var timeLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseTime attempts to interpret a cell as a timestamp.
func (c Cell) ParseTime() (time.Time, bool) {
	switch c.kind {
	case KindTime:
		return c.ts, true
	case KindText:
		s := strings.TrimSpace(c.str)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
