// Package pdf renders tabular report documents.
package pdf

import (
	"errors"
	"fmt"
	"time"
)

const (
	pageMargin   = 15.0
	rowHeight    = 7.0
	headerHeight = 8.0
	filenameTime = "20060102_150405"
)

// Column alignment values understood by fpdf.
const (
	AlignLeft   = "L"
	AlignRight  = "R"
	AlignCenter = "C"
)

type KV struct {
	Key   string
	Value string
}

// Column describes one table column. Weight is relative to the other
// columns of the same table; zero counts as one.
type Column struct {
	Header string
	Weight float64
	Align  string
}

// Table is one section of a document. Total, when set, is rendered as a
// bold row after the body and must have one cell per column.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
	Total   []string
	Empty   string
}

type Document struct {
	Title    string
	Subtitle string
	Meta     []KV
	Sections []Table

	GeneratedAt time.Time
}

var ErrNoColumns = errors.New("pdf: table has no columns")

// Filename returns "<prefix>_<YYYYMMDD_HHMMSS>.pdf".
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.pdf", prefix, now.Format(filenameTime))
}

func (t Table) validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%w: %q", ErrNoColumns, t.Title)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("pdf: table %q row %d has %d cells, want %d", t.Title, i, len(row), len(t.Columns))
		}
	}
	if t.Total != nil && len(t.Total) != len(t.Columns) {
		return fmt.Errorf("pdf: table %q total has %d cells, want %d", t.Title, len(t.Total), len(t.Columns))
	}
	return nil
}

// widths distributes usable across the columns by weight.
func (t Table) widths(usable float64) []float64 {
	sum := 0.0
	for _, c := range t.Columns {
		sum += weight(c)
	}
	out := make([]float64, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = usable * weight(c) / sum
	}
	return out
}

func weight(c Column) float64 {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

func align(c Column) string {
	if c.Align == "" {
		return AlignLeft
	}
	return c.Align
}
