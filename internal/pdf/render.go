package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
)

type renderer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
	doc *Document
}

// Render writes doc to w as an A4 portrait PDF. Column headers are repeated
// after every page break.
func Render(w io.Writer, doc *Document) error {
	for _, t := range doc.Sections {
		if err := t.validate(); err != nil {
			return err
		}
	}
	if doc.GeneratedAt.IsZero() {
		doc.GeneratedAt = time.Now()
	}

	p := fpdf.New("P", "mm", "A4", "")
	p.SetMargins(pageMargin, pageMargin, pageMargin)
	p.SetAutoPageBreak(true, pageMargin)
	p.AliasNbPages("")
	p.SetTitle(doc.Title, true)
	p.SetCreator("solsub-admin", true)

	r := &renderer{pdf: p, tr: p.UnicodeTranslatorFromDescriptor(""), doc: doc}
	p.SetFooterFunc(r.footer)

	p.AddPage()
	r.header()
	for i := range doc.Sections {
		r.table(&doc.Sections[i])
	}

	if err := p.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return p.Output(w)
}

func (r *renderer) usableWidth() float64 {
	pageW, _ := r.pdf.GetPageSize()
	left, _, right, _ := r.pdf.GetMargins()
	return pageW - left - right
}

func (r *renderer) header() {
	p := r.pdf
	p.SetFillColor(33, 37, 41)
	p.SetTextColor(255, 255, 255)
	p.SetFont("Helvetica", "B", 16)
	p.CellFormat(0, 12, r.tr(r.doc.Title), "", 1, AlignLeft, true, 0, "")
	if r.doc.Subtitle != "" {
		p.SetFont("Helvetica", "", 10)
		p.CellFormat(0, 7, r.tr(r.doc.Subtitle), "", 1, AlignLeft, true, 0, "")
	}
	p.SetTextColor(0, 0, 0)
	p.Ln(3)

	if len(r.doc.Meta) > 0 {
		p.SetFont("Helvetica", "", 9)
		for _, kv := range r.doc.Meta {
			p.SetFont("Helvetica", "B", 9)
			p.CellFormat(45, 5, r.tr(kv.Key), "", 0, AlignLeft, false, 0, "")
			p.SetFont("Helvetica", "", 9)
			p.CellFormat(0, 5, r.tr(kv.Value), "", 1, AlignLeft, false, 0, "")
		}
		p.Ln(3)
	}
}

func (r *renderer) footer() {
	p := r.pdf
	p.SetY(-pageMargin + 3)
	p.SetFont("Helvetica", "I", 8)
	p.SetTextColor(120, 120, 120)
	generated := "Generated " + r.doc.GeneratedAt.Format("2006-01-02 15:04:05")
	p.CellFormat(r.usableWidth()/2, 5, generated, "", 0, AlignLeft, false, 0, "")
	p.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", p.PageNo()), "", 0, AlignRight, false, 0, "")
	p.SetTextColor(0, 0, 0)
}

// fits reports whether h more millimetres fit above the bottom margin.
func (r *renderer) fits(h float64) bool {
	_, pageH := r.pdf.GetPageSize()
	_, _, _, bottom := r.pdf.GetMargins()
	return r.pdf.GetY()+h <= pageH-bottom
}

func (r *renderer) columnHeader(t *Table, widths []float64) {
	p := r.pdf
	p.SetFont("Helvetica", "B", 9)
	p.SetFillColor(222, 226, 230)
	for i, c := range t.Columns {
		p.CellFormat(widths[i], headerHeight, r.tr(c.Header), "1", 0, align(c), true, 0, "")
	}
	p.Ln(-1)
	p.SetFont("Helvetica", "", 9)
}

func (r *renderer) table(t *Table) {
	p := r.pdf
	widths := t.widths(r.usableWidth())

	// Keep the title with at least the column header and one row.
	if !r.fits(10 + headerHeight + rowHeight) {
		p.AddPage()
	}
	if t.Title != "" {
		p.SetFont("Helvetica", "B", 12)
		p.CellFormat(0, 10, r.tr(t.Title), "", 1, AlignLeft, false, 0, "")
	}
	r.columnHeader(t, widths)

	if len(t.Rows) == 0 {
		empty := t.Empty
		if empty == "" {
			empty = "No records."
		}
		p.SetFont("Helvetica", "I", 9)
		p.CellFormat(0, rowHeight, r.tr(empty), "1", 1, AlignCenter, false, 0, "")
	}

	fill := false
	for _, row := range t.Rows {
		if !r.fits(rowHeight) {
			p.AddPage()
			r.columnHeader(t, widths)
		}
		p.SetFillColor(248, 249, 250)
		for i, cell := range row {
			p.CellFormat(widths[i], rowHeight, r.tr(cell), "1", 0, align(t.Columns[i]), fill, 0, "")
		}
		p.Ln(-1)
		fill = !fill
	}

	if t.Total != nil {
		if !r.fits(rowHeight) {
			p.AddPage()
			r.columnHeader(t, widths)
		}
		p.SetFont("Helvetica", "B", 9)
		p.SetFillColor(233, 236, 239)
		for i, cell := range t.Total {
			p.CellFormat(widths[i], rowHeight, r.tr(cell), "1", 0, align(t.Columns[i]), true, 0, "")
		}
		p.Ln(-1)
	}
	p.Ln(4)
}
