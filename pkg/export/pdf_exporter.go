package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a tabular PDF statement.
type PDFExporter struct {
	// RightAlign lists header names whose cells are right-aligned (amounts).
	RightAlign []string
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter(rightAlign ...string) *PDFExporter {
	return &PDFExporter{RightAlign: rightAlign}
}

// Render creates a PDF document with an optional title, table body and totals footer.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	aligned := make(map[string]bool, len(e.RightAlign))
	for _, h := range e.RightAlign {
		aligned[h] = true
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		e.renderRow(pdf, data.Headers, row, aligned, colWidth)
	}
	if data.Footer != nil {
		pdf.SetFont("Arial", "B", 9)
		e.renderRow(pdf, data.Headers, data.Footer, aligned, colWidth)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) renderRow(pdf *gofpdf.Fpdf, headers []string, row map[string]string, aligned map[string]bool, colWidth float64) {
	for _, header := range headers {
		align := ""
		if aligned[header] {
			align = "R"
		}
		pdf.CellFormat(colWidth, 7, row[header], "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}
