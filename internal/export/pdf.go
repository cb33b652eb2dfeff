package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin       = 50.0
	pdfRowHeight    = 15.0
	pdfHeaderHeight = 20.0
	pdfLogoSize     = 32.0
	pdfGap          = 10.0
)

// PDFOptions carries optional PNG images for the document header and chart.
type PDFOptions struct {
	Logo  []byte
	Chart []byte
}

// WritePDF renders t as an A4 portrait document. Every row is written, the header row is
// repeated on each new page and a record count closes the table.
func WritePDF(w io.Writer, t Table, opts PDFOptions) error {
	pdf := buildPDF(t, opts)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func buildPDF(t Table, opts PDFOptions) *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetTitle(t.Title, true)
	pdf.SetCreator("healthdash", true)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, pageHeight := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pdfMargin
	bottom := pageHeight - pdfMargin

	pdf.AddPage()
	y := pdfMargin

	// title, with the logo to its left
	titleX, titleHeight := pdfMargin, pdfHeaderHeight
	if len(opts.Logo) > 0 {
		pdf.RegisterImageOptionsReader("logo", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(opts.Logo))
		pdf.ImageOptions("logo", pdfMargin, y, pdfLogoSize, pdfLogoSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		titleX += pdfLogoSize + pdfGap
		titleHeight = pdfLogoSize
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(titleX, y)
	pdf.CellFormat(pageWidth-pdfMargin-titleX, titleHeight, tr(t.Title), "", 0, "LM", false, 0, "")
	y += titleHeight + pdfGap

	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetXY(pdfMargin, y)
	pdf.MultiCell(contentWidth, 12, tr(t.FilterLine()), "", "L", false)
	y = pdf.GetY() + pdfGap

	if len(opts.Chart) > 0 {
		chartHeight := contentWidth * float64(ChartHeight) / float64(ChartWidth)
		pdf.RegisterImageOptionsReader("chart", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(opts.Chart))
		pdf.ImageOptions("chart", pdfMargin, y, contentWidth, chartHeight, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		y += chartHeight + pdfGap
	}

	drawHeader := func() {
		pdf.SetFillColor(200, 200, 200)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetXY(pdfMargin, y)
		for _, c := range t.Columns {
			pdf.CellFormat(c.Width, pdfHeaderHeight, tr(c.PDFHeader), "1", 0, "LM", true, 0, "")
		}
		y += pdfHeaderHeight
		pdf.SetFont("Helvetica", "", 8)
	}
	newPage := func() {
		pdf.AddPage()
		y = pdfMargin
	}

	if y+pdfHeaderHeight+pdfRowHeight > bottom {
		newPage()
	}
	drawHeader()

	for _, row := range t.Rows {
		if y+pdfRowHeight > bottom {
			newPage()
			drawHeader()
		}
		pdf.SetXY(pdfMargin, y)
		for i, c := range t.Columns {
			value := ""
			if i < len(row) {
				value = truncate(row[i], c.MaxChars)
			}
			pdf.CellFormat(c.Width, pdfRowHeight, tr(value), "1", 0, "LM", false, 0, "")
		}
		y += pdfRowHeight
	}

	if y+pdfGap+pdfRowHeight > bottom {
		newPage()
	} else {
		y += pdfGap
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(pdfMargin, y)
	pdf.CellFormat(contentWidth, pdfRowHeight, fmt.Sprintf("Total Records: %d", len(t.Rows)), "", 0, "LM", false, 0, "")

	return pdf
}
