package render

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Page geometry in millimetres.
const (
	pdfMargin    = 20.0
	pdfBodyWidth = 170.0
	pdfLineH     = 6.0
)

// WritePDF renders the report to w: title, generation date, executive
// summary, bulleted key trends and recommendations. Long content flows onto
// new pages through fpdf's automatic page break.
func WritePDF(w io.Writer, data ReportData) error {
	if data.Report == nil {
		return ErrNoReport
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(ReportTitle, true)
	pdf.SetCreator("financewatch", true)
	if !data.GeneratedAt.IsZero() {
		pdf.SetCreationDate(data.GeneratedAt)
		pdf.SetModificationDate(data.GeneratedAt)
	}
	pdf.AddPage()

	// core fonts are cp1252; this maps accents and the bullet glyph
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(ReportTitle), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr("Date: "+data.date()), "", 1, "L", false, 0, "")
	pdf.Ln(8)

	heading := func(text string) {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 8, tr(text), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
	}

	heading("Executive Summary")
	pdf.MultiCell(pdfBodyWidth, pdfLineH, tr(data.Report.ExecutiveSummary), "", "L", false)
	pdf.Ln(6)

	heading("Key Trends")
	for _, kt := range data.Report.KeyTrends {
		pdf.SetX(pdfMargin + 5)
		pdf.MultiCell(pdfBodyWidth-10, pdfLineH, tr("• "+kt), "", "L", false)
		pdf.Ln(2)
	}
	pdf.Ln(4)

	heading("Recommendations")
	pdf.MultiCell(pdfBodyWidth, pdfLineH, tr(data.Report.Recommendations), "", "L", false)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

// PDFBytes renders the report into memory.
func PDFBytes(data ReportData) ([]byte, error) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SavePDF writes the PDF to outputDir/filename and returns its path.
// An empty filename uses PDFFilename.
func SavePDF(data ReportData, outputDir, filename string) (string, error) {
	if filename == "" {
		filename = PDFFilename
	}
	content, err := PDFBytes(data)
	if err != nil {
		return "", err
	}
	return WriteReportToFile(content, outputDir, filename)
}
