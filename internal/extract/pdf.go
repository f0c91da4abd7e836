package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"financewatch/internal/logger"
)

// PDFText extracts the plain text of every page.
func PDFText(content []byte) (text string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	pdfReader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pageCount := pdfReader.NumPage()

	for i := 1; i <= pageCount; i++ {
		page := pdfReader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// keep going with the other pages
			logger.Warn("Failed to extract text from PDF page", "page", i, "error", err.Error())
			continue
		}

		textBuilder.WriteString(pageText)
	}

	return cleanPDFText(textBuilder.String()), nil
}

// cleanPDFText drops blank lines and surrounding whitespace
func cleanPDFText(rawText string) string {
	lines := strings.Split(rawText, "\n")
	cleanLines := make([]string, 0, len(lines))

	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleanLines = append(cleanLines, trimmed)
		}
	}

	return strings.Join(cleanLines, "\n")
}
