// Package extract turns uploaded documents into plain text for the analysis prompts.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"financewatch/internal/logger"
)

// DocumentSeparator is placed between documents in the combined prompt text.
const DocumentSeparator = "\n\n---\n\n"

// Document is one uploaded file after text extraction.
type Document struct {
	Name string
	Text string
}

// Text extracts the text of a file based on its extension. PDF, TXT and HTML
// are supported; any other type contributes an empty body. A PDF that cannot
// be read yields the error message as its text so the analysis still sees
// the document.
func Text(name string, content []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		text, err := PDFText(content)
		if err != nil {
			logger.Warn("PDF extraction failed", "file", name, "error", err.Error())
			return fmt.Sprintf("Error while extracting the PDF: %v", err)
		}
		return text
	case ".txt", ".md", ".csv":
		if !utf8.Valid(content) {
			return strings.ToValidUTF8(string(content), "�")
		}
		return string(content)
	case ".html", ".htm":
		text, err := HTMLText(content)
		if err != nil {
			logger.Warn("HTML extraction failed", "file", name, "error", err.Error())
			return ""
		}
		return text
	default:
		logger.Debug("Unsupported document type, sending empty body", "file", name)
		return ""
	}
}

// Combine renders documents the way the analysis prompt expects them.
func Combine(docs []Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = fmt.Sprintf("Document: %s\n%s", d.Name, d.Text)
	}
	return strings.Join(parts, DocumentSeparator)
}
