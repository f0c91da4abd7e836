package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"financewatch/internal/core"
)

// ErrNoReport is returned when there is no report to export.
var ErrNoReport = errors.New("no report available")

const (
	// ReportTitle heads both the PDF and Markdown exports.
	ReportTitle = "Weekly Report - FinanceWatch AI"
	// PDFFilename is the fixed name of the downloaded PDF.
	PDFFilename = "rapport_financewatch.pdf"
)

// ReportData combines what an export needs.
type ReportData struct {
	Report      *core.Report // Required
	Trends      []core.Trend // Optional, rendered as a table in Markdown
	Previous    []core.Trend // Trends of the previous approved report, for the comparison column
	GeneratedAt time.Time    // Shown as the generation date
	DateLayout  string       // Layout for GeneratedAt, defaults to 02/01/2006
}

func (d ReportData) date() string {
	layout := d.DateLayout
	if layout == "" {
		layout = "02/01/2006"
	}
	at := d.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	return at.Format(layout)
}

// MarkdownReport renders the report as Markdown.
func MarkdownReport(data ReportData) (string, error) {
	if data.Report == nil {
		return "", ErrNoReport
	}

	var md strings.Builder

	md.WriteString(fmt.Sprintf("# %s\n\n", ReportTitle))
	md.WriteString(fmt.Sprintf("*Generated on %s*\n\n", data.date()))

	md.WriteString("## Executive Summary\n\n")
	md.WriteString(strings.TrimSpace(data.Report.ExecutiveSummary) + "\n\n")

	md.WriteString("## Key Trends\n\n")
	if len(data.Report.KeyTrends) == 0 {
		md.WriteString("No key trends.\n\n")
	} else {
		for _, kt := range data.Report.KeyTrends {
			md.WriteString(fmt.Sprintf("- %s\n", strings.TrimSpace(kt)))
		}
		md.WriteString("\n")
	}

	md.WriteString("## Recommendations\n\n")
	md.WriteString(strings.TrimSpace(data.Report.Recommendations) + "\n")

	if len(data.Trends) > 0 {
		md.WriteString("\n## Trends\n\n")
		md.WriteString("| Category | Sentiment | Mentions | Change | Previous week |\n")
		md.WriteString("|---|---|---|---|---|\n")
		for _, t := range data.Trends {
			md.WriteString(fmt.Sprintf("| %s | %d%% | %d | %s | %s |\n",
				escapeCell(t.Category), t.Sentiment, t.Mentions, escapeCell(t.Change), previousCell(data.Previous, t.Category)))
		}
	}

	return md.String(), nil
}

// RenderMarkdownReport writes the Markdown export to outputDir and returns its path.
func RenderMarkdownReport(data ReportData, outputDir string) (string, error) {
	content, err := MarkdownReport(data)
	if err != nil {
		return "", err
	}

	at := data.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	filename := fmt.Sprintf("rapport_financewatch_%s.md", at.UTC().Format("2006-01-02"))

	return WriteReportToFile([]byte(content), outputDir, filename)
}

// WriteReportToFile writes content to a file in the specified directory
func WriteReportToFile(content []byte, outputDir, filename string) (string, error) {
	if outputDir == "" {
		outputDir = "." // Default output directory
	}

	err := os.MkdirAll(outputDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	filePath := filepath.Join(outputDir, filename)

	err = os.WriteFile(filePath, content, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to write report file %s: %w", filePath, err)
	}

	return filePath, nil
}

func previousCell(previous []core.Trend, category string) string {
	for _, p := range previous {
		if p.Category == category {
			return fmt.Sprintf("%d%% sentiment", p.Sentiment)
		}
	}
	return "-"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
