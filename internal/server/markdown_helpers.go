package server

import (
	"html/template"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// renderMarkdown converts model-written text to HTML. Raw HTML in the input is
// skipped since the text comes from an LLM.
func renderMarkdown(text string) template.HTML {
	if strings.TrimSpace(text) == "" {
		return template.HTML("")
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	mdParser := parser.NewWithExtensions(extensions)

	htmlFlags := html.CommonFlags | html.HrefTargetBlank | html.SkipHTML
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: htmlFlags,
	})

	htmlBytes := markdown.ToHTML([]byte(text), mdParser, renderer)

	return template.HTML(htmlBytes)
}

// truncateSummary truncates a summary to a specified character length for preview.
// Adds "..." if truncated. Used for history card previews.
func truncateSummary(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}

	// Find last space before maxChars to avoid cutting words
	truncated := text[:maxChars]
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "..."
}
