package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var mainContentSelectors = []string{
	"article", "main", ".main-content", ".entry-content", ".post-content", ".article-body",
	"[role='main']",
	".content", "#content",
}

// HTMLText returns the readable text of an HTML page, preferring its main
// content container over navigation and other chrome.
func HTMLText(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Remove common non-content elements
	doc.Find("script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .cookie-banner").Remove()

	var text string
	for _, selector := range mainContentSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			text += s.Text() + " "
		})
		if strings.TrimSpace(text) != "" {
			break
		}
	}

	if strings.TrimSpace(text) == "" {
		text = doc.Find("body").Text()
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	cleaned := strings.Join(strings.Fields(text), " ")
	if title != "" && !strings.HasPrefix(cleaned, title) {
		cleaned = title + "\n" + cleaned
	}
	return cleaned, nil
}
