package server

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"
)

//go:embed templates
var embeddedTemplates embed.FS

// TemplateRenderer manages HTML templates with hot-reload support
type TemplateRenderer struct {
	templates   *template.Template
	mu          sync.RWMutex
	devMode     bool
	templateDir string
	fsys        fs.FS
}

// NewTemplateRenderer creates a new template renderer. With an empty
// templateDir the embedded templates are used and hot reload is off.
func NewTemplateRenderer(devMode bool, templateDir string) (*TemplateRenderer, error) {
	tr := &TemplateRenderer{
		devMode:     devMode,
		templateDir: templateDir,
	}

	if templateDir == "" {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded templates: %w", err)
		}
		tr.fsys = sub
		tr.devMode = false
	} else {
		tr.fsys = os.DirFS(templateDir)
	}

	if err := tr.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return tr, nil
}

// loadTemplates parses all HTML templates from the template filesystem
func (tr *TemplateRenderer) loadTemplates() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	funcMap := template.FuncMap{
		"truncate":       truncateSummary,
		"sentimentClass": sentimentClass,
		"barWidth":       barWidth,
		"signed":         signed,
	}

	tmpl := template.New("").Funcs(funcMap)

	err := fs.WalkDir(tr.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip directories and non-HTML files
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		content, err := fs.ReadFile(tr.fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}

		// Template name is the path relative to the template root
		if _, err := tmpl.New(path).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", path, err)
		}

		return nil
	})

	if err != nil {
		return err
	}

	tr.templates = tmpl
	return nil
}

// Render executes a template with the given data
func (tr *TemplateRenderer) Render(w io.Writer, name string, data interface{}) error {
	// In dev mode, reload templates on each request
	if tr.devMode {
		if err := tr.loadTemplates(); err != nil {
			return fmt.Errorf("failed to reload templates: %w", err)
		}
	}

	tr.mu.RLock()
	defer tr.mu.RUnlock()

	if tr.templates == nil {
		return fmt.Errorf("templates not loaded")
	}

	if err := tr.templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return nil
}

// Helper functions for templates

// sentimentClass buckets a sentiment score for styling
func sentimentClass(sentiment int) string {
	switch {
	case sentiment >= 70:
		return "positive"
	case sentiment >= 40:
		return "neutral"
	default:
		return "negative"
	}
}

// barWidth clamps a sentiment to a 0-100 progress bar width. Manual edits may
// leave the value out of range.
func barWidth(sentiment int) int {
	if sentiment < 0 {
		return 0
	}
	if sentiment > 100 {
		return 100
	}
	return sentiment
}

// signed formats a delta with an explicit sign
func signed(n int) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}
