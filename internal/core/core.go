package core

import (
	"errors"
	"fmt"
	"strings"
)

// FileStatus tracks an uploaded document through analysis.
type FileStatus string

const (
	FileReady     FileStatus = "ready"
	FileAnalyzing FileStatus = "analyzing"
	FileCompleted FileStatus = "completed"
)

// View identifies one of the four mutually exclusive screens.
type View string

const (
	ViewUpload     View = "upload"
	ViewValidation View = "validation"
	ViewTrends     View = "trends"
	ViewReport     View = "report"
)

// Views lists the screens in tab order.
var Views = []View{ViewUpload, ViewValidation, ViewTrends, ViewReport}

// ErrUnknownView is returned by ParseView for names outside Views.
var ErrUnknownView = errors.New("unknown view")

// ParseView converts a tab name into a View.
func ParseView(s string) (View, error) {
	for _, v := range Views {
		if string(v) == strings.ToLower(strings.TrimSpace(s)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownView, s)
}

// UploadedFile is a document selected for analysis. It lives for one session only.
type UploadedFile struct {
	ID        string     `json:"id"`     // Unique identifier for the upload
	Name      string     `json:"name"`   // Original file name
	SizeLabel string     `json:"size"`   // Human readable size, e.g. "12.40 KB"
	Status    FileStatus `json:"status"` // ready, analyzing or completed
	Content   []byte     `json:"-"`      // Raw file bytes sent to the analysis endpoint
}

// Trend is one detected market topic awaiting or past human review.
type Trend struct {
	ID          int64  `json:"id"`          // Unique within the active trend list
	Category    string `json:"category"`    // Topic name, compared exactly across periods
	Sentiment   int    `json:"sentiment"`   // Expected 0-100, not enforced after manual edits
	Mentions    int    `json:"mentions"`    // Number of mentions in the analysed documents
	Change      string `json:"change"`      // Signed percentage, e.g. "+12%"
	Description string `json:"description"` // Short explanation
}

// Rising reports whether the change figure is positive.
func (t Trend) Rising() bool {
	return strings.HasPrefix(strings.TrimSpace(t.Change), "+")
}

// Report is the weekly narrative produced alongside the trends.
type Report struct {
	ExecutiveSummary string   `json:"executive_summary"`
	KeyTrends        []string `json:"key_trends"`
	Recommendations  string   `json:"recommendations"`
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.KeyTrends = append([]string(nil), r.KeyTrends...)
	return &c
}

// HistoryEntry is an approved snapshot of trends and report.
type HistoryEntry struct {
	Date   string  `json:"date"`   // Localized approval date
	Trends []Trend `json:"trends"` // Trends as approved
	Report *Report `json:"report"` // Report as approved, may be null
}

// AnalysisResult is what the analysis endpoint returns on success.
type AnalysisResult struct {
	Trends []Trend
	Report *Report
}

// CloneTrends copies a trend slice so callers can mutate it freely.
func CloneTrends(trends []Trend) []Trend {
	if trends == nil {
		return nil
	}
	return append(make([]Trend, 0, len(trends)), trends...)
}

// FormatSize renders a byte count the way the upload list shows it.
func FormatSize(bytes int64) string {
	return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
}
