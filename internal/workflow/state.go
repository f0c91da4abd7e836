// Package workflow holds the review workflow: the state of one review session
// and the pure transition function that every user action goes through.
package workflow

import (
	"time"

	"financewatch/internal/core"
)

// DefaultDateLayout is the short day/month/year date used for history entries.
const DefaultDateLayout = "02/01/2006"

// Clock abstracts time retrieval so transitions are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Env carries the inputs a transition needs besides the state itself.
type Env struct {
	Clock      Clock
	DateLayout string
}

// DefaultEnv returns an Env using the wall clock and DefaultDateLayout.
func DefaultEnv() Env {
	return Env{Clock: RealClock{}, DateLayout: DefaultDateLayout}
}

func (e Env) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

func (e Env) layout() string {
	if e.DateLayout == "" {
		return DefaultDateLayout
	}
	return e.DateLayout
}

// State is everything the review UI renders.
type State struct {
	View           core.View           `json:"view"`
	Files          []core.UploadedFile `json:"files"`
	Trends         []core.Trend        `json:"trends"`
	Report         *core.Report        `json:"report"`
	Editing        *core.Trend         `json:"editing"`
	History        []core.HistoryEntry `json:"history"`
	ValidationMode bool                `json:"validation_mode"`
	Approved       bool                `json:"approved"` // Trends and Report are History[0]
	Analyzing      bool                `json:"analyzing"`
	Notice         string              `json:"notice,omitempty"`
}

// NewState returns the initial state: Upload view with the given history.
func NewState(history []core.HistoryEntry) State {
	return State{
		View:    core.ViewUpload,
		History: TruncateHistory(cloneHistory(history)),
	}
}

// Clone returns a deep copy so a transition never aliases its input.
func (s State) Clone() State {
	c := s
	c.Files = append([]core.UploadedFile(nil), s.Files...)
	c.Trends = core.CloneTrends(s.Trends)
	c.Report = s.Report.Clone()
	if s.Editing != nil {
		e := *s.Editing
		c.Editing = &e
	}
	c.History = cloneHistory(s.History)
	return c
}

// FindTrend returns the trend with the given id.
func (s State) FindTrend(id int64) (core.Trend, bool) {
	for _, t := range s.Trends {
		if t.ID == id {
			return t, true
		}
	}
	return core.Trend{}, false
}

// IsEditing reports whether the edit buffer targets id.
func (s State) IsEditing(id int64) bool {
	return s.Editing != nil && s.Editing.ID == id
}

// CanAnalyze reports whether the Analyze control should be enabled.
func (s State) CanAnalyze() bool {
	return !s.Analyzing && len(s.Files) > 0
}

func cloneHistory(history []core.HistoryEntry) []core.HistoryEntry {
	if history == nil {
		return nil
	}
	out := make([]core.HistoryEntry, len(history))
	for i, h := range history {
		out[i] = core.HistoryEntry{
			Date:   h.Date,
			Trends: core.CloneTrends(h.Trends),
			Report: h.Report.Clone(),
		}
	}
	return out
}
