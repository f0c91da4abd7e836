package workflow

import (
	"errors"
	"fmt"

	"financewatch/internal/core"
)

var (
	ErrAnalysisInFlight = errors.New("an analysis is already running")
	ErrNoFiles          = errors.New("no documents to analyze")
	ErrValidationLocked = errors.New("validation is only available after an analysis")
	ErrNotInValidation  = errors.New("trends can only be changed in validation mode")
	ErrTrendNotFound    = errors.New("trend not found")
	ErrNoEdit           = errors.New("no trend is being edited")
)

// Placeholder values for a manually added trend.
const (
	NewTrendCategory    = "New trend"
	NewTrendSentiment   = 50
	NewTrendChange      = "0%"
	NewTrendDescription = "Description to complete"
)

// Action is a user or system event applied to a State.
type Action interface {
	action()
}

// AddFiles appends documents to the upload list with status ready.
type AddFiles struct{ Files []core.UploadedFile }

// StartAnalysis marks every file analyzing and sets the in-flight flag.
type StartAnalysis struct{}

// AnalysisSucceeded installs the trends and report returned by the endpoint.
type AnalysisSucceeded struct{ Result core.AnalysisResult }

// AnalysisFailed installs the demonstration dataset and raises a notice.
type AnalysisFailed struct{ Err error }

// BeginEdit copies a trend into the edit buffer, replacing any pending edit.
type BeginEdit struct{ ID int64 }

// UpdateEdit overwrites the edit buffer fields. The buffer keeps its id.
type UpdateEdit struct{ Trend core.Trend }

// SaveEdit writes the edit buffer back into the trend list.
type SaveEdit struct{}

// CancelEdit discards the edit buffer.
type CancelEdit struct{}

// AddTrend appends a placeholder trend and opens it for editing.
type AddTrend struct{}

// DeleteTrend removes a trend.
type DeleteTrend struct{ ID int64 }

// Approve snapshots trends and report into history and leaves validation mode.
type Approve struct{}

// SwitchView changes the active tab.
type SwitchView struct{ View core.View }

// DismissNotice clears the advisory banner.
type DismissNotice struct{}

func (AddFiles) action()          {}
func (StartAnalysis) action()     {}
func (AnalysisSucceeded) action() {}
func (AnalysisFailed) action()    {}
func (BeginEdit) action()         {}
func (UpdateEdit) action()        {}
func (SaveEdit) action()          {}
func (CancelEdit) action()        {}
func (AddTrend) action()          {}
func (DeleteTrend) action()       {}
func (Approve) action()           {}
func (SwitchView) action()        {}
func (DismissNotice) action()     {}

// Apply returns the state that results from applying a to s. It never mutates
// s; on error the returned state is s unchanged.
func Apply(s State, a Action, env Env) (State, error) {
	next := s.Clone()

	switch a := a.(type) {
	case AddFiles:
		for _, f := range a.Files {
			f.Status = core.FileReady
			next.Files = append(next.Files, f)
		}

	case StartAnalysis:
		if s.Analyzing {
			return s, ErrAnalysisInFlight
		}
		if len(s.Files) == 0 {
			return s, ErrNoFiles
		}
		next.Analyzing = true
		next.Notice = ""
		setFileStatus(next.Files, core.FileAnalyzing)

	case AnalysisSucceeded:
		installResult(&next, a.Result)

	case AnalysisFailed:
		installResult(&next, DemoResult())
		next.Notice = FallbackNotice

	case BeginEdit:
		if !s.ValidationMode {
			return s, ErrNotInValidation
		}
		t, ok := s.FindTrend(a.ID)
		if !ok {
			return s, fmt.Errorf("%w: %d", ErrTrendNotFound, a.ID)
		}
		next.Editing = &t

	case UpdateEdit:
		if s.Editing == nil {
			return s, ErrNoEdit
		}
		t := a.Trend
		t.ID = s.Editing.ID
		next.Editing = &t

	case SaveEdit:
		if !s.ValidationMode {
			return s, ErrNotInValidation
		}
		if s.Editing == nil {
			return s, ErrNoEdit
		}
		for i := range next.Trends {
			if next.Trends[i].ID == s.Editing.ID {
				next.Trends[i] = *s.Editing
			}
		}
		next.Editing = nil

	case CancelEdit:
		next.Editing = nil

	case AddTrend:
		if !s.ValidationMode {
			return s, ErrNotInValidation
		}
		t := core.Trend{
			ID:          nextTrendID(s.Trends, env.now().UnixMilli()),
			Category:    NewTrendCategory,
			Sentiment:   NewTrendSentiment,
			Mentions:    0,
			Change:      NewTrendChange,
			Description: NewTrendDescription,
		}
		next.Trends = append(next.Trends, t)
		next.Editing = &t

	case DeleteTrend:
		if !s.ValidationMode {
			return s, ErrNotInValidation
		}
		if _, ok := s.FindTrend(a.ID); !ok {
			return s, fmt.Errorf("%w: %d", ErrTrendNotFound, a.ID)
		}
		kept := next.Trends[:0]
		for _, t := range next.Trends {
			if t.ID != a.ID {
				kept = append(kept, t)
			}
		}
		next.Trends = kept
		if next.IsEditing(a.ID) {
			next.Editing = nil
		}

	case Approve:
		if !s.ValidationMode {
			return s, ErrNotInValidation
		}
		entry := core.HistoryEntry{
			Date:   env.now().Format(env.layout()),
			Trends: core.CloneTrends(s.Trends),
			Report: s.Report.Clone(),
		}
		if entry.Trends == nil {
			entry.Trends = []core.Trend{}
		}
		next.History = PrependHistory(next.History, entry)
		next.ValidationMode = false
		next.Approved = true
		next.Editing = nil
		next.View = core.ViewTrends

	case SwitchView:
		if a.View == core.ViewValidation && !s.ValidationMode {
			return s, ErrValidationLocked
		}
		if _, err := core.ParseView(string(a.View)); err != nil {
			return s, err
		}
		next.View = a.View

	case DismissNotice:
		next.Notice = ""

	default:
		return s, fmt.Errorf("unsupported action %T", a)
	}

	return next, nil
}

func installResult(s *State, result core.AnalysisResult) {
	s.Trends = make([]core.Trend, len(result.Trends))
	for i, t := range result.Trends {
		t.ID = int64(i)
		s.Trends[i] = t
	}
	s.Report = result.Report.Clone()
	s.Editing = nil
	setFileStatus(s.Files, core.FileCompleted)
	s.Analyzing = false
	s.ValidationMode = true
	s.Approved = false
	s.View = core.ViewValidation
}

func setFileStatus(files []core.UploadedFile, status core.FileStatus) {
	for i := range files {
		files[i].Status = status
	}
}

// nextTrendID starts from the timestamp and steps past any id already in use.
func nextTrendID(trends []core.Trend, candidate int64) int64 {
	used := make(map[int64]struct{}, len(trends))
	for _, t := range trends {
		used[t.ID] = struct{}{}
	}
	for {
		if _, taken := used[candidate]; !taken {
			return candidate
		}
		candidate++
	}
}
