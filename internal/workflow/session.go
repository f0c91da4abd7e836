package workflow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"financewatch/internal/core"
	"financewatch/internal/logger"
)

// Analyzer submits documents to the analysis endpoint.
type Analyzer interface {
	Analyze(ctx context.Context, files []core.UploadedFile) (core.AnalysisResult, error)
}

// HistoryRepository persists the approved history.
type HistoryRepository interface {
	Load(ctx context.Context) ([]core.HistoryEntry, error)
	Save(ctx context.Context, history []core.HistoryEntry) error
	Clear(ctx context.Context) error
}

// Session owns the state of one review session. It is safe for concurrent use
// by HTTP handlers and the terminal UI.
type Session struct {
	mu       sync.Mutex
	state    State
	env      Env
	analyzer Analyzer
	history  HistoryRepository
	inFlight atomic.Bool
}

// NewSession restores history and returns a session on the Upload view.
// A history that cannot be read is logged and replaced by an empty one.
func NewSession(ctx context.Context, analyzer Analyzer, history HistoryRepository, env Env) *Session {
	var entries []core.HistoryEntry
	if history != nil {
		loaded, err := history.Load(ctx)
		if err != nil {
			logger.Warn("Failed to load history, starting empty", "error", err.Error())
		} else {
			entries = loaded
		}
	}

	return &Session{
		state:    NewState(entries),
		env:      env,
		analyzer: analyzer,
		history:  history,
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Busy reports whether an analysis request is in flight.
func (s *Session) Busy() bool {
	return s.inFlight.Load()
}

// AddFiles appends documents to the upload list.
func (s *Session) AddFiles(files ...core.UploadedFile) (State, error) {
	return s.Dispatch(context.Background(), AddFiles{Files: files})
}

// Dispatch applies a to the session state. Approve also persists the new
// history; the state is only committed once the history is saved.
func (s *Session) Dispatch(ctx context.Context, a Action) (State, error) {
	switch a.(type) {
	case StartAnalysis:
		err := s.Analyze(ctx)
		return s.Snapshot(), err
	case AnalysisSucceeded, AnalysisFailed:
		return s.Snapshot(), fmt.Errorf("%T is reserved for Analyze", a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Apply(s.state, a, s.env)
	if err != nil {
		return s.state.Clone(), err
	}

	if _, ok := a.(Approve); ok && s.history != nil {
		if err := s.history.Save(ctx, next.History); err != nil {
			return s.state.Clone(), fmt.Errorf("failed to save history: %w", err)
		}
		logger.Info("Report approved", "date", next.History[0].Date, "trends", len(next.History[0].Trends), "history_entries", len(next.History))
	}

	s.state = next
	return next.Clone(), nil
}

// Analyze sends the uploaded files to the analyzer. Any analyzer failure is
// absorbed: the demonstration dataset is installed and a notice raised.
// Errors are returned only when the analysis could not start.
func (s *Session) Analyze(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrAnalysisInFlight
	}
	defer s.inFlight.Store(false)

	s.mu.Lock()
	next, err := Apply(s.state, StartAnalysis{}, s.env)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	files := append([]core.UploadedFile(nil), next.Files...)
	s.mu.Unlock()

	logger.Info("Starting analysis", "files", len(files))

	var outcome Action
	result, err := s.analyzer.Analyze(ctx, files)
	if err != nil {
		logger.Warn("Analysis failed, using demonstration data", "error", err.Error())
		outcome = AnalysisFailed{Err: err}
	} else {
		logger.Info("Analysis completed", "trends", len(result.Trends))
		outcome = AnalysisSucceeded{Result: result}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, err = Apply(s.state, outcome, s.env)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// ClearHistory deletes the persisted history and empties it in memory.
func (s *Session) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.history != nil {
		if err := s.history.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
	}
	s.state.History = nil
	return nil
}

// Env returns the environment transitions run with.
func (s *Session) Env() Env {
	return s.env
}
