package server

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"financewatch/internal/core"
	"financewatch/internal/logger"
	"financewatch/internal/workflow"
)

// PageData contains all data needed to render the app
type PageData struct {
	State      workflow.State
	View       string
	Tabs       []TabView
	Trends     []TrendView
	Report     *ReportView
	History    []HistoryView
	Editing    *core.Trend
	CanAnalyze bool
	Busy       bool
	Endpoint   string
}

// TabView is one entry of the view switcher
type TabView struct {
	View     string
	Label    string
	Active   bool
	Disabled bool
}

// TrendView is a trend with its previous-period comparison
type TrendView struct {
	core.Trend
	Editing     bool
	Rising      bool
	HasPrevious bool
	Previous    int // Sentiment in the previous approved report
	Delta       int // Sentiment minus Previous
}

// ReportView is the report with model text rendered as HTML
type ReportView struct {
	ExecutiveSummary template.HTML
	KeyTrends        []template.HTML
	Recommendations  template.HTML
}

// HistoryView is the card shown for an approved report
type HistoryView struct {
	Date    string
	Trends  int
	Summary string
}

var tabLabels = map[core.View]string{
	core.ViewUpload:     "Upload",
	core.ViewValidation: "Validation",
	core.ViewTrends:     "Trends",
	core.ViewReport:     "Report",
}

func (s *Server) pageData(state workflow.State) PageData {
	busy := s.session.Busy()
	data := PageData{
		State:      state,
		View:       string(state.View),
		Editing:    state.Editing,
		CanAnalyze: state.CanAnalyze() && !busy,
		Busy:       busy,
		Endpoint:   s.opts.AnalysisEndpoint,
	}

	for _, v := range core.Views {
		data.Tabs = append(data.Tabs, TabView{
			View:     string(v),
			Label:    tabLabels[v],
			Active:   v == state.View,
			Disabled: v == core.ViewValidation && !state.ValidationMode,
		})
	}

	for _, t := range state.Trends {
		tv := TrendView{Trend: t, Editing: state.IsEditing(t.ID), Rising: t.Rising()}
		if prev, ok := workflow.PreviousPeriod(state.History, t.Category); ok {
			tv.HasPrevious = true
			tv.Previous = prev.Sentiment
			tv.Delta = t.Sentiment - prev.Sentiment
		}
		data.Trends = append(data.Trends, tv)
	}

	if state.Report != nil {
		rv := &ReportView{
			ExecutiveSummary: renderMarkdown(state.Report.ExecutiveSummary),
			Recommendations:  renderMarkdown(state.Report.Recommendations),
		}
		for _, kt := range state.Report.KeyTrends {
			rv.KeyTrends = append(rv.KeyTrends, renderMarkdown(kt))
		}
		data.Report = rv
	}

	for _, h := range state.History {
		hv := HistoryView{Date: h.Date, Trends: len(h.Trends)}
		if h.Report != nil {
			hv.Summary = h.Report.ExecutiveSummary
		}
		data.History = append(data.History, hv)
	}

	return data
}

// handleIndex renders the full page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, s.session.Snapshot())
}

// renderPage renders the app partial for HTMX requests and the full page otherwise
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, state workflow.State) {
	name := "layout.html"
	if isHTMXRequest(r) {
		name = "app"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.renderer.Render(w, name, s.pageData(state)); err != nil {
		logger.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("Failed to render page")
		_, _ = io.WriteString(w, "Failed to render page")
	}
}

// afterAction answers a form post. HTMX gets the refreshed app; plain forms
// are redirected back to the page.
func (s *Server) afterAction(w http.ResponseWriter, r *http.Request, state workflow.State) {
	if isHTMXRequest(r) {
		s.renderPage(w, r, http.StatusOK, state)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// actionError reports a rejected action
func (s *Server) actionError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	logger.Ctx(r.Context()).Warn().Err(err).Int("status", status).Msg("Action rejected")

	if isHTMXRequest(r) {
		_ = ShowErrorToast(w, err.Error())
		setHTMXReswap(w, "none")
		w.WriteHeader(status)
		return
	}
	http.Error(w, err.Error(), status)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrAnalysisInFlight),
		errors.Is(err, workflow.ErrValidationLocked),
		errors.Is(err, workflow.ErrNotInValidation),
		errors.Is(err, workflow.ErrNoEdit):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrTrendNotFound), errors.Is(err, core.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrNoFiles), errors.Is(err, errBadForm):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, a workflow.Action) {
	state, err := s.session.Dispatch(r.Context(), a)
	if err != nil {
		s.actionError(w, r, err)
		return
	}
	s.afterAction(w, r, state)
}

// handleSwitchView handles GET /views/{view}
func (s *Server) handleSwitchView(w http.ResponseWriter, r *http.Request) {
	view, err := core.ParseView(chi.URLParam(r, "view"))
	if err != nil {
		s.actionError(w, r, err)
		return
	}
	state, err := s.session.Dispatch(r.Context(), workflow.SwitchView{View: view})
	if err != nil {
		s.actionError(w, r, err)
		return
	}
	s.renderPage(w, r, http.StatusOK, state)
}

// handleUploadFiles handles POST /files
func (s *Server) handleUploadFiles(w http.ResponseWriter, r *http.Request) {
	limit := s.config.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		s.actionError(w, r, fmt.Errorf("%w: %v", errBadForm, err))
		return
	}

	var files []core.UploadedFile
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := fh.Open()
		if err != nil {
			s.actionError(w, r, fmt.Errorf("failed to open %s: %w", fh.Filename, err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.actionError(w, r, fmt.Errorf("failed to read %s: %w", fh.Filename, err))
			return
		}
		files = append(files, core.UploadedFile{
			ID:        uuid.NewString(),
			Name:      fh.Filename,
			SizeLabel: core.FormatSize(fh.Size),
			Content:   content,
		})
	}

	if len(files) == 0 {
		s.actionError(w, r, fmt.Errorf("%w: no files in upload", errBadForm))
		return
	}

	logger.Ctx(r.Context()).Info().Int("files", len(files)).Msg("Documents uploaded")
	state, err := s.session.AddFiles(files...)
	if err != nil {
		s.actionError(w, r, err)
		return
	}
	s.afterAction(w, r, state)
}

// handleAnalyze handles POST /analyze
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.session.Busy() {
		s.actionError(w, r, workflow.ErrAnalysisInFlight)
		return
	}

	if err := s.session.Analyze(r.Context()); err != nil {
		s.actionError(w, r, err)
		return
	}

	state := s.session.Snapshot()
	if state.Notice != "" {
		_ = ShowWarningToast(w, state.Notice)
	} else {
		_ = ShowSuccessToast(w, fmt.Sprintf("Analysis completed: %d trends to review", len(state.Trends)))
	}
	s.afterAction(w, r, state)
}

// handleAddTrend handles POST /trends
func (s *Server) handleAddTrend(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, workflow.AddTrend{})
}

// handleBeginEdit handles GET /trends/{id}/edit
func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	id, err := trendID(r)
	if err != nil {
		s.actionError(w, r, err)
		return
	}
	s.dispatch(w, r, workflow.BeginEdit{ID: id})
}

// handleSaveEdit handles POST /trends/{id}. The posted values replace the
// edit buffer, which is then saved.
func (s *Server) handleSaveEdit(w http.ResponseWriter, r *http.Request) {
	id, err := trendID(r)
	if err != nil {
		s.actionError(w, r, err)
		return
	}
	trend, err := trendFromForm(r)
	if err != nil {
		s.actionError(w, r, err)
		return
	}
	trend.ID = id

	state := s.session.Snapshot()
	if !state.IsEditing(id) {
		if _, err := s.session.Dispatch(r.Context(), workflow.BeginEdit{ID: id}); err != nil {
			s.actionError(w, r, err)
			return
		}
	}
	if _, err := s.session.Dispatch(r.Context(), workflow.UpdateEdit{Trend: trend}); err != nil {
		s.actionError(w, r, err)
		return
	}
	s.dispatch(w, r, workflow.SaveEdit{})
}

// handleCancelEdit handles POST /trends/edit/cancel
func (s *Server) handleCancelEdit(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, workflow.CancelEdit{})
}

// handleDeleteTrend handles POST /trends/{id}/delete
func (s *Server) handleDeleteTrend(w http.ResponseWriter, r *http.Request) {
	id, err := trendID(r)
	if err != nil {
		s.actionError(w, r, err)
		return
	}
	s.dispatch(w, r, workflow.DeleteTrend{ID: id})
}

// handleApprove handles POST /approve
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	state, err := s.session.Dispatch(r.Context(), workflow.Approve{})
	if err != nil {
		s.actionError(w, r, err)
		return
	}
	_ = ShowSuccessToast(w, fmt.Sprintf("Report of %s approved", state.History[0].Date))
	s.afterAction(w, r, state)
}

// handleDismissNotice handles POST /notice/dismiss
func (s *Server) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, workflow.DismissNotice{})
}

var errBadForm = errors.New("invalid form")

func trendID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: trend id %q", errBadForm, raw)
	}
	return id, nil
}

// trendFromForm reads the edit form. Sentiment is not range checked.
func trendFromForm(r *http.Request) (core.Trend, error) {
	if err := r.ParseForm(); err != nil {
		return core.Trend{}, fmt.Errorf("%w: %v", errBadForm, err)
	}

	sentiment, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("sentiment")))
	if err != nil {
		return core.Trend{}, fmt.Errorf("%w: sentiment must be a number", errBadForm)
	}
	mentions, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("mentions")))
	if err != nil {
		return core.Trend{}, fmt.Errorf("%w: mentions must be a number", errBadForm)
	}

	return core.Trend{
		Category:    strings.TrimSpace(r.PostFormValue("category")),
		Sentiment:   sentiment,
		Mentions:    mentions,
		Change:      strings.TrimSpace(r.PostFormValue("change")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
	}, nil
}
