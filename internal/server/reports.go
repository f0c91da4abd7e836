package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"financewatch/internal/logger"
	"financewatch/internal/render"
	"financewatch/internal/workflow"
)

func (s *Server) reportData(state workflow.State) render.ReportData {
	return render.ReportData{
		Report:      state.Report,
		Trends:      state.Trends,
		Previous:    state.ComparisonBase(),
		GeneratedAt: time.Now(),
		DateLayout:  s.session.Env().DateLayout,
	}
}

func (s *Server) pdfFilename() string {
	if s.opts.Export.Filename != "" {
		return s.opts.Export.Filename
	}
	return render.PDFFilename
}

// handleReportPDF handles GET /report.pdf
func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	content, err := render.PDFBytes(s.reportData(s.session.Snapshot()))
	if err != nil {
		s.reportError(w, r, err)
		return
	}

	logger.Ctx(r.Context()).Info().Int("bytes", len(content)).Msg("Report exported as PDF")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.pdfFilename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// handleReportMarkdown handles GET /report.md
func (s *Server) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	content, err := render.MarkdownReport(s.reportData(s.session.Snapshot()))
	if err != nil {
		s.reportError(w, r, err)
		return
	}

	filename := strings.TrimSuffix(s.pdfFilename(), ".pdf") + ".md"
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

func (s *Server) reportError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, render.ErrNoReport) {
		s.respondError(w, http.StatusNotFound, "No report available")
		return
	}
	logger.Ctx(r.Context()).Error().Err(err).Msg("Failed to export report")
	s.respondError(w, http.StatusInternalServerError, "Failed to export report")
}
