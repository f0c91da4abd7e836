package server

import (
	"encoding/json"
	"net/http"
	"time"

	"financewatch/internal/core"
	"financewatch/internal/logger"
	"financewatch/internal/store"
	"financewatch/internal/workflow"
)

// HealthResponse is the body of /health
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// StatusResponse is the body of /api/status
type StatusResponse struct {
	Version          string       `json:"version"`
	Uptime           string       `json:"uptime"`
	AnalysisEndpoint string       `json:"analysis_endpoint"`
	Analyzing        bool         `json:"analyzing"`
	View             core.View    `json:"view"`
	Files            int          `json:"files"`
	Trends           int          `json:"trends"`
	HistoryEntries   int          `json:"history_entries"`
	Store            *store.Stats `json:"store,omitempty"`
}

// StateResponse is the body of /api/state
type StateResponse struct {
	workflow.State
	CanAnalyze bool `json:"can_analyze"`
}

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if s.opts.Store != nil {
		if _, err := s.opts.Store.Stats(r.Context()); err != nil {
			logger.Ctx(r.Context()).Warn().Err(err).Msg("History store health check failed")
			checks["history_store"] = "error"
			s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Checks: checks,
			})
			return
		}
		checks["history_store"] = "ok"
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Checks: checks,
	})
}

// handleStatus handles the /api/status endpoint
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.session.Snapshot()

	resp := StatusResponse{
		Version:          Version,
		Uptime:           time.Since(s.startedAt).Round(time.Second).String(),
		AnalysisEndpoint: s.opts.AnalysisEndpoint,
		Analyzing:        s.session.Busy(),
		View:             state.View,
		Files:            len(state.Files),
		Trends:           len(state.Trends),
		HistoryEntries:   len(state.History),
	}

	if s.opts.Store != nil {
		stats, err := s.opts.Store.Stats(r.Context())
		if err != nil {
			logger.Ctx(r.Context()).Warn().Err(err).Msg("Failed to read store stats")
		} else {
			resp.Store = stats
		}
	}

	s.respondJSON(w, http.StatusOK, resp)
}

// handleState handles GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state := s.session.Snapshot()
	s.respondJSON(w, http.StatusOK, StateResponse{State: state, CanAnalyze: state.CanAnalyze() && !s.session.Busy()})
}

// handleHistory handles GET /api/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history := s.session.Snapshot().History
	if history == nil {
		history = []core.HistoryEntry{}
	}
	s.respondJSON(w, http.StatusOK, history)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondError writes a JSON error body
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"status":  status,
			"message": message,
		},
	})
}
