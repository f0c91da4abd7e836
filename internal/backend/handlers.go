package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"financewatch/internal/config"
	"financewatch/internal/core"
	"financewatch/internal/extract"
	"financewatch/internal/logger"
	"financewatch/internal/server/middleware"
)

// FieldName is the multipart field carrying the documents.
const FieldName = "files"

const defaultMaxUploadMB = 32

// AnalyzeResponse is the body of POST /api/analyze.
type AnalyzeResponse struct {
	Success bool         `json:"success"`
	Trends  []core.Trend `json:"trends,omitempty"`
	Report  *core.Report `json:"report,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// HandlerOptions configures the HTTP surface of the service.
type HandlerOptions struct {
	MaxUploadMB int64
	CORS        config.CORS
}

// Handler exposes a Service over HTTP.
type Handler struct {
	service *Service
	opts    HandlerOptions
	router  *chi.Mux
}

// NewHandler builds the router for svc.
func NewHandler(svc *Service, opts HandlerOptions) *Handler {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = defaultMaxUploadMB
	}

	h := &Handler{service: svc, opts: opts, router: chi.NewRouter()}

	h.router.Use(chimw.RequestID)
	h.router.Use(chimw.RealIP)
	h.router.Use(middleware.Logger(logger.Get()))
	h.router.Use(chimw.Recoverer)

	if opts.CORS.Enabled {
		h.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	h.router.Post("/api/analyze", h.handleAnalyze)
	h.router.Get("/api/health", h.handleHealth)

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Server wraps the handler in an http.Server bound to addr.
func (h *Handler) Server(addr string, timeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeout + 30*time.Second,
	}
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	docs, err := h.readDocuments(w, r)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected analysis upload")
		respondJSON(w, http.StatusInternalServerError, AnalyzeResponse{Error: err.Error()})
		return
	}

	result, err := h.service.Analyze(r.Context(), docs)
	if err != nil {
		log.Error().Err(err).Int("documents", len(docs)).Msg("Analysis failed")
		respondJSON(w, http.StatusInternalServerError, AnalyzeResponse{Error: err.Error()})
		return
	}

	log.Info().Int("documents", len(docs)).Int("trends", len(result.Trends)).Msg("Analysis completed")
	respondJSON(w, http.StatusOK, AnalyzeResponse{
		Success: true,
		Trends:  result.Trends,
		Report:  result.Report,
	})
}

// readDocuments reads every file of the multipart upload, in order.
func (h *Handler) readDocuments(w http.ResponseWriter, r *http.Request) ([]extract.Document, error) {
	limit := h.opts.MaxUploadMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}

	headers := r.MultipartForm.File[FieldName]
	docs := make([]extract.Document, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
		}
		docs = append(docs, extract.Document{Name: fh.Filename, Text: extract.Text(fh.Filename, content)})
	}
	return docs, nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  h.service.Model(),
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", err)
	}
}
