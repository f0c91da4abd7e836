// Package server is the browser review UI: it renders the session state and
// maps form posts onto workflow actions.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"financewatch/internal/config"
	"financewatch/internal/logger"
	"financewatch/internal/server/middleware"
	"financewatch/internal/store"
	"financewatch/internal/workflow"
)

// Version is reported by /api/status.
const Version = "1.0.0"

const defaultMaxUploadMB = 32

// Options carries the collaborators the UI reports on or exports with.
type Options struct {
	AnalysisEndpoint string   // Shown on the upload view and in /api/status
	Store            store.KV // Backs /health and /api/status, optional
	Export           config.Export
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	session    *workflow.Session
	config     config.Server
	opts       Options
	log        *zerolog.Logger
	renderer   *TemplateRenderer
	startedAt  time.Time
}

// New creates a new HTTP server instance
func New(session *workflow.Session, cfg config.Server, opts Options) (*Server, error) {
	log := logger.Get()

	devMode := cfg.TemplateDir != ""
	renderer, err := NewTemplateRenderer(devMode, cfg.TemplateDir)
	if err != nil {
		return nil, err
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}

	s := &Server{
		router:    chi.NewRouter(),
		session:   session,
		config:    cfg,
		opts:      opts,
		log:       log,
		renderer:  renderer,
		startedAt: time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger(s.log))
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.SecurityHeaders)

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", "HX-Request", "HX-Target", "HX-Current-URL"},
			ExposedHeaders:   []string{"HX-Trigger", "HX-Reswap"},
			AllowCredentials: false,
			MaxAge:           300, // Maximum value not ignored by any major browsers
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(60 * time.Second))

		r.Get("/health", s.handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/state", s.handleState)
			r.Get("/history", s.handleHistory)
		})

		r.Get("/report.pdf", s.handleReportPDF)
		r.Get("/report.md", s.handleReportMarkdown)

		// Pages and HTMX partials
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoCache)

			r.Get("/", s.handleIndex)
			r.Get("/views/{view}", s.handleSwitchView)
			r.Post("/files", s.handleUploadFiles)
			r.Post("/notice/dismiss", s.handleDismissNotice)
			r.Post("/approve", s.handleApprove)

			r.Route("/trends", func(r chi.Router) {
				r.Post("/", s.handleAddTrend)
				r.Post("/edit/cancel", s.handleCancelEdit)
				r.Get("/{id}/edit", s.handleBeginEdit)
				r.Post("/{id}", s.handleSaveEdit)
				r.Post("/{id}/delete", s.handleDeleteTrend)
			})
		})
	})

	// The analysis call is bounded by the analysis client's own timeout.
	s.router.With(middleware.NoCache).Post("/analyze", s.handleAnalyze)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Dur("read_timeout", s.config.ReadTimeout).
		Dur("write_timeout", s.config.WriteTimeout).
		Str("analysis_endpoint", s.opts.AnalysisEndpoint).
		Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
