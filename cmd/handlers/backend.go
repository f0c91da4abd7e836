package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"financewatch/internal/backend"
	"financewatch/internal/config"
	"financewatch/internal/llm"
	"financewatch/internal/logger"
)

// NewBackendCmd creates the command that runs the analysis service
func NewBackendCmd() *cobra.Command {
	var (
		port     int
		host     string
		provider string
	)

	cmd := &cobra.Command{
		Use:   "backend",
		Short: "Start the document analysis service",
		Long: `Start the analysis service used by the review UI.

POST /api/analyze accepts a multipart upload (field "files") of PDF, TXT or
HTML documents, extracts their text and asks the configured LLM for the
weekly trends, then for the weekly report.

Examples:
  # Groq through the OpenAI-compatible API (default)
  GROQ_API_KEY=... financewatch backend

  # Gemini
  GEMINI_API_KEY=... financewatch backend --provider gemini`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackend(cmd.Context(), port, host, provider)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (default from config: 5000)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP host (default from config: 127.0.0.1)")
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: openai or gemini (default from config)")

	return cmd
}

func runBackend(ctx context.Context, port int, host, provider string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Get()

	if port != 0 {
		cfg.Backend.Port = port
	}
	if host != "" {
		cfg.Backend.Host = host
	}
	if provider != "" {
		cfg.Backend.Provider = provider
	}

	if err := config.ValidateBackend(cfg); err != nil {
		return err
	}

	gen, err := llm.NewFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	timeout := cfg.BackendTimeout()
	svc := backend.NewService(gen, backend.Options{
		RPM:         cfg.Backend.RPM,
		Temperature: cfg.Backend.Temperature,
		MaxTokens:   cfg.Backend.MaxTokens,
		Timeout:     timeout,
	})
	httpServer := backend.NewHandler(svc, backend.HandlerOptions{
		MaxUploadMB: cfg.Backend.MaxUploadMB,
		CORS:        cfg.Backend.CORS,
	}).Server(cfg.BackendAddr(), timeout)

	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Analysis service listening", "addr", httpServer.Addr, "model", svc.Model(), "rpm", cfg.Backend.RPM)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
			return
		}
		serverErrors <- nil
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("analysis service error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		logger.Info("Analysis service shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Analysis service shutdown failed", err)
			return fmt.Errorf("analysis service shutdown failed: %w", err)
		}

		logger.Info("Analysis service stopped")
	}

	return nil
}
