package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"financewatch/internal/config"
	"financewatch/internal/logger"
	"financewatch/internal/server"
	"financewatch/internal/workflow"
)

// NewServeCmd creates the serve command for starting the review UI
func NewServeCmd() *cobra.Command {
	var (
		port        int
		host        string
		templateDir string
		ephemeral   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web review interface",
		Long: `Start the FinanceWatch review UI.

The server provides:
  • Document upload and analysis against the configured endpoint
  • Trend validation: edit, add, delete and approve
  • Trend dashboard, report view and PDF/Markdown downloads
  • Health check and status endpoints

Approved reports are kept in the configured history store.

Examples:
  # Start server on default port 8080
  financewatch serve

  # Start on custom port
  financewatch serve --port 3000

  # Reload templates from disk on every request
  financewatch serve --template-dir ./internal/server/templates`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host, templateDir, ephemeral)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 127.0.0.1)")
	cmd.Flags().StringVar(&templateDir, "template-dir", "", "Template directory, enables hot reload (default: embedded)")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "Keep history in memory only")

	return cmd
}

func runServe(ctx context.Context, port int, host, templateDir string, ephemeral bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.Get()
	cfg := config.Get()

	// Override server config from flags if provided
	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}
	if templateDir != "" {
		serverCfg.TemplateDir = templateDir
	}

	if ephemeral {
		cfg.History.Backend = "memory"
	}

	hist, kv, closeStore, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	client := newAnalysisClient(cfg)
	session := workflow.NewSession(ctx, client, hist, sessionEnv(cfg))

	srv, err := server.New(session, serverCfg, server.Options{
		AnalysisEndpoint: client.Endpoint(),
		Store:            kv,
		Export:           cfg.Export,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		log.Info().Msgf("Review UI listening on http://%s:%d", serverCfg.Host, serverCfg.Port)
		log.Info().Msg("Press Ctrl+C to stop")
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive our signal or an error from server
	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		logger.Info("Server shutdown initiated", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed, forcing close", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info("Server stopped successfully")
	}

	return nil
}
