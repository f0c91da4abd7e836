package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"financewatch/internal/config"
	"financewatch/internal/tui"
	"financewatch/internal/workflow"
)

// NewReviewCmd creates the terminal review command
func NewReviewCmd() *cobra.Command {
	var (
		exportDir string
		ephemeral bool
	)

	cmd := &cobra.Command{
		Use:   "review [files...]",
		Short: "Review trends in the terminal",
		Long: `Launch the terminal review interface.

The given documents are added to the session; press "a" to analyze them,
then edit, add or delete trends and press "A" to approve the report.
History is shared with the web UI through the configured store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd.Context(), args, exportDir, ephemeral)
		},
	}

	cmd.Flags().StringVar(&exportDir, "export-dir", "", "Directory for PDF exports (default from config)")
	cmd.Flags().BoolVar(&ephemeral, "ephemeral", false, "Keep history in memory only")

	return cmd
}

func runReview(ctx context.Context, paths []string, exportDir string, ephemeral bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Get()

	files, err := readFiles(paths)
	if err != nil {
		return err
	}

	if ephemeral {
		cfg.History.Backend = "memory"
	}

	hist, _, closeStore, err := openHistory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	session := workflow.NewSession(ctx, newAnalysisClient(cfg), hist, sessionEnv(cfg))
	if len(files) > 0 {
		if _, err := session.AddFiles(files...); err != nil {
			return fmt.Errorf("failed to add files: %w", err)
		}
	}

	if exportDir == "" {
		exportDir = cfg.Export.Directory
	}

	return tui.Run(ctx, session, tui.Options{
		ExportDir:      exportDir,
		ExportFilename: cfg.Export.Filename,
	})
}
