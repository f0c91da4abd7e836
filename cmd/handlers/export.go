package handlers

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"financewatch/internal/config"
	"financewatch/internal/history"
	"financewatch/internal/render"
)

type exportOptions struct {
	Format     string // pdf or md
	OutputDir  string
	Filename   string // PDF only
	Index      int    // History entry, 0 is the latest
	DateLayout string
}

// NewExportCmd creates the command that exports an approved report
func NewExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an approved report as PDF or Markdown",
		Long: `Export an approved report from the history.

The previous approved report, when there is one, fills the comparison column
of the Markdown export.

Examples:
  financewatch export
  financewatch export --format md --output ./reports
  financewatch export --index 1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			if opts.OutputDir == "" {
				opts.OutputDir = cfg.Export.Directory
			}
			opts.Filename = cfg.Export.Filename
			opts.DateLayout = cfg.App.DateLayout
			return withHistory(cmd.Context(), func(ctx context.Context, hist *history.Store) error {
				return runExport(ctx, cmd.OutOrStdout(), hist, opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "pdf", "Export format: pdf or md")
	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", "", "Output directory (default from config)")
	cmd.Flags().IntVar(&opts.Index, "index", 0, "History entry to export, 0 is the latest")

	return cmd
}

func runExport(ctx context.Context, out io.Writer, hist *history.Store, opts exportOptions) error {
	entries, err := hist.Load(ctx)
	if err != nil {
		return err
	}
	if opts.Index < 0 || opts.Index >= len(entries) {
		return render.ErrNoReport
	}

	entry := entries[opts.Index]
	data := render.ReportData{
		Report:     entry.Report,
		Trends:     entry.Trends,
		DateLayout: opts.DateLayout,
	}
	if opts.Index+1 < len(entries) {
		data.Previous = entries[opts.Index+1].Trends
	}
	layout := opts.DateLayout
	if layout == "" {
		layout = "02/01/2006"
	}
	if at, err := time.Parse(layout, entry.Date); err == nil {
		data.GeneratedAt = at
	}

	var path string
	switch opts.Format {
	case "pdf", "":
		path, err = render.SavePDF(data, opts.OutputDir, opts.Filename)
	case "md", "markdown":
		path, err = render.RenderMarkdownReport(data, opts.OutputDir)
	default:
		return fmt.Errorf("unknown export format: %s", opts.Format)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "✅ Report of %s exported to %s\n", entry.Date, path)
	return nil
}
