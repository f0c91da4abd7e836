package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"financewatch/internal/config"
	"financewatch/internal/core"
	"financewatch/internal/workflow"
)

// NewAnalyzeCmd creates the one-shot analysis command
func NewAnalyzeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <files...>",
		Short: "Analyze documents and print the detected trends",
		Long: `Send documents to the analysis endpoint and print the trends and report.

Nothing is stored: use "review" or "serve" to validate and approve a report.

Examples:
  financewatch analyze weekly.pdf market-notes.txt
  financewatch analyze weekly.pdf --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := readFiles(args)
			if err != nil {
				return err
			}
			client := newAnalysisClient(config.Get())
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), client, files, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, analyzer workflow.Analyzer, files []core.UploadedFile, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(files) == 0 {
		return workflow.ErrNoFiles
	}

	result, err := analyzer.Analyze(ctx, files)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Trends []core.Trend `json:"trends"`
			Report *core.Report `json:"report"`
		}{result.Trends, result.Report})
	}

	fmt.Fprintf(out, "📊 %d trends detected in %d document(s)\n\n", len(result.Trends), len(files))
	printTrends(out, result.Trends)

	if result.Report != nil {
		fmt.Fprintln(out)
		printReport(out, result.Report)
	}
	return nil
}

func printTrends(out io.Writer, trends []core.Trend) {
	if len(trends) == 0 {
		fmt.Fprintln(out, "No trends")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tCategory\tSentiment\tMentions\tChange\n")
	fmt.Fprintf(w, "━━\t━━━━━━━━━━━━━━━━━━━━\t━━━━━━━━━\t━━━━━━━━\t━━━━━━\n")
	for _, t := range trends {
		fmt.Fprintf(w, "%d\t%s\t%d%%\t%d\t%s\n", t.ID, t.Category, t.Sentiment, t.Mentions, t.Change)
	}
	w.Flush()
}

func printReport(out io.Writer, report *core.Report) {
	fmt.Fprintln(out, "Executive summary")
	fmt.Fprintf(out, "  %s\n", report.ExecutiveSummary)
	if len(report.KeyTrends) > 0 {
		fmt.Fprintln(out, "\nKey trends")
		for _, kt := range report.KeyTrends {
			fmt.Fprintf(out, "  • %s\n", kt)
		}
	}
	if strings.TrimSpace(report.Recommendations) != "" {
		fmt.Fprintln(out, "\nRecommendations")
		fmt.Fprintf(out, "  %s\n", report.Recommendations)
	}
}
