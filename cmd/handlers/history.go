package handlers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"financewatch/internal/config"
	"financewatch/internal/history"
)

// NewHistoryCmd creates the approved-report history command
func NewHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the approved report history",
		Long:  `List, show and clear the approved weekly reports kept in the history store (newest first, at most 3).`,
	}

	historyCmd.AddCommand(newHistoryListCmd())
	historyCmd.AddCommand(newHistoryShowCmd())
	historyCmd.AddCommand(newHistoryClearCmd())

	return historyCmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List approved reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), func(ctx context.Context, hist *history.Store) error {
				return runHistoryList(ctx, cmd.OutOrStdout(), hist)
			})
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [index]",
		Short: "Show the trends and report of one approved entry (0 is the latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid index %q: %w", args[0], err)
				}
				index = n
			}
			return withHistory(cmd.Context(), func(ctx context.Context, hist *history.Store) error {
				return runHistoryShow(ctx, cmd.OutOrStdout(), hist, index)
			})
		},
	}
}

func newHistoryClearCmd() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every approved report",
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			return withHistory(cmd.Context(), func(ctx context.Context, hist *history.Store) error {
				return runHistoryClear(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), hist, confirm)
			})
		},
	}

	clearCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	return clearCmd
}

// withHistory opens the configured history for the duration of fn.
func withHistory(ctx context.Context, fn func(context.Context, *history.Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	hist, _, closeStore, err := openHistory(ctx, config.Get())
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(ctx, hist)
}

func runHistoryList(ctx context.Context, out io.Writer, hist *history.Store) error {
	entries, err := hist.Load(ctx)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, "No approved reports yet")
		fmt.Fprintln(out, "\nApprove a report from the review UI:")
		fmt.Fprintln(out, "  financewatch serve   or   financewatch review <files...>")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tDate\tTrends\tCategories\tReport\n")
	fmt.Fprintf(w, "━\t━━━━━━━━━━\t━━━━━━\t━━━━━━━━━━━━━━━━━━━━\t━━━━━━\n")

	for i, e := range entries {
		categories := make([]string, 0, len(e.Trends))
		for _, t := range e.Trends {
			categories = append(categories, t.Category)
		}
		categoriesShort := strings.Join(categories, ", ")
		if len(categoriesShort) > 40 {
			categoriesShort = categoriesShort[:37] + "..."
		}
		if len(categories) == 0 {
			categoriesShort = "(none)"
		}

		report := "✓"
		if e.Report == nil {
			report = "✗"
		}

		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i, e.Date, len(e.Trends), categoriesShort, report)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal: %d approved report(s)\n", len(entries))
	return nil
}

func runHistoryShow(ctx context.Context, out io.Writer, hist *history.Store, index int) error {
	entries, err := hist.Load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(entries) {
		return fmt.Errorf("no history entry at index %d (%d stored)", index, len(entries))
	}

	e := entries[index]
	fmt.Fprintf(out, "📅 Report approved on %s\n\n", e.Date)
	printTrends(out, e.Trends)
	if e.Report != nil {
		fmt.Fprintln(out)
		printReport(out, e.Report)
	}
	return nil
}

func runHistoryClear(ctx context.Context, in io.Reader, out io.Writer, hist *history.Store, confirm bool) error {
	if !confirm {
		fmt.Fprint(out, "⚠️  This will remove every approved report. Continue? [y/N]: ")
		response, _ := bufio.NewReader(in).ReadString('\n')
		response = strings.TrimSpace(response)
		if response != "y" && response != "Y" && response != "yes" {
			fmt.Fprintln(out, "History clear cancelled")
			return nil
		}
	}

	if err := hist.Clear(ctx); err != nil {
		return err
	}

	fmt.Fprintln(out, "✅ History cleared")
	return nil
}
