package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"ledgerview/internal/aggregate"
	"ledgerview/internal/charts"
	"ledgerview/internal/core"
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
	"ledgerview/internal/session"
)

func parseFilter(raw string) (core.Category, error) {
	if strings.TrimSpace(raw) == "" {
		return core.AllCategories, nil
	}
	n, err := cast.ToIntE(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("category must be a number: %w", err)
	}
	c := core.Category(n)
	if c != core.AllCategories && !c.Known() {
		return 0, fmt.Errorf("unknown category %d", n)
	}
	return c, nil
}

func listCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseFilter(category)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			s, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			sum := s.store.Summary(filter)
			out := cmd.OutOrStdout()
			if len(sum.Items) == 0 {
				fmt.Fprintln(out, "No expenses yet.")
				return nil
			}
			printRecords(out, sum.Items, s.store)
			if s.store.Degraded() {
				fmt.Fprintln(out, "\n(showing sample data)")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only show this category id (0 for all)")
	return cmd
}

func printRecords(out io.Writer, records []core.Record, store *session.Store) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.FormatDate(store.Location()), r.Category.Label(), r.Amount, r.Description)
	}
}

func summaryCmd(a *app) *cobra.Command {
	var (
		asJSON    bool
		chartPath string
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals and the per-category breakdown",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			sum := s.store.Summary(core.AllCategories)
			out := cmd.OutOrStdout()

			if chartPath != "" {
				png, err := charts.RenderBreakdownPNG(sum.Breakdown, charts.Options{})
				if err != nil {
					return err
				}
				if err := os.WriteFile(chartPath, png, 0o644); err != nil {
					return fmt.Errorf("write chart: %w", err)
				}
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			printSummary(out, sum)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	cmd.Flags().StringVar(&chartPath, "chart", "", "also write the breakdown pie chart to this PNG file")
	return cmd
}

func printSummary(out io.Writer, sum aggregate.Summary) {
	fmt.Fprintf(out, "Total:      %s (%d expenses)\n", sum.Total.Amount, sum.Total.Count)
	fmt.Fprintf(out, "This month: %s (%d expenses)\n", sum.ThisMonth.Amount, sum.ThisMonth.Count)
	if len(sum.Breakdown) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "CATEGORY\tAMOUNT\tSHARE")
	for _, s := range sum.Breakdown {
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\n", s.Category.Label(), s.Amount, s.Percent)
	}
}

func addCmd(a *app) *cobra.Command {
	var in core.RecordInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense",
		Example: `  ledgerview add --amount 12.50 --description "Lunch" --category 1
  ledgerview --fallback add --amount 40 --description "Books" --category 7 --date 2024-01-15`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			if in.Date == "" {
				in.Date = time.Now().In(s.store.Location()).Format("2006-01-02")
			}
			res, err := s.store.AddRecord(ctx, in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.Transaction != nil {
				fmt.Fprintf(out, "Submitted %s to the ledger (tx %s).\n", res.Record.Amount, res.Transaction.Hash)
			} else {
				fmt.Fprintf(out, "Saved expense #%d: %s %s\n", res.Record.ID, res.Record.Amount, res.Record.Description)
			}
			printNotices(out, s.notices)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Amount, "amount", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&in.Description, "description", "", "what the expense was for")
	cmd.Flags().StringVar(&in.Category, "category", "", "category id (see 'ledgerview categories')")
	cmd.Flags().StringVar(&in.Date, "date", "", "expense day as YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := cast.ToInt64E(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid expense id %q", args[0])
			}
			ctx := cmd.Context()
			s, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer s.close(ctx)

			res, err := s.store.DeleteRecord(ctx, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case res.Transaction != nil:
				fmt.Fprintf(out, "Delete of #%d submitted (tx %s).\n", id, res.Transaction.Hash)
			case res.Applied:
				fmt.Fprintf(out, "Deleted expense #%d.\n", id)
			default:
				fmt.Fprintf(out, "No expense #%d.\n", id)
			}
			printNotices(out, s.notices)
			return nil
		},
	}
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the expense categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tCATEGORY")
			for _, c := range core.Categories() {
				fmt.Fprintf(w, "%d\t%s %s\n", c.ID, c.Icon, c.Name)
			}
			return nil
		},
	}
}

// printNotices shows the notices raised by the write itself, skipping the
// connect and load chatter.
func printNotices(out io.Writer, buf *notify.Buffer) {
	for _, n := range buf.Drain() {
		if n.Operation == log.OpAdd || n.Operation == log.OpDelete {
			fmt.Fprintf(out, "[%s] %s\n", n.Kind, n.Message)
		}
	}
}
