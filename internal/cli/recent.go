package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/ppiankov/claimcheck/internal/httpapi"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/store"
)

var (
	listLimit int
	listJSON  bool
)

// recentCmd represents the recent command
var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent verdicts",
	Args:  cobra.NoArgs,
	RunE:  runRecent,
}

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search recorded verdicts by claim and evidence text",
	Long: `Search queries the full-text index (search.redis_addr). Matches in the
claim outrank matches in evidence titles and snippets.

Example:
  claimcheck search "overnight policy rate"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded verdict",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(recentCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&listJSON, "json", false, "print the record as JSON")

	for _, c := range []*cobra.Command{recentCmd, searchCmd} {
		c.Flags().IntVar(&listLimit, "limit", httpapi.DefaultRecentLimit, "maximum number of records")
		c.Flags().BoolVar(&listJSON, "json", false, "print records as JSON")
	}
}

func runRecent(cmd *cobra.Command, args []string) error {
	if listLimit < 1 {
		return fmt.Errorf("--limit must be positive")
	}

	ctx := cmd.Context()
	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	records, err := a.store.Recent(ctx, listLimit)
	if err != nil {
		return err
	}
	return printRecords(cmd, records)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if listLimit < 1 {
		return fmt.Errorf("--limit must be positive")
	}

	ctx := cmd.Context()
	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	if !a.index.Enabled() {
		return fmt.Errorf("search is not configured: set search.redis_addr or CLAIMCHECK_SEARCH_REDIS_ADDR")
	}

	records, err := a.index.Search(ctx, strings.Join(args, " "), listLimit)
	if err != nil {
		return err
	}
	return printRecords(cmd, records)
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	rec, err := a.store.Get(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no verdict with id %q", args[0])
	}
	if err != nil {
		return err
	}

	if listJSON {
		return printJSON(cmd.OutOrStdout(), rec)
	}
	printRecord(cmd.OutOrStdout(), rec)
	return nil
}

func printRecords(cmd *cobra.Command, records []model.VerdictRecord) error {
	out := cmd.OutOrStdout()
	if listJSON {
		return printJSON(out, lo.Map(records, func(rec model.VerdictRecord, _ int) httpapi.RecentItem {
			return httpapi.NewRecentItem(rec)
		}))
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No records.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(out, "%s %-9s %3.0f%%  %s  %s\n",
			verdictMark(rec.Verdict), rec.Verdict, rec.Confidence*100,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"), truncateInput(rec.Claim))
		fmt.Fprintf(out, "    id=%s  evidence=%d  %s\n", rec.ID, len(rec.Evidence), rec.SourceLabel())
	}
	return nil
}
