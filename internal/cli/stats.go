package cli

import (
	"fmt"
	"strings"

	"github.com/phrazzld/scry-srs/internal/service/analytics"
	"github.com/spf13/cobra"
)

var (
	statsDeck string
	statsJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show deck statistics",
	Long: `Stats prints card counts by state, the cards due by the end of today,
today's reviews and the current day streak.

Examples:
  scry stats
  scry stats --deck 6f1c... --json`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

var heatmapCmd = &cobra.Command{
	Use:   "heatmap [week|month|year]",
	Short: "Show reviews per day",
	Long: `Heatmap prints daily review counts over a trailing window ending
today, in the configured timezone. The window defaults to a week.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"week", "month", "year"},
	RunE:      runHeatmap,
}

func init() {
	for _, c := range []*cobra.Command{statsCmd, heatmapCmd} {
		c.Flags().StringVar(&statsDeck, "deck", "", "restrict to one deck ID")
		c.Flags().BoolVar(&statsJSON, "json", false, "output in JSON format")
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	deckID, err := parseDeck(statsDeck)
	if err != nil {
		return err
	}

	a, ctx, err := openApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Analytics.GetStats(ctx, deckID, a.Clock())
	if err != nil {
		return fmt.Errorf("computing stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		return printJSON(out, st)
	}
	fmt.Fprintf(out, "Cards:          %d\n", st.TotalCards)
	fmt.Fprintf(out, "  new:          %d\n", st.NewCards)
	fmt.Fprintf(out, "  learning:     %d\n", st.LearningCards)
	fmt.Fprintf(out, "  review:       %d\n", st.ReviewCards)
	fmt.Fprintf(out, "Due today:      %d\n", st.DueToday)
	fmt.Fprintf(out, "Reviewed today: %d\n", st.ReviewedToday)
	fmt.Fprintf(out, "Streak:         %d days\n", st.Streak)
	return nil
}

func runHeatmap(cmd *cobra.Command, args []string) error {
	deckID, err := parseDeck(statsDeck)
	if err != nil {
		return err
	}
	timeframe := string(analytics.TimeframeWeek)
	if len(args) == 1 {
		timeframe = args[0]
	}

	a, ctx, err := openApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	h, err := a.Analytics.GetHeatmap(ctx, timeframe, deckID, a.Clock())
	if err != nil {
		return fmt.Errorf("building heatmap: %w", err)
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		return printJSON(out, h)
	}
	fmt.Fprintf(out, "Reviews %s to %s: %d total, streak %d days\n",
		h.StartDate, h.EndDate, h.TotalReviews, h.Streak)
	for _, b := range h.Buckets {
		fmt.Fprintf(out, "%s %4d %s\n", b.Date, b.Count, bar(b.Count, h.MaxCount, 40))
	}
	return nil
}

// bar renders count relative to max, at least one cell for any activity.
func bar(count, max, width int) string {
	if count <= 0 || max <= 0 {
		return ""
	}
	n := count * width / max
	if n == 0 {
		n = 1
	}
	return strings.Repeat("█", n)
}
