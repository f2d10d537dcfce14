package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-srs/internal/domain"
	"github.com/phrazzld/scry-srs/internal/service/card_review"
	"github.com/spf13/cobra"
)

var (
	dueDeck  string
	dueLimit int
	dueJSON  bool

	reviewJSON bool

	cardDeck   string
	cardNote   string
	cardSource string
	cardTags   []string
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List cards due for review",
	Long: `Due prints the review queue at the current time: new cards first,
then learning, review and relearning cards, each by due time. Every entry
shows when each rating would schedule the card next.

Examples:
  scry due
  scry due --deck 6f1c... --limit 5
  scry due --json`,
	Args: cobra.NoArgs,
	RunE: runDue,
}

var reviewCmd = &cobra.Command{
	Use:   "review <card-id> <rating>",
	Short: "Record a review",
	Long: `Review applies a self-rating to a card and persists the new memory
state with a review log entry. The rating is again, hard, good or easy,
or its code 1-4.

Examples:
  scry review 0b6e... good
  scry review 0b6e... 1`,
	Args: cobra.ExactArgs(2),
	RunE: runReview,
}

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Manage cards",
}

var cardAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new card in a deck",
	Long: `Add creates a card in the New state, due immediately.

Examples:
  scry card add --deck 6f1c... --note "capital of France" --tag geo`,
	Args: cobra.NoArgs,
	RunE: runCardAdd,
}

func init() {
	dueCmd.Flags().StringVar(&dueDeck, "deck", "", "restrict to one deck ID")
	dueCmd.Flags().IntVarP(&dueLimit, "limit", "n", 0, "max cards (default from configuration)")
	dueCmd.Flags().BoolVar(&dueJSON, "json", false, "output in JSON format")

	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "output in JSON format")

	cardAddCmd.Flags().StringVar(&cardDeck, "deck", "", "deck ID (required)")
	cardAddCmd.Flags().StringVar(&cardNote, "note", "", "free-form note")
	cardAddCmd.Flags().StringVar(&cardSource, "source", "", "where the card came from")
	cardAddCmd.Flags().StringSliceVar(&cardTags, "tag", nil, "tag, repeatable")
	_ = cardAddCmd.MarkFlagRequired("deck")
	cardCmd.AddCommand(cardAddCmd)
}

func runDue(cmd *cobra.Command, args []string) error {
	deckID, err := parseDeck(dueDeck)
	if err != nil {
		return err
	}
	if dueLimit < 0 {
		return fmt.Errorf("--limit must be positive")
	}

	a, ctx, err := openApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	now := a.Clock()
	cards, err := a.CardReview.GetDueCards(ctx, card_review.DueQuery{DeckID: deckID, Limit: dueLimit}, now)
	if err != nil {
		return fmt.Errorf("listing due cards: %w", err)
	}

	out := cmd.OutOrStdout()
	if dueJSON {
		return printJSON(out, cards)
	}
	if len(cards) == 0 {
		fmt.Fprintln(out, "No cards due.")
		return nil
	}
	for _, c := range cards {
		fmt.Fprintf(out, "%s  %-10s  reps %-3d lapses %-3d recall %3.0f%%\n",
			c.Card.ID, c.Card.State, c.Card.Reps, c.Card.Lapses, c.Retrievability*100)
		if note := c.Card.Metadata.Note; note != "" {
			fmt.Fprintf(out, "    %s\n", note)
		}
		parts := make([]string, 0, len(domain.Ratings))
		for _, r := range domain.Ratings {
			info, _ := c.Preview.Get(r)
			parts = append(parts, fmt.Sprintf("%s %s", r, info.Card.Due.Format("2006-01-02 15:04")))
		}
		fmt.Fprintf(out, "    %s\n", strings.Join(parts, " | "))
	}
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	cardID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid card ID %q: %w", args[0], err)
	}
	rating, err := domain.ParseRating(args[1])
	if err != nil {
		return err
	}

	a, ctx, err := openApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.CardReview.SubmitReview(ctx, cardID, rating, a.Clock())
	if err != nil {
		return fmt.Errorf("recording review: %w", err)
	}

	out := cmd.OutOrStdout()
	if reviewJSON {
		return printJSON(out, res)
	}
	fmt.Fprintf(out, "Recorded %s for %s\n", rating, cardID)
	fmt.Fprintf(out, "  state:      %s\n", res.Card.State)
	fmt.Fprintf(out, "  next due:   %s\n", res.Card.Due.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(out, "  stability:  %.2f\n", res.Card.Stability)
	fmt.Fprintf(out, "  difficulty: %.2f\n", res.Card.Difficulty)
	return nil
}

func runCardAdd(cmd *cobra.Command, args []string) error {
	deckID, err := parseDeck(cardDeck)
	if err != nil {
		return err
	}
	if deckID == nil {
		return fmt.Errorf("--deck is required")
	}

	a, ctx, err := openApp(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	meta := domain.CardMetadata{Tags: cardTags, Source: cardSource, Note: cardNote}
	card, err := a.CardReview.AddCard(ctx, *deckID, meta, a.Clock())
	if err != nil {
		return fmt.Errorf("adding card: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), card.ID)
	return nil
}

// parseDeck returns nil for an empty flag.
func parseDeck(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid deck ID %q: %w", s, err)
	}
	return &id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
