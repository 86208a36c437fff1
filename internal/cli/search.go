package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/models"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search insights with hybrid retrieval",
	Long: `Search distilled insights by combining keyword matching and
embedding similarity. Vector hits rank first with a score in [0,1];
keyword-only hits follow without a score.

Without an embedding backend configured the search degrades to
keyword-only matching.

Examples:
  distill search "vector index tradeoffs"
  distill search "error handling" --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

var relatedCmd = &cobra.Command{
	Use:   "related <insight-id>",
	Short: "Find insights similar to an existing one",
	Long: `Find insights nearest to an existing insight by embedding
similarity. The source insight is excluded from the results. Insights
without an embedding have no neighbors.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelated,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results")
	relatedCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "max results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	results, err := svc.Search(ctx, cfg.Owner, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d result(s):\n\n", len(results))
	for i, r := range results {
		printResult(i+1, r)
	}
	return nil
}

func runRelated(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	results, err := svc.Related(ctx, cfg.Owner, bareID(args[0], "insight"), searchLimit)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("insight %s not found", args[0])
		}
		return fmt.Errorf("related: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No related insights found.")
		return nil
	}

	fmt.Printf("Found %d related insight(s):\n\n", len(results))
	for i, r := range results {
		printResult(i+1, r)
	}
	return nil
}

func printResult(rank int, r models.SearchResult) {
	score := "keyword"
	if r.Score != nil {
		score = fmt.Sprintf("%.3f", *r.Score)
	}
	fmt.Printf("%d. %s [%s]\n", rank, r.Insight.Title, score)
	fmt.Printf("   id: %s\n", r.Insight.ID.String())
	for _, bullet := range r.Insight.Bullets() {
		fmt.Printf("   - %s\n", bullet)
	}
	if r.Insight.Takeaway != "" {
		fmt.Printf("   => %s\n", r.Insight.Takeaway)
	}
	if len(r.Tags) > 0 {
		fmt.Printf("   tags: %s\n", strings.Join(r.Tags, ", "))
	}
	fmt.Println()
}
