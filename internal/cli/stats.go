package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show inbox counts",
	Long: `Show per-status inbox counts for the current owner.

Pipeline timing metrics live in the MCP server process and are exposed
through its stats tool; this command reports what is visible from the
database alone.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	counts, err := svc.CountByStatus(ctx, cfg.Owner)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}

	fmt.Printf("Inbox for %s:\n", cfg.Owner)
	total := 0
	for _, c := range counts {
		fmt.Printf("  %-12s %d\n", c.Status, c.Count)
		total += c.Count
	}
	fmt.Printf("  %-12s %d\n", "total", total)
	return nil
}
