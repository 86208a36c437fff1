package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/distillkb/distill/internal/db"
)

var processCmd = &cobra.Command{
	Use:   "process <item-id>",
	Short: "Process a single inbox item",
	Long: `Process one ingest item by ID: extract its text, distill it into
insights, and mark it DONE or ERROR.

Processing an item that is already DONE is a no-op and reports the
existing insights. An item stuck in PROCESSING is reclaimed once its
claim is older than the stale window.

Examples:
  distill process 4f1c2a7e-...-a1b2`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	result, err := svc.ProcessByID(ctx, bareID(args[0], "ingest_item"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("item %s not found", args[0])
		}
		return fmt.Errorf("process item: %w", err)
	}

	switch {
	case result.Reused:
		fmt.Printf("Item %s already processed, %d insight(s)\n", result.ItemID, len(result.InsightIDs))
	case result.Skipped:
		fmt.Printf("Item %s skipped (status %s), likely claimed by another worker\n", result.ItemID, result.Status)
	default:
		fmt.Printf("Item %s processed: status %s, %d insight(s)\n", result.ItemID, result.Status, len(result.InsightIDs))
		for _, id := range result.InsightIDs {
			fmt.Printf("  - %s\n", id)
		}
	}
	return nil
}
