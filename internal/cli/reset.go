package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/distillkb/distill/internal/db"
)

var resetCmd = &cobra.Command{
	Use:   "reset-stuck [item-id]",
	Short: "Reset stuck items back to PENDING",
	Long: `Return stuck items to the PENDING inbox so a worker can retry them.

With an item ID, resets that one item if it is in ERROR or holds a
stale PROCESSING claim. Without arguments, sweeps every PROCESSING
item whose claim is older than the stale window.

Examples:
  distill reset-stuck
  distill reset-stuck 4f1c2a7e-...-a1b2`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResetStuck,
}

func runResetStuck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	id := ""
	if len(args) > 0 {
		id = bareID(args[0], "ingest_item")
	}

	reset, err := svc.ResetStuck(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("item %s is not resettable (not found, or not stuck)", id)
		}
		return fmt.Errorf("reset stuck: %w", err)
	}

	if len(reset) == 0 {
		fmt.Println("Nothing to reset.")
		return nil
	}
	fmt.Printf("Reset %d item(s) to PENDING:\n", len(reset))
	for _, itemID := range reset {
		fmt.Printf("  - %s\n", itemID)
	}
	return nil
}
