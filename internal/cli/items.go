package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/distillkb/distill/internal/models"
)

var (
	itemsStatus string
	itemsLimit  int
)

var itemsCmd = &cobra.Command{
	Use:   "inbox",
	Short: "List captured items and their status",
	Long: `List ingest items in the inbox, newest first, with their
processing status and error message if any.

Examples:
  distill inbox
  distill inbox --status PENDING
  distill inbox --status ERROR --limit 5`,
	RunE: runInbox,
}

func init() {
	itemsCmd.Flags().StringVarP(&itemsStatus, "status", "s", "", "filter by status (PENDING, PROCESSING, DONE, ERROR)")
	itemsCmd.Flags().IntVarP(&itemsLimit, "limit", "n", 50, "max results")
}

func runInbox(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	var status *models.ItemStatus
	if itemsStatus != "" {
		s := models.ItemStatus(itemsStatus)
		switch s {
		case models.StatusPending, models.StatusProcessing, models.StatusDone, models.StatusError:
			status = &s
		default:
			return fmt.Errorf("invalid status %q", itemsStatus)
		}
	}

	items, err := svc.ListItems(ctx, cfg.Owner, status, itemsLimit)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	counts, err := svc.CountByStatus(ctx, cfg.Owner)
	if err != nil {
		return fmt.Errorf("count items: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("Inbox is empty.")
	}
	for _, item := range items {
		line := fmt.Sprintf("%-10s %-6s %s  %s", item.Status, item.Kind, item.ID.String(), item.Created.Format("2006-01-02 15:04"))
		if item.Error != nil {
			line += fmt.Sprintf("  error: %s", *item.Error)
		}
		if len(item.Sections) > 0 {
			line += fmt.Sprintf("  (%d section(s))", len(item.Sections))
		}
		fmt.Println(line)
	}

	fmt.Println()
	for _, c := range counts {
		fmt.Printf("%s: %d  ", c.Status, c.Count)
	}
	fmt.Println()
	return nil
}
