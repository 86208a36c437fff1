package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/distillkb/distill/internal/models"
)

// InboxInput defines the input schema for the list_inbox tool.
type InboxInput struct {
	Status string `json:"status,omitempty" jsonschema:"Filter by status: PENDING PROCESSING DONE or ERROR"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum items (default 50)"`
}

// InboxItem is one capture in the inbox listing.
type InboxItem struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Sections int    `json:"sections"`
	Error    string `json:"error,omitempty"`
	Created  string `json:"created"`
}

// InboxResult is the response from the list_inbox tool.
type InboxResult struct {
	Items  []InboxItem    `json:"items"`
	Counts map[string]int `json:"counts"`
}

// NewInboxHandler creates the list_inbox tool handler: the per-item status
// view that makes DONE vs ERROR visible without log access.
func NewInboxHandler(deps *Dependencies) mcp.ToolHandlerFor[InboxInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input InboxInput) (*mcp.CallToolResult, any, error) {
		var status *models.ItemStatus
		if input.Status != "" {
			s := models.ItemStatus(input.Status)
			switch s {
			case models.StatusPending, models.StatusProcessing, models.StatusDone, models.StatusError:
				status = &s
			default:
				return ErrorResult("Unknown status: "+input.Status,
					"Use PENDING, PROCESSING, DONE, or ERROR"), nil, nil
			}
		}

		items, err := deps.Pipeline.ListItems(ctx, deps.Owner, status, input.Limit)
		if err != nil {
			deps.Logger.Error("list_inbox failed", "error", err)
			return ErrorResult("Failed to list inbox", "Database may be unavailable"), nil, nil
		}

		counts, err := deps.Pipeline.CountByStatus(ctx, deps.Owner)
		if err != nil {
			deps.Logger.Warn("inbox counts unavailable", "error", err)
		}

		result := InboxResult{
			Items:  make([]InboxItem, 0, len(items)),
			Counts: map[string]int{},
		}
		for _, c := range counts {
			result.Counts[c.Status] = c.Count
		}
		for _, item := range items {
			entry := InboxItem{
				ID:       models.MustRecordIDString(item.ID),
				Kind:     string(item.Kind),
				Status:   string(item.Status),
				Sections: len(item.Sections),
				Created:  item.Created.Format("2006-01-02 15:04:05"),
			}
			if item.Error != nil {
				entry.Error = *item.Error
			}
			result.Items = append(result.Items, entry)
		}

		return JSONResult(result), nil, nil
	}
}

// StatsInput defines the (empty) input schema for the stats tool.
type StatsInput struct{}

// NewStatsHandler creates the stats tool handler reporting pipeline
// timings and job outcome counters.
func NewStatsHandler(deps *Dependencies) mcp.ToolHandlerFor[StatsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, any, error) {
		return JSONResult(deps.Pipeline.Metrics().Snapshot()), nil, nil
	}
}
