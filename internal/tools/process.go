package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/distillkb/distill/internal/db"
)

// ProcessItemInput defines the input schema for the process_item tool.
type ProcessItemInput struct {
	ItemID string `json:"item_id" jsonschema:"required,Ingest item id to process"`
}

// NewProcessItemHandler creates the process_item tool handler. Duplicate
// calls are safe: a lost claim race reports skipped, not an error.
func NewProcessItemHandler(deps *Dependencies) mcp.ToolHandlerFor[ProcessItemInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ProcessItemInput) (*mcp.CallToolResult, any, error) {
		if input.ItemID == "" {
			return ErrorResult("Item id is required", "Provide the ingest item id from a capture tool"), nil, nil
		}

		result, err := deps.Pipeline.ProcessByID(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return ErrorResult("Ingest item not found: "+input.ItemID, ""), nil, nil
			}
			deps.Logger.Error("process_item failed", "item", input.ItemID, "error", err)
			return ErrorResult("Processing failed: "+err.Error(),
				"The item is now in ERROR state; use reset_stuck to retry"), nil, nil
		}

		return JSONResult(result), nil, nil
	}
}

// ResetStuckInput defines the input schema for the reset_stuck tool.
type ResetStuckInput struct {
	ItemID string `json:"item_id,omitempty" jsonschema:"Specific item to reset; omit to sweep all stale PROCESSING items"`
}

// ResetStuckResult is the response from the reset_stuck tool.
type ResetStuckResult struct {
	ResetIDs []string `json:"reset_ids"`
	Count    int      `json:"count"`
}

// NewResetStuckHandler creates the reset_stuck tool handler, the operator
// action for items stuck in PROCESSING or landed in ERROR.
func NewResetStuckHandler(deps *Dependencies) mcp.ToolHandlerFor[ResetStuckInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ResetStuckInput) (*mcp.CallToolResult, any, error) {
		ids, err := deps.Pipeline.ResetStuck(ctx, input.ItemID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return ErrorResult("Nothing to reset for "+input.ItemID,
					"Only PROCESSING or ERROR items can be reset"), nil, nil
			}
			deps.Logger.Error("reset_stuck failed", "error", err)
			return ErrorResult("Reset failed", "Database may be unavailable"), nil, nil
		}

		return JSONResult(ResetStuckResult{ResetIDs: ids, Count: len(ids)}), nil, nil
	}
}
