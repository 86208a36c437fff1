package tools

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/distillkb/distill/internal/models"
)

// CaptureTextInput defines the input schema for the capture_text tool.
type CaptureTextInput struct {
	Text string `json:"text" jsonschema:"required,Raw text to capture"`
}

// CaptureURLInput defines the input schema for the capture_url tool.
type CaptureURLInput struct {
	URL string `json:"url" jsonschema:"required,Web page to capture and extract"`
}

// CaptureResult is the response from the capture tools.
type CaptureResult struct {
	ItemID string `json:"ingest_item_id"`
	Status string `json:"status"`
	Kind   string `json:"kind"`
}

func captureResult(item *models.IngestItem) *mcp.CallToolResult {
	return JSONResult(CaptureResult{
		ItemID: models.MustRecordIDString(item.ID),
		Status: string(item.Status),
		Kind:   string(item.Kind),
	})
}

// NewCaptureTextHandler creates the capture_text tool handler.
// Creates a PENDING ingest item and triggers processing.
func NewCaptureTextHandler(deps *Dependencies) mcp.ToolHandlerFor[CaptureTextInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CaptureTextInput) (*mcp.CallToolResult, any, error) {
		if strings.TrimSpace(input.Text) == "" {
			return ErrorResult("Text is required", "Provide the note content in the text field"), nil, nil
		}

		item, err := deps.Pipeline.CaptureText(ctx, deps.Owner, input.Text)
		if err != nil {
			deps.Logger.Error("capture_text failed", "error", err)
			return ErrorResult("Failed to capture text", "Database may be unavailable"), nil, nil
		}
		return captureResult(item), nil, nil
	}
}

// NewCaptureURLHandler creates the capture_url tool handler.
func NewCaptureURLHandler(deps *Dependencies) mcp.ToolHandlerFor[CaptureURLInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CaptureURLInput) (*mcp.CallToolResult, any, error) {
		url := strings.TrimSpace(input.URL)
		if url == "" {
			return ErrorResult("URL is required", "Provide the page address in the url field"), nil, nil
		}
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return ErrorResult("URL must start with http:// or https://", ""), nil, nil
		}

		item, err := deps.Pipeline.CaptureURL(ctx, deps.Owner, url)
		if err != nil {
			deps.Logger.Error("capture_url failed", "url", url, "error", err)
			return ErrorResult("Failed to capture URL", "Database may be unavailable"), nil, nil
		}
		return captureResult(item), nil, nil
	}
}
