package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
// This is called from main after server creation but before Run().
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	// Ping tool - connectivity check
	mcp.AddTool(server, &mcp.Tool{
		Name:        "ping",
		Description: "Test tool - responds with pong or echoes input",
	}, NewPingHandler(deps))

	// Capture tools - create PENDING ingest items
	mcp.AddTool(server, &mcp.Tool{
		Name:        "capture_text",
		Description: "Capture a raw text note into the knowledge inbox for distillation",
	}, NewCaptureTextHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "capture_url",
		Description: "Capture a web page; its main content is extracted and distilled",
	}, NewCaptureURLHandler(deps))

	// Pipeline tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_item",
		Description: "Run the ingest pipeline for one captured item (extract, distill, embed)",
	}, NewProcessItemHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_stuck",
		Description: "Reset stuck PROCESSING items (or one specific item) back to PENDING",
	}, NewResetStuckHandler(deps))

	// Retrieval tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_insights",
		Description: "Search insights with hybrid keyword + vector similarity, merged vector-first",
	}, NewSearchHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "related_insights",
		Description: "Find the nearest-neighbor insights of an existing insight",
	}, NewRelatedHandler(deps))

	// Inspection tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_inbox",
		Description: "List captured items with their processing status",
	}, NewInboxHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stats",
		Description: "Report pipeline timing metrics and job outcome counters",
	}, NewStatsHandler(deps))
}
