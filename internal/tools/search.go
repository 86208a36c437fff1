package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/models"
)

// SearchInput defines the input schema for the search_insights tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"required,Search text"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum results (default 10)"`
}

// RelatedInput defines the input schema for the related_insights tool.
type RelatedInput struct {
	InsightID string `json:"insight_id" jsonschema:"required,Insight to find neighbors of"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Maximum results (default 10)"`
}

// InsightResult is one search hit in the response, without the embedding.
type InsightResult struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Bullets  []string `json:"bullets,omitempty"`
	Takeaway string   `json:"takeaway"`
	Tags     []string `json:"tags,omitempty"`
	Score    *float64 `json:"score,omitempty"`
}

// SearchResults is the response from both search tools.
type SearchResults struct {
	Results []InsightResult `json:"results"`
	Count   int             `json:"count"`
}

func toSearchResults(results []models.SearchResult) SearchResults {
	out := SearchResults{Results: make([]InsightResult, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, InsightResult{
			ID:       models.MustRecordIDString(r.Insight.ID),
			Title:    r.Insight.Title,
			Bullets:  r.Insight.Bullets(),
			Takeaway: r.Insight.Takeaway,
			Tags:     r.Tags,
			Score:    r.Score,
		})
	}
	out.Count = len(out.Results)
	return out
}

// NewSearchHandler creates the search_insights tool handler: hybrid
// keyword plus vector search merged vector-first.
func NewSearchHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, any, error) {
		results, err := deps.Pipeline.Search(ctx, deps.Owner, input.Query, input.Limit)
		if err != nil {
			deps.Logger.Error("search failed", "query", input.Query, "error", err)
			return ErrorResult("Search failed", "Database may be unavailable"), nil, nil
		}

		return JSONResult(toSearchResults(results)), nil, nil
	}
}

// NewRelatedHandler creates the related_insights tool handler.
func NewRelatedHandler(deps *Dependencies) mcp.ToolHandlerFor[RelatedInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input RelatedInput) (*mcp.CallToolResult, any, error) {
		if input.InsightID == "" {
			return ErrorResult("Insight id is required", "Pass an id from search_insights"), nil, nil
		}

		results, err := deps.Pipeline.Related(ctx, deps.Owner, input.InsightID, input.Limit)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return ErrorResult("Insight not found: "+input.InsightID, ""), nil, nil
			}
			deps.Logger.Error("related lookup failed", "insight", input.InsightID, "error", err)
			return ErrorResult("Related lookup failed", "Database may be unavailable"), nil, nil
		}

		return JSONResult(toSearchResults(results)), nil, nil
	}
}
