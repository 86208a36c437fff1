// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"
	"log/slog"

	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/metrics"
	"github.com/distillkb/distill/internal/models"
	"github.com/distillkb/distill/internal/service"
)

// Pipeline is the service surface the tool handlers call.
// *service.Service implements it; tests substitute a fake.
type Pipeline interface {
	CaptureText(ctx context.Context, owner, text string) (*models.IngestItem, error)
	CaptureURL(ctx context.Context, owner, url string) (*models.IngestItem, error)
	ProcessByID(ctx context.Context, id string) (*service.ProcessResult, error)
	Search(ctx context.Context, owner, query string, limit int) ([]models.SearchResult, error)
	Related(ctx context.Context, owner, insightID string, limit int) ([]models.SearchResult, error)
	ResetStuck(ctx context.Context, id string) ([]string, error)
	ListItems(ctx context.Context, owner string, status *models.ItemStatus, limit int) ([]models.IngestItem, error)
	CountByStatus(ctx context.Context, owner string) ([]db.StatusCount, error)
	Metrics() *metrics.Collector
}

var _ Pipeline = (*service.Service)(nil)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Pipeline Pipeline
	// Owner scopes every tool call; MCP clients are single-user.
	Owner  string
	Logger *slog.Logger
}
