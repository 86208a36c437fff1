// Package service implements the ingest coordinator and retrieval engine.
package service

import (
	"context"
	"log/slog"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/insight"
	"github.com/distillkb/distill/internal/llm"
	"github.com/distillkb/distill/internal/metrics"
	"github.com/distillkb/distill/internal/models"
)

// DefaultStaleWindow is how long a PROCESSING claim is honored before it
// can be reclaimed from a presumed-dead worker.
const DefaultStaleWindow = time.Hour

// DefaultSearchLimit caps search results when the caller passes none.
const DefaultSearchLimit = 10

// Store is the persistence surface the service needs. *db.Client
// implements it; tests provide a fake.
type Store interface {
	CreateItem(ctx context.Context, id string, input models.IngestItemInput) (*models.IngestItem, error)
	GetItem(ctx context.Context, id string) (*models.IngestItem, error)
	ClaimItem(ctx context.Context, id string) (bool, error)
	ReclaimStale(ctx context.Context, id string, window time.Duration) (bool, error)
	ResetStaleItems(ctx context.Context, window time.Duration) ([]models.IngestItem, error)
	ResetItem(ctx context.Context, id string) (bool, error)
	MarkDone(ctx context.Context, id string, rawText string, sections []models.SectionSummary) error
	MarkError(ctx context.Context, id string, message string) error
	ListItems(ctx context.Context, owner string, status *models.ItemStatus, limit int) ([]models.IngestItem, error)
	ListPending(ctx context.Context, limit int) ([]models.IngestItem, error)
	CountItemsByStatus(ctx context.Context, owner string) ([]db.StatusCount, error)

	GetInsight(ctx context.Context, id string) (*models.Insight, error)
	InsightsByItem(ctx context.Context, itemID string) ([]models.Insight, error)
	CreateInsight(ctx context.Context, id, owner, itemID string, sectionIndex int, fields models.InsightFields) (*models.Insight, error)
	UpdateInsightFields(ctx context.Context, id string, sectionIndex int, fields models.InsightFields) (*models.Insight, error)
	DeleteInsightsFromIndex(ctx context.Context, itemID string, newCount int) (int, error)
	SetInsightEmbedding(ctx context.Context, id string, embedding []float32) error
	GetInsightsByIDs(ctx context.Context, ids []surrealmodels.RecordID) ([]models.Insight, error)

	UpsertTag(ctx context.Context, owner, name string) (*models.Tag, error)
	ReplaceInsightTags(ctx context.Context, insightID string, tagIDs []string) error
	TagsForInsight(ctx context.Context, insightID string) ([]models.Tag, error)

	VectorSearch(ctx context.Context, owner string, embedding []float32, limit int) ([]db.VectorHit, error)
	KeywordSearch(ctx context.Context, owner, query string, limit int) ([]surrealmodels.RecordID, error)
}

var _ Store = (*db.Client)(nil)

// ContentExtractor turns an ingest item into plain text. Extraction never
// fails; degraded paths return empty text plus warnings.
type ContentExtractor interface {
	Extract(ctx context.Context, item *models.IngestItem) (string, []string)
}

// InsightGenerator distills text into structured insights, with defined
// fallbacks for blank text and missing or misbehaving models.
type InsightGenerator interface {
	Generate(ctx context.Context, text, hint string) insight.Result
}

// Enqueuer hands a pending item id to the processing trigger.
type Enqueuer interface {
	Enqueue(id string) error
}

// Service wires the capture entrypoint, ingest coordinator, and retrieval
// engine together.
type Service struct {
	store       Store
	extractor   ContentExtractor
	generator   InsightGenerator
	embedder    llm.Embedder
	metrics     *metrics.Collector
	queue       Enqueuer
	staleWindow time.Duration
	log         *slog.Logger
}

// Options configures optional service collaborators.
type Options struct {
	// Queue is the processing trigger used by Capture. Nil means captures
	// stay PENDING until a worker or an explicit process call picks them up.
	Queue Enqueuer
	// StaleWindow overrides DefaultStaleWindow.
	StaleWindow time.Duration
	// Metrics overrides the default collector.
	Metrics *metrics.Collector
	Logger  *slog.Logger
}

// New creates a service.
func New(store Store, extractor ContentExtractor, generator InsightGenerator, embedder llm.Embedder, opts Options) *Service {
	if opts.StaleWindow <= 0 {
		opts.StaleWindow = DefaultStaleWindow
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if embedder == nil {
		embedder = llm.NoEmbedder{}
	}

	return &Service{
		store:       store,
		extractor:   extractor,
		generator:   generator,
		embedder:    embedder,
		metrics:     opts.Metrics,
		queue:       opts.Queue,
		staleWindow: opts.StaleWindow,
		log:         opts.Logger,
	}
}

// Metrics exposes the collector for the stats surfaces.
func (s *Service) Metrics() *metrics.Collector {
	return s.metrics
}

// ListItems returns an owner's capture inbox, newest first.
func (s *Service) ListItems(ctx context.Context, owner string, status *models.ItemStatus, limit int) ([]models.IngestItem, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListItems(ctx, owner, status, limit)
}

// CountByStatus returns per-status item counts for an owner's inbox header.
func (s *Service) CountByStatus(ctx context.Context, owner string) ([]db.StatusCount, error) {
	return s.store.CountItemsByStatus(ctx, owner)
}
