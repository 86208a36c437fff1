// Package db provides SurrealDB query functions for the ingest pipeline and retrieval engine.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/distillkb/distill/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// itemFields is the projection shared by ingest item queries.
const itemFields = "id, owner, kind, status, raw_text, url, blob, sections, error, created, processed"

// CreateItem persists a new PENDING ingest item under the given ID.
func (c *Client) CreateItem(ctx context.Context, id string, input models.IngestItemInput) (*models.IngestItem, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("validate item: %w", err)
	}

	sql := `
		CREATE type::record("ingest_item", $id) SET
			owner = $owner,
			kind = $kind,
			status = 'PENDING',
			raw_text = $raw_text,
			url = $url,
			blob = $blob
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.IngestItem](ctx, c.db, sql, map[string]any{
		"id":       id,
		"owner":    input.Owner,
		"kind":     string(input.Kind),
		"raw_text": input.RawText,
		"url":      input.URL,
		"blob":     input.Blob,
	})
	if err != nil {
		return nil, fmt.Errorf("create item: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create item: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetItem retrieves an ingest item by ID. Returns nil if not found.
func (c *Client) GetItem(ctx context.Context, id string) (*models.IngestItem, error) {
	results, err := surrealdb.Query[[]models.IngestItem](ctx, c.db, `
		SELECT * FROM type::record("ingest_item", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// ClaimItem attempts the atomic PENDING -> PROCESSING transition.
// Returns true only if this call performed the transition; zero affected
// rows means another worker holds the claim (or the item is terminal).
func (c *Client) ClaimItem(ctx context.Context, id string) (bool, error) {
	sql := `
		UPDATE type::record("ingest_item", $id) SET status = 'PROCESSING'
		WHERE status = 'PENDING'
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.IngestItem](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("claim item: %w", wrapQueryError(err))
	}

	return results != nil && len(*results) > 0 && len((*results)[0].Result) > 0, nil
}

// ReclaimStale resets a single PROCESSING item back to PENDING if its
// creation time is older than the staleness window. Returns true if reset.
func (c *Client) ReclaimStale(ctx context.Context, id string, window time.Duration) (bool, error) {
	sql := `
		UPDATE type::record("ingest_item", $id) SET status = 'PENDING'
		WHERE status = 'PROCESSING'
			AND created < time::now() - duration::from::secs($secs)
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.IngestItem](ctx, c.db, sql, map[string]any{
		"id":   id,
		"secs": int64(window.Seconds()),
	})
	if err != nil {
		return false, fmt.Errorf("reclaim stale: %w", wrapQueryError(err))
	}

	return results != nil && len(*results) > 0 && len((*results)[0].Result) > 0, nil
}

// ResetStaleItems resets all PROCESSING items older than the window back to
// PENDING and returns them (operator "reset stuck items" action).
func (c *Client) ResetStaleItems(ctx context.Context, window time.Duration) ([]models.IngestItem, error) {
	sql := `
		UPDATE ingest_item SET status = 'PENDING'
		WHERE status = 'PROCESSING'
			AND created < time::now() - duration::from::secs($secs)
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.IngestItem](ctx, c.db, sql, map[string]any{
		"secs": int64(window.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("reset stale items: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.IngestItem{}, nil
	}
	return (*results)[0].Result, nil
}

// ResetItem forces a specific item from PROCESSING or ERROR back to PENDING.
// Returns true if a reset happened.
func (c *Client) ResetItem(ctx context.Context, id string) (bool, error) {
	sql := `
		UPDATE type::record("ingest_item", $id) SET status = 'PENDING', error = NONE
		WHERE status IN ['PROCESSING', 'ERROR']
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.IngestItem](ctx, c.db, sql, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("reset item: %w", wrapQueryError(err))
	}

	return results != nil && len(*results) > 0 && len((*results)[0].Result) > 0, nil
}

// MarkDone stamps a successful run: DONE status, processed time, the
// (possibly extraction-filled) raw text, and the generated-section summary.
func (c *Client) MarkDone(ctx context.Context, id string, rawText string, sections []models.SectionSummary) error {
	if sections == nil {
		sections = []models.SectionSummary{}
	}

	sql := `
		UPDATE type::record("ingest_item", $id) SET
			status = 'DONE',
			processed = time::now(),
			raw_text = $raw_text,
			sections = $sections,
			error = NONE
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":       id,
		"raw_text": rawText,
		"sections": sections,
	})
	if err != nil {
		return fmt.Errorf("mark done: %w", wrapQueryError(err))
	}
	return nil
}

// MarkError stamps a failed run: ERROR status, processed time, error message.
func (c *Client) MarkError(ctx context.Context, id string, message string) error {
	sql := `
		UPDATE type::record("ingest_item", $id) SET
			status = 'ERROR',
			processed = time::now(),
			error = $message
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":      id,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("mark error: %w", wrapQueryError(err))
	}
	return nil
}

// ListItems returns an owner's ingest items, newest first, optionally
// filtered by status.
func (c *Client) ListItems(ctx context.Context, owner string, status *models.ItemStatus, limit int) ([]models.IngestItem, error) {
	statusClause := ""
	vars := map[string]any{"owner": owner, "limit": limit}
	if status != nil {
		statusClause = "AND status = $status"
		vars["status"] = string(*status)
	}

	sql := fmt.Sprintf(`
		SELECT %s FROM ingest_item
		WHERE owner = $owner %s
		ORDER BY created DESC
		LIMIT $limit
	`, itemFields, statusClause)

	results, err := surrealdb.Query[[]models.IngestItem](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.IngestItem{}, nil
	}
	return (*results)[0].Result, nil
}

// ListPending returns PENDING items across all owners, oldest first.
// Feed for the batch worker.
func (c *Client) ListPending(ctx context.Context, limit int) ([]models.IngestItem, error) {
	sql := fmt.Sprintf(`
		SELECT %s FROM ingest_item
		WHERE status = 'PENDING'
		ORDER BY created ASC
		LIMIT $limit
	`, itemFields)

	results, err := surrealdb.Query[[]models.IngestItem](ctx, c.db, sql, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.IngestItem{}, nil
	}
	return (*results)[0].Result, nil
}

// StatusCount pairs an item status with its count for inbox display.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CountItemsByStatus returns per-status item counts for an owner.
func (c *Client) CountItemsByStatus(ctx context.Context, owner string) ([]StatusCount, error) {
	sql := `
		SELECT status, count() AS count FROM ingest_item
		WHERE owner = $owner
		GROUP BY status
	`

	results, err := surrealdb.Query[[]StatusCount](ctx, c.db, sql, map[string]any{"owner": owner})
	if err != nil {
		return nil, fmt.Errorf("count items: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []StatusCount{}, nil
	}
	return (*results)[0].Result, nil
}

// =============================================================================
// INSIGHTS
// =============================================================================

// GetInsight retrieves an insight by ID. Returns nil if not found.
func (c *Client) GetInsight(ctx context.Context, id string) (*models.Insight, error) {
	results, err := surrealdb.Query[[]models.Insight](ctx, c.db, `
		SELECT * FROM type::record("insight", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get insight: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// InsightsByItem returns all insights owned by an ingest item, ordered by
// section index ascending with null indices last.
func (c *Client) InsightsByItem(ctx context.Context, itemID string) ([]models.Insight, error) {
	sql := `
		SELECT * FROM insight
		WHERE item = type::record("ingest_item", $item)
		ORDER BY section_index ASC
	`

	results, err := surrealdb.Query[[]models.Insight](ctx, c.db, sql, map[string]any{"item": itemID})
	if err != nil {
		return nil, fmt.Errorf("insights by item: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Insight{}, nil
	}

	insights := (*results)[0].Result
	// NONE sorts first in SurrealDB; the reconciliation contract wants nulls last.
	withIndex := make([]models.Insight, 0, len(insights))
	var withoutIndex []models.Insight
	for _, in := range insights {
		if in.SectionIndex != nil {
			withIndex = append(withIndex, in)
		} else {
			withoutIndex = append(withoutIndex, in)
		}
	}
	return append(withIndex, withoutIndex...), nil
}

// CreateInsight persists a new insight at the given section index.
func (c *Client) CreateInsight(ctx context.Context, id, owner, itemID string, sectionIndex int, fields models.InsightFields) (*models.Insight, error) {
	sql := `
		CREATE type::record("insight", $id) SET
			owner = $owner,
			title = $title,
			summary = $summary,
			takeaway = $takeaway,
			content = $content,
			item = type::record("ingest_item", $item),
			section_index = $section_index
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Insight](ctx, c.db, sql, map[string]any{
		"id":            id,
		"owner":         owner,
		"title":         fields.Title,
		"summary":       fields.Summary,
		"takeaway":      fields.Takeaway,
		"content":       fields.Content,
		"item":          itemID,
		"section_index": sectionIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("create insight: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create insight: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// UpdateInsightFields updates an insight's text fields in place, preserving
// its ID and embedding, and bumps the updated timestamp.
func (c *Client) UpdateInsightFields(ctx context.Context, id string, sectionIndex int, fields models.InsightFields) (*models.Insight, error) {
	sql := `
		UPDATE type::record("insight", $id) SET
			title = $title,
			summary = $summary,
			takeaway = $takeaway,
			content = $content,
			section_index = $section_index,
			updated = time::now()
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Insight](ctx, c.db, sql, map[string]any{
		"id":            id,
		"title":         fields.Title,
		"summary":       fields.Summary,
		"takeaway":      fields.Takeaway,
		"content":       fields.Content,
		"section_index": sectionIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("update insight: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("update insight %s: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// DeleteInsightsFromIndex deletes an item's insights whose section index is
// >= the new section count (shrinkage during reconciliation). Insights with
// no section index are also removed. Returns the number deleted.
func (c *Client) DeleteInsightsFromIndex(ctx context.Context, itemID string, newCount int) (int, error) {
	sql := `
		DELETE insight
		WHERE item = type::record("ingest_item", $item)
			AND (section_index >= $count OR section_index = NONE)
		RETURN BEFORE
	`

	results, err := surrealdb.Query[[]models.Insight](ctx, c.db, sql, map[string]any{
		"item":  itemID,
		"count": newCount,
	})
	if err != nil {
		return 0, fmt.Errorf("delete insights: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// SetInsightEmbedding stores an insight's embedding vector.
func (c *Client) SetInsightEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("insight", $id) SET embedding = $embedding
	`, map[string]any{"id": id, "embedding": embedding})
	if err != nil {
		return fmt.Errorf("set embedding: %w", wrapQueryError(err))
	}
	return nil
}

// GetInsightsByIDs hydrates full insight records for a set of IDs.
// Result order is undefined; callers reorder by their merge order.
func (c *Client) GetInsightsByIDs(ctx context.Context, ids []surrealmodels.RecordID) ([]models.Insight, error) {
	if len(ids) == 0 {
		return []models.Insight{}, nil
	}

	results, err := surrealdb.Query[[]models.Insight](ctx, c.db, `
		SELECT * FROM insight WHERE id IN $ids
	`, map[string]any{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("get insights: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Insight{}, nil
	}
	return (*results)[0].Result, nil
}

// =============================================================================
// TAGS
// =============================================================================

// tagID builds the deterministic record ID for an owner-scoped tag.
func tagID(owner, name string) string {
	return owner + ":" + models.NormalizeTag(name)
}

// UpsertTag creates the owner-scoped tag if missing and returns it.
// The original casing of the first write is preserved.
func (c *Client) UpsertTag(ctx context.Context, owner, name string) (*models.Tag, error) {
	sql := `
		UPSERT type::record("tag", $id) SET
			owner = $owner,
			name = IF name THEN name ELSE $name END
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Tag](ctx, c.db, sql, map[string]any{
		"id":    tagID(owner, name),
		"owner": owner,
		"name":  name,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert tag: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("upsert tag: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ReplaceInsightTags clears an insight's tag associations and relates it to
// the given tag IDs. Full replace, not a merge.
func (c *Client) ReplaceInsightTags(ctx context.Context, insightID string, tagIDs []string) error {
	sql := `
		DELETE tagged WHERE in = type::record("insight", $insight);
		FOR $tag IN $tags {
			RELATE type::record("insight", $insight)->tagged->type::record("tag", $tag);
		};
	`

	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"insight": insightID,
		"tags":    tagIDs,
	})
	if err != nil {
		return fmt.Errorf("replace insight tags: %w", wrapQueryError(err))
	}
	return nil
}

// TagsForInsight returns the tags associated with an insight.
func (c *Client) TagsForInsight(ctx context.Context, insightID string) ([]models.Tag, error) {
	sql := `
		SELECT * FROM tag WHERE id IN (
			SELECT VALUE out FROM tagged WHERE in = type::record("insight", $insight)
		)
	`

	results, err := surrealdb.Query[[]models.Tag](ctx, c.db, sql, map[string]any{"insight": insightID})
	if err != nil {
		return nil, fmt.Errorf("tags for insight: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Tag{}, nil
	}
	return (*results)[0].Result, nil
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// VectorHit is one nearest-neighbor match: an insight ID with its cosine
// distance, ordered ascending by distance.
type VectorHit struct {
	ID   surrealmodels.RecordID `json:"id"`
	Dist float64                `json:"dist"`
}

// VectorSearch runs an HNSW nearest-neighbor lookup over the owner's
// insights using cosine distance. Insights without embeddings never match.
func (c *Client) VectorSearch(ctx context.Context, owner string, embedding []float32, limit int) ([]VectorHit, error) {
	if len(embedding) == 0 || limit <= 0 {
		return []VectorHit{}, nil
	}

	// The KNN count must be a literal in the query text.
	sql := fmt.Sprintf(`
		SELECT id, vector::distance::knn() AS dist FROM insight
		WHERE owner = $owner AND embedding <|%d,40|> $emb
		ORDER BY dist ASC
	`, limit)

	results, err := surrealdb.Query[[]VectorHit](ctx, c.db, sql, map[string]any{
		"owner": owner,
		"emb":   embedding,
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []VectorHit{}, nil
	}
	return (*results)[0].Result, nil
}

// KeywordSearch matches the owner's insights by case-insensitive substring
// containment over title, summary, takeaway, content, and tag names.
// No relevance ranking; this is a recall backstop for vector search.
func (c *Client) KeywordSearch(ctx context.Context, owner, query string, limit int) ([]surrealmodels.RecordID, error) {
	if query == "" || limit <= 0 {
		return []surrealmodels.RecordID{}, nil
	}

	sql := `
		SELECT VALUE id FROM insight
		WHERE owner = $owner AND (
			string::contains(string::lowercase(title), $q)
			OR string::contains(string::lowercase(summary), $q)
			OR string::contains(string::lowercase(takeaway), $q)
			OR string::contains(string::lowercase(content), $q)
			OR id IN (
				SELECT VALUE in FROM tagged
				WHERE string::contains(out.name_lower, $q)
			)
		)
		LIMIT $limit
	`

	results, err := surrealdb.Query[[]surrealmodels.RecordID](ctx, c.db, sql, map[string]any{
		"owner": owner,
		"q":     models.NormalizeTag(query),
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []surrealmodels.RecordID{}, nil
	}
	return (*results)[0].Result, nil
}
