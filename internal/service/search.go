package service

import (
	"context"
	"strings"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"golang.org/x/sync/errgroup"

	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/metrics"
	"github.com/distillkb/distill/internal/models"
)

// Search runs the hybrid lookup: a keyword containment match and a vector
// nearest-neighbor match in parallel, merged vector-first. An empty query
// short-circuits to no results.
func (s *Service) Search(ctx context.Context, owner, query string, limit int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var (
		vectorHits []db.VectorHit
		keywordIDs []surrealmodels.RecordID
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		defer func() { s.metrics.RecordTiming(metrics.OpKeywordSearch, time.Since(start)) }()

		ids, err := s.store.KeywordSearch(gctx, owner, query, limit)
		if err != nil {
			return err
		}
		keywordIDs = ids
		return nil
	})
	g.Go(func() error {
		emb := s.embedder.Embed(gctx, query)
		if len(emb) == 0 {
			return nil
		}

		start := time.Now()
		defer func() { s.metrics.RecordTiming(metrics.OpVectorSearch, time.Since(start)) }()

		hits, err := s.store.VectorSearch(gctx, owner, emb, limit)
		if err != nil {
			return err
		}
		vectorHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return s.mergeAndHydrate(ctx, vectorHits, keywordIDs, limit)
}

// Related finds the nearest neighbors of an existing insight. An insight
// without an embedding has no computable neighbors and yields an empty
// result.
func (s *Service) Related(ctx context.Context, owner, insightID string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	source, err := s.store.GetInsight(ctx, insightID)
	if err != nil {
		return nil, err
	}
	if source == nil || source.Owner != owner {
		// Another owner's insight is indistinguishable from a missing one.
		return nil, db.ErrNotFound
	}
	if len(source.Embedding) == 0 {
		return []models.SearchResult{}, nil
	}

	start := time.Now()
	// limit+1 because the source insight is its own nearest neighbor.
	hits, err := s.store.VectorSearch(ctx, owner, source.Embedding, limit+1)
	s.metrics.RecordTiming(metrics.OpVectorSearch, time.Since(start))
	if err != nil {
		return nil, err
	}

	filtered := make([]db.VectorHit, 0, len(hits))
	for _, hit := range hits {
		if hit.ID.String() == source.ID.String() {
			continue
		}
		filtered = append(filtered, hit)
		if len(filtered) == limit {
			break
		}
	}

	return s.mergeAndHydrate(ctx, filtered, nil, limit)
}

// mergeAndHydrate unions the two hit lists with vector-match order first
// and keyword-only additions after, deduplicates, truncates to limit, then
// loads full insight records with tags and similarity scores attached.
func (s *Service) mergeAndHydrate(ctx context.Context, vectorHits []db.VectorHit, keywordIDs []surrealmodels.RecordID, limit int) ([]models.SearchResult, error) {
	type entry struct {
		id    surrealmodels.RecordID
		score *float64
	}

	seen := make(map[string]bool, len(vectorHits)+len(keywordIDs))
	order := make([]entry, 0, limit)

	for _, hit := range vectorHits {
		key := hit.ID.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		score := similarity(hit.Dist)
		order = append(order, entry{id: hit.ID, score: &score})
		if len(order) == limit {
			break
		}
	}
	for _, id := range keywordIDs {
		if len(order) == limit {
			break
		}
		key := id.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		order = append(order, entry{id: id})
	}

	if len(order) == 0 {
		return []models.SearchResult{}, nil
	}

	ids := make([]surrealmodels.RecordID, len(order))
	for i, e := range order {
		ids[i] = e.id
	}
	insights, err := s.store.GetInsightsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Insight, len(insights))
	for _, in := range insights {
		byID[in.ID.String()] = in
	}

	results := make([]models.SearchResult, 0, len(order))
	for _, e := range order {
		in, ok := byID[e.id.String()]
		if !ok {
			continue
		}

		res := models.SearchResult{Insight: in, Score: e.score}
		tags, err := s.store.TagsForInsight(ctx, models.MustRecordIDString(in.ID))
		if err != nil {
			s.log.Warn("failed to load tags", "insight", in.ID.String(), "error", err)
		} else {
			for _, t := range tags {
				res.Tags = append(res.Tags, t.Name)
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// similarity converts a cosine distance to a score clamped to [0,1].
func similarity(dist float64) float64 {
	score := 1 - dist
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
