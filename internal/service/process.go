package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/insight"
	"github.com/distillkb/distill/internal/metrics"
	"github.com/distillkb/distill/internal/models"
)

// ProcessResult reports the outcome of a process invocation.
type ProcessResult struct {
	ItemID string `json:"ingest_item_id"`
	// Skipped is true for claim races, young PROCESSING items, and
	// terminal items. Status carries the item's state in that case.
	Skipped bool              `json:"skipped"`
	Status  models.ItemStatus `json:"status"`
	// InsightIDs are the insights owned by the item after this run.
	InsightIDs []string `json:"insight_ids,omitempty"`
	// Reused is true when the item was already DONE and its existing
	// insights are returned without reprocessing.
	Reused bool `json:"reused,omitempty"`
}

// ProcessByID drives one ingest item through the pipeline. It is safe
// under concurrent and duplicate invocations for the same id: the
// PENDING to PROCESSING transition is a single conditional update, so
// exactly one caller wins and the rest report Skipped.
func (s *Service) ProcessByID(ctx context.Context, id string) (*ProcessResult, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("ingest item %s: %w", id, db.ErrNotFound)
	}

	// Terminal items are never reprocessed automatically.
	if item.Status.Terminal() {
		s.metrics.RecordJobSkipped()
		res := &ProcessResult{ItemID: id, Skipped: true, Status: item.Status}
		if item.Status == models.StatusDone {
			res.Reused = true
			res.InsightIDs = s.insightIDsFor(ctx, id)
		}
		return res, nil
	}

	if item.Status == models.StatusProcessing {
		// A crashed worker leaves PROCESSING behind. Reclaim only past
		// the staleness window, then retry the claim exactly once.
		reclaimed, err := s.store.ReclaimStale(ctx, id, s.staleWindow)
		if err != nil {
			return nil, err
		}
		if !reclaimed {
			s.metrics.RecordJobSkipped()
			return &ProcessResult{ItemID: id, Skipped: true, Status: models.StatusProcessing}, nil
		}
		s.log.Warn("reclaimed stale processing item", "item", id, "window", s.staleWindow)
	}

	claimed, err := s.store.ClaimItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claimed {
		s.metrics.RecordJobSkipped()
		return &ProcessResult{ItemID: id, Skipped: true, Status: models.StatusProcessing}, nil
	}

	start := time.Now()
	insightIDs, execErr := s.execute(ctx, item)
	s.metrics.RecordTiming(metrics.OpProcess, time.Since(start))

	if execErr != nil {
		s.metrics.RecordJobError()
		if markErr := s.store.MarkError(ctx, id, execErr.Error()); markErr != nil {
			s.log.Error("failed to mark item errored", "item", id, "error", markErr)
		}
		s.log.Error("ingest processing failed", "item", id, "error", execErr)
		return nil, fmt.Errorf("process item %s: %w", id, execErr)
	}

	s.metrics.RecordJobDone()
	return &ProcessResult{ItemID: id, Status: models.StatusDone, InsightIDs: insightIDs}, nil
}

// execute runs extraction, generation, and reconciliation for a claimed
// item. Any panic is converted into an error so the caller can land the
// item in ERROR instead of crashing the worker.
func (s *Service) execute(ctx context.Context, item *models.IngestItem) (insightIDs []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during processing: %v", r)
		}
	}()

	id := models.MustRecordIDString(item.ID)

	extractStart := time.Now()
	text, warnings := s.extractor.Extract(ctx, item)
	s.metrics.RecordTiming(metrics.OpExtract, time.Since(extractStart))
	for _, w := range warnings {
		s.log.Warn("extraction warning", "item", id, "warning", w)
	}

	genStart := time.Now()
	result := s.generator.Generate(ctx, text, "")
	s.metrics.RecordTiming(metrics.OpGenerate, time.Since(genStart))

	sections, insightIDs, err := s.reconcile(ctx, item, result)
	if err != nil {
		return nil, err
	}

	if err := s.store.MarkDone(ctx, id, text, sections); err != nil {
		return nil, err
	}

	s.log.Info("ingest item processed",
		"item", id,
		"kind", item.Kind,
		"sections", len(sections),
		"chars", len(text))
	return insightIDs, nil
}

// reconcile aligns the item's insights with the newly generated sections.
// Existing insights keep their ids where section indices line up, extra
// sections create new insights, and surplus insights are deleted. Tags
// are fully replaced and embeddings refreshed per section.
func (s *Service) reconcile(ctx context.Context, item *models.IngestItem, result insight.Result) ([]models.SectionSummary, []string, error) {
	itemID := models.MustRecordIDString(item.ID)

	existing, err := s.store.InsightsByItem(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	byIndex := make(map[int]models.Insight, len(existing))
	for _, in := range existing {
		if in.SectionIndex != nil {
			byIndex[*in.SectionIndex] = in
		}
	}

	sections := make([]models.SectionSummary, 0, len(result.Sections))
	insightIDs := make([]string, 0, len(result.Sections))

	for i, sec := range result.Sections {
		fields := models.InsightFields{
			Title:    sec.Title,
			Summary:  strings.Join(sec.Bullets, "\n"),
			Takeaway: sec.Takeaway,
			Content:  sec.SourceExcerpt,
		}

		var stored *models.Insight
		if prev, ok := byIndex[i]; ok {
			stored, err = s.store.UpdateInsightFields(ctx, models.MustRecordIDString(prev.ID), i, fields)
		} else {
			stored, err = s.store.CreateInsight(ctx, uuid.New().String(), item.Owner, itemID, i, fields)
		}
		if err != nil {
			return nil, nil, err
		}
		insightID := models.MustRecordIDString(stored.ID)

		if err := s.replaceTags(ctx, item.Owner, insightID, sec.Tags); err != nil {
			return nil, nil, err
		}

		s.embedSection(ctx, insightID, sec)

		sections = append(sections, models.SectionSummary{
			Index:     i,
			Title:     sec.Title,
			InsightID: insightID,
		})
		insightIDs = append(insightIDs, insightID)
	}

	// Shrinkage: drop insights beyond the new section count.
	deleted, err := s.store.DeleteInsightsFromIndex(ctx, itemID, len(result.Sections))
	if err != nil {
		return nil, nil, err
	}
	if deleted > 0 {
		s.log.Info("removed surplus insights", "item", itemID, "deleted", deleted)
	}

	return sections, insightIDs, nil
}

// replaceTags upserts the owner-scoped tags and swaps the insight's
// associations to exactly that set.
func (s *Service) replaceTags(ctx context.Context, owner, insightID string, names []string) error {
	seen := make(map[string]bool, len(names))
	tagIDs := make([]string, 0, len(names))
	for _, name := range names {
		norm := models.NormalizeTag(name)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true

		tag, err := s.store.UpsertTag(ctx, owner, name)
		if err != nil {
			return err
		}
		tagIDs = append(tagIDs, models.MustRecordIDString(tag.ID))
	}
	return s.store.ReplaceInsightTags(ctx, insightID, tagIDs)
}

// embedSection computes and stores the section embedding. Failures are
// non-fatal: an insight without an embedding is simply invisible to
// vector search until a later run succeeds.
func (s *Service) embedSection(ctx context.Context, insightID string, sec insight.Section) {
	text := sec.Takeaway + "\n" + strings.Join(sec.Bullets, "\n")

	start := time.Now()
	vec := s.embedder.Embed(ctx, text)
	s.metrics.RecordTiming(metrics.OpEmbed, time.Since(start))

	if len(vec) == 0 {
		s.log.Debug("no embedding produced", "insight", insightID)
		return
	}
	if err := s.store.SetInsightEmbedding(ctx, insightID, vec); err != nil {
		s.log.Warn("failed to store embedding", "insight", insightID, "error", err)
	}
}

// insightIDsFor lists the item's current insight ids, best effort.
func (s *Service) insightIDsFor(ctx context.Context, itemID string) []string {
	existing, err := s.store.InsightsByItem(ctx, itemID)
	if err != nil {
		s.log.Warn("failed to load existing insights", "item", itemID, "error", err)
		return nil
	}
	ids := make([]string, 0, len(existing))
	for _, in := range existing {
		ids = append(ids, models.MustRecordIDString(in.ID))
	}
	return ids
}
