package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/distillkb/distill/internal/models"
)

// Capture creates a PENDING ingest item and triggers processing. The
// trigger is the configured queue; if enqueueing fails the item is
// processed synchronously so no capture is silently lost. Without a
// queue the item stays PENDING for a worker to pick up.
func (s *Service) Capture(ctx context.Context, input models.IngestItemInput) (*models.IngestItem, error) {
	id := uuid.New().String()

	item, err := s.store.CreateItem(ctx, id, input)
	if err != nil {
		return nil, err
	}
	s.log.Info("capture created", "item", id, "owner", input.Owner, "kind", input.Kind)

	if s.queue != nil {
		if err := s.queue.Enqueue(id); err != nil {
			s.log.Warn("enqueue failed, processing synchronously", "item", id, "error", err)
			if _, perr := s.ProcessByID(ctx, id); perr != nil {
				s.log.Error("synchronous fallback processing failed", "item", id, "error", perr)
			}
		}
	}

	return item, nil
}

// CaptureText captures a raw text note.
func (s *Service) CaptureText(ctx context.Context, owner, text string) (*models.IngestItem, error) {
	return s.Capture(ctx, models.IngestItemInput{
		Owner:   owner,
		Kind:    models.KindText,
		RawText: &text,
	})
}

// CaptureURL captures a web page for later fetching and extraction.
func (s *Service) CaptureURL(ctx context.Context, owner, url string) (*models.IngestItem, error) {
	return s.Capture(ctx, models.IngestItemInput{
		Owner: owner,
		Kind:  models.KindURL,
		URL:   &models.URLMeta{URL: url},
	})
}

// CaptureBlob captures an uploaded binary payload of the given kind.
func (s *Service) CaptureBlob(ctx context.Context, owner string, kind models.SourceKind, blob models.BlobMeta) (*models.IngestItem, error) {
	return s.Capture(ctx, models.IngestItemInput{
		Owner: owner,
		Kind:  kind,
		Blob:  &blob,
	})
}
