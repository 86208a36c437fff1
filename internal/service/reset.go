package service

import (
	"context"
	"fmt"

	"github.com/distillkb/distill/internal/db"
	"github.com/distillkb/distill/internal/models"
)

// ResetStuck is the operator action mirroring the automatic stale-claim
// recovery. With an id it force-resets that one PROCESSING or ERROR item;
// without one it resets every PROCESSING item older than the staleness
// window. Reset items are re-enqueued when a queue is attached.
func (s *Service) ResetStuck(ctx context.Context, id string) ([]string, error) {
	var resetIDs []string

	if id != "" {
		reset, err := s.store.ResetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		if !reset {
			return nil, fmt.Errorf("item %s is not PROCESSING or ERROR: %w", id, db.ErrNotFound)
		}
		resetIDs = []string{id}
	} else {
		items, err := s.store.ResetStaleItems(ctx, s.staleWindow)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			itemID, err := models.RecordIDString(item.ID)
			if err != nil {
				continue
			}
			resetIDs = append(resetIDs, itemID)
		}
	}

	for _, resetID := range resetIDs {
		s.log.Info("reset stuck item", "item", resetID)
		if s.queue != nil {
			if err := s.queue.Enqueue(resetID); err != nil {
				s.log.Warn("re-enqueue after reset failed", "item", resetID, "error", err)
			}
		}
	}
	return resetIDs, nil
}
