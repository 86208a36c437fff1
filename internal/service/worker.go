package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/distillkb/distill/internal/models"
)

// DefaultConcurrency is the worker pool size when none is configured.
const DefaultConcurrency = 4

const pendingBatchSize = 100

// Queue is a bounded in-process trigger feeding item ids to a running
// worker. It implements Enqueuer for the capture entrypoint.
type Queue struct {
	ch     chan string
	closed atomic.Bool
}

// NewQueue creates a trigger queue with the given buffer size.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{ch: make(chan string, size)}
}

// Enqueue hands an item id to the worker. A full or closed queue returns
// an error so the caller can fall back to synchronous processing.
func (q *Queue) Enqueue(id string) error {
	if q.closed.Load() {
		return errors.New("queue closed")
	}
	select {
	case q.ch <- id:
		return nil
	default:
		return errors.New("queue full")
	}
}

// Close stops accepting new ids.
func (q *Queue) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.ch)
	}
}

// WorkerStats reports one batch run.
type WorkerStats struct {
	Processed int
	Skipped   int
	Failed    int
}

// ProcessPending drains PENDING items with a bounded worker pool and
// returns once no pending work remains. Duplicate pickups are harmless:
// the claim in ProcessByID lets exactly one worker win.
func (s *Service) ProcessPending(ctx context.Context, concurrency int, onProgress func(done, total int)) (*WorkerStats, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	stats := &WorkerStats{}
	for {
		pending, err := s.store.ListPending(ctx, pendingBatchSize)
		if err != nil {
			return stats, err
		}
		if len(pending) == 0 {
			return stats, nil
		}

		var (
			processed atomic.Int32
			skipped   atomic.Int32
			failed    atomic.Int32
			done      atomic.Int32
		)

		workChan := make(chan string, len(pending))
		var wg sync.WaitGroup
		for i := 0; i < concurrency; i++ {
			wg.Add(1)
			go func(workerID int) {
				defer wg.Done()
				for id := range workChan {
					if ctx.Err() != nil {
						return
					}

					res, err := s.ProcessByID(ctx, id)
					switch {
					case err != nil:
						failed.Add(1)
					case res.Skipped:
						skipped.Add(1)
					default:
						processed.Add(1)
					}

					n := done.Add(1)
					s.log.Debug("worker progress",
						"worker", workerID,
						"item", id,
						"progress", fmt.Sprintf("%d/%d", n, len(pending)))
					if onProgress != nil {
						onProgress(int(n), len(pending))
					}
				}
			}(i)
		}

		for _, item := range pending {
			id, err := models.RecordIDString(item.ID)
			if err != nil {
				s.log.Warn("skipping item with non-string id", "id", item.ID.String())
				continue
			}
			workChan <- id
		}
		close(workChan)
		wg.Wait()

		stats.Processed += int(processed.Load())
		stats.Skipped += int(skipped.Load())
		stats.Failed += int(failed.Load())

		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
	}
}

// RunWorker serves the trigger queue and polls for stragglers until the
// context is canceled. pollInterval covers captures made while no queue
// was attached and items reset by the stale-claim recovery.
func (s *Service) RunWorker(ctx context.Context, queue *Queue, concurrency int, pollInterval time.Duration) error {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}

	s.log.Info("worker started", "concurrency", concurrency, "poll_interval", pollInterval)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	handle := func(id string) {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if _, err := s.ProcessByID(ctx, id); err != nil {
				s.log.Error("worker processing failed", "item", id, "error", err)
			}
		}()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			s.log.Info("worker stopped")
			return ctx.Err()

		case id, ok := <-queue.ch:
			if !ok {
				wg.Wait()
				return nil
			}
			handle(id)

		case <-ticker.C:
			pending, err := s.store.ListPending(ctx, pendingBatchSize)
			if err != nil {
				s.log.Warn("pending poll failed", "error", err)
				continue
			}
			for _, item := range pending {
				id, err := models.RecordIDString(item.ID)
				if err != nil {
					continue
				}
				handle(id)
			}
		}
	}
}
