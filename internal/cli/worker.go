package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/distillkb/distill/internal/metrics"
	"github.com/distillkb/distill/internal/service"
)

var (
	workerConcurrency int
	workerServe       bool
	workerPoll        time.Duration
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process pending inbox items",
	Long: `Drain the PENDING inbox with a bounded worker pool.

By default the worker processes everything currently pending and exits,
showing a progress bar when attached to a terminal. With --serve it
keeps running, polling for new captures until interrupted.

Examples:
  distill worker
  distill worker --concurrency 8
  distill worker --serve --poll 30s`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().IntVarP(&workerConcurrency, "concurrency", "c", 0, "parallel workers (defaults to DISTILL_WORKER_CONCURRENCY)")
	workerCmd.Flags().BoolVar(&workerServe, "serve", false, "keep running and poll for new captures")
	workerCmd.Flags().DurationVar(&workerPoll, "poll", time.Minute, "poll interval in serve mode")
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc, err := getService(ctx)
	if err != nil {
		return err
	}

	concurrency := workerConcurrency
	if concurrency <= 0 {
		concurrency = cfg.WorkerConcurrency
	}

	if workerServe {
		return serveWorker(ctx, svc, concurrency)
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return RunBatchProgress(ctx, svc, concurrency)
	}

	// Plain output for pipes and CI logs.
	stats, err := svc.ProcessPending(ctx, concurrency, func(done, total int) {
		fmt.Printf("processed %d/%d\n", done, total)
	})
	if err != nil {
		return fmt.Errorf("process pending: %w", err)
	}
	printWorkerStats(stats)
	if verbose {
		printTimings(svc.Metrics().Snapshot())
	}
	return nil
}

func printTimings(snap metrics.Snapshot) {
	fmt.Println("Timings:")
	printOperationStats("extract", snap.Extract)
	printOperationStats("generate", snap.Generate)
	printOperationStats("embed", snap.Embed)
	printOperationStats("process", snap.Process)
}

func printOperationStats(name string, op *metrics.OperationSnapshot) {
	if op == nil || op.Count == 0 {
		return
	}
	fmt.Printf("  %-10s count=%d avg=%.1fms min=%dms max=%dms\n",
		name, op.Count, op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}

func serveWorker(ctx context.Context, svc *service.Service, concurrency int) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	queue := service.NewQueue(256)
	defer queue.Close()

	fmt.Printf("Worker serving with %d worker(s), polling every %s. Ctrl+C to stop.\n", concurrency, workerPoll)
	err := svc.RunWorker(ctx, queue, concurrency, workerPoll)
	if err == context.Canceled {
		return nil
	}
	return err
}

func printWorkerStats(stats *service.WorkerStats) {
	fmt.Printf("Done: %d processed, %d skipped, %d failed\n", stats.Processed, stats.Skipped, stats.Failed)
}
