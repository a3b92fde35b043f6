package engine

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize  = 25
	DefaultBatchPause = 200 * time.Millisecond
)

// BatchProgress is reported once per video right before its classification request.
type BatchProgress struct {
	Current      int
	Total        int
	CurrentVideo string
}

// BatchRunner classifies videos in sequential batches of concurrent requests.
type BatchRunner struct {
	Classifier VideoClassifier
	BatchSize  int
	Pause      time.Duration
}

// Run classifies every video and returns results in input order.
// onProgress may be nil; panics inside it are swallowed.
func (r *BatchRunner) Run(ctx context.Context, videos []VideoRecord, onProgress func(BatchProgress)) []ClassificationResult {
	size := r.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	results := make([]ClassificationResult, len(videos))
	total := len(videos)

	slog.Info("batch: analyzing videos", slog.Int("count", total), slog.Int("batch_size", size))

	for start := 0; start < total; start += size {
		end := min(start+size, total)
		batchStart := time.Now()

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				notify(onProgress, BatchProgress{Current: i + 1, Total: total, CurrentVideo: videos[i].Title})
				results[i] = r.Classifier.Classify(ctx, videos[i])
				return nil
			})
		}
		_ = g.Wait()

		slog.Debug("batch: completed",
			slog.Int("batch", start/size+1),
			slog.Duration("elapsed", time.Since(batchStart)),
			slog.Int("done", end),
			slog.Int("total", total),
		)

		if end < total && r.Pause > 0 {
			select {
			case <-time.After(r.Pause):
			case <-ctx.Done():
			}
		}
	}
	return results
}

func notify(onProgress func(BatchProgress), p BatchProgress) {
	if onProgress == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			slog.Debug("batch: progress callback panicked", slog.Any("panic", rec))
		}
	}()
	onProgress(p)
}
