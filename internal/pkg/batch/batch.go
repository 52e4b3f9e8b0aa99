// Package batch runs work in fixed-size batches with a pause between
// batches. The pause is deliberate: bulk reconciliation against the payment
// provider has to stay under its rate limit.
package batch

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	DefaultBatchSize = 10
	DefaultPause     = time.Second
)

// Config controls batch sizing and pacing.
type Config struct {
	BatchSize int
	Pause     time.Duration
}

// Run processes items in order, batch by batch. Item errors are logged and
// counted, never fatal; only context cancellation stops the run early.
func Run[T any](ctx context.Context, cfg Config, items []T, fn func(ctx context.Context, item T) error) (processed, failed int, err error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Pause <= 0 {
		cfg.Pause = DefaultPause
	}

	for start := 0; start < len(items); start += cfg.BatchSize {
		if start > 0 {
			select {
			case <-ctx.Done():
				return processed, failed, ctx.Err()
			case <-time.After(cfg.Pause):
			}
		}

		end := start + cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}
		for _, item := range items[start:end] {
			if ctx.Err() != nil {
				return processed, failed, ctx.Err()
			}
			if itemErr := fn(ctx, item); itemErr != nil {
				log.Warnf("[Batch] item failed: %v", itemErr)
				failed++
				continue
			}
			processed++
		}
	}
	return processed, failed, nil
}
