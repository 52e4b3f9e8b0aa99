package counter

import (
	"context"
	"strconv"

	"github.com/linkgrove/ordercore/internal/pkg/cache"
)

const (
	webhookOutcomesKey   = "webhook:counters:outcomes"
	webhookEventTypesKey = "webhook:counters:event_types"
)

// AddWebhookOutcome increments the running counter for a terminal or retry
// outcome (processed, failed, failed_permanent, skipped).
func AddWebhookOutcome(status string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookOutcomesKey, status, 1).Err()
}

// AddWebhookEventType increments the per-event-type volume counter.
func AddWebhookEventType(eventType string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, webhookEventTypesKey, eventType, 1).Err()
}

// WebhookOutcomes returns the outcome counters accumulated since the last reset.
func WebhookOutcomes() (map[string]int64, error) {
	return readHash(webhookOutcomesKey)
}

// WebhookEventTypes returns the per-event-type volume counters.
func WebhookEventTypes() (map[string]int64, error) {
	return readHash(webhookEventTypesKey)
}

// Reset drops all webhook counters. Used by tests and manual resets; the
// webhook_events table remains the durable record.
func Reset() error {
	ctx := context.Background()
	return cache.GetClient().Del(ctx, webhookOutcomesKey, webhookEventTypesKey).Err()
}

func readHash(key string) (map[string]int64, error) {
	ctx := context.Background()
	data, err := cache.GetClient().HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(data))
	for field, raw := range data {
		n, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			continue
		}
		out[field] = n
	}
	return out, nil
}
