package cache

import (
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkgrove/ordercore/app/models"
)

const (
	intentKeyPrefix = "payment:intent:"
	IntentCacheTTL  = 3600 * time.Second
)

// GetPaymentIntent returns the cached mirror of a provider payment intent.
// Any cache problem (unreachable store, corrupt entry) degrades to a miss,
// never to an error: the DB row stays authoritative.
func GetPaymentIntent(providerIntentID string) (*models.PaymentIntent, bool) {
	val, err := GetClient().Get(ctx, intentKeyPrefix+providerIntentID).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[Cache] payment intent read failed, treating as miss: %v", err)
		}
		return nil, false
	}

	var intent models.PaymentIntent
	if err := json.Unmarshal([]byte(val), &intent); err != nil {
		log.Printf("[Cache] corrupt payment intent entry for %s, invalidating: %v", providerIntentID, err)
		InvalidatePaymentIntent(providerIntentID)
		return nil, false
	}
	return &intent, true
}

// SetPaymentIntent caches a payment intent with the default TTL.
func SetPaymentIntent(intent *models.PaymentIntent) {
	raw, err := json.Marshal(intent)
	if err != nil {
		log.Printf("[Cache] payment intent marshal failed: %v", err)
		return
	}
	if err := Set(intentKeyPrefix+intent.ProviderIntentID, raw, IntentCacheTTL); err != nil {
		log.Printf("[Cache] payment intent write failed: %v", err)
	}
}

// InvalidatePaymentIntent drops the cached entry.
func InvalidatePaymentIntent(providerIntentID string) {
	if err := Delete(intentKeyPrefix + providerIntentID); err != nil {
		log.Printf("[Cache] payment intent invalidation failed: %v", err)
	}
}
