package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkgrove/ordercore/app/models"
	"github.com/linkgrove/ordercore/internal/pkg/env"
)

func newTestCache(t *testing.T) {
	t.Helper()

	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")
	testClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       14,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := testClient.Ping(pingCtx).Err(); err != nil {
		_ = testClient.Close()
		t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", err)
	}

	require.NoError(t, testClient.FlushDB(context.Background()).Err())
	previous := client
	SetClient(testClient)
	t.Cleanup(func() {
		_ = testClient.FlushDB(context.Background()).Err()
		_ = testClient.Close()
		SetClient(previous)
	})
}

func TestPaymentIntentRoundTrip(t *testing.T) {
	newTestCache(t)

	_, ok := GetPaymentIntent("pi_missing")
	assert.False(t, ok)

	SetPaymentIntent(&models.PaymentIntent{
		ID:               3,
		ProviderIntentID: "pi_cached",
		OrderID:          42,
		Status:           models.PaymentIntentStatusSucceeded,
		AmountCents:      150000,
		Currency:         "usd",
	})

	cached, ok := GetPaymentIntent("pi_cached")
	require.True(t, ok)
	assert.Equal(t, uint(42), cached.OrderID)
	assert.Equal(t, models.PaymentIntentStatusSucceeded, cached.Status)
	assert.Equal(t, int64(150000), cached.AmountCents)
}

func TestPaymentIntentInvalidate(t *testing.T) {
	newTestCache(t)

	SetPaymentIntent(&models.PaymentIntent{ProviderIntentID: "pi_gone", OrderID: 7})
	InvalidatePaymentIntent("pi_gone")

	_, ok := GetPaymentIntent("pi_gone")
	assert.False(t, ok)
}

func TestPaymentIntentCorruptEntryIsAMiss(t *testing.T) {
	newTestCache(t)

	require.NoError(t, Set(intentKeyPrefix+"pi_bad", "{not json", IntentCacheTTL))

	_, ok := GetPaymentIntent("pi_bad")
	assert.False(t, ok)

	// The corrupt entry was dropped, not left to fail on every read.
	_, err := Get(intentKeyPrefix + "pi_bad")
	assert.ErrorIs(t, err, redis.Nil)
}
