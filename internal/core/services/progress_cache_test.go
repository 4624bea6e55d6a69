package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressCache_ServesWithinTTL(t *testing.T) {
	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cache := NewProgressCache(2 * time.Second)
	cache.now = func() time.Time { return clock }

	totals := map[string]decimal.Decimal{"goal-1": decimal.NewFromInt(100)}
	cache.Put("record-1", totals)

	clock = clock.Add(time.Second)
	got, ok := cache.Get("record-1")
	require.True(t, ok)
	assert.True(t, totals["goal-1"].Equal(got["goal-1"]))
}

func TestProgressCache_ExpiresAfterTTL(t *testing.T) {
	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cache := NewProgressCache(2 * time.Second)
	cache.now = func() time.Time { return clock }

	cache.Put("record-1", map[string]decimal.Decimal{"goal-1": decimal.NewFromInt(100)})

	clock = clock.Add(2*time.Second + time.Millisecond)
	_, ok := cache.Get("record-1")
	assert.False(t, ok)
}

func TestProgressCache_Invalidate(t *testing.T) {
	cache := NewProgressCache(time.Minute)
	cache.Put("record-1", map[string]decimal.Decimal{})
	cache.Put("record-2", map[string]decimal.Decimal{})

	cache.Invalidate("record-1")
	_, ok := cache.Get("record-1")
	assert.False(t, ok)
	_, ok = cache.Get("record-2")
	assert.True(t, ok)

	cache.InvalidateAll()
	_, ok = cache.Get("record-2")
	assert.False(t, ok)
}

func TestProgressCache_MissingKey(t *testing.T) {
	cache := NewProgressCache(0) // non-positive TTL falls back to the default
	assert.Equal(t, DefaultProgressCacheTTL, cache.ttl)

	_, ok := cache.Get("nope")
	assert.False(t, ok)
}
