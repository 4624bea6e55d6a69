package services

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultProgressCacheTTL bounds how long a computed total may be served
// without recomputation. Long enough to absorb a burst of UI queries, short
// enough that a new ledger write is visible almost immediately even without
// explicit invalidation.
const DefaultProgressCacheTTL = 2 * time.Second

// ProgressCache memoizes per-record contribution totals with a short TTL.
// Safe for concurrent use.
type ProgressCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]progressCacheEntry
}

type progressCacheEntry struct {
	totals    map[string]decimal.Decimal
	expiresAt time.Time
}

// NewProgressCache creates a cache with the given TTL; a non-positive TTL
// falls back to the default.
func NewProgressCache(ttl time.Duration) *ProgressCache {
	if ttl <= 0 {
		ttl = DefaultProgressCacheTTL
	}
	return &ProgressCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]progressCacheEntry),
	}
}

// Get returns the cached totals for a record id, if present and fresh.
func (c *ProgressCache) Get(recordID string) (map[string]decimal.Decimal, bool) {
	c.mu.RLock()
	entry, ok := c.entries[recordID]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.totals, true
}

// Put stores freshly computed totals for a record id.
func (c *ProgressCache) Put(recordID string, totals map[string]decimal.Decimal) {
	c.mu.Lock()
	c.entries[recordID] = progressCacheEntry{
		totals:    totals,
		expiresAt: c.now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate drops the cached totals for one record, if any.
func (c *ProgressCache) Invalidate(recordID string) {
	c.mu.Lock()
	delete(c.entries, recordID)
	c.mu.Unlock()
}

// InvalidateAll drops every cached entry. Used when a write can affect the
// totals of every record at once, such as a new exchange rate.
func (c *ProgressCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]progressCacheEntry)
	c.mu.Unlock()
}
