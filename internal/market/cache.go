package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mjhoover1/Intelligent-Investing/internal/models"
	"github.com/mjhoover1/Intelligent-Investing/pkg/logger"
)

// SnapshotCache caches market snapshots with a freshness TTL. Concurrent
// requests for the same symbol share one upstream fetch. When a refresh
// fails, the last known snapshot is served marked stale; with no prior
// snapshot the error surfaces as ErrSnapshotUnavailable.
//
// The cache is ephemeral. Losing it only costs extra fetches.
type SnapshotCache struct {
	provider Provider
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]*models.MarketSnapshot

	group singleflight.Group
}

// NewSnapshotCache creates a cache in front of a provider
func NewSnapshotCache(provider Provider, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		provider: provider,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		entries:  make(map[string]*models.MarketSnapshot),
	}
}

// SetClock overrides the cache's time source (for testing)
func (c *SnapshotCache) SetClock(now func() time.Time) {
	c.now = now
}

// Get returns a snapshot for the symbol, serving from cache while fresh
func (c *SnapshotCache) Get(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	if cached := c.fresh(symbol); cached != nil {
		logger.SnapshotFetches.WithLabelValues("hit").Inc()
		return cached, nil
	}

	// Collapse concurrent refreshes of the same symbol into one fetch
	v, err, _ := c.group.Do(symbol, func() (interface{}, error) {
		if cached := c.fresh(symbol); cached != nil {
			return cached, nil
		}
		return c.refresh(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.MarketSnapshot), nil
}

// fresh returns the cached snapshot if it is within the TTL
func (c *SnapshotCache) fresh(symbol string) *models.MarketSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok {
		return nil
	}
	if c.now().Sub(entry.FetchedAt) > c.ttl {
		return nil
	}
	return entry
}

func (c *SnapshotCache) refresh(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	snapshot, err := c.provider.FetchSnapshot(ctx, symbol)
	if err == nil {
		logger.SnapshotFetches.WithLabelValues("miss").Inc()
		c.mu.Lock()
		c.entries[symbol] = snapshot
		c.mu.Unlock()
		return snapshot, nil
	}

	// Fetch failed: fall back to the last known snapshot if we have one
	c.mu.RLock()
	prev, ok := c.entries[symbol]
	c.mu.RUnlock()
	if ok {
		logger.SnapshotFetches.WithLabelValues("stale").Inc()
		logger.Warn("serving stale market snapshot",
			logger.String("symbol", symbol),
			logger.Time("fetched_at", prev.FetchedAt),
			logger.ErrorField(err))
		stale := *prev
		stale.Stale = true
		return &stale, nil
	}

	logger.SnapshotFetches.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("%w: %s: %v", models.ErrSnapshotUnavailable, symbol, err)
}

// Len returns the number of cached symbols
func (c *SnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cycleResult memoizes one symbol's outcome inside a cycle view
type cycleResult struct {
	snapshot *models.MarketSnapshot
	err      error
}

// CycleView gives one evaluation cycle a consistent view of the market.
// The first read per symbol goes through the cache; every later read in
// the same cycle returns that exact result, including failures, so all
// rules sharing a symbol observe the same data.
type CycleView struct {
	cache *SnapshotCache

	mu      sync.Mutex
	results map[string]*cycleResult
}

// BeginCycle starts a new consistent view over the cache
func (c *SnapshotCache) BeginCycle() *CycleView {
	return &CycleView{
		cache:   c,
		results: make(map[string]*cycleResult),
	}
}

// Get returns the cycle's pinned snapshot for the symbol
func (v *CycleView) Get(ctx context.Context, symbol string) (*models.MarketSnapshot, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if res, ok := v.results[symbol]; ok {
		return res.snapshot, res.err
	}

	snapshot, err := v.cache.Get(ctx, symbol)
	v.results[symbol] = &cycleResult{snapshot: snapshot, err: err}
	return snapshot, err
}
