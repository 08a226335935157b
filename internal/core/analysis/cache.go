package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/flipwatch/flipwatch/internal/adapters/outbound/flipapi"
	"github.com/flipwatch/flipwatch/internal/telemetry"
)

// cacheTTL bounds how stale a served analysis may be.
const cacheTTL = time.Minute

// Fetcher is satisfied by *flipapi.Client.
type Fetcher interface {
	FetchAnalysis(ctx context.Context, itemID int) (*flipapi.ItemAnalysis, error)
}

type entry struct {
	analysis *flipapi.ItemAnalysis
	fetched  time.Time
}

// Cache holds per-item analyses with a short TTL. It is read from the
// tick path (overlay lookups) and written from background HTTP
// completions, so the map is mutex-guarded; concurrent fetches for the
// same item coalesce through the singleflight group.
type Cache struct {
	fetcher Fetcher

	mu      sync.Mutex
	entries map[int]entry

	group singleflight.Group

	now func() time.Time
}

func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		entries: make(map[int]entry),
		now:     time.Now,
	}
}

// Lookup returns the cached analysis for an item, nil when absent or
// expired. Never blocks on the network.
func (c *Cache) Lookup(itemID int) *flipapi.ItemAnalysis {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[itemID]
	if !ok || c.now().Sub(e.fetched) > cacheTTL {
		return nil
	}
	return e.analysis
}

// Get returns the cached analysis, fetching on a miss. At most one fetch
// per item is in flight; concurrent callers share its result.
func (c *Cache) Get(ctx context.Context, itemID int) (*flipapi.ItemAnalysis, error) {
	if a := c.Lookup(itemID); a != nil {
		return a, nil
	}

	result, err, _ := c.group.Do(fmt.Sprint(itemID), func() (any, error) {
		analysis, err := c.fetcher.FetchAnalysis(ctx, itemID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[itemID] = entry{analysis: analysis, fetched: c.now()}
		c.mu.Unlock()
		return analysis, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*flipapi.ItemAnalysis), nil
}

// Warm fetches analyses for the given items in the background, skipping
// ones already cached. Used when the inventory changes.
func (c *Cache) Warm(ctx context.Context, itemIDs []int) {
	for _, id := range itemIDs {
		if c.Lookup(id) != nil {
			continue
		}
		go func(itemID int) {
			if _, err := c.Get(ctx, itemID); err != nil {
				telemetry.Debugf("analysis: warm fetch for item %d: %v", itemID, err)
			}
		}(id)
	}
}

// Retain drops cached entries for items no longer present, keeping the
// cache bounded by what the player actually holds.
func (c *Cache) Retain(itemIDs []int) {
	keep := make(map[int]bool, len(itemIDs))
	for _, id := range itemIDs {
		keep[id] = true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.entries {
		if !keep[id] {
			delete(c.entries, id)
		}
	}
}

// Invalidate removes one item from the cache.
func (c *Cache) Invalidate(itemID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, itemID)
}

// Len reports the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
