// Package pagecache holds the pages fetched during one selection session.
//
// Pages are immutable once fetched, so the cache never evicts and never
// replaces an entry: the first successful fetch of a page number is the one
// every later reader sees.
package pagecache

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pageCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_page_cache_hits_total",
		Help: "Total number of page lookups answered from the session page cache",
	})

	pageCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_page_cache_misses_total",
		Help: "Total number of page lookups that required a fetch",
	})

	pageCachePages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artic_page_cache_pages",
		Help: "Number of pages held by live session page caches",
	})
)

// Cache maps page numbers to fetched pages. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex // guards released and gauge accounting
	items    *gocache.Cache
	released bool
}

// New creates an empty cache. Entries never expire and no janitor runs.
func New() *Cache {
	return &Cache{items: gocache.New(gocache.NoExpiration, 0)}
}

func key(n int) string {
	return strconv.Itoa(n)
}

// Get returns the cached page n.
func (c *Cache) Get(n int) (artwork.Page, bool) {
	if x, found := c.items.Get(key(n)); found {
		return x.(artwork.Page), true
	}
	return artwork.Page{}, false
}

// Has reports whether page n is cached.
func (c *Cache) Has(n int) bool {
	_, ok := c.items.Get(key(n))
	return ok
}

// Put stores p under p.Number. It returns false and leaves the cache
// unchanged when that page number is already present or the cache has been
// released.
func (c *Cache) Put(p artwork.Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return false
	}
	if err := c.items.Add(key(p.Number), p, gocache.NoExpiration); err != nil {
		return false
	}
	pageCachePages.Inc()
	return true
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Pages returns the cached page numbers in ascending order.
func (c *Cache) Pages() []int {
	items := c.items.Items()
	nums := make([]int, 0, len(items))
	for k := range items {
		if n, err := strconv.Atoi(k); err == nil {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	return nums
}

// GetOrFetch returns page n from the cache, fetching and caching it from src
// on a miss. The bool reports a cache hit. Failed fetches are not cached.
func (c *Cache) GetOrFetch(ctx context.Context, src artwork.PageSource, n int) (artwork.Page, bool, error) {
	if p, ok := c.Get(n); ok {
		pageCacheHits.Inc()
		return p, true, nil
	}
	pageCacheMisses.Inc()

	p, err := src.FetchPage(ctx, n)
	if err != nil {
		return artwork.Page{}, false, fmt.Errorf("fetch page %d: %w", n, err)
	}
	p.Number = n
	if !c.Put(p) {
		// a concurrent fetch landed first, or the cache was released
		if existing, ok := c.Get(n); ok {
			return existing, false, nil
		}
	}
	return p, false, nil
}

// Release drops the cache's contribution to the live pages gauge and empties
// it. Further calls are no-ops.
func (c *Cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.released = true
	pageCachePages.Sub(float64(c.items.ItemCount()))
	c.items.Flush()
}
