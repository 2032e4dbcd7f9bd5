// Package memory implements process-local domain caches.
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/predik/predik/internal/domain"
)

type holdersItem struct {
	entry     domain.HoldersCacheEntry
	expiresAt time.Time
}

// HoldersCache is an in-process domain.HoldersCache bounded by a TTL and a
// maximum number of entries. Writes are last-writer-wins.
type HoldersCache struct {
	items      *xsync.Map[string, holdersItem]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

// NewHoldersCache creates a cache whose entries expire after ttl and which
// never holds more than maxEntries entries.
func NewHoldersCache(ttl time.Duration, maxEntries int) *HoldersCache {
	return &HoldersCache{
		items:      xsync.NewMap[string, holdersItem](),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the entry for slug, or domain.ErrNotFound when it is absent or
// expired.
func (c *HoldersCache) Get(_ context.Context, slug string) (domain.HoldersCacheEntry, error) {
	item, ok := c.items.Load(slug)
	if !ok {
		return domain.HoldersCacheEntry{}, domain.ErrNotFound
	}
	if now := c.now(); !now.Before(item.expiresAt) {
		c.deleteIfExpired(slug, now)
		return domain.HoldersCacheEntry{}, domain.ErrNotFound
	}
	return item.entry, nil
}

// Set stores entry under its slug. When the cache grows past its bound the
// entries closest to expiry are evicted until it is back at the low-water
// mark, so the scan runs once per batch of inserts rather than on each one.
func (c *HoldersCache) Set(_ context.Context, entry domain.HoldersCacheEntry) error {
	c.items.Store(entry.MarketSlug, holdersItem{
		entry:     entry,
		expiresAt: c.now().Add(c.ttl),
	})
	if size := c.items.Size(); size > c.maxEntries {
		c.evictOldest(size - c.lowWater())
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *HoldersCache) Len() int {
	return c.items.Size()
}

// Sweep removes expired entries and trims the cache to its bound. It returns
// the number of entries removed.
func (c *HoldersCache) Sweep() int {
	now := c.now()
	removed := 0
	c.items.Range(func(slug string, item holdersItem) bool {
		if !now.Before(item.expiresAt) && c.deleteIfExpired(slug, now) {
			removed++
		}
		return true
	})
	if size := c.items.Size(); size > c.maxEntries {
		removed += c.evictOldest(size - c.lowWater())
	}
	return removed
}

// lowWater is the size eviction trims the cache down to.
func (c *HoldersCache) lowWater() int {
	return c.maxEntries * 9 / 10
}

// deleteIfExpired removes slug only if the stored entry is still expired at
// now, so an entry refreshed concurrently survives.
func (c *HoldersCache) deleteIfExpired(slug string, now time.Time) bool {
	deleted := false
	c.items.Compute(slug, func(old holdersItem, loaded bool) (holdersItem, xsync.ComputeOp) {
		if !loaded || now.Before(old.expiresAt) {
			return old, xsync.CancelOp
		}
		deleted = true
		return old, xsync.DeleteOp
	})
	return deleted
}

// deleteIfUnchanged removes slug only if it still expires at expiresAt.
func (c *HoldersCache) deleteIfUnchanged(slug string, expiresAt time.Time) bool {
	deleted := false
	c.items.Compute(slug, func(old holdersItem, loaded bool) (holdersItem, xsync.ComputeOp) {
		if !loaded || !old.expiresAt.Equal(expiresAt) {
			return old, xsync.CancelOp
		}
		deleted = true
		return old, xsync.DeleteOp
	})
	return deleted
}

// evictOldest deletes up to n entries closest to expiry. Entries rewritten
// since the scan are kept.
func (c *HoldersCache) evictOldest(n int) int {
	type candidate struct {
		slug      string
		expiresAt time.Time
	}
	var all []candidate
	c.items.Range(func(slug string, item holdersItem) bool {
		all = append(all, candidate{slug: slug, expiresAt: item.expiresAt})
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		return all[i].expiresAt.Before(all[j].expiresAt)
	})
	if n > len(all) {
		n = len(all)
	}
	evicted := 0
	for _, cand := range all[:n] {
		if c.deleteIfUnchanged(cand.slug, cand.expiresAt) {
			evicted++
		}
	}
	return evicted
}

// Compile-time interface check.
var _ domain.HoldersCache = (*HoldersCache)(nil)
