package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/predik/predik/internal/domain"
)

// HoldersCache implements domain.HoldersCache with one JSON string per market
// slug, expired by Redis.
//
// Key schema:
//
//	{prefix}holders:{slug} - JSON-encoded domain.HoldersCacheEntry
type HoldersCache struct {
	c   *Client
	ttl time.Duration
}

// NewHoldersCache creates a HoldersCache whose entries live for ttl.
func NewHoldersCache(c *Client, ttl time.Duration) *HoldersCache {
	return &HoldersCache{c: c, ttl: ttl}
}

func (hc *HoldersCache) holdersKey(slug string) string { return hc.c.key("holders", slug) }

// Get returns the cached entry for slug or domain.ErrNotFound.
func (hc *HoldersCache) Get(ctx context.Context, slug string) (domain.HoldersCacheEntry, error) {
	data, err := hc.c.rdb.Get(ctx, hc.holdersKey(slug)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.HoldersCacheEntry{}, domain.ErrNotFound
		}
		return domain.HoldersCacheEntry{}, fmt.Errorf("redis: get holders %s: %w", slug, err)
	}

	var entry domain.HoldersCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return domain.HoldersCacheEntry{}, fmt.Errorf("redis: unmarshal holders %s: %w", slug, err)
	}
	return entry, nil
}

// Set stores entry under its slug. Last writer wins.
func (hc *HoldersCache) Set(ctx context.Context, entry domain.HoldersCacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal holders %s: %w", entry.MarketSlug, err)
	}
	if err := hc.c.rdb.Set(ctx, hc.holdersKey(entry.MarketSlug), data, hc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set holders %s: %w", entry.MarketSlug, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.HoldersCache = (*HoldersCache)(nil)
