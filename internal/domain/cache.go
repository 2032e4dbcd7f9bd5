package domain

import (
	"context"
	"time"
)

// HoldersCache stores pre-warmed holders views. Get returns ErrNotFound when
// the entry is absent or expired.
type HoldersCache interface {
	Get(ctx context.Context, slug string) (HoldersCacheEntry, error)
	Set(ctx context.Context, entry HoldersCacheEntry) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
