package domain

import "time"

// Holder is a single address holding shares of an outcome.
type Holder struct {
	Address string  `json:"address"`
	Shares  float64 `json:"shares"`
}

// OutcomeHolders groups the top holders of one outcome.
type OutcomeHolders struct {
	OutcomeID    int64    `json:"outcomeId"`
	OutcomeTitle string   `json:"outcomeTitle"`
	Holders      []Holder `json:"holders"`
}

// HoldersCacheEntry is the cached holders view of a market, keyed by slug.
type HoldersCacheEntry struct {
	MarketSlug string           `json:"marketSlug"`
	MarketID   int64            `json:"marketId"`
	Outcomes   []OutcomeHolders `json:"outcomes"`
	CachedAt   time.Time        `json:"cachedAt"`
}

// HolderPosition is one raw row of the market API holders endpoint.
type HolderPosition struct {
	Address   string
	OutcomeID int64
	Shares    float64
}
