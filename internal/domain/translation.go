package domain

import "time"

// MarketTranslation is the persisted translation of one market. There is at
// most one row per MarketSlug; rows are never updated in place.
type MarketTranslation struct {
	MarketID          int64
	MarketSlug        string
	TitleSource       string
	TitleTarget       string
	DescriptionSource string
	DescriptionTarget string
	CreatedAt         time.Time
}

// TranslationRequest is the source-language text sent to a provider.
type TranslationRequest struct {
	Title       string
	Description string
}

// TranslationResult is the provider's target-language output.
type TranslationResult struct {
	Title       string
	Description string
}
