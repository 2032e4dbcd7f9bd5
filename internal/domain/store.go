package domain

import (
	"context"
)

// TranslationStore persists market translations. Uniqueness of MarketSlug is
// enforced by the store itself; Insert reports a conflicting row with an error
// wrapping ErrAlreadyExists.
type TranslationStore interface {
	GetBySlug(ctx context.Context, slug string) (MarketTranslation, error)
	ListByMarketIDs(ctx context.Context, ids []int64) ([]MarketTranslation, error)
	Insert(ctx context.Context, t MarketTranslation) error
}
