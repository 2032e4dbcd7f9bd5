package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/predik/predik/internal/domain"
)

// MarketSource is the upstream market API.
type MarketSource interface {
	ListMarkets(ctx context.Context, q domain.MarketQuery) (domain.MarketPage, error)
	GetMarket(ctx context.Context, slug string) (domain.Market, error)
}

// MarketService serves translated markets from the upstream market API and
// keeps the holders cache warm for markets that are being viewed.
type MarketService struct {
	source       MarketSource
	translations *TranslationService
	holders      *HoldersService
	logger       *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	source MarketSource,
	translations *TranslationService,
	holders *HoldersService,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		source:       source,
		translations: translations,
		holders:      holders,
		logger:       logger.With(slog.String("component", "market_service")),
	}
}

// List returns one page of markets, or every page when q.FetchAll is set,
// with target-language fields filled in.
func (s *MarketService) List(ctx context.Context, q domain.MarketQuery) (domain.MarketPage, error) {
	page, err := s.source.ListMarkets(ctx, q)
	if err != nil {
		return domain.MarketPage{}, fmt.Errorf("market_service: list markets: %w", err)
	}

	translated, err := s.translations.TranslateBulk(ctx, page.Data)
	if err != nil {
		return domain.MarketPage{}, fmt.Errorf("market_service: translate markets: %w", err)
	}
	page.Data = translated
	return page, nil
}

// Get returns a single translated market and schedules a background holders
// pre-warm for it.
func (s *MarketService) Get(ctx context.Context, slug string) (domain.Market, error) {
	m, err := s.source.GetMarket(ctx, slug)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get market %q: %w", slug, err)
	}

	m, err = s.translations.Translate(ctx, m)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: translate market %q: %w", slug, err)
	}

	s.holders.Prewarm(ctx, m)
	return m, nil
}

// Holders returns the per-outcome top holders of the market identified by
// slug.
func (s *MarketService) Holders(ctx context.Context, slug string) (domain.HoldersCacheEntry, error) {
	if entry, ok := s.holders.Cached(ctx, slug); ok {
		return entry, nil
	}

	m, err := s.source.GetMarket(ctx, slug)
	if err != nil {
		return domain.HoldersCacheEntry{}, fmt.Errorf("market_service: get market %q: %w", slug, err)
	}

	entry, err := s.holders.Holders(ctx, m)
	if err != nil {
		return domain.HoldersCacheEntry{}, fmt.Errorf("market_service: holders %q: %w", slug, err)
	}
	return entry, nil
}
