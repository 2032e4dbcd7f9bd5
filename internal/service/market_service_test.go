package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predik/predik/internal/cache/memory"
	"github.com/predik/predik/internal/domain"
)

type stubMarkets struct {
	markets map[string]domain.Market
	list    domain.MarketPage
	queries []domain.MarketQuery
}

func (s *stubMarkets) ListMarkets(_ context.Context, q domain.MarketQuery) (domain.MarketPage, error) {
	s.queries = append(s.queries, q)
	return s.list, nil
}

func (s *stubMarkets) GetMarket(_ context.Context, slug string) (domain.Market, error) {
	m, ok := s.markets[slug]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func newTestMarketService(t *testing.T, src *stubMarkets, holders HoldersSource) (*MarketService, *memStore, *HoldersService) {
	t.Helper()
	store := newMemStore()
	translations := newTestTranslationService(t, store, &countingProvider{}, false)
	hs := NewHoldersService(holders, memory.NewHoldersCache(time.Minute, 100), time.Second, discardLogger())
	t.Cleanup(hs.Wait)
	return NewMarketService(src, translations, hs, discardLogger()), store, hs
}

func TestMarketServiceGetTranslatesAndPrewarms(t *testing.T) {
	src := &stubMarkets{markets: map[string]domain.Market{boca.Slug: boca}}
	holders := &stubHolders{positions: []domain.HolderPosition{{Address: "0xabc", Shares: 1}}}
	svc, store, hs := newTestMarketService(t, src, holders)

	got, err := svc.Get(context.Background(), boca.Slug)
	require.NoError(t, err)
	assert.Equal(t, "es-1:Will Boca defeat River?", got.TitleEs)
	assert.Equal(t, 1, store.rows())

	hs.Wait()
	assert.Equal(t, int32(1), holders.calls.Load())

	entry, err := svc.Holders(context.Background(), boca.Slug)
	require.NoError(t, err)
	assert.Equal(t, boca.Slug, entry.MarketSlug)
	assert.Equal(t, int32(1), holders.calls.Load(), "holders served from the warmed cache")
}

func TestMarketServiceGetNotFound(t *testing.T) {
	svc, _, _ := newTestMarketService(t, &stubMarkets{}, &stubHolders{})

	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarketServiceListTranslatesPage(t *testing.T) {
	src := &stubMarkets{list: domain.MarketPage{
		Data: []domain.Market{
			{ID: 1, Slug: "a", Title: "Will A?"},
			{ID: 2, Slug: "b", Title: "Will B?"},
		},
		Pagination: &domain.Pagination{Page: 1, Limit: 2, Total: 2},
	}}
	svc, _, _ := newTestMarketService(t, src, &stubHolders{})

	q := domain.MarketQuery{State: "open", Limit: 2}
	page, err := svc.List(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "a", page.Data[0].Slug)
	assert.NotEmpty(t, page.Data[0].TitleEs)
	assert.NotEmpty(t, page.Data[1].TitleEs)
	assert.Equal(t, 2, page.Pagination.Total)
	assert.Equal(t, []domain.MarketQuery{q}, src.queries)
}
