package myriad

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predik/predik/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:      srv.URL,
		APIKey:       "test-key",
		NetworkID:    2741,
		TokenAddress: "0x84A71ccD554Cc1b02749b35d22F684CC8ec987e1",
		MaxPages:     5,
	})
}

func TestListMarketsEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		q := r.URL.Query()
		assert.Equal(t, "2741", q.Get("network_id"))
		assert.Equal(t, "0x84A71ccD554Cc1b02749b35d22F684CC8ec987e1", q.Get("token_address"))
		assert.Equal(t, "open", q.Get("state"))
		assert.Equal(t, "2", q.Get("limit"))
		assert.False(t, q.Has("keyword"), "empty filters are omitted")

		fmt.Fprint(w, `{
			"data": [
				{"id": 1, "slug": "a", "title": "Will A?", "description": "desc a", "volume": "12.5",
				 "outcomes": [{"id": 0, "title": "Yes", "price": 0.6}, {"id": 1, "title": "No", "price": "0.4"}]},
				{"id": 2, "slug": "b", "title": "Will B?", "description": "desc b", "expiresAt": "2026-12-31T00:00:00Z"}
			],
			"pagination": {"page": 1, "limit": 2, "total": 7, "totalPages": 4, "hasNext": true}
		}`)
	}))

	page, err := client.ListMarkets(context.Background(), domain.MarketQuery{State: "open", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)

	a := page.Data[0]
	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, "a", a.Slug)
	assert.Equal(t, 12.5, a.Volume)
	require.Len(t, a.Outcomes, 2)
	assert.Equal(t, 0.4, a.Outcomes[1].Price)

	require.NotNil(t, page.Data[1].ExpiresAt)
	assert.Equal(t, 2026, page.Data[1].ExpiresAt.Year())

	require.NotNil(t, page.Pagination)
	assert.Equal(t, 7, page.Pagination.Total)
	assert.True(t, page.Pagination.HasNext)
}

func TestListMarketsBareArray(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ` [{"id": 5, "slug": "e", "title": "E"}]`)
	}))

	page, err := client.ListMarkets(context.Background(), domain.MarketQuery{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "e", page.Data[0].Slug)
	assert.Nil(t, page.Pagination)
}

func TestListMarketsFetchAllWalksPages(t *testing.T) {
	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		hasNext := page < 3
		fmt.Fprintf(w, `{"data": [{"id": %d, "slug": "m%d"}], "pagination": {"page": %d, "total": 3, "hasNext": %t}}`,
			page, page, page, hasNext)
	}))

	page, err := client.ListMarkets(context.Background(), domain.MarketQuery{FetchAll: true})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, page.Data, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{page.Data[0].Slug, page.Data[1].Slug, page.Data[2].Slug})
	require.NotNil(t, page.Pagination)
	assert.False(t, page.Pagination.HasNext)
}

func TestListMarketsFetchAllStopsAtMaxPages(t *testing.T) {
	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprintf(w, `{"data": [{"id": %d}], "pagination": {"hasNext": true}}`, calls)
	}))

	page, err := client.ListMarkets(context.Background(), domain.MarketQuery{FetchAll: true})
	require.NoError(t, err)
	assert.Equal(t, 5, calls)
	assert.Len(t, page.Data, 5)
}

func TestGetMarketBareAndWrapped(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare", body: `{"id": 42, "slug": "will-boca-defeat-river", "title": "Will Boca defeat River?"}`},
		{name: "wrapped", body: `{"data": {"id": 42, "slug": "will-boca-defeat-river", "title": "Will Boca defeat River?"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/markets/will-boca-defeat-river", r.URL.Path)
				fmt.Fprint(w, tt.body)
			}))

			m, err := client.GetMarket(context.Background(), "will-boca-defeat-river")
			require.NoError(t, err)
			assert.Equal(t, int64(42), m.ID)
			assert.Equal(t, "Will Boca defeat River?", m.Title)
		})
	}
}

func TestGetMarketStatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{name: "not found", status: http.StatusNotFound, sentinel: domain.ErrNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized, sentinel: domain.ErrUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests, sentinel: domain.ErrRateLimited},
		{name: "bad gateway", status: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":"nope"}`)
			}))

			_, err := client.GetMarket(context.Background(), "x")
			require.Error(t, err)

			var statusErr *StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, tt.status, statusErr.StatusCode)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			}
		})
	}
}

func TestHolders(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets/a/holders", r.URL.Path)
		fmt.Fprint(w, `{"data": [
			{"user": "0xabc", "outcomeId": 0, "shares": "10.5"},
			{"address": "0xdef", "outcomeId": 1, "shares": 3}
		]}`)
	}))

	rows, err := client.Holders(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.HolderPosition{Address: "0xabc", OutcomeID: 0, Shares: 10.5}, rows[0])
	assert.Equal(t, domain.HolderPosition{Address: "0xdef", OutcomeID: 1, Shares: 3}, rows[1])
}
