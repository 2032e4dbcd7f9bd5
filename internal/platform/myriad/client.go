// Package myriad is the REST client for the Myriad Protocol market API, which
// serves market listings, market detail and outcome holders.
package myriad

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/predik/predik/internal/domain"
)

// Config holds the API endpoint, credentials and the filters every list
// request carries.
type Config struct {
	BaseURL      string
	APIKey       string
	NetworkID    int
	TokenAddress string
	Timeout      time.Duration
	// MaxPages bounds fetch_all walks.
	MaxPages int
}

// Client is the market API client. It is safe for concurrent use.
type Client struct {
	baseURL      string
	apiKey       string
	networkID    int
	tokenAddress string
	maxPages     int
	httpClient   *http.Client
}

// NewClient creates a market API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 20
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		networkID:    cfg.NetworkID,
		tokenAddress: cfg.TokenAddress,
		maxPages:     maxPages,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListMarkets returns one page of markets matching q. With q.FetchAll it walks
// pages starting at q.Page until the API reports no next page or MaxPages is
// reached, and returns them as a single page.
func (c *Client) ListMarkets(ctx context.Context, q domain.MarketQuery) (domain.MarketPage, error) {
	if !q.FetchAll {
		markets, pag, err := c.listPage(ctx, q)
		if err != nil {
			return domain.MarketPage{}, err
		}
		return domain.MarketPage{Data: markets, Pagination: pag.toDomain()}, nil
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	var all []domain.Market
	var last *APIPagination
	for i := 0; i < c.maxPages; i++ {
		q.Page = page
		markets, pag, err := c.listPage(ctx, q)
		if err != nil {
			return domain.MarketPage{}, err
		}
		all = append(all, markets...)
		last = pag
		if pag == nil || !pag.HasNext || len(markets) == 0 {
			break
		}
		page++
	}

	out := domain.MarketPage{Data: all}
	if last != nil {
		out.Pagination = &domain.Pagination{
			Page:       1,
			Limit:      len(all),
			Total:      last.Total,
			TotalPages: 1,
			HasNext:    last.HasNext,
		}
	}
	return out, nil
}

func (c *Client) listPage(ctx context.Context, q domain.MarketQuery) ([]domain.Market, *APIPagination, error) {
	path := "/markets?" + c.listParams(q).Encode()

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("myriad: list markets: %w", err)
	}

	apiMarkets, pag, err := decodeList[APIMarket](body)
	if err != nil {
		return nil, nil, fmt.Errorf("myriad: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToDomainMarket())
	}
	return markets, pag, nil
}

// listParams builds the query string for a list request. Empty filters are
// omitted; network and token come from configuration.
func (c *Client) listParams(q domain.MarketQuery) url.Values {
	params := url.Values{}
	if c.networkID > 0 {
		params.Set("network_id", strconv.Itoa(c.networkID))
	}
	if c.tokenAddress != "" {
		params.Set("token_address", c.tokenAddress)
	}
	setNonEmpty(params, "state", q.State)
	setNonEmpty(params, "keyword", q.Keyword)
	setNonEmpty(params, "topics", q.Topics)
	setNonEmpty(params, "sort", q.Sort)
	setNonEmpty(params, "order", q.Order)
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}

func setNonEmpty(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// GetMarket returns a single market by slug.
func (c *Client) GetMarket(ctx context.Context, slug string) (domain.Market, error) {
	path := "/markets/" + url.PathEscape(slug)
	if c.networkID > 0 {
		path += "?network_id=" + strconv.Itoa(c.networkID)
	}

	body, err := c.doGet(ctx, path)
	if err != nil {
		return domain.Market{}, fmt.Errorf("myriad: get market %s: %w", slug, err)
	}

	var wrapped struct {
		Data *APIMarket `json:"data"`
	}
	var apiMarket APIMarket
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Data != nil {
		apiMarket = *wrapped.Data
	} else if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.Market{}, fmt.Errorf("myriad: decode market %s: %w", slug, err)
	}
	if apiMarket.Slug == "" && apiMarket.ID == 0 {
		return domain.Market{}, fmt.Errorf("myriad: %w: slug=%s", domain.ErrNotFound, slug)
	}

	return apiMarket.ToDomainMarket(), nil
}

// Holders returns the raw holder positions of a market.
func (c *Client) Holders(ctx context.Context, slug string) ([]domain.HolderPosition, error) {
	path := "/markets/" + url.PathEscape(slug) + "/holders"
	if c.networkID > 0 {
		path += "?network_id=" + strconv.Itoa(c.networkID)
	}

	body, err := c.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("myriad: get holders %s: %w", slug, err)
	}

	rows, _, err := decodeList[APIHolder](body)
	if err != nil {
		return nil, fmt.Errorf("myriad: decode holders %s: %w", slug, err)
	}

	out := make([]domain.HolderPosition, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an authenticated GET request and returns the body of a 2xx
// response.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
