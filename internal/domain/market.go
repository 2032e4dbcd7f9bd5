package domain

import "time"

// MarketState is the lifecycle state reported by the market API.
type MarketState string

const (
	MarketStateOpen     MarketState = "open"
	MarketStateClosed   MarketState = "closed"
	MarketStateResolved MarketState = "resolved"
)

// Outcome is one possible resolution of a market.
type Outcome struct {
	ID     int64   `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Shares float64 `json:"shares,omitempty"`
}

// Market is a prediction market as exposed by the Myriad API, augmented with
// target-language presentation fields.
type Market struct {
	ID          int64       `json:"id"`
	Slug        string      `json:"slug"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	State       MarketState `json:"state,omitempty"`
	Topics      []string    `json:"topics,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
	NetworkID   int64       `json:"networkId,omitempty"`
	Liquidity   float64     `json:"liquidity,omitempty"`
	Volume      float64     `json:"volume,omitempty"`
	Volume24h   float64     `json:"volume24h,omitempty"`
	ExpiresAt   *time.Time  `json:"expiresAt,omitempty"`
	Outcomes    []Outcome   `json:"outcomes,omitempty"`

	TitleEs       string `json:"titleEs"`
	DescriptionEs string `json:"descriptionEs"`
}

// WithTranslation returns a copy of m carrying the target-language fields of t.
func (m Market) WithTranslation(t MarketTranslation) Market {
	m.TitleEs = t.TitleTarget
	m.DescriptionEs = t.DescriptionTarget
	return m
}

// MarketQuery holds the filters accepted by the market list endpoint.
type MarketQuery struct {
	State    string
	Keyword  string
	Topics   string
	Sort     string
	Order    string
	Page     int
	Limit    int
	FetchAll bool
}

// Pagination mirrors the pagination block returned by the market API.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
}

// MarketPage is one page of markets plus its pagination metadata.
type MarketPage struct {
	Data       []Market    `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}
