package myriad

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/predik/predik/internal/domain"
)

// flexFloat unmarshals from a JSON number or a numeric string, since the API
// sends prices and volumes both ways.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// APIOutcome is an outcome as returned by the market API.
type APIOutcome struct {
	ID     int64     `json:"id"`
	Title  string    `json:"title"`
	Price  flexFloat `json:"price"`
	Shares flexFloat `json:"shares"`
}

// APIMarket is a market as returned by the market API.
type APIMarket struct {
	ID          int64        `json:"id"`
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	State       string       `json:"state"`
	Topics      []string     `json:"topics"`
	ImageURL    string       `json:"imageUrl"`
	NetworkID   int64        `json:"networkId"`
	Liquidity   flexFloat    `json:"liquidity"`
	Volume      flexFloat    `json:"volume"`
	Volume24h   flexFloat    `json:"volume24h"`
	ExpiresAt   string       `json:"expiresAt"`
	Outcomes    []APIOutcome `json:"outcomes"`
}

// ToDomainMarket converts the API representation into a domain.Market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	out := domain.Market{
		ID:          m.ID,
		Slug:        m.Slug,
		Title:       m.Title,
		Description: m.Description,
		State:       domain.MarketState(m.State),
		Topics:      m.Topics,
		ImageURL:    m.ImageURL,
		NetworkID:   m.NetworkID,
		Liquidity:   float64(m.Liquidity),
		Volume:      float64(m.Volume),
		Volume24h:   float64(m.Volume24h),
	}
	if m.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, m.ExpiresAt); err == nil {
			out.ExpiresAt = &t
		}
	}
	if len(m.Outcomes) > 0 {
		out.Outcomes = make([]domain.Outcome, 0, len(m.Outcomes))
		for _, o := range m.Outcomes {
			out.Outcomes = append(out.Outcomes, domain.Outcome{
				ID:     o.ID,
				Title:  o.Title,
				Price:  float64(o.Price),
				Shares: float64(o.Shares),
			})
		}
	}
	return out
}

// APIPagination is the pagination block of list responses.
type APIPagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
}

func (p *APIPagination) toDomain() *domain.Pagination {
	if p == nil {
		return nil
	}
	return &domain.Pagination{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      p.Total,
		TotalPages: p.TotalPages,
		HasNext:    p.HasNext,
	}
}

// APIHolder is one row of the holders endpoint.
type APIHolder struct {
	User      string    `json:"user"`
	Address   string    `json:"address"`
	OutcomeID int64     `json:"outcomeId"`
	Shares    flexFloat `json:"shares"`
}

func (h *APIHolder) toDomain() domain.HolderPosition {
	addr := h.User
	if addr == "" {
		addr = h.Address
	}
	return domain.HolderPosition{
		Address:   addr,
		OutcomeID: h.OutcomeID,
		Shares:    float64(h.Shares),
	}
}

// envelope is the {data, pagination} wrapper used by list endpoints.
type envelope[T any] struct {
	Data       []T            `json:"data"`
	Pagination *APIPagination `json:"pagination"`
}

// decodeList accepts either a {data, pagination} envelope or a bare array.
func decodeList[T any](body []byte) ([]T, *APIPagination, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, err
		}
		return items, nil, nil
	}
	var env envelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, nil, err
	}
	return env.Data, env.Pagination, nil
}
