package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/predik/predik/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	List(ctx context.Context, q domain.MarketQuery) (domain.MarketPage, error)
	Get(ctx context.Context, slug string) (domain.Market, error)
	Holders(ctx context.Context, slug string) (domain.HoldersCacheEntry, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets      MarketService
	cacheControl string
	logger       *slog.Logger
}

// NewMarketHandler creates a MarketHandler. cacheControl is sent on every
// successful response; empty disables the header.
func NewMarketHandler(markets MarketService, cacheControl string, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets:      markets,
		cacheControl: cacheControl,
		logger:       logger.With(slog.String("handler", "market")),
	}
}

// ListMarkets returns one page of translated markets, or all of them with
// fetch_all=true.
// GET /api/markets?state&keyword&topics&sort&order&page&limit&fetch_all
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	q := parseMarketQuery(r)

	page, err := h.markets.List(r.Context(), q)
	if err != nil {
		h.fail(w, r, "list markets failed", "", err)
		return
	}
	if page.Data == nil {
		page.Data = []domain.Market{}
	}

	h.setCacheControl(w)
	writeJSON(w, http.StatusOK, page)
}

// GetMarket returns a single translated market.
// GET /api/markets/{slug}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "missing market slug")
		return
	}

	market, err := h.markets.Get(r.Context(), slug)
	if err != nil {
		h.fail(w, r, "get market failed", slug, err)
		return
	}

	h.setCacheControl(w)
	writeJSON(w, http.StatusOK, market)
}

// GetHolders returns the top holders of each outcome of a market.
// GET /api/markets/{slug}/holders
func (h *MarketHandler) GetHolders(w http.ResponseWriter, r *http.Request) {
	slug := pathParam(r, "slug")
	if slug == "" {
		writeError(w, http.StatusBadRequest, "missing market slug")
		return
	}

	entry, err := h.markets.Holders(r.Context(), slug)
	if err != nil {
		h.fail(w, r, "get holders failed", slug, err)
		return
	}

	h.setCacheControl(w)
	writeJSON(w, http.StatusOK, entry)
}

func (h *MarketHandler) setCacheControl(w http.ResponseWriter) {
	if h.cacheControl != "" {
		w.Header().Set("Cache-Control", h.cacheControl)
	}
}

func (h *MarketHandler) fail(w http.ResponseWriter, r *http.Request, msg, slug string, err error) {
	status := statusFor(err)
	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	h.logger.Log(r.Context(), level, msg,
		slog.String("slug", slug),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	writeError(w, status, http.StatusText(status))
}
