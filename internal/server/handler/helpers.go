package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/predik/predik/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// httpStatuser is implemented by upstream errors that carry an HTTP status.
type httpStatuser interface {
	HTTPStatus() int
}

// statusFor maps a service error to the response status. Upstream statuses
// are passed through; anything unrecognised is a 500.
func statusFor(err error) int {
	var hs httpStatuser
	switch {
	case errors.As(err, &hs) && hs.HTTPStatus() >= 400:
		return hs.HTTPStatus()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseMarketQuery extracts the list filters from the query string. Unknown
// or malformed numeric values are ignored so the upstream default applies.
func parseMarketQuery(r *http.Request) domain.MarketQuery {
	q := r.URL.Query()

	mq := domain.MarketQuery{
		State:   q.Get("state"),
		Keyword: q.Get("keyword"),
		Topics:  q.Get("topics"),
		Sort:    q.Get("sort"),
		Order:   q.Get("order"),
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			mq.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			mq.Limit = min(n, 100)
		}
	}
	if v := q.Get("fetch_all"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		mq.FetchAll = err == nil && b
	}
	return mq
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
