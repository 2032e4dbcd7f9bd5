package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ int, _ time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

func TestRateLimit(t *testing.T) {
	tests := []struct {
		name    string
		limiter *fakeLimiter
		path    string
		want    int
		checked bool
	}{
		{name: "allowed", limiter: &fakeLimiter{allow: true}, path: "/api/markets", want: http.StatusOK, checked: true},
		{name: "limited", limiter: &fakeLimiter{}, path: "/api/markets", want: http.StatusTooManyRequests, checked: true},
		{name: "fails open", limiter: &fakeLimiter{err: errors.New("redis down")}, path: "/api/markets", want: http.StatusOK, checked: true},
		{name: "health exempt", limiter: &fakeLimiter{}, path: "/api/health", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RateLimit(tt.limiter, 10, time.Minute, nil, discardLogger())(okHandler)
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.checked {
				assert.Equal(t, []string{"api:192.0.2.1"}, tt.limiter.keys, "keyed on the peer, not the header")
			} else {
				assert.Empty(t, tt.limiter.keys)
			}
		})
	}
}

// countingLimiter allows `limit` requests per key.
type countingLimiter struct {
	seen map[string]int
}

func (c *countingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	if c.seen == nil {
		c.seen = make(map[string]int)
	}
	c.seen[key]++
	return c.seen[key] <= limit, nil
}

func TestRateLimitIgnoresRotatedForwardedFor(t *testing.T) {
	h := RateLimit(&countingLimiter{}, 1, time.Minute, nil, discardLogger())(okHandler)

	allowed := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.1.1.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestClientIP(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "192.0.2.10"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		remote  string
		xff     []string
		realIP  string
		trusted []netip.Prefix
		want    string
	}{
		{name: "no trusted proxies uses peer", remote: "198.51.100.9:1", xff: []string{"1.2.3.4"}, want: "198.51.100.9"},
		{name: "untrusted peer ignores header", remote: "198.51.100.9:1", xff: []string{"1.2.3.4"}, trusted: trusted, want: "198.51.100.9"},
		{name: "right-most untrusted hop", remote: "10.0.0.2:1", xff: []string{"6.6.6.6, 203.0.113.7, 10.0.0.5"}, trusted: trusted, want: "203.0.113.7"},
		{name: "multiple header lines", remote: "192.0.2.10:1", xff: []string{"6.6.6.6", "203.0.113.7"}, trusted: trusted, want: "203.0.113.7"},
		{name: "all hops trusted", remote: "10.0.0.2:1", xff: []string{"10.0.0.9, 10.0.0.5"}, trusted: trusted, want: "10.0.0.9"},
		{name: "garbage hop falls back to peer", remote: "10.0.0.2:1", xff: []string{"not-an-ip"}, trusted: trusted, want: "10.0.0.2"},
		{name: "real ip from trusted peer", remote: "10.0.0.2:1", realIP: "203.0.113.8", trusted: trusted, want: "203.0.113.8"},
		{name: "ipv6 peer", remote: "[2001:db8::1]:443", trusted: trusted, want: "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/markets", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, clientIP(req, tt.trusted))
		})
	}
}

func TestParseTrustedProxiesRejectsGarbage(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/8", "nope"})
	assert.Error(t, err)
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://predik.io"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/markets", nil)
	req.Header.Set("Origin", "https://predik.io")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://predik.io", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/markets", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingCapturesStatus(t *testing.T) {
	h := RequestID()(Logging(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
