// Package translation guards a domain.TranslationProvider with a per-call
// timeout and a circuit breaker so a failing provider is not hammered by
// every incoming market request.
package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/predik/predik/internal/domain"
)

// BreakerConfig tunes the breaker.
type BreakerConfig struct {
	Name string
	// MaxFailures is the number of consecutive failures that opens the breaker.
	MaxFailures int
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// CallTimeout bounds each provider call. Zero leaves the caller's context
	// untouched.
	CallTimeout time.Duration
}

// Breaker wraps a provider with gobreaker.
type Breaker struct {
	next        domain.TranslationProvider
	cb          *gobreaker.CircuitBreaker
	callTimeout time.Duration
}

// NewBreaker wraps next.
func NewBreaker(next domain.TranslationProvider, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	maxFailures := uint32(cfg.MaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}
	name := cfg.Name
	if name == "" {
		name = "translation"
	}
	logger = logger.With(slog.String("component", "translation_breaker"))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// The caller giving up says nothing about the provider.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Breaker{next: next, cb: cb, callTimeout: cfg.CallTimeout}
}

// Translate calls the wrapped provider unless the breaker is open, in which
// case it fails fast with an error wrapping domain.ErrProviderUnavailable.
func (b *Breaker) Translate(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResult, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		callCtx := ctx
		if b.callTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, b.callTimeout)
			defer cancel()
		}
		return b.next.Translate(callCtx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.TranslationResult{}, fmt.Errorf("translation: %w: %v", domain.ErrProviderUnavailable, err)
		}
		return domain.TranslationResult{}, err
	}
	return out.(domain.TranslationResult), nil
}

// State reports the breaker state, e.g. for health checks.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Compile-time interface check.
var _ domain.TranslationProvider = (*Breaker)(nil)
