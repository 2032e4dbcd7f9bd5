package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/predik/predik/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is a TranslationStore with the same uniqueness semantics as the
// market_translations table.
type memStore struct {
	mu     sync.Mutex
	bySlug map[string]domain.MarketTranslation

	getCalls    atomic.Int32
	listCalls   atomic.Int32
	insertCalls atomic.Int32

	// insertErr, when set, is returned by every Insert without storing.
	insertErr error
}

func newMemStore(rows ...domain.MarketTranslation) *memStore {
	s := &memStore{bySlug: make(map[string]domain.MarketTranslation)}
	for _, r := range rows {
		s.bySlug[r.MarketSlug] = r
	}
	return s
}

func (s *memStore) GetBySlug(_ context.Context, slug string) (domain.MarketTranslation, error) {
	s.getCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.bySlug[slug]
	if !ok {
		return domain.MarketTranslation{}, fmt.Errorf("memstore: %s: %w", slug, domain.ErrNotFound)
	}
	return row, nil
}

func (s *memStore) ListByMarketIDs(_ context.Context, ids []int64) ([]domain.MarketTranslation, error) {
	s.listCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.MarketTranslation
	for _, r := range s.bySlug {
		if want[r.MarketID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, t domain.MarketTranslation) error {
	s.insertCalls.Add(1)
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bySlug[t.MarketSlug]; ok {
		return fmt.Errorf("memstore: %s: %w", t.MarketSlug, domain.ErrAlreadyExists)
	}
	t.CreatedAt = time.Now()
	s.bySlug[t.MarketSlug] = t
	return nil
}

func (s *memStore) rows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bySlug)
}

// countingProvider prefixes titles with "es-<n>:" where n is the call number,
// so racing calls produce distinguishable results.
type countingProvider struct {
	calls atomic.Int32
	err   error
	// barrier, when set, holds every call until it is closed.
	barrier chan struct{}
}

func (p *countingProvider) Translate(ctx context.Context, req domain.TranslationRequest) (domain.TranslationResult, error) {
	n := p.calls.Add(1)
	if p.barrier != nil {
		select {
		case <-p.barrier:
		case <-ctx.Done():
			return domain.TranslationResult{}, ctx.Err()
		}
	}
	if p.err != nil {
		return domain.TranslationResult{}, p.err
	}
	return domain.TranslationResult{
		Title:       fmt.Sprintf("es-%d:%s", n, req.Title),
		Description: fmt.Sprintf("es-%d:%s", n, req.Description),
	}, nil
}

var errProvider = errors.New("provider exploded")
