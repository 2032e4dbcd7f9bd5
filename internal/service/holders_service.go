package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"

	"github.com/predik/predik/internal/domain"
)

// HoldersSource returns the raw holder positions of a market.
type HoldersSource interface {
	Holders(ctx context.Context, slug string) ([]domain.HolderPosition, error)
}

// HoldersService keeps a cache of per-outcome top holders. Market detail
// requests pre-warm it in the background; the holders route reads through it.
type HoldersService struct {
	source  HoldersSource
	cache   domain.HoldersCache
	timeout time.Duration
	logger  *slog.Logger

	flight singleflight.Group
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewHoldersService creates a HoldersService. fetchTimeout bounds every
// upstream holders fetch, including background ones.
func NewHoldersService(source HoldersSource, cache domain.HoldersCache, fetchTimeout time.Duration, logger *slog.Logger) *HoldersService {
	if fetchTimeout <= 0 {
		fetchTimeout = 15 * time.Second
	}
	return &HoldersService{
		source:  source,
		cache:   cache,
		timeout: fetchTimeout,
		logger:  logger.With(slog.String("component", "holders_service")),
		now:     time.Now,
	}
}

// Prewarm populates the cache for m in the background and returns
// immediately. The task outlives ctx's cancellation. Failures are logged and
// never reported to the caller. After Close it does nothing.
func (s *HoldersService) Prewarm(ctx context.Context, m domain.Market) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "holders prewarm skipped after close",
			slog.String("slug", m.Slug),
		)
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("holders prewarm panicked",
					slog.String("slug", m.Slug),
					slog.Any("panic", r),
				)
			}
		}()

		if _, err := s.cache.Get(bg, m.Slug); err == nil {
			return
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("holders cache read failed",
				slog.String("slug", m.Slug),
				slog.String("error", err.Error()),
			)
		}

		if _, err := s.load(bg, m); err != nil {
			s.logger.Warn("holders prewarm failed",
				slog.String("slug", m.Slug),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Holders returns the cached holders of m, fetching and caching them on a
// miss.
func (s *HoldersService) Holders(ctx context.Context, m domain.Market) (domain.HoldersCacheEntry, error) {
	entry, err := s.cache.Get(ctx, m.Slug)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "holders cache read failed",
			slog.String("slug", m.Slug),
			slog.String("error", err.Error()),
		)
	}
	return s.load(ctx, m)
}

// Cached returns the cached holders for slug without touching the upstream.
func (s *HoldersService) Cached(ctx context.Context, slug string) (domain.HoldersCacheEntry, bool) {
	entry, err := s.cache.Get(ctx, slug)
	return entry, err == nil
}

// Wait blocks until every background pre-warm started so far has finished.
// Callers must not Prewarm concurrently with Wait; use Close on shutdown.
func (s *HoldersService) Wait() {
	s.wg.Wait()
}

// Close stops accepting pre-warms and waits for the running ones.
func (s *HoldersService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

// load fetches holders once per slug at a time. The shared fetch is detached
// from ctx so one caller giving up does not fail the others.
func (s *HoldersService) load(ctx context.Context, m domain.Market) (domain.HoldersCacheEntry, error) {
	ch := s.flight.DoChan(m.Slug, func() (v interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("holders_service: fetch %q panicked: %v", m.Slug, r)
			}
		}()
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.fetch(fetchCtx, m)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return domain.HoldersCacheEntry{}, res.Err
		}
		return res.Val.(domain.HoldersCacheEntry), nil
	case <-ctx.Done():
		return domain.HoldersCacheEntry{}, ctx.Err()
	}
}

func (s *HoldersService) fetch(ctx context.Context, m domain.Market) (domain.HoldersCacheEntry, error) {
	positions, err := s.source.Holders(ctx, m.Slug)
	if err != nil {
		return domain.HoldersCacheEntry{}, fmt.Errorf("holders_service: fetch %q: %w", m.Slug, err)
	}

	entry := domain.HoldersCacheEntry{
		MarketSlug: m.Slug,
		MarketID:   m.ID,
		Outcomes:   groupHolders(m.Outcomes, positions),
		CachedAt:   s.now().UTC(),
	}
	if err := s.cache.Set(ctx, entry); err != nil {
		s.logger.WarnContext(ctx, "holders cache write failed",
			slog.String("slug", m.Slug),
			slog.String("error", err.Error()),
		)
	}

	s.logger.DebugContext(ctx, "holders cached",
		slog.String("slug", m.Slug),
		slog.Int("positions", len(positions)),
	)
	return entry, nil
}

// groupHolders buckets positions by outcome, largest holder first. Outcomes
// follow the market's order; positions for outcomes the market does not list
// are appended in order of first appearance with an empty title.
func groupHolders(outcomes []domain.Outcome, positions []domain.HolderPosition) []domain.OutcomeHolders {
	groups := make([]domain.OutcomeHolders, 0, len(outcomes))
	index := make(map[int64]int, len(outcomes))
	for _, o := range outcomes {
		index[o.ID] = len(groups)
		groups = append(groups, domain.OutcomeHolders{OutcomeID: o.ID, OutcomeTitle: o.Title, Holders: []domain.Holder{}})
	}

	for _, p := range positions {
		i, ok := index[p.OutcomeID]
		if !ok {
			i = len(groups)
			index[p.OutcomeID] = i
			groups = append(groups, domain.OutcomeHolders{OutcomeID: p.OutcomeID, Holders: []domain.Holder{}})
		}
		groups[i].Holders = append(groups[i].Holders, domain.Holder{
			Address: normalizeAddress(p.Address),
			Shares:  p.Shares,
		})
	}

	for i := range groups {
		slices.SortStableFunc(groups[i].Holders, func(a, b domain.Holder) int {
			return cmp.Compare(b.Shares, a.Shares)
		})
	}
	return groups
}

// normalizeAddress returns the EIP-55 checksum form of a hex address and
// leaves anything else untouched.
func normalizeAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}
