package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alitto/pond/v2"

	"github.com/predik/predik/internal/domain"
)

// TranslationConfig holds the tunables of TranslationService.
type TranslationConfig struct {
	// Workers bounds the number of concurrent provider calls across all
	// bulk requests.
	Workers int
	// DegradeOnError serves source-language text in place of a translation
	// when the provider fails. Degraded results are never persisted.
	DegradeOnError bool
}

// TranslationService memoizes market translations in the translation store
// so the provider is called at most once per market slug. Concurrent misses
// for the same slug are reconciled by the store's uniqueness constraint.
type TranslationService struct {
	store    domain.TranslationStore
	provider domain.TranslationProvider
	pool     pond.Pool
	degrade  bool
	logger   *slog.Logger
}

// NewTranslationService creates a TranslationService. Close must be called
// to release the worker pool.
func NewTranslationService(
	store domain.TranslationStore,
	provider domain.TranslationProvider,
	cfg TranslationConfig,
	logger *slog.Logger,
) *TranslationService {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	return &TranslationService{
		store:    store,
		provider: provider,
		pool:     pond.NewPool(workers),
		degrade:  cfg.DegradeOnError,
		logger:   logger.With(slog.String("component", "translation_service")),
	}
}

// Translate returns m carrying target-language fields. A stored translation
// is used when one exists; otherwise the provider is called and the result
// persisted.
func (s *TranslationService) Translate(ctx context.Context, m domain.Market) (domain.Market, error) {
	row, err := s.store.GetBySlug(ctx, m.Slug)
	if err == nil {
		return m.WithTranslation(row), nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return m, fmt.Errorf("translation_service: lookup %q: %w", m.Slug, err)
	}
	return s.translateMiss(ctx, m)
}

// TranslateBulk translates markets with a single store lookup for the whole
// batch. Misses are translated concurrently. The output preserves the input
// order.
func (s *TranslationService) TranslateBulk(ctx context.Context, markets []domain.Market) ([]domain.Market, error) {
	out := make([]domain.Market, len(markets))
	if len(markets) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.ID)
	}
	rows, err := s.store.ListByMarketIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("translation_service: bulk lookup: %w", err)
	}
	byID := make(map[int64]domain.MarketTranslation, len(rows))
	for _, r := range rows {
		byID[r.MarketID] = r
	}

	var (
		group    pond.TaskGroup
		groupCtx context.Context
		misses   int
	)
	for i, m := range markets {
		if row, ok := byID[m.ID]; ok {
			out[i] = m.WithTranslation(row)
			continue
		}
		if group == nil {
			group = s.pool.NewGroupContext(ctx)
			groupCtx = group.Context()
		}
		misses++
		group.SubmitErr(func() error {
			translated, err := s.translateMiss(groupCtx, m)
			if err != nil {
				return err
			}
			out[i] = translated
			return nil
		})
	}
	if group == nil {
		return out, nil
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "bulk translated",
		slog.Int("markets", len(markets)),
		slog.Int("misses", misses),
	)
	return out, nil
}

// Close waits for in-flight provider calls and stops the worker pool.
func (s *TranslationService) Close() {
	s.pool.StopAndWait()
}

// translateMiss runs the provider, persists the result and recovers from a
// concurrent insert of the same slug by adopting the stored row.
func (s *TranslationService) translateMiss(ctx context.Context, m domain.Market) (domain.Market, error) {
	res, err := s.provider.Translate(ctx, domain.TranslationRequest{
		Title:       m.Title,
		Description: m.Description,
	})
	if err != nil {
		if s.degrade && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "provider failed, serving source text",
				slog.String("slug", m.Slug),
				slog.String("error", err.Error()),
			)
			m.TitleEs = m.Title
			m.DescriptionEs = m.Description
			return m, nil
		}
		return m, fmt.Errorf("translation_service: translate %q: %w", m.Slug, err)
	}

	row := domain.MarketTranslation{
		MarketID:          m.ID,
		MarketSlug:        m.Slug,
		TitleSource:       m.Title,
		TitleTarget:       res.Title,
		DescriptionSource: m.Description,
		DescriptionTarget: res.Description,
	}
	insertErr := s.store.Insert(ctx, row)
	if insertErr == nil {
		return m.WithTranslation(row), nil
	}
	if !errors.Is(insertErr, domain.ErrAlreadyExists) {
		return m, fmt.Errorf("translation_service: insert %q: %w", m.Slug, insertErr)
	}

	stored, err := s.store.GetBySlug(ctx, m.Slug)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "re-read after conflict failed",
				slog.String("slug", m.Slug),
				slog.String("error", err.Error()),
			)
		}
		return m, fmt.Errorf("translation_service: insert %q: %w", m.Slug, insertErr)
	}

	s.logger.DebugContext(ctx, "adopted concurrently stored translation",
		slog.String("slug", m.Slug),
	)
	return m.WithTranslation(stored), nil
}
