package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/predik/predik/internal/cache/memory"
	"github.com/predik/predik/internal/cache/redis"
	"github.com/predik/predik/internal/config"
	"github.com/predik/predik/internal/domain"
	"github.com/predik/predik/internal/platform/deepl"
	"github.com/predik/predik/internal/platform/myriad"
	"github.com/predik/predik/internal/platform/openai"
	"github.com/predik/predik/internal/server/handler"
	"github.com/predik/predik/internal/service"
	"github.com/predik/predik/internal/store/postgres"
	"github.com/predik/predik/internal/translation"
)

// Dependencies bundles everything the HTTP server and background jobs need.
// It is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	TranslationStore domain.TranslationStore

	// Caches
	HoldersCache domain.HoldersCache
	// MemoryHolders is set when the holders cache lives in process and
	// needs a periodic sweep.
	MemoryHolders *memory.HoldersCache
	RateLimiter   domain.RateLimiter

	// Upstreams
	Markets  *myriad.Client
	Provider domain.TranslationProvider

	// Services
	Translations *service.TranslationService
	Holders      *service.HoldersService
	MarketSvc    *service.MarketService

	// Health
	Pingers map[string]handler.Pinger
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Pingers: make(map[string]handler.Pinger)}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)
	deps.Pingers["postgres"] = pgClient

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}
	deps.TranslationStore = postgres.NewTranslationStore(pgClient.Pool())

	// --- Redis (optional) ---
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Pingers["redis"] = redisClient
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- Holders cache ---
	switch strings.ToLower(cfg.Holders.Backend) {
	case "redis":
		if redisClient == nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: holders backend redis requires redis.enabled")
		}
		deps.HoldersCache = redis.NewHoldersCache(redisClient, cfg.Holders.TTL.Duration)
	default:
		deps.MemoryHolders = memory.NewHoldersCache(cfg.Holders.TTL.Duration, cfg.Holders.MaxEntries)
		deps.HoldersCache = deps.MemoryHolders
	}

	// --- Upstreams ---
	deps.Markets = myriad.NewClient(myriad.Config{
		BaseURL:      cfg.Myriad.APIURL,
		APIKey:       cfg.Myriad.APIKey,
		NetworkID:    cfg.Myriad.NetworkID,
		TokenAddress: cfg.Myriad.TokenAddress,
		Timeout:      cfg.Myriad.Timeout.Duration,
		MaxPages:     cfg.Myriad.MaxPages,
	})

	provider, name := newProvider(cfg.Translation)
	deps.Provider = translation.NewBreaker(provider, translation.BreakerConfig{
		Name:        name,
		MaxFailures: cfg.Translation.BreakerMaxFailures,
		OpenTimeout: cfg.Translation.BreakerOpenTimeout.Duration,
		CallTimeout: cfg.Translation.Timeout.Duration,
	}, logger)

	// --- Services ---
	deps.Translations = service.NewTranslationService(deps.TranslationStore, deps.Provider, service.TranslationConfig{
		Workers:        cfg.Translation.Workers,
		DegradeOnError: cfg.Translation.DegradeOnError,
	}, logger)
	closers = append(closers, deps.Translations.Close)

	deps.Holders = service.NewHoldersService(deps.Markets, deps.HoldersCache, cfg.Holders.PrewarmTimeout.Duration, logger)
	// Runs before the pools and clients above are closed.
	closers = append(closers, deps.Holders.Close)

	deps.MarketSvc = service.NewMarketService(deps.Markets, deps.Translations, deps.Holders, logger)

	logger.InfoContext(ctx, "dependencies wired",
		slog.String("translation_provider", name),
		slog.String("holders_backend", cfg.Holders.Backend),
		slog.Bool("redis", redisClient != nil),
	)

	return deps, cleanup, nil
}

// newProvider builds the configured translation provider and returns it with
// its name.
func newProvider(cfg config.TranslationConfig) (domain.TranslationProvider, string) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return openai.NewTranslator(openai.Config{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			SourceLang: cfg.SourceLang,
			TargetLang: cfg.TargetLang,
		}), "openai"
	default:
		return deepl.NewClient(deepl.Config{
			BaseURL:    cfg.DeepLAPIURL,
			APIKey:     cfg.DeepLAPIKey,
			SourceLang: cfg.SourceLang,
			TargetLang: cfg.TargetLang,
			Timeout:    cfg.Timeout.Duration,
		}), "deepl"
	}
}
