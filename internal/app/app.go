// Package app provides the top-level application lifecycle management for the
// predik API. It wires together the store, caches, upstream clients and
// services, then runs the HTTP server and the cache sweeper until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/predik/predik/internal/config"
	"github.com/predik/predik/internal/server"
	"github.com/predik/predik/internal/server/handler"
	"github.com/predik/predik/internal/server/middleware"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run is the main entry point. It wires all dependencies, starts the HTTP
// server and background jobs, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	log := a.logger.With(slog.String("component", "app"))
	log.InfoContext(ctx, "starting application",
		slog.Any("config", config.RedactedConfig(a.cfg)),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	trusted, err := middleware.ParseTrustedProxies(a.cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if deps.MemoryHolders != nil && a.cfg.Holders.SweepCron != "" {
		if err := a.startSweeper(ctx, g, deps); err != nil {
			return fmt.Errorf("app: %w", err)
		}
	}
	a.startHTTPServer(ctx, g, deps, trusted)

	return g.Wait()
}

// startHTTPServer adds the HTTP server and its shutdown watcher to g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, trusted []netip.Prefix) {
	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(deps.Pingers, a.logger),
		Markets: handler.NewMarketHandler(deps.MarketSvc, a.cfg.Server.CacheControl, a.logger),
	}
	srv := server.NewServer(server.Config{
		Port:           a.cfg.Server.Port,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		RateLimit:      a.cfg.Server.RateLimit,
		RateWindow:     a.cfg.Server.RateWindow.Duration,
		TrustedProxies: trusted,
	}, handlers, deps.RateLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startSweeper schedules eviction of expired in-process holders entries.
func (a *App) startSweeper(ctx context.Context, g *errgroup.Group, deps *Dependencies) error {
	log := a.logger.With(slog.String("component", "holders_sweeper"))

	c := cron.New()
	_, err := c.AddFunc(a.cfg.Holders.SweepCron, func() {
		if n := deps.MemoryHolders.Sweep(); n > 0 {
			log.Debug("swept holders cache",
				slog.Int("evicted", n),
				slog.Int("remaining", deps.MemoryHolders.Len()),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule holders sweep %q: %w", a.cfg.Holders.SweepCron, err)
	}

	g.Go(func() error {
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	})
	return nil
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
