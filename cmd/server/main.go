// Package main is the entrypoint for the TrialScope API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/growthinsights/trialscope/internal/ai"
	"github.com/growthinsights/trialscope/internal/api"
	"github.com/growthinsights/trialscope/internal/api/handler"
	mw "github.com/growthinsights/trialscope/internal/api/middleware"
	"github.com/growthinsights/trialscope/internal/cache"
	"github.com/growthinsights/trialscope/internal/config"
	"github.com/growthinsights/trialscope/internal/metasummary"
	"github.com/growthinsights/trialscope/internal/orgdata"
	"github.com/growthinsights/trialscope/internal/trials"
	"github.com/growthinsights/trialscope/internal/warehouse"
	"github.com/growthinsights/trialscope/ui"
)

const (
	shutdownTimeout = 30 * time.Second

	// Generation requests per client per minute.
	metaSummaryRateLimit = 10
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"snowflake_account", cfg.Snowflake.Account,
		"ai_provider", cfg.AI.Provider,
		"cache_enabled", cfg.Redis.URL != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Warehouse client. Connection is lazy: externalbrowser auth opens a
	// browser, so we don't force it at startup.
	wh := warehouse.NewClient(cfg.Snowflake)
	defer wh.Close()

	// 3. Cache is optional; without Redis everything works uncached.
	var store cache.Cache = cache.Noop{}
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis connected")
		store = redisCache
	}

	// 4. AI provider, nil when the meta-summary feature is disabled.
	aiProvider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	if aiProvider != nil {
		slog.Info("AI provider initialized", "provider", aiProvider.Name(), "model", aiProvider.Model())
	}

	// 5. Domain services
	trialSvc := trials.NewService(wh, store, cfg.Redis.TTL)
	orgSvc := orgdata.NewService(wh, store, cfg.Redis.TTL)
	metaSvc := metasummary.NewService(trialSvc, aiProvider, cfg.AI.MaxTokens, cfg.AI.InferenceTimeout)

	// 6. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(store, metaSummaryRateLimit),

		HealthHandler:            handler.NewHealthHandler(wh, store),
		TrialsHandler:            handler.NewTrialsHandler(trialSvc),
		OrgDataHandler:           handler.NewOrgDataHandler(orgSvc),
		MetaSummaryHandler:       handler.NewMetaSummaryHandler(metaSvc),
		MetaSummaryStatusHandler: handler.NewMetaSummaryStatusHandler(metaSvc),

		UI: ui.Handler(),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server. WriteTimeout must cover the slowest SSE stream,
	// which can run for the full inference timeout.
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.InferenceTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
