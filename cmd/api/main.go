package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/ebtfinder/internal/adapters/http"
	natsadapter "github.com/samirrijal/ebtfinder/internal/adapters/nats"
	"github.com/samirrijal/ebtfinder/internal/adapters/postgres"
	"github.com/samirrijal/ebtfinder/internal/adapters/valkey"
	"github.com/samirrijal/ebtfinder/internal/core/ports"
	"github.com/samirrijal/ebtfinder/internal/core/usecases"
	"github.com/samirrijal/ebtfinder/internal/pkg/config"
	"github.com/samirrijal/ebtfinder/internal/pkg/logging"
	"github.com/samirrijal/ebtfinder/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("ebtfinder-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Shared cache. Interfaces stay nil when the backend is down so the
	// services skip it instead of calling a nil client.
	var shared ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		shared = cache
	}

	// Click broker
	var publisher ports.ClickPublisher
	deps := &http.Dependencies{
		DB:             db,
		Cache:          cache,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		AllowOrigins:   cfg.Server.AllowOrigins,
	}
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL, cfg.Trending.Window())
	if err != nil {
		slog.Warn("nats unavailable, clicks will be written directly", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
		deps.NATS = pub.Conn()
	}

	// Repos
	locationRepo := postgres.NewLocationRepo(db)
	clickRepo := postgres.NewClickRepo(db)

	// Use cases
	categories, err := usecases.NewCategoryFilter(nil)
	if err != nil {
		log.Fatalf("categories: %v", err)
	}
	trending := usecases.NewTrendingCalculator(clickRepo, usecases.TrendingConfig{
		Window:           cfg.Trending.Window(),
		ClickRadiusMiles: cfg.Trending.ClickRadiusMiles,
		DecayFloor:       cfg.Trending.DecayFloor,
	}, nil)
	resultCache := usecases.NewResultCache(cfg.Search.CacheEntries, cfg.Search.CacheTTL(), nil)

	deps.Search = usecases.NewSearchService(locationRepo, trending, categories, resultCache, shared, usecases.SearchOptions{
		DefaultRadiusMiles: cfg.Search.DefaultRadiusMiles,
		MaxRadiusMiles:     cfg.Search.MaxRadiusMiles,
		DefaultLimit:       cfg.Search.DefaultLimit,
		MaxLimit:           cfg.Search.MaxLimit,
		StorageTimeout:     cfg.Search.StorageTimeout(),
		Workers:            cfg.Search.Workers,
		SharedCacheTTL:     time.Duration(cfg.Search.SharedCacheTTL) * time.Second,
		SlowSearch:         cfg.Search.SlowSearch(),
	})
	deps.Locations = usecases.NewLocationService(locationRepo, shared)
	deps.Clicks = usecases.NewClickService(clickRepo, locationRepo, publisher, cfg.Trending.Window(), nil)

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "EBT Finder API",
	})

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
