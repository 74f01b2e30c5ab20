package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"bondsim/internal/backend"
	"bondsim/internal/cache"
	"bondsim/internal/cli"
	"bondsim/internal/config"
	"bondsim/internal/core"
	apphttp "bondsim/internal/http"
	"bondsim/internal/log"
	"bondsim/internal/report/xlsx"
	"bondsim/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	// Setup structured logging
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	// Run store and optional AMQP publisher
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "run_store", cfg.RunStore)
		os.Exit(1)
	}

	yieldService, err := cli.NewYieldService(cfg)
	if err != nil {
		logger.Error("Failed to initialize yield source", "error", err, "yield_source", cfg.YieldSource)
		os.Exit(1)
	}

	results, closeCache := newResultCache(cfg, logger)
	reports := xlsx.NewWriter(cfg.ReportsDir)

	opts := []services.Option{
		services.WithReportWriter(reports),
		services.WithRunStore(be.Store),
	}
	if results != nil {
		opts = append(opts, services.WithCache(results))
	}
	if pub := be.Publisher(); pub != nil {
		opts = append(opts, services.WithExportPublisher(pub))
	}
	sims := services.NewSimulationService(yieldService, opts...)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Simulations:        sims,
		Reports:            reports,
		Logger:             logger.WithComponent(log.ComponentHTTP),
		Currency:           cfg.Currency,
		PublicBaseURL:      cfg.PublicBaseURL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	// Graceful shutdown handling
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		closeCache()
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	// Train the yield model in the background; /readyz reports when it is done.
	// Simulations arriving earlier wait for the same training run.
	go func() {
		if _, err := yieldService.Model(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Initial yield model training failed, will retry on first request", "error", err)
		}
	}()

	logger.Info("Starting bondsim server",
		"port", cfg.Port,
		"run_store", cfg.RunStore,
		"yield_source", cfg.YieldSource,
		"export", be.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// newResultCache builds the simulation result cache: an in-process LRU,
// backed by Redis when REDIS_ADDR is set.
func newResultCache(cfg *config.Config, logger *log.Logger) (cache.Cache[core.SimulationResult], func()) {
	if !cfg.CacheEnabled {
		return nil, func() {}
	}

	local := cache.NewLRUCache[core.SimulationResult](cfg.CacheSize, cfg.CacheTTL)
	manager := cache.NewManager()
	manager.Register(local)
	manager.StartCleanup(5 * time.Minute)

	if cfg.RedisAddr == "" {
		logger.Info("Result cache enabled", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
		return local, manager.Stop
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("Redis unavailable, using in-process cache only", "error", err, "addr", cfg.RedisAddr)
		return local, manager.Stop
	}
	logger.Info("Result cache enabled", "size", cfg.CacheSize, "ttl", cfg.CacheTTL, "redis", cfg.RedisAddr)

	shared := &cache.Tiered[core.SimulationResult]{
		Local:  local,
		Shared: cache.NewRedisCache[core.SimulationResult](client, "bondsim:sim:", cfg.CacheTTL),
	}
	return shared, func() {
		manager.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", "error", err)
		}
	}
}
