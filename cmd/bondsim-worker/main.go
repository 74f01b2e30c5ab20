package main

import (
	"context"
	"errors"
	"os"
	"time"

	"bondsim/internal/backend"
	"bondsim/internal/cli"
	"bondsim/internal/log"
	"bondsim/internal/report/google"
	"bondsim/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL")).WithComponent(log.ComponentWorker)
	logger.Info("Starting bondsim-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the export worker")
		os.Exit(1)
	}
	if cfg.RunStore != backend.SQLiteStore.String() {
		logger.Warn("Worker is not using the shared sqlite run store, only runs it sees itself are exported",
			"run_store", cfg.RunStore)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	if be.AMQP == nil {
		logger.Error("Failed to connect to AMQP broker", "url_set", cfg.AMQPURL != "")
		_ = be.Cleanup()
		os.Exit(1)
	}

	// Initialize Google Sheets exporter
	exporter, err := google.NewFromEnv(context.Background(), cfg.GoogleSpreadsheetID)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", "error", err)
		_ = be.Cleanup()
		os.Exit(1)
	}
	logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	exportWorker := worker.NewExportWorker(be.Store, exporter, worker.ExportWorkerConfig{
		BatchSize: cfg.ExportBatchSize,
		Interval:  cfg.ExportInterval,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	// On startup, export any runs whose messages were missed
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Failed startup export check", "error", err)
	}

	go func() {
		err := be.AMQP.ConsumeReportExports(ctx, exportWorker.HandleExportMessage)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()
	go exportWorker.RunBackstop(ctx)

	logger.Info("bondsim-worker started",
		"batch_size", cfg.ExportBatchSize,
		"interval", cfg.ExportInterval,
		"queue", cfg.AMQPQueue)

	cli.WaitForShutdown(ctx, done)
	logger.Info("bondsim-worker stopped gracefully")
}
