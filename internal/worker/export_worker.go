package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"bondsim/internal/amqp"
	"bondsim/internal/core"
	"bondsim/internal/report"
	"bondsim/internal/storage"
)

// ExportWorkerConfig tunes the export backstop.
type ExportWorkerConfig struct {
	// BatchSize is the max number of runs exported per backstop pass (default: 10)
	BatchSize int

	// Concurrency bounds parallel exports within a pass (default: 4)
	Concurrency int

	// Interval between backstop passes (default: 1m)
	Interval time.Duration
}

func DefaultExportWorkerConfig() ExportWorkerConfig {
	return ExportWorkerConfig{
		BatchSize:   10,
		Concurrency: 4,
		Interval:    time.Minute,
	}
}

// ExportWorker copies stored runs into the export spreadsheet.
type ExportWorker struct {
	store    storage.RunStore
	exporter report.Exporter
	config   ExportWorkerConfig
}

func NewExportWorker(store storage.RunStore, exporter report.Exporter, config ExportWorkerConfig) *ExportWorker {
	def := DefaultExportWorkerConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	return &ExportWorker{store: store, exporter: exporter, config: config}
}

// HandleExportMessage exports the run named by an AMQP message. Messages for
// unknown runs are dropped.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ReportExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"component", "worker",
		"run_id", msg.RunID,
		"queued_at", msg.Timestamp)

	err := w.ExportRun(ctx, msg.RunID)
	if errors.Is(err, core.ErrRunNotFound) {
		slog.WarnContext(ctx, "Dropping export message for unknown run", "component", "worker", "run_id", msg.RunID)
		return nil
	}
	return err
}

// ExportRun exports one run and records the outcome. Runs that were already
// exported are skipped.
func (w *ExportWorker) ExportRun(ctx context.Context, runID string) error {
	run, err := w.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("load run: %w", err)
	}
	if run.ExportStatus == storage.ExportExported {
		slog.InfoContext(ctx, "Run already exported", "component", "worker", "run_id", runID, "sheets_ref", run.ExportRef)
		return nil
	}

	ref, err := w.exporter.Export(ctx, report.Document{
		RunID:  run.ID,
		Params: run.Params,
		Result: run.Result(),
	})
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, runID, err.Error()); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "component", "worker", "run_id", runID, "error", markErr)
		}
		return fmt.Errorf("export run %s: %w", runID, err)
	}

	if err := w.store.MarkExported(ctx, runID, ref); err != nil {
		// the sheet is written; a later pass will rewrite the same tab
		slog.WarnContext(ctx, "Failed to mark run exported", "component", "worker", "run_id", runID, "error", err)
	}

	slog.InfoContext(ctx, "Exported run", "component", "worker", "run_id", runID, "sheets_ref", ref)
	return nil
}

// ProcessPendingExports exports up to limit pending runs in parallel and
// returns how many succeeded. Individual failures are recorded on the run,
// not returned.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context, limit int) (int, error) {
	ids, err := w.store.PendingExports(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending exports: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "component", "worker", "count", len(ids))

	var exported atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := w.ExportRun(gctx, id); err != nil {
				slog.ErrorContext(gctx, "Failed to export run", "component", "worker", "run_id", id, "error", err)
				return nil
			}
			exported.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(exported.Load()), err
	}
	return int(exported.Load()), ctx.Err()
}

// StartupExportCheck catches up on runs whose messages were lost while the
// worker was down.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	n, err := w.ProcessPendingExports(ctx, w.config.BatchSize*5)
	if err != nil {
		return fmt.Errorf("startup export check: %w", err)
	}
	slog.InfoContext(ctx, "Startup export check completed", "component", "worker", "exported", n)
	return nil
}

// RunBackstop processes pending exports every Interval until ctx is done.
func (w *ExportWorker) RunBackstop(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessPendingExports(ctx, w.config.BatchSize); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "Export backstop failed", "component", "worker", "error", err)
			}
		}
	}
}
