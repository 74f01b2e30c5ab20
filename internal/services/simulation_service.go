package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bondsim/internal/cache"
	"bondsim/internal/core"
	"bondsim/internal/report"
	"bondsim/internal/simulator"
	"bondsim/internal/storage"
	"bondsim/internal/yield"
)

var ErrExportUnavailable = errors.New("report export is not configured")

// ModelProvider hands out the trained yield model.
type ModelProvider interface {
	Model(ctx context.Context) (*yield.Model, error)
}

// ExportPublisher enqueues export jobs.
type ExportPublisher interface {
	PublishReportExport(ctx context.Context, runID string) error
}

// Outcome is the result of one simulation request. ReportErr is set when the
// workbook could not be written; the simulation result is still valid.
type Outcome struct {
	RunID          string
	Params         core.SimulationParameters
	Result         core.SimulationResult
	ReportName     string
	ReportLocation string
	ReportErr      error
	Cached         bool
}

// Document returns the report document of the outcome.
func (o Outcome) Document() report.Document {
	return report.Document{RunID: o.RunID, Params: o.Params, Result: o.Result}
}

// SimulationService runs simulations and takes care of everything around
// them: caching, the workbook, persistence and export jobs. Only the model
// is mandatory; every other collaborator may be nil.
type SimulationService struct {
	models    ModelProvider
	cache     cache.Cache[core.SimulationResult]
	writer    report.Writer
	store     storage.RunStore
	publisher ExportPublisher
	newID     func() string
}

type Option func(*SimulationService)

func WithCache(c cache.Cache[core.SimulationResult]) Option {
	return func(s *SimulationService) { s.cache = c }
}

func WithReportWriter(w report.Writer) Option {
	return func(s *SimulationService) { s.writer = w }
}

func WithRunStore(st storage.RunStore) Option {
	return func(s *SimulationService) { s.store = st }
}

func WithExportPublisher(p ExportPublisher) Option {
	return func(s *SimulationService) { s.publisher = p }
}

func WithIDGenerator(f func() string) Option {
	return func(s *SimulationService) { s.newID = f }
}

func NewSimulationService(models ModelProvider, opts ...Option) *SimulationService {
	s := &SimulationService{models: models, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run validates params, simulates and records the run.
func (s *SimulationService) Run(ctx context.Context, params core.SimulationParameters) (Outcome, error) {
	if err := params.Validate(); err != nil {
		return Outcome{}, err
	}

	model, err := s.models.Model(ctx)
	if err != nil {
		return Outcome{}, err
	}

	start := time.Now()
	out := Outcome{RunID: s.newID(), Params: params}

	key := cache.SimulationKey(params, model.Fingerprint)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			out.Result = cached
			out.Cached = true
		}
	}
	if !out.Cached {
		res, err := simulator.Simulate(params, model.Oracle)
		if err != nil {
			return Outcome{}, err
		}
		out.Result = res
		if s.cache != nil {
			s.cache.Set(ctx, key, res)
		}
	}

	slog.InfoContext(ctx, "Simulation completed",
		"component", "simulator",
		"run_id", out.RunID,
		"monthly_investment", params.MonthlyInvestment,
		"investment_years", params.InvestmentYears,
		"tenor_years", params.BondTenorYears,
		"months", out.Result.Summary.DurationMonths,
		"cached", out.Cached,
		"duration_ms", time.Since(start).Milliseconds())

	s.writeReport(ctx, &out)
	if s.saveRun(ctx, out, model.Fingerprint) {
		s.publishExport(ctx, out.RunID)
	}
	return out, nil
}

func (s *SimulationService) writeReport(ctx context.Context, out *Outcome) {
	if s.writer == nil {
		return
	}
	path, err := s.writer.Write(ctx, out.Document())
	if err != nil {
		if !errors.Is(err, core.ErrReportWrite) {
			err = fmt.Errorf("%w: %v", core.ErrReportWrite, err)
		}
		out.ReportErr = err
		slog.ErrorContext(ctx, "Failed to write report", "component", "report", "run_id", out.RunID, "error", err)
		return
	}
	out.ReportLocation = path
	out.ReportName = filepath.Base(path)
}

// saveRun persists the run. Failures are logged; the caller already has the result.
func (s *SimulationService) saveRun(ctx context.Context, out Outcome, fingerprint string) bool {
	if s.store == nil {
		return false
	}
	err := s.store.SaveRun(ctx, storage.Run{
		ID:              out.RunID,
		Params:          out.Params,
		Summary:         out.Result.Summary,
		ReportName:      out.ReportName,
		DataFingerprint: fingerprint,
		CreatedAt:       time.Now().UTC(),
		Records:         out.Result.Records,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to save run", "component", "storage", "run_id", out.RunID, "error", err)
		return false
	}
	return true
}

func (s *SimulationService) publishExport(ctx context.Context, runID string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishReportExport(ctx, runID); err != nil {
		// the worker's backstop picks up runs whose message was lost
		slog.ErrorContext(ctx, "Failed to publish export message", "component", "amqp", "run_id", runID, "error", err)
	}
}

// GetRun loads a stored run with its ledger.
func (s *SimulationService) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	if s.store == nil {
		return nil, fmt.Errorf("get run %s: %w", id, core.ErrRunNotFound)
	}
	return s.store.GetRun(ctx, id)
}

// ListRuns returns the most recent runs without ledgers.
func (s *SimulationService) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.ListRuns(ctx, limit)
}

// RequestExport enqueues an export of a stored run.
func (s *SimulationService) RequestExport(ctx context.Context, id string) error {
	if _, err := s.GetRun(ctx, id); err != nil {
		return err
	}
	if s.publisher == nil {
		return ErrExportUnavailable
	}
	if err := s.publisher.PublishReportExport(ctx, id); err != nil {
		return fmt.Errorf("request export of run %s: %w", id, err)
	}
	return nil
}

// Ready reports whether the yield model is trained.
func (s *SimulationService) Ready() bool {
	r, ok := s.models.(interface{ Ready() bool })
	return !ok || r.Ready()
}
