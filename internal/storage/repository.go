package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bondsim/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ RunStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite run store ready", "component", "storage", "db_path", dbPath, "schema_version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveRun stores the run and its ledger in one transaction.
func (r *SQLiteRepository) SaveRun(ctx context.Context, run Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	err = q.CreateRun(ctx, createRunParams{
		ID:                run.ID,
		MonthlyInvestment: run.Params.MonthlyInvestment,
		InvestmentYears:   int64(run.Params.InvestmentYears),
		BondTenorYears:    int64(run.Params.BondTenorYears),
		StartYear:         int64(run.Params.StartYear),
		StartMonth:        int64(run.Params.StartMonth),
		TotalInvested:     run.Summary.TotalInvested,
		TotalInterest:     run.Summary.TotalInterest,
		DurationMonths:    int64(run.Summary.DurationMonths),
		ReportName:        nullString(run.ReportName),
		DataFingerprint:   nullString(run.DataFingerprint),
		CreatedAt:         createdAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	for _, rec := range run.Records {
		if err := q.InsertRunRecord(ctx, toRecordRow(run.ID, rec)); err != nil {
			return fmt.Errorf("insert record %d: %w", rec.Month, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}

	slog.InfoContext(ctx, "Run saved to SQLite",
		"component", "storage",
		"run_id", run.ID,
		"records", len(run.Records))
	return nil
}

// GetRun loads a run with its ledger.
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row, err := r.queries.GetRun(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", id, core.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	records, err := r.queries.ListRunRecords(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list records of run %s: %w", id, err)
	}

	run := fromRunRow(row)
	run.Records = make([]core.MonthlyRecord, len(records))
	for i, rec := range records {
		run.Records[i] = fromRecordRow(rec)
	}
	return &run, nil
}

// ListRuns returns the most recent runs without their ledgers.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.queries.ListRuns(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	runs := make([]Run, len(rows))
	for i, row := range rows {
		runs[i] = fromRunRow(row)
	}
	return runs, nil
}

// PendingExports returns ids of runs not yet exported, oldest first.
// Runs that failed MaxExportAttempts times are left alone.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]string, error) {
	ids, err := r.queries.GetPendingExports(ctx, MaxExportAttempts, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id, ref string) error {
	n, err := r.queries.MarkRunExported(ctx, id, ref, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark run exported: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark run %s exported: %w", id, core.ErrRunNotFound)
	}

	slog.InfoContext(ctx, "Run marked as exported", "component", "storage", "run_id", id, "sheets_ref", ref)
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id, msg string) error {
	n, err := r.queries.MarkRunExportError(ctx, id, msg)
	if err != nil {
		return fmt.Errorf("mark run export error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark run %s export error: %w", id, core.ErrRunNotFound)
	}

	slog.WarnContext(ctx, "Run marked with export error", "component", "storage", "run_id", id, "error", msg)
	return nil
}

func fromRunRow(row runRow) Run {
	run := Run{
		ID: row.ID,
		Params: core.SimulationParameters{
			MonthlyInvestment: row.MonthlyInvestment,
			InvestmentYears:   int(row.InvestmentYears),
			BondTenorYears:    int(row.BondTenorYears),
			StartYear:         int(row.StartYear),
			StartMonth:        int(row.StartMonth),
		},
		Summary: core.Summary{
			TotalInvested:  row.TotalInvested,
			TotalInterest:  row.TotalInterest,
			DurationMonths: int(row.DurationMonths),
		},
		ReportName:      row.ReportName.String,
		DataFingerprint: row.DataFingerprint.String,
		ExportStatus:    ExportStatus(row.ExportStatus),
		ExportRef:       row.ExportRef.String,
		ExportError:     row.ExportError.String,
		CreatedAt:       row.CreatedAt,
	}
	if row.ExportedAt.Valid {
		t := row.ExportedAt.Time
		run.ExportedAt = &t
	}
	return run
}

func toRecordRow(runID string, rec core.MonthlyRecord) recordRow {
	return recordRow{
		RunID:                runID,
		Month:                int64(rec.Month),
		Year:                 int64(rec.Year),
		CalendarMonth:        int64(rec.CalendarMonth),
		PredictedYield:       nullFloat(rec.PredictedAnnualYield),
		SemiAnnualRate:       nullFloat(rec.SemiAnnualRate),
		NewInvestment:        rec.NewInvestment,
		CumulativeInvestment: rec.CumulativeInvestment,
		InterestEarned:       rec.InterestEarned,
		MaturedPrincipal:     rec.MaturedPrincipal,
	}
}

func fromRecordRow(row recordRow) core.MonthlyRecord {
	rec := core.MonthlyRecord{
		Month:                int(row.Month),
		Year:                 int(row.Year),
		CalendarMonth:        int(row.CalendarMonth),
		NewInvestment:        row.NewInvestment,
		CumulativeInvestment: row.CumulativeInvestment,
		InterestEarned:       row.InterestEarned,
		MaturedPrincipal:     row.MaturedPrincipal,
	}
	if row.PredictedYield.Valid {
		v := row.PredictedYield.Float64
		rec.PredictedAnnualYield = &v
	}
	if row.SemiAnnualRate.Valid {
		v := row.SemiAnnualRate.Float64
		rec.SemiAnnualRate = &v
	}
	return rec
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
