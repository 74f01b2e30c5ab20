package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the SQL used by the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const runColumns = `id, monthly_investment, investment_years, bond_tenor_years, start_year, start_month,
    total_invested, total_interest, duration_months, report_name, data_fingerprint,
    export_status, export_ref, export_error, export_attempts, created_at, exported_at`

const createRun = `INSERT INTO runs (
    id, monthly_investment, investment_years, bond_tenor_years, start_year, start_month,
    total_invested, total_interest, duration_months, report_name, data_fingerprint, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type createRunParams struct {
	ID                string
	MonthlyInvestment float64
	InvestmentYears   int64
	BondTenorYears    int64
	StartYear         int64
	StartMonth        int64
	TotalInvested     float64
	TotalInterest     float64
	DurationMonths    int64
	ReportName        sql.NullString
	DataFingerprint   sql.NullString
	CreatedAt         time.Time
}

func (q *Queries) CreateRun(ctx context.Context, arg createRunParams) error {
	_, err := q.db.ExecContext(ctx, createRun,
		arg.ID,
		arg.MonthlyInvestment,
		arg.InvestmentYears,
		arg.BondTenorYears,
		arg.StartYear,
		arg.StartMonth,
		arg.TotalInvested,
		arg.TotalInterest,
		arg.DurationMonths,
		arg.ReportName,
		arg.DataFingerprint,
		arg.CreatedAt,
	)
	return err
}

const insertRunRecord = `INSERT INTO run_records (
    run_id, month, year, calendar_month, predicted_yield, semi_annual_rate,
    new_investment, cumulative_investment, interest_earned, matured_principal
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertRunRecord(ctx context.Context, arg recordRow) error {
	_, err := q.db.ExecContext(ctx, insertRunRecord,
		arg.RunID,
		arg.Month,
		arg.Year,
		arg.CalendarMonth,
		arg.PredictedYield,
		arg.SemiAnnualRate,
		arg.NewInvestment,
		arg.CumulativeInvestment,
		arg.InterestEarned,
		arg.MaturedPrincipal,
	)
	return err
}

const getRun = `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

func (q *Queries) GetRun(ctx context.Context, id string) (runRow, error) {
	row := q.db.QueryRowContext(ctx, getRun, id)
	return scanRun(row)
}

const listRuns = `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`

func (q *Queries) ListRuns(ctx context.Context, limit int64) ([]runRow, error) {
	rows, err := q.db.QueryContext(ctx, listRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []runRow
	for rows.Next() {
		i, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRunRecords = `SELECT run_id, month, year, calendar_month, predicted_yield, semi_annual_rate,
    new_investment, cumulative_investment, interest_earned, matured_principal
FROM run_records WHERE run_id = ? ORDER BY month`

func (q *Queries) ListRunRecords(ctx context.Context, runID string) ([]recordRow, error) {
	rows, err := q.db.QueryContext(ctx, listRunRecords, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []recordRow
	for rows.Next() {
		var i recordRow
		if err := rows.Scan(
			&i.RunID,
			&i.Month,
			&i.Year,
			&i.CalendarMonth,
			&i.PredictedYield,
			&i.SemiAnnualRate,
			&i.NewInvestment,
			&i.CumulativeInvestment,
			&i.InterestEarned,
			&i.MaturedPrincipal,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPendingExports = `SELECT id FROM runs
WHERE export_status IN ('pending', 'error') AND export_attempts < ?
ORDER BY created_at ASC
LIMIT ?`

func (q *Queries) GetPendingExports(ctx context.Context, maxAttempts, limit int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, getPendingExports, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

const markRunExported = `UPDATE runs
SET export_status = 'exported', export_ref = ?, export_error = NULL, exported_at = ?
WHERE id = ?`

func (q *Queries) MarkRunExported(ctx context.Context, id, ref string, at time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, markRunExported, ref, at, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const markRunExportError = `UPDATE runs
SET export_status = 'error', export_error = ?, export_attempts = export_attempts + 1
WHERE id = ?`

func (q *Queries) MarkRunExportError(ctx context.Context, id, msg string) (int64, error) {
	result, err := q.db.ExecContext(ctx, markRunExportError, msg, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (runRow, error) {
	var i runRow
	err := s.Scan(
		&i.ID,
		&i.MonthlyInvestment,
		&i.InvestmentYears,
		&i.BondTenorYears,
		&i.StartYear,
		&i.StartMonth,
		&i.TotalInvested,
		&i.TotalInterest,
		&i.DurationMonths,
		&i.ReportName,
		&i.DataFingerprint,
		&i.ExportStatus,
		&i.ExportRef,
		&i.ExportError,
		&i.ExportAttempts,
		&i.CreatedAt,
		&i.ExportedAt,
	)
	return i, err
}
