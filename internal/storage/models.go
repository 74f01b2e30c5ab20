package storage

import (
	"database/sql"
	"time"
)

// runRow mirrors a row of the runs table.
type runRow struct {
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
	ExportStatus      string
	ExportRef         sql.NullString
	ExportError       sql.NullString
	ExportAttempts    int64
	CreatedAt         time.Time
	ExportedAt        sql.NullTime
}

// recordRow mirrors a row of the run_records table.
type recordRow struct {
	RunID                string
	Month                int64
	Year                 int64
	CalendarMonth        int64
	PredictedYield       sql.NullFloat64
	SemiAnnualRate       sql.NullFloat64
	NewInvestment        float64
	CumulativeInvestment float64
	InterestEarned       float64
	MaturedPrincipal     float64
}
