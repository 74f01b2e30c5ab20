package core

import (
	"errors"
	"fmt"
)

const (
	MonthsPerYear = 12

	// CouponPeriodMonths is the spacing between coupon payments of a batch.
	CouponPeriodMonths = 6

	MaxInvestmentYears = 100
	MaxBondTenorYears  = 100
)

type (
	SimulationParameters struct {
		MonthlyInvestment float64 `json:"monthly_investment" yaml:"monthly_investment"`
		InvestmentYears   int     `json:"investment_years" yaml:"investment_years"`
		BondTenorYears    int     `json:"bond_tenor_years" yaml:"bond_tenor_years"`
		StartYear         int     `json:"start_year" yaml:"start_year"`
		StartMonth        int     `json:"start_month" yaml:"start_month"`
	}

	// InvestmentBatch is one month's principal commitment. It is created once
	// during the investment phase and never modified afterwards.
	InvestmentBatch struct {
		OriginMonthIndex int
		PrincipalAmount  float64
		SemiAnnualRate   float64
	}

	// MonthlyRecord is one presentation row of the ledger. Yield and rate are
	// nil for months where no prediction was made.
	MonthlyRecord struct {
		Month                int      `json:"Month"`
		Year                 int      `json:"Year"`
		CalendarMonth        int      `json:"Calendar Month"`
		PredictedAnnualYield *float64 `json:"Predicted Annual Yield (%)"`
		SemiAnnualRate       *float64 `json:"Semi-Annual Rate"`
		NewInvestment        float64  `json:"New Investment"`
		CumulativeInvestment float64  `json:"Cumulative Investment"`
		InterestEarned       float64  `json:"Interest Earned (Coupon)"`
		MaturedPrincipal     float64  `json:"Matured Principal"`
	}

	Summary struct {
		TotalInvested  float64 `json:"total_invested"`
		TotalInterest  float64 `json:"total_interest"`
		DurationMonths int     `json:"duration_months"`
	}

	SimulationResult struct {
		Records []MonthlyRecord `json:"records"`
		Summary Summary         `json:"summary"`
	}
)

var (
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrOracleUnavailable = errors.New("yield oracle unavailable")
	ErrReportWrite       = errors.New("report write failure")
	ErrRunNotFound       = errors.New("run not found")
)

// ParamError names the offending field. It matches ErrInvalidParameter with errors.Is.
type ParamError struct {
	Field  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParameter
}

func (p SimulationParameters) Validate() error {
	if !(p.MonthlyInvestment > 0) {
		return &ParamError{Field: "monthly_investment", Reason: "must be positive"}
	}
	if p.InvestmentYears <= 0 {
		return &ParamError{Field: "investment_years", Reason: "must be positive"}
	}
	if p.InvestmentYears > MaxInvestmentYears {
		return &ParamError{Field: "investment_years", Reason: fmt.Sprintf("must be at most %d", MaxInvestmentYears)}
	}
	if p.BondTenorYears <= 0 {
		return &ParamError{Field: "bond_tenor_years", Reason: "must be positive"}
	}
	if p.BondTenorYears > MaxBondTenorYears {
		return &ParamError{Field: "bond_tenor_years", Reason: fmt.Sprintf("must be at most %d", MaxBondTenorYears)}
	}
	if p.StartYear <= 0 {
		return &ParamError{Field: "start_year", Reason: "must be positive"}
	}
	if p.StartMonth < 1 || p.StartMonth > 12 {
		return &ParamError{Field: "start_month", Reason: "must be between 1 and 12"}
	}
	return nil
}

// InvestmentMonths is the length of the investment phase.
func (p SimulationParameters) InvestmentMonths() int {
	return p.InvestmentYears * MonthsPerYear
}

// TenorMonths is the lifetime of every batch.
func (p SimulationParameters) TenorMonths() int {
	return p.BondTenorYears * MonthsPerYear
}

// TotalMonths is the full ledger length: contributions plus the run-off of the last batch.
func (p SimulationParameters) TotalMonths() int {
	return p.InvestmentMonths() + p.TenorMonths()
}

// CalendarFor returns the calendar year and month of the 1-based month index.
func (p SimulationParameters) CalendarFor(monthIndex int) (year, month int) {
	offset := p.StartMonth - 1 + monthIndex - 1
	return p.StartYear + offset/MonthsPerYear, offset%MonthsPerYear + 1
}

// Age returns the months elapsed since the batch was created.
func (b InvestmentBatch) Age(monthIndex int) int {
	return monthIndex - b.OriginMonthIndex
}

// PaysCouponAt reports whether the batch pays a coupon in the given month:
// on every positive multiple of the coupon period up to and including maturity.
func (b InvestmentBatch) PaysCouponAt(monthIndex, tenorMonths int) bool {
	age := b.Age(monthIndex)
	return age > 0 && age%CouponPeriodMonths == 0 && age <= tenorMonths
}

// MaturesAt reports whether the batch repays its principal in the given month.
func (b InvestmentBatch) MaturesAt(monthIndex, tenorMonths int) bool {
	return b.Age(monthIndex) == tenorMonths
}

// Coupon is the interest paid by the batch on a coupon month.
func (b InvestmentBatch) Coupon() float64 {
	return b.PrincipalAmount * b.SemiAnnualRate
}

// HasYield reports whether the record carries a prediction.
func (r MonthlyRecord) HasYield() bool {
	return r.PredictedAnnualYield != nil
}
