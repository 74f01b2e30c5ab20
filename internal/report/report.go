package report

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"bondsim/internal/core"
)

// Columns is the fixed column order of every tabular report.
var Columns = []string{
	"Month",
	"Year",
	"Calendar Month",
	"Predicted Annual Yield (%)",
	"Semi-Annual Rate",
	"New Investment",
	"Cumulative Investment",
	"Interest Earned (Coupon)",
	"Matured Principal",
}

// DefaultCurrency is used for display when none is configured.
const DefaultCurrency = "ZMW"

// Row flattens a record in Columns order. Absent yield and rate are nil.
func Row(rec core.MonthlyRecord) []any {
	return []any{
		rec.Month,
		rec.Year,
		rec.CalendarMonth,
		optional(rec.PredictedAnnualYield),
		optional(rec.SemiAnnualRate),
		rec.NewInvestment,
		rec.CumulativeInvestment,
		rec.InterestEarned,
		rec.MaturedPrincipal,
	}
}

// Table returns the header row followed by one row per record.
func Table(result core.SimulationResult) [][]any {
	rows := make([][]any, 0, len(result.Records)+1)
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	rows = append(rows, header)
	for _, rec := range result.Records {
		rows = append(rows, Row(rec))
	}
	return rows
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// FileName names the xlsx artifact of a run. The run id suffix keeps
// concurrent runs with the same parameters from overwriting each other.
func FileName(p core.SimulationParameters, runID string) string {
	name := fmt.Sprintf("Bond_%dY_Investment_%dY_Coupon_Simulation", p.InvestmentYears, p.BondTenorYears)
	if short := ShortID(runID); short != "" {
		name += "_" + short
	}
	return name + ".xlsx"
}

// ShortID is the first eight characters of a run id, without dashes.
func ShortID(runID string) string {
	s := strings.ReplaceAll(runID, "-", "")
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

// FormatAmount renders a currency amount with the currency's grapheme and separators.
func FormatAmount(amount float64, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %s", decimal.NewFromFloat(amount).StringFixed(2), strings.ToUpper(currency))
	}
	minor := decimal.NewFromFloat(amount).Shift(int32(cur.Fraction)).Round(0)
	return money.New(minor.IntPart(), cur.Code).Display()
}
