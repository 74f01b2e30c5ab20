package core

// NewRecord builds the rounded presentation row for one month. annualYield and
// semiAnnualRate are nil when no prediction was made for the month.
func NewRecord(monthIndex, year, calMonth int, annualYield, semiAnnualRate *float64, newInvestment, cumulative, interest, matured float64) MonthlyRecord {
	rec := MonthlyRecord{
		Month:                monthIndex,
		Year:                 year,
		CalendarMonth:        calMonth,
		NewInvestment:        RoundCurrency(newInvestment),
		CumulativeInvestment: RoundCurrency(cumulative),
		InterestEarned:       RoundCurrency(interest),
		MaturedPrincipal:     RoundCurrency(matured),
	}
	if annualYield != nil {
		y := RoundYield(*annualYield)
		rec.PredictedAnnualYield = &y
	}
	if semiAnnualRate != nil {
		r := RoundRate(*semiAnnualRate)
		rec.SemiAnnualRate = &r
	}
	return rec
}

// Summarize totals the rounded record values.
func Summarize(records []MonthlyRecord) Summary {
	invested := make([]float64, len(records))
	interest := make([]float64, len(records))
	for i, r := range records {
		invested[i] = r.NewInvestment
		interest[i] = r.InterestEarned
	}
	return Summary{
		TotalInvested:  SumCurrency(invested...),
		TotalInterest:  SumCurrency(interest...),
		DurationMonths: len(records),
	}
}
