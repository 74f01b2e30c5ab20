// Package core provides the simulation domain types and presentation rounding.
//
// Rounding is only applied when a ledger row is built; accrual works on
// full-precision float64 values.
package core

import (
	"github.com/shopspring/decimal"
)

const (
	CurrencyPlaces = 2
	YieldPlaces    = 3
	RatePlaces     = 5
)

// RoundTo rounds half away from zero to the given number of decimal places.
func RoundTo(value float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(value).Round(places).Float64()
	return f
}

// RoundCurrency rounds a currency amount for display.
func RoundCurrency(value float64) float64 {
	return RoundTo(value, CurrencyPlaces)
}

// RoundYield rounds an annual yield percentage for display.
func RoundYield(value float64) float64 {
	return RoundTo(value, YieldPlaces)
}

// RoundRate rounds a semi-annual rate fraction for display.
func RoundRate(value float64) float64 {
	return RoundTo(value, RatePlaces)
}

// SumCurrency adds amounts exactly in decimal and rounds the total.
func SumCurrency(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Round(CurrencyPlaces).Float64()
	return f
}

// FormatFixed formats value with exactly places decimals.
func FormatFixed(value float64, places int32) string {
	return decimal.NewFromFloat(value).StringFixed(places)
}
