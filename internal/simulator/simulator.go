// Package simulator runs the month-by-month coupon reinvestment ledger.
package simulator

import (
	"fmt"
	"math"

	"bondsim/internal/core"
	"bondsim/internal/yield"
)

// Simulate validates params and produces the full ledger. Every run owns its
// batches and records, so concurrent calls are independent as long as the
// oracle is safe for concurrent use.
func Simulate(params core.SimulationParameters, oracle yield.Oracle) (core.SimulationResult, error) {
	if err := params.Validate(); err != nil {
		return core.SimulationResult{}, err
	}
	if oracle == nil {
		return core.SimulationResult{}, fmt.Errorf("%w: no oracle", core.ErrOracleUnavailable)
	}

	l := newLedger(params)
	for i := 1; i <= l.totalMonths; i++ {
		if i <= l.investmentMonths {
			if err := l.invest(i, oracle); err != nil {
				return core.SimulationResult{}, err
			}
		} else {
			l.runOff(i)
		}
	}

	return core.SimulationResult{
		Records: l.records,
		Summary: core.Summarize(l.records),
	}, nil
}

type ledger struct {
	params           core.SimulationParameters
	investmentMonths int
	tenorMonths      int
	totalMonths      int

	// batches[k] was created in month k+1
	batches    []core.InvestmentBatch
	records    []core.MonthlyRecord
	cumulative float64
}

func newLedger(p core.SimulationParameters) *ledger {
	return &ledger{
		params:           p,
		investmentMonths: p.InvestmentMonths(),
		tenorMonths:      p.TenorMonths(),
		totalMonths:      p.TotalMonths(),
		batches:          make([]core.InvestmentBatch, 0, p.InvestmentMonths()),
		records:          make([]core.MonthlyRecord, 0, p.TotalMonths()),
	}
}

func (l *ledger) invest(month int, oracle yield.Oracle) error {
	year, calMonth := l.params.CalendarFor(month)

	annualYield, err := predict(oracle, year, calMonth, l.params.BondTenorYears)
	if err != nil {
		return err
	}
	rate := annualYield / 2 / 100

	interest := l.coupons(month)
	newInvestment := l.params.MonthlyInvestment + interest

	l.batches = append(l.batches, core.InvestmentBatch{
		OriginMonthIndex: month,
		PrincipalAmount:  newInvestment,
		SemiAnnualRate:   rate,
	})
	l.cumulative += newInvestment

	l.records = append(l.records, core.NewRecord(month, year, calMonth,
		&annualYield, &rate, newInvestment, l.cumulative, interest, 0))
	return nil
}

// runOff records coupons and maturities once contributions have stopped.
// Matured principal is only reported here; a batch that reaches its tenor
// while contributions continue is not listed.
func (l *ledger) runOff(month int) {
	year, calMonth := l.params.CalendarFor(month)
	interest := l.coupons(month)
	matured := l.maturing(month)

	l.records = append(l.records, core.NewRecord(month, year, calMonth,
		nil, nil, 0, l.cumulative, interest, matured))
}

// coupons sums the payments due in month. Only batches whose age is a
// positive multiple of the coupon period no greater than the tenor can pay,
// so the arena is walked backwards one period at a time.
func (l *ledger) coupons(month int) float64 {
	var total float64
	for age := core.CouponPeriodMonths; age <= l.tenorMonths; age += core.CouponPeriodMonths {
		b, ok := l.batchFrom(month - age)
		if !ok {
			if month-age < 1 {
				break
			}
			continue
		}
		total += b.Coupon()
	}
	return total
}

func (l *ledger) maturing(month int) float64 {
	b, ok := l.batchFrom(month - l.tenorMonths)
	if !ok {
		return 0
	}
	return b.PrincipalAmount
}

func (l *ledger) batchFrom(origin int) (core.InvestmentBatch, bool) {
	if origin < 1 || origin > len(l.batches) {
		return core.InvestmentBatch{}, false
	}
	return l.batches[origin-1], true
}

func predict(oracle yield.Oracle, year, month, tenor int) (float64, error) {
	y, err := oracle.Predict(year, month, tenor)
	if err != nil {
		return 0, fmt.Errorf("%w: predict %d-%02d tenor %dy: %v", core.ErrOracleUnavailable, year, month, tenor, err)
	}
	if math.IsNaN(y) || math.IsInf(y, 0) || y < 0 {
		return 0, fmt.Errorf("%w: predict %d-%02d tenor %dy: invalid yield %v", core.ErrOracleUnavailable, year, month, tenor, y)
	}
	return y, nil
}
