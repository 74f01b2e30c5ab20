package core

import (
	"errors"
	"math"
	"testing"
)

func validParams() SimulationParameters {
	return SimulationParameters{
		MonthlyInvestment: 1000,
		InvestmentYears:   1,
		BondTenorYears:    1,
		StartYear:         2024,
		StartMonth:        1,
	}
}

func TestParametersValidate(t *testing.T) {
	if err := validParams().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name  string
		mut   func(*SimulationParameters)
		field string
	}{
		{"zero investment", func(p *SimulationParameters) { p.MonthlyInvestment = 0 }, "monthly_investment"},
		{"negative investment", func(p *SimulationParameters) { p.MonthlyInvestment = -5 }, "monthly_investment"},
		{"nan investment", func(p *SimulationParameters) { p.MonthlyInvestment = math.NaN() }, "monthly_investment"},
		{"zero years", func(p *SimulationParameters) { p.InvestmentYears = 0 }, "investment_years"},
		{"too many years", func(p *SimulationParameters) { p.InvestmentYears = MaxInvestmentYears + 1 }, "investment_years"},
		{"zero tenor", func(p *SimulationParameters) { p.BondTenorYears = 0 }, "bond_tenor_years"},
		{"negative tenor", func(p *SimulationParameters) { p.BondTenorYears = -1 }, "bond_tenor_years"},
		{"zero start year", func(p *SimulationParameters) { p.StartYear = 0 }, "start_year"},
		{"month zero", func(p *SimulationParameters) { p.StartMonth = 0 }, "start_month"},
		{"month thirteen", func(p *SimulationParameters) { p.StartMonth = 13 }, "start_month"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParams()
			tc.mut(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			var pe *ParamError
			if !errors.As(err, &pe) || pe.Field != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, err)
			}
		})
	}
}

func TestCalendarFor(t *testing.T) {
	p := validParams()
	p.StartYear = 2024
	p.StartMonth = 11

	cases := []struct {
		idx, year, month int
	}{
		{1, 2024, 11},
		{2, 2024, 12},
		{3, 2025, 1},
		{14, 2025, 12},
		{15, 2026, 1},
	}
	for _, tc := range cases {
		y, m := p.CalendarFor(tc.idx)
		if y != tc.year || m != tc.month {
			t.Fatalf("month %d: got %d-%d, want %d-%d", tc.idx, y, m, tc.year, tc.month)
		}
	}
}

func TestBatchCouponAndMaturity(t *testing.T) {
	b := InvestmentBatch{OriginMonthIndex: 3, PrincipalAmount: 1000, SemiAnnualRate: 0.05}
	tenor := 24

	pays := map[int]bool{}
	for m := 1; m <= 40; m++ {
		if b.PaysCouponAt(m, tenor) {
			pays[m] = true
		}
	}
	want := []int{9, 15, 21, 27}
	if len(pays) != len(want) {
		t.Fatalf("expected coupons at %v, got %v", want, pays)
	}
	for _, m := range want {
		if !pays[m] {
			t.Fatalf("expected coupon at month %d", m)
		}
	}

	if b.PaysCouponAt(3, tenor) {
		t.Fatal("batch must not accrue at age 0")
	}
	if !b.MaturesAt(27, tenor) || b.MaturesAt(26, tenor) || b.MaturesAt(28, tenor) {
		t.Fatal("batch must mature exactly at age == tenor")
	}
	if b.Coupon() != 50 {
		t.Fatalf("coupon = %v", b.Coupon())
	}
}

func TestTotalMonths(t *testing.T) {
	p := validParams()
	p.InvestmentYears = 3
	p.BondTenorYears = 5
	if p.TotalMonths() != 96 || p.InvestmentMonths() != 36 || p.TenorMonths() != 60 {
		t.Fatalf("unexpected timeline: %d %d %d", p.TotalMonths(), p.InvestmentMonths(), p.TenorMonths())
	}
}
