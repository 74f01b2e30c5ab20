package core

import "testing"

func TestRoundTo(t *testing.T) {
	cases := []struct {
		in     float64
		places int32
		out    float64
	}{
		{1050, 2, 1050},
		{1.005, 2, 1.01},
		{2.344, 2, 2.34},
		{-2.345, 2, -2.35},
		{10.12345, 3, 10.123},
		{0.051234567, 5, 0.05123},
		{0.000005, 5, 0.00001},
	}
	for _, tc := range cases {
		if got := RoundTo(tc.in, tc.places); got != tc.out {
			t.Fatalf("RoundTo(%v, %d) = %v, want %v", tc.in, tc.places, got, tc.out)
		}
	}
}

func TestSumCurrency(t *testing.T) {
	// 0.1 + 0.2 in float64 is 0.30000000000000004
	if got := SumCurrency(0.1, 0.2); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
	if got := SumCurrency(); got != 0 {
		t.Fatalf("expected 0 for empty sum, got %v", got)
	}
}

func TestNewRecordRoundsAndKeepsAbsentYield(t *testing.T) {
	y := 10.123456
	r := y / 2 / 100
	rec := NewRecord(3, 2024, 3, &y, &r, 1000.005, 3000.015, 0, 0)
	if rec.PredictedAnnualYield == nil || *rec.PredictedAnnualYield != 10.123 {
		t.Fatalf("unexpected yield: %v", rec.PredictedAnnualYield)
	}
	if rec.SemiAnnualRate == nil || *rec.SemiAnnualRate != 0.05062 {
		t.Fatalf("unexpected rate: %v", rec.SemiAnnualRate)
	}
	if rec.NewInvestment != 1000.01 || rec.CumulativeInvestment != 3000.02 {
		t.Fatalf("unexpected currency rounding: %+v", rec)
	}

	empty := NewRecord(30, 2026, 6, nil, nil, 0, 3000, 12.5, 1000)
	if empty.HasYield() || empty.SemiAnnualRate != nil {
		t.Fatalf("expected absent yield and rate, got %+v", empty)
	}
}

func TestSummarize(t *testing.T) {
	records := []MonthlyRecord{
		{NewInvestment: 1000, InterestEarned: 0},
		{NewInvestment: 1050.1, InterestEarned: 50.1},
		{NewInvestment: 0, InterestEarned: 0.2},
	}
	s := Summarize(records)
	if s.TotalInvested != 2050.1 {
		t.Fatalf("TotalInvested = %v", s.TotalInvested)
	}
	if s.TotalInterest != 50.3 {
		t.Fatalf("TotalInterest = %v", s.TotalInterest)
	}
	if s.DurationMonths != 3 {
		t.Fatalf("DurationMonths = %d", s.DurationMonths)
	}
}
