package memory

import (
	"context"
	"testing"

	"bondsim/internal/core"
	"bondsim/internal/report"
)

func TestStore(t *testing.T) {
	s := NewStore()
	doc := report.Document{
		RunID:  "11112222-3333",
		Params: core.SimulationParameters{InvestmentYears: 2, BondTenorYears: 5},
	}

	name, err := s.Write(context.Background(), doc)
	if err != nil {
		t.Fatal(err)
	}
	if name != "Bond_2Y_Investment_5Y_Coupon_Simulation_11112222.xlsx" {
		t.Fatalf("unexpected name %q", name)
	}
	if got, ok := s.Written(name); !ok || got.RunID != doc.RunID {
		t.Fatalf("written doc not found")
	}

	ref, err := s.Export(context.Background(), doc)
	if err != nil || ref != "memory:11112222-3333" {
		t.Fatalf("export: %q %v", ref, err)
	}
	if _, ok := s.Exported("other"); ok {
		t.Fatal("unexpected export")
	}
}
