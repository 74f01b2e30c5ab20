package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bondsim/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "runs.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleRun(id string, created time.Time) Run {
	y, r := 10.0, 0.05
	return Run{
		ID:              id,
		Params:          core.SimulationParameters{MonthlyInvestment: 1000, InvestmentYears: 1, BondTenorYears: 1, StartYear: 2024, StartMonth: 1},
		Summary:         core.Summary{TotalInvested: 2000, TotalInterest: 0, DurationMonths: 2},
		ReportName:      "Bond_1Y_Investment_1Y_Coupon_Simulation.xlsx",
		DataFingerprint: "abc",
		CreatedAt:       created,
		Records: []core.MonthlyRecord{
			{Month: 1, Year: 2024, CalendarMonth: 1, PredictedAnnualYield: &y, SemiAnnualRate: &r, NewInvestment: 1000, CumulativeInvestment: 1000},
			{Month: 2, Year: 2024, CalendarMonth: 2, NewInvestment: 0, CumulativeInvestment: 1000, MaturedPrincipal: 1000},
		},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := repo.SaveRun(ctx, sampleRun("run-1", created)); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Params.MonthlyInvestment != 1000 || got.Params.StartMonth != 1 {
		t.Fatalf("unexpected params %+v", got.Params)
	}
	if got.ExportStatus != ExportPending {
		t.Fatalf("new run should be pending, got %q", got.ExportStatus)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, created)
	}
	if len(got.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got.Records))
	}
	if *got.Records[0].PredictedAnnualYield != 10 || got.Records[1].PredictedAnnualYield != nil {
		t.Fatalf("yield presence not preserved: %+v", got.Records)
	}
	if got.Records[1].MaturedPrincipal != 1000 {
		t.Fatalf("unexpected record %+v", got.Records[1])
	}
}

func TestGetRunNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetRun(context.Background(), "missing")
	if !errors.Is(err, core.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSaveRunDuplicateRollsBack(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	run := sampleRun("dup", time.Now())
	if err := repo.SaveRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveRun(ctx, run); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
	got, err := repo.GetRun(ctx, "dup")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Records) != 2 {
		t.Fatalf("failed save must not add records, got %d", len(got.Records))
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := repo.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := repo.ListRuns(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected order %+v", runs)
	}
	if runs[0].Records != nil {
		t.Fatal("list must not load records")
	}
}

func TestExportLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "new"} {
		if err := repo.SaveRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := repo.PendingExports(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "old" {
		t.Fatalf("unexpected pending %v", ids)
	}

	if err := repo.MarkExported(ctx, "old", "Run old!A1:I3"); err != nil {
		t.Fatal(err)
	}
	got, _ := repo.GetRun(ctx, "old")
	if got.ExportStatus != ExportExported || got.ExportRef != "Run old!A1:I3" || got.ExportedAt == nil {
		t.Fatalf("unexpected export state %+v", got)
	}

	for i := 0; i < MaxExportAttempts; i++ {
		if err := repo.MarkExportError(ctx, "new", "quota"); err != nil {
			t.Fatal(err)
		}
	}
	ids, _ = repo.PendingExports(ctx, 10)
	if len(ids) != 0 {
		t.Fatalf("exhausted and exported runs must not be pending: %v", ids)
	}
	got, _ = repo.GetRun(ctx, "new")
	if got.ExportStatus != ExportFailed || got.ExportError != "quota" {
		t.Fatalf("unexpected export state %+v", got)
	}

	if err := repo.MarkExported(ctx, "ghost", "x"); !errors.Is(err, core.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
	if err := repo.MarkExportError(ctx, "ghost", "x"); !errors.Is(err, core.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 1 || v2 != 1 {
		t.Fatalf("unexpected versions %d %d", v1, v2)
	}
}
