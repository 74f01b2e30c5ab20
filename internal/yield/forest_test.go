package yield

import (
	"context"
	"errors"
	"math"
	"testing"
)

// syntheticObservations yields tenor + 0.5 per year since 2015, independent of month.
func syntheticObservations() []Observation {
	var obs []Observation
	for year := 2015; year <= 2020; year++ {
		for month := 1; month <= 12; month++ {
			for _, tenor := range []int{2, 5, 10} {
				obs = append(obs, Observation{
					Year:  year,
					Month: month,
					Tenor: tenor,
					Yield: float64(tenor) + 0.5*float64(year-2015),
				})
			}
		}
	}
	return obs
}

func TestForestLearnsTrainingSurface(t *testing.T) {
	f := NewForest(ForestConfig{Trees: 30, Seed: 42})
	oracle, err := f.Train(context.Background(), syntheticObservations())
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	cases := []struct {
		year, month, tenor int
		want               float64
	}{
		{2018, 6, 5, 6.5},
		{2015, 1, 2, 2},
		{2020, 12, 10, 12.5},
	}
	for _, tc := range cases {
		got, err := oracle.Predict(tc.year, tc.month, tc.tenor)
		if err != nil {
			t.Fatalf("predict: %v", err)
		}
		if math.Abs(got-tc.want) > 0.25 {
			t.Fatalf("Predict(%d, %d, %d) = %v, want about %v", tc.year, tc.month, tc.tenor, got, tc.want)
		}
	}
}

func TestForestIsDeterministic(t *testing.T) {
	obs := syntheticObservations()
	a, err := NewForest(ForestConfig{Trees: 15, Seed: 7}).Train(context.Background(), obs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewForest(ForestConfig{Trees: 15, Seed: 7}).Train(context.Background(), obs)
	if err != nil {
		t.Fatal(err)
	}

	for _, q := range [][3]int{{2016, 3, 2}, {2024, 7, 5}, {2010, 1, 10}} {
		pa, _ := a.Predict(q[0], q[1], q[2])
		pb, _ := b.Predict(q[0], q[1], q[2])
		if pa != pb {
			t.Fatalf("same seed gave %v and %v for %v", pa, pb, q)
		}
	}
}

func TestForestHandlesUnseenCategories(t *testing.T) {
	oracle, err := NewForest(ForestConfig{Trees: 10}).Train(context.Background(), syntheticObservations())
	if err != nil {
		t.Fatal(err)
	}
	got, err := oracle.Predict(2030, 13, 7)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("expected finite prediction, got %v", got)
	}
	// every training yield lies in [2, 12.5]; an average of leaves cannot leave that range
	if got < 2 || got > 12.5 {
		t.Fatalf("prediction %v outside training range", got)
	}
}

func TestForestRejectsEmptyData(t *testing.T) {
	_, err := NewForest(DefaultForestConfig()).Train(context.Background(), nil)
	if !errors.Is(err, ErrNoObservations) {
		t.Fatalf("expected ErrNoObservations, got %v", err)
	}
}

func TestForestHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewForest(DefaultForestConfig()).Train(ctx, syntheticObservations())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDefaultForestConfig(t *testing.T) {
	f := NewForest(ForestConfig{})
	if f.config.Trees != 200 || f.config.MinSamplesSplit != 2 {
		t.Fatalf("unexpected defaults: %+v", f.config)
	}
	if DefaultForestConfig().Seed != 42 {
		t.Fatalf("unexpected default seed")
	}
}

func TestFingerprint(t *testing.T) {
	obs := syntheticObservations()
	if Fingerprint(obs) != Fingerprint(syntheticObservations()) {
		t.Fatal("fingerprint must be stable")
	}
	changed := syntheticObservations()
	changed[3].Yield += 0.001
	if Fingerprint(obs) == Fingerprint(changed) {
		t.Fatal("fingerprint must change with the data")
	}
}

func TestForestDoesNotSplitIdenticalTargets(t *testing.T) {
	obs := syntheticObservations()
	for i := range obs {
		obs[i].Yield = 1234.567
	}
	oracle, err := NewForest(ForestConfig{Trees: 10, Seed: 3}).Train(context.Background(), obs)
	if err != nil {
		t.Fatal(err)
	}
	m := oracle.(*ForestModel)
	for i, tr := range m.trees {
		if len(tr) != 1 {
			t.Fatalf("tree %d has %d nodes, want a single leaf", i, len(tr))
		}
	}
	if got, _ := m.Predict(2030, 7, 3); math.Abs(got-1234.567) > 1e-9 {
		t.Fatalf("Predict = %v, want 1234.567", got)
	}
}

func TestForestSplitsLargeOffsetTargets(t *testing.T) {
	// a small signal on a large offset must still be learned
	obs := syntheticObservations()
	for i := range obs {
		obs[i].Yield += 1e6
	}
	oracle, err := NewForest(ForestConfig{Trees: 30, Seed: 42}).Train(context.Background(), obs)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := oracle.Predict(2018, 6, 5)
	if math.Abs(got-(1e6+6.5)) > 0.25 {
		t.Fatalf("Predict = %v, want about %v", got, 1e6+6.5)
	}
}

func TestForestSettings(t *testing.T) {
	a := NewForest(ForestConfig{Trees: 5, Seed: 1}).Settings()
	b := NewForest(ForestConfig{Trees: 5, Seed: 2}).Settings()
	if a == b {
		t.Fatalf("settings must include the seed: %q", a)
	}
}
