package yield

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bondsim/internal/core"
)

type countingSource struct {
	loads atomic.Int32
	obs   []Observation
	err   error
	delay time.Duration
}

func (s *countingSource) Load(ctx context.Context) ([]Observation, error) {
	s.loads.Add(1)
	time.Sleep(s.delay)
	return s.obs, s.err
}

type fakeTrainer struct {
	trains atomic.Int32
	err    error
}

func (f *fakeTrainer) Train(ctx context.Context, obs []Observation) (Oracle, error) {
	f.trains.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return Constant(4.2), nil
}

func TestServiceTrainsOnceUnderConcurrency(t *testing.T) {
	src := &countingSource{obs: syntheticObservations(), delay: 20 * time.Millisecond}
	tr := &fakeTrainer{}
	svc := NewService(src, tr)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Oracle(context.Background()); err != nil {
				t.Errorf("oracle: %v", err)
			}
		}()
	}
	wg.Wait()

	if _, err := svc.Oracle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.loads.Load() != 1 || tr.trains.Load() != 1 {
		t.Fatalf("expected one load and one training, got %d and %d", src.loads.Load(), tr.trains.Load())
	}
	if !svc.Ready() {
		t.Fatal("service should be ready after training")
	}

	m, _ := svc.Model(context.Background())
	if m.Fingerprint != Fingerprint(src.obs) || m.Observations != len(src.obs) {
		t.Fatalf("unexpected model metadata: %+v", m)
	}
}

func TestServiceFailuresAreOracleUnavailable(t *testing.T) {
	cases := []struct {
		name string
		svc  *Service
	}{
		{"load error", NewService(&countingSource{err: errors.New("boom")}, &fakeTrainer{})},
		{"empty data", NewService(&countingSource{}, &fakeTrainer{})},
		{"train error", NewService(&countingSource{obs: syntheticObservations()}, &fakeTrainer{err: errors.New("bad")})},
		{"unconfigured", NewService(nil, nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.svc.Oracle(context.Background())
			if !errors.Is(err, core.ErrOracleUnavailable) {
				t.Fatalf("expected ErrOracleUnavailable, got %v", err)
			}
			if tc.svc.Ready() {
				t.Fatal("failed service must not be ready")
			}
		})
	}
}

func TestServiceRetriesAfterFailure(t *testing.T) {
	src := &countingSource{err: errors.New("temporary")}
	svc := NewService(src, &fakeTrainer{})

	if _, err := svc.Oracle(context.Background()); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	src.err = nil
	src.obs = syntheticObservations()
	if _, err := svc.Oracle(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if src.loads.Load() != 2 {
		t.Fatalf("expected two loads, got %d", src.loads.Load())
	}
}

func TestStaticService(t *testing.T) {
	svc := NewStaticService(Constant(10), "fixed")
	if !svc.Ready() {
		t.Fatal("static service must be ready")
	}
	o, err := svc.Oracle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if y, _ := o.Predict(2024, 1, 1); y != 10 {
		t.Fatalf("expected 10, got %v", y)
	}
}

func TestServiceFingerprintCoversForestSettings(t *testing.T) {
	obs := syntheticObservations()
	model := func(cfg ForestConfig) *Model {
		t.Helper()
		m, err := NewService(&countingSource{obs: obs}, NewForest(cfg)).Model(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		return m
	}

	base := model(ForestConfig{Trees: 3, Seed: 1})
	same := model(ForestConfig{Trees: 3, Seed: 1})
	otherSeed := model(ForestConfig{Trees: 3, Seed: 2})
	otherTrees := model(ForestConfig{Trees: 4, Seed: 1})

	if base.Fingerprint != same.Fingerprint {
		t.Fatal("same data and settings must give the same fingerprint")
	}
	if base.Fingerprint == otherSeed.Fingerprint || base.Fingerprint == otherTrees.Fingerprint {
		t.Fatal("fingerprint must change with the forest settings")
	}
	if base.Fingerprint == Fingerprint(obs) {
		t.Fatal("forest fingerprint must not equal the data-only fingerprint")
	}
}
