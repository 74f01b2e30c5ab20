package yield

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bondsim/internal/core"
)

// Model is a trained oracle together with the data it was trained on.
// Fingerprint covers the observations and the trainer settings.
type Model struct {
	Oracle       Oracle
	Fingerprint  string
	Observations int
	TrainedAt    time.Time
}

// Service loads the historical data and trains the oracle at most once.
// Concurrent callers arriving before training completes share a single
// training run. A failed attempt is not cached; the next caller retries.
type Service struct {
	source  Source
	trainer Trainer

	group singleflight.Group
	mu    sync.RWMutex
	model *Model
}

func NewService(source Source, trainer Trainer) *Service {
	return &Service{source: source, trainer: trainer}
}

// NewStaticService returns a Service that is already trained with oracle.
func NewStaticService(oracle Oracle, fingerprint string) *Service {
	return &Service{model: &Model{
		Oracle:      oracle,
		Fingerprint: fingerprint,
		TrainedAt:   time.Now(),
	}}
}

// Model returns the trained model, training it first if needed. Load and
// training failures are reported as core.ErrOracleUnavailable.
func (s *Service) Model(ctx context.Context) (*Model, error) {
	if m := s.current(); m != nil {
		return m, nil
	}

	v, err, _ := s.group.Do("train", func() (any, error) {
		if m := s.current(); m != nil {
			return m, nil
		}
		return s.train(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Model), nil
}

// Oracle is shorthand for Model(ctx).Oracle.
func (s *Service) Oracle(ctx context.Context) (Oracle, error) {
	m, err := s.Model(ctx)
	if err != nil {
		return nil, err
	}
	return m.Oracle, nil
}

// Ready reports whether a trained model is available without training.
func (s *Service) Ready() bool {
	return s.current() != nil
}

func (s *Service) current() *Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (s *Service) train(ctx context.Context) (*Model, error) {
	if s.source == nil || s.trainer == nil {
		return nil, fmt.Errorf("%w: no data source configured", core.ErrOracleUnavailable)
	}

	start := time.Now()
	obs, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load observations: %v", core.ErrOracleUnavailable, err)
	}
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: %v", core.ErrOracleUnavailable, ErrNoObservations)
	}

	oracle, err := s.trainer.Train(ctx, obs)
	if err != nil {
		return nil, fmt.Errorf("%w: train: %v", core.ErrOracleUnavailable, err)
	}

	m := &Model{
		Oracle:       oracle,
		Fingerprint:  ModelFingerprint(obs, trainerSettings(s.trainer)),
		Observations: len(obs),
		TrainedAt:    time.Now(),
	}

	s.mu.Lock()
	s.model = m
	s.mu.Unlock()

	slog.InfoContext(ctx, "Yield model trained",
		"component", "yield",
		"observations", m.Observations,
		"fingerprint", m.Fingerprint,
		"duration_ms", time.Since(start).Milliseconds())
	return m, nil
}

func trainerSettings(t Trainer) string {
	if tt, ok := t.(Tunable); ok {
		return tt.Settings()
	}
	return ""
}
