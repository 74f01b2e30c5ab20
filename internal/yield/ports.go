// Package yield trains and serves the bond yield predictor used by the simulator.
package yield

import (
	"context"
)

// Observation is one historical auction result.
type Observation struct {
	Year  int
	Month int
	Tenor int
	Yield float64 // weighted average yield, percent
}

// Ports used by the simulator and the service layer.
type (
	// Oracle predicts an annual yield percentage for a calendar month and tenor.
	Oracle interface {
		Predict(year, month, tenor int) (float64, error)
	}

	// Trainer fits an Oracle from observations. Training is expected to happen
	// once; the returned Oracle is then queried many times.
	Trainer interface {
		Train(ctx context.Context, obs []Observation) (Oracle, error)
	}

	// Tunable is implemented by trainers whose settings change the model they
	// produce from the same observations.
	Tunable interface {
		Settings() string
	}

	// Source loads the historical observations.
	Source interface {
		Load(ctx context.Context) ([]Observation, error)
	}
)
