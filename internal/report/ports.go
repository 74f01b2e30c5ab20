// Package report turns simulation results into tabular artifacts.
package report

import (
	"context"

	"bondsim/internal/core"
)

// Document is everything a report is rendered from.
type Document struct {
	RunID  string
	Params core.SimulationParameters
	Result core.SimulationResult
}

// Ports implemented by the report backends.
type (
	// Writer persists a document and returns where it can be fetched from.
	Writer interface {
		Write(ctx context.Context, doc Document) (location string, err error)
	}

	// Exporter pushes a document to an external spreadsheet and returns a reference to it.
	Exporter interface {
		Export(ctx context.Context, doc Document) (ref string, err error)
	}
)
