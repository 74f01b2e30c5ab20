package storage

import (
	"context"
	"time"

	"bondsim/internal/core"
)

type ExportStatus string

const (
	ExportPending  ExportStatus = "pending"
	ExportExported ExportStatus = "exported"
	ExportFailed   ExportStatus = "error"
)

// MaxExportAttempts bounds how often a failing export is retried by the backstop.
const MaxExportAttempts = 5

// Run is a persisted simulation. Records are only populated by GetRun.
type Run struct {
	ID              string                    `json:"id"`
	Params          core.SimulationParameters `json:"params"`
	Summary         core.Summary              `json:"summary"`
	ReportName      string                    `json:"report_name,omitempty"`
	DataFingerprint string                    `json:"data_fingerprint,omitempty"`
	ExportStatus    ExportStatus              `json:"export_status"`
	ExportRef       string                    `json:"export_ref,omitempty"`
	ExportError     string                    `json:"export_error,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	ExportedAt      *time.Time                `json:"exported_at,omitempty"`
	Records         []core.MonthlyRecord      `json:"records,omitempty"`
}

// Result rebuilds the simulation result of a run loaded with GetRun.
func (r Run) Result() core.SimulationResult {
	return core.SimulationResult{Records: r.Records, Summary: r.Summary}
}

// RunStore persists simulation runs and tracks their spreadsheet export.
// Lookups of unknown ids return an error matching core.ErrRunNotFound.
type RunStore interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	PendingExports(ctx context.Context, limit int) ([]string, error)
	MarkExported(ctx context.Context, id, ref string) error
	MarkExportError(ctx context.Context, id, msg string) error
	Close() error
}
