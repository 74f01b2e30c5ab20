// Package memory implements storage.RunStore in process.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bondsim/internal/core"
	"bondsim/internal/storage"
)

type entry struct {
	run      storage.Run
	attempts int
	seq      int
}

type Store struct {
	mu   sync.RWMutex
	runs map[string]*entry
	seq  int
}

var _ storage.RunStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{runs: make(map[string]*entry)}
}

func (s *Store) SaveRun(ctx context.Context, run storage.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("save run %s: already exists", run.ID)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.ExportStatus == "" {
		run.ExportStatus = storage.ExportPending
	}
	run.Records = append([]core.MonthlyRecord(nil), run.Records...)
	s.seq++
	s.runs[run.ID] = &entry{run: run, seq: s.seq}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*storage.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("get run %s: %w", id, core.ErrRunNotFound)
	}
	run := e.run
	run.Records = append([]core.MonthlyRecord(nil), e.run.Records...)
	return &run, nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]storage.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.sorted()
	// newest first
	out := make([]storage.Run, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		run := entries[i].run
		run.Records = nil
		out = append(out, run)
	}
	return out, nil
}

func (s *Store) PendingExports(ctx context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, e := range s.sorted() {
		if len(ids) >= limit {
			break
		}
		if e.run.ExportStatus == storage.ExportExported || e.attempts >= storage.MaxExportAttempts {
			continue
		}
		ids = append(ids, e.run.ID)
	}
	return ids, nil
}

func (s *Store) MarkExported(ctx context.Context, id, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("mark run %s exported: %w", id, core.ErrRunNotFound)
	}
	now := time.Now().UTC()
	e.run.ExportStatus = storage.ExportExported
	e.run.ExportRef = ref
	e.run.ExportError = ""
	e.run.ExportedAt = &now
	return nil
}

func (s *Store) MarkExportError(ctx context.Context, id, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.runs[id]
	if !ok {
		return fmt.Errorf("mark run %s export error: %w", id, core.ErrRunNotFound)
	}
	e.run.ExportStatus = storage.ExportFailed
	e.run.ExportError = msg
	e.attempts++
	return nil
}

func (s *Store) Close() error { return nil }

// sorted returns entries in insertion order. Callers hold the lock.
func (s *Store) sorted() []*entry {
	out := make([]*entry, 0, len(s.runs))
	for _, e := range s.runs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}
