// Package memory keeps reports in process. Used by tests and by deployments
// that have no report directory.
package memory

import (
	"context"
	"sync"

	"bondsim/internal/report"
)

// Store implements report.Writer and report.Exporter.
type Store struct {
	mu       sync.RWMutex
	written  map[string]report.Document
	exported map[string]report.Document
}

var (
	_ report.Writer   = (*Store)(nil)
	_ report.Exporter = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		written:  make(map[string]report.Document),
		exported: make(map[string]report.Document),
	}
}

// Write records doc under its file name and returns that name.
func (s *Store) Write(ctx context.Context, doc report.Document) (string, error) {
	name := report.FileName(doc.Params, doc.RunID)
	s.mu.Lock()
	s.written[name] = doc
	s.mu.Unlock()
	return name, nil
}

// Export records doc under its run id.
func (s *Store) Export(ctx context.Context, doc report.Document) (string, error) {
	s.mu.Lock()
	s.exported[doc.RunID] = doc
	s.mu.Unlock()
	return "memory:" + doc.RunID, nil
}

// Written returns the document stored under name.
func (s *Store) Written(name string) (report.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.written[name]
	return d, ok
}

// Exported returns the document exported for runID.
func (s *Store) Exported(runID string) (report.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.exported[runID]
	return d, ok
}
