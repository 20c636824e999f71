package progress

import (
	"sync"
)

// Store maps job identifiers to their latest Snapshot. It is the injected
// job-status store the engine writes to; callers own the read path (a
// polling endpoint, a CLI ticker) and must never be blocked by a running
// job, so lookups only take a read lock on an in-memory map.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]Snapshot
}

// NewStore creates an empty job-status store
func NewStore() *Store {
	return &Store{jobs: make(map[string]Snapshot)}
}

// Set records the latest snapshot for a job id
func (s *Store) Set(jobID string, snap Snapshot) {
	s.mu.Lock()
	s.jobs[jobID] = snap
	s.mu.Unlock()
}

// Get returns the latest snapshot for a job id. An unknown id yields an
// idle snapshot, not an error.
func (s *Store) Get(jobID string) Snapshot {
	s.mu.RLock()
	snap, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return Snapshot{Phase: PhaseIdle}
	}
	return snap
}

// Reporter returns a Reporter that writes snapshots for jobID into the store
func (s *Store) Reporter(jobID string) Reporter {
	return Func(func(snap Snapshot) {
		s.Set(jobID, snap)
	})
}

// Forget drops the stored snapshot for a job id
func (s *Store) Forget(jobID string) {
	s.mu.Lock()
	delete(s.jobs, jobID)
	s.mu.Unlock()
}
