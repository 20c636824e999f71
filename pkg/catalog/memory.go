package catalog

import (
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory Store, used for tests and ephemeral runs
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]FileRecord
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]FileRecord)}
}

// Get returns the record for path, or ErrRecordNotFound
func (s *MemoryStore) Get(path string) (*FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[path]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

// Upsert creates or replaces the record keyed by its Path
func (s *MemoryStore) Upsert(rec *FileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Path] = *rec
	return nil
}

// Delete removes the record for path
func (s *MemoryStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, path)
	return nil
}

// ListPrefix returns all records whose path starts with prefix, in path order
func (s *MemoryStore) ListPrefix(prefix string) ([]*FileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*FileRecord
	for path := range s.records {
		if strings.HasPrefix(path, prefix) {
			rec := s.records[path]
			records = append(records, &rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Path < records[j].Path
	})
	return records, nil
}

// Close does nothing
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
