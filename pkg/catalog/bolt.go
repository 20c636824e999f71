package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

const recordsBucket = "records"

// BoltStore is a persistent Store backed by a bbolt database file.
// Records are stored JSON-encoded, keyed by absolute path, so ListPrefix
// maps directly onto a bbolt cursor seek.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) a catalog database at path
func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	db, err := bbolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(recordsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize catalog database: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Get returns the record for path, or ErrRecordNotFound
func (s *BoltStore) Get(path string) (*FileRecord, error) {
	var rec FileRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(recordsBucket)).Get([]byte(path))
		if data == nil {
			return ErrRecordNotFound
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert creates or replaces the record keyed by its Path
func (s *BoltStore) Upsert(rec *FileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).Put([]byte(rec.Path), data)
	})
}

// Delete removes the record for path
func (s *BoltStore) Delete(path string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(recordsBucket)).Delete([]byte(path))
	})
}

// ListPrefix returns all records whose path starts with prefix, in path order
func (s *BoltStore) ListPrefix(prefix string) ([]*FileRecord, error) {
	var records []*FileRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(recordsBucket)).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			var rec FileRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode record %q: %w", k, err)
			}
			records = append(records, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the underlying database
func (s *BoltStore) Close() error {
	return s.db.Close()
}
