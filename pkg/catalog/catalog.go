package catalog

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned when no record exists for a path
var ErrRecordNotFound = errors.New("catalog: record not found")

// PathNotFoundError indicates a scan root or referenced file does not exist
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

// IsPathNotFound reports whether err is a PathNotFoundError
func IsPathNotFound(err error) bool {
	var pnf *PathNotFoundError
	return errors.As(err, &pnf)
}

// Store is the backing record store for a catalog, keyed by absolute path.
// Implementations must be safe for concurrent use; last-write-wins on a
// given path is acceptable, no cross-record transaction is required.
type Store interface {
	// Get returns the record for path, or ErrRecordNotFound
	Get(path string) (*FileRecord, error)

	// Upsert creates or replaces the record keyed by its Path
	Upsert(rec *FileRecord) error

	// Delete removes the record for path; deleting a missing path is not an error
	Delete(path string) error

	// ListPrefix returns all records whose path starts with prefix,
	// ordered by path
	ListPrefix(prefix string) ([]*FileRecord, error)

	// Close releases any resources held by the store
	Close() error
}
