package catalog

import (
	"path/filepath"
	"time"
)

// FileRecord is one entry in the catalog: a content-addressed view of a
// single file under a scanned root.
type FileRecord struct {
	// Path is the absolute filesystem path, unique within a catalog
	Path string `json:"path"`

	// Size in bytes
	Size int64 `json:"size"`

	// ContentHash is the hex MD5 digest of the full file content.
	// It is a content-equality fingerprint, not a security primitive.
	ContentHash string `json:"content_hash"`

	// CreatedAt is sourced from filesystem metadata
	CreatedAt time.Time `json:"created_at"`

	// ModifiedAt is the last modification time; nil means unknown
	ModifiedAt *time.Time `json:"modified_at,omitempty"`

	// IndexedAt is when this record was last (re)hashed
	IndexedAt time.Time `json:"indexed_at"`
}

// Name returns the basename of the record's path. Reconciliation matches
// records by basename, not by relative path.
func (r *FileRecord) Name() string {
	return filepath.Base(r.Path)
}

// BestTime returns the most trustworthy timestamp for "newest wins"
// decisions: ModifiedAt when known, otherwise CreatedAt. The second return
// is false when neither is usable.
func (r *FileRecord) BestTime() (time.Time, bool) {
	if r.ModifiedAt != nil && !r.ModifiedAt.IsZero() {
		return *r.ModifiedAt, true
	}
	if !r.CreatedAt.IsZero() {
		return r.CreatedAt, true
	}
	return time.Time{}, false
}
