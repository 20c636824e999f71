package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/shelfsync/shelfsync/pkg/logging"
)

// ScannerConfig holds construction options for a Scanner
type ScannerConfig struct {
	// Fs is the filesystem to scan; defaults to the OS filesystem
	Fs afero.Fs

	// Store receives indexed records
	Store Store

	// Extensions is the allow-list of file extensions (with leading dot,
	// case-insensitive). Empty means every regular file is indexed.
	Extensions []string

	// ChunkSize is the hashing read size
	ChunkSize int

	// Workers bounds parallel hashing in IndexTree; defaults to 4
	Workers int

	Logger logging.Logger
}

// Scanner maintains an up-to-date, content-addressed view of the files
// under one or more roots.
type Scanner struct {
	fs         afero.Fs
	store      Store
	hasher     *Hasher
	extensions map[string]bool
	workers    int
	logger     logging.Logger
}

// NewScanner creates a scanner from cfg
func NewScanner(cfg ScannerConfig) *Scanner {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNullLogger()
	}

	exts := make(map[string]bool, len(cfg.Extensions))
	for _, e := range cfg.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}

	return &Scanner{
		fs:         cfg.Fs,
		store:      cfg.Store,
		hasher:     NewHasher(cfg.Fs, cfg.ChunkSize),
		extensions: exts,
		workers:    cfg.Workers,
		logger:     cfg.Logger,
	}
}

// Scan recursively walks root and returns the paths of regular files whose
// extension is in the allow-list, in sorted order. Hidden directories are
// skipped and the walk never leaves root. A missing root yields a
// PathNotFoundError.
func (s *Scanner) Scan(ctx context.Context, root string) ([]string, error) {
	root = filepath.Clean(root)
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, &PathNotFoundError{Path: root}
	}
	if !info.IsDir() {
		return nil, &PathNotFoundError{Path: root}
	}

	var found []string
	err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal
			s.logger.Debug(ctx, "skipping unreadable path", logging.Fields{"path": path, "error": err.Error()})
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if s.allowed(path) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

// Index upserts a record for path: stat, hash and timestamps are always
// refreshed, a record is never trusted stale. Indexing is best-effort; a
// missing, unreadable or non-regular file returns an error the caller is
// expected to count, not abort on.
func (s *Scanner) Index(ctx context.Context, path string) (*FileRecord, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, &PathNotFoundError{Path: path}
	}
	if !info.Mode().IsRegular() {
		return nil, &PathNotFoundError{Path: path}
	}

	hash, err := s.hasher.HashFile(path)
	if err != nil {
		return nil, err
	}

	modTime := info.ModTime()
	rec := &FileRecord{
		Path:        path,
		Size:        info.Size(),
		ContentHash: hash,
		CreatedAt:   modTime,
		ModifiedAt:  &modTime,
		IndexedAt:   time.Now(),
	}

	// Keep original creation time across re-indexing
	if existing, err := s.store.Get(path); err == nil && !existing.CreatedAt.IsZero() {
		rec.CreatedAt = existing.CreatedAt
	}

	if err := s.store.Upsert(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// IndexTree scans root and indexes every discovered file with bounded
// parallel hashing. onFile, if non-nil, is invoked after each file is
// indexed (or failed). It returns the number of files indexed and the
// per-file errors encountered; per-file errors never abort the batch.
func (s *Scanner) IndexTree(ctx context.Context, root string, onFile func(path string, rec *FileRecord)) (int, []error, error) {
	paths, err := s.Scan(ctx, root)
	if err != nil {
		return 0, nil, err
	}

	s.ReconcileStale(ctx, root)

	var (
		mu      sync.Mutex
		indexed int
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			rec, err := s.Index(gctx, path)

			mu.Lock()
			if err != nil {
				errs = append(errs, err)
			} else {
				indexed++
			}
			mu.Unlock()

			if onFile != nil {
				onFile(path, rec)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return indexed, errs, err
	}
	return indexed, errs, nil
}

// ReconcileStale removes catalog records under dir whose file no longer
// exists on disk, scoped strictly to dir. It is a best-effort housekeeping
// pass: failures are logged, never raised. Returns the number of records
// removed.
func (s *Scanner) ReconcileStale(ctx context.Context, dir string) int {
	prefix := filepath.Clean(dir) + string(os.PathSeparator)

	records, err := s.store.ListPrefix(prefix)
	if err != nil {
		s.logger.Warn(ctx, "stale record sweep failed", logging.Fields{"dir": dir, "error": err.Error()})
		return 0
	}

	removed := 0
	for _, rec := range records {
		if _, err := s.fs.Stat(rec.Path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			continue
		}
		if err := s.store.Delete(rec.Path); err != nil {
			s.logger.Warn(ctx, "failed to remove stale record", logging.Fields{"path": rec.Path, "error": err.Error()})
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info(ctx, "removed stale catalog records", logging.Fields{"dir": dir, "count": removed})
	}
	return removed
}

// Records returns the catalog records currently stored under dir
func (s *Scanner) Records(dir string) ([]*FileRecord, error) {
	prefix := filepath.Clean(dir) + string(os.PathSeparator)
	return s.store.ListPrefix(prefix)
}

// Store exposes the scanner's backing record store
func (s *Scanner) Store() Store {
	return s.store
}

func (s *Scanner) allowed(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	return s.extensions[strings.ToLower(filepath.Ext(path))]
}
