package resolve

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/shelfsync/shelfsync/pkg/audit"
	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/lockprobe"
	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/ratelimit"
)

// IntegrityError means the re-hash of a copied file disagrees with the
// source hash. It is a hard per-item error, never silently accepted.
type IntegrityError struct {
	Path string
	Want string
	Got  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity mismatch for %s: want %s, got %s", e.Path, e.Want, e.Got)
}

// TargetLockedError means another process holds the file that was about
// to be overwritten or deleted.
type TargetLockedError struct {
	Path string
}

func (e *TargetLockedError) Error() string {
	return fmt.Sprintf("target locked by another process: %s", e.Path)
}

// Outcome reports what an executor run actually did. Partial success is
// a normal result: counters plus the itemized error list, the caller
// decides whether non-empty errors mean overall failure.
type Outcome struct {
	Copied      int      `json:"copied"`
	Skipped     int      `json:"skipped"`
	Deleted     int      `json:"deleted"`
	BytesCopied int64    `json:"bytes_copied"`
	Errors      []error  `json:"-"`
	Warnings    []string `json:"warnings,omitempty"`
	Incomplete  bool     `json:"incomplete,omitempty"`
}

// ErrorStrings renders the accumulated errors for serialization
func (o *Outcome) ErrorStrings() []string {
	out := make([]string, len(o.Errors))
	for i, err := range o.Errors {
		out[i] = err.Error()
	}
	return out
}

// ExecutorConfig wires an Executor's collaborators. Zero values get
// working defaults; Store is required.
type ExecutorConfig struct {
	Fs        afero.Fs
	Store     catalog.Store
	Probe     lockprobe.Prober
	Sink      audit.Sink
	Limiter   *ratelimit.Limiter
	Logger    logging.Logger
	ChunkSize int
}

// Executor applies a Plan to the filesystem, one item at a time. A
// single item's failure never aborts the batch. Copy-and-verify for one
// target path is serialized against other executors sharing the same
// Executor value.
type Executor struct {
	fs      afero.Fs
	store   catalog.Store
	hasher  *catalog.Hasher
	probe   lockprobe.Prober
	sink    audit.Sink
	limiter *ratelimit.Limiter
	logger  logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewExecutor creates an executor from cfg
func NewExecutor(cfg ExecutorConfig) *Executor {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Probe == nil {
		cfg.Probe = lockprobe.New()
	}
	if cfg.Sink == nil {
		cfg.Sink = audit.NullSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNullLogger()
	}
	return &Executor{
		fs:      cfg.Fs,
		store:   cfg.Store,
		hasher:  catalog.NewHasher(cfg.Fs, cfg.ChunkSize),
		probe:   cfg.Probe,
		sink:    cfg.Sink,
		limiter: cfg.Limiter,
		logger:  cfg.Logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Apply executes every item in plan. Cancellation is observed between
// items and yields a partial Outcome with Incomplete set, not an error.
func (e *Executor) Apply(ctx context.Context, plan *Plan) (*Outcome, error) {
	outcome := &Outcome{Warnings: append([]string(nil), plan.Warnings...)}

	for _, item := range plan.Items {
		if ctx.Err() != nil {
			outcome.Incomplete = true
			e.logger.Warn(ctx, "execution cancelled", logging.Fields{
				"copied":  outcome.Copied,
				"deleted": outcome.Deleted,
			})
			return outcome, nil
		}
		switch item.Action {
		case ActionCopy:
			e.copyItem(ctx, item, outcome)
		case ActionDelete:
			e.deleteItem(ctx, item, outcome)
		default:
			outcome.Errors = append(outcome.Errors, fmt.Errorf("unknown plan action %q for %s", item.Action, item.SourcePath))
		}
	}

	e.logger.Info(ctx, "execution finished", logging.Fields{
		"copied":  outcome.Copied,
		"skipped": outcome.Skipped,
		"deleted": outcome.Deleted,
		"bytes":   outcome.BytesCopied,
		"errors":  len(outcome.Errors),
	})
	return outcome, nil
}

func (e *Executor) copyItem(ctx context.Context, item PlanItem, outcome *Outcome) {
	unlock := e.lockTarget(item.TargetPath)
	defer unlock()

	srcInfo, err := e.fs.Stat(item.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			outcome.Errors = append(outcome.Errors, &catalog.PathNotFoundError{Path: item.SourcePath})
		} else {
			outcome.Errors = append(outcome.Errors, fmt.Errorf("stat source %s: %w", item.SourcePath, err))
		}
		return
	}

	wantHash := item.SourceHash
	if wantHash == "" {
		wantHash, err = e.hasher.HashFile(item.SourcePath)
		if err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Errorf("hash source %s: %w", item.SourcePath, err))
			return
		}
	}

	if err := e.fs.MkdirAll(filepath.Dir(item.TargetPath), 0o755); err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Errorf("create target directory for %s: %w", item.TargetPath, err))
		return
	}

	// An existing target with the same content is already synced.
	if _, err := e.fs.Stat(item.TargetPath); err == nil {
		if existing, herr := e.hasher.HashFile(item.TargetPath); herr == nil && existing == wantHash {
			outcome.Skipped++
			e.logger.Debug(ctx, "target already in sync", logging.Fields{"target": item.TargetPath})
			return
		}
		if e.probe.Probe(item.TargetPath) == lockprobe.Locked {
			outcome.Errors = append(outcome.Errors, &TargetLockedError{Path: item.TargetPath})
			return
		}
	}

	if err := e.copyBytes(ctx, item.SourcePath, item.TargetPath, srcInfo); err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Errorf("copy %s to %s: %w", item.SourcePath, item.TargetPath, err))
		return
	}

	gotHash, err := e.hasher.HashFile(item.TargetPath)
	if err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Errorf("verify %s: %w", item.TargetPath, err))
		return
	}
	if gotHash != wantHash {
		outcome.Errors = append(outcome.Errors, &IntegrityError{Path: item.TargetPath, Want: wantHash, Got: gotHash})
		return
	}

	now := time.Now()
	modTime := srcInfo.ModTime()
	if e.store != nil {
		rec := &catalog.FileRecord{
			Path:        item.TargetPath,
			Size:        srcInfo.Size(),
			ContentHash: gotHash,
			CreatedAt:   modTime,
			ModifiedAt:  &modTime,
			IndexedAt:   now,
		}
		if err := e.store.Upsert(rec); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Errorf("catalog update for %s: %w", item.TargetPath, err))
			return
		}
	}

	outcome.Copied++
	outcome.BytesCopied += srcInfo.Size()
	e.sink.Record(ctx, audit.Entry{
		Kind:        audit.KindSync,
		Description: fmt.Sprintf("copied %s to %s (%s)", item.SourcePath, item.TargetPath, item.Reason),
		Path:        item.TargetPath,
		Bytes:       srcInfo.Size(),
		Count:       1,
		Time:        now,
	})
	e.logger.Debug(ctx, "file copied", logging.Fields{
		"source": item.SourcePath,
		"target": item.TargetPath,
		"bytes":  srcInfo.Size(),
	})
}

func (e *Executor) copyBytes(ctx context.Context, src, dst string, srcInfo os.FileInfo) error {
	in, err := e.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := e.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, ratelimit.NewReader(ctx, in, e.limiter)); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// Mirror the source's timestamps so "newest wins" stays stable on
	// the next run.
	if err := e.fs.Chtimes(dst, time.Now(), srcInfo.ModTime()); err != nil {
		e.logger.Debug(ctx, "could not preserve mtime", logging.Fields{"target": dst, "error": err.Error()})
	}
	return nil
}

func (e *Executor) deleteItem(ctx context.Context, item PlanItem, outcome *Outcome) {
	unlock := e.lockTarget(item.SourcePath)
	defer unlock()

	info, err := e.fs.Stat(item.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			outcome.Skipped++
			return
		}
		outcome.Errors = append(outcome.Errors, fmt.Errorf("stat %s: %w", item.SourcePath, err))
		return
	}
	if e.probe.Probe(item.SourcePath) == lockprobe.Locked {
		outcome.Errors = append(outcome.Errors, &TargetLockedError{Path: item.SourcePath})
		return
	}
	if err := e.fs.Remove(item.SourcePath); err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Errorf("delete %s: %w", item.SourcePath, err))
		return
	}
	if e.store != nil {
		if err := e.store.Delete(item.SourcePath); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Errorf("catalog delete for %s: %w", item.SourcePath, err))
		}
	}
	outcome.Deleted++
	e.sink.Record(ctx, audit.Entry{
		Kind:        audit.KindDelete,
		Description: fmt.Sprintf("deleted %s (%s)", item.SourcePath, item.Reason),
		Path:        item.SourcePath,
		Bytes:       info.Size(),
		Count:       1,
	})
}

// lockTarget serializes work on one target path across goroutines using
// the same Executor
func (e *Executor) lockTarget(path string) func() {
	key := filepath.Clean(path)
	e.mu.Lock()
	lock, ok := e.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[key] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}
