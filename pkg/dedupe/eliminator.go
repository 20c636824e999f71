// Package dedupe removes redundant copies of a file, keeping exactly
// one survivor per group.
package dedupe

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/shelfsync/shelfsync/pkg/audit"
	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/lockprobe"
	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
	"github.com/shelfsync/shelfsync/pkg/resolve"
)

// Scope limits which side of each conflict group is eligible for
// elimination
type Scope string

const (
	ScopeBoth Scope = "both"
	ScopeA    Scope = "a"
	ScopeB    Scope = "b"
)

// Outcome reports one elimination batch
type Outcome struct {
	Kept       []string `json:"kept"`
	Deleted    int      `json:"deleted"`
	BytesFreed int64    `json:"bytes_freed"`
	Errors     []error  `json:"-"`
	Warnings   []string `json:"warnings,omitempty"`
	Swept      int      `json:"swept"`
}

// Config wires an Eliminator. Store is required; the Scanner is used
// for the post-batch stale-record sweep and may share the Store.
type Config struct {
	Fs      afero.Fs
	Store   catalog.Store
	Scanner *catalog.Scanner
	Probe   lockprobe.Prober
	Sink    audit.Sink
	Logger  logging.Logger
}

// Eliminator deletes all but the most recently modified file in each
// conflict group. Deletions are best effort per file; the batch always
// runs to the end.
type Eliminator struct {
	fs      afero.Fs
	store   catalog.Store
	scanner *catalog.Scanner
	probe   lockprobe.Prober
	sink    audit.Sink
	logger  logging.Logger
}

// New creates an Eliminator from cfg
func New(cfg Config) *Eliminator {
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
	return &Eliminator{
		fs:      cfg.Fs,
		store:   cfg.Store,
		scanner: cfg.Scanner,
		probe:   cfg.Probe,
		sink:    cfg.Sink,
		logger:  cfg.Logger,
	}
}

// Eliminate keeps the newest file of every group and deletes the rest.
// scope restricts candidates to one side of the groups. sweepRoots are
// swept for ghost catalog records afterwards regardless of how many
// deletions succeeded.
func (e *Eliminator) Eliminate(ctx context.Context, groups []reconcile.ConflictGroup, scope Scope, sweepRoots ...string) (*Outcome, error) {
	outcome := &Outcome{}

	for _, group := range groups {
		candidates := e.candidates(group, scope)
		if len(candidates) < 2 {
			if len(candidates) == 1 {
				outcome.Kept = append(outcome.Kept, candidates[0].Path)
			}
			continue
		}
		keeper, warn := pickKeeper(e.fs, candidates)
		if warn != "" {
			outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("%s: %s", group.Name, warn))
		}
		outcome.Kept = append(outcome.Kept, keeper.Path)
		for _, rec := range candidates {
			if rec == keeper {
				continue
			}
			e.deleteOne(ctx, rec, outcome)
		}
	}

	if e.scanner != nil {
		for _, root := range sweepRoots {
			outcome.Swept += e.scanner.ReconcileStale(ctx, root)
		}
	}

	e.logger.Info(ctx, "duplicate elimination finished", logging.Fields{
		"kept":        len(outcome.Kept),
		"deleted":     outcome.Deleted,
		"bytes_freed": outcome.BytesFreed,
		"errors":      len(outcome.Errors),
	})
	return outcome, nil
}

func (e *Eliminator) candidates(group reconcile.ConflictGroup, scope Scope) []*catalog.FileRecord {
	var out []*catalog.FileRecord
	if scope == ScopeBoth || scope == ScopeA {
		out = append(out, group.ASide...)
	}
	if scope == ScopeBoth || scope == ScopeB {
		out = append(out, group.BSide...)
	}
	return out
}

func (e *Eliminator) deleteOne(ctx context.Context, rec *catalog.FileRecord, outcome *Outcome) {
	info, err := e.fs.Stat(rec.Path)
	if err != nil {
		if os.IsNotExist(err) {
			// Already gone, just drop the record.
			if e.store != nil {
				e.store.Delete(rec.Path)
			}
			return
		}
		outcome.Errors = append(outcome.Errors, fmt.Errorf("stat %s: %w", rec.Path, err))
		return
	}
	if e.probe.Probe(rec.Path) == lockprobe.Locked {
		outcome.Errors = append(outcome.Errors, &resolve.TargetLockedError{Path: rec.Path})
		return
	}
	if err := e.fs.Remove(rec.Path); err != nil {
		outcome.Errors = append(outcome.Errors, fmt.Errorf("delete %s: %w", rec.Path, err))
		return
	}
	if e.store != nil {
		if err := e.store.Delete(rec.Path); err != nil {
			outcome.Errors = append(outcome.Errors, fmt.Errorf("catalog delete for %s: %w", rec.Path, err))
		}
	}
	outcome.Deleted++
	outcome.BytesFreed += info.Size()
	e.sink.Record(ctx, audit.Entry{
		Kind:        audit.KindDelete,
		Description: fmt.Sprintf("deleted duplicate file: %s", rec.Path),
		Path:        rec.Path,
		Bytes:       info.Size(),
		Count:       1,
	})
	e.logger.Debug(ctx, "duplicate deleted", logging.Fields{
		"path":  rec.Path,
		"bytes": info.Size(),
	})
}

// pickKeeper selects the candidate with the latest known timestamp,
// probing the live mtime when the catalog has none. With no timestamp
// anywhere the first candidate in input order survives and a warning
// explains why.
func pickKeeper(fs afero.Fs, candidates []*catalog.FileRecord) (*catalog.FileRecord, string) {
	var (
		keeper *catalog.FileRecord
		at     time.Time
		timed  bool
	)
	for _, rec := range candidates {
		t, ok := rec.BestTime()
		if !ok {
			if info, err := fs.Stat(rec.Path); err == nil {
				t, ok = info.ModTime(), true
			}
		}
		if keeper == nil {
			keeper, at, timed = rec, t, ok
			continue
		}
		if ok && (!timed || t.After(at)) {
			keeper, at, timed = rec, t, ok
		}
	}
	if keeper != nil && !timed {
		return keeper, "no usable timestamp on any candidate, keeping the first"
	}
	return keeper, ""
}
