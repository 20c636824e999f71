package dedupe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/shelfsync/shelfsync/pkg/audit"
	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/lockprobe"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
	"github.com/shelfsync/shelfsync/pkg/resolve"
)

type eliminatorFixture struct {
	t     *testing.T
	fs    afero.Fs
	store *catalog.MemoryStore
	sink  *audit.MemorySink
	elim  *Eliminator
}

func newEliminatorFixture(t *testing.T, probe lockprobe.Prober) *eliminatorFixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := catalog.NewMemoryStore()
	sink := &audit.MemorySink{}
	if probe == nil {
		probe = lockprobe.AlwaysFree
	}
	return &eliminatorFixture{
		t:     t,
		fs:    fs,
		store: store,
		sink:  sink,
		elim: New(Config{
			Fs:    fs,
			Store: store,
			Probe: probe,
			Sink:  sink,
		}),
	}
}

// record writes the file and registers a catalog record with the given
// modification time. A zero modTime leaves the record timestamp-free.
func (f *eliminatorFixture) record(path, content string, modTime time.Time) *catalog.FileRecord {
	f.t.Helper()
	if err := afero.WriteFile(f.fs, path, []byte(content), 0644); err != nil {
		f.t.Fatal(err)
	}
	rec := &catalog.FileRecord{
		Path:        path,
		Size:        int64(len(content)),
		ContentHash: "h-" + content,
		IndexedAt:   time.Now(),
	}
	if !modTime.IsZero() {
		rec.ModifiedAt = &modTime
		if err := f.fs.Chtimes(path, modTime, modTime); err != nil {
			f.t.Fatal(err)
		}
	}
	if err := f.store.Upsert(rec); err != nil {
		f.t.Fatal(err)
	}
	return rec
}

func (f *eliminatorFixture) exists(path string) bool {
	_, err := f.fs.Stat(path)
	return err == nil
}

func TestEliminateKeepsNewest(t *testing.T) {
	f := newEliminatorFixture(t, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	old1 := f.record("/a/book.pdf", "same", base)
	newest := f.record("/a/archive/book.pdf", "same", base.Add(48*time.Hour))
	old2 := f.record("/b/book.pdf", "same", base.Add(time.Hour))

	groups := []reconcile.ConflictGroup{{
		Name:  "book.pdf",
		ASide: []*catalog.FileRecord{old1, newest},
		BSide: []*catalog.FileRecord{old2},
	}}

	outcome, err := f.elim.Eliminate(context.Background(), groups, ScopeBoth)
	if err != nil {
		t.Fatal(err)
	}

	if outcome.Deleted != 2 {
		t.Errorf("deleted = %d, want 2", outcome.Deleted)
	}
	if len(outcome.Kept) != 1 || outcome.Kept[0] != newest.Path {
		t.Errorf("kept = %v, want [%s]", outcome.Kept, newest.Path)
	}
	if !f.exists(newest.Path) {
		t.Error("keeper was removed")
	}
	if f.exists(old1.Path) || f.exists(old2.Path) {
		t.Error("losers still on disk")
	}
	if _, err := f.store.Get(old1.Path); err == nil {
		t.Error("deleted file still has a catalog record")
	}
	if outcome.BytesFreed != 8 {
		t.Errorf("bytes freed = %d, want 8", outcome.BytesFreed)
	}
	if entries := f.sink.Entries(); len(entries) != 2 {
		t.Errorf("audit entries = %d, want 2", len(entries))
	}
}

func TestEliminateNoTimestampKeepsFirst(t *testing.T) {
	f := newEliminatorFixture(t, nil)

	// Records without timestamps pointing at files that are also gone,
	// so the live mtime fallback cannot help either.
	first := &catalog.FileRecord{Path: "/a/ghost.txt", Size: 3, ContentHash: "x"}
	second := &catalog.FileRecord{Path: "/b/ghost.txt", Size: 3, ContentHash: "x"}
	f.store.Upsert(first)
	f.store.Upsert(second)

	groups := []reconcile.ConflictGroup{{
		Name:  "ghost.txt",
		ASide: []*catalog.FileRecord{first},
		BSide: []*catalog.FileRecord{second},
	}}

	outcome, err := f.elim.Eliminate(context.Background(), groups, ScopeBoth)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Kept) != 1 || outcome.Kept[0] != first.Path {
		t.Errorf("kept = %v, want the first candidate", outcome.Kept)
	}
	if len(outcome.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", outcome.Warnings)
	}
	// The loser's file is already gone: record dropped, nothing deleted.
	if outcome.Deleted != 0 {
		t.Errorf("deleted = %d, want 0", outcome.Deleted)
	}
	if _, err := f.store.Get(second.Path); err == nil {
		t.Error("ghost record survived")
	}
}

func TestEliminateLockedCandidate(t *testing.T) {
	probe := lockprobe.ProbeFunc(func(path string) lockprobe.State {
		if path == "/b/busy.pdf" {
			return lockprobe.Locked
		}
		return lockprobe.Free
	})
	f := newEliminatorFixture(t, probe)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	keeper := f.record("/a/busy.pdf", "data", base.Add(time.Hour))
	locked := f.record("/b/busy.pdf", "data", base)

	groups := []reconcile.ConflictGroup{{
		Name:  "busy.pdf",
		ASide: []*catalog.FileRecord{keeper},
		BSide: []*catalog.FileRecord{locked},
	}}

	outcome, err := f.elim.Eliminate(context.Background(), groups, ScopeBoth)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Errors) != 1 {
		t.Fatalf("errors = %v, want one", outcome.Errors)
	}
	var lockErr *resolve.TargetLockedError
	if !errors.As(outcome.Errors[0], &lockErr) {
		t.Fatalf("error = %v, want TargetLockedError", outcome.Errors[0])
	}
	if !f.exists(locked.Path) {
		t.Error("locked file must be left in place")
	}
}

func TestEliminateScope(t *testing.T) {
	f := newEliminatorFixture(t, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a1 := f.record("/a/doc.txt", "v", base.Add(time.Hour))
	a2 := f.record("/a/copies/doc.txt", "v", base)
	b1 := f.record("/b/doc.txt", "v", base.Add(2*time.Hour))

	groups := []reconcile.ConflictGroup{{
		Name:  "doc.txt",
		ASide: []*catalog.FileRecord{a1, a2},
		BSide: []*catalog.FileRecord{b1},
	}}

	outcome, err := f.elim.Eliminate(context.Background(), groups, ScopeA)
	if err != nil {
		t.Fatal(err)
	}

	// Only the first tree is touched even though the second holds the
	// newest copy overall.
	if outcome.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", outcome.Deleted)
	}
	if !f.exists(b1.Path) {
		t.Error("out-of-scope file was deleted")
	}
	if !f.exists(a1.Path) || f.exists(a2.Path) {
		t.Error("wrong candidate deleted within scope")
	}
}

func TestEliminateSingleCandidateUntouched(t *testing.T) {
	f := newEliminatorFixture(t, nil)
	only := f.record("/a/alone.txt", "x", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	groups := []reconcile.ConflictGroup{{
		Name:  "alone.txt",
		ASide: []*catalog.FileRecord{only},
	}}

	outcome, err := f.elim.Eliminate(context.Background(), groups, ScopeBoth)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Deleted != 0 || !f.exists(only.Path) {
		t.Errorf("single candidate must survive, outcome = %+v", outcome)
	}
	if len(outcome.Kept) != 1 {
		t.Errorf("kept = %v", outcome.Kept)
	}
}

func TestEliminateSweepsStaleRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := catalog.NewMemoryStore()
	scanner := catalog.NewScanner(catalog.ScannerConfig{Fs: fs, Store: store})
	elim := New(Config{Fs: fs, Store: store, Scanner: scanner, Probe: lockprobe.AlwaysFree})

	if err := fs.MkdirAll("/a", 0755); err != nil {
		t.Fatal(err)
	}
	// A record for a file that no longer exists under the sweep root.
	store.Upsert(&catalog.FileRecord{Path: "/a/vanished.txt", Size: 1, ContentHash: "x"})

	outcome, err := elim.Eliminate(context.Background(), nil, ScopeBoth, "/a")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Swept != 1 {
		t.Errorf("swept = %d, want 1", outcome.Swept)
	}
	if _, err := store.Get("/a/vanished.txt"); err == nil {
		t.Error("stale record survived the sweep")
	}
}
