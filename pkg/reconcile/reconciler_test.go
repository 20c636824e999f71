package reconcile

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/progress"
)

type testTrees struct {
	t       *testing.T
	fs      afero.Fs
	scanner *catalog.Scanner
	rec     *Reconciler
}

func newTestTrees(t *testing.T) *testTrees {
	t.Helper()
	fs := afero.NewMemMapFs()
	scanner := catalog.NewScanner(catalog.ScannerConfig{
		Fs:    fs,
		Store: catalog.NewMemoryStore(),
	})
	return &testTrees{
		t:       t,
		fs:      fs,
		scanner: scanner,
		rec:     New(Config{Scanner: scanner}),
	}
}

func (tt *testTrees) write(path, content string) {
	tt.t.Helper()
	if err := afero.WriteFile(tt.fs, path, []byte(content), 0644); err != nil {
		tt.t.Fatalf("failed to write %s: %v", path, err)
	}
}

func (tt *testTrees) analyze() *Result {
	tt.t.Helper()
	res, err := tt.rec.Analyze(context.Background(), "/a", "/b")
	if err != nil {
		tt.t.Fatalf("Analyze failed: %v", err)
	}
	return res
}

func paths(records []*catalog.FileRecord) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Path
	}
	return out
}

func TestAnalyzeMixedTrees(t *testing.T) {
	tt := newTestTrees(t)
	tt.write("/a/report.pdf", "shared-content")
	tt.write("/a/notes.txt", "version-from-a-side-50b")
	tt.write("/b/report.pdf", "shared-content")
	tt.write("/b/notes.txt", "version-from-b-side-longer-60b")

	res := tt.analyze()

	if res.ExactMatches != 1 {
		t.Errorf("ExactMatches = %d, want 1", res.ExactMatches)
	}
	if len(res.OnlyInA) != 0 || len(res.OnlyInB) != 0 {
		t.Errorf("OnlyInA = %v, OnlyInB = %v, want both empty", paths(res.OnlyInA), paths(res.OnlyInB))
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("Conflicts = %d groups, want 1", len(res.Conflicts))
	}

	group := res.Conflicts[0]
	if group.Name != "notes.txt" {
		t.Errorf("conflict name = %s, want notes.txt", group.Name)
	}
	if len(group.ASide) != 1 || len(group.BSide) != 1 {
		t.Errorf("conflict sides = %d/%d, want 1/1", len(group.ASide), len(group.BSide))
	}
	if group.ASide[0].ContentHash == group.BSide[0].ContentHash {
		t.Error("conflicting records should have different hashes")
	}
	if len(res.SuspectedRenames) != 0 {
		t.Errorf("SuspectedRenames = %v, want none", res.SuspectedRenames)
	}
	if res.InSync() {
		t.Error("trees with a conflict must not report in sync")
	}
}

func TestAnalyzeSuspectedRename(t *testing.T) {
	tt := newTestTrees(t)
	tt.write("/a/x.txt", "identical-bytes")
	tt.write("/b/y.txt", "identical-bytes")

	res := tt.analyze()

	if got := paths(res.OnlyInA); !reflect.DeepEqual(got, []string{"/a/x.txt"}) {
		t.Errorf("OnlyInA = %v, want [/a/x.txt]", got)
	}
	if got := paths(res.OnlyInB); !reflect.DeepEqual(got, []string{"/b/y.txt"}) {
		t.Errorf("OnlyInB = %v, want [/b/y.txt]", got)
	}
	if res.ExactMatches != 0 {
		t.Errorf("ExactMatches = %d, want 0", res.ExactMatches)
	}

	if len(res.SuspectedRenames) != 1 {
		t.Fatalf("SuspectedRenames = %d, want 1", len(res.SuspectedRenames))
	}
	ren := res.SuspectedRenames[0]
	if !reflect.DeepEqual(ren.ANames, []string{"x.txt"}) || !reflect.DeepEqual(ren.BNames, []string{"y.txt"}) {
		t.Errorf("rename names = %v / %v, want [x.txt] / [y.txt]", ren.ANames, ren.BNames)
	}
	if ren.PairCount != 1 {
		t.Errorf("PairCount = %d, want 1", ren.PairCount)
	}
}

func TestAnalyzePairingMinimality(t *testing.T) {
	tt := newTestTrees(t)
	// Same basename spread over subdirectories: side A has contents
	// {one: 3, two: 1}, side B has {one: 2, two: 1}.
	tt.write("/a/d1/dup.txt", "content-one")
	tt.write("/a/d2/dup.txt", "content-one")
	tt.write("/a/d3/dup.txt", "content-one")
	tt.write("/a/d4/dup.txt", "content-two")
	tt.write("/b/e1/dup.txt", "content-one")
	tt.write("/b/e2/dup.txt", "content-one")
	tt.write("/b/e3/dup.txt", "content-two")

	res := tt.analyze()

	// min(3,2) + min(1,1) pairs
	if res.ExactMatches != 3 {
		t.Errorf("ExactMatches = %d, want 3", res.ExactMatches)
	}
	if len(res.Conflicts) != 1 {
		t.Fatalf("Conflicts = %d groups, want 1", len(res.Conflicts))
	}
	group := res.Conflicts[0]
	if len(group.ASide) != 1 || len(group.BSide) != 0 {
		t.Errorf("leftovers = %d on A, %d on B, want 1 and 0", len(group.ASide), len(group.BSide))
	}
	if len(res.SuspectedRenames) != 0 {
		t.Errorf("same-name surplus should not look like a rename: %v", res.SuspectedRenames)
	}
}

func TestAnalyzeOnlyInAndSpaceNeeded(t *testing.T) {
	tt := newTestTrees(t)
	tt.write("/a/alpha.txt", "aaaa")
	tt.write("/a/shared.txt", "same")
	tt.write("/b/shared.txt", "same")
	tt.write("/b/beta.txt", "bbbbbbbb")

	res := tt.analyze()

	if got := paths(res.OnlyInA); !reflect.DeepEqual(got, []string{"/a/alpha.txt"}) {
		t.Errorf("OnlyInA = %v", got)
	}
	if got := paths(res.OnlyInB); !reflect.DeepEqual(got, []string{"/b/beta.txt"}) {
		t.Errorf("OnlyInB = %v", got)
	}
	// alpha (4 bytes) must land on the B side, beta (8 bytes) on the A side
	if res.SpaceNeededB != 4 {
		t.Errorf("SpaceNeededB = %d, want 4", res.SpaceNeededB)
	}
	if res.SpaceNeededA != 8 {
		t.Errorf("SpaceNeededA = %d, want 8", res.SpaceNeededA)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	tt := newTestTrees(t)
	for i := 0; i < 5; i++ {
		tt.write(fmt.Sprintf("/a/doc-%d.txt", i), fmt.Sprintf("content-%d", i))
	}
	tt.write("/b/doc-0.txt", "content-0")
	tt.write("/b/doc-1.txt", "different")
	tt.write("/b/extra.txt", "extra")

	first := tt.analyze()
	second := tt.analyze()

	if !reflect.DeepEqual(paths(first.OnlyInA), paths(second.OnlyInA)) {
		t.Errorf("OnlyInA ordering changed between runs: %v vs %v", paths(first.OnlyInA), paths(second.OnlyInA))
	}
	if !reflect.DeepEqual(paths(first.OnlyInB), paths(second.OnlyInB)) {
		t.Errorf("OnlyInB ordering changed between runs")
	}
	if first.ExactMatches != second.ExactMatches {
		t.Errorf("ExactMatches changed: %d vs %d", first.ExactMatches, second.ExactMatches)
	}
	if len(first.Conflicts) != len(second.Conflicts) {
		t.Fatalf("conflict group count changed")
	}
	for i := range first.Conflicts {
		if first.Conflicts[i].Name != second.Conflicts[i].Name {
			t.Errorf("conflict ordering changed at %d: %s vs %s", i, first.Conflicts[i].Name, second.Conflicts[i].Name)
		}
	}
}

func TestAnalyzePartitionCompleteness(t *testing.T) {
	tt := newTestTrees(t)
	tt.write("/a/unique.txt", "u")
	tt.write("/a/same.txt", "same")
	tt.write("/a/clash.txt", "a-version")
	tt.write("/a/sub/clash.txt", "another-a-version")
	tt.write("/b/same.txt", "same")
	tt.write("/b/clash.txt", "b-version")

	res := tt.analyze()

	recordsA, err := tt.scanner.Records("/a")
	if err != nil {
		t.Fatal(err)
	}

	inConflictA := 0
	for _, group := range res.Conflicts {
		inConflictA += len(group.ASide)
	}
	total := res.ExactMatches + len(res.OnlyInA) + inConflictA
	if total != len(recordsA) {
		t.Errorf("partition covers %d records, side A has %d", total, len(recordsA))
	}
}

func TestAnalyzeMissingRoot(t *testing.T) {
	tt := newTestTrees(t)
	tt.write("/a/doc.txt", "x")

	_, err := tt.rec.Analyze(context.Background(), "/a", "/missing")
	if !catalog.IsPathNotFound(err) {
		t.Errorf("err = %v, want PathNotFoundError", err)
	}
}

func TestAnalyzeCancellation(t *testing.T) {
	tt := newTestTrees(t)
	for i := 0; i < 20; i++ {
		tt.write(fmt.Sprintf("/a/doc-%d.txt", i), fmt.Sprintf("a-%d", i))
		tt.write(fmt.Sprintf("/b/doc-%d.txt", i), fmt.Sprintf("b-%d", i))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := tt.rec.Analyze(ctx, "/a", "/b")
	if err != nil {
		t.Fatalf("cancellation should not be an error, got %v", err)
	}
	if !res.Incomplete {
		t.Error("cancelled run must be marked incomplete")
	}
}

func TestAnalyzeReportsConsistentCounters(t *testing.T) {
	fs := afero.NewMemMapFs()
	scanner := catalog.NewScanner(catalog.ScannerConfig{
		Fs:    fs,
		Store: catalog.NewMemoryStore(),
	})
	write := func(path, content string) {
		t.Helper()
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	write("/a/report.pdf", "shared-content")
	write("/a/notes.txt", "version-from-a-side-50b")
	write("/b/report.pdf", "shared-content")
	write("/b/notes.txt", "version-from-b-side-longer-60b")
	write("/a/alpha.txt", "aaaa")
	write("/b/beta.txt", "bbbbbbbb")

	var snaps []progress.Snapshot
	rec := New(Config{
		Scanner:  scanner,
		Reporter: progress.Func(func(snap progress.Snapshot) { snaps = append(snaps, snap) }),
		// report on every processed item so the invariant is checked
		// at each intermediate state, not just on phase transitions
		Throttle: progress.Throttle{MinInterval: time.Nanosecond, MinItems: 1},
	})

	res, err := rec.Analyze(context.Background(), "/a", "/b")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(snaps) == 0 {
		t.Fatal("reporter received no snapshots")
	}
	prevScanned := 0
	for i, snap := range snaps {
		if snap.Scanned != snap.Equals+snap.NeedsSync {
			t.Errorf("snapshot %d: Scanned = %d but Equals+NeedsSync = %d",
				i, snap.Scanned, snap.Equals+snap.NeedsSync)
		}
		if snap.Scanned < prevScanned {
			t.Errorf("snapshot %d: Scanned fell from %d to %d", i, prevScanned, snap.Scanned)
		}
		prevScanned = snap.Scanned
	}

	last := snaps[len(snaps)-1]
	if last.Phase != progress.PhaseDone || !last.Completed {
		t.Errorf("final snapshot = %s/completed=%v, want done/true", last.Phase, last.Completed)
	}
	if res.ExactMatches != 1 || len(res.Conflicts) != 1 {
		t.Errorf("result = %d matches, %d conflict groups, want 1 and 1", res.ExactMatches, len(res.Conflicts))
	}
}

func TestAnalyzeEmptyTrees(t *testing.T) {
	tt := newTestTrees(t)
	if err := tt.fs.MkdirAll("/a", 0755); err != nil {
		t.Fatal(err)
	}
	if err := tt.fs.MkdirAll("/b", 0755); err != nil {
		t.Fatal(err)
	}

	res := tt.analyze()
	if !res.InSync() {
		t.Error("two empty trees must be in sync")
	}
}
