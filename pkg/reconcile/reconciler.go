package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"sort"

	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/logging"
	"github.com/shelfsync/shelfsync/pkg/progress"
)

// Config holds construction options for a Reconciler
type Config struct {
	// Scanner indexes trees into the catalog before comparison
	Scanner *catalog.Scanner

	// Reporter receives throttled progress snapshots; may be nil
	Reporter progress.Reporter

	// Throttle bounds reporter calls; zero values take defaults
	Throttle progress.Throttle

	Logger logging.Logger
}

// Reconciler computes what must be copied, what is already equal, and what
// is ambiguously duplicated between two directory trees.
type Reconciler struct {
	scanner  *catalog.Scanner
	reporter progress.Reporter
	throttle progress.Throttle
	logger   logging.Logger
}

// New creates a reconciler from cfg
func New(cfg Config) *Reconciler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNullLogger()
	}
	return &Reconciler{
		scanner:  cfg.Scanner,
		reporter: cfg.Reporter,
		throttle: cfg.Throttle,
		logger:   cfg.Logger,
	}
}

// Analyze scans and indexes both trees, then classifies every record.
// Matching is by filename (basename), not relative path: a file moved
// between subdirectories of one tree still pairs with the other tree's
// same-named file. Filenames are compared verbatim, case differences are
// never folded.
//
// Cancellation is cooperative: when ctx is cancelled the method stops at
// the next checkpoint and returns a partial Result with Incomplete set,
// not an error. Structural problems (a missing root) abort immediately.
func (r *Reconciler) Analyze(ctx context.Context, treeA, treeB string) (*Result, error) {
	treeA = filepath.Clean(treeA)
	treeB = filepath.Clean(treeB)

	res := &Result{TreeA: treeA, TreeB: treeB}
	em := progress.NewEmitter(r.reporter, r.throttle)

	em.Phase(progress.PhaseStarting, "")

	// Index both trees; each pass also drops stale records for its tree
	for _, pass := range []struct {
		phase progress.Phase
		root  string
	}{
		{progress.PhaseScanA, treeA},
		{progress.PhaseScanB, treeB},
	} {
		em.Phase(pass.phase, pass.root)

		indexed, errs, err := r.scanner.IndexTree(ctx, pass.root, func(path string, rec *catalog.FileRecord) {
			if rec != nil {
				em.FileScanned(rec.Name())
			}
		})
		res.IndexErrors += len(errs)
		if err != nil {
			if isCancellation(err) {
				res.Incomplete = true
				em.Done()
				return res, nil
			}
			return nil, err
		}

		r.logger.Info(ctx, "tree indexed", logging.Fields{
			"root":    pass.root,
			"indexed": indexed,
			"errors":  len(errs),
		})
	}

	em.Phase(progress.PhaseCompare, "")

	recordsA, err := r.scanner.Records(treeA)
	if err != nil {
		return nil, err
	}
	recordsB, err := r.scanner.Records(treeB)
	if err != nil {
		return nil, err
	}

	if err := r.compare(ctx, res, recordsA, recordsB, em); err != nil {
		if isCancellation(err) {
			res.Incomplete = true
			em.Done()
			return res, nil
		}
		return nil, err
	}

	for _, rec := range res.OnlyInA {
		res.SpaceNeededB += rec.Size
	}
	for _, rec := range res.OnlyInB {
		res.SpaceNeededA += rec.Size
	}

	em.Done()

	r.logger.Info(ctx, "analysis complete", logging.Fields{
		"tree_a":            treeA,
		"tree_b":            treeB,
		"only_in_a":         len(res.OnlyInA),
		"only_in_b":         len(res.OnlyInB),
		"exact_matches":     res.ExactMatches,
		"conflicts":         len(res.Conflicts),
		"suspected_renames": len(res.SuspectedRenames),
	})
	return res, nil
}

// compare runs the classification over two record sets already scoped to
// their trees. Records arrive in path order; filenames are processed in
// sorted order so repeated runs over unchanged inputs enumerate uniques
// and conflicts identically.
func (r *Reconciler) compare(ctx context.Context, res *Result, recordsA, recordsB []*catalog.FileRecord, em *progress.Emitter) error {
	byNameA := groupByName(recordsA)
	byNameB := groupByName(recordsB)

	names := make([]string, 0, len(byNameA)+len(byNameB))
	seen := make(map[string]bool)
	for name := range byNameA {
		seen[name] = true
		names = append(names, name)
	}
	for name := range byNameB {
		if !seen[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	// Pairs matched by name per hash, consulted later so cross-name hash
	// matches are not double-reported as renames
	matchedByName := make(map[string]int)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}

		groupA := byNameA[name]
		groupB := byNameB[name]

		switch {
		case len(groupB) == 0:
			res.OnlyInA = append(res.OnlyInA, groupA...)
			em.Checkpoint(name)

		case len(groupA) == 0:
			res.OnlyInB = append(res.OnlyInB, groupB...)
			em.Checkpoint(name)

		default:
			pairs, leftA, leftB := pairByHash(groupA, groupB, matchedByName)
			res.ExactMatches += pairs
			if pairs > 0 {
				// Both records of a pair are confirmed equal
				em.ConfirmEqual(2*pairs, name)
			}
			if len(leftA)+len(leftB) > 0 {
				res.Conflicts = append(res.Conflicts, ConflictGroup{
					Name:  name,
					ASide: leftA,
					BSide: leftB,
				})
			}
			em.Checkpoint(name)
		}
	}

	res.SuspectedRenames = suspectedRenames(byNameA, byNameB, matchedByName)
	return nil
}

// pairByHash sub-groups each side's same-named records by content hash and
// pairs off min(countA, countB) records per shared hash. Whatever cannot
// be paired is returned as the conflict leftovers for that name.
func pairByHash(groupA, groupB []*catalog.FileRecord, matchedByName map[string]int) (pairs int, leftA, leftB []*catalog.FileRecord) {
	byHashA := groupByHash(groupA)
	byHashB := groupByHash(groupB)

	for _, hash := range sortedKeys(byHashA) {
		recsA := byHashA[hash]
		recsB, shared := byHashB[hash]
		if !shared {
			leftA = append(leftA, recsA...)
			continue
		}

		n := min(len(recsA), len(recsB))
		pairs += n
		matchedByName[hash] += n

		leftA = append(leftA, recsA[n:]...)
		leftB = append(leftB, recsB[n:]...)
	}

	for _, hash := range sortedKeys(byHashB) {
		if _, shared := byHashA[hash]; !shared {
			leftB = append(leftB, byHashB[hash]...)
		}
	}
	return pairs, leftA, leftB
}

// suspectedRenames finds content hashes present on both sides whose
// same-name pairing did not account for every occurrence and whose
// filenames are disjoint between the sides: same bytes, different name.
func suspectedRenames(byNameA, byNameB map[string][]*catalog.FileRecord, matchedByName map[string]int) []SuspectedRename {
	countsA, namesA := hashInventory(byNameA)
	countsB, namesB := hashInventory(byNameB)

	var renames []SuspectedRename
	for _, hash := range sortedKeys(countsA) {
		countB, shared := countsB[hash]
		if !shared {
			continue
		}
		remaining := min(countsA[hash], countB) - matchedByName[hash]
		if remaining <= 0 {
			continue
		}
		if !disjoint(namesA[hash], namesB[hash]) {
			continue
		}
		renames = append(renames, SuspectedRename{
			ContentHash: hash,
			ANames:      sortedSet(namesA[hash]),
			BNames:      sortedSet(namesB[hash]),
			PairCount:   remaining,
		})
	}
	return renames
}

func groupByName(records []*catalog.FileRecord) map[string][]*catalog.FileRecord {
	groups := make(map[string][]*catalog.FileRecord)
	for _, rec := range records {
		name := rec.Name()
		groups[name] = append(groups[name], rec)
	}
	return groups
}

func groupByHash(records []*catalog.FileRecord) map[string][]*catalog.FileRecord {
	groups := make(map[string][]*catalog.FileRecord)
	for _, rec := range records {
		groups[rec.ContentHash] = append(groups[rec.ContentHash], rec)
	}
	return groups
}

// hashInventory returns per-hash occurrence counts and the set of names
// each hash appears under
func hashInventory(byName map[string][]*catalog.FileRecord) (map[string]int, map[string]map[string]bool) {
	counts := make(map[string]int)
	names := make(map[string]map[string]bool)
	for name, records := range byName {
		for _, rec := range records {
			counts[rec.ContentHash]++
			if names[rec.ContentHash] == nil {
				names[rec.ContentHash] = make(map[string]bool)
			}
			names[rec.ContentHash][name] = true
		}
	}
	return counts, names
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSet(set map[string]bool) []string {
	return sortedKeys(set)
}

func disjoint(a, b map[string]bool) bool {
	for name := range a {
		if b[name] {
			return false
		}
	}
	return true
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
