package reconcile

import (
	"github.com/shelfsync/shelfsync/pkg/catalog"
)

// ConflictGroup collects records that share a filename across both trees
// but could not be paired by content hash: same name, different content.
// Hash-identical pairs for the name have already been paired off; only the
// leftovers appear here. One side may be empty when the other side holds
// excess copies beyond the paired minimum.
type ConflictGroup struct {
	Name  string                `json:"name"`
	ASide []*catalog.FileRecord `json:"a_side"`
	BSide []*catalog.FileRecord `json:"b_side"`
}

// SuspectedRename records a content hash that appears on both sides under
// disjoint filenames, for occurrences not already explained by same-name
// pairing. It is a hint for a human or policy, never auto-resolved.
type SuspectedRename struct {
	ContentHash string   `json:"content_hash"`
	ANames      []string `json:"a_names"`
	BNames      []string `json:"b_names"`
	PairCount   int      `json:"pair_count"`
}

// Result is the full classification of two directory trees' catalogs.
// Every record on a given side lands in exactly one of: an exact-match
// pair, OnlyIn*, or a conflict group side.
type Result struct {
	TreeA string `json:"tree_a"`
	TreeB string `json:"tree_b"`

	// OnlyInA / OnlyInB list records whose filename has no match on the
	// other side, in deterministic (name, path) order
	OnlyInA []*catalog.FileRecord `json:"only_in_a"`
	OnlyInB []*catalog.FileRecord `json:"only_in_b"`

	// ExactMatches counts filename+hash pairs present on both sides
	ExactMatches int `json:"exact_matches_count"`

	Conflicts        []ConflictGroup   `json:"conflicts"`
	SuspectedRenames []SuspectedRename `json:"suspected_renames"`

	// SpaceNeededA / SpaceNeededB are the bytes required on each side to
	// receive the other side's unique files
	SpaceNeededA int64 `json:"space_needed_a"`
	SpaceNeededB int64 `json:"space_needed_b"`

	// IndexErrors counts files that could not be indexed during the scan
	// phases; they are absent from the classification
	IndexErrors int `json:"index_errors,omitempty"`

	// Incomplete marks a partial result produced by cooperative
	// cancellation
	Incomplete bool `json:"incomplete,omitempty"`
}

// InSync reports whether the two trees need no action at all
func (r *Result) InSync() bool {
	return !r.Incomplete &&
		len(r.OnlyInA) == 0 && len(r.OnlyInB) == 0 && len(r.Conflicts) == 0
}

// ConflictRecords returns the total number of records sitting in conflict
// groups across both sides
func (r *Result) ConflictRecords() int {
	n := 0
	for _, g := range r.Conflicts {
		n += len(g.ASide) + len(g.BSide)
	}
	return n
}
