package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/shelfsync/shelfsync/pkg/catalog"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
)

// Action is what the executor does with one plan item
type Action string

const (
	ActionCopy   Action = "copy"
	ActionDelete Action = "delete"
)

// PlanItem is one planned filesystem change
type PlanItem struct {
	Action     Action `json:"action"`
	SourcePath string `json:"source_path"`
	TargetPath string `json:"target_path,omitempty"`
	SourceHash string `json:"source_hash,omitempty"`
	Size       int64  `json:"size"`
	Reason     string `json:"reason"`
}

// Decision is a caller-supplied resolution for one conflicting record,
// used by the explicit strategy. Paths not covered by a decision are
// left untouched.
type Decision struct {
	// Action is ActionCopy or ActionDelete
	Action Action
	// TargetPath overrides the default mirror location for copies
	TargetPath string
}

// Plan is the ordered set of changes a strategy derives from an
// analysis result. Building a plan touches nothing on disk beyond
// optional mtime probes.
type Plan struct {
	Strategy Strategy   `json:"strategy"`
	Items    []PlanItem `json:"items"`
	Warnings []string   `json:"warnings,omitempty"`
}

// BytesToCopy sums the sizes of all planned copies
func (p *Plan) BytesToCopy() int64 {
	var total int64
	for _, it := range p.Items {
		if it.Action == ActionCopy {
			total += it.Size
		}
	}
	return total
}

// Planner turns analysis results into plans. The filesystem is only
// consulted to re-probe mtimes when catalog timestamps are missing.
type Planner struct {
	fs afero.Fs
}

// NewPlanner creates a planner probing mtimes through fs. A nil fs
// defaults to the operating system filesystem.
func NewPlanner(fs afero.Fs) *Planner {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Planner{fs: fs}
}

// BuildPlan derives the changes needed to resolve res under strategy.
// decisions is consulted only by the explicit strategy, keyed by the
// conflicting record's path. An unknown strategy fails before any item
// is produced.
func (p *Planner) BuildPlan(res *reconcile.Result, strategy Strategy, decisions map[string]Decision) (*Plan, error) {
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	plan := &Plan{Strategy: strategy}

	// Unique files always mirror to the opposite tree, keeping their
	// path relative to their own root.
	for _, rec := range res.OnlyInA {
		plan.addCopy(rec, mirrorPath(res.TreeA, res.TreeB, rec.Path), "unique to first tree")
	}
	for _, rec := range res.OnlyInB {
		plan.addCopy(rec, mirrorPath(res.TreeB, res.TreeA, rec.Path), "unique to second tree")
	}

	for _, group := range res.Conflicts {
		switch strategy {
		case StrategyKeepBoth:
			p.planKeepBoth(plan, res, group)
		case StrategyKeepNewest:
			p.planWinner(plan, res, group, p.newest)
		case StrategyKeepLargest:
			p.planWinner(plan, res, group, largest)
		case StrategyExplicit:
			p.planExplicit(plan, res, group, decisions)
		}
	}
	return plan, nil
}

func (plan *Plan) addCopy(rec *catalog.FileRecord, target, reason string) {
	plan.Items = append(plan.Items, PlanItem{
		Action:     ActionCopy,
		SourcePath: rec.Path,
		TargetPath: target,
		SourceHash: rec.ContentHash,
		Size:       rec.Size,
		Reason:     reason,
	})
}

// planKeepBoth mirrors every conflicting version to the opposite side,
// suffixing the copy with its origin side so nothing is overwritten.
func (p *Planner) planKeepBoth(plan *Plan, res *reconcile.Result, group reconcile.ConflictGroup) {
	for _, rec := range group.ASide {
		target := mirrorPath(res.TreeA, res.TreeB, rec.Path) + ".a"
		plan.addCopy(rec, target, "conflict: keeping both versions")
	}
	for _, rec := range group.BSide {
		target := mirrorPath(res.TreeB, res.TreeA, rec.Path) + ".b"
		plan.addCopy(rec, target, "conflict: keeping both versions")
	}
}

// planWinner picks a single version per conflict group via pick and
// propagates it over the opposite side's name.
func (p *Planner) planWinner(plan *Plan, res *reconcile.Result, group reconcile.ConflictGroup, pick func(a, b []*catalog.FileRecord) (*catalog.FileRecord, bool, string)) {
	winner, fromA, warn := pick(group.ASide, group.BSide)
	if winner == nil {
		return
	}
	if warn != "" {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("%s: %s", group.Name, warn))
	}
	var target string
	if fromA {
		target = mirrorPath(res.TreeA, res.TreeB, winner.Path)
	} else {
		target = mirrorPath(res.TreeB, res.TreeA, winner.Path)
	}
	plan.addCopy(winner, target, fmt.Sprintf("conflict: %s wins", plan.Strategy))
}

func (p *Planner) planExplicit(plan *Plan, res *reconcile.Result, group reconcile.ConflictGroup, decisions map[string]Decision) {
	apply := func(rec *catalog.FileRecord, fromA bool) {
		dec, ok := decisions[rec.Path]
		if !ok {
			return
		}
		switch dec.Action {
		case ActionCopy:
			target := dec.TargetPath
			if target == "" {
				if fromA {
					target = mirrorPath(res.TreeA, res.TreeB, rec.Path)
				} else {
					target = mirrorPath(res.TreeB, res.TreeA, rec.Path)
				}
			}
			plan.addCopy(rec, target, "explicit decision")
		case ActionDelete:
			plan.Items = append(plan.Items, PlanItem{
				Action:     ActionDelete,
				SourcePath: rec.Path,
				Size:       rec.Size,
				Reason:     "explicit decision",
			})
		}
	}
	for _, rec := range group.ASide {
		apply(rec, true)
	}
	for _, rec := range group.BSide {
		apply(rec, false)
	}
}

// newest favors the record with the latest known timestamp, re-probing
// the live mtime when the catalog has none. With no timestamp anywhere
// the first record in input order wins and a warning is attached.
func (p *Planner) newest(aSide, bSide []*catalog.FileRecord) (*catalog.FileRecord, bool, string) {
	var (
		winner   *catalog.FileRecord
		fromA    bool
		winnerAt time.Time
		timed    bool
	)
	consider := func(rec *catalog.FileRecord, a bool) {
		at, ok := rec.BestTime()
		if !ok {
			if info, err := p.fs.Stat(rec.Path); err == nil {
				at, ok = info.ModTime(), true
			}
		}
		if winner == nil {
			winner, fromA, winnerAt, timed = rec, a, at, ok
			return
		}
		if ok && (!timed || at.After(winnerAt)) {
			winner, fromA, winnerAt, timed = rec, a, at, ok
		}
	}
	for _, rec := range aSide {
		consider(rec, true)
	}
	for _, rec := range bSide {
		consider(rec, false)
	}
	if winner != nil && !timed {
		return winner, fromA, "no usable timestamp on any version, keeping the first"
	}
	return winner, fromA, ""
}

func largest(aSide, bSide []*catalog.FileRecord) (*catalog.FileRecord, bool, string) {
	var (
		winner *catalog.FileRecord
		fromA  bool
	)
	for _, rec := range aSide {
		if winner == nil || rec.Size > winner.Size {
			winner, fromA = rec, true
		}
	}
	for _, rec := range bSide {
		if winner == nil || rec.Size > winner.Size {
			winner, fromA = rec, false
		}
	}
	return winner, fromA, ""
}

// mirrorPath maps a path under fromRoot to the same relative location
// under toRoot. A path outside fromRoot falls back to basename-only.
func mirrorPath(fromRoot, toRoot, path string) string {
	rel, err := filepath.Rel(fromRoot, path)
	if err != nil || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(os.PathSeparator) {
		rel = filepath.Base(path)
	}
	return filepath.Join(toRoot, rel)
}
