package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/shelfsync/shelfsync/pkg/dedupe"
	"github.com/shelfsync/shelfsync/pkg/reconcile"
	"github.com/shelfsync/shelfsync/pkg/resolve"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	header  *color.Color
	good    *color.Color
	warn    *color.Color
	bad     *color.Color
	NoColor bool
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{
		header: color.New(color.Bold),
		good:   color.New(color.FgGreen),
		warn:   color.New(color.FgYellow),
		bad:    color.New(color.FgRed),
	}
}

// Analysis renders a reconciliation result
func (f *HumanFormatter) Analysis(w io.Writer, res *reconcile.Result) error {
	f.header.Fprintf(w, "Comparing %s <-> %s\n\n", res.TreeA, res.TreeB)

	if res.Incomplete {
		f.warn.Fprintln(w, "Analysis was cancelled; results are partial.")
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  Exact matches:     %d\n", res.ExactMatches)
	fmt.Fprintf(w, "  Only in first:     %d (%s needed on second side)\n", len(res.OnlyInA), FormatBytes(res.SpaceNeededB))
	fmt.Fprintf(w, "  Only in second:    %d (%s needed on first side)\n", len(res.OnlyInB), FormatBytes(res.SpaceNeededA))
	fmt.Fprintf(w, "  Conflicts:         %d groups, %d files\n", len(res.Conflicts), res.ConflictRecords())
	fmt.Fprintf(w, "  Suspected renames: %d\n", len(res.SuspectedRenames))
	if res.IndexErrors > 0 {
		f.bad.Fprintf(w, "  Index errors:      %d\n", res.IndexErrors)
	}
	fmt.Fprintln(w)

	for _, rec := range res.OnlyInA {
		fmt.Fprintf(w, "  + %s (%s, only in first)\n", rec.Path, FormatBytes(rec.Size))
	}
	for _, rec := range res.OnlyInB {
		fmt.Fprintf(w, "  + %s (%s, only in second)\n", rec.Path, FormatBytes(rec.Size))
	}
	for _, group := range res.Conflicts {
		f.warn.Fprintf(w, "  ! %s\n", group.Name)
		for _, rec := range group.ASide {
			fmt.Fprintf(w, "      first:  %s (%s, %s)\n", rec.Path, FormatBytes(rec.Size), rec.ContentHash)
		}
		for _, rec := range group.BSide {
			fmt.Fprintf(w, "      second: %s (%s, %s)\n", rec.Path, FormatBytes(rec.Size), rec.ContentHash)
		}
	}
	for _, ren := range res.SuspectedRenames {
		f.warn.Fprintf(w, "  ? rename: %v <-> %v (hash %s)\n", ren.ANames, ren.BNames, ren.ContentHash)
	}

	if res.InSync() {
		f.good.Fprintln(w, "Trees are in sync.")
	}
	return nil
}

// Execution renders the outcome of applying a plan
func (f *HumanFormatter) Execution(w io.Writer, plan *resolve.Plan, outcome *resolve.Outcome) error {
	f.header.Fprintf(w, "Applied %s strategy: %d planned items\n\n", plan.Strategy, len(plan.Items))

	if outcome.Incomplete {
		f.warn.Fprintln(w, "Execution was cancelled; results are partial.")
	}
	fmt.Fprintf(w, "  Copied:  %d (%s)\n", outcome.Copied, FormatBytes(outcome.BytesCopied))
	fmt.Fprintf(w, "  Skipped: %d (already in sync)\n", outcome.Skipped)
	if outcome.Deleted > 0 {
		fmt.Fprintf(w, "  Deleted: %d\n", outcome.Deleted)
	}

	f.printWarningsAndErrors(w, outcome.Warnings, outcome.Errors)
	return nil
}

// Duplicates renders a whole-catalog duplicate report
func (f *HumanFormatter) Duplicates(w io.Writer, groups []dedupe.Group, savings int64) error {
	if len(groups) == 0 {
		f.good.Fprintln(w, "No duplicates found.")
		return nil
	}

	f.header.Fprintf(w, "%d duplicate groups, %s reclaimable\n\n", len(groups), FormatBytes(savings))
	for _, group := range groups {
		f.warn.Fprintf(w, "  %s (%s each, %d copies)\n", group.ContentHash, FormatBytes(group.Size()), len(group.Records))
		for _, rec := range group.Records {
			fmt.Fprintf(w, "      %s\n", rec.Path)
		}
	}
	return nil
}

// Elimination renders a duplicate elimination outcome
func (f *HumanFormatter) Elimination(w io.Writer, outcome *dedupe.Outcome) error {
	f.header.Fprintln(w, "Duplicate elimination")
	fmt.Fprintf(w, "  Kept:    %d\n", len(outcome.Kept))
	fmt.Fprintf(w, "  Deleted: %d (%s freed)\n", outcome.Deleted, FormatBytes(outcome.BytesFreed))
	if outcome.Swept > 0 {
		fmt.Fprintf(w, "  Stale catalog records dropped: %d\n", outcome.Swept)
	}

	f.printWarningsAndErrors(w, outcome.Warnings, outcome.Errors)
	return nil
}

func (f *HumanFormatter) printWarningsAndErrors(w io.Writer, warnings []string, errs []error) {
	if len(warnings) > 0 {
		fmt.Fprintln(w)
		for _, warn := range warnings {
			f.warn.Fprintf(w, "  warning: %s\n", warn)
		}
	}
	if len(errs) > 0 {
		fmt.Fprintln(w)
		for _, err := range errs {
			f.bad.Fprintf(w, "  error: %v\n", err)
		}
	}
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}
