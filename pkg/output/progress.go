package output

import (
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/shelfsync/shelfsync/pkg/progress"
)

const barTemplate = `{{string . "phase" | printf "%-9s"}} {{string . "stats"}} {{string . "file"}}`

// BarReporter renders progress snapshots as a single live terminal
// line. It implements progress.Reporter.
type BarReporter struct {
	bar *pb.ProgressBar
}

// NewBarReporter creates a started bar writing to w
func NewBarReporter(w io.Writer) *BarReporter {
	bar := pb.ProgressBarTemplate(barTemplate).New(0)
	bar.SetWriter(w)
	bar.Start()
	return &BarReporter{bar: bar}
}

// Report updates the live line with the latest snapshot. The total file
// count is unknown until a run ends, so the template renders counters
// only and no completion ratio.
func (r *BarReporter) Report(snap progress.Snapshot) {
	r.bar.Set("phase", string(snap.Phase))
	r.bar.Set("stats", snap.String())
	r.bar.Set("file", snap.CurrentFile)
	if snap.Completed {
		r.bar.Finish()
	}
}

// Finish stops the live line; safe to call more than once
func (r *BarReporter) Finish() {
	r.bar.Finish()
}

// IsTerminal reports whether w is an interactive terminal, which
// decides between the live bar and plain output
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
