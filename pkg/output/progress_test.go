package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shelfsync/shelfsync/pkg/progress"
)

func TestBarReporterRendersCounters(t *testing.T) {
	var buf bytes.Buffer
	rep := NewBarReporter(&buf)

	rep.Report(progress.Snapshot{
		Phase:       progress.PhaseCompare,
		Scanned:     3,
		Equals:      1,
		NeedsSync:   2,
		CurrentFile: "notes.txt",
	})
	rep.Report(progress.Snapshot{
		Phase:     progress.PhaseDone,
		Scanned:   3,
		Equals:    3,
		Completed: true,
	})

	out := buf.String()
	if !strings.Contains(out, "done") {
		t.Errorf("output %q is missing the phase", out)
	}
	if !strings.Contains(out, "3 scanned, 3 equal, 0 to sync") {
		t.Errorf("output %q is missing the counters", out)
	}
	if strings.Contains(out, "%") || strings.Contains(out, "[") {
		t.Errorf("counter-only line must not render a completion ratio: %q", out)
	}
}

func TestBarReporterFinishIdempotent(t *testing.T) {
	var buf bytes.Buffer
	rep := NewBarReporter(&buf)
	rep.Finish()
	rep.Finish()
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a plain buffer is not a terminal")
	}
}
