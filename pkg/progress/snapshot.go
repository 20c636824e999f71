package progress

import "fmt"

// Phase identifies where a reconciliation job currently is
type Phase string

const (
	// PhaseIdle means no job data exists (yet) for a job id
	PhaseIdle Phase = "idle"
	// PhaseStarting is emitted once before any work happens
	PhaseStarting Phase = "starting"
	// PhaseScan is a standalone index pass over a single tree
	PhaseScan Phase = "scan"
	// PhaseScanA is the index pass over the first tree
	PhaseScanA Phase = "scan_a"
	// PhaseScanB is the index pass over the second tree
	PhaseScanB Phase = "scan_b"
	// PhaseCompare is the classification pass over both catalogs
	PhaseCompare Phase = "compare"
	// PhaseDone is emitted once after the job finishes
	PhaseDone Phase = "done"
)

// Snapshot is one observation of a running job. Every snapshot satisfies
// Scanned == Equals + NeedsSync, and Scanned never decreases within a job.
type Snapshot struct {
	Phase       Phase  `json:"phase"`
	Scanned     int    `json:"scanned"`
	Equals      int    `json:"equals"`
	NeedsSync   int    `json:"needs_sync"`
	CurrentFile string `json:"current_file,omitempty"`
	Completed   bool   `json:"completed"`
}

// String renders the counters for one-line displays
func (s Snapshot) String() string {
	return fmt.Sprintf("%d scanned, %d equal, %d to sync", s.Scanned, s.Equals, s.NeedsSync)
}

// Reporter receives throttled progress snapshots from a running job
type Reporter interface {
	Report(snap Snapshot)
}

// Func adapts a plain function to the Reporter interface
type Func func(snap Snapshot)

// Report calls f
func (f Func) Report(snap Snapshot) {
	f(snap)
}
