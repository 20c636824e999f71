package progress

import (
	"sync"
	"time"
)

// Throttle bounds how often an Emitter calls its reporter: a snapshot goes
// out after MinItems processed items or MinInterval elapsed, whichever
// comes sooner, and always on phase transitions.
type Throttle struct {
	MinInterval time.Duration
	MinItems    int
}

// DefaultThrottle is the policy used when none is configured
func DefaultThrottle() Throttle {
	return Throttle{
		MinInterval: time.Second,
		MinItems:    10,
	}
}

// Emitter is the single throttling policy object shared by every phase of
// a reconciliation job. Counting model: every file indexed during a scan
// phase starts out needing sync; the compare phase moves files to the
// equals column as pairs are confirmed identical. Scanned is always the
// sum of the two columns, so it never goes backwards.
type Emitter struct {
	mu       sync.Mutex
	reporter Reporter
	throttle Throttle

	phase       Phase
	equals      int
	needsSync   int
	currentFile string

	lastEmit  time.Time
	sinceEmit int
}

// NewEmitter creates an emitter reporting to r. A nil reporter yields an
// emitter that only tracks counters.
func NewEmitter(r Reporter, throttle Throttle) *Emitter {
	if throttle.MinInterval <= 0 {
		throttle.MinInterval = DefaultThrottle().MinInterval
	}
	if throttle.MinItems <= 0 {
		throttle.MinItems = DefaultThrottle().MinItems
	}
	return &Emitter{
		reporter: r,
		throttle: throttle,
		phase:    PhaseStarting,
		lastEmit: time.Now(),
	}
}

// Phase records a phase transition and always emits
func (e *Emitter) Phase(phase Phase, file string) {
	e.mu.Lock()
	e.phase = phase
	e.currentFile = file
	e.emitLocked(true, false)
	e.mu.Unlock()
}

// FileScanned counts one indexed file (initially in the needs-sync column)
// and emits if the throttle allows
func (e *Emitter) FileScanned(file string) {
	e.mu.Lock()
	e.needsSync++
	e.sinceEmit++
	e.currentFile = file
	e.emitLocked(false, false)
	e.mu.Unlock()
}

// ConfirmEqual moves n files from the needs-sync column to the equals
// column and emits if the throttle allows
func (e *Emitter) ConfirmEqual(n int, file string) {
	e.mu.Lock()
	e.equals += n
	e.needsSync -= n
	if e.needsSync < 0 {
		e.needsSync = 0
	}
	e.sinceEmit += n
	e.currentFile = file
	e.emitLocked(false, false)
	e.mu.Unlock()
}

// Checkpoint counts one processed item without reclassifying anything,
// and emits if the throttle allows
func (e *Emitter) Checkpoint(file string) {
	e.mu.Lock()
	e.sinceEmit++
	e.currentFile = file
	e.emitLocked(false, false)
	e.mu.Unlock()
}

// Done marks the job finished and always emits a completed snapshot
func (e *Emitter) Done() {
	e.mu.Lock()
	e.phase = PhaseDone
	e.emitLocked(true, true)
	e.mu.Unlock()
}

// Snapshot returns the current counters without emitting
func (e *Emitter) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(false)
}

func (e *Emitter) snapshotLocked(completed bool) Snapshot {
	return Snapshot{
		Phase:       e.phase,
		Scanned:     e.equals + e.needsSync,
		Equals:      e.equals,
		NeedsSync:   e.needsSync,
		CurrentFile: e.currentFile,
		Completed:   completed,
	}
}

func (e *Emitter) emitLocked(force, completed bool) {
	if e.reporter == nil {
		return
	}
	if !force {
		if e.sinceEmit < e.throttle.MinItems && time.Since(e.lastEmit) < e.throttle.MinInterval {
			return
		}
	}
	e.reporter.Report(e.snapshotLocked(completed))
	e.lastEmit = time.Now()
	e.sinceEmit = 0
}
