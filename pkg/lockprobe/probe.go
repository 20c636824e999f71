// Package lockprobe answers a single question: does another process
// appear to hold the given file open for writing? The answer is best
// effort; platforms without a usable primitive report Unknown.
package lockprobe

// State is the outcome of a probe
type State int

const (
	// Free means no lock was detected
	Free State = iota
	// Locked means another process holds the file
	Locked
	// Unknown means the platform could not tell
	Unknown
)

// Prober checks whether a file is held by another process
type Prober interface {
	Probe(path string) State
}

// ProbeFunc adapts a function to the Prober interface
type ProbeFunc func(path string) State

// Probe calls f
func (f ProbeFunc) Probe(path string) State { return f(path) }

// AlwaysFree reports every path as free, used in tests and dry runs
var AlwaysFree = ProbeFunc(func(string) State { return Free })
