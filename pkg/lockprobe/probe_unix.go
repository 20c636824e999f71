//go:build unix

package lockprobe

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// New returns the platform prober. On unix it takes a non-blocking
// advisory flock on the file; EWOULDBLOCK means somebody else holds it.
func New() Prober {
	return ProbeFunc(probeFlock)
}

func probeFlock(path string) State {
	f, err := os.Open(path)
	if err != nil {
		return Unknown
	}
	defer f.Close()

	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return Locked
		}
		return Unknown
	}
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
	return Free
}
