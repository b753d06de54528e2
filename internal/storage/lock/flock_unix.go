//go:build unix

package lock

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// flockFile takes a BSD advisory exclusive lock on f, polling with
// LOCK_NB so a bounded wait can give up with ErrTimeout.
func flockFile(f *os.File, wait time.Duration) error {
	if wait == 0 {
		return unix.Flock(int(f.Fd()), unix.LOCK_EX)
	}

	deadline := time.Now().Add(wait)
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			return err
		}
		if time.Now().After(deadline) {
			return ErrTimeout
		}
		time.Sleep(pollInterval)
	}
}

func funlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
