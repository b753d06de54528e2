//go:build !unix

package lock

import (
	"os"
	"time"
)

// Non-unix platforms rely on the in-process mutex only; the advisory
// file lock degrades to a no-op.
func flockFile(f *os.File, wait time.Duration) error { return nil }

func funlockFile(f *os.File) error { return nil }
