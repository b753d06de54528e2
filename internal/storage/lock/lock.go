package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// pollInterval is how often a bounded Acquire retries a held lock.
const pollInterval = 5 * time.Millisecond

// ErrTimeout is returned when a bounded Acquire gives up. The engine
// wraps it into its own lock-timeout error at the boundary.
var ErrTimeout = fmt.Errorf("lock: wait timed out")

// Registry hands out exclusive per-table locks. Every read-modify-write
// sequence (ID allocation + append, full rewrite, index append/rebuild)
// must run under the lock for its table.
//
// The in-process mutex covers a single engine instance; when fileLocks
// is enabled an OS advisory lock on <dir>/<table>.lock additionally
// fences other processes sharing the data directory.
type Registry struct {
	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	dir       string
	fileLocks bool
	wait      time.Duration // zero means block indefinitely
}

// NewRegistry creates a lock registry rooted at dir.
func NewRegistry(dir string, fileLocks bool, wait time.Duration) *Registry {
	return &Registry{
		locks:     make(map[string]*sync.Mutex),
		dir:       dir,
		fileLocks: fileLocks,
		wait:      wait,
	}
}

// Handle represents a held table lock. Release it exactly once.
type Handle struct {
	mu   *sync.Mutex
	file *os.File
}

// Release unlocks the table. Safe to call on a nil handle.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	if h.file != nil {
		funlockFile(h.file)
		h.file.Close()
		h.file = nil
	}
	if h.mu != nil {
		h.mu.Unlock()
		h.mu = nil
	}
}

func (r *Registry) tableMutex(table string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.locks[table]
	if !ok {
		m = &sync.Mutex{}
		r.locks[table] = m
	}
	return m
}

// Acquire takes the exclusive lock for table, waiting at most the
// registry's configured timeout (forever when zero). On timeout it
// returns ErrTimeout and holds nothing.
func (r *Registry) Acquire(table string) (*Handle, error) {
	m := r.tableMutex(table)

	if r.wait == 0 {
		m.Lock()
	} else {
		deadline := time.Now().Add(r.wait)
		for !m.TryLock() {
			if time.Now().After(deadline) {
				return nil, ErrTimeout
			}
			time.Sleep(pollInterval)
		}
	}

	h := &Handle{mu: m}

	if r.fileLocks {
		f, err := os.OpenFile(r.lockPath(table), os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			h.Release()
			return nil, fmt.Errorf("lock: open lock file for %s: %w", table, err)
		}
		if err := flockFile(f, r.wait); err != nil {
			f.Close()
			h.Release()
			return nil, err
		}
		h.file = f
	}

	return h, nil
}

func (r *Registry) lockPath(table string) string {
	return filepath.Join(r.dir, table+".lock")
}
