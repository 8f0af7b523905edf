package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gatewatch/botctl/internal/errors"
	"github.com/gatewatch/botctl/internal/proc"
)

// LockFileName is the lock file within the registry directory. It guards
// mutating operations (start, setup) against concurrent invocations.
const LockFileName = "botctl.lock"

// Lock represents an acquired registry lock.
type Lock struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`

	// Internal fields (not serialized)
	lockPath string
	released bool
}

// AcquireLock attempts to acquire the exclusive registry lock.
// A lock held by a dead process is treated as stale and replaced.
// Returns ErrLocked if another live process holds the lock.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}
	lockPath := filepath.Join(dir, LockFileName)

	// Check for existing lock
	if existing, err := readLock(lockPath); err == nil {
		if proc.IsAlive(existing.PID) {
			return nil, fmt.Errorf("%w: held by PID %d on %s", errors.ErrLocked, existing.PID, existing.Hostname)
		}
		// Stale lock - remove it
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	lock := &Lock{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
		lockPath:   lockPath,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL fails if the file appeared between the stale check and now
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := readLock(lockPath); readErr == nil {
				return nil, fmt.Errorf("%w: held by PID %d on %s", errors.ErrLocked, existing.PID, existing.Hostname)
			}
			return nil, errors.ErrLocked
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	return lock, nil
}

// Release releases the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l.released {
		return nil
	}

	existing, err := readLock(l.lockPath)
	if err != nil {
		// Lock file already gone
		l.released = true
		return nil
	}
	if existing.PID != l.PID {
		// Someone else replaced the lock; it is not ours to remove
		l.released = true
		return nil
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.released = true
	return nil
}

func readLock(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.lockPath = path
	return &lock, nil
}
