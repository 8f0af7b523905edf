// Package registry persists a record of the running bot instance: its pid,
// how it was started (attached, screen, tmux, or systemd), the multiplexer
// session name when one exists, and the start time. stop and status consult
// this record first and fall back to process-table pattern matching, so all
// start modes share one tracked handle instead of a heuristic lookup.
//
// Records are JSON files under the state directory, written atomically via
// a temp file and rename.
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

// Mode identifies how the recorded instance was started.
type Mode string

const (
	ModeAttached Mode = "attached"
	ModeScreen   Mode = "screen"
	ModeTmux     Mode = "tmux"
	ModeSystemd  Mode = "systemd"
)

// Record maps a logical service name to its live session handle.
type Record struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Mode      Mode      `json:"mode"`
	Session   string    `json:"session,omitempty"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// Registry stores records in a directory on the local filesystem.
type Registry struct {
	dir string
}

// New creates a Registry rooted at dir, creating the directory if needed.
func New(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}
	return &Registry{dir: dir}, nil
}

// Dir returns the registry directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Save persists the record for its service name, overwriting any previous
// record. The write is atomic.
func (r *Registry) Save(rec Record) error {
	if rec.Name == "" {
		return fmt.Errorf("record name cannot be empty")
	}
	if rec.Hostname == "" {
		if hostname, err := os.Hostname(); err == nil {
			rec.Hostname = hostname
		} else {
			rec.Hostname = "unknown"
		}
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return atomicWriteFile(r.recordPath(rec.Name), data, 0644)
}

// Load returns the record for name.
// Returns ErrRecordNotFound if no record exists.
func (r *Registry) Load(name string) (*Record, error) {
	data, err := os.ReadFile(r.recordPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to read record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record: %w", err)
	}
	return &rec, nil
}

// Clear removes the record for name. Missing records are not an error:
// clearing an already-cleared handle is a no-op.
func (r *Registry) Clear(name string) error {
	if err := os.Remove(r.recordPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove record: %w", err)
	}
	return nil
}

// Verify loads the record for name and checks it against the live process
// table. The record is live only when its pid exists AND, when pattern is
// non-empty, that pid's command line still matches the pattern: a pid
// reused by an unrelated process after the bot died must not pass as the
// bot. Stale records are removed and returned with ErrRecordStale.
func (r *Registry) Verify(name, pattern string) (*Record, error) {
	rec, err := r.Load(name)
	if err != nil {
		return nil, err
	}

	if !proc.IsAlive(rec.PID) {
		_ = r.Clear(name)
		return rec, errors.ErrRecordStale
	}
	if pattern != "" && !proc.PIDMatchesPattern(rec.PID, pattern) {
		_ = r.Clear(name)
		return rec, errors.ErrRecordStale
	}
	return rec, nil
}

func (r *Registry) recordPath(name string) string {
	return filepath.Join(r.dir, name+".json")
}

// atomicWriteFile writes data to path atomically by writing to a temporary
// file first, then renaming. The target file is never partially written.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
