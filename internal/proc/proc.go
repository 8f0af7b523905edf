// Package proc finds and signals the managed bot process. Lookup is a
// command-line pattern match against the live process table (pgrep -f);
// termination is graceful with bounded escalation: SIGTERM, a polled wait,
// then SIGKILL of the remaining process tree.
package proc

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gatewatch/botctl/internal/errors"
)

// DefaultGracePeriod is the default time to wait after SIGTERM before
// force-killing a process that has not exited.
const DefaultGracePeriod = 5 * time.Second

// FindByPattern returns the PIDs of processes whose full command line matches
// pattern. The calling process is excluded from the result. Returns
// ErrNotRunning when nothing matches.
func FindByPattern(pattern string) ([]int, error) {
	cmd := exec.Command("pgrep", "-f", pattern)
	output, err := cmd.Output()
	if err != nil {
		// pgrep exits 1 when no processes match
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return nil, errors.ErrNotRunning
		}
		return nil, fmt.Errorf("pgrep failed: %w", err)
	}

	self := os.Getpid()
	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil || pid == self {
			continue
		}
		pids = append(pids, pid)
	}

	if len(pids) == 0 {
		return nil, errors.ErrNotRunning
	}
	return pids, nil
}

// PIDMatchesPattern reports whether pid is among the processes whose
// command line matches pattern. Distinguishes the recorded bot from an
// unrelated process that reused its pid after the bot died.
func PIDMatchesPattern(pid int, pattern string) bool {
	pids, err := FindByPattern(pattern)
	if err != nil {
		return false
	}
	for _, p := range pids {
		if p == pid {
			return true
		}
	}
	return false
}

// IsAlive checks if a process with the given PID exists.
// Uses kill(pid, 0) which checks for process existence without sending a signal.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil
}

// DescendantPIDs returns all descendant PIDs of the given PID (recursive).
// Uses pgrep -P to find child processes.
func DescendantPIDs(pid int) []int {
	if pid <= 0 {
		return nil
	}
	return descendantPIDs(pid)
}

func descendantPIDs(pid int) []int {
	cmd := exec.Command("pgrep", "-P", strconv.Itoa(pid))
	output, err := cmd.Output()
	if err != nil {
		return nil
	}

	var descendants []int
	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		childPID, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		descendants = append(descendants, childPID)
		descendants = append(descendants, descendantPIDs(childPID)...)
	}
	return descendants
}

// WaitForExit polls until the given PID exits or the timeout is reached.
// Returns true if the process exited within the timeout, false if it's
// still alive.
func WaitForExit(pid int, timeout time.Duration) bool {
	if pid <= 0 || !IsAlive(pid) {
		return true
	}

	deadline := time.After(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return !IsAlive(pid)
		case <-ticker.C:
			if !IsAlive(pid) {
				return true
			}
		}
	}
}

// KillTree sends SIGKILL to a process and all its descendants.
// Descendants are killed first (bottom-up) to prevent orphaning.
func KillTree(pid int) {
	if pid <= 0 {
		return
	}

	// Capture the tree before killing so we can traverse it
	descendants := DescendantPIDs(pid)

	for i := len(descendants) - 1; i >= 0; i-- {
		if IsAlive(descendants[i]) {
			_ = syscall.Kill(descendants[i], syscall.SIGKILL)
		}
	}

	if IsAlive(pid) {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}

// Terminate stops pid gracefully: SIGTERM first, a polled wait of up to
// grace, then SIGKILL of the whole remaining tree. Returns ErrNotRunning if
// the process was already gone.
func Terminate(pid int, grace time.Duration) error {
	if !IsAlive(pid) {
		return errors.ErrNotRunning
	}

	// Capture descendants while the process is alive so survivors can be
	// collected after the parent dies.
	tree := append([]int{pid}, DescendantPIDs(pid)...)

	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		if err == syscall.ESRCH {
			return errors.ErrNotRunning
		}
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}

	if WaitForExit(pid, grace) {
		// Parent exited in time; sweep any orphaned children
		for _, p := range tree[1:] {
			if IsAlive(p) {
				KillTree(p)
			}
		}
		return nil
	}

	for _, p := range tree {
		if IsAlive(p) {
			KillTree(p)
		}
	}
	return nil
}
