// Package mux launches and tracks the bot inside a terminal multiplexer
// session (tmux or screen) for the detached start modes. Session readiness
// is verified with a bounded polling loop rather than a fixed sleep, so a
// slow start does not race the verification.
package mux

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/gatewatch/botctl/internal/errors"
)

// Multiplexer manages named detached sessions for one multiplexer binary.
type Multiplexer interface {
	// Name returns the multiplexer binary name ("tmux" or "screen").
	Name() string
	// Available reports whether the multiplexer binary is installed.
	Available() bool
	// Launch starts command detached inside a session with the given name,
	// with dir as the working directory.
	Launch(ctx context.Context, session, dir, command string) error
	// Has reports whether a session with the given name exists.
	Has(ctx context.Context, session string) bool
	// Kill terminates the session and everything inside it.
	Kill(ctx context.Context, session string) error
	// Pattern returns a process-table substring that identifies the session
	// wrapper process, for registry fallback lookups.
	Pattern(session string) string
}

// ForName returns the Multiplexer implementation for name.
func ForName(name string) (Multiplexer, error) {
	switch name {
	case "tmux":
		return Tmux{}, nil
	case "screen":
		return Screen{}, nil
	default:
		return nil, fmt.Errorf("unsupported multiplexer: %q", name)
	}
}

// WaitReady polls until the session exists or the timeout expires, backing
// off between checks. Returns ErrSessionNotFound when the deadline passes
// without the session appearing.
func WaitReady(ctx context.Context, m Multiplexer, session string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	interval := 100 * time.Millisecond

	for {
		if m.Has(ctx, session) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s session %q did not appear within %v",
				errors.ErrSessionNotFound, m.Name(), session, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		// Exponential backoff, capped so the final checks stay responsive
		interval *= 2
		if interval > time.Second {
			interval = time.Second
		}
	}
}

// binaryAvailable reports whether name resolves on PATH.
func binaryAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
