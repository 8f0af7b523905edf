package mux

import (
	"context"
	"fmt"
	"time"
)

// commandTimeout bounds individual multiplexer control commands, which
// should return near-instantly.
const commandTimeout = 2 * time.Second

// Tmux implements Multiplexer using tmux detached sessions.
type Tmux struct{}

// Name returns "tmux".
func (Tmux) Name() string { return "tmux" }

// Available reports whether tmux is installed.
func (Tmux) Available() bool { return binaryAvailable("tmux") }

// Launch creates a detached tmux session running command in dir.
func (t Tmux) Launch(ctx context.Context, session, dir, command string) error {
	cmd := commandContext(ctx, "tmux", "new-session", "-d", "-s", session, command)
	cmd.Dir = dir
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create tmux session %q: %w: %s", session, err, string(output))
	}
	return nil
}

// Has reports whether the named tmux session exists.
func (t Tmux) Has(ctx context.Context, session string) bool {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return commandContext(ctx, "tmux", "has-session", "-t", session).Run() == nil
}

// Kill terminates the named tmux session.
func (t Tmux) Kill(ctx context.Context, session string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := commandContext(ctx, "tmux", "kill-session", "-t", session).Run(); err != nil {
		return fmt.Errorf("failed to kill tmux session %q: %w", session, err)
	}
	return nil
}

// Pattern returns a process-table substring matching the session wrapper.
func (t Tmux) Pattern(session string) string {
	return "tmux.*" + session
}
