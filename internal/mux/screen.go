package mux

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Screen implements Multiplexer using GNU screen detached sessions.
type Screen struct{}

// Name returns "screen".
func (Screen) Name() string { return "screen" }

// Available reports whether screen is installed.
func (Screen) Available() bool { return binaryAvailable("screen") }

// Launch creates a detached screen session running command in dir.
// screen has no working-directory flag, so the command is wrapped in a shell.
func (s Screen) Launch(ctx context.Context, session, dir, command string) error {
	shellCmd := fmt.Sprintf("cd %q && %s", dir, command)
	cmd := commandContext(ctx, "screen", "-dmS", session, "sh", "-c", shellCmd)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create screen session %q: %w: %s", session, err, string(output))
	}
	return nil
}

// Has reports whether the named screen session exists.
// screen -ls exits non-zero even on success for some versions, so the
// session list is parsed instead of trusting the exit code.
func (s Screen) Has(ctx context.Context, session string) bool {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	output, _ := commandContext(ctx, "screen", "-ls").CombinedOutput()
	return strings.Contains(string(output), "."+session+"\t") ||
		strings.Contains(string(output), "."+session+" ")
}

// Kill terminates the named screen session.
func (s Screen) Kill(ctx context.Context, session string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := commandContext(ctx, "screen", "-S", session, "-X", "quit").Run(); err != nil {
		return fmt.Errorf("failed to kill screen session %q: %w", session, err)
	}
	return nil
}

// Pattern returns a process-table substring matching the session wrapper.
func (s Screen) Pattern(session string) string {
	return "SCREEN.*" + session
}

// commandContext builds a context-aware exec.Cmd for a multiplexer binary.
func commandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, args...)
}
