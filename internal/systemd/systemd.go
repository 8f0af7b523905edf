// Package systemd installs and drives the bot's service unit through
// systemctl. Activation is verified with a bounded polling loop with
// backoff instead of a fixed sleep.
package systemd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gatewatch/botctl/internal/errors"
)

// UnitDir is where installed unit files live.
const UnitDir = "/etc/systemd/system"

// runFunc executes a command and returns its combined output. A seam for
// tests; production uses exec.CommandContext.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Manager wraps systemctl operations for one unit.
type Manager struct {
	unitName string
	unitDir  string
	run      runFunc
}

// New creates a Manager for the given unit name.
func New(unitName string) *Manager {
	return &Manager{
		unitName: unitName,
		unitDir:  UnitDir,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// UnitName returns the managed unit name.
func (m *Manager) UnitName() string {
	return m.unitName
}

// UnitPath returns the installed unit file path.
func (m *Manager) UnitPath() string {
	return filepath.Join(m.unitDir, m.unitName)
}

// InstallUnit copies the template file verbatim into the unit directory
// under the fixed unit name. Returns ErrUnitTemplateMissing if the template
// does not exist; this is checked before any mutation.
func (m *Manager) InstallUnit(templatePath string) error {
	data, err := os.ReadFile(templatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errors.ErrUnitTemplateMissing, templatePath)
		}
		return fmt.Errorf("failed to read unit template: %w", err)
	}

	if err := os.WriteFile(m.UnitPath(), data, 0644); err != nil {
		return fmt.Errorf("failed to install unit file: %w", err)
	}
	return nil
}

// TemplateExists reports whether the unit template is present.
func (m *Manager) TemplateExists(templatePath string) bool {
	_, err := os.Stat(templatePath)
	return err == nil
}

// DaemonReload reloads systemd's unit definitions.
func (m *Manager) DaemonReload(ctx context.Context) error {
	if output, err := m.run(ctx, "systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("daemon-reload failed: %w: %s", err, string(output))
	}
	return nil
}

// Start starts the unit.
func (m *Manager) Start(ctx context.Context) error {
	if output, err := m.run(ctx, "systemctl", "start", m.unitName); err != nil {
		return fmt.Errorf("failed to start %s: %w: %s", m.unitName, err, string(output))
	}
	return nil
}

// Stop stops the unit.
func (m *Manager) Stop(ctx context.Context) error {
	if output, err := m.run(ctx, "systemctl", "stop", m.unitName); err != nil {
		return fmt.Errorf("failed to stop %s: %w: %s", m.unitName, err, string(output))
	}
	return nil
}

// Enable enables the unit for boot-time start.
func (m *Manager) Enable(ctx context.Context) error {
	if output, err := m.run(ctx, "systemctl", "enable", m.unitName); err != nil {
		return fmt.Errorf("failed to enable %s: %w: %s", m.unitName, err, string(output))
	}
	return nil
}

// IsActive reports whether the unit is currently active.
func (m *Manager) IsActive(ctx context.Context) bool {
	output, err := m.run(ctx, "systemctl", "is-active", m.unitName)
	return err == nil && strings.TrimSpace(string(output)) == "active"
}

// WaitActive polls until the unit reports active or the timeout expires,
// backing off between checks. Returns ErrServiceInactive on timeout.
func (m *Manager) WaitActive(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	interval := 200 * time.Millisecond

	for {
		if m.IsActive(ctx) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s within %v", errors.ErrServiceInactive, m.unitName, timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}

		interval *= 2
		if interval > 2*time.Second {
			interval = 2 * time.Second
		}
	}
}

// JournalTail returns the last n journal lines for the unit.
func (m *Manager) JournalTail(ctx context.Context, n int) (string, error) {
	output, err := m.run(ctx, "journalctl", "-u", m.unitName, "-n", fmt.Sprintf("%d", n), "--no-pager")
	if err != nil {
		return "", fmt.Errorf("journalctl failed: %w: %s", err, string(output))
	}
	return string(output), nil
}
