// Package lifecycle implements the manual (non-systemd) operation of the
// bot: attached and detached starts, dependency provisioning, stop with
// graceful escalation, status, and restart. The session registry is the
// source of truth for what is running; the process table is the fallback
// when no record exists.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/gatewatch/botctl/internal/config"
	"github.com/gatewatch/botctl/internal/envfile"
	"github.com/gatewatch/botctl/internal/errors"
	"github.com/gatewatch/botctl/internal/logging"
	"github.com/gatewatch/botctl/internal/mux"
	"github.com/gatewatch/botctl/internal/proc"
	"github.com/gatewatch/botctl/internal/registry"
)

// runFunc executes a host command and returns its combined output.
// A seam for tests; production uses exec.CommandContext.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Manager drives the bot process outside systemd.
type Manager struct {
	cfg    *config.Config
	reg    *registry.Registry
	logger *logging.Logger
	out    io.Writer

	// Seams for tests
	run       runFunc
	findPIDs  func(pattern string) ([]int, error)
	terminate func(pid int, grace time.Duration) error
}

// New creates a Manager. out receives operator-facing progress output.
func New(cfg *config.Config, reg *registry.Registry, logger *logging.Logger, out io.Writer) *Manager {
	if out == nil {
		out = os.Stdout
	}
	return &Manager{
		cfg:    cfg,
		reg:    reg,
		logger: logger,
		out:    out,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		findPIDs:  proc.FindByPattern,
		terminate: proc.Terminate,
	}
}

// serviceName is the registry key for the single managed instance.
func (m *Manager) serviceName() string {
	return m.cfg.Bot.SessionName
}

// EnsureVenv creates the virtual environment if it does not exist.
// Returns true when it was freshly created.
func (m *Manager) EnsureVenv(ctx context.Context) (bool, error) {
	if _, err := os.Stat(m.cfg.VenvPython()); err == nil {
		return false, nil
	}

	fmt.Fprintf(m.out, "creating virtual environment in %s\n", m.cfg.Paths.VenvDir)
	if output, err := m.run(ctx, "python3", "-m", "venv", m.cfg.Paths.VenvDir); err != nil {
		return false, fmt.Errorf("venv creation failed: %w: %s", err, string(output))
	}
	return true, nil
}

// EnsureDeps installs the declared dependencies when the venv is fresh or
// force is set.
func (m *Manager) EnsureDeps(ctx context.Context, force bool) error {
	fresh, err := m.EnsureVenv(ctx)
	if err != nil {
		return err
	}
	if !fresh && !force {
		return nil
	}

	requirements := filepath.Join(m.cfg.Paths.InstallDir, m.cfg.Bot.Requirements)
	if _, err := os.Stat(requirements); err != nil {
		return fmt.Errorf("requirements file not found: %s", requirements)
	}

	fmt.Fprintln(m.out, "installing dependencies")
	if output, err := m.run(ctx, m.cfg.VenvPip(), "install", "-r", requirements); err != nil {
		return fmt.Errorf("pip install failed: %w: %s", err, string(output))
	}
	return nil
}

// requireEnvFile fails when the secrets file has not been created.
// Manual starts never create it; that is setup's job.
func (m *Manager) requireEnvFile() error {
	if !envfile.Exists(m.cfg.Paths.EnvFile) {
		return fmt.Errorf("%w: %s (run botctl setup first)", errors.ErrEnvFileMissing, m.cfg.Paths.EnvFile)
	}
	return nil
}

// Start runs the bot attached to the current terminal, blocking until the
// bot exits or the context is canceled. The registry records the instance
// for the duration of the run.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.requireEnvFile(); err != nil {
		return err
	}
	if err := m.EnsureDeps(ctx, false); err != nil {
		return err
	}

	lock, err := registry.AcquireLock(m.reg.Dir())
	if err != nil {
		return err
	}
	defer lock.Release()

	if rec, err := m.reg.Verify(m.serviceName(), m.cfg.EntrypointPath()); err == nil {
		return fmt.Errorf("%w: pid %d (%s)", errors.ErrAlreadyRunning, rec.PID, rec.Mode)
	}

	log := m.logger.WithVerb("start")
	cmd := exec.CommandContext(ctx, m.cfg.VenvPython(), m.cfg.EntrypointPath())
	cmd.Dir = m.cfg.Paths.InstallDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start bot: %w", err)
	}

	rec := registry.Record{
		Name:      m.serviceName(),
		PID:       cmd.Process.Pid,
		Mode:      registry.ModeAttached,
		StartedAt: time.Now(),
	}
	if err := m.reg.Save(rec); err != nil {
		log.Warn("failed to record session", "error", err)
	}
	log.Info("bot started attached", "pid", cmd.Process.Pid)

	waitErr := cmd.Wait()
	if err := m.reg.Clear(m.serviceName()); err != nil {
		log.Warn("failed to clear session record", "error", err)
	}
	if waitErr != nil {
		return fmt.Errorf("bot exited: %w", waitErr)
	}
	return nil
}

// StartDetached launches the bot inside a named multiplexer session
// ("screen" or "tmux"), verifies the session appeared, and records the
// handle in the registry.
func (m *Manager) StartDetached(ctx context.Context, muxName string) error {
	if err := m.requireEnvFile(); err != nil {
		return err
	}
	if err := m.EnsureDeps(ctx, false); err != nil {
		return err
	}

	mp, err := mux.ForName(muxName)
	if err != nil {
		return err
	}
	if !mp.Available() {
		return fmt.Errorf("%s is not installed", mp.Name())
	}

	// Held only for the launch itself; the registry record takes over as
	// the running-instance marker once the session is up.
	lock, err := registry.AcquireLock(m.reg.Dir())
	if err != nil {
		return err
	}
	defer lock.Release()

	session := m.cfg.Bot.SessionName
	if mp.Has(ctx, session) {
		return fmt.Errorf("%w: %s session %q exists", errors.ErrAlreadyRunning, mp.Name(), session)
	}
	if rec, err := m.reg.Verify(m.serviceName(), m.cfg.EntrypointPath()); err == nil {
		return fmt.Errorf("%w: pid %d (%s)", errors.ErrAlreadyRunning, rec.PID, rec.Mode)
	}

	log := m.logger.WithVerb(muxName)
	command := fmt.Sprintf("%q %q", m.cfg.VenvPython(), m.cfg.EntrypointPath())
	if err := mp.Launch(ctx, session, m.cfg.Paths.InstallDir, command); err != nil {
		return err
	}

	if err := mux.WaitReady(ctx, mp, session, m.cfg.Timeouts.StartVerify); err != nil {
		return err
	}

	// The session is up; find the bot process it wraps for the registry.
	pid := m.waitForBotPID(m.cfg.Timeouts.StartVerify)
	if pid == 0 {
		// Session appeared but the bot died inside it already
		_ = mp.Kill(ctx, session)
		return fmt.Errorf("%w: bot exited immediately inside the %s session", errors.ErrNotRunning, mp.Name())
	}

	mode := registry.ModeScreen
	if muxName == "tmux" {
		mode = registry.ModeTmux
	}
	rec := registry.Record{
		Name:      m.serviceName(),
		PID:       pid,
		Mode:      mode,
		Session:   session,
		StartedAt: time.Now(),
	}
	if err := m.reg.Save(rec); err != nil {
		log.Warn("failed to record session", "error", err)
	}
	log.Info("bot started detached", "pid", pid, "session", session)
	fmt.Fprintf(m.out, "bot running in %s session %q (pid %d)\n", mp.Name(), session, pid)
	return nil
}

// waitForBotPID polls the process table for the bot entrypoint.
func (m *Manager) waitForBotPID(timeout time.Duration) int {
	deadline := time.Now().Add(timeout)
	for {
		if pids, err := m.findPIDs(m.cfg.EntrypointPath()); err == nil && len(pids) > 0 {
			return pids[0]
		}
		if time.Now().After(deadline) {
			return 0
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Stop terminates the running instance: the registry record when one
// exists, otherwise every process matching the entrypoint pattern. A
// recorded multiplexer session is killed too, so no orphaned sessions
// remain. Returns ErrNotRunning when nothing was found.
func (m *Manager) Stop(ctx context.Context) error {
	log := m.logger.WithVerb("stop")
	grace := m.cfg.Timeouts.StopGrace

	rec, err := m.reg.Verify(m.serviceName(), m.cfg.EntrypointPath())
	if err == nil {
		log.Info("stopping recorded instance", "pid", rec.PID, "mode", rec.Mode)
		if rec.Session != "" {
			if mp, mpErr := mux.ForName(string(rec.Mode)); mpErr == nil {
				if killErr := mp.Kill(ctx, rec.Session); killErr != nil {
					log.Debug("session kill failed", "error", killErr)
				}
			}
		}
		if termErr := m.terminate(rec.PID, grace); termErr != nil && !errors.Is(termErr, errors.ErrNotRunning) {
			return termErr
		}
		if err := m.reg.Clear(m.serviceName()); err != nil {
			log.Warn("failed to clear session record", "error", err)
		}
		fmt.Fprintf(m.out, "stopped pid %d\n", rec.PID)
		return nil
	}

	// No live record: fall back to the pattern match
	pids, findErr := m.findPIDs(m.cfg.EntrypointPath())
	if findErr != nil {
		if errors.Is(findErr, errors.ErrNotRunning) {
			return errors.ErrNotRunning
		}
		return findErr
	}

	for _, pid := range pids {
		log.Info("stopping unrecorded instance", "pid", pid)
		if termErr := m.terminate(pid, grace); termErr != nil && !errors.Is(termErr, errors.ErrNotRunning) {
			return termErr
		}
		fmt.Fprintf(m.out, "stopped pid %d\n", pid)
	}
	return nil
}

// Status describes the current instance.
type Status struct {
	Running bool
	PID     int
	Mode    registry.Mode
	Session string
	Uptime  time.Duration
}

// Status reports whether the bot is running and under what handle.
// Returns ErrNotRunning (with a zero Status) when nothing was found.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	rec, err := m.reg.Verify(m.serviceName(), m.cfg.EntrypointPath())
	if err == nil {
		return Status{
			Running: true,
			PID:     rec.PID,
			Mode:    rec.Mode,
			Session: rec.Session,
			Uptime:  time.Since(rec.StartedAt),
		}, nil
	}

	pids, findErr := m.findPIDs(m.cfg.EntrypointPath())
	if findErr == nil && len(pids) > 0 {
		// Running but untracked (started outside botctl, or record lost)
		return Status{Running: true, PID: pids[0]}, nil
	}

	return Status{}, errors.ErrNotRunning
}

// Restart stops the instance (tolerating an already-stopped bot), pauses,
// and dispatches the follow-up verb: "start" (default), "screen", or
// "tmux".
func (m *Manager) Restart(ctx context.Context, followUp string) error {
	if followUp == "" {
		followUp = "start"
	}

	if err := m.Stop(ctx); err != nil && !errors.Is(err, errors.ErrNotRunning) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.cfg.Timeouts.RestartPause):
	}

	switch followUp {
	case "start":
		return m.Start(ctx)
	case "screen", "tmux":
		return m.StartDetached(ctx, followUp)
	default:
		return fmt.Errorf("unsupported restart mode: %q", followUp)
	}
}
