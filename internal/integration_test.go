// Package internal contains integration tests that verify the packages work
// together correctly: the registry, the lifecycle manager, and the secrets
// file handling, composed the way the commands compose them.
package internal

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/gatewatch/botctl/internal/config"
	"github.com/gatewatch/botctl/internal/envfile"
	"github.com/gatewatch/botctl/internal/errors"
	"github.com/gatewatch/botctl/internal/lifecycle"
	"github.com/gatewatch/botctl/internal/logging"
	"github.com/gatewatch/botctl/internal/registry"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	installDir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InstallDir = installDir
	cfg.Paths.VenvDir = filepath.Join(installDir, "venv")
	cfg.Paths.EnvFile = filepath.Join(installDir, ".env")
	cfg.Paths.LogFile = filepath.Join(installDir, "bot.log")
	cfg.Timeouts.StopGrace = time.Second
	return cfg
}

// TestRecordedInstanceLifecycle walks a recorded instance through status and
// stop against a real child process: the manager finds it via the registry,
// terminates it gracefully, and clears the record.
func TestRecordedInstanceLifecycle(t *testing.T) {
	cfg := testConfig(t)
	reg, err := registry.New(cfg.StateDir())
	if err != nil {
		t.Fatal(err)
	}
	mgr := lifecycle.New(cfg, reg, logging.NopLogger(), nil)

	// The child carries the entrypoint path on its command line (as $0) so
	// registry verification accepts it as the recorded bot.
	child := exec.Command("sh", "-c", "sleep 60", cfg.EntrypointPath())
	if err := child.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		child.Process.Kill()
		child.Wait()
	}()

	rec := registry.Record{
		Name: cfg.Bot.SessionName,
		PID:  child.Process.Pid,
		Mode: registry.ModeAttached,
	}
	if err := reg.Save(rec); err != nil {
		t.Fatal(err)
	}

	st, err := mgr.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !st.Running || st.PID != child.Process.Pid {
		t.Fatalf("Status() = %+v, want running pid %d", st, child.Process.Pid)
	}

	if err := mgr.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	child.Wait()

	if _, err := mgr.Status(context.Background()); !errors.Is(err, errors.ErrNotRunning) {
		t.Errorf("Status() after stop error = %v, want ErrNotRunning", err)
	}
	if _, err := reg.Load(cfg.Bot.SessionName); !errors.Is(err, errors.ErrRecordNotFound) {
		t.Errorf("record not cleared after stop: %v", err)
	}
}

// TestStaleRecordIsDetectedAndCleared saves a record for a process that has
// already exited and verifies the registry reports it stale and removes it.
func TestStaleRecordIsDetectedAndCleared(t *testing.T) {
	cfg := testConfig(t)
	reg, err := registry.New(cfg.StateDir())
	if err != nil {
		t.Fatal(err)
	}

	child := exec.Command("true")
	if err := child.Run(); err != nil {
		t.Fatal(err)
	}

	rec := registry.Record{Name: cfg.Bot.SessionName, PID: child.Process.Pid, Mode: registry.ModeTmux, Session: "s"}
	if err := reg.Save(rec); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Verify(cfg.Bot.SessionName, ""); !errors.Is(err, errors.ErrRecordStale) {
		t.Fatalf("Verify() error = %v, want ErrRecordStale", err)
	}
	if _, err := reg.Load(cfg.Bot.SessionName); !errors.Is(err, errors.ErrRecordNotFound) {
		t.Errorf("stale record not removed: %v", err)
	}
}

// TestSecretsFileRoundTrip creates the secrets file the way setup does and
// reads it back the way the bot's environment would.
func TestSecretsFileRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	values := envfile.Values{Token: "123:ABC", AdminIDs: "42,43", LogLevel: "INFO"}

	if err := envfile.Create(cfg.Paths.EnvFile, values); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// A second create must never clobber existing secrets
	if err := envfile.Create(cfg.Paths.EnvFile, envfile.Values{Token: "other"}); !errors.Is(err, errors.ErrEnvFileExists) {
		t.Fatalf("Create() on existing file error = %v, want ErrEnvFileExists", err)
	}

	env, err := envfile.Load(cfg.Paths.EnvFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if env[envfile.KeyToken] != values.Token || env[envfile.KeyAdminIDs] != values.AdminIDs || env[envfile.KeyLogLevel] != values.LogLevel {
		t.Errorf("Load() = %v, want %+v", env, values)
	}
	if missing := envfile.MissingKeys(env); len(missing) != 0 {
		t.Errorf("MissingKeys() = %v, want none", missing)
	}

	info, err := os.Stat(cfg.Paths.EnvFile)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("secrets file mode = %o, want 0600", perm)
	}
}
