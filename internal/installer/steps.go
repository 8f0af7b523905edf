package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/gatewatch/botctl/internal/config"
	"github.com/gatewatch/botctl/internal/envfile"
)

// provisionRuntime ensures python3 with venv support is installed,
// installing it through apt when absent.
func (i *Installer) provisionRuntime(ctx context.Context) error {
	if _, err := exec.LookPath("python3"); err == nil {
		i.logger.Debug("python3 already present")
		return nil
	}

	fmt.Fprintln(i.opts.Out, "installing python3")
	if output, err := i.run(ctx, "apt-get", "update"); err != nil {
		return fmt.Errorf("apt-get update failed: %w: %s", err, string(output))
	}
	if output, err := i.run(ctx, "apt-get", "install", "-y", "python3", "python3-venv", "python3-pip"); err != nil {
		return fmt.Errorf("apt-get install failed: %w: %s", err, string(output))
	}
	return nil
}

// copyTree copies the project tree into the install directory. The virtual
// environment, state directory, and log file are never copied so a re-run
// does not clobber a live installation's runtime artifacts.
func (i *Installer) copyTree(ctx context.Context) error {
	src, err := filepath.Abs(i.opts.ProjectDir)
	if err != nil {
		return err
	}
	dst, err := filepath.Abs(i.cfg.Paths.InstallDir)
	if err != nil {
		return err
	}
	if src == dst {
		i.logger.Debug("project dir is the install dir, nothing to copy")
		return nil
	}

	skip := map[string]bool{
		".git":                             true,
		".botctl":                          true,
		filepath.Base(i.cfg.Paths.VenvDir): true,
		filepath.Base(i.cfg.Paths.LogFile): true,
	}

	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create install dir: %w", err)
	}

	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		// Skip excluded top-level entries and everything under them
		top := strings.SplitN(rel, string(os.PathSeparator), 2)[0]
		if skip[top] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target)
	})
}

// copyFile copies one regular file preserving its mode.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Sync()
}

// provisionUser creates the isolated system user for the user variant and
// hands the install tree to it. An existing user is detected and kept.
func (i *Installer) provisionUser(ctx context.Context) error {
	if i.opts.Variant != config.VariantUser {
		return nil
	}

	name := i.cfg.Service.User
	if _, err := user.Lookup(name); err == nil {
		i.logger.Debug("service user already exists", "user", name)
	} else {
		fmt.Fprintf(i.opts.Out, "creating system user %s\n", name)
		output, err := i.run(ctx, "useradd",
			"--system",
			"--home-dir", i.cfg.Paths.InstallDir,
			"--shell", "/usr/sbin/nologin",
			name)
		if err != nil {
			return fmt.Errorf("useradd failed: %w: %s", err, string(output))
		}
	}

	if output, err := i.run(ctx, "chown", "-R", name+":"+name, i.cfg.Paths.InstallDir); err != nil {
		return fmt.Errorf("chown failed: %w: %s", err, string(output))
	}
	return nil
}

// writeEnvFile creates the secrets file, prompting the operator for its
// values. An existing file is left untouched.
func (i *Installer) writeEnvFile(ctx context.Context) error {
	path := i.cfg.Paths.EnvFile
	if envfile.Exists(path) {
		i.logger.Debug("environment file already exists", "path", path)
		fmt.Fprintf(i.opts.Out, "keeping existing %s\n", path)
		return nil
	}

	values, err := envfile.Prompt(i.opts.In, i.opts.Out)
	if err != nil {
		return err
	}
	if err := envfile.Create(path, values); err != nil {
		return err
	}

	if i.opts.Variant == config.VariantUser {
		name := i.cfg.Service.User
		if output, err := i.run(ctx, "chown", name+":"+name, path); err != nil {
			return fmt.Errorf("chown env file failed: %w: %s", err, string(output))
		}
	}
	return nil
}

// provisionVenv creates the virtual environment if missing and installs the
// declared dependencies. In the user variant both run as the service user.
func (i *Installer) provisionVenv(ctx context.Context) error {
	freshVenv := false
	if _, err := os.Stat(i.cfg.VenvPython()); err != nil {
		fmt.Fprintf(i.opts.Out, "creating virtual environment in %s\n", i.cfg.Paths.VenvDir)
		if output, err := i.runAsServiceUser(ctx, "python3", "-m", "venv", i.cfg.Paths.VenvDir); err != nil {
			return fmt.Errorf("venv creation failed: %w: %s", err, string(output))
		}
		freshVenv = true
	}

	requirements := filepath.Join(i.cfg.Paths.InstallDir, i.cfg.Bot.Requirements)
	if _, err := os.Stat(requirements); err != nil {
		if freshVenv {
			return fmt.Errorf("requirements file not found: %s", requirements)
		}
		i.logger.Debug("no requirements file, skipping dependency install")
		return nil
	}

	fmt.Fprintln(i.opts.Out, "installing dependencies")
	if output, err := i.runAsServiceUser(ctx, i.cfg.VenvPip(), "install", "-r", requirements); err != nil {
		return fmt.Errorf("pip install failed: %w: %s", err, string(output))
	}
	return nil
}

// runAsServiceUser runs a command as the service user in the user variant,
// directly otherwise.
func (i *Installer) runAsServiceUser(ctx context.Context, name string, args ...string) ([]byte, error) {
	if i.opts.Variant == config.VariantUser {
		full := append([]string{"-u", i.cfg.Service.User, "--", name}, args...)
		return i.run(ctx, "runuser", full...)
	}
	return i.run(ctx, name, args...)
}

// installUnit installs the variant's unit template and reloads systemd.
func (i *Installer) installUnit(ctx context.Context) error {
	template := i.cfg.UnitTemplatePath(i.opts.ProjectDir, i.opts.Variant)
	if err := i.svc.InstallUnit(template); err != nil {
		return err
	}
	return i.svc.DaemonReload(ctx)
}

// activate starts the unit and waits for it to report active. On failure a
// longer journal tail is printed so the operator sees why the bot died.
func (i *Installer) activate(ctx context.Context) error {
	if err := i.svc.Start(ctx); err != nil {
		return err
	}

	if err := i.svc.WaitActive(ctx, i.cfg.Timeouts.StartVerify); err != nil {
		if tail, tailErr := i.svc.JournalTail(ctx, failureTailLines); tailErr == nil {
			fmt.Fprintln(i.opts.Out, tail)
		}
		return err
	}
	return nil
}
