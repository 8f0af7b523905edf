// Package installer provisions the systemd-supervised deployment of the
// bot: runtime, project tree, isolated user, secrets file, virtual
// environment, and the service unit. The work is an ordered pipeline of
// individually idempotent steps; there is no rollback, and a re-run after a
// partial failure resumes by each step detecting work it has already done.
// Progress is recorded in a marker file for diagnostics.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/gatewatch/botctl/internal/config"
	"github.com/gatewatch/botctl/internal/errors"
	"github.com/gatewatch/botctl/internal/logging"
	"github.com/gatewatch/botctl/internal/registry"
)

// Step names, in pipeline order. Also the values the progress marker records.
const (
	StepRuntime  = "runtime"
	StepCopyTree = "copy-tree"
	StepUser     = "user"
	StepEnvFile  = "env-file"
	StepVenv     = "venv"
	StepUnit     = "unit-install"
	StepActivate = "activate"
)

// journal tail sizes for the final report
const (
	successTailLines = 10
	failureTailLines = 50
)

// serviceManager is the slice of systemd.Manager the installer needs.
type serviceManager interface {
	UnitName() string
	TemplateExists(templatePath string) bool
	InstallUnit(templatePath string) error
	DaemonReload(ctx context.Context) error
	Start(ctx context.Context) error
	Enable(ctx context.Context) error
	WaitActive(ctx context.Context, timeout time.Duration) error
	JournalTail(ctx context.Context, n int) (string, error)
}

// runFunc executes a host command and returns its combined output.
// A seam for tests; production uses exec.CommandContext.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Options configures an Installer.
type Options struct {
	// Variant selects root or isolated-user operation.
	Variant config.Variant
	// ProjectDir is the source tree to install from.
	ProjectDir string
	// EnableAtBoot enables the unit after a successful start without prompting.
	EnableAtBoot bool
	// In and Out carry the interactive prompts (secrets, boot-enable).
	In  io.Reader
	Out io.Writer
}

// Installer runs the provisioning pipeline.
type Installer struct {
	cfg     *config.Config
	opts    Options
	svc     serviceManager
	logger  *logging.Logger
	run     runFunc
	euid    func() int
	marker  *Marker
	verbose io.Writer
}

// New creates an Installer.
func New(cfg *config.Config, svc serviceManager, logger *logging.Logger, opts Options) *Installer {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Installer{
		cfg:    cfg,
		opts:   opts,
		svc:    svc,
		logger: logger,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		euid:    os.Geteuid,
		marker:  NewMarker(cfg.StateDir()),
		verbose: opts.Out,
	}
}

// Preflight checks every precondition that must hold before the first
// mutation: privilege, a valid variant, and the unit template for the
// chosen variant. A failure here guarantees the host was not touched.
func (i *Installer) Preflight() error {
	if i.euid() != 0 {
		return fmt.Errorf("%w: setup must run as root", errors.ErrNotRoot)
	}
	if i.opts.Variant != config.VariantRoot && i.opts.Variant != config.VariantUser {
		return fmt.Errorf("%w: %q", errors.ErrInvalidVariant, i.opts.Variant)
	}

	template := i.cfg.UnitTemplatePath(i.opts.ProjectDir, i.opts.Variant)
	if !i.svc.TemplateExists(template) {
		return fmt.Errorf("%w: %s", errors.ErrUnitTemplateMissing, template)
	}
	return nil
}

// Run executes the pipeline. The registry lock is held for the whole run,
// so a concurrent start or second setup cannot race on the venv, the env
// file, or the install tree. The first failing step aborts the run;
// completed steps stay in place and a re-run resumes through their
// idempotence checks.
func (i *Installer) Run(ctx context.Context) error {
	if err := i.Preflight(); err != nil {
		return err
	}

	lock, err := registry.AcquireLock(i.cfg.StateDir())
	if err != nil {
		return err
	}
	defer lock.Release()

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepRuntime, i.provisionRuntime},
		{StepCopyTree, i.copyTree},
		{StepUser, i.provisionUser},
		{StepEnvFile, i.writeEnvFile},
		{StepVenv, i.provisionVenv},
		{StepUnit, i.installUnit},
		{StepActivate, i.activate},
	}

	for _, step := range steps {
		log := i.logger.WithStep(step.name)
		log.Info("running setup step")
		fmt.Fprintf(i.opts.Out, "==> %s\n", step.name)

		if err := step.fn(ctx); err != nil {
			log.Error("setup step failed", "error", err)
			return errors.NewStepError(step.name, err)
		}

		if err := i.marker.Complete(step.name, i.opts.Variant); err != nil {
			log.Warn("failed to record setup progress", "error", err)
		}
	}

	return i.report(ctx)
}

// report prints the closing success report and optionally enables the unit.
func (i *Installer) report(ctx context.Context) error {
	tail, err := i.svc.JournalTail(ctx, successTailLines)
	if err == nil && tail != "" {
		fmt.Fprintln(i.opts.Out, tail)
	}
	fmt.Fprintf(i.opts.Out, "%s is installed and running\n", i.svc.UnitName())

	if i.opts.EnableAtBoot || i.promptYesNo("Enable the service at boot?") {
		if err := i.svc.Enable(ctx); err != nil {
			return fmt.Errorf("failed to enable unit: %w", err)
		}
		fmt.Fprintln(i.opts.Out, "enabled at boot")
	}
	return nil
}

// promptYesNo asks a y/N question on the installer's console.
func (i *Installer) promptYesNo(question string) bool {
	fmt.Fprintf(i.opts.Out, "%s [y/N]: ", question)
	var answer string
	fmt.Fscanln(i.opts.In, &answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}
