// Package errors provides centralized error definitions for the botctl
// codebase: sentinel errors for precondition and lookup failures, plus a
// StepError type that identifies which installer step failed.
//
// Callers can treat this package as a drop-in for the standard library's
// errors package; Is, As, New, Join and Unwrap are re-exported.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Process and session sentinel errors
var (
	// ErrNotRunning indicates that no managed bot process was found.
	ErrNotRunning = New("bot is not running")
	// ErrAlreadyRunning indicates that a managed bot process already exists.
	ErrAlreadyRunning = New("bot is already running")
	// ErrRecordNotFound indicates that no registry record exists for the service.
	ErrRecordNotFound = New("no session record found")
	// ErrRecordStale indicates that a registry record points at a dead process.
	ErrRecordStale = New("session record is stale")
	// ErrLocked indicates that another botctl invocation holds the service lock.
	ErrLocked = New("service is locked by another process")
	// ErrSessionNotFound indicates a screen/tmux session does not exist.
	ErrSessionNotFound = New("multiplexer session not found")
)

// Precondition sentinel errors
var (
	// ErrNotRoot indicates the command requires root privileges.
	ErrNotRoot = New("root privileges required")
	// ErrInvalidVariant indicates an installation variant outside {root, user}.
	ErrInvalidVariant = New("invalid installation variant")
	// ErrEnvFileMissing indicates the environment file has not been created.
	ErrEnvFileMissing = New("environment file not found")
	// ErrEnvFileExists indicates the environment file already exists.
	ErrEnvFileExists = New("environment file already exists")
	// ErrLogFileMissing indicates the bot log file does not exist yet.
	ErrLogFileMissing = New("log file not found")
	// ErrUnitTemplateMissing indicates the service unit template for the
	// chosen variant is absent.
	ErrUnitTemplateMissing = New("service unit template not found")
)

// General sentinel errors
var (
	// ErrTimeout indicates that a bounded wait expired.
	ErrTimeout = New("operation timed out")
	// ErrServiceInactive indicates the systemd unit did not become active.
	ErrServiceInactive = New("service did not become active")
)

// StepError wraps a failure from a named installer step so callers can
// report which stage of the pipeline failed and where a re-run will resume.
type StepError struct {
	Step string
	Err  error
}

// NewStepError creates a StepError for the given step.
func NewStepError(step string, err error) *StepError {
	return &StepError{Step: step, Err: err}
}

// Error returns the step name followed by the underlying error.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error or its cause.
func (e *StepError) Is(target error) bool {
	if other, ok := target.(*StepError); ok {
		return other.Step == "" || other.Step == e.Step
	}
	return errors.Is(e.Err, target)
}
