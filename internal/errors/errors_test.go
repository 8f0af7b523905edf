package errors

import (
	"fmt"
	"testing"
)

func TestStepErrorUnwrap(t *testing.T) {
	err := NewStepError("env-file", ErrEnvFileExists)

	if !Is(err, ErrEnvFileExists) {
		t.Error("StepError should match its underlying sentinel")
	}
	if Unwrap(err) != ErrEnvFileExists {
		t.Errorf("Unwrap() = %v, want %v", Unwrap(err), ErrEnvFileExists)
	}
}

func TestStepErrorMatchesByStep(t *testing.T) {
	err := NewStepError("unit-install", New("copy failed"))

	if !Is(err, &StepError{Step: "unit-install"}) {
		t.Error("StepError should match a target with the same step name")
	}
	if Is(err, &StepError{Step: "env-file"}) {
		t.Error("StepError should not match a target with a different step name")
	}
	// Empty step acts as a wildcard
	if !Is(err, &StepError{}) {
		t.Error("StepError should match an empty target step")
	}
}

func TestStepErrorMessage(t *testing.T) {
	err := NewStepError("venv", New("python3 not found"))
	want := `step "venv" failed: python3 not found`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStepErrorThroughWrapping(t *testing.T) {
	inner := NewStepError("privilege", ErrNotRoot)
	wrapped := fmt.Errorf("setup aborted: %w", inner)

	if !Is(wrapped, ErrNotRoot) {
		t.Error("wrapped StepError should still match ErrNotRoot")
	}

	var stepErr *StepError
	if !As(wrapped, &stepErr) {
		t.Fatal("As should find the StepError through wrapping")
	}
	if stepErr.Step != "privilege" {
		t.Errorf("Step = %q, want %q", stepErr.Step, "privilege")
	}
}
