package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "timeouts.stop_grace")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation
// errors found
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Paths.InstallDir == "" {
		errs = append(errs, ValidationError{
			Field:   "paths.install_dir",
			Value:   c.Paths.InstallDir,
			Message: "must not be empty",
		})
	}
	if c.Bot.Entrypoint == "" {
		errs = append(errs, ValidationError{
			Field:   "bot.entrypoint",
			Value:   c.Bot.Entrypoint,
			Message: "must not be empty",
		})
	}
	if c.Bot.SessionName == "" {
		errs = append(errs, ValidationError{
			Field:   "bot.session_name",
			Value:   c.Bot.SessionName,
			Message: "must not be empty",
		})
	}
	if !strings.HasSuffix(c.Service.UnitName, ".service") {
		errs = append(errs, ValidationError{
			Field:   "service.unit_name",
			Value:   c.Service.UnitName,
			Message: "must end in .service",
		})
	}
	if c.Service.User == "" {
		errs = append(errs, ValidationError{
			Field:   "service.user",
			Value:   c.Service.User,
			Message: "must not be empty",
		})
	}
	if c.Timeouts.StartVerify <= 0 {
		errs = append(errs, ValidationError{
			Field:   "timeouts.start_verify",
			Value:   c.Timeouts.StartVerify,
			Message: "must be positive",
		})
	}
	if c.Timeouts.StopGrace <= 0 {
		errs = append(errs, ValidationError{
			Field:   "timeouts.stop_grace",
			Value:   c.Timeouts.StopGrace,
			Message: "must be positive",
		})
	}
	if c.Timeouts.RestartPause < 0 {
		errs = append(errs, ValidationError{
			Field:   "timeouts.restart_pause",
			Value:   c.Timeouts.RestartPause,
			Message: "must not be negative",
		})
	}
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of %v", ValidLogLevels()),
		})
	}
	if c.Logging.MaxSizeMB < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must not be negative",
		})
	}

	return errs
}
