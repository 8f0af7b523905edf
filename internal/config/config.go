// Package config defines the botctl configuration: filesystem layout of the
// installed bot, service unit parameters, and the timeouts used by start
// verification and stop escalation. Values come from a config file
// (botctl.yaml), BOTCTL_* environment variables, or the defaults below,
// resolved through viper.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete botctl configuration
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Bot      BotConfig      `mapstructure:"bot"`
	Service  ServiceConfig  `mapstructure:"service"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PathsConfig fixes the on-disk layout of an installed bot
type PathsConfig struct {
	// InstallDir is the root directory the project tree is installed into
	InstallDir string `mapstructure:"install_dir"`
	// VenvDir is the Python virtual environment directory.
	// Empty means <install_dir>/venv.
	VenvDir string `mapstructure:"venv_dir"`
	// EnvFile is the key=value secrets file the bot reads.
	// Empty means <install_dir>/.env.
	EnvFile string `mapstructure:"env_file"`
	// LogFile is the log file the bot appends to.
	// Empty means <install_dir>/bot.log.
	LogFile string `mapstructure:"log_file"`
}

// BotConfig describes the managed bot process
type BotConfig struct {
	// Entrypoint is the bot script, relative to the install dir. Its path is
	// also the pattern used to find the process in the process table.
	Entrypoint string `mapstructure:"entrypoint"`
	// Requirements is the pip requirements file, relative to the install dir
	Requirements string `mapstructure:"requirements"`
	// SessionName is the screen/tmux session name for detached starts
	SessionName string `mapstructure:"session_name"`
}

// ServiceConfig describes the systemd unit
type ServiceConfig struct {
	// UnitName is the fixed name the unit is installed under
	UnitName string `mapstructure:"unit_name"`
	// User is the isolated system user for the user variant
	User string `mapstructure:"user"`
	// TemplatesDir holds the unit template files, relative to the project dir
	TemplatesDir string `mapstructure:"templates_dir"`
	// RootTemplate and UserTemplate are the template file names per variant
	RootTemplate string `mapstructure:"root_template"`
	UserTemplate string `mapstructure:"user_template"`
}

// TimeoutsConfig bounds the polling loops
type TimeoutsConfig struct {
	// StartVerify bounds how long start/setup waits for the process,
	// session, or unit to become active
	StartVerify time.Duration `mapstructure:"start_verify"`
	// StopGrace is the wait after SIGTERM before escalating to SIGKILL
	StopGrace time.Duration `mapstructure:"stop_grace"`
	// RestartPause is the pause between stop and the follow-up start
	RestartPause time.Duration `mapstructure:"restart_pause"`
}

// LoggingConfig controls botctl's own diagnostic log
type LoggingConfig struct {
	// Level is the minimum level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// File is the botctl log file. Empty logs to stderr only.
	File string `mapstructure:"file"`
	// MaxSizeMB is the rotation threshold in megabytes
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files to keep
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config populated with default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			InstallDir: "/opt/gate-apr-bot",
		},
		Bot: BotConfig{
			Entrypoint:   "telegram_bot.py",
			Requirements: "requirements.txt",
			SessionName:  "gate-apr-bot",
		},
		Service: ServiceConfig{
			UnitName:     "gate-apr-bot.service",
			User:         "gatebot",
			TemplatesDir: "deploy",
			RootTemplate: "gate-apr-bot-root.service",
			UserTemplate: "gate-apr-bot-user.service",
		},
		Timeouts: TimeoutsConfig{
			StartVerify:  10 * time.Second,
			StopGrace:    5 * time.Second,
			RestartPause: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers all default values with viper
func SetDefaults() {
	defaults := Default()

	// Path defaults
	viper.SetDefault("paths.install_dir", defaults.Paths.InstallDir)
	viper.SetDefault("paths.venv_dir", defaults.Paths.VenvDir)
	viper.SetDefault("paths.env_file", defaults.Paths.EnvFile)
	viper.SetDefault("paths.log_file", defaults.Paths.LogFile)

	// Bot defaults
	viper.SetDefault("bot.entrypoint", defaults.Bot.Entrypoint)
	viper.SetDefault("bot.requirements", defaults.Bot.Requirements)
	viper.SetDefault("bot.session_name", defaults.Bot.SessionName)

	// Service defaults
	viper.SetDefault("service.unit_name", defaults.Service.UnitName)
	viper.SetDefault("service.user", defaults.Service.User)
	viper.SetDefault("service.templates_dir", defaults.Service.TemplatesDir)
	viper.SetDefault("service.root_template", defaults.Service.RootTemplate)
	viper.SetDefault("service.user_template", defaults.Service.UserTemplate)

	// Timeout defaults
	viper.SetDefault("timeouts.start_verify", defaults.Timeouts.StartVerify)
	viper.SetDefault("timeouts.stop_grace", defaults.Timeouts.StopGrace)
	viper.SetDefault("timeouts.restart_pause", defaults.Timeouts.RestartPause)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load unmarshals and validates the current viper configuration
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDerivedPaths()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// applyDerivedPaths fills the paths that default relative to the install dir.
func (c *Config) applyDerivedPaths() {
	if c.Paths.VenvDir == "" {
		c.Paths.VenvDir = filepath.Join(c.Paths.InstallDir, "venv")
	}
	if c.Paths.EnvFile == "" {
		c.Paths.EnvFile = filepath.Join(c.Paths.InstallDir, ".env")
	}
	if c.Paths.LogFile == "" {
		c.Paths.LogFile = filepath.Join(c.Paths.InstallDir, "bot.log")
	}
}

// StateDir returns the directory holding registry records, locks, and the
// setup progress marker.
func (c *Config) StateDir() string {
	return filepath.Join(c.Paths.InstallDir, ".botctl")
}

// EntrypointPath returns the absolute path of the bot entrypoint, which
// doubles as the process-table match pattern.
func (c *Config) EntrypointPath() string {
	return filepath.Join(c.Paths.InstallDir, c.Bot.Entrypoint)
}

// VenvPython returns the interpreter inside the virtual environment.
func (c *Config) VenvPython() string {
	return filepath.Join(c.Paths.VenvDir, "bin", "python")
}

// VenvPip returns the pip binary inside the virtual environment.
func (c *Config) VenvPip() string {
	return filepath.Join(c.Paths.VenvDir, "bin", "pip")
}

// UnitTemplatePath returns the unit template file for the given variant
// relative to projectDir.
func (c *Config) UnitTemplatePath(projectDir string, variant Variant) string {
	name := c.Service.RootTemplate
	if variant == VariantUser {
		name = c.Service.UserTemplate
	}
	return filepath.Join(projectDir, c.Service.TemplatesDir, name)
}

// ConfigDir returns the directory where the botctl config file lives
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "botctl")
	}
	// Fall back to ~/.config/botctl
	home, err := os.UserHomeDir()
	if err != nil {
		return ".botctl"
	}
	return filepath.Join(home, ".config", "botctl")
}
