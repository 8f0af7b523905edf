// Package cmd wires the botctl command tree: setup installs the bot as a
// systemd service, and the lifecycle verbs (start, install, screen, tmux,
// stop, status, logs, restart) manage a manually run instance.
package cmd

import (
	"strings"

	"github.com/gatewatch/botctl/internal/config"
	"github.com/gatewatch/botctl/internal/lifecycle"
	"github.com/gatewatch/botctl/internal/logging"
	"github.com/gatewatch/botctl/internal/registry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "botctl",
	Short: "Install and manage the Gate APR Telegram bot",
	Long: `Botctl installs the Gate APR Telegram bot as a systemd service and
manages manually run instances: attached in the foreground, or detached
inside a screen or tmux session.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/botctl/botctl.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("botctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/botctl")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("BOTCTL")
	// Replace dots with underscores for nested keys in env vars
	// e.g., BOTCTL_PATHS_INSTALL_DIR for paths.install_dir
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig resolves the effective configuration.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// newLogger builds botctl's diagnostic logger from the configuration.
func newLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Options{
		File:       cfg.Logging.File,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}

// newManager builds the lifecycle Manager backed by the state directory
// registry.
func newManager(cfg *config.Config, logger *logging.Logger) (*lifecycle.Manager, error) {
	reg, err := registry.New(cfg.StateDir())
	if err != nil {
		return nil, err
	}
	return lifecycle.New(cfg, reg, logger, nil), nil
}
