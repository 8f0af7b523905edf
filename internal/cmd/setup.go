package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/gatewatch/botctl/internal/config"
	"github.com/gatewatch/botctl/internal/installer"
	"github.com/gatewatch/botctl/internal/systemd"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup [root|user]",
	Short: "Install the bot as a systemd service",
	Long: `Install the bot as a systemd service: provision the Python runtime,
copy the project tree into the install directory, create the secrets file,
build the virtual environment, install the unit file, and start the
service.

Two variants are supported:
  root  run the service as root
  user  run the service as an isolated system user

When no variant argument is given, setup asks interactively. Must be run
as root.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSetup,
}

var (
	setupProjectDir string
	setupEnable     bool
)

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().StringVar(&setupProjectDir, "project-dir", "", "Project directory to install from (default: current directory)")
	setupCmd.Flags().BoolVar(&setupEnable, "enable", false, "Enable the service at boot without prompting")
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	variant, err := resolveVariant(args)
	if err != nil {
		return err
	}

	projectDir := setupProjectDir
	if projectDir == "" {
		if projectDir, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	logger := newLogger(cfg)
	defer logger.Close()

	svc := systemd.New(cfg.Service.UnitName)
	inst := installer.New(cfg, svc, logger, installer.Options{
		Variant:      variant,
		ProjectDir:   projectDir,
		EnableAtBoot: setupEnable,
		In:           os.Stdin,
		Out:          os.Stdout,
	})

	if err := inst.Preflight(); err != nil {
		return err
	}
	return inst.Run(cmd.Context())
}

// resolveVariant takes the variant from the argument when given, otherwise
// asks interactively.
func resolveVariant(args []string) (config.Variant, error) {
	if len(args) > 0 {
		return config.ParseVariant(args[0])
	}

	fmt.Println("Select service variant:")
	fmt.Println("  1) root - run the service as root")
	fmt.Println("  2) user - run the service as an isolated system user")
	fmt.Print("Choice [1/2]: ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("no variant selected")
	}
	return config.ParseVariant(scanner.Text())
}
