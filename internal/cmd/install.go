package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install or refresh the bot's Python dependencies",
	Long: `Create the virtual environment if needed and install the declared
dependencies, without starting the bot. Use this after pulling a new
version with changed requirements.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	defer logger.Close()

	mgr, err := newManager(cfg, logger)
	if err != nil {
		return err
	}
	if err := mgr.EnsureDeps(cmd.Context(), true); err != nil {
		return err
	}
	fmt.Println("dependencies installed")
	return nil
}
