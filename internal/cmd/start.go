package cmd

import (
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the bot attached to this terminal",
	Long: `Run the bot in the foreground, attached to the current terminal.
Blocks until the bot exits. The secrets file must already exist; run
botctl setup first on a fresh host.`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
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
	return mgr.Start(cmd.Context())
}
