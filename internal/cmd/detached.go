package cmd

import (
	"github.com/spf13/cobra"
)

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Run the bot detached in a screen session",
	Long: `Start the bot inside a detached screen session named after the bot,
verify the session came up, and record it so stop and status can find it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetached(cmd, "screen")
	},
}

var tmuxCmd = &cobra.Command{
	Use:   "tmux",
	Short: "Run the bot detached in a tmux session",
	Long: `Start the bot inside a detached tmux session named after the bot,
verify the session came up, and record it so stop and status can find it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDetached(cmd, "tmux")
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(tmuxCmd)
}

func runDetached(cmd *cobra.Command, muxName string) error {
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
	return mgr.StartDetached(cmd.Context(), muxName)
}
