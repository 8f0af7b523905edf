package cmd

import (
	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart [start|screen|tmux]",
	Short: "Restart the bot",
	Long: `Stop the bot if it is running, pause briefly, and start it again.
The optional argument selects how it comes back up: attached (start,
the default), or detached in a screen or tmux session.`,
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"start", "screen", "tmux"},
	RunE:      runRestart,
}

func init() {
	rootCmd.AddCommand(restartCmd)
}

func runRestart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	followUp := ""
	if len(args) > 0 {
		followUp = args[0]
	}

	logger := newLogger(cfg)
	defer logger.Close()

	mgr, err := newManager(cfg, logger)
	if err != nil {
		return err
	}
	return mgr.Restart(cmd.Context(), followUp)
}
