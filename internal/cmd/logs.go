package cmd

import (
	"fmt"
	"os"

	"github.com/gatewatch/botctl/internal/errors"
	"github.com/gatewatch/botctl/internal/logtail"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the bot's log",
	Long: `View the bot's log file.

Examples:
  # Show the last 50 lines
  botctl logs

  # Show the whole log
  botctl logs -n 0

  # Follow the log in real time
  botctl logs -f`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail   int
	logsFollow bool
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lines, err := logtail.Tail(cfg.Paths.LogFile, logsTail)
	if err != nil {
		if errors.Is(err, errors.ErrLogFileMissing) {
			return fmt.Errorf("no log file at %s: has the bot run yet?", cfg.Paths.LogFile)
		}
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}

	if !logsFollow {
		return nil
	}

	fmt.Fprintf(os.Stderr, "Following %s... (Ctrl+C to stop)\n", cfg.Paths.LogFile)
	return logtail.Follow(cmd.Context(), cfg.Paths.LogFile, os.Stdout)
}
