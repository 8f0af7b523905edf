package cmd

import (
	"fmt"
	"time"

	"github.com/gatewatch/botctl/internal/errors"
	"github.com/gatewatch/botctl/internal/logtail"
	"github.com/spf13/cobra"
)

const statusTailLines = 10

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the bot is running",
	Long: `Show whether the bot is running, how it was started, and the tail of
its log. Exits with status 1 when the bot is not running.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	st, err := mgr.Status(cmd.Context())
	if err != nil {
		if errors.Is(err, errors.ErrNotRunning) {
			fmt.Println("bot is not running")
			return fmt.Errorf("bot is not running")
		}
		return err
	}

	if st.Mode != "" {
		fmt.Printf("bot is running: pid %d, mode %s", st.PID, st.Mode)
		if st.Session != "" {
			fmt.Printf(", session %q", st.Session)
		}
		fmt.Printf(", up %s\n", st.Uptime.Round(time.Second))
	} else {
		// Found in the process table but not in the registry
		fmt.Printf("bot is running: pid %d (untracked)\n", st.PID)
	}

	lines, err := logtail.Tail(cfg.Paths.LogFile, statusTailLines)
	if err != nil {
		if errors.Is(err, errors.ErrLogFileMissing) {
			fmt.Printf("no log file yet at %s\n", cfg.Paths.LogFile)
			return nil
		}
		return err
	}

	fmt.Printf("\nlast %d log lines:\n", statusTailLines)
	for _, line := range lines {
		fmt.Println(line)
	}
	return nil
}
