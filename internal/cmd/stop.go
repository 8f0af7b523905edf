package cmd

import (
	"fmt"

	"github.com/gatewatch/botctl/internal/errors"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running bot",
	Long: `Stop the running bot. The recorded session handle is used when one
exists; otherwise every process matching the bot entrypoint is stopped.
The bot gets a grace period to exit cleanly before being killed. Exits
with status 1 when the bot is not running.`,
	Args: cobra.NoArgs,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
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

	if err := mgr.Stop(cmd.Context()); err != nil {
		if errors.Is(err, errors.ErrNotRunning) {
			return fmt.Errorf("bot is not running")
		}
		return err
	}
	return nil
}
