// Package envfile manages the bot's key=value environment file: the
// Telegram token, the admin chat id list, and the log level. The file is
// created at most once; an existing file is never overwritten, so operator
// edits survive re-runs of setup.
package envfile

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gatewatch/botctl/internal/errors"
)

// Keys written to the environment file. These match what the bot itself
// reads at startup.
const (
	KeyToken    = "TELEGRAM_BOT_TOKEN"
	KeyAdminIDs = "TELEGRAM_ADMIN_CHAT_IDS"
	KeyLogLevel = "LOG_LEVEL"
)

// DefaultLogLevel is written when the operator does not choose one.
const DefaultLogLevel = "INFO"

// Values holds the secrets and settings destined for the environment file.
type Values struct {
	Token    string
	AdminIDs string
	LogLevel string
}

// Exists reports whether the environment file is present.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Load reads and parses the environment file.
// Returns ErrEnvFileMissing if the file does not exist.
func Load(path string) (map[string]string, error) {
	env, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrEnvFileMissing, path)
		}
		return nil, fmt.Errorf("failed to parse env file: %w", err)
	}
	return env, nil
}

// Create writes the environment file with mode 0600, failing if it already
// exists. O_EXCL makes the existence check and the create one atomic step,
// so two concurrent setups cannot both write it.
func Create(path string, v Values) error {
	if v.LogLevel == "" {
		v.LogLevel = DefaultLogLevel
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", errors.ErrEnvFileExists, path)
		}
		return fmt.Errorf("failed to create env file: %w", err)
	}
	defer f.Close()

	content := Render(v)
	if _, err := f.WriteString(content); err != nil {
		os.Remove(path) // Clean up on failure
		return fmt.Errorf("failed to write env file: %w", err)
	}

	return nil
}

// Render returns the file content for the given values, one KEY=value line
// per key in a fixed order.
func Render(v Values) string {
	if v.LogLevel == "" {
		v.LogLevel = DefaultLogLevel
	}

	var sb strings.Builder
	sb.WriteString(KeyToken + "=" + v.Token + "\n")
	sb.WriteString(KeyAdminIDs + "=" + v.AdminIDs + "\n")
	sb.WriteString(KeyLogLevel + "=" + v.LogLevel + "\n")
	return sb.String()
}

// MissingKeys returns the expected keys absent from env, sorted.
// Used by diagnostics to flag an incomplete file without validating values.
func MissingKeys(env map[string]string) []string {
	var missing []string
	for _, key := range []string{KeyToken, KeyAdminIDs, KeyLogLevel} {
		if env[key] == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}
