package envfile

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompt interactively collects the environment file values from the
// operator. Used by setup when no environment file exists yet.
func Prompt(r io.Reader, w io.Writer) (Values, error) {
	reader := bufio.NewReader(r)

	fmt.Fprint(w, "Telegram bot token: ")
	token, err := readLine(reader)
	if err != nil {
		return Values{}, err
	}

	fmt.Fprint(w, "Admin chat IDs (comma-separated): ")
	adminIDs, err := readLine(reader)
	if err != nil {
		return Values{}, err
	}

	fmt.Fprintf(w, "Log level [%s]: ", DefaultLogLevel)
	level, err := readLine(reader)
	if err != nil {
		return Values{}, err
	}

	return Values{
		Token:    token,
		AdminIDs: adminIDs,
		LogLevel: strings.ToUpper(level),
	}, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
