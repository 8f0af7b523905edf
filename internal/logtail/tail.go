// Package logtail reads the bot's log file: a bounded tail for status
// reports, and a continuous follow for the logs command. Follow wakes on
// fsnotify write events with a periodic poll as fallback, since not every
// filesystem delivers notifications.
package logtail

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gatewatch/botctl/internal/errors"
)

// pollInterval is the fallback wakeup when no fsnotify event arrives.
const pollInterval = 500 * time.Millisecond

// Tail returns the last n lines of the file at path.
// Returns ErrLogFileMissing if the file does not exist.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrLogFileMissing, path)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	// Ring of the last n lines; fine for bot-sized logs
	lines := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		if n > 0 && len(lines) == n {
			copy(lines, lines[1:])
			lines = lines[:n-1]
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}
	return lines, nil
}

// Follow streams new lines appended to path into w until ctx is canceled.
// It seeks to the end of the file first, so only new output is shown.
// Returns ErrLogFileMissing if the file does not exist when called.
func Follow(ctx context.Context, path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", errors.ErrLogFileMissing, path)
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	// f is reassigned after a rotation; the closure closes whichever
	// handle is current on return, not the one open at this point.
	defer func() { f.Close() }()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	reader := bufio.NewReader(f)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if err := drain(reader, w); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Rotation: the file was replaced, reopen at the start
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				reopened, err := reopen(path, watcher)
				if err != nil {
					return err
				}
				f.Close()
				f = reopened
				reader = bufio.NewReader(f)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		case <-ticker.C:
			// Fallback poll
		}
	}
}

// drain copies everything readable right now from reader to w.
func drain(reader *bufio.Reader, w io.Writer) error {
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if _, werr := io.WriteString(w, line); werr != nil {
				return fmt.Errorf("failed to write output: %w", werr)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("error reading log file: %w", err)
		}
	}
}

// reopen waits briefly for a rotated file to reappear and re-registers it
// with the watcher.
func reopen(path string, watcher *fsnotify.Watcher) (*os.File, error) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		f, err := os.Open(path)
		if err == nil {
			if err := watcher.Add(path); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to rewatch log file: %w", err)
			}
			return f, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, fmt.Errorf("%w: %s (rotated away)", errors.ErrLogFileMissing, path)
}
