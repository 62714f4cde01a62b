// Package logging sets up the structured event log. Events go to a
// JSONL file under the user state directory, never to the terminal,
// which belongs to the interactive UI.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

const appDir = "ctxpatch"

// Setup opens the event log and installs it as the default logger.
// Returns a closer for shutdown. Logging must never break the tool: on
// any setup failure a discard logger is installed instead.
func Setup(debug bool) (func() error, error) {
	path, err := logPath()
	if err != nil {
		installDiscard()
		return func() error { return nil }, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		installDiscard()
		return func() error { return nil }, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		installDiscard()
		return func() error { return nil }, err
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return f.Close, nil
}

// Path returns the event log location for display.
func Path() string {
	p, err := logPath()
	if err != nil {
		return ""
	}
	return p
}

func logPath() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDir, "events.jsonl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", appDir, "events.jsonl"), nil
}

func installDiscard() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}
