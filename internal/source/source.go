// Package source acquires the raw text to process: piped stdin when
// present, the system clipboard otherwise.
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
)

// FromStdin reports whether stdin is a pipe rather than a terminal.
func FromStdin() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) == 0
}

// Read returns the text to process. Piped input wins over the
// clipboard so the tool composes with shell pipelines.
func Read() (string, error) {
	if FromStdin() {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	return ReadClipboard()
}

// ReadClipboard returns the clipboard contents.
func ReadClipboard() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

// WriteClipboard places text on the system clipboard.
func WriteClipboard(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
