package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"ctxpatch/internal/app"
	"ctxpatch/internal/cli"
	"ctxpatch/internal/logging"
	"ctxpatch/internal/tui"
)

var version = "dev"

func main() {
	cfg, err := cli.ParseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.Version {
		fmt.Println("ctxpatch " + version)
		return
	}

	closeLog, err := logging.Setup(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: event log unavailable: %v\n", err)
	}
	defer closeLog()

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	// One-shot mode: apply piped or clipboard content and exit.
	if cfg.Apply {
		if err := a.Run(); err != nil {
			var detailed *app.DetailedError
			if errors.As(err, &detailed) {
				fmt.Fprintf(os.Stderr, "Error: %v\n--- Stack Trace ---\n%s\n", detailed.Err, detailed.Stack)
			} else {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
			os.Exit(1)
		}
		return
	}

	m := tui.New(a)
	a.SetConfirmer(m.Confirmer())
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
