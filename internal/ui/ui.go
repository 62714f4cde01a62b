package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"ctxpatch/internal/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
	PromptColor  = color.New(color.FgMagenta)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Info(format string, a ...interface{}) {
	InfoColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

// Confirm asks a yes/no question on the terminal. Defaults to no.
func Confirm(prompt string) bool {
	PromptColor.Fprintf(os.Stderr, "%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// PrintSummary renders one intake run: exactly one line per processed
// file, then imports and diagnostics.
func PrintSummary(sum model.Summary) {
	if len(sum.Results) > 0 {
		Header("\n--- Patch results ---")
		for _, res := range sum.Results {
			printResult(res)
		}
	}
	if len(sum.Imported) > 0 {
		Success("Imported %d path(s):", len(sum.Imported))
		for _, p := range sum.Imported {
			fmt.Fprintf(os.Stderr, "  - %s\n", p)
		}
	}
	for _, d := range sum.Diagnostics {
		Warning("note: %s", d)
	}
	if sum.Message != "" {
		Info("%s", sum.Message)
	}
}

func printResult(res model.ApplyResult) {
	switch res.Outcome {
	case model.OutcomeApplied:
		if res.Created {
			Success("created  %s", res.Path)
		} else {
			Success("applied  %s", res.Path)
		}
	case model.OutcomeConfirmedOverwrite:
		Success("applied  %s (overwrite confirmed)", res.Path)
	case model.OutcomeDeleted:
		Success("deleted  %s", res.Path)
	case model.OutcomeSkippedEmpty, model.OutcomeSafetyBlocked:
		Warning("skipped  %s (%s)", res.Path, res.Detail)
	default:
		Error("failed   %s (%s)", res.Path, res.Detail)
	}
}
