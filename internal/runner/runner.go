// Package runner executes external verification commands (formatters,
// linters, test runs) as blocking subprocesses with captured output and
// a hard timeout.
package runner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// Result is the captured outcome of one command run.
type Result struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	Duration time.Duration
}

// Ok reports whether the command completed in time and exited zero.
func (r Result) Ok() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Runner runs shell commands inside one working directory.
type Runner struct {
	dir string
	log *slog.Logger
}

func New(dir string, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{dir: dir, log: log}
}

// Run executes command through the shell and blocks until it exits or
// the timeout elapses. On timeout the process is killed and the result
// is marked TimedOut; partial output is still returned.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration) Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// A timeout must terminate the command itself, not just the shell
	// wrapper; otherwise grandchildren keep the output pipes open and
	// Run blocks until they exit on their own.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Command:  command,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() != nil {
		res.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		res.ExitCode = -1
	} else if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
	}

	r.log.Info("command finished",
		slog.String("command", command),
		slog.Int("exit_code", res.ExitCode),
		slog.Bool("timed_out", res.TimedOut),
		slog.Duration("duration", res.Duration),
	)
	return res
}
