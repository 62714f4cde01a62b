package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Config holds all the command-line flag values.
type Config struct {
	Root       string
	Apply      bool
	Yes        bool
	FreshState bool
	Debug      bool
	Version    bool

	// Paths are positional arguments: files preselected as Base at
	// session start.
	Paths []string
}

// ParseFlags defines and parses command-line flags using pflag.
func ParseFlags() (*Config, error) {
	fs := pflag.NewFlagSet("ctxpatch", pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: ctxpatch [flags] [paths...]")
		fmt.Fprintln(os.Stderr, "\nCurate prompt context from the project tree and feed model output back as patches.")
		fmt.Fprintln(os.Stderr, "\nExample: pbpaste | ctxpatch --apply")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		fs.PrintDefaults()
	}
	return parse(fs, os.Args[1:])
}

func parse(fs *pflag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	fs.StringVarP(&cfg.Root, "root", "C", ".", "Project root directory to operate in.")
	fs.BoolVarP(&cfg.Apply, "apply", "a", false, "Apply patches from stdin (pipe) or clipboard without entering the interactive tree.")
	fs.BoolVarP(&cfg.Yes, "yes", "y", false, "Answer yes to all safety confirmations (overwrites and deletions).")
	fs.BoolVar(&cfg.FreshState, "fresh", false, "Ignore any saved selection snapshot and start with an empty selection.")
	fs.BoolVar(&cfg.Debug, "debug", false, "Log debug-level events.")
	fs.BoolVarP(&cfg.Version, "version", "V", false, "Print version and exit.")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg.Paths = fs.Args()

	if cfg.Root == "" {
		return nil, fmt.Errorf("error: --root must not be empty")
	}
	if cfg.Yes && !cfg.Apply {
		return nil, fmt.Errorf("error: --yes only makes sense with --apply")
	}

	return cfg, nil
}
