// Package config loads per-project settings from .ctxpatch.yaml at the
// project root. Everything is optional; zero config is a working setup.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the per-project config file.
const FileName = ".ctxpatch.yaml"

// Config is the full settings surface.
type Config struct {
	// Ignore adds glob patterns on top of the built-in and .gitignore
	// exclusions.
	Ignore []string `yaml:"ignore,omitempty"`

	// Fix holds the verification commands run after patches land, in
	// escalating order: format, then lint, then test. Empty tiers are
	// skipped.
	Fix FixConfig `yaml:"fix,omitempty"`

	// Preselect lists glob patterns selected as Delta on startup when no
	// snapshot exists.
	Preselect []string `yaml:"preselect,omitempty"`

	// SnippetThreshold is the file size in bytes above which whole-file
	// selection asks for a line-range snippet instead. 0 disables.
	SnippetThreshold int64 `yaml:"snippet_threshold,omitempty"`
}

// FixConfig is the tiered verification pipeline.
type FixConfig struct {
	Format  string   `yaml:"format,omitempty"`
	Lint    string   `yaml:"lint,omitempty"`
	Test    string   `yaml:"test,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// Duration accepts either a duration string ("30s") or an integer
// nanosecond count in the yaml.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse timeout: %w", err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Tiers returns the non-empty commands in run order.
func (f FixConfig) Tiers() []string {
	var out []string
	for _, c := range []string{f.Format, f.Lint, f.Test} {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// DefaultTimeout bounds a verification command when the config does not
// say otherwise.
const DefaultTimeout = 2 * time.Minute

// Load reads the project config. A missing file yields the zero config;
// a malformed file is an error, since silently ignoring it would run
// the wrong commands.
func Load(root string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(filepath.Join(root, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", FileName, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Fix.Timeout <= 0 {
		c.Fix.Timeout = Duration(DefaultTimeout)
	}
}

// fixMarkerRe finds a fix-command override embedded in the project's
// CONTEXT.md, e.g. <!-- CTXPATCH_FIX_CMD: make check -->.
var fixMarkerRe = regexp.MustCompile(`<!--\s*CTXPATCH_FIX_CMD:\s*(.+?)\s*-->`)

// ResolveFixCommands returns the verification commands for a project,
// checking in order: a CTXPATCH_FIX_CMD marker in CONTEXT.md, an
// executable .git/hooks/pre-commit, then the config's fix tiers.
func ResolveFixCommands(root string, cfg Config) []string {
	if data, err := os.ReadFile(filepath.Join(root, "CONTEXT.md")); err == nil {
		if m := fixMarkerRe.FindSubmatch(data); m != nil {
			return []string{string(m[1])}
		}
	}
	hook := filepath.Join(root, ".git", "hooks", "pre-commit")
	if info, err := os.Stat(hook); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
		return []string{hook}
	}
	return cfg.Fix.Tiers()
}
