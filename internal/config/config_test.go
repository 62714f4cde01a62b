package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingFileIsZeroConfig(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Ignore) != 0 || len(cfg.Preselect) != 0 {
		t.Errorf("unexpected non-zero config: %+v", cfg)
	}
	if cfg.Fix.Timeout.Std() != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", cfg.Fix.Timeout, DefaultTimeout)
	}
}

func TestLoadFullConfig(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
ignore:
  - "*.generated.go"
  - vendor
fix:
  format: gofmt -w .
  lint: golangci-lint run
  test: go test ./...
  timeout: 30s
preselect:
  - "cmd/**"
snippet_threshold: 4096
`)
	cfg, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Ignore, []string{"*.generated.go", "vendor"}) {
		t.Errorf("ignore = %v", cfg.Ignore)
	}
	if cfg.Fix.Timeout.Std() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Fix.Timeout)
	}
	if cfg.SnippetThreshold != 4096 {
		t.Errorf("snippet_threshold = %d", cfg.SnippetThreshold)
	}
	want := []string{"gofmt -w .", "golangci-lint run", "go test ./..."}
	if !reflect.DeepEqual(cfg.Fix.Tiers(), want) {
		t.Errorf("tiers = %v", cfg.Fix.Tiers())
	}
}

func TestLoadMalformedConfigFails(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "ignore: [unclosed")
	if _, err := Load(root); err == nil {
		t.Fatal("malformed yaml accepted")
	}
}

func TestTiersSkipEmpty(t *testing.T) {
	f := FixConfig{Lint: "ruff check ."}
	if got := f.Tiers(); len(got) != 1 || got[0] != "ruff check ." {
		t.Errorf("tiers = %v", got)
	}
	if got := (FixConfig{}).Tiers(); got != nil {
		t.Errorf("tiers = %v, want nil", got)
	}
}

func TestResolveFixCommandsPrecedence(t *testing.T) {
	cfg := Config{Fix: FixConfig{Test: "pytest"}}

	t.Run("config tiers by default", func(t *testing.T) {
		root := t.TempDir()
		got := ResolveFixCommands(root, cfg)
		if !reflect.DeepEqual(got, []string{"pytest"}) {
			t.Errorf("commands = %v", got)
		}
	})

	t.Run("pre-commit hook beats config", func(t *testing.T) {
		root := t.TempDir()
		hookDir := filepath.Join(root, ".git", "hooks")
		if err := os.MkdirAll(hookDir, 0o755); err != nil {
			t.Fatal(err)
		}
		hook := filepath.Join(hookDir, "pre-commit")
		if err := os.WriteFile(hook, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
			t.Fatal(err)
		}
		got := ResolveFixCommands(root, cfg)
		if !reflect.DeepEqual(got, []string{hook}) {
			t.Errorf("commands = %v", got)
		}
	})

	t.Run("non-executable hook is skipped", func(t *testing.T) {
		root := t.TempDir()
		hookDir := filepath.Join(root, ".git", "hooks")
		if err := os.MkdirAll(hookDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(hookDir, "pre-commit"), []byte("echo hi\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		got := ResolveFixCommands(root, cfg)
		if !reflect.DeepEqual(got, []string{"pytest"}) {
			t.Errorf("commands = %v", got)
		}
	})

	t.Run("context marker beats everything", func(t *testing.T) {
		root := t.TempDir()
		md := "# Project\n\n<!-- CTXPATCH_FIX_CMD: make check -->\n"
		if err := os.WriteFile(filepath.Join(root, "CONTEXT.md"), []byte(md), 0o644); err != nil {
			t.Fatal(err)
		}
		hookDir := filepath.Join(root, ".git", "hooks")
		if err := os.MkdirAll(hookDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(hookDir, "pre-commit"), []byte("#!/bin/sh\n"), 0o755); err != nil {
			t.Fatal(err)
		}
		got := ResolveFixCommands(root, cfg)
		if !reflect.DeepEqual(got, []string{"make check"}) {
			t.Errorf("commands = %v", got)
		}
	})
}
