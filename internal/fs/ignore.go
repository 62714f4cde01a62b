package fs

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultIgnorePatterns is the baseline applied even without a .gitignore.
var defaultIgnorePatterns = []string{
	".git",
	"node_modules",
	"venv",
	".venv",
	"dist",
	"__pycache__",
	".idea",
	".vscode",
	"*.pyc",
	"*.log",
	"*.swp",
	"*.tmp",
	"*.bak",
	".env",
	"poetry.lock",
	"package-lock.json",
}

var binaryExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".bmp": {}, ".ico": {},
	".webp": {}, ".mp3": {}, ".wav": {}, ".ogg": {}, ".mp4": {}, ".avi": {},
	".mov": {}, ".mkv": {}, ".zip": {}, ".rar": {}, ".7z": {}, ".tar": {},
	".gz": {}, ".bz2": {}, ".xz": {}, ".pdf": {}, ".doc": {}, ".docx": {},
	".xls": {}, ".xlsx": {}, ".exe": {}, ".dll": {}, ".so": {}, ".dylib": {},
	".class": {}, ".jar": {}, ".pyc": {}, ".o": {}, ".a": {}, ".wasm": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
}

// Ignorer decides which paths are excluded from tree scans. Patterns use
// doublestar glob syntax and match against the slash-relative path as well
// as the basename, so ".git" and "**/*.log" both behave as expected.
type Ignorer struct {
	patterns []string
}

// NewIgnorer merges the defaults, the project's .gitignore (if readable),
// and any extra patterns from configuration.
func NewIgnorer(root string, extra []string) *Ignorer {
	patterns := append([]string{}, defaultIgnorePatterns...)
	patterns = append(patterns, readGitignore(filepath.Join(root, ".gitignore"))...)
	patterns = append(patterns, extra...)
	return &Ignorer{patterns: patterns}
}

// NewIgnorerFromPatterns builds an Ignorer over an explicit pattern list
// only, with no defaults. Used by tests and by callers that own filtering.
func NewIgnorerFromPatterns(patterns []string) *Ignorer {
	return &Ignorer{patterns: patterns}
}

func readGitignore(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(line, "/"))
	}
	return patterns
}

// Match reports whether the slash-relative path is ignored. Every path
// segment is checked so a pattern matching a directory excludes its
// entire subtree.
func (ig *Ignorer) Match(rel string) bool {
	rel = Canonical(rel)
	if rel == "" || rel == "." {
		return false
	}
	for _, pattern := range ig.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		for _, segment := range strings.Split(rel, "/") {
			if ok, _ := doublestar.Match(pattern, segment); ok {
				return true
			}
		}
	}
	return false
}

// IsBinary classifies a file by extension first, falling back to sniffing
// the first KiB for NUL bytes.
func IsBinary(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := binaryExtensions[ext]; ok {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, _ := f.Read(buf)
	return bytes.IndexByte(buf[:n], 0) >= 0
}
