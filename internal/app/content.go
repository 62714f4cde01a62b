package app

import (
	"strings"

	"ctxpatch/internal/fs"
	"ctxpatch/internal/parser"
	"ctxpatch/internal/selection"
	"ctxpatch/internal/tree"
)

// findProjectPaths scans free text for paths present in the tree and
// returns them in canonical form.
func findProjectPaths(text string, t *tree.Tree) []string {
	found := parser.FindPaths(text, t.Files())
	out := make([]string, 0, len(found))
	for _, p := range found {
		out = append(out, fs.Canonical(p))
	}
	return out
}

// applySnippets cuts content down to the selected line spans. Without
// spans the content passes through whole.
func applySnippets(content string, spans []selection.Span) string {
	if len(spans) == 0 {
		return content
	}
	lines := strings.Split(content, "\n")
	var picked []string
	for _, span := range spans {
		start := span.Start
		if start < 1 {
			start = 1
		}
		end := span.End
		if end > len(lines) {
			end = len(lines)
		}
		if start > end {
			continue
		}
		picked = append(picked, lines[start-1:end]...)
	}
	return strings.Join(picked, "\n")
}
