package parser

import (
	"sort"
	"strings"
)

// pathBoundary is the character class that may surround a path mention
// in prose: whitespace, quotes, backticks, brackets, and the
// punctuation linters put after locations, so "src/main.py:42:10:" is
// captured. A slash is deliberately not a boundary, so "main.py" never
// matches inside "src/main.py".
func pathBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '"', '\'', '`', '(', ')', '[', ']', '{', '}', '<', '>', ':', ';', ',':
		return true
	}
	return false
}

// FindPaths scans free-form text for mentions of known project paths.
// Both the text and the candidates are compared with forward slashes,
// but hits are returned in the candidate's original spelling, ordered
// by first appearance in the text.
func FindPaths(text string, candidates []string) []string {
	normText := strings.ReplaceAll(text, "\\", "/")

	type hit struct {
		path string
		pos  int
	}
	var hits []hit
	for _, cand := range candidates {
		norm := strings.ReplaceAll(cand, "\\", "/")
		if norm == "" {
			continue
		}
		pos := firstBoundedIndex(normText, norm)
		if pos >= 0 {
			hits = append(hits, hit{path: cand, pos: pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if _, dup := seen[h.path]; dup {
			continue
		}
		seen[h.path] = struct{}{}
		out = append(out, h.path)
	}
	return out
}

// firstBoundedIndex returns the offset of the first occurrence of sub
// in s that is delimited by boundary characters (or the text's edges)
// on both sides, or -1.
func firstBoundedIndex(s, sub string) int {
	from := 0
	for {
		i := strings.Index(s[from:], sub)
		if i < 0 {
			return -1
		}
		i += from
		leftOK := i == 0 || pathBoundary(s[i-1])
		right := i + len(sub)
		rightOK := right == len(s) || pathBoundary(s[right])
		if leftOK && rightOK {
			return i
		}
		from = i + 1
	}
}
