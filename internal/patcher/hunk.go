package patcher

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"ctxpatch/internal/model"
)

// matchResult reports where a hunk's target sequence was found.
type matchResult struct {
	index int // line index of the single match
	count int // total matches found
}

// locate finds the target line sequence in content lines. The exact
// pass runs first; when it finds nothing, a whitespace-insensitive pass
// runs as fallback. Either pass is only usable when it yields exactly
// one location, so the fallback can never make an ambiguous patch
// "work" by accident.
func locate(lines, target []string) matchResult {
	if m := scan(lines, target, false); m.count > 0 {
		return m
	}
	return scan(lines, target, true)
}

func scan(lines, target []string, normalized bool) matchResult {
	if len(target) == 0 || len(target) > len(lines) {
		return matchResult{index: -1}
	}
	res := matchResult{index: -1}
	for i := 0; i+len(target) <= len(lines); i++ {
		if matchesAt(lines, target, i, normalized) {
			if res.count == 0 {
				res.index = i
			}
			res.count++
		}
	}
	return res
}

func matchesAt(lines, target []string, at int, normalized bool) bool {
	for j, want := range target {
		got := lines[at+j]
		if normalized {
			got = normalizeWS(got)
			want = normalizeWS(want)
		}
		if got != want {
			return false
		}
	}
	return true
}

// normalizeWS collapses all runs of whitespace to single spaces so a
// retyped context line with different indentation still matches.
func normalizeWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// applyHunks applies each hunk of a unified diff to content. Any
// failing hunk aborts the whole application; the returned error carries
// the per-hunk diagnosis.
func applyHunks(content string, hunks []model.Hunk) (string, error) {
	lines, hadTrailing := splitLines(content)
	for i, h := range hunks {
		target := h.Target()
		if len(target) == 0 {
			return "", fmt.Errorf("hunk %d: %w: hunk has no context or removed lines", i+1, ErrNotFound)
		}
		m := locate(lines, target)
		switch {
		case m.count == 0:
			return "", fmt.Errorf("hunk %d: %w: %s", i+1, ErrNotFound, nearestHint(lines, target))
		case m.count > 1:
			return "", fmt.Errorf("hunk %d: %w: context found at %d locations", i+1, ErrAmbiguous, m.count)
		}
		replacement := h.Replacement()
		rebuilt := make([]string, 0, len(lines)-len(target)+len(replacement))
		rebuilt = append(rebuilt, lines[:m.index]...)
		rebuilt = append(rebuilt, replacement...)
		rebuilt = append(rebuilt, lines[m.index+len(target):]...)
		lines = rebuilt
	}
	return joinLines(lines, hadTrailing), nil
}

// applyReplaces applies ordered search/replace pairs. Each pair's old
// text must occur at exactly one location.
func applyReplaces(content string, replaces []model.Replace) (string, error) {
	lines, hadTrailing := splitLines(content)
	for i, r := range replaces {
		m := locate(lines, r.Old)
		switch {
		case m.count == 0:
			return "", fmt.Errorf("replacement %d: %w: %s", i+1, ErrNotFound, nearestHint(lines, r.Old))
		case m.count > 1:
			return "", fmt.Errorf("replacement %d: %w: search text found at %d locations", i+1, ErrAmbiguous, m.count)
		}
		rebuilt := make([]string, 0, len(lines)-len(r.Old)+len(r.New))
		rebuilt = append(rebuilt, lines[:m.index]...)
		rebuilt = append(rebuilt, r.New...)
		rebuilt = append(rebuilt, lines[m.index+len(r.Old):]...)
		lines = rebuilt
	}
	return joinLines(lines, hadTrailing), nil
}

// nearestHint names the closest-looking line in the file for a failed
// match, so the user sees what the model probably meant instead of a
// bare "not found".
func nearestHint(lines, target []string) string {
	probe := strings.TrimSpace(target[0])
	if probe == "" && len(target) > 1 {
		probe = strings.TrimSpace(target[1])
	}
	if probe == "" {
		return "no matching context in file"
	}
	bestRatio := 0.0
	bestLine := 0
	for i, l := range lines {
		sm := difflib.NewMatcher(splitChars(probe), splitChars(strings.TrimSpace(l)))
		if r := sm.Ratio(); r > bestRatio {
			bestRatio = r
			bestLine = i + 1
		}
	}
	if bestRatio < 0.5 {
		return "no matching context in file"
	}
	return fmt.Sprintf("closest context at line %d (%.0f%% similar)", bestLine, bestRatio*100)
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func splitLines(content string) (lines []string, hadTrailing bool) {
	if content == "" {
		return nil, false
	}
	hadTrailing = strings.HasSuffix(content, "\n")
	return strings.Split(strings.TrimSuffix(content, "\n"), "\n"), hadTrailing
}

func joinLines(lines []string, trailing bool) string {
	if len(lines) == 0 {
		return ""
	}
	out := strings.Join(lines, "\n")
	if trailing {
		out += "\n"
	}
	return out
}
