// Package parser turns free-form model output into ordered patch
// intents. It is pure text processing: no filesystem access, no
// interaction. Unrecoverable input is reported as a per-block
// diagnostic, never an error that aborts remaining blocks.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ctxpatch/internal/model"
)

// ResetMarker discards everything preceding it. It is only effective
// outside fenced code blocks; inside a block it is ordinary content.
const ResetMarker = "<<<RESET>>>"

// DeleteMarker as the sole body of a block requests file deletion.
const DeleteMarker = "<<<DELETE>>>"

// Diagnostic codes.
const (
	DiagMissingHeader = "missing_header"
	DiagBadHunk       = "bad_hunk"
)

// Diagnostic reports one recoverable parse problem.
type Diagnostic struct {
	Block  int
	Code   string
	Detail string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("block %d: %s: %s", d.Block, d.Code, d.Detail)
}

// Result is the full outcome of a parse: the ordered intents plus any
// diagnostics for dropped or malformed blocks.
type Result struct {
	Intents     []model.PatchIntent
	Diagnostics []Diagnostic
}

var (
	// headerRe matches an explicit file header in any of the comment
	// styles models actually emit. The path may contain spaces.
	headerRe = regexp.MustCompile(`^\s*(?:#|//|/\*|--|<!--|;|%)?\s*FILE:\s*(.+?)\s*(?:\*/|-->)?\s*$`)

	// infoHeaderRe finds a header riding on the fence info line, e.g.
	// "```python # FILE: fence.py".
	infoHeaderRe = regexp.MustCompile(`(?:#|//)\s*FILE:\s*(.+?)\s*$`)

	// hunkHeaderRe matches a unified diff hunk header. Counts are
	// optional, matching what git and models both produce.
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

	headingRe = regexp.MustCompile(`^\s*#{1,6}\s+(.+?)\s*$`)
	boldRe    = regexp.MustCompile(`^\s*\*\*(.+?)\*\*:?\s*$`)
	codeSpanRe = regexp.MustCompile("^\\s*`([^`]+)`:?\\s*$")

	fenceLineRe = regexp.MustCompile("^\\s*(`{3,}|~{3,})")

	searchOpenRe  = regexp.MustCompile(`^<{4,}(?:\s+SEARCH)?\s*$`)
	searchSepRe   = regexp.MustCompile(`^={4,}\s*$`)
	searchCloseRe = regexp.MustCompile(`^>{4,}(?:\s+REPLACE)?\s*$`)

	rawDiffFileRe = regexp.MustCompile(`^\+\+\+ (?:b/)?(.+?)\s*$`)
	rawDiffOldRe  = regexp.MustCompile(`^--- (?:a/|/dev/null)`)
	rawDiffGitRe  = regexp.MustCompile(`^diff --git `)
)

// How many non-blank lines above a block are examined for a path before
// giving up. Keeps inference from grabbing unrelated prose far above.
const maxLookback = 4

// Parse extracts patch intents from text. Parsing is deterministic:
// identical input yields identical output, in order of appearance.
func Parse(input string) Result {
	input = CutAtReset(input)

	var res Result
	blocks, err := extractCodeBlocks([]byte(input))
	if err != nil {
		// goldmark's walker never fails on plain text input; treat a
		// failure as "nothing parseable" rather than crashing intake.
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Code: DiagMissingHeader, Detail: "markdown walk failed: " + err.Error()})
		return res
	}

	for i, block := range blocks {
		parseBlock(&res, i, block, input)
	}
	return res
}

// CutAtReset drops everything up to and including the last reset marker
// that sits outside any fenced block. The marker may trail other prose
// on its line. Intake applies this once so path scanning sees the same
// suffix the parser does. Fence tracking mirrors the markdown rule: a
// closing fence must be at least as long as its opener and use the same
// character.
func CutAtReset(input string) string {
	if !strings.Contains(input, ResetMarker) {
		return input
	}
	lines := strings.Split(input, "\n")
	inFence := false
	var fenceChar byte
	fenceLen := 0
	cut := -1
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := fenceLineRe.FindStringSubmatch(line); m != nil {
			run := m[1]
			if !inFence {
				inFence = true
				fenceChar = run[0]
				fenceLen = len(run)
			} else if run[0] == fenceChar && len(run) >= fenceLen && strings.Trim(trimmed, string(fenceChar)) == "" {
				inFence = false
			}
		} else if !inFence {
			if idx := strings.LastIndex(line, ResetMarker); idx >= 0 {
				cut = offset + idx + len(ResetMarker)
			}
		}
		offset += len(line) + 1
	}
	if cut < 0 || cut >= len(input) {
		if cut >= 0 {
			return ""
		}
		return input
	}
	return input[cut:]
}

// section is a run of block lines belonging to one target path. A block
// holds several sections when it re-declares FILE headers mid-stream.
type section struct {
	path       string
	resolution model.PathResolution
	lines      []string
}

func parseBlock(res *Result, index int, block codeBlock, source string) {
	bodyLines := splitBodyLines(block.Body)

	var sections []section
	current := -1
	open := func(path string, r model.PathResolution) {
		sections = append(sections, section{path: path, resolution: r})
		current = len(sections) - 1
	}

	if m := infoHeaderRe.FindStringSubmatch(block.Info); m != nil {
		open(m[1], model.PathExplicit)
	}

	for _, line := range bodyLines {
		if m := headerRe.FindStringSubmatch(line); m != nil {
			// A header re-declaration closes the current section. When
			// a lookback path was inferred for leading content, an
			// explicit header with no content before it overrides it.
			if current >= 0 && sections[current].resolution == model.PathInferred && blank(sections[current].lines) {
				sections = sections[:current]
			}
			open(m[1], model.PathExplicit)
			continue
		}
		if current < 0 {
			if path, ok := lookbackPath(source, block.FenceStart); ok {
				open(path, model.PathInferred)
			} else {
				open("", model.PathInferred)
			}
		}
		sections[current].lines = append(sections[current].lines, line)
	}

	if len(sections) == 0 {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Block: index, Code: DiagMissingHeader, Detail: "code block has no file header and no body"})
		return
	}

	for _, sec := range sections {
		finalize(res, index, sec)
	}
}

func finalize(res *Result, index int, sec section) {
	body := trimSection(sec.lines)

	// Raw git diff output names its own files; those headers win unless
	// an explicit FILE header already claimed the section.
	if sec.resolution != model.PathExplicit && isRawDiff(sec.lines) {
		emitRawDiff(res, index, sec.lines)
		return
	}

	if sec.path == "" {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Block: index, Code: DiagMissingHeader, Detail: "code block has no file header and no plausible heading above it"})
		return
	}

	intent := model.PatchIntent{
		TargetPath: sec.path,
		Resolution: sec.resolution,
		BlockIndex: index,
		Body:       body,
	}

	switch {
	case strings.TrimSpace(body) == DeleteMarker:
		intent.Kind = model.KindDelete
		intent.Body = ""
	case hasSearchReplace(sec.lines):
		intent.Kind = model.KindSearchReplace
		replaces, diag := parseSearchReplace(sec.lines)
		if diag != "" {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Block: index, Code: DiagBadHunk, Detail: diag})
			return
		}
		intent.Replaces = replaces
	case containsHunkHeader(sec.lines):
		intent.Kind = model.KindUnifiedDiff
		hunks, diag := parseHunks(sec.lines)
		if diag != "" {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Block: index, Code: DiagBadHunk, Detail: diag})
			return
		}
		intent.Hunks = hunks
	default:
		intent.Kind = model.KindFullFile
	}

	// An empty body is only meaningful when the path was stated
	// explicitly; then the intent surfaces so a missing-body mistake is
	// visible rather than silently dropped.
	if intent.Kind == model.KindFullFile && intent.Body == "" && intent.Resolution != model.PathExplicit {
		return
	}

	res.Intents = append(res.Intents, intent)
}

// lookbackPath scans the lines above the opening fence for the nearest
// header line, markdown heading, or bold/backtick path token. Blank
// lines are skipped one at a time: the loop advances exactly one line
// per iteration, so a blank line can never cause the line above it to
// be stepped over as well.
func lookbackPath(source string, fenceStart int) (string, bool) {
	if fenceStart <= 0 {
		return "", false
	}
	above := strings.Split(strings.TrimSuffix(source[:fenceStart], "\n"), "\n")
	examined := 0
	for i := len(above) - 1; i >= 0 && examined < maxLookback; i-- {
		line := above[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		if fenceLineRe.MatchString(line) {
			return "", false
		}
		examined++
		if m := headerRe.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
		if m := headingRe.FindStringSubmatch(line); m != nil {
			if p, ok := pathToken(m[1]); ok {
				return p, true
			}
			return "", false
		}
		if m := boldRe.FindStringSubmatch(line); m != nil {
			if p, ok := pathToken(m[1]); ok {
				return p, true
			}
		}
		if m := codeSpanRe.FindStringSubmatch(line); m != nil {
			if p, ok := pathToken(m[1]); ok {
				return p, true
			}
		}
	}
	return "", false
}

// pathToken strips decoration from a heading candidate and accepts it
// only if it plausibly names a file: no spaces, and at least one dot or
// slash.
func pathToken(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`*")
	s = strings.TrimSuffix(s, ":")
	if s == "" || strings.ContainsAny(s, " \t") {
		return "", false
	}
	if !strings.ContainsAny(s, "./\\") {
		return "", false
	}
	return s, true
}

func splitBodyLines(body string) []string {
	if body == "" {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	return lines
}

// trimSection joins section lines into body text, dropping blank lines
// that immediately follow the header. Non-empty bodies keep a trailing
// newline, matching what a fenced block carries before its closing
// fence.
func trimSection(lines []string) string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	end := len(lines)
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n") + "\n"
}

func blank(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return true
}

func containsHunkHeader(lines []string) bool {
	for _, l := range lines {
		if hunkHeaderRe.MatchString(l) {
			return true
		}
	}
	return false
}

// parseHunks splits diff content at hunk headers. Lines before the
// first header (git's ---/+++ file headers, index lines) are ignored.
func parseHunks(lines []string) ([]model.Hunk, string) {
	var hunks []model.Hunk
	var cur *model.Hunk
	for _, line := range lines {
		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			hunks = append(hunks, model.Hunk{
				OldStart: atoiDefault(m[1], 0),
				OldCount: atoiDefault(m[2], 1),
				NewStart: atoiDefault(m[3], 0),
				NewCount: atoiDefault(m[4], 1),
			})
			cur = &hunks[len(hunks)-1]
			continue
		}
		if cur == nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+"):
			cur.Lines = append(cur.Lines, model.HunkLine{Op: model.OpAdd, Text: line[1:]})
		case strings.HasPrefix(line, "-"):
			cur.Lines = append(cur.Lines, model.HunkLine{Op: model.OpRemove, Text: line[1:]})
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file"
		case strings.HasPrefix(line, " "):
			cur.Lines = append(cur.Lines, model.HunkLine{Op: model.OpContext, Text: line[1:]})
		case line == "":
			cur.Lines = append(cur.Lines, model.HunkLine{Op: model.OpContext, Text: ""})
		default:
			// Models sometimes drop the leading space on context lines.
			cur.Lines = append(cur.Lines, model.HunkLine{Op: model.OpContext, Text: line})
		}
	}
	if len(hunks) == 0 {
		return nil, "diff content with no parseable hunks"
	}
	for i := range hunks {
		// Trailing blank context lines are almost always separator
		// artifacts (between files of a raw diff, or before a closing
		// fence), not file content.
		lines := hunks[i].Lines
		for len(lines) > 0 {
			last := lines[len(lines)-1]
			if last.Op == model.OpContext && last.Text == "" {
				lines = lines[:len(lines)-1]
			} else {
				break
			}
		}
		hunks[i].Lines = lines
		if len(lines) == 0 {
			return nil, "hunk header with empty hunk body"
		}
	}
	return hunks, ""
}

func hasSearchReplace(lines []string) bool {
	for _, l := range lines {
		if searchOpenRe.MatchString(l) {
			return true
		}
	}
	return false
}

// parseSearchReplace reads <<<< / ==== / >>>> triples into ordered
// replacement pairs.
func parseSearchReplace(lines []string) ([]model.Replace, string) {
	var out []model.Replace
	const (
		outside = iota
		inOld
		inNew
	)
	state := outside
	var cur model.Replace
	for _, line := range lines {
		switch state {
		case outside:
			if searchOpenRe.MatchString(line) {
				cur = model.Replace{}
				state = inOld
			}
		case inOld:
			if searchSepRe.MatchString(line) {
				state = inNew
			} else if searchCloseRe.MatchString(line) {
				return nil, "search block closed before separator"
			} else {
				cur.Old = append(cur.Old, line)
			}
		case inNew:
			if searchCloseRe.MatchString(line) {
				out = append(out, cur)
				state = outside
			} else {
				cur.New = append(cur.New, line)
			}
		}
	}
	if state != outside {
		return nil, "unterminated search/replace block"
	}
	if len(out) == 0 {
		return nil, "no complete search/replace pairs"
	}
	for _, r := range out {
		if len(r.Old) == 0 {
			return nil, "search/replace pair with empty search text"
		}
	}
	return out, ""
}

// isRawDiff reports whether section lines are raw git diff output
// carrying their own file headers, so the per-file paths inside win
// over any block-level header.
func isRawDiff(lines []string) bool {
	for _, l := range lines {
		if rawDiffGitRe.MatchString(l) || rawDiffFileRe.MatchString(l) {
			return true
		}
		if hunkHeaderRe.MatchString(l) {
			return false
		}
	}
	return false
}

// emitRawDiff splits a raw multi-file diff into one unified_diff intent
// per "+++ b/path" header.
func emitRawDiff(res *Result, index int, lines []string) {
	var path string
	var chunk []string
	flush := func() {
		if path == "" || len(chunk) == 0 {
			path = ""
			chunk = nil
			return
		}
		hunks, diag := parseHunks(chunk)
		if diag != "" {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{Block: index, Code: DiagBadHunk, Detail: path + ": " + diag})
		} else {
			res.Intents = append(res.Intents, model.PatchIntent{
				TargetPath: path,
				Resolution: model.PathExplicit,
				Kind:       model.KindUnifiedDiff,
				Body:       strings.Join(chunk, "\n") + "\n",
				Hunks:      hunks,
				BlockIndex: index,
			})
		}
		path = ""
		chunk = nil
	}
	for _, line := range lines {
		if rawDiffGitRe.MatchString(line) || rawDiffOldRe.MatchString(line) {
			flush()
			continue
		}
		if m := rawDiffFileRe.FindStringSubmatch(line); m != nil {
			if path != "" {
				flush()
			}
			p := m[1]
			if p != "/dev/null" {
				path = p
			}
			continue
		}
		if path != "" {
			chunk = append(chunk, line)
		}
	}
	flush()
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
