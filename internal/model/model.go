package model

// PathResolution records how an intent's target path was determined.
type PathResolution int

const (
	// PathExplicit means a FILE header inside the block (or on its fence
	// line, or a "+++ b/" diff header) named the target directly.
	PathExplicit PathResolution = iota
	// PathInferred means the path was recovered from prose preceding the
	// block: a markdown heading or a backticked/bold path token.
	PathInferred
)

func (r PathResolution) String() string {
	if r == PathExplicit {
		return "explicit"
	}
	return "inferred"
}

// ContentKind classifies what a patch block's body is.
type ContentKind int

const (
	KindFullFile ContentKind = iota
	KindUnifiedDiff
	KindSearchReplace
	KindDelete
)

func (k ContentKind) String() string {
	switch k {
	case KindFullFile:
		return "full_file"
	case KindUnifiedDiff:
		return "unified_diff"
	case KindSearchReplace:
		return "search_replace"
	case KindDelete:
		return "delete"
	}
	return "unknown"
}

// PatchIntent is one file-scoped edit instruction extracted from free text.
// It lives only for the duration of a single intake call.
type PatchIntent struct {
	TargetPath string // forward-slash relative path
	Resolution PathResolution
	Kind       ContentKind
	Body       string // raw block body (full content, diff text, or replace block)
	Hunks      []Hunk // populated for KindUnifiedDiff
	Replaces   []Replace
	BlockIndex int // index of the originating fenced block in the source text
}

// HunkLineOp is the role of one line within a diff hunk.
type HunkLineOp int

const (
	OpContext HunkLineOp = iota
	OpAdd
	OpRemove
)

// HunkLine is a single line of a unified diff hunk.
type HunkLine struct {
	Op   HunkLineOp
	Text string
}

// Hunk is one @@-delimited edit range of a unified diff. The header counts
// are kept for diagnostics only; application relocates the hunk by matching
// its context and removed lines against the current file.
type Hunk struct {
	OldStart, OldCount int
	NewStart, NewCount int
	Lines              []HunkLine
}

// Target returns the lines a hunk must find in the current file: context
// and removed lines, in order.
func (h Hunk) Target() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Op == OpContext || l.Op == OpRemove {
			out = append(out, l.Text)
		}
	}
	return out
}

// Replacement returns the lines the matched region becomes: context and
// added lines, in order.
func (h Hunk) Replacement() []string {
	var out []string
	for _, l := range h.Lines {
		if l.Op == OpContext || l.Op == OpAdd {
			out = append(out, l.Text)
		}
	}
	return out
}

// Replace is one search/replace pair from a <<<< / ==== / >>>> block.
type Replace struct {
	Old []string
	New []string
}

// Outcome is the terminal status of applying one intent.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeSkippedEmpty
	OutcomeFailedNotFound
	OutcomeFailedAmbiguous
	OutcomeSafetyBlocked
	OutcomeConfirmedOverwrite
	OutcomeDeleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeSkippedEmpty:
		return "skipped_empty"
	case OutcomeFailedNotFound:
		return "failed_not_found"
	case OutcomeFailedAmbiguous:
		return "failed_ambiguous"
	case OutcomeSafetyBlocked:
		return "failed_safety_blocked"
	case OutcomeConfirmedOverwrite:
		return "confirmed_overwrite"
	case OutcomeDeleted:
		return "deleted"
	}
	return "unknown"
}

// Changed reports whether the outcome wrote (or removed) the target file.
func (o Outcome) Changed() bool {
	switch o {
	case OutcomeApplied, OutcomeConfirmedOverwrite, OutcomeDeleted:
		return true
	}
	return false
}

// ApplyResult is the record of one apply attempt. PreContent and RawBody
// are retained regardless of outcome so failures can be reconstructed from
// the event log.
type ApplyResult struct {
	Path       string
	Outcome    Outcome
	Detail     string // diagnostic, e.g. which hunk failed and why
	NewContent string // content written on success
	PreContent string // file content before the attempt ("" if absent)
	RawBody    string // the intent body as parsed
	Created    bool   // target did not exist before
}

// Summary aggregates one intake run for display.
type Summary struct {
	Results     []ApplyResult
	Imported    []string // paths added via the path-scanning fallback
	Diagnostics []string
	Message     string
}
