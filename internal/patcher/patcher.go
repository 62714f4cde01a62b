// Package patcher applies parsed patch intents to the working tree.
// Writes are all-or-nothing per file: an intent either lands completely
// or leaves the file byte-identical to its pre-apply state.
package patcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"ctxpatch/internal/fs"
	"ctxpatch/internal/model"
)

var (
	ErrNotFound  = errors.New("context not found")
	ErrAmbiguous = errors.New("context is ambiguous")
)

// overwriteGuardSize is the smallest existing file the overwrite safety
// gate cares about. Tiny files are cheap to restore from version
// control; shrinking them silently is fine.
const overwriteGuardSize = 200

// Confirmer answers yes/no safety questions. The interactive UI
// implements it; tests substitute a canned answer.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Applier applies intents against one filesystem root.
type Applier struct {
	fsys    fs.FS
	confirm Confirmer
	log     *slog.Logger
}

func New(fsys fs.FS, confirm Confirmer, log *slog.Logger) *Applier {
	if log == nil {
		log = slog.Default()
	}
	return &Applier{fsys: fsys, confirm: confirm, log: log}
}

// Apply executes one intent. It always returns a result, never panics
// on malformed input, and records the pre-apply content and raw body
// for diagnostics regardless of outcome.
func (a *Applier) Apply(intent model.PatchIntent) model.ApplyResult {
	res := model.ApplyResult{
		Path:    fs.Canonical(intent.TargetPath),
		RawBody: intent.Body,
	}

	pre, err := a.fsys.Read(intent.TargetPath)
	exists := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		res.Outcome = model.OutcomeFailedNotFound
		res.Detail = fmt.Sprintf("read failed: %v", err)
		a.logResult(res)
		return res
	}
	res.PreContent = string(pre)

	switch intent.Kind {
	case model.KindDelete:
		a.applyDelete(&res, exists)
	case model.KindUnifiedDiff:
		a.applyDiff(&res, intent, exists)
	case model.KindSearchReplace:
		a.applySearchReplace(&res, intent, exists)
	default:
		a.applyFullFile(&res, intent, exists)
	}

	a.logResult(res)
	return res
}

func (a *Applier) applyDelete(res *model.ApplyResult, exists bool) {
	if !exists {
		res.Outcome = model.OutcomeFailedNotFound
		res.Detail = "file does not exist"
		return
	}
	if a.confirm == nil || !a.confirm.Confirm(fmt.Sprintf("Delete %s?", res.Path)) {
		res.Outcome = model.OutcomeSafetyBlocked
		res.Detail = "deletion declined"
		return
	}
	if err := a.fsys.Delete(res.Path); err != nil {
		res.Outcome = model.OutcomeFailedNotFound
		res.Detail = fmt.Sprintf("delete failed: %v", err)
		return
	}
	res.Outcome = model.OutcomeDeleted
}

func (a *Applier) applyDiff(res *model.ApplyResult, intent model.PatchIntent, exists bool) {
	if !exists {
		res.Outcome = model.OutcomeFailedNotFound
		res.Detail = "cannot apply diff to missing file"
		return
	}
	newContent, err := applyHunks(res.PreContent, intent.Hunks)
	if err != nil {
		res.Detail = err.Error()
		if errors.Is(err, ErrAmbiguous) {
			res.Outcome = model.OutcomeFailedAmbiguous
		} else {
			res.Outcome = model.OutcomeFailedNotFound
		}
		return
	}
	a.write(res, newContent, model.OutcomeApplied, false)
}

func (a *Applier) applySearchReplace(res *model.ApplyResult, intent model.PatchIntent, exists bool) {
	if !exists {
		res.Outcome = model.OutcomeFailedNotFound
		res.Detail = "cannot apply replacement to missing file"
		return
	}
	newContent, err := applyReplaces(res.PreContent, intent.Replaces)
	if err != nil {
		res.Detail = err.Error()
		if errors.Is(err, ErrAmbiguous) {
			res.Outcome = model.OutcomeFailedAmbiguous
		} else {
			res.Outcome = model.OutcomeFailedNotFound
		}
		return
	}
	a.write(res, newContent, model.OutcomeApplied, false)
}

func (a *Applier) applyFullFile(res *model.ApplyResult, intent model.PatchIntent, exists bool) {
	if !exists {
		if intent.Body == "" {
			// Explicit header with no body: surfaced, not written.
			res.Outcome = model.OutcomeSkippedEmpty
			res.Detail = "empty body for a file that does not exist"
			return
		}
		a.write(res, intent.Body, model.OutcomeApplied, true)
		return
	}
	if reason := overwriteRisk(res.PreContent, intent.Body); reason != "" {
		prompt := fmt.Sprintf("Overwrite %s? %s", res.Path, reason)
		if a.confirm == nil || !a.confirm.Confirm(prompt) {
			res.Outcome = model.OutcomeSafetyBlocked
			res.Detail = reason
			return
		}
		a.write(res, intent.Body, model.OutcomeConfirmedOverwrite, false)
		return
	}
	a.write(res, intent.Body, model.OutcomeApplied, false)
}

// overwriteRisk inspects a full-file replacement of an existing file
// and returns a non-empty reason when it looks like data loss: the new
// content is less than half the old, or the body carries diff hunk
// headers and was probably misclassified as a whole file.
func overwriteRisk(old, new string) string {
	if len(old) <= overwriteGuardSize {
		return ""
	}
	if bodyLooksLikeDiff(new) {
		return "content looks like a diff, not a whole file"
	}
	if len(new)*2 < len(old) {
		return fmt.Sprintf("new content is much smaller (%d bytes -> %d bytes)", len(old), len(new))
	}
	return ""
}

func bodyLooksLikeDiff(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "@@ -") && strings.Contains(line, " +") && strings.Contains(line[2:], "@@") {
			return true
		}
	}
	return false
}

func (a *Applier) write(res *model.ApplyResult, content string, outcome model.Outcome, created bool) {
	if err := a.fsys.Write(res.Path, []byte(content)); err != nil {
		res.Outcome = model.OutcomeFailedNotFound
		res.Detail = fmt.Sprintf("write failed: %v", err)
		return
	}
	res.Outcome = outcome
	res.NewContent = content
	res.Created = created
}

func (a *Applier) logResult(res model.ApplyResult) {
	a.log.Info("patch applied",
		slog.String("path", res.Path),
		slog.String("outcome", res.Outcome.String()),
		slog.String("detail", res.Detail),
		slog.Int("pre_bytes", len(res.PreContent)),
		slog.Int("body_bytes", len(res.RawBody)),
	)
}
