// Package intake is the single entry point for pasted or piped model
// output: it tries patch extraction first and falls back to scanning
// the text for project paths to import into the selection.
package intake

import (
	"fmt"
	"log/slog"

	"ctxpatch/internal/fs"
	"ctxpatch/internal/model"
	"ctxpatch/internal/parser"
	"ctxpatch/internal/patcher"
	"ctxpatch/internal/selection"
	"ctxpatch/internal/tree"
)

// ImportMode is the caller's answer when path scanning finds candidates.
type ImportMode int

const (
	ImportCancel ImportMode = iota
	// ImportAppend adds matches to the current Delta set.
	ImportAppend
	// ImportReplace clears all axis state first, leaving exactly the
	// matched set selected.
	ImportReplace
)

// Chooser resolves the append-or-replace decision. The TUI implements
// it with a modal; tests use a canned answer.
type Chooser interface {
	ChooseImportMode(paths []string) ImportMode
}

// ChooserFunc adapts a function to the Chooser interface.
type ChooserFunc func(paths []string) ImportMode

func (f ChooserFunc) ChooseImportMode(paths []string) ImportMode { return f(paths) }

// Dispatcher wires the parser, applier, selection, and navigator into
// one "process" operation.
type Dispatcher struct {
	applier *patcher.Applier
	sel     *selection.State
	nav     *tree.Navigator
	rescan  func() (*tree.Tree, error)
	choose  Chooser
	log     *slog.Logger
}

func NewDispatcher(applier *patcher.Applier, sel *selection.State, nav *tree.Navigator, rescan func() (*tree.Tree, error), choose Chooser, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{applier: applier, sel: sel, nav: nav, rescan: rescan, choose: choose, log: log}
}

// Process runs intake on raw text. Every processed file yields exactly
// one result; a failure on one intent never blocks the others.
func (d *Dispatcher) Process(text string) model.Summary {
	var sum model.Summary

	// The reset marker discards preceding text for the path-scanning
	// fallback too, not just for patch extraction.
	text = parser.CutAtReset(text)

	parsed := parser.Parse(text)
	for _, diag := range parsed.Diagnostics {
		sum.Diagnostics = append(sum.Diagnostics, diag.String())
	}

	if len(parsed.Intents) > 0 {
		d.applyIntents(&sum, parsed.Intents)
		return sum
	}

	if d.importPaths(&sum, text) {
		return sum
	}

	if sum.Message == "" {
		sum.Message = "nothing recognized"
	}
	return sum
}

func (d *Dispatcher) applyIntents(sum *model.Summary, intents []model.PatchIntent) {
	changedTree := false
	for _, intent := range intents {
		res := d.applier.Apply(intent)
		sum.Results = append(sum.Results, res)
		if res.Outcome == model.OutcomeDeleted || res.Created {
			changedTree = true
		}
	}

	// Previous focus files become background before the patched set
	// takes over as the new focus.
	anyPatched := false
	for _, res := range sum.Results {
		if res.Outcome.Changed() && res.Outcome != model.OutcomeDeleted {
			anyPatched = true
			break
		}
	}
	if anyPatched {
		d.sel.PromoteDeltaToBase()
	}
	for _, res := range sum.Results {
		switch {
		case res.Outcome == model.OutcomeDeleted:
			d.sel.Forget(res.Path)
		case res.Outcome.Changed():
			// A successfully patched file is always the new focus,
			// whatever its prior axis state.
			d.sel.MarkDelta(res.Path)
		}
	}

	if changedTree {
		d.refreshTree(sum)
	}
	for _, res := range sum.Results {
		if res.Outcome.Changed() && res.Outcome != model.OutcomeDeleted {
			d.nav.EnsureVisible(res.Path)
		}
	}
	sum.Message = fmt.Sprintf("%d patch(es) processed", len(intents))
}

// importPaths is the fallback when no patch intents parsed: scan for
// known project paths and let the caller append or replace. Returns
// false when no candidate survived or the caller cancelled.
func (d *Dispatcher) importPaths(sum *model.Summary, text string) bool {
	found := parser.FindPaths(text, d.nav.Tree().Files())
	if len(found) == 0 {
		return false
	}

	mode := ImportAppend
	if d.choose != nil {
		mode = d.choose.ChooseImportMode(found)
	}
	switch mode {
	case ImportCancel:
		sum.Message = "import cancelled"
		return true
	case ImportReplace:
		for _, p := range d.sel.Paths() {
			d.sel.SetAxis(p, selection.Unselected)
		}
	}
	for _, p := range found {
		key := fs.Canonical(p)
		d.sel.SetAxis(key, selection.Delta)
		d.nav.EnsureVisible(key)
		sum.Imported = append(sum.Imported, key)
	}
	sum.Message = fmt.Sprintf("imported %d path(s)", len(found))
	d.log.Info("paths imported", slog.Int("count", len(found)), slog.Bool("replace", mode == ImportReplace))
	return true
}

// refreshTree rescans the working tree after creations or deletions and
// rebinds the navigator. Selection entries whose file vanished are an
// internal inconsistency: they are logged and dropped, never allowed to
// crash the session.
func (d *Dispatcher) refreshTree(sum *model.Summary) {
	t, err := d.rescan()
	if err != nil {
		sum.Diagnostics = append(sum.Diagnostics, "tree rescan failed: "+err.Error())
		return
	}
	d.nav.Rebind(t)
	dropped := d.sel.Prune(func(path string) bool { return t.Find(path) != nil })
	for _, p := range dropped {
		d.log.Warn("stale selection entry dropped", slog.String("path", p))
	}
}
