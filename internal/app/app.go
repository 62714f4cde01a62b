// Package app wires the session together: configuration, tree scan,
// selection lifecycle, intake, and the fix workflow.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"ctxpatch/internal/cli"
	"ctxpatch/internal/config"
	"ctxpatch/internal/estimate"
	"ctxpatch/internal/fs"
	"ctxpatch/internal/intake"
	"ctxpatch/internal/model"
	"ctxpatch/internal/patcher"
	"ctxpatch/internal/runner"
	"ctxpatch/internal/selection"
	"ctxpatch/internal/source"
	"ctxpatch/internal/tree"
	"ctxpatch/internal/ui"
)

// snippetGuardSize is the default file size above which whole-file
// selection switches to a leading snippet unless confirmed.
const snippetGuardSize = 100 * 1024

// snippetLines is the span selected when a large file is trimmed.
const snippetLines = 200

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

// App owns all session state. All mutation happens synchronously inside
// one handler at a time.
type App struct {
	cfg     *cli.Config
	project config.Config

	fsys    *fs.DiskFS
	ignorer *fs.Ignorer
	nav     *tree.Navigator
	sel     *selection.State
	dsp     *intake.Dispatcher
	run     *runner.Runner

	chooser intake.Chooser
	confirm *confirmProxy
	log     *slog.Logger
}

// confirmProxy lets the UI layer swap in its own confirmation surface
// after the session is built.
type confirmProxy struct {
	inner patcher.Confirmer
}

func (p *confirmProxy) Confirm(prompt string) bool {
	if p.inner == nil {
		return false
	}
	return p.inner.Confirm(prompt)
}

// New builds a session rooted at cfg.Root. A permission failure on the
// root itself is fatal; everything else degrades.
func New(cfg *cli.Config) (*App, error) {
	project, err := config.Load(cfg.Root)
	if err != nil {
		return nil, err
	}

	fsys, err := fs.NewDiskFS(cfg.Root)
	if err != nil {
		return nil, err
	}
	ignorer := fs.NewIgnorer(cfg.Root, project.Ignore)
	t, err := tree.Scan(cfg.Root, ignorer)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", cfg.Root, err)
	}

	a := &App{
		cfg:     cfg,
		project: project,
		fsys:    fsys,
		ignorer: ignorer,
		nav:     tree.NewNavigator(t),
		run:     runner.New(cfg.Root, slog.Default()),
		log:     slog.Default(),
	}
	a.loadSelection(t)

	a.confirm = &confirmProxy{}
	if cfg.Yes {
		a.confirm.inner = patcher.ConfirmFunc(func(string) bool { return true })
	} else {
		a.confirm.inner = patcher.ConfirmFunc(ui.Confirm)
	}
	applier := patcher.New(fsys, a.confirm, a.log)
	a.dsp = intake.NewDispatcher(applier, a.sel, a.nav, a.rescan, intake.ChooserFunc(a.chooseImportMode), a.log)
	return a, nil
}

func (a *App) loadSelection(t *tree.Tree) {
	keep := func(path string) bool { return t.Find(path) != nil }
	if a.cfg.FreshState {
		a.sel = selection.NewState()
	} else {
		sel, dropped, err := selection.Load(a.cfg.Root, keep)
		if err != nil {
			ui.Warning("ignoring unreadable selection snapshot: %v", err)
			sel = selection.NewState()
		}
		for _, p := range dropped {
			a.log.Warn("snapshot entry no longer in tree", slog.String("path", p))
		}
		a.sel = sel
	}

	// Configured preselect globs seed the focus set, but only for a
	// session starting without saved selection.
	if len(a.sel.Paths()) == 0 {
		for _, pattern := range a.project.Preselect {
			for _, p := range t.Files() {
				if ok, _ := doublestar.Match(pattern, p); ok {
					a.sel.SetAxis(p, selection.Delta)
					a.nav.EnsureVisible(p)
				}
			}
		}
	}

	// Files named on the command line start as delivered background.
	for _, p := range a.cfg.Paths {
		key := fs.Canonical(p)
		if t.Contains(key) {
			a.sel.SetAxis(key, selection.Base)
			a.nav.EnsureVisible(key)
		} else {
			ui.Warning("not in project tree: %s", p)
		}
	}
}

func (a *App) rescan() (*tree.Tree, error) {
	return tree.Scan(a.cfg.Root, a.ignorer)
}

// SetChooser installs the interactive append/replace prompt. Before the
// TUI starts (and in --apply mode) imports default to append.
func (a *App) SetChooser(c intake.Chooser) {
	a.chooser = c
}

// SetConfirmer replaces the safety-confirmation surface, e.g. with the
// TUI's modal instead of a raw terminal prompt.
func (a *App) SetConfirmer(c patcher.Confirmer) {
	a.confirm.inner = c
}

func (a *App) chooseImportMode(paths []string) intake.ImportMode {
	if a.chooser != nil {
		return a.chooser.ChooseImportMode(paths)
	}
	return intake.ImportAppend
}

// Nav exposes the tree cursor to the UI layer.
func (a *App) Nav() *tree.Navigator { return a.nav }

// Sel exposes the selection state to the UI layer.
func (a *App) Sel() *selection.State { return a.sel }

// Run executes the one-shot --apply flow. Panics become errors with a
// stack so an internal bug never takes the terminal down raw.
func (a *App) Run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	text, err := source.Read()
	if err != nil {
		return err
	}
	if text == "" {
		ui.Warning("Source is empty. Nothing to process.")
		return nil
	}

	sum := a.Process(text)
	ui.PrintSummary(sum)
	return a.SaveState()
}

// Process runs intake on text and, when patches landed, the fix
// workflow afterwards.
func (a *App) Process(text string) model.Summary {
	sum := a.dsp.Process(text)
	if anyChanged(sum) {
		a.runFixes(&sum)
	}
	return sum
}

func anyChanged(sum model.Summary) bool {
	for _, res := range sum.Results {
		if res.Outcome.Changed() {
			return true
		}
	}
	return false
}

// runFixes executes the resolved verification commands in order and
// stops at the first failure, feeding its output back through the path
// scanner so files named in errors join the focus set.
func (a *App) runFixes(sum *model.Summary) {
	cmds := config.ResolveFixCommands(a.cfg.Root, a.project)
	for _, cmd := range cmds {
		res := a.run.Run(context.Background(), cmd, a.project.Fix.Timeout.Std())
		if res.Ok() {
			continue
		}
		if res.TimedOut {
			sum.Diagnostics = append(sum.Diagnostics, fmt.Sprintf("fix command timed out after %s: %s", a.project.Fix.Timeout, cmd))
			return
		}
		sum.Diagnostics = append(sum.Diagnostics, fmt.Sprintf("fix command failed (exit %d): %s", res.ExitCode, cmd))
		report := res.Stdout + "\n" + res.Stderr
		for _, p := range a.importMentioned(report) {
			sum.Imported = append(sum.Imported, p)
		}
		return
	}
}

// importMentioned adds project files named in a failure report to the
// Delta set.
func (a *App) importMentioned(report string) []string {
	found := findProjectPaths(report, a.nav.Tree())
	for _, p := range found {
		a.sel.SetAxis(p, selection.Delta)
		a.nav.EnsureVisible(p)
	}
	return found
}

// Toggle cycles the axis of the node under path. Directories apply the
// all-or-nothing bulk rule over descendants. Large files get a leading
// snippet instead of full content unless confirmed.
func (a *App) Toggle(path string, confirmFull func(path string, size int64) bool) {
	n := a.nav.Tree().Find(path)
	if n == nil {
		return
	}
	if n.IsDir {
		a.sel.ToggleDirectory(a.nav.Tree().FilesUnder(n.Rel))
		return
	}

	threshold := a.project.SnippetThreshold
	if threshold == 0 {
		threshold = snippetGuardSize
	}
	wasUnselected := a.sel.AxisOf(n.Rel) == selection.Unselected
	a.sel.Toggle(n.Rel)
	if wasUnselected && n.Size > threshold && a.sel.AxisOf(n.Rel) != selection.Unselected {
		if confirmFull == nil || !confirmFull(n.Rel, n.Size) {
			a.sel.SetSnippets(n.Rel, []selection.Span{{Start: 1, End: snippetLines}})
		}
	}
	if a.sel.AxisOf(n.Rel) == selection.Unselected {
		a.sel.SetSnippets(n.Rel, nil)
	}
}

// ToggleMap flips the map flag under path, batching over directories.
func (a *App) ToggleMap(path string) {
	n := a.nav.Tree().Find(path)
	if n == nil {
		return
	}
	if n.IsDir {
		a.sel.ToggleMapBatch(a.nav.Tree().FilesUnder(n.Rel))
		return
	}
	a.sel.ToggleMap(n.Rel)
}

// SelectedContent reads the content of every Delta and Base file,
// honoring snippet spans. Used for size estimates.
func (a *App) SelectedContent() []string {
	var out []string
	for _, axis := range []selection.Axis{selection.Delta, selection.Base} {
		for _, p := range a.sel.PathsWithAxis(axis) {
			data, err := a.fsys.Read(p)
			if err != nil {
				continue
			}
			out = append(out, applySnippets(string(data), a.sel.Snippets(p)))
		}
	}
	return out
}

// CopySelection writes the concatenated content of every selected file
// to the system clipboard and returns the size estimate of what was
// copied.
func (a *App) CopySelection() (estimate.Sizes, error) {
	contents := a.SelectedContent()
	if len(contents) == 0 {
		return estimate.Sizes{}, errors.New("nothing selected")
	}
	if err := source.WriteClipboard(strings.Join(contents, "\n\n")); err != nil {
		return estimate.Sizes{}, fmt.Errorf("copy to clipboard: %w", err)
	}
	return estimate.Sum(contents), nil
}

// SaveState persists the selection snapshot next to the project.
func (a *App) SaveState() error {
	return a.sel.Save(a.cfg.Root)
}
