// Package tui is the interactive session: a navigable project tree
// with selection toggles, and a process action that consumes pasted
// model output. All state mutation happens inside Update; background
// work talks to the loop only through messages.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ctxpatch/internal/app"
	"ctxpatch/internal/estimate"
	"ctxpatch/internal/intake"
	"ctxpatch/internal/model"
	"ctxpatch/internal/patcher"
	"ctxpatch/internal/selection"
	"ctxpatch/internal/source"
)

// --- Styles ---
var (
	cursorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dirStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	deltaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	baseStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	mapStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
	statusStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("197"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
)

// --- Messages ---

type summaryMsg struct{ model.Summary }

type errorMsg struct{ err error }

// confirmMsg asks the user a yes/no question raised mid-apply.
type confirmMsg struct{ prompt string }

// chooseMsg asks append-or-replace for scanned paths.
type chooseMsg struct{ paths []string }

type state int

const (
	stateBrowse state = iota
	stateProcessing
	stateConfirm
	stateChoose
)

// statusInfo is a snapshot of the status-bar numbers, captured inside
// Update. View never reads the selection directly: a background process
// run owns it until its summary lands.
type statusInfo struct {
	delta  int
	base   int
	mapped int
	sizes  estimate.Sizes
}

// Model is the bubbletea model for the session.
type Model struct {
	app     *app.App
	spinner spinner.Model
	state   state

	width  int
	height int
	top    int // first visible row of the tree

	summary   *model.Summary
	err       error
	prompt    string
	choices   []string
	statusMsg string
	status    statusInfo

	// Bridges from the processing goroutine into the event loop.
	confirmReq chan string
	confirmAns chan bool
	chooseReq  chan []string
	chooseAns  chan intake.ImportMode

	// procDone is closed when the in-flight process run completes, so
	// the armed listen command always has an exit path.
	procDone chan struct{}
}

func New(a *app.App) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	m := &Model{
		app:        a,
		spinner:    s,
		confirmReq: make(chan string),
		confirmAns: make(chan bool),
		chooseReq:  make(chan []string),
		chooseAns:  make(chan intake.ImportMode),
	}
	a.SetChooser(intake.ChooserFunc(func(paths []string) intake.ImportMode {
		m.chooseReq <- paths
		return <-m.chooseAns
	}))
	m.refreshStatus()
	return m
}

// refreshStatus recomputes the status-bar snapshot. Only called from
// the event loop while no process run is in flight.
func (m *Model) refreshStatus() {
	delta, base := m.app.Sel().Counts()
	m.status = statusInfo{
		delta:  delta,
		base:   base,
		mapped: len(m.app.Sel().MapPaths()),
		sizes:  estimate.Sum(m.app.SelectedContent()),
	}
}

// Confirmer returns the applier confirmer bound to this TUI's modal.
func (m *Model) Confirmer() patcher.Confirmer {
	return patcher.ConfirmFunc(func(prompt string) bool {
		m.confirmReq <- prompt
		return <-m.confirmAns
	})
}

func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case confirmMsg:
		m.state = stateConfirm
		m.prompt = msg.prompt
		return m, nil

	case chooseMsg:
		m.state = stateChoose
		m.choices = msg.paths
		return m, nil

	case summaryMsg:
		m.state = stateBrowse
		sum := msg.Summary
		m.summary = &sum
		m.finishProcess()
		return m, nil

	case errorMsg:
		m.state = stateBrowse
		m.err = msg.err
		m.finishProcess()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	default:
		var cmd tea.Cmd
		if m.state == stateProcessing {
			m.spinner, cmd = m.spinner.Update(msg)
		}
		return m, cmd
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case stateConfirm:
		switch msg.String() {
		case "y", "Y":
			m.state = stateProcessing
			m.confirmAns <- true
			return m, m.listen()
		case "n", "N", "esc", "enter":
			m.state = stateProcessing
			m.confirmAns <- false
			return m, m.listen()
		}
		return m, nil

	case stateChoose:
		switch msg.String() {
		case "a":
			m.state = stateProcessing
			m.chooseAns <- intake.ImportAppend
			return m, m.listen()
		case "r":
			m.state = stateProcessing
			m.chooseAns <- intake.ImportReplace
			return m, m.listen()
		case "esc", "q":
			m.state = stateProcessing
			m.chooseAns <- intake.ImportCancel
			return m, m.listen()
		}
		return m, nil

	case stateProcessing:
		// Input is ignored while a process run is in flight.
		return m, nil
	}

	// Browse mode.
	nav := m.app.Nav()
	switch msg.String() {
	case "q", "ctrl+c":
		if err := m.app.SaveState(); err != nil {
			m.err = err
		}
		return m, tea.Quit
	case "up", "k":
		nav.Up()
	case "down", "j":
		nav.Down()
	case "right", "l":
		nav.Expand()
	case "left", "h":
		nav.Collapse()
	case " ":
		if cur := nav.Current(); cur != nil {
			m.app.Toggle(cur.Rel, nil)
			m.summary = nil
			m.refreshStatus()
		}
	case "m":
		if cur := nav.Current(); cur != nil {
			m.app.ToggleMap(cur.Rel)
			m.refreshStatus()
		}
	case "P":
		m.app.Sel().PromoteDeltaToBase()
		m.statusMsg = "focus promoted to base"
		m.refreshStatus()
	case "U":
		m.app.Sel().DemoteBaseToUnselected()
		m.statusMsg = "base cleared"
		m.refreshStatus()
	case "c":
		if sizes, err := m.app.CopySelection(); err != nil {
			m.statusMsg = "copy failed: " + err.Error()
		} else {
			m.statusMsg = fmt.Sprintf("copied %d file(s), ~%d tokens", sizes.Files, sizes.Tokens)
		}
	case "p":
		return m.startProcess()
	}
	m.clampScroll()
	return m, nil
}

// startProcess reads the paste source and runs intake in the
// background; confirmations surface as modal messages.
func (m *Model) startProcess() (tea.Model, tea.Cmd) {
	text, err := source.Read()
	if err != nil {
		m.err = err
		return m, nil
	}
	if strings.TrimSpace(text) == "" {
		m.statusMsg = "clipboard is empty"
		return m, nil
	}
	m.state = stateProcessing
	m.err = nil
	m.summary = nil
	m.procDone = make(chan struct{})
	run := func() tea.Msg {
		return summaryMsg{m.app.Process(text)}
	}
	return m, tea.Batch(m.spinner.Tick, run, m.listen())
}

// finishProcess releases the armed listen command and refreshes the
// status snapshot now that the run's mutations are visible again.
func (m *Model) finishProcess() {
	if m.procDone != nil {
		close(m.procDone)
		m.procDone = nil
	}
	m.refreshStatus()
}

// listen forwards the next confirmation or import-mode request from
// the processing goroutine into the event loop. Re-armed after every
// answered modal; exits when the run completes without raising one.
func (m *Model) listen() tea.Cmd {
	done := m.procDone
	return func() tea.Msg {
		select {
		case prompt := <-m.confirmReq:
			return confirmMsg{prompt: prompt}
		case paths := <-m.chooseReq:
			return chooseMsg{paths: paths}
		case <-done:
			return nil
		}
	}
}

func (m *Model) View() string {
	var b strings.Builder

	switch m.state {
	case stateProcessing:
		b.WriteString(fmt.Sprintf("%s Processing...\n", m.spinner.View()))
	case stateConfirm:
		b.WriteString(promptStyle.Render(m.prompt+" [y/n]") + "\n")
	case stateChoose:
		b.WriteString(promptStyle.Render(fmt.Sprintf("Found %d path(s).", len(m.choices))) + "\n")
		for i, p := range m.choices {
			if i >= 8 {
				b.WriteString(faintStyle.Render(fmt.Sprintf("  ... and %d more", len(m.choices)-i)) + "\n")
				break
			}
			b.WriteString("  " + p + "\n")
		}
		b.WriteString(promptStyle.Render("(a)ppend to selection, (r)eplace selection, (esc) cancel") + "\n")
	default:
		m.renderTree(&b)
	}

	b.WriteString(m.renderStatus())
	return b.String()
}

func (m *Model) renderTree(b *strings.Builder) {
	nav := m.app.Nav()
	sel := m.app.Sel()
	visible := nav.Visible()

	rows := m.treeRows()
	end := m.top + rows
	if end > len(visible) {
		end = len(visible)
	}

	for i := m.top; i < end; i++ {
		n := visible[i]
		depth := strings.Count(n.Rel, "/")
		indent := strings.Repeat("  ", depth)

		cursor := "  "
		if i == nav.Cursor() {
			cursor = cursorStyle.Render("> ")
		}

		var line string
		if n.IsDir {
			arrow := "+"
			if n.Expanded {
				arrow = "-"
			}
			line = dirStyle.Render(fmt.Sprintf("%s %s/", arrow, n.Name()))
		} else {
			mark := "[ ]"
			style := lipgloss.NewStyle()
			switch sel.AxisOf(n.Rel) {
			case selection.Delta:
				mark = "[*]"
				style = deltaStyle
			case selection.Base:
				mark = "[+]"
				style = baseStyle
			}
			name := n.Name()
			if len(sel.Snippets(n.Rel)) > 0 {
				name += faintStyle.Render(" (snippet)")
			}
			line = style.Render(fmt.Sprintf("%s %s", mark, name))
			if sel.MapFlag(n.Rel) {
				line += mapStyle.Render(" ◆")
			}
		}
		b.WriteString(cursor + indent + line + "\n")
	}
}

func (m *Model) renderStatus() string {
	var parts []string

	parts = append(parts, statusStyle.Render(fmt.Sprintf("focus:%d base:%d map:%d", m.status.delta, m.status.base, m.status.mapped)))
	parts = append(parts, faintStyle.Render(fmt.Sprintf("~%d tokens (%d bytes)", m.status.sizes.Tokens, m.status.sizes.Bytes)))

	if m.err != nil {
		parts = append(parts, errorStyle.Render("error: "+m.err.Error()))
	} else if m.summary != nil {
		parts = append(parts, successStyle.Render(summaryLine(*m.summary)))
	} else if m.statusMsg != "" {
		parts = append(parts, faintStyle.Render(m.statusMsg))
	} else {
		parts = append(parts, faintStyle.Render("space toggle · m map · c copy · p process · P promote · q quit"))
	}
	return "\n" + strings.Join(parts, "  ") + "\n"
}

// summaryLine compresses an intake run into one status line; details
// live in the event log.
func summaryLine(sum model.Summary) string {
	var applied, failed, skipped int
	for _, res := range sum.Results {
		switch {
		case res.Outcome.Changed():
			applied++
		case res.Outcome == model.OutcomeSkippedEmpty || res.Outcome == model.OutcomeSafetyBlocked:
			skipped++
		default:
			failed++
		}
	}
	switch {
	case len(sum.Results) > 0:
		return fmt.Sprintf("%d applied, %d skipped, %d failed", applied, skipped, failed)
	case len(sum.Imported) > 0:
		return fmt.Sprintf("imported %d path(s)", len(sum.Imported))
	default:
		return sum.Message
	}
}

func (m *Model) treeRows() int {
	rows := m.height - 2
	if rows < 1 {
		rows = 20
	}
	return rows
}

// clampScroll keeps the cursor inside the visible window.
func (m *Model) clampScroll() {
	cursor := m.app.Nav().Cursor()
	rows := m.treeRows()
	if cursor < m.top {
		m.top = cursor
	}
	if cursor >= m.top+rows {
		m.top = cursor - rows + 1
	}
}
