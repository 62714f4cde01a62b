package tui

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ctxpatch/internal/app"
	"ctxpatch/internal/cli"
	"ctxpatch/internal/selection"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/main.py": "def main():\n    pass\n",
		"README.md":   "# readme\n",
	}
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	a, err := app.New(&cli.Config{Root: root, FreshState: true})
	if err != nil {
		t.Fatal(err)
	}
	return New(a)
}

func TestViewDuringProcessingDoesNotReadSelection(t *testing.T) {
	// While a process run is in flight, the run's goroutine owns the
	// selection; re-renders triggered by spinner ticks must only read
	// the status snapshot captured beforehand.
	m := newTestModel(t)
	m.state = stateProcessing

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sel := m.app.Sel()
		for i := 0; i < 500; i++ {
			sel.SetAxis("src/main.py", selection.Delta)
			sel.SetAxis("src/main.py", selection.Unselected)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if out := m.View(); !strings.Contains(out, "Processing") {
				t.Error("processing view missing spinner line")
				return
			}
		}
	}()
	wg.Wait()
}

func TestStatusSnapshotRefreshes(t *testing.T) {
	m := newTestModel(t)
	if m.status.delta != 0 {
		t.Fatalf("initial delta = %d", m.status.delta)
	}

	m.app.Sel().SetAxis("src/main.py", selection.Delta)
	m.refreshStatus()

	if m.status.delta != 1 {
		t.Errorf("delta = %d, want 1", m.status.delta)
	}
	if m.status.sizes.Files != 1 || m.status.sizes.Bytes == 0 {
		t.Errorf("sizes = %+v", m.status.sizes)
	}
	if !strings.Contains(m.renderStatus(), "focus:1") {
		t.Error("status line does not show the snapshot")
	}
}

func TestListenExitsWhenRunCompletes(t *testing.T) {
	m := newTestModel(t)
	m.procDone = make(chan struct{})
	cmd := m.listen()

	done := make(chan struct{})
	go func() {
		if msg := cmd(); msg != nil {
			t.Errorf("released listen returned %v", msg)
		}
		close(done)
	}()

	m.finishProcess()
	<-done

	if m.procDone != nil {
		t.Error("procDone not cleared after completion")
	}
}

func TestListenForwardsConfirm(t *testing.T) {
	m := newTestModel(t)
	m.procDone = make(chan struct{})
	cmd := m.listen()

	go func() { m.confirmReq <- "overwrite?" }()
	msg := cmd()
	cm, ok := msg.(confirmMsg)
	if !ok || cm.prompt != "overwrite?" {
		t.Fatalf("msg = %#v", msg)
	}
}
