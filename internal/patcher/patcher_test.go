package patcher

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"ctxpatch/internal/fs"
	"ctxpatch/internal/model"
)

// fakeFS is a map-backed filesystem for apply tests.
type fakeFS struct {
	files map[string]string
}

func newFakeFS(files map[string]string) *fakeFS {
	if files == nil {
		files = map[string]string{}
	}
	return &fakeFS{files: files}
}

func (f *fakeFS) Read(path string) ([]byte, error) {
	content, ok := f.files[fs.Canonical(path)]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, os.ErrNotExist)
	}
	return []byte(content), nil
}

func (f *fakeFS) Write(path string, data []byte) error {
	f.files[fs.Canonical(path)] = string(data)
	return nil
}

func (f *fakeFS) Delete(path string) error {
	key := fs.Canonical(path)
	if _, ok := f.files[key]; !ok {
		return fmt.Errorf("remove %s: %w", path, os.ErrNotExist)
	}
	delete(f.files, key)
	return nil
}

func (f *fakeFS) Stat(path string) (os.FileInfo, error) {
	return nil, fmt.Errorf("stat %s: %w", path, os.ErrNotExist)
}

func yes() Confirmer { return ConfirmFunc(func(string) bool { return true }) }
func no() Confirmer  { return ConfirmFunc(func(string) bool { return false }) }

func TestFullFileCreate(t *testing.T) {
	fsys := newFakeFS(nil)
	a := New(fsys, no(), nil)

	res := a.Apply(model.PatchIntent{
		TargetPath: "pkg/new.go",
		Kind:       model.KindFullFile,
		Body:       "package pkg\n",
	})

	if res.Outcome != model.OutcomeApplied {
		t.Fatalf("outcome = %v (%s)", res.Outcome, res.Detail)
	}
	if !res.Created {
		t.Error("expected Created")
	}
	if fsys.files["pkg/new.go"] != "package pkg\n" {
		t.Errorf("content = %q", fsys.files["pkg/new.go"])
	}
}

func TestFullFileOverwriteSafetyGate(t *testing.T) {
	big := strings.Repeat("a line of existing content\n", 20)

	t.Run("declined shrink leaves file untouched", func(t *testing.T) {
		fsys := newFakeFS(map[string]string{"big.txt": big})
		a := New(fsys, no(), nil)

		res := a.Apply(model.PatchIntent{
			TargetPath: "big.txt",
			Kind:       model.KindFullFile,
			Body:       "tiny\n",
		})

		if res.Outcome != model.OutcomeSafetyBlocked {
			t.Fatalf("outcome = %v", res.Outcome)
		}
		if fsys.files["big.txt"] != big {
			t.Error("file was modified despite declined confirmation")
		}
	})

	t.Run("accepted shrink overwrites", func(t *testing.T) {
		fsys := newFakeFS(map[string]string{"big.txt": big})
		a := New(fsys, yes(), nil)

		res := a.Apply(model.PatchIntent{
			TargetPath: "big.txt",
			Kind:       model.KindFullFile,
			Body:       "tiny\n",
		})

		if res.Outcome != model.OutcomeConfirmedOverwrite {
			t.Fatalf("outcome = %v", res.Outcome)
		}
		if fsys.files["big.txt"] != "tiny\n" {
			t.Errorf("content = %q", fsys.files["big.txt"])
		}
	})

	t.Run("diff-looking body triggers the gate regardless of size", func(t *testing.T) {
		body := big + "@@ -1,3 +1,3 @@\n more\n"
		fsys := newFakeFS(map[string]string{"big.txt": big})
		a := New(fsys, no(), nil)

		res := a.Apply(model.PatchIntent{
			TargetPath: "big.txt",
			Kind:       model.KindFullFile,
			Body:       body,
		})

		if res.Outcome != model.OutcomeSafetyBlocked {
			t.Fatalf("outcome = %v, want safety blocked", res.Outcome)
		}
	})

	t.Run("small files are never gated", func(t *testing.T) {
		fsys := newFakeFS(map[string]string{"small.txt": "short\n"})
		a := New(fsys, no(), nil)

		res := a.Apply(model.PatchIntent{
			TargetPath: "small.txt",
			Kind:       model.KindFullFile,
			Body:       "x\n",
		})

		if res.Outcome != model.OutcomeApplied {
			t.Fatalf("outcome = %v (%s)", res.Outcome, res.Detail)
		}
	})
}

func TestEmptyBodyOnMissingFile(t *testing.T) {
	fsys := newFakeFS(nil)
	a := New(fsys, yes(), nil)

	res := a.Apply(model.PatchIntent{
		TargetPath: "ghost.py",
		Kind:       model.KindFullFile,
		Resolution: model.PathExplicit,
		Body:       "",
	})

	if res.Outcome != model.OutcomeSkippedEmpty {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if _, ok := fsys.files["ghost.py"]; ok {
		t.Error("empty intent created a file")
	}
}

func diffIntent(path string, hunks ...model.Hunk) model.PatchIntent {
	return model.PatchIntent{TargetPath: path, Kind: model.KindUnifiedDiff, Hunks: hunks}
}

func hunk(lines ...model.HunkLine) model.Hunk {
	return model.Hunk{Lines: lines}
}

func ctx(s string) model.HunkLine { return model.HunkLine{Op: model.OpContext, Text: s} }
func add(s string) model.HunkLine { return model.HunkLine{Op: model.OpAdd, Text: s} }
func del(s string) model.HunkLine { return model.HunkLine{Op: model.OpRemove, Text: s} }

func TestUnifiedDiffApply(t *testing.T) {
	t.Run("unique context applies", func(t *testing.T) {
		fsys := newFakeFS(map[string]string{"main.py": "def main():\n    pass\nprint(1)\n"})
		a := New(fsys, nil, nil)

		res := a.Apply(diffIntent("main.py", hunk(ctx("def main():"), del("    pass"), add("    run()"))))

		if res.Outcome != model.OutcomeApplied {
			t.Fatalf("outcome = %v (%s)", res.Outcome, res.Detail)
		}
		want := "def main():\n    run()\nprint(1)\n"
		if fsys.files["main.py"] != want {
			t.Errorf("content = %q, want %q", fsys.files["main.py"], want)
		}
	})

	t.Run("zero matches fails not_found", func(t *testing.T) {
		fsys := newFakeFS(map[string]string{"main.py": "something else\n"})
		a := New(fsys, nil, nil)

		res := a.Apply(diffIntent("main.py", hunk(ctx("never present"), add("x"))))

		if res.Outcome != model.OutcomeFailedNotFound {
			t.Fatalf("outcome = %v", res.Outcome)
		}
		if fsys.files["main.py"] != "something else\n" {
			t.Error("file changed on failed apply")
		}
	})

	t.Run("duplicate context fails ambiguous", func(t *testing.T) {
		content := "x = 1\nreturn x\nx = 1\nreturn x\n"
		fsys := newFakeFS(map[string]string{"dup.py": content})
		a := New(fsys, nil, nil)

		res := a.Apply(diffIntent("dup.py", hunk(ctx("x = 1"), del("return x"), add("return x + 1"))))

		if res.Outcome != model.OutcomeFailedAmbiguous {
			t.Fatalf("outcome = %v (%s)", res.Outcome, res.Detail)
		}
		if fsys.files["dup.py"] != content {
			t.Error("file changed on ambiguous apply")
		}
	})

	t.Run("any failing hunk rolls back the whole intent", func(t *testing.T) {
		content := "alpha\nbeta\ngamma\n"
		fsys := newFakeFS(map[string]string{"roll.txt": content})
		a := New(fsys, nil, nil)

		res := a.Apply(diffIntent("roll.txt",
			hunk(ctx("alpha"), add("inserted")),
			hunk(ctx("not in the file"), add("x")),
		))

		if res.Outcome != model.OutcomeFailedNotFound {
			t.Fatalf("outcome = %v", res.Outcome)
		}
		if fsys.files["roll.txt"] != content {
			t.Errorf("partial application: %q", fsys.files["roll.txt"])
		}
	})

	t.Run("whitespace fallback still requires uniqueness", func(t *testing.T) {
		fsys := newFakeFS(map[string]string{"ws.py": "def f():\n\treturn  1\n"})
		a := New(fsys, nil, nil)

		// Context retyped with different indentation.
		res := a.Apply(diffIntent("ws.py", hunk(ctx("def f():"), del("    return 1"), add("    return 2"))))

		if res.Outcome != model.OutcomeApplied {
			t.Fatalf("outcome = %v (%s)", res.Outcome, res.Detail)
		}
		if !strings.Contains(fsys.files["ws.py"], "return 2") {
			t.Errorf("content = %q", fsys.files["ws.py"])
		}
	})

	t.Run("diff against missing file fails", func(t *testing.T) {
		fsys := newFakeFS(nil)
		a := New(fsys, nil, nil)

		res := a.Apply(diffIntent("nope.py", hunk(ctx("x"), add("y"))))

		if res.Outcome != model.OutcomeFailedNotFound {
			t.Fatalf("outcome = %v", res.Outcome)
		}
	})
}

func TestSearchReplaceApply(t *testing.T) {
	fsys := newFakeFS(map[string]string{"app.py": "import os\n\ndef main():\n    print('hello')\n    return 0\n"})
	a := New(fsys, nil, nil)

	res := a.Apply(model.PatchIntent{
		TargetPath: "app.py",
		Kind:       model.KindSearchReplace,
		Replaces: []model.Replace{{
			Old: []string{"def main():", "    print('hello')"},
			New: []string{"def main():", "    print('patched')"},
		}},
	})

	if res.Outcome != model.OutcomeApplied {
		t.Fatalf("outcome = %v (%s)", res.Outcome, res.Detail)
	}
	if !strings.Contains(fsys.files["app.py"], "print('patched')") {
		t.Errorf("content = %q", fsys.files["app.py"])
	}
	if strings.Contains(fsys.files["app.py"], "print('hello')") {
		t.Error("old content still present")
	}
}

func TestDelete(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		fsys := newFakeFS(map[string]string{"gone.py": "x\n"})
		a := New(fsys, yes(), nil)

		res := a.Apply(model.PatchIntent{TargetPath: "gone.py", Kind: model.KindDelete})

		if res.Outcome != model.OutcomeDeleted {
			t.Fatalf("outcome = %v", res.Outcome)
		}
		if _, ok := fsys.files["gone.py"]; ok {
			t.Error("file still present")
		}
	})

	t.Run("declined", func(t *testing.T) {
		fsys := newFakeFS(map[string]string{"keep.py": "x\n"})
		a := New(fsys, no(), nil)

		res := a.Apply(model.PatchIntent{TargetPath: "keep.py", Kind: model.KindDelete})

		if res.Outcome != model.OutcomeSafetyBlocked {
			t.Fatalf("outcome = %v", res.Outcome)
		}
		if _, ok := fsys.files["keep.py"]; !ok {
			t.Error("file deleted despite decline")
		}
	})

	t.Run("missing target", func(t *testing.T) {
		fsys := newFakeFS(nil)
		a := New(fsys, yes(), nil)

		res := a.Apply(model.PatchIntent{TargetPath: "nope.py", Kind: model.KindDelete})

		if res.Outcome != model.OutcomeFailedNotFound {
			t.Fatalf("outcome = %v", res.Outcome)
		}
	})
}

func TestResultKeepsDiagnosticContext(t *testing.T) {
	fsys := newFakeFS(map[string]string{"a.txt": "old content\n"})
	a := New(fsys, nil, nil)

	res := a.Apply(model.PatchIntent{
		TargetPath: "a.txt",
		Kind:       model.KindFullFile,
		Body:       "new content\n",
	})

	if res.PreContent != "old content\n" {
		t.Errorf("PreContent = %q", res.PreContent)
	}
	if res.RawBody != "new content\n" {
		t.Errorf("RawBody = %q", res.RawBody)
	}
}

func TestLocate(t *testing.T) {
	lines := []string{"a", "b", "c", "a", "b"}

	if m := locate(lines, []string{"b", "c"}); m.count != 1 || m.index != 1 {
		t.Errorf("unique match: %+v", m)
	}
	if m := locate(lines, []string{"a", "b"}); m.count != 2 {
		t.Errorf("duplicate match: %+v", m)
	}
	if m := locate(lines, []string{"z"}); m.count != 0 {
		t.Errorf("no match: %+v", m)
	}
}

func TestReadErrorIsNotTreatedAsMissing(t *testing.T) {
	fsys := &errFS{}
	a := New(fsys, nil, nil)

	res := a.Apply(model.PatchIntent{TargetPath: "x.txt", Kind: model.KindFullFile, Body: "y\n"})

	if res.Outcome != model.OutcomeFailedNotFound {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	if !strings.Contains(res.Detail, "read failed") {
		t.Errorf("detail = %q", res.Detail)
	}
}

type errFS struct{}

var errBoom = errors.New("disk on fire")

func (e *errFS) Read(string) ([]byte, error)      { return nil, errBoom }
func (e *errFS) Write(string, []byte) error       { return errBoom }
func (e *errFS) Delete(string) error              { return errBoom }
func (e *errFS) Stat(string) (os.FileInfo, error) { return nil, errBoom }
