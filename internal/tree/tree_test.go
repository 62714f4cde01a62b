package tree

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ctxpatch/internal/fs"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func scanFixture(t *testing.T) (*Tree, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "README.md", "readme\n")
	writeFile(t, root, "src/main.go", "package main\n")
	writeFile(t, root, "src/util/helper.go", "package util\n")
	writeFile(t, root, "docs/api.md", "api\n")

	tr, err := Scan(root, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	return tr, root
}

func TestScanOrdering(t *testing.T) {
	tr, _ := scanFixture(t)

	// Directories first, then files, both sorted.
	var names []string
	for _, c := range tr.Root.Children {
		names = append(names, c.Rel)
	}
	want := []string{"docs", "src", "README.md"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("root children = %v, want %v", names, want)
	}
}

func TestScanIgnores(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "visible.py", "content\n")
	writeFile(t, root, ".git/hidden.py", "content\n")
	writeFile(t, root, "node_modules/pkg/index.js", "content\n")
	if err := os.WriteFile(filepath.Join(root, "binary.exe"), []byte{0x00, 0x01, 0x02}, 0o644); err != nil {
		t.Fatal(err)
	}

	tr, err := Scan(root, fs.NewIgnorer(root, nil))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	files := tr.Files()
	if !reflect.DeepEqual(files, []string{"visible.py"}) {
		t.Errorf("files = %v, want [visible.py]", files)
	}
}

func TestScanMissingRootIsFatal(t *testing.T) {
	if _, err := Scan(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Fatal("expected error for unreadable root")
	}
}

func TestFindNormalizesSeparators(t *testing.T) {
	tr, _ := scanFixture(t)

	n := tr.Find(`src\util\helper.go`)
	if n == nil || n.Rel != "src/util/helper.go" {
		t.Fatalf("Find with backslashes = %v", n)
	}
	if !tr.Contains("src/main.go") {
		t.Error("Contains failed for existing file")
	}
	if tr.Contains("src") {
		t.Error("Contains true for a directory")
	}
}

func TestFilesUnder(t *testing.T) {
	tr, _ := scanFixture(t)

	got := tr.FilesUnder("src")
	want := []string{"src/util/helper.go", "src/main.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FilesUnder(src) = %v, want %v", got, want)
	}

	if got := tr.FilesUnder("README.md"); !reflect.DeepEqual(got, []string{"README.md"}) {
		t.Errorf("FilesUnder(file) = %v", got)
	}
}

func TestNavigatorVisibility(t *testing.T) {
	tr, _ := scanFixture(t)
	nav := NewNavigator(tr)

	// Collapsed directories hide their children.
	var rels []string
	for _, n := range nav.Visible() {
		rels = append(rels, n.Rel)
	}
	want := []string{"docs", "src", "README.md"}
	if !reflect.DeepEqual(rels, want) {
		t.Fatalf("visible = %v, want %v", rels, want)
	}

	nav.MoveTo("src")
	nav.Expand()
	rels = rels[:0]
	for _, n := range nav.Visible() {
		rels = append(rels, n.Rel)
	}
	want = []string{"docs", "src", "src/util", "src/main.go", "README.md"}
	if !reflect.DeepEqual(rels, want) {
		t.Fatalf("after expand = %v, want %v", rels, want)
	}

	nav.Collapse()
	if len(nav.Visible()) != 3 {
		t.Errorf("after collapse: %d visible", len(nav.Visible()))
	}
}

func TestNavigatorCollapseOnFileJumpsToParent(t *testing.T) {
	tr, _ := scanFixture(t)
	nav := NewNavigator(tr)

	nav.MoveTo("src")
	nav.Expand()
	if !nav.MoveTo("src/main.go") {
		t.Fatal("src/main.go not visible after expand")
	}
	nav.Collapse()
	if cur := nav.Current(); cur == nil || cur.Rel != "src" {
		t.Errorf("cursor = %v, want src", cur)
	}
}

func TestEnsureVisible(t *testing.T) {
	tr, _ := scanFixture(t)
	nav := NewNavigator(tr)

	if !nav.EnsureVisible("src/util/helper.go") {
		t.Fatal("EnsureVisible failed for existing path")
	}
	if !nav.MoveTo("src/util/helper.go") {
		t.Error("path still not visible")
	}
	if nav.EnsureVisible("no/such/file.go") {
		t.Error("EnsureVisible succeeded for missing path")
	}
}

func TestRebindKeepsCursor(t *testing.T) {
	tr, root := scanFixture(t)
	nav := NewNavigator(tr)
	nav.EnsureVisible("src/main.go")
	nav.MoveTo("src/main.go")

	writeFile(t, root, "src/extra.go", "package main\n")
	fresh, err := Scan(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	nav.Rebind(fresh)

	// Rebind resets expansion state, but the cursor path survives when
	// still reachable.
	if cur := nav.Current(); cur == nil {
		t.Fatal("no current node after rebind")
	}
	if nav.Tree() != fresh {
		t.Error("navigator still bound to the old tree")
	}
}
