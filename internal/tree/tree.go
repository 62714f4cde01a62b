// Package tree holds the read model of the project filesystem and the
// cursor that navigates it. The tree is disposable: every rescan builds a
// fresh one, and all durable state is keyed by relative path elsewhere.
package tree

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ctxpatch/internal/fs"
)

// Node is a file or directory in the scanned project tree. A directory
// exclusively owns its children; no node appears under two parents.
type Node struct {
	Path     string // absolute path on disk
	Rel      string // forward-slash path relative to the project root ("" for root)
	IsDir    bool
	Size     int64
	Children []*Node
	Parent   *Node

	// Expanded controls whether children participate in the visible
	// flattening. Display state only, rebuilt per scan.
	Expanded bool
}

// Name returns the display name of the node.
func (n *Node) Name() string {
	if n.Rel == "" {
		return "."
	}
	return filepath.Base(n.Rel)
}

// Tree is the scanned project hierarchy.
type Tree struct {
	Root    *Node
	byRel   map[string]*Node
	rootDir string
}

// Ignorer is the externally owned exclusion predicate applied while
// scanning.
type Ignorer interface {
	Match(rel string) bool
}

// Scan builds a tree from disk. Directories come before files at each
// level, both sorted by name. A permission failure on the project root
// itself is fatal; unreadable subdirectories are skipped.
func Scan(root string, ig Ignorer) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.ReadDir(abs); err != nil {
		return nil, err
	}

	t := &Tree{
		Root:    &Node{Path: abs, Rel: "", IsDir: true, Expanded: true},
		byRel:   make(map[string]*Node),
		rootDir: abs,
	}
	t.scanDir(t.Root, ig)
	return t, nil
}

func (t *Tree) scanDir(dir *Node, ig Ignorer) {
	entries, err := os.ReadDir(dir.Path)
	if err != nil {
		return
	}

	var dirs, files []os.DirEntry
	for _, e := range entries {
		rel := childRel(dir.Rel, e.Name())
		if ig != nil && ig.Match(rel) {
			continue
		}
		if e.IsDir() {
			dirs = append(dirs, e)
		} else if e.Type().IsRegular() {
			if fs.IsBinary(filepath.Join(dir.Path, e.Name())) {
				continue
			}
			files = append(files, e)
		}
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name() < dirs[j].Name() })
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	for _, e := range dirs {
		child := &Node{
			Path:   filepath.Join(dir.Path, e.Name()),
			Rel:    childRel(dir.Rel, e.Name()),
			IsDir:  true,
			Parent: dir,
		}
		dir.Children = append(dir.Children, child)
		t.byRel[child.Rel] = child
		t.scanDir(child, ig)
	}
	for _, e := range files {
		info, err := e.Info()
		if err != nil {
			continue
		}
		child := &Node{
			Path:   filepath.Join(dir.Path, e.Name()),
			Rel:    childRel(dir.Rel, e.Name()),
			Size:   info.Size(),
			Parent: dir,
		}
		dir.Children = append(dir.Children, child)
		t.byRel[child.Rel] = child
	}
}

func childRel(parentRel, name string) string {
	if parentRel == "" {
		return name
	}
	return parentRel + "/" + name
}

// Find looks a node up by canonical relative path. Windows-style
// separators are normalized before lookup.
func (t *Tree) Find(rel string) *Node {
	rel = fs.Canonical(rel)
	if rel == "" || rel == "." {
		return t.Root
	}
	return t.byRel[rel]
}

// Contains reports whether rel names a file in the tree.
func (t *Tree) Contains(rel string) bool {
	n := t.Find(rel)
	return n != nil && !n.IsDir
}

// Files returns the relative paths of all files, in tree order.
func (t *Tree) Files() []string {
	var out []string
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			if c.IsDir {
				walk(c)
			} else {
				out = append(out, c.Rel)
			}
		}
	}
	walk(t.Root)
	return out
}

// FilesUnder returns the relative paths of all files in the subtree rooted
// at dir (dir itself if it is a file).
func (t *Tree) FilesUnder(dir string) []string {
	n := t.Find(dir)
	if n == nil {
		return nil
	}
	if !n.IsDir {
		return []string{n.Rel}
	}
	var out []string
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			if c.IsDir {
				walk(c)
			} else {
				out = append(out, c.Rel)
			}
		}
	}
	walk(n)
	return out
}

// RootDir returns the absolute path the tree was scanned from.
func (t *Tree) RootDir() string {
	return t.rootDir
}

// RelFromAbs converts an absolute path under the root into a canonical
// relative path, or "" if it lies outside the root.
func (t *Tree) RelFromAbs(abs string) string {
	rel, err := filepath.Rel(t.rootDir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return fs.Canonical(filepath.ToSlash(rel))
}
