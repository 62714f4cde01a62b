package tree

// Navigator is a cursor over the currently visible flattening of a tree:
// the root's children plus the children of every expanded directory, in
// depth-first order. It knows nothing about selection.
type Navigator struct {
	tree    *Tree
	cursor  int
	visible []*Node
}

func NewNavigator(t *Tree) *Navigator {
	n := &Navigator{tree: t}
	n.reflatten()
	return n
}

// Rebind swaps in a freshly scanned tree, keeping the cursor on the same
// relative path when it still exists.
func (nav *Navigator) Rebind(t *Tree) {
	var keep string
	if cur := nav.Current(); cur != nil {
		keep = cur.Rel
	}
	nav.tree = t
	nav.reflatten()
	if keep != "" {
		nav.MoveTo(keep)
	}
}

func (nav *Navigator) reflatten() {
	nav.visible = nav.visible[:0]
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			nav.visible = append(nav.visible, c)
			if c.IsDir && c.Expanded {
				walk(c)
			}
		}
	}
	walk(nav.tree.Root)
	if nav.cursor >= len(nav.visible) {
		nav.cursor = len(nav.visible) - 1
	}
	if nav.cursor < 0 {
		nav.cursor = 0
	}
}

// Tree returns the currently bound tree.
func (nav *Navigator) Tree() *Tree {
	return nav.tree
}

// Visible returns the current flattening, top to bottom.
func (nav *Navigator) Visible() []*Node {
	return nav.visible
}

// Current returns the node under the cursor, or nil when the tree is empty.
func (nav *Navigator) Current() *Node {
	if len(nav.visible) == 0 {
		return nil
	}
	return nav.visible[nav.cursor]
}

// Cursor returns the cursor's index into Visible.
func (nav *Navigator) Cursor() int {
	return nav.cursor
}

func (nav *Navigator) Up() {
	if nav.cursor > 0 {
		nav.cursor--
	}
}

func (nav *Navigator) Down() {
	if nav.cursor < len(nav.visible)-1 {
		nav.cursor++
	}
}

// Expand opens the directory under the cursor.
func (nav *Navigator) Expand() {
	if cur := nav.Current(); cur != nil && cur.IsDir && !cur.Expanded {
		cur.Expanded = true
		nav.reflatten()
	}
}

// Collapse closes the directory under the cursor; on a file or an already
// collapsed directory it jumps to the parent instead.
func (nav *Navigator) Collapse() {
	cur := nav.Current()
	if cur == nil {
		return
	}
	if cur.IsDir && cur.Expanded {
		cur.Expanded = false
		nav.reflatten()
		return
	}
	if cur.Parent != nil && cur.Parent.Rel != "" {
		nav.MoveTo(cur.Parent.Rel)
	}
}

// MoveTo places the cursor on rel if it is visible. Returns false when the
// path is absent from the current flattening.
func (nav *Navigator) MoveTo(rel string) bool {
	for i, n := range nav.visible {
		if n.Rel == rel {
			nav.cursor = i
			return true
		}
	}
	return false
}

// EnsureVisible expands every ancestor of rel so it appears in the
// flattening. Used after patch- or import-driven selection changes.
func (nav *Navigator) EnsureVisible(rel string) bool {
	n := nav.tree.Find(rel)
	if n == nil {
		return false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		p.Expanded = true
	}
	nav.reflatten()
	return true
}
