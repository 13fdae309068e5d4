package tree

import (
	"github.com/vanderheijden86/canopy/pkg/model"
)

// Find returns the first node with the given ID in depth-first order, or nil.
// The search stops as soon as a match is found.
func Find(roots []*Node, id model.ID) *Node {
	var found *Node
	Walk(roots, func(n *Node) bool {
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Toggle flips the expanded state of the node with the given ID and sets the
// own visibility flag of every descendant to the new state. Descendants take
// the same value whatever their own expanded state; their glyphs are left
// alone, so a collapsed inner node keeps its children hidden when an
// ancestor is re-expanded.
//
// Toggling a leaf or an unknown ID is a no-op and returns false.
func Toggle(roots []*Node, id model.ID) bool {
	node := Find(roots, id)
	if !node.HasChildren() {
		return false
	}
	node.Expanded = !node.Expanded
	setDescendantsVisible(node, node.Expanded)
	return true
}

// ExpandAll expands every node and shows the whole tree.
func ExpandAll(roots []*Node) {
	setAll(roots, true)
}

// CollapseAll collapses every node so that only roots are shown.
func CollapseAll(roots []*Node) {
	setAll(roots, false)
}

// setDescendantsVisible sets the visibility flag on all descendants of node.
func setDescendantsVisible(node *Node, visible bool) {
	for _, child := range node.Children {
		child.Visible = visible
		setDescendantsVisible(child, visible)
	}
}

// setAll sets the expanded state for every node with children and the
// matching visibility for every non-root.
func setAll(roots []*Node, expanded bool) {
	Walk(roots, func(n *Node) bool {
		if n.HasChildren() {
			n.Expanded = expanded
		}
		if n.Parent != nil {
			n.Visible = expanded
		}
		return true
	})
}
