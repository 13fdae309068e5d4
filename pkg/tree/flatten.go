package tree

import (
	"github.com/vanderheijden86/canopy/pkg/model"
)

// DisplayRow is a render-ready projection of a shown node. The ID, Record
// and Expanded fields are copied at flatten time, so a row stays consistent
// even if the tree is toggled while it is being drawn.
type DisplayRow struct {
	Node        *Node
	ID          model.ID
	Record      model.Record
	Indent      int // Recursion depth capped at MaxIndent
	HasChildren bool
	Expanded    bool
}

// Glyph returns the expand indicator for the row, or "" for leaves.
func (r DisplayRow) Glyph() string {
	return glyphFor(r.HasChildren, r.Expanded)
}

// Clickable reports whether activating the row should toggle it. Rows without
// children present no affordance.
func (r DisplayRow) Clickable() bool {
	return r.HasChildren
}

// MarginLeft returns the indentation in units of the given size.
func (r DisplayRow) MarginLeft(unit int) int {
	return r.Indent * unit
}

// Flatten walks the tree depth-first in pre-order and returns one row per
// shown node. The subtree of a node that is not shown is left out entirely.
// Flatten never mutates the tree.
func Flatten(roots []*Node) []DisplayRow {
	rows := make([]DisplayRow, 0, len(roots))
	for _, root := range roots {
		rows = appendShown(rows, root, 0)
	}
	return rows
}

// appendShown adds a node and its shown descendants to rows.
func appendShown(rows []DisplayRow, node *Node, depth int) []DisplayRow {
	if node == nil || !node.Visible {
		return rows
	}
	rows = append(rows, DisplayRow{
		Node:        node,
		ID:          node.ID,
		Record:      node.Record,
		Indent:      min(depth, MaxIndent),
		HasChildren: node.HasChildren(),
		Expanded:    node.Expanded,
	})
	if node.Expanded {
		for _, child := range node.Children {
			rows = appendShown(rows, child, depth+1)
		}
	}
	return rows
}
