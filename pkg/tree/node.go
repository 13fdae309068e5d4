// Package tree turns a flat, parent-referenced record set into a collapsible
// tree and flattens it into depth-annotated display rows.
package tree

import (
	"github.com/vanderheijden86/canopy/pkg/model"
)

// MaxIndent is the deepest indentation level a row reports. Nodes nested
// deeper than this share the same indentation.
const MaxIndent = 10

// Expand/collapse glyphs for nodes with children.
const (
	GlyphCollapsed = "▸" // U+25B8
	GlyphExpanded  = "▾" // U+25BE
)

// Node is a record placed in the tree.
type Node struct {
	ID       model.ID
	Record   model.Record
	Children []*Node // Input order among siblings
	Parent   *Node   // nil for roots
	Depth    int     // 0 = root

	// Expanded selects the glyph and gates whether children are shown.
	Expanded bool
	// Visible is the node's own visibility flag. Toggle sets it on every
	// descendant of the toggled node; roots are always visible.
	Visible bool
}

// HasChildren reports whether the node can be expanded or collapsed.
func (n *Node) HasChildren() bool {
	return n != nil && len(n.Children) > 0
}

// Glyph returns the expand indicator, or "" for leaves.
func (n *Node) Glyph() string {
	return glyphFor(n.HasChildren(), n.Expanded)
}

func glyphFor(hasChildren, expanded bool) string {
	if !hasChildren {
		return ""
	}
	if expanded {
		return GlyphExpanded
	}
	return GlyphCollapsed
}

// Shown reports whether the node is currently rendered: its own flag is set
// and every ancestor is expanded.
func Shown(n *Node) bool {
	if n == nil || !n.Visible {
		return false
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if !p.Expanded {
			return false
		}
	}
	return true
}

// ShownFromExpansion recomputes visibility from the ancestors' Expanded
// flags alone. A root is shown only if its own flag is set; no operation
// clears it, so for trees built by Build this agrees with Shown.
func ShownFromExpansion(n *Node) bool {
	if n == nil {
		return false
	}
	if n.Parent == nil {
		return n.Visible
	}
	for p := n.Parent; p != nil; p = p.Parent {
		if !p.Expanded {
			return false
		}
	}
	return true
}

// Walk visits every node in pre-order. Returning false from fn stops the walk.
func Walk(roots []*Node, fn func(*Node) bool) {
	var walk func(nodes []*Node) bool
	walk = func(nodes []*Node) bool {
		for _, n := range nodes {
			if n == nil {
				continue
			}
			if !fn(n) {
				return false
			}
			if !walk(n.Children) {
				return false
			}
		}
		return true
	}
	walk(roots)
}

// Count returns the number of nodes in the tree.
func Count(roots []*Node) int {
	total := 0
	Walk(roots, func(*Node) bool {
		total++
		return true
	})
	return total
}
