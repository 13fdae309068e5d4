package tree

import (
	"fmt"

	"github.com/vanderheijden86/canopy/pkg/model"
)

// Forest is the result of a build: the root nodes in input order plus the
// records that could not be placed.
type Forest struct {
	Roots    []*Node
	Warnings []Warning

	index map[model.ID]*Node
}

// Len returns the number of nodes placed in the tree.
func (f *Forest) Len() int {
	if f == nil {
		return 0
	}
	return len(f.index)
}

// Lookup returns the node with the given ID, or nil.
func (f *Forest) Lookup(id model.ID) *Node {
	if f == nil {
		return nil
	}
	return f.index[id]
}

// Build nests a flat record list under the root sentinel.
//
// Records are grouped by parent ID; for each parent key, starting with the
// root, its records are selected in input order and their own children are
// built recursively. Every node starts visible and expanded, so parents show
// the open glyph.
//
// A duplicate or empty ID rejects the whole input. Records whose parent is
// missing, or that cannot be reached from a root, are dropped and reported as
// warnings.
func Build(records []model.Record) (*Forest, error) {
	forest := &Forest{index: make(map[model.ID]*Node, len(records))}
	if len(records) == 0 {
		return forest, nil
	}

	// Step 1: Index records by ID, rejecting empty and duplicate IDs
	position := make(map[model.ID]int, len(records))
	for i := range records {
		rec := &records[i]
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if first, ok := position[rec.ID]; ok {
			return nil, &DuplicateIDError{ID: rec.ID, First: first, Second: i}
		}
		position[rec.ID] = i
	}

	// Step 2: Group child positions by parent key, preserving input order
	childrenOf := make(map[model.ID][]int)
	for i := range records {
		childrenOf[records[i].Parent] = append(childrenOf[records[i].Parent], i)
	}

	// Step 3: Nest recursively from the root sentinel
	for _, i := range childrenOf[model.RootID] {
		forest.Roots = append(forest.Roots, forest.buildNode(records, i, 0, nil, childrenOf))
	}

	// Step 4: Report whatever was not placed
	for i := range records {
		rec := records[i]
		if _, placed := forest.index[rec.ID]; placed {
			continue
		}
		kind := WarnUnreachable
		if _, exists := position[rec.Parent]; !exists {
			kind = WarnDanglingParent
		}
		forest.Warnings = append(forest.Warnings, Warning{Kind: kind, ID: rec.ID, Parent: rec.Parent})
	}

	return forest, nil
}

// buildNode builds the node for records[i] and its subtree. Each record has a
// single parent and IDs are unique, so descending from the root cannot
// revisit a node.
func (f *Forest) buildNode(records []model.Record, i, depth int, parent *Node, childrenOf map[model.ID][]int) *Node {
	rec := records[i]
	node := &Node{
		ID:       rec.ID,
		Record:   rec,
		Parent:   parent,
		Depth:    depth,
		Expanded: true,
		Visible:  true,
	}
	f.index[rec.ID] = node

	for _, c := range childrenOf[rec.ID] {
		node.Children = append(node.Children, f.buildNode(records, c, depth+1, node, childrenOf))
	}
	return node
}
