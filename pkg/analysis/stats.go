// Package analysis computes structural statistics for a flat record set:
// how many records reach the root, how deep the forest goes, and which
// records sit in parent cycles.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/vanderheijden86/canopy/pkg/model"
)

// DefaultTopSubtrees bounds Stats.LargestRoots.
const DefaultTopSubtrees = 5

// Stats summarizes a record set.
type Stats struct {
	Total        int `json:"total"`
	Unique       int `json:"unique"`
	Duplicates   int `json:"duplicates"`
	Roots        int `json:"roots"`
	Reachable    int `json:"reachable"`
	Unreachable  int `json:"unreachable"`
	Dangling     int `json:"dangling"`
	SelfParents  int `json:"self_parents"`
	Cycles       int `json:"cycles"`
	Leaves       int `json:"leaves"`
	MaxDepth     int `json:"max_depth"`
	MaxFanOut    int `json:"max_fan_out"`

	// DepthHistogram[d] is the number of reachable records at depth d
	DepthHistogram []int `json:"depth_histogram"`

	// CycleMembers lists the IDs of each parent cycle
	CycleMembers [][]model.ID `json:"cycle_members,omitempty"`

	// LargestRoots are the top-level records with the most descendants
	LargestRoots []SubtreeSize `json:"largest_roots,omitempty"`
}

// SubtreeSize counts a record and its reachable descendants.
type SubtreeSize struct {
	ID   model.ID `json:"id"`
	Name string   `json:"name"`
	Size int      `json:"size"`
}

// Analyzer holds the parent graph of a record set. Node 0 is a virtual root
// that every top-level record hangs from.
type Analyzer struct {
	records []model.Record
	g       *simple.DirectedGraph
	nodeOf  map[model.ID]int64
	idOf    map[int64]model.ID
	stats   Stats
}

const virtualRoot int64 = 0

// NewAnalyzer indexes the records and builds the parent graph. Records with
// a repeated ID are counted and otherwise ignored; the first one wins.
func NewAnalyzer(records []model.Record) *Analyzer {
	a := &Analyzer{
		records: records,
		g:       simple.NewDirectedGraph(),
		nodeOf:  make(map[model.ID]int64, len(records)),
		idOf:    make(map[int64]model.ID, len(records)),
	}
	a.stats.Total = len(records)
	a.g.AddNode(simple.Node(virtualRoot))

	var next int64 = 1
	for _, r := range records {
		if r.ID.IsRoot() {
			continue
		}
		if _, dup := a.nodeOf[r.ID]; dup {
			a.stats.Duplicates++
			continue
		}
		a.nodeOf[r.ID] = next
		a.idOf[next] = r.ID
		a.g.AddNode(simple.Node(next))
		next++
	}
	a.stats.Unique = len(a.nodeOf)

	seen := make(map[model.ID]bool, len(a.nodeOf))
	for _, r := range records {
		if r.ID.IsRoot() || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		child := a.nodeOf[r.ID]

		switch {
		case r.Parent.IsRoot():
			a.stats.Roots++
			a.g.SetEdge(a.g.NewEdge(simple.Node(virtualRoot), simple.Node(child)))
		case r.Parent == r.ID:
			// simple graphs reject self edges
			a.stats.SelfParents++
		default:
			parent, ok := a.nodeOf[r.Parent]
			if !ok {
				a.stats.Dangling++
				continue
			}
			a.g.SetEdge(a.g.NewEdge(simple.Node(parent), simple.Node(child)))
		}
	}
	return a
}

// Stats computes the summary. It is cheap to call repeatedly; the result is
// computed once.
func (a *Analyzer) Stats() Stats {
	if a.stats.DepthHistogram != nil {
		return a.stats
	}

	depth := a.walkDepths()
	a.stats.Reachable = len(depth)
	a.stats.Unreachable = a.stats.Unique - a.stats.Reachable
	a.stats.DepthHistogram = make([]int, 0)

	for nid, d := range depth {
		for len(a.stats.DepthHistogram) <= d {
			a.stats.DepthHistogram = append(a.stats.DepthHistogram, 0)
		}
		a.stats.DepthHistogram[d]++
		if d > a.stats.MaxDepth {
			a.stats.MaxDepth = d
		}
		fanOut := a.g.From(nid).Len()
		if fanOut == 0 {
			a.stats.Leaves++
		}
		if fanOut > a.stats.MaxFanOut {
			a.stats.MaxFanOut = fanOut
		}
	}

	a.findCycles()
	a.stats.LargestRoots = a.largestRoots(DefaultTopSubtrees)
	return a.stats
}

// walkDepths runs a breadth-first walk from the virtual root and returns the
// depth of every reachable record (top-level records have depth 0).
func (a *Analyzer) walkDepths() map[int64]int {
	depth := make(map[int64]int, len(a.nodeOf))
	bf := traverse.BreadthFirst{}
	bf.Walk(a.g, simple.Node(virtualRoot), func(n graph.Node, d int) bool {
		if n.ID() != virtualRoot {
			depth[n.ID()] = d - 1
		}
		return false
	})
	return depth
}

func (a *Analyzer) findCycles() {
	var cycles [][]model.ID
	for _, scc := range topo.TarjanSCC(a.g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]model.ID, len(scc))
		for i, n := range scc {
			ids[i] = a.idOf[n.ID()]
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		cycles = append(cycles, ids)
	}
	seen := make(map[model.ID]bool, len(a.records))
	for _, r := range a.records {
		if r.ID.IsRoot() || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		if r.Parent == r.ID {
			cycles = append(cycles, []model.ID{r.ID})
		}
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	a.stats.Cycles = len(cycles)
	a.stats.CycleMembers = cycles
}

// largestRoots returns up to limit top-level records ordered by subtree
// size, then ID.
func (a *Analyzer) largestRoots(limit int) []SubtreeSize {
	names := make(map[model.ID]string, len(a.records))
	for _, r := range a.records {
		if _, ok := names[r.ID]; !ok {
			names[r.ID] = r.DisplayName()
		}
	}

	var sizes []SubtreeSize
	roots := a.g.From(virtualRoot)
	for roots.Next() {
		n := roots.Node()
		size := 0
		bf := traverse.BreadthFirst{}
		bf.Walk(a.g, n, func(graph.Node, int) bool {
			size++
			return false
		})
		id := a.idOf[n.ID()]
		sizes = append(sizes, SubtreeSize{ID: id, Name: names[id], Size: size})
	}

	sort.Slice(sizes, func(i, j int) bool {
		if sizes[i].Size != sizes[j].Size {
			return sizes[i].Size > sizes[j].Size
		}
		return sizes[i].ID < sizes[j].ID
	})
	if len(sizes) > limit {
		sizes = sizes[:limit]
	}
	return sizes
}

// Analyze is a convenience wrapper around NewAnalyzer(records).Stats().
func Analyze(records []model.Record) Stats {
	return NewAnalyzer(records).Stats()
}
