package engine

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"slabfall.ai/internal/sim/grid"
	"slabfall.ai/internal/sim/slab"
)

var ErrAsymmetric = errors.New("support edges are not symmetric")

// SupportGraph has an edge supporter -> supported for every resting contact.
type SupportGraph struct {
	g *simple.DirectedGraph
}

func newSupportGraph(slabs []*slab.Slab) (*SupportGraph, error) {
	byLabel := make(map[grid.Label]*slab.Slab, len(slabs))
	g := simple.NewDirectedGraph()
	for _, s := range slabs {
		byLabel[s.Label] = s
		g.AddNode(simple.Node(s.Label))
	}
	for _, s := range slabs {
		for _, up := range slab.SortedLabels(s.Supports) {
			above := byLabel[up]
			if above == nil {
				return nil, fmt.Errorf("%w: %s supports unknown %s", ErrAsymmetric, s.Label, up)
			}
			if _, ok := above.SupportedBy[s.Label]; !ok {
				return nil, fmt.Errorf("%w: %s supports %s but not recorded back", ErrAsymmetric, s.Label, up)
			}
			g.SetEdge(g.NewEdge(simple.Node(s.Label), simple.Node(up)))
		}
		for _, down := range slab.SortedLabels(s.SupportedBy) {
			below := byLabel[down]
			if below == nil {
				return nil, fmt.Errorf("%w: %s rests on unknown %s", ErrAsymmetric, s.Label, down)
			}
			if _, ok := below.Supports[s.Label]; !ok {
				return nil, fmt.Errorf("%w: %s rests on %s but not recorded back", ErrAsymmetric, s.Label, down)
			}
		}
	}
	return &SupportGraph{g: g}, nil
}

func (sg *SupportGraph) SupportedBy(id grid.Label) []grid.Label {
	return labelsOf(sg.g.To(int64(id)))
}

// Candidates are slabs that are the only support of at least one other slab.
func (sg *SupportGraph) Candidates() []grid.Label {
	var out []grid.Label
	nodes := sg.g.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		above := sg.g.From(id)
		for above.Next() {
			if sg.g.To(above.Node().ID()).Len() == 1 {
				out = append(out, grid.Label(id))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Cascade returns how many other slabs fall if root is removed.
func (sg *SupportGraph) Cascade(root grid.Label) int {
	return len(sg.Demolished(root))
}

// Demolished returns the slabs that fall, transitively, once root is gone.
// A slab falls when every one of its supports is root or already fallen, so
// the fallen set is consulted as it grows.
func (sg *SupportGraph) Demolished(root grid.Label) []grid.Label {
	rootID := int64(root)
	if sg.g.Node(rootID) == nil {
		return nil
	}
	fallen := map[int64]struct{}{}
	bf := traverse.BreadthFirst{
		Traverse: func(e graph.Edge) bool {
			return sg.unsupported(e.To().ID(), rootID, fallen)
		},
		Visit: func(n graph.Node) {
			if n.ID() != rootID {
				fallen[n.ID()] = struct{}{}
			}
		},
	}
	bf.Walk(sg.g, sg.g.Node(rootID), nil)

	out := make([]grid.Label, 0, len(fallen))
	for id := range fallen {
		out = append(out, grid.Label(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (sg *SupportGraph) unsupported(id, root int64, fallen map[int64]struct{}) bool {
	below := sg.g.To(id)
	for below.Next() {
		sid := below.Node().ID()
		if sid == root {
			continue
		}
		if _, ok := fallen[sid]; ok {
			continue
		}
		return false
	}
	return true
}

func labelsOf(it graph.Nodes) []grid.Label {
	var out []grid.Label
	for it.Next() {
		out = append(out, grid.Label(it.Node().ID()))
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
