package slab

import (
	"sort"

	"slabfall.ai/internal/sim/grid"
)

// Ground is the lowest height a cell may occupy.
const Ground = 1

// Occupancy is the part of grid.Occupancy a slab needs to move itself.
type Occupancy interface {
	Lookup(x, y, z int) (grid.Label, bool)
	Register(c grid.Cell, id grid.Label) error
	Vacate(c grid.Cell)
}

// Directory resolves labels to slabs so edges can be recorded on both ends.
type Directory interface {
	Slab(id grid.Label) *Slab
}

type Slab struct {
	Label grid.Label
	Cells []grid.Cell

	// Only complete once settling has reached a fixpoint.
	Supports    map[grid.Label]struct{}
	SupportedBy map[grid.Label]struct{}
}

func New(id grid.Label, cells []grid.Cell) *Slab {
	return &Slab{
		Label:       id,
		Cells:       cells,
		Supports:    map[grid.Label]struct{}{},
		SupportedBy: map[grid.Label]struct{}{},
	}
}

func (s *Slab) LowestZ() int {
	low := 0
	for i, c := range s.Cells {
		if i == 0 || c.Z < low {
			low = c.Z
		}
	}
	return low
}

// Corners returns the inclusive bounding corners of the slab's current cells.
func (s *Slab) Corners() (lo, hi grid.Cell) {
	for i, c := range s.Cells {
		if i == 0 {
			lo, hi = c, c
			continue
		}
		lo.X, hi.X = min(lo.X, c.X), max(hi.X, c.X)
		lo.Y, hi.Y = min(lo.Y, c.Y), max(hi.Y, c.Y)
		lo.Z, hi.Z = min(lo.Z, c.Z), max(hi.Z, c.Z)
	}
	return lo, hi
}

// BlockingBelow reports the other slabs directly underneath any cell, and
// whether any cell rests on the ground. It does not mutate anything.
func (s *Slab) BlockingBelow(occ Occupancy) (blockers []grid.Label, grounded bool) {
	seen := map[grid.Label]struct{}{}
	for _, c := range s.Cells {
		if c.Z <= Ground {
			grounded = true
			continue
		}
		id, ok := occ.Lookup(c.X, c.Y, c.Z-1)
		if !ok || id == s.Label {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		blockers = append(blockers, id)
	}
	sort.Slice(blockers, func(i, j int) bool { return blockers[i] < blockers[j] })
	return blockers, grounded
}

// Fall tries to move the slab one unit down. Support edges toward whatever
// blocks it are recorded whether or not it moves.
func (s *Slab) Fall(occ Occupancy, dir Directory) (bool, error) {
	for id := range s.SupportedBy {
		if below := dir.Slab(id); below != nil {
			delete(below.Supports, s.Label)
		}
	}
	s.SupportedBy = map[grid.Label]struct{}{}

	blockers, grounded := s.BlockingBelow(occ)
	for _, id := range blockers {
		below := dir.Slab(id)
		if below == nil {
			continue
		}
		below.Supports[s.Label] = struct{}{}
		s.SupportedBy[id] = struct{}{}
	}
	if grounded || len(blockers) > 0 {
		return false, nil
	}

	// Leaving contact with everything resting on top.
	for id := range s.Supports {
		if above := dir.Slab(id); above != nil {
			delete(above.SupportedBy, s.Label)
		}
	}
	s.Supports = map[grid.Label]struct{}{}

	order := make([]int, len(s.Cells))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return s.Cells[order[a]].Z < s.Cells[order[b]].Z })
	for _, i := range order {
		c := s.Cells[i]
		occ.Vacate(c)
		c.Z--
		if err := occ.Register(c, s.Label); err != nil {
			return false, err
		}
		s.Cells[i] = c
	}
	return true, nil
}

// SortedLabels returns the members of a label set in ascending order.
func SortedLabels(set map[grid.Label]struct{}) []grid.Label {
	out := make([]grid.Label, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
