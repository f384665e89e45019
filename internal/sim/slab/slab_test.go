package slab

import (
	"testing"

	"slabfall.ai/internal/sim/grid"
)

type dirMap map[grid.Label]*Slab

func (d dirMap) Slab(id grid.Label) *Slab { return d[id] }

func place(t *testing.T, occ *grid.Occupancy, d dirMap, line string, id grid.Label) *Slab {
	t.Helper()
	s, err := Parse(line, id)
	if err != nil {
		t.Fatalf("parse %q: %v", line, err)
	}
	for _, c := range s.Cells {
		if err := occ.Register(c, id); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	d[id] = s
	return s
}

func TestBlockingBelowIsPure(t *testing.T) {
	occ := grid.NewOccupancy()
	d := dirMap{}
	a := place(t, occ, d, "0,0,1~2,0,1", 0)
	b := place(t, occ, d, "0,0,2~0,0,2", 1)
	c := place(t, occ, d, "2,0,2~2,0,2", 2)

	blockers, grounded := b.BlockingBelow(occ)
	if grounded || len(blockers) != 1 || blockers[0] != a.Label {
		t.Fatalf("blockers=%v grounded=%v", blockers, grounded)
	}
	if _, grounded := a.BlockingBelow(occ); !grounded {
		t.Fatalf("expected slab at z=1 to be grounded")
	}
	if len(a.Supports) != 0 || len(b.SupportedBy) != 0 || len(c.SupportedBy) != 0 {
		t.Fatalf("BlockingBelow must not record edges")
	}
}

func TestFallRecordsEdgesWhenBlocked(t *testing.T) {
	occ := grid.NewOccupancy()
	d := dirMap{}
	a := place(t, occ, d, "0,0,1~2,0,1", 0)
	b := place(t, occ, d, "1,0,2~1,0,4", 1)

	moved, err := b.Fall(occ, d)
	if err != nil {
		t.Fatalf("fall: %v", err)
	}
	if moved {
		t.Fatalf("expected blocked slab to stay")
	}
	if _, ok := a.Supports[b.Label]; !ok {
		t.Fatalf("expected %v to support %v", a.Label, b.Label)
	}
	if _, ok := b.SupportedBy[a.Label]; !ok {
		t.Fatalf("expected %v supported by %v", b.Label, a.Label)
	}
}

func TestFallMovesVerticalSlabAsUnit(t *testing.T) {
	occ := grid.NewOccupancy()
	d := dirMap{}
	s := place(t, occ, d, "3,3,7~3,3,5", 0)

	moved, err := s.Fall(occ, d)
	if err != nil {
		t.Fatalf("fall: %v", err)
	}
	if !moved {
		t.Fatalf("expected free slab to move")
	}
	if s.LowestZ() != 4 {
		t.Fatalf("lowest=%d want 4", s.LowestZ())
	}
	for _, z := range []int{4, 5, 6} {
		if id, ok := occ.Lookup(3, 3, z); !ok || id != s.Label {
			t.Fatalf("z=%d not owned by slab after fall", z)
		}
	}
	if _, ok := occ.Lookup(3, 3, 7); ok {
		t.Fatalf("old top cell still occupied")
	}
	if occ.Len() != 3 {
		t.Fatalf("occupancy len=%d want 3", occ.Len())
	}
}

func TestFallDetachesFromSlabsAbove(t *testing.T) {
	occ := grid.NewOccupancy()
	d := dirMap{}
	low := place(t, occ, d, "0,0,3~0,0,3", 0)
	high := place(t, occ, d, "0,0,4~0,0,4", 1)
	if _, err := high.Fall(occ, d); err != nil {
		t.Fatalf("fall: %v", err)
	}
	if len(low.Supports) != 1 {
		t.Fatalf("expected edge low->high before low falls")
	}

	moved, err := low.Fall(occ, d)
	if err != nil || !moved {
		t.Fatalf("expected low to fall, moved=%v err=%v", moved, err)
	}
	if len(low.Supports) != 0 || len(high.SupportedBy) != 0 {
		t.Fatalf("stale edge kept after supporter fell: supports=%v supportedBy=%v", low.Supports, high.SupportedBy)
	}
}
