package engine

import (
	"fmt"

	"slabfall.ai/internal/persistence/snapshot"
	"slabfall.ai/internal/sim/grid"
	"slabfall.ai/internal/sim/slab"
)

func (e *Engine) ExportSnapshot(runID string) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			RunID:   runID,
			Phase:   e.phase.String(),
			Slabs:   len(e.slabs),
		},
		Slabs: make([]snapshot.SlabV1, 0, len(e.slabs)),
	}
	for _, s := range e.slabs {
		cells := make([][3]int, len(s.Cells))
		for i, c := range s.Cells {
			cells[i] = [3]int{c.X, c.Y, c.Z}
		}
		snap.Slabs = append(snap.Slabs, snapshot.SlabV1{Label: int(s.Label), Cells: cells})
	}
	return snap
}

// ImportSnapshot loads slabs from a snapshot into an empty engine. Support
// edges are not stored; the next Settle rediscovers them.
func (e *Engine) ImportSnapshot(snap snapshot.SnapshotV1) error {
	slabs := make([]*slab.Slab, 0, len(snap.Slabs))
	for _, sv := range snap.Slabs {
		if len(sv.Cells) == 0 {
			return fmt.Errorf("snapshot slab %d has no cells", sv.Label)
		}
		cells := make([]grid.Cell, len(sv.Cells))
		for i, c := range sv.Cells {
			if c[2] < slab.Ground {
				return fmt.Errorf("snapshot slab %d below ground at %v", sv.Label, c)
			}
			cells[i] = grid.Cell{X: c[0], Y: c[1], Z: c[2]}
		}
		slabs = append(slabs, slab.New(grid.Label(sv.Label), cells))
	}
	return e.Load(slabs)
}
