package grid

import (
	"errors"
	"fmt"
)

// ErrOccupied is returned when a cell is claimed by two different slabs.
var ErrOccupied = errors.New("cell already occupied")

// Label identifies a slab for the lifetime of a run.
type Label int

func (l Label) String() string { return fmt.Sprintf("S%d", int(l)) }

// Cell is a unit voxel. Z is the height, 1 is resting on the ground.
type Cell struct {
	X, Y, Z int
}

func (c Cell) String() string { return fmt.Sprintf("%d,%d,%d", c.X, c.Y, c.Z) }

type column struct {
	X, Y int
}

// Occupancy maps every occupied cell to its slab, bucketed by height so a
// "what is directly below" probe is a single layer lookup.
type Occupancy struct {
	layers map[int]map[column]Label
	n      int
}

func NewOccupancy() *Occupancy {
	return &Occupancy{layers: map[int]map[column]Label{}}
}

func (o *Occupancy) Register(c Cell, id Label) error {
	layer := o.layers[c.Z]
	if layer == nil {
		layer = map[column]Label{}
		o.layers[c.Z] = layer
	}
	k := column{X: c.X, Y: c.Y}
	if cur, ok := layer[k]; ok {
		if cur == id {
			return nil
		}
		return fmt.Errorf("%w: %s held by %s, claimed by %s", ErrOccupied, c, cur, id)
	}
	layer[k] = id
	o.n++
	return nil
}

func (o *Occupancy) Lookup(x, y, z int) (Label, bool) {
	layer := o.layers[z]
	if layer == nil {
		return 0, false
	}
	id, ok := layer[column{X: x, Y: y}]
	return id, ok
}

func (o *Occupancy) Vacate(c Cell) {
	layer := o.layers[c.Z]
	if layer == nil {
		return
	}
	k := column{X: c.X, Y: c.Y}
	if _, ok := layer[k]; !ok {
		return
	}
	delete(layer, k)
	o.n--
	if len(layer) == 0 {
		delete(o.layers, c.Z)
	}
}

// Len reports the number of occupied cells.
func (o *Occupancy) Len() int { return o.n }
