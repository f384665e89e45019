package slab

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"slabfall.ai/internal/sim/grid"
)

var ErrMalformed = errors.New("malformed slab")

// ParseCorners reads "x1,y1,z1~x2,y2,z2".
func ParseCorners(line string) (a, b grid.Cell, err error) {
	parts := strings.Split(strings.TrimSpace(line), "~")
	if len(parts) != 2 {
		return a, b, fmt.Errorf("%w: want 2 corners, got %d", ErrMalformed, len(parts))
	}
	if a, err = parseCell(parts[0]); err != nil {
		return a, b, err
	}
	if b, err = parseCell(parts[1]); err != nil {
		return a, b, err
	}
	if a.Z < Ground || b.Z < Ground {
		return a, b, fmt.Errorf("%w: height below ground", ErrMalformed)
	}
	return a, b, nil
}

func parseCell(s string) (grid.Cell, error) {
	coord := strings.Split(s, ",")
	if len(coord) != 3 {
		return grid.Cell{}, fmt.Errorf("%w: want 3 coordinates in %q", ErrMalformed, s)
	}
	var v [3]int
	for i, raw := range coord {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return grid.Cell{}, fmt.Errorf("%w: coordinate %q", ErrMalformed, raw)
		}
		v[i] = n
	}
	return grid.Cell{X: v[0], Y: v[1], Z: v[2]}, nil
}

// CellsBetween walks from a to b inclusive on each axis, stepping toward b.
func CellsBetween(a, b grid.Cell) []grid.Cell {
	dx, dy, dz := step(a.X, b.X), step(a.Y, b.Y), step(a.Z, b.Z)
	var cells []grid.Cell
	for x := a.X; ; x += dx {
		for y := a.Y; ; y += dy {
			for z := a.Z; ; z += dz {
				cells = append(cells, grid.Cell{X: x, Y: y, Z: z})
				if z == b.Z {
					break
				}
			}
			if y == b.Y {
				break
			}
		}
		if x == b.X {
			break
		}
	}
	return cells
}

func step(from, to int) int {
	if to < from {
		return -1
	}
	return 1
}

func Parse(line string, id grid.Label) (*Slab, error) {
	a, b, err := ParseCorners(line)
	if err != nil {
		return nil, err
	}
	return New(id, CellsBetween(a, b)), nil
}

// ParseAll reads one slab per line, labelling them in order of appearance.
// Blank lines are skipped unless strict is set.
func ParseAll(r io.Reader, strict bool) ([]*Slab, error) {
	var out []*Slab
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			if strict {
				return nil, fmt.Errorf("line %d: %w: empty line", lineNo, ErrMalformed)
			}
			continue
		}
		s, err := Parse(line, grid.Label(len(out)))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
