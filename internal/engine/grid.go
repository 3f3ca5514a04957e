package engine

import "math"

// DefaultCellSize is the grid cell side length in Å.  It exceeds the common
// interaction cutoffs so that a typical radius query touches a small
// constant number of cells.
const DefaultCellSize = 5.0

// selfEpsilonSq is the squared lower distance bound of a radius query.  It
// excludes the query atom itself when querying from an atom's own position.
const selfEpsilonSq = 1e-9

// cellKey addresses one cubic cell of the grid.
type cellKey struct {
	x, y, z int
}

// Grid is a uniform spatial hash over atom coordinates.  Space is
// partitioned into cubic cells of side cellSize; each atom is bucketed by
// floor(coord / cellSize) per axis into a sparse map.  Build is a single
// O(N) pass, and a radius query scans only the cells intersecting the
// axis-aligned bounding cube of the query sphere, turning pairwise distance
// search from O(N²) into O(N) amortised for spatially well-distributed
// structures.
//
// A Grid is immutable after construction and safe for concurrent queries.
type Grid struct {
	cellSize float64
	cells    map[cellKey][]*Atom
	size     int
}

// NewGrid builds a grid over atoms with the given cell size.  A
// non-positive cellSize falls back to DefaultCellSize.
func NewGrid(atoms []*Atom, cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	g := &Grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]*Atom),
		size:     len(atoms),
	}
	for _, a := range atoms {
		k := g.keyFor(a.X, a.Y, a.Z)
		g.cells[k] = append(g.cells[k], a)
	}
	return g
}

// Size returns the number of indexed atoms.
func (g *Grid) Size() int { return g.size }

func (g *Grid) keyFor(x, y, z float64) cellKey {
	return cellKey{
		x: int(math.Floor(x / g.cellSize)),
		y: int(math.Floor(y / g.cellSize)),
		z: int(math.Floor(z / g.cellSize)),
	}
}

// NeighborsAt returns the indexed atoms within radius of the point
// (x, y, z), excluding exact self-matches (distance² ≤ ε²) and any atom
// whose serial equals selfSerial.  Self-exclusion is by serial number, not
// object identity, because callers routinely query a grid built from a
// different atom list than the query atom's own.  Pass a negative selfSerial
// for plain point queries.
func (g *Grid) NeighborsAt(x, y, z, radius float64, selfSerial int) []*Atom {
	if radius <= 0 || g.size == 0 {
		return nil
	}
	rSq := radius * radius

	// Enumerate every cell intersecting the bounding cube of the query
	// sphere.  The bounds are derived purely from cell arithmetic, so an
	// oversized radius simply visits more cells.
	lo := g.keyFor(x-radius, y-radius, z-radius)
	hi := g.keyFor(x+radius, y+radius, z+radius)

	var out []*Atom
	for cx := lo.x; cx <= hi.x; cx++ {
		for cy := lo.y; cy <= hi.y; cy++ {
			for cz := lo.z; cz <= hi.z; cz++ {
				for _, a := range g.cells[cellKey{cx, cy, cz}] {
					if a.Serial == selfSerial {
						continue
					}
					dx := a.X - x
					dy := a.Y - y
					dz := a.Z - z
					dSq := dx*dx + dy*dy + dz*dz
					if dSq <= rSq && dSq > selfEpsilonSq {
						out = append(out, a)
					}
				}
			}
		}
	}
	return out
}

// NeighborsOf returns the indexed atoms within radius of atom a, excluding
// a itself.
func (g *Grid) NeighborsOf(a *Atom, radius float64) []*Atom {
	return g.NeighborsAt(a.X, a.Y, a.Z, radius, a.Serial)
}
