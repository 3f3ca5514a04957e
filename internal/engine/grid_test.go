package engine

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// randomAtoms scatters n atoms uniformly in a cube of the given side length.
func randomAtoms(rng *rand.Rand, n int, side float64) []*Atom {
	atoms := make([]*Atom, n)
	for i := range atoms {
		atoms[i] = &Atom{
			Serial:  i + 1,
			Name:    "C1",
			ResName: "LIG",
			Chain:   "A",
			ResSeq:  i + 1,
			X:       rng.Float64() * side,
			Y:       rng.Float64() * side,
			Z:       rng.Float64() * side,
			Element: "C",
		}
	}
	return atoms
}

// bruteForceNeighbors is the O(N²) reference implementation the grid must
// agree with.
func bruteForceNeighbors(atoms []*Atom, x, y, z, radius float64, selfSerial int) []*Atom {
	var out []*Atom
	rSq := radius * radius
	for _, a := range atoms {
		if a.Serial == selfSerial {
			continue
		}
		dx, dy, dz := a.X-x, a.Y-y, a.Z-z
		dSq := dx*dx + dy*dy + dz*dz
		if dSq <= rSq && dSq > selfEpsilonSq {
			out = append(out, a)
		}
	}
	return out
}

func serialsOf(atoms []*Atom) []int {
	out := make([]int, len(atoms))
	for i, a := range atoms {
		out[i] = a.Serial
	}
	sort.Ints(out)
	return out
}

func TestGrid_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	atoms := randomAtoms(rng, 400, 30.0)
	grid := NewGrid(atoms, DefaultCellSize)

	for _, radius := range []float64{1.0, 3.5, 5.0, 7.5, 12.0} {
		for trial := 0; trial < 25; trial++ {
			x := rng.Float64() * 30
			y := rng.Float64() * 30
			z := rng.Float64() * 30

			got := grid.NeighborsAt(x, y, z, radius, -1)
			want := bruteForceNeighbors(atoms, x, y, z, radius, -1)

			assert.ElementsMatch(t, serialsOf(want), serialsOf(got),
				"radius %.1f query (%.2f, %.2f, %.2f)", radius, x, y, z)
		}
	}
}

func TestGrid_MatchesBruteForceFromAtomPositions(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	atoms := randomAtoms(rng, 200, 20.0)
	grid := NewGrid(atoms, DefaultCellSize)

	for _, a := range atoms[:40] {
		got := grid.NeighborsOf(a, 4.0)
		want := bruteForceNeighbors(atoms, a.X, a.Y, a.Z, 4.0, a.Serial)
		assert.ElementsMatch(t, serialsOf(want), serialsOf(got), "atom %d", a.Serial)
	}
}

func TestGrid_ExcludesSelfBySerial(t *testing.T) {
	a := &Atom{Serial: 1, X: 0, Y: 0, Z: 0}
	// A different atom list containing an atom at the exact same position
	// but with a different serial: only the epsilon bound may exclude it.
	twin := &Atom{Serial: 2, X: 0, Y: 0, Z: 0}
	near := &Atom{Serial: 3, X: 1, Y: 0, Z: 0}
	grid := NewGrid([]*Atom{twin, near}, DefaultCellSize)

	got := grid.NeighborsOf(a, 2.0)
	assert.Equal(t, []int{3}, serialsOf(got),
		"exact positional twin is excluded by the epsilon bound")
}

func TestGrid_SerialExclusionAcrossLists(t *testing.T) {
	// Ligand and protein atoms may share serial values only when the caller
	// queries the grid its own atom was indexed into.
	indexed := &Atom{Serial: 9, X: 0.5, Y: 0, Z: 0}
	grid := NewGrid([]*Atom{indexed}, DefaultCellSize)

	query := &Atom{Serial: 9, X: 0, Y: 0, Z: 0}
	assert.Empty(t, grid.NeighborsOf(query, 2.0))

	other := &Atom{Serial: 8, X: 0, Y: 0, Z: 0}
	assert.Len(t, grid.NeighborsOf(other, 2.0), 1)
}

func TestGrid_NegativeCoordinates(t *testing.T) {
	atoms := []*Atom{
		{Serial: 1, X: -10.2, Y: -3.4, Z: -7.7},
		{Serial: 2, X: -11.0, Y: -3.0, Z: -7.0},
		{Serial: 3, X: 10.0, Y: 10.0, Z: 10.0},
	}
	grid := NewGrid(atoms, DefaultCellSize)

	got := grid.NeighborsAt(-10.2, -3.4, -7.7, 2.0, 1)
	assert.Equal(t, []int{2}, serialsOf(got))
}

func TestGrid_EmptyAndZeroRadius(t *testing.T) {
	empty := NewGrid(nil, DefaultCellSize)
	assert.Empty(t, empty.NeighborsAt(0, 0, 0, 5.0, -1))
	assert.Zero(t, empty.Size())

	grid := NewGrid([]*Atom{{Serial: 1, X: 1, Y: 0, Z: 0}}, DefaultCellSize)
	assert.Empty(t, grid.NeighborsAt(0, 0, 0, 0, -1))
	require.Equal(t, 1, grid.Size())
}

func TestGrid_CellSizeFallback(t *testing.T) {
	grid := NewGrid([]*Atom{{Serial: 1, X: 1, Y: 0, Z: 0}}, 0)
	assert.Equal(t, DefaultCellSize, grid.cellSize)
}

func BenchmarkGridNeighbors(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	atoms := randomAtoms(rng, 5000, 60.0)
	grid := NewGrid(atoms, DefaultCellSize)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a := atoms[i%len(atoms)]
		_ = grid.NeighborsOf(a, 4.0)
	}
}
