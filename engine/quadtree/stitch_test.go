package quadtree

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func gridPos(idx uint16) (row, col int) {
	return int(idx) / gridSide, int(idx) % gridSide
}

// onEdge reports whether grid vertex (row, col) lies on the patch edge facing d.
func onEdge(d Direction, row, col int) bool {
	switch d {
	case East:
		return col == TileSubdivision
	case North:
		return row == TileSubdivision
	case West:
		return col == 0
	default:
		return row == 0
	}
}

func edgeCoord(d Direction, row, col int) int {
	if d == East || d == West {
		return row
	}
	return col
}

func TestStitchIndices(t *testing.T) {
	for sel := 0; sel < 16; sel++ {
		idx := StitchIndices(uint8(sel))

		t.Run(fmt.Sprintf("StitchIndices: selector %04b covers the patch once", sel), func(t *testing.T) {
			require.Zero(t, len(idx)%3)

			area := 0.0
			for i := 0; i < len(idx); i += 3 {
				r0, c0 := gridPos(idx[i])
				r1, c1 := gridPos(idx[i+1])
				r2, c2 := gridPos(idx[i+2])
				// Columns run east (x) and rows run north (y).
				cross := float64((c1-c0)*(r2-r0) - (r1-r0)*(c2-c0))
				require.Positive(t, cross, "triangle %d is not counterclockwise", i/3)
				area += cross / 2
			}
			require.Equal(t, float64(TileSubdivision*TileSubdivision), area)
		})

		t.Run(fmt.Sprintf("StitchIndices: selector %04b uses only coarse vertices on transition edges", sel), func(t *testing.T) {
			used := map[uint16]bool{}
			for _, i := range idx {
				used[i] = true
			}
			for d := East; d <= South; d++ {
				transition := sel&(1<<d) != 0
				for i := range gridSide * gridSide {
					row, col := gridPos(uint16(i))
					if !onEdge(d, row, col) || edgeCoord(d, row, col)%2 == 0 {
						continue
					}
					if transition {
						require.False(t, used[uint16(i)], "odd vertex (%d,%d) on transition edge %d", row, col, d)
					} else {
						require.True(t, used[uint16(i)], "odd vertex (%d,%d) missing on edge %d", row, col, d)
					}
				}
			}
		})
	}

	t.Run("StitchIndices: no transitions gives two triangles per cell", func(t *testing.T) {
		require.Len(t, StitchIndices(0), TileSubdivision*TileSubdivision*2*3)
		require.Len(t, StitchIndices(0xf), (TileSubdivision*TileSubdivision*2-4*TileSubdivision/2)*3)
	})

	t.Run("StitchIndices: tables are shared and masked", func(t *testing.T) {
		require.Same(t, &StitchIndices(5)[0], &StitchIndices(0x15)[0])
	})
}

func TestStitchWatertight(t *testing.T) {
	a := NewAllocator(16)
	west, east := InitRoots(a, unitSphere)
	Split(a, west, &noCull, unitSphere)

	ne := a.Get(west).Children[Northeast]
	fine := a.Get(ne)
	require.Equal(t, uint8(1<<East|1<<North), fine.StitchSelector())

	finePatch := BuildPatch(fine, unitSphere, 0, DefaultTexMapping(fine))
	coarsePatch := BuildPatch(a.Get(east), unitSphere, 0, DefaultTexMapping(a.Get(east)))
	stride := finePatch.Spec.Stride()

	position := func(p Patch, idx int) r3.Vec {
		v := p.Vertices[idx*stride:]
		return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
	}

	coarseEdge := map[int]bool{}
	for _, i := range finePatch.Indices {
		row, col := gridPos(i)
		if col != TileSubdivision {
			continue
		}
		require.Zero(t, row%2, "fine edge uses odd vertex %d", row)

		// The fine tile covers the northern half of the coarse tile's west edge.
		coarseRow := TileSubdivision/2 + row/2
		coarseEdge[coarseRow] = true
		got := position(finePatch, int(i))
		want := position(coarsePatch, coarseRow*gridSide)
		require.InDelta(t, 0, r3.Norm(r3.Sub(got, want)), 1e-6)
	}
	require.Len(t, coarseEdge, TileSubdivision/2+1)
	require.False(t, math.IsNaN(position(finePatch, 0).X))
}
