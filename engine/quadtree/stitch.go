package quadtree

import "sync"

const gridSide = TileSubdivision + 1

var (
	stitchOnce   sync.Once
	stitchTables [16][]uint16
)

// StitchIndices returns the triangle list for a tile patch whose edges listed in selector border
// a coarser tile. Bit 1<<d of selector marks direction d as a transition edge (see
// Tile.StitchSelector).
//
// The patch is triangulated in 2x2 blocks of cells, each fanned around its center vertex. On a
// transition edge the fan skips the odd edge vertex, so the edge only uses vertices that also
// exist on the coarser neighbor. The 16 tables are built once and shared; callers must not
// modify them.
//
// Parameters:
//   - selector: the transition edge mask, only the low 4 bits are used
//
// Returns:
//   - []uint16: counterclockwise triangles indexing a (TileSubdivision+1)² row-major vertex grid
func StitchIndices(selector uint8) []uint16 {
	stitchOnce.Do(func() {
		for sel := range stitchTables {
			stitchTables[sel] = buildStitchTable(uint8(sel))
		}
	})
	return stitchTables[selector&0xf]
}

func gridIndex(row, col int) uint16 {
	return uint16(row*gridSide + col)
}

func buildStitchTable(sel uint8) []uint16 {
	const blocks = TileSubdivision / 2
	transition := func(d Direction) bool { return sel&(1<<d) != 0 }

	indices := make([]uint16, 0, TileSubdivision*TileSubdivision*2*3)
	for bi := 0; bi < blocks; bi++ {
		for bj := 0; bj < blocks; bj++ {
			r, c := 2*bi, 2*bj
			center := gridIndex(r+1, c+1)

			// Block boundary counterclockwise from the southwest corner. The midpoint of an edge
			// lying on a transition side of the patch is left out.
			ring := make([]uint16, 0, 8)
			ring = append(ring, gridIndex(r, c))
			if !(bi == 0 && transition(South)) {
				ring = append(ring, gridIndex(r, c+1))
			}
			ring = append(ring, gridIndex(r, c+2))
			if !(bj == blocks-1 && transition(East)) {
				ring = append(ring, gridIndex(r+1, c+2))
			}
			ring = append(ring, gridIndex(r+2, c+2))
			if !(bi == blocks-1 && transition(North)) {
				ring = append(ring, gridIndex(r+2, c+1))
			}
			ring = append(ring, gridIndex(r+2, c))
			if !(bj == 0 && transition(West)) {
				ring = append(ring, gridIndex(r+1, c))
			}

			for k := range ring {
				indices = append(indices, center, ring[k], ring[(k+1)%len(ring)])
			}
		}
	}
	return indices
}

// gridIndices returns the plain two-triangles-per-cell index list for a rows x cols cell grid.
func gridIndices(dst []uint16, rows, cols int) []uint16 {
	dst = dst[:0]
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			i00 := uint16(i*(cols+1) + j)
			i01 := i00 + 1
			i10 := i00 + uint16(cols+1)
			i11 := i10 + 1
			dst = append(dst, i00, i01, i11, i00, i11, i10)
		}
	}
	return dst
}
