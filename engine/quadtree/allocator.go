package quadtree

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Allocator is an arena of tiles for one quadtree layer. Tiles refer to each other by TileID,
// so growing the arena never invalidates links. An Allocator is cleared and rebuilt every time
// its layer is rendered and is not safe for concurrent use.
type Allocator struct {
	tiles []Tile
	patch Patch
}

// NewAllocator creates an empty Allocator.
//
// Parameters:
//   - capacity: the number of tiles to reserve up front
//
// Returns:
//   - *Allocator: the allocator
func NewAllocator(capacity int) *Allocator {
	return &Allocator{tiles: make([]Tile, 0, capacity)}
}

// Clear discards every tile while keeping the arena's capacity.
func (a *Allocator) Clear() {
	a.tiles = a.tiles[:0]
}

// Len returns the number of allocated tiles.
func (a *Allocator) Len() int {
	return len(a.tiles)
}

// Get returns the tile with the given id. The pointer is valid until the next allocation; hold
// on to TileIDs, not pointers, across calls that may split tiles.
//
// Parameters:
//   - id: the tile id
//
// Returns:
//   - *Tile: the tile, or nil for NoTile and out of range ids
func (a *Allocator) Get(id TileID) *Tile {
	if id < 0 || int(id) >= len(a.tiles) {
		return nil
	}
	return &a.tiles[id]
}

// Tiles returns the allocated tiles in allocation order. The slice aliases the arena.
func (a *Allocator) Tiles() []Tile {
	return a.tiles
}

// NewRootTile allocates a parentless tile.
//
// Parameters:
//   - row: the tile row at level 0
//   - column: the tile column at level 0
//   - southwest: the southwest corner in normalized map coordinates
//   - extent: the side length in normalized map coordinates
//   - semiAxes: the ellipsoid semi-axes
//
// Returns:
//   - TileID: the new tile
func (a *Allocator) NewRootTile(row, column uint32, southwest [2]float64, extent float64, semiAxes r3.Vec) TileID {
	t := newTile()
	t.Row = row
	t.Column = column
	t.Southwest = southwest
	t.Extent = extent
	t.computeCenterAndRadius(semiAxes)
	return a.push(t)
}

// NewChild allocates one quadrant of parent. The child inherits the parent's culled flag and
// projected size; the parent's child link is not updated.
//
// Parameters:
//   - parent: the tile being split
//   - q: the quadrant to create
//   - semiAxes: the ellipsoid semi-axes
//
// Returns:
//   - TileID: the new tile
func (a *Allocator) NewChild(parent TileID, q Quadrant, semiAxes r3.Vec) TileID {
	p := a.tiles[parent]

	t := newTile()
	t.Parent = parent
	t.Level = p.Level + 1
	t.Extent = p.Extent * 0.5
	t.ApproxPixelSize = p.ApproxPixelSize
	t.Culled = p.Culled

	t.Column = p.Column * 2
	t.Row = p.Row * 2
	t.Southwest = p.Southwest
	switch q {
	case Northeast:
		t.Column++
		t.Row++
		t.Southwest[0] += t.Extent
		t.Southwest[1] += t.Extent
	case Northwest:
		t.Row++
		t.Southwest[1] += t.Extent
	case Southeast:
		t.Column++
		t.Southwest[0] += t.Extent
	}

	t.computeCenterAndRadius(semiAxes)
	return a.push(t)
}

// Link connects two tiles across an edge in both directions. to may be NoTile, which clears
// the link of from.
//
// Parameters:
//   - from: the tile whose neighbor is set
//   - d: the direction from from to to
//   - to: the neighbor
func (a *Allocator) Link(from TileID, d Direction, to TileID) {
	a.tiles[from].Neighbors[d] = to
	if to != NoTile {
		a.tiles[to].Neighbors[d.Opposite()] = from
	}
}

func (a *Allocator) push(t Tile) TileID {
	a.tiles = append(a.tiles, t)
	return TileID(len(a.tiles) - 1)
}
