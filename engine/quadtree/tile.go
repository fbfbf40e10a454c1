package quadtree

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"gonum.org/v1/gonum/spatial/r3"
)

// TileSubdivision is the number of grid cells along each side of a tile patch. It must be even
// so that every transition edge can drop its odd vertices.
const TileSubdivision = 16

// DefaultMaxLevel bounds the depth of a quadtree. Level 24 tiles on an Earth-sized globe are
// a few meters across, which is already past the precision of float32 vertex positions.
const DefaultMaxLevel = 24

// DefaultCurveErrorPixels is the largest on-screen gap, in pixels, tolerated between the ellipsoid
// and the flat triangles approximating it before a tile is split.
const DefaultCurveErrorPixels = 0.5

// Direction indexes the four neighbor links of a tile.
type Direction int

const (
	East Direction = iota
	North
	West
	South
)

// Opposite returns the direction pointing back at a tile from its neighbor.
func (d Direction) Opposite() Direction {
	return (d + 2) & 3
}

// Quadrant indexes the four children of a split tile.
type Quadrant int

const (
	Northeast Quadrant = iota
	Northwest
	Southwest
	Southeast
)

// TileID is the index of a tile in its Allocator.
type TileID int32

// NoTile is the null tile reference.
const NoTile TileID = -1

// Tile is one node of a restricted quadtree covering a hemisphere of an ellipsoid. Its surface
// patch spans [Southwest, Southwest+Extent] in normalized coordinates, where x in [-1, 1] maps to
// longitude [-π, π] and y in [-0.5, 0.5] maps to latitude [-π/2, π/2].
//
// Children are owned by the tile; neighbor links are back-references to tiles of the same level,
// or NoTile when the neighbor across that edge is coarser or the edge is a pole.
type Tile struct {
	Parent    TileID
	Neighbors [4]TileID
	Children  [4]TileID

	Level  uint32
	Row    uint32
	Column uint32

	Southwest [2]float64
	Extent    float64

	Center         r3.Vec
	BoundingRadius float64

	// ApproxPixelSize is the projected size of the tile from the last tessellation pass.
	ApproxPixelSize float64
	Culled          bool
}

// IsRoot reports whether the tile has no parent.
func (t *Tile) IsRoot() bool {
	return t.Parent == NoTile
}

// HasChildren reports whether the tile has been split. A tile has either no children or all four.
func (t *Tile) HasChildren() bool {
	return t.Children[0] != NoTile
}

// Cull reports whether the tile's bounding sphere lies completely outside the planes.
//
// Parameters:
//   - planes: the culling volume in the ellipsoid's local frame
//
// Returns:
//   - bool: true if the tile is invisible
func (t *Tile) Cull(planes *common.CullingPlaneSet) bool {
	return planes.Cull(t.Center, t.BoundingRadius)
}

// Bounds returns the tile's longitude and latitude range in radians.
//
// Returns:
//   - float64: west longitude
//   - float64: east longitude
//   - float64: south latitude
//   - float64: north latitude
func (t *Tile) Bounds() (west, east, south, north float64) {
	arc := math.Pi * t.Extent
	west = math.Pi * t.Southwest[0]
	south = math.Pi * t.Southwest[1]
	return west, west + arc, south, south + arc
}

// StitchSelector returns the 4-bit mask of edges bordering a coarser tile. Bit 1<<d is set when
// the neighbor in direction d is missing.
func (t *Tile) StitchSelector() uint8 {
	var sel uint8
	for d, n := range t.Neighbors {
		if n == NoTile {
			sel |= 1 << d
		}
	}
	return sel
}

// degenerate reports whether the tile's bounds cannot produce a meaningful projected size.
func (t *Tile) degenerate() bool {
	r := t.BoundingRadius
	return math.IsNaN(r) || math.IsInf(r, 0) || r <= 0
}

func (t *Tile) computeCenterAndRadius(semiAxes r3.Vec) {
	arc := math.Pi * t.Extent
	lonWest := math.Pi * t.Southwest[0]
	latSouth := math.Pi * t.Southwest[1]

	t.Center = common.MulElem(unitEllipsoidPoint(latSouth+arc*0.5, lonWest+arc*0.5), semiAxes)

	// The corner nearest the equator is farthest from the center.
	cornerLat := latSouth
	if latSouth < 0 {
		cornerLat = latSouth + arc
	}
	corner := common.MulElem(unitEllipsoidPoint(cornerLat, lonWest), semiAxes)
	t.BoundingRadius = r3.Norm(r3.Sub(corner, t.Center))
}

func unitEllipsoidPoint(lat, lon float64) r3.Vec {
	cosLat := math.Cos(lat)
	return r3.Vec{X: cosLat * math.Cos(lon), Y: cosLat * math.Sin(lon), Z: math.Sin(lat)}
}

func newTile() Tile {
	return Tile{
		Parent:    NoTile,
		Neighbors: [4]TileID{NoTile, NoTile, NoTile, NoTile},
		Children:  [4]TileID{NoTile, NoTile, NoTile, NoTile},
	}
}
