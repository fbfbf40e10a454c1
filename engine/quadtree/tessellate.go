package quadtree

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"gonum.org/v1/gonum/spatial/r3"
)

// TessellateOptions holds the tunable limits of Tessellate. Zero fields take their defaults.
type TessellateOptions struct {
	// CurveErrorPixels is the largest allowed gap in pixels between the ellipsoid and a flat cell.
	CurveErrorPixels float64
	// MaxLevel is the deepest level a tile may be split to.
	MaxLevel uint32
}

func (o TessellateOptions) withDefaults() TessellateOptions {
	o.CurveErrorPixels = common.Coalesce(o.CurveErrorPixels, DefaultCurveErrorPixels)
	o.MaxLevel = common.Coalesce(o.MaxLevel, DefaultMaxLevel)
	return o
}

// InitRoots allocates the two hemisphere roots of a globe. The west root covers longitudes
// [-π, 0] and the east root [0, π]. They are linked to each other across both the east and
// west edges so the tree wraps around the antimeridian; neither has a north or south neighbor.
//
// Parameters:
//   - a: the allocator, normally freshly cleared
//   - semiAxes: the ellipsoid semi-axes
//
// Returns:
//   - TileID: the west root
//   - TileID: the east root
func InitRoots(a *Allocator, semiAxes r3.Vec) (west, east TileID) {
	west = a.NewRootTile(0, 0, [2]float64{-1, -0.5}, 1, semiAxes)
	east = a.NewRootTile(0, 1, [2]float64{0, -0.5}, 1, semiAxes)
	a.Link(west, East, east)
	a.Link(west, West, east)
	return west, east
}

// Tessellate recursively splits a tile until every visible descendant is small enough on screen.
//
// A tile splits when its apparent angular size exceeds splitThreshold or when the error of
// approximating the curved surface by flat cells, converted to pixels, exceeds
// opts.CurveErrorPixels. Culled tiles, tiles at opts.MaxLevel and tiles with a degenerate bounding
// sphere are never split by Tessellate, though Split may still be forced on them by a neighbor.
//
// Parameters:
//   - a: the allocator holding the tree
//   - id: the tile to tessellate
//   - eye: the eye position in the ellipsoid's local frame
//   - planes: the view volume in the ellipsoid's local frame
//   - semiAxes: the ellipsoid semi-axes
//   - splitThreshold: the apparent size, in radians, above which tiles split
//   - pixelSize: the angular size of one pixel
//   - opts: curve error and depth limits
func Tessellate(a *Allocator, id TileID, eye r3.Vec, planes *common.CullingPlaneSet, semiAxes r3.Vec,
	splitThreshold, pixelSize float64, opts TessellateOptions) {
	opts = opts.withDefaults()
	tessellate(a, id, eye, planes, semiAxes, splitThreshold, pixelSize, opts)
}

func tessellate(a *Allocator, id TileID, eye r3.Vec, planes *common.CullingPlaneSet, semiAxes r3.Vec,
	splitThreshold, pixelSize float64, opts TessellateOptions) {
	t := a.Get(id)
	if t.degenerate() {
		t.ApproxPixelSize = 0
		return
	}

	// Exact altitude for a sphere, an overestimate for other ellipsoids.
	distToCenter := r3.Norm(eye)
	approxAltitude := math.Abs(distToCenter - r3.Norm(common.MulElem(eye, semiAxes))/math.Max(1e-6, distToCenter))

	distToTile := math.Max(approxAltitude, r3.Norm(r3.Sub(eye, t.Center))-t.BoundingRadius)
	distToTile = math.Max(1e-6, distToTile)
	apparentSize := t.BoundingRadius / distToTile
	t.ApproxPixelSize = apparentSize / pixelSize

	// Maximum distance between a circle of radius r and a chord spanning angle θ is r(1 - cos(θ/2)).
	cellArc := math.Pi * t.Extent / TileSubdivision
	curveError := common.MaxComponent(semiAxes) * (1 - math.Cos(cellArc*0.5))
	curveErrorPixels := curveError / (distToTile * pixelSize)

	if apparentSize <= splitThreshold && curveErrorPixels <= opts.CurveErrorPixels {
		return
	}
	if t.Culled || t.Level >= opts.MaxLevel {
		return
	}

	Split(a, id, planes, semiAxes)
	children := a.Get(id).Children
	for _, c := range children {
		tessellate(a, c, eye, planes, semiAxes, splitThreshold, pixelSize, opts)
	}
}

// Split creates the four children of a tile and links them to their neighbors. Before splitting,
// any neighbor that is coarser than the tile is split first, so adjacent leaves never differ by
// more than one level. Splitting a tile that already has children does nothing.
//
// Parameters:
//   - a: the allocator holding the tree
//   - id: the tile to split
//   - planes: the view volume used to cull the new children
//   - semiAxes: the ellipsoid semi-axes
func Split(a *Allocator, id TileID, planes *common.CullingPlaneSet, semiAxes r3.Vec) {
	t := a.Get(id)
	if t.HasChildren() {
		return
	}

	if !t.IsRoot() {
		for d := East; d <= South; d++ {
			t = a.Get(id)
			if t.Neighbors[d] != NoTile {
				continue
			}
			// The parent lacks a neighbor only at a pole.
			if pn := a.Get(t.Parent).Neighbors[d]; pn != NoTile {
				Split(a, pn, planes, semiAxes)
			}
		}
	}

	var children [4]TileID
	for q := Northeast; q <= Southeast; q++ {
		children[q] = a.NewChild(id, q, semiAxes)
	}

	t = a.Get(id)
	t.Children = children
	if !t.Culled {
		for _, c := range children {
			ct := a.Get(c)
			ct.Culled = ct.Cull(planes)
		}
	}

	ne, nw, sw, se := children[Northeast], children[Northwest], children[Southwest], children[Southeast]
	a.Link(ne, South, se)
	a.Link(nw, South, sw)
	a.Link(ne, West, nw)
	a.Link(se, West, sw)

	neighbors := t.Neighbors
	if n := neighbors[North]; n != NoTile {
		nc := a.Get(n).Children
		a.Link(ne, North, nc[Southeast])
		a.Link(nw, North, nc[Southwest])
	}
	if n := neighbors[West]; n != NoTile {
		nc := a.Get(n).Children
		a.Link(nw, West, nc[Northeast])
		a.Link(sw, West, nc[Southeast])
	}
	if n := neighbors[South]; n != NoTile {
		nc := a.Get(n).Children
		a.Link(se, South, nc[Northeast])
		a.Link(sw, South, nc[Northwest])
	}
	if n := neighbors[East]; n != NoTile {
		nc := a.Get(n).Children
		a.Link(se, East, nc[Southwest])
		a.Link(ne, East, nc[Northwest])
	}
}

// Stats summarizes the shape of a tessellated tree.
type Stats struct {
	Tiles    int
	Leaves   int
	Culled   int
	MaxLevel uint32
}

// CollectStats walks every allocated tile.
//
// Parameters:
//   - a: the allocator holding the tree
//
// Returns:
//   - Stats: tile, leaf and culled leaf counts and the deepest level
func CollectStats(a *Allocator) Stats {
	s := Stats{Tiles: a.Len()}
	for i := range a.tiles {
		t := &a.tiles[i]
		s.MaxLevel = max(s.MaxLevel, t.Level)
		if t.HasChildren() {
			continue
		}
		s.Leaves++
		if t.Culled {
			s.Culled++
		}
	}
	return s
}
