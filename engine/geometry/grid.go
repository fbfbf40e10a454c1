package geometry

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/quadtree"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"gonum.org/v1/gonum/spatial/r3"
)

// gridLineSegments is the number of segments in each meridian or parallel drawn per tile.
const gridLineSegments = 32

// gridSpacings are the allowed grid spacings in degrees, coarsest first.
var gridSpacings = []float64{30, 15, 10, 5, 3, 2, 1, 1.0 / 2, 1.0 / 3, 1.0 / 5, 1.0 / 10, 1.0 / 15, 1.0 / 20, 1.0 / 30, 1.0 / 60}

// GridSpacing returns the coarsest allowed spacing that is finer than ideal.
//
// Parameters:
//   - ideal: the ideal spacing in degrees
//
// Returns:
//   - float64: the spacing in degrees
func GridSpacing(ideal float64) float64 {
	for _, s := range gridSpacings {
		if ideal > s {
			return s
		}
	}
	return gridSpacings[len(gridSpacings)-1]
}

// LatLongGrid is a world layer that draws meridians and parallels. The spacing adapts to the
// apparent size of the world and the grid fades out when the world is small on screen.
type LatLongGrid struct {
	Color   [3]float32
	Opacity float32
}

var _ quadtree.WorldLayer = &LatLongGrid{}

// NewLatLongGrid creates a white grid at full opacity.
func NewLatLongGrid() *LatLongGrid {
	return &LatLongGrid{Color: [3]float32{1, 1, 1}, Opacity: 1}
}

// RenderTile draws the grid lines crossing one tile.
//
// Parameters:
//   - rc: the render context with the world's model view applied
//   - world: the world
//   - tile: the leaf tile
func (g *LatLongGrid) RenderTile(rc renderer.RenderContext, world quadtree.World, tile *quadtree.Tile) {
	semiAxes := world.SemiAxes()
	radius := common.MinComponent(semiAxes)
	mv := rc.ModelView()
	eye := eyePosition(mv)

	distance := r3.Norm(r3.Vec{X: float64(mv[12]), Y: float64(mv[13]), Z: float64(mv[14])})
	altitude := max(1, distance-radius)
	apparentPixels := (radius / altitude) / rc.PixelSize()
	idealLat := 360 / (apparentPixels / 30)

	opacity := g.Opacity
	if idealLat > 45 {
		opacity *= float32(max(0, (90-idealLat)/45))
	}
	if opacity <= 0 {
		return
	}

	// Meridians converge toward the poles, so they are spaced more widely when seen from above one.
	z := 0.0
	if n := r3.Norm(eye); n > 0 {
		z = math.Abs(eye.Z / n)
	}
	idealLon := idealLat / max(0.01, math.Sqrt(1-z*z))

	latSpacing := common.DegToRad(GridSpacing(idealLat))
	lonSpacing := common.DegToRad(GridSpacing(idealLon))

	rc.BindMaterial(material.NewMaterial(
		material.WithName("grid"),
		material.WithDiffuse(g.Color),
		material.WithOpacity(opacity),
	))

	west, east, south, north := tile.Bounds()
	for i := math.Ceil(west / lonSpacing); i <= math.Floor(east/lonSpacing); i++ {
		drawGridLine(rc, semiAxes, i*lonSpacing, south, i*lonSpacing, north)
	}
	for i := math.Ceil(south / latSpacing); i <= math.Floor(north/latSpacing); i++ {
		drawGridLine(rc, semiAxes, west, i*latSpacing, east, i*latSpacing)
	}
}

// TileBorders is a world layer that outlines every visible tile. It is a debugging aid for
// the tessellation.
type TileBorders struct {
	Color [3]float32
}

var _ quadtree.WorldLayer = TileBorders{}

// RenderTile outlines one tile.
func (b TileBorders) RenderTile(rc renderer.RenderContext, world quadtree.World, tile *quadtree.Tile) {
	semiAxes := world.SemiAxes()
	west, east, south, north := tile.Bounds()
	rc.BindMaterial(material.NewMaterial(material.WithName("tile_borders"), material.WithDiffuse(b.Color)))
	drawGridLine(rc, semiAxes, west, south, east, south)
	drawGridLine(rc, semiAxes, west, north, east, north)
	drawGridLine(rc, semiAxes, east, south, east, north)
}

// drawGridLine draws a line strip on the ellipsoid interpolating linearly in longitude and
// latitude between the two end points, given in radians.
func drawGridLine(rc renderer.RenderContext, semiAxes r3.Vec, lon0, lat0, lon1, lat1 float64) {
	verts := make([]float32, 0, (gridLineSegments+1)*3)
	for i := 0; i <= gridLineSegments; i++ {
		t := float64(i) / gridLineSegments
		lon := (1-t)*lon0 + t*lon1
		lat := (1-t)*lat0 + t*lat1
		p := common.MulElem(semiAxes, r3.Vec{
			X: math.Cos(lon) * math.Cos(lat),
			Y: math.Sin(lon) * math.Cos(lat),
			Z: math.Sin(lat),
		})
		verts = append(verts, float32(p.X), float32(p.Y), float32(p.Z))
	}
	rc.BindVertexArray(renderer.Position, verts)
	rc.DrawPrimitives(renderer.LineStrip, nil)
}
