package quadtree

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"gonum.org/v1/gonum/spatial/r3"
)

// Features selects the vertex attributes generated for a patch.
type Features uint32

const (
	// NormalMap adds normals and tangents for tangent-space normal mapping.
	NormalMap Features = 1 << iota
	// Normals adds surface normals for lighting.
	Normals
)

// VertexSpec returns the vertex layout generated for the feature set.
func (f Features) VertexSpec() renderer.VertexSpec {
	switch {
	case f&NormalMap != 0:
		return renderer.PositionNormalTexTangent
	case f&Normals != 0:
		return renderer.PositionNormalTex
	default:
		return renderer.PositionTex
	}
}

// Patch is the mesh of one leaf tile.
type Patch struct {
	Spec     renderer.VertexSpec
	Vertices []float32
	Indices  []uint16

	// clipped holds indices owned by the patch. Indices may alias a shared stitch table.
	clipped []uint16
}

// TexMapping gives the texture coordinate of grid vertex (row i, column j) as
// (U0 + j·DU, V0 + i·DV), with v increasing northward. Patches store 1-v so images with their
// first row at the north edge come out upright.
type TexMapping struct {
	U0, V0 float64
	DU, DV float64
}

// DefaultTexMapping maps the whole globe onto one equirectangular texture.
func DefaultTexMapping(t *Tile) TexMapping {
	step := t.Extent / TileSubdivision
	return TexMapping{
		U0: t.Southwest[0]*0.5 + 0.5,
		V0: t.Southwest[1] + 0.5,
		DU: step * 0.5,
		DV: step,
	}
}

// TextureSubrect is a texture plus the rectangle of it covering one map tile.
type TextureSubrect struct {
	Texture material.TextureRef
	U0, V0  float64
	U1, V1  float64
}

// TiledMap is a texture pyramid addressed like the quadtree: level n has 2^(n+1) columns and
// 2^n rows.
type TiledMap interface {
	// TileSize returns the texel width of one tile, or 0 when the map is not a resolution pyramid
	// and the tile level should always match the geometry.
	TileSize() int

	// Tile returns the texture for a map address. Implementations fall back to a coarser
	// resident tile and return the matching subrectangle of it.
	Tile(level, column, row uint32) TextureSubrect
}

// TiledAddress picks the map tile used to texture t. When the tile covers fewer pixels on screen
// than a map tile has texels, coarser map levels are walked up, independently of the geometry level.
//
// Parameters:
//   - t: the tile being drawn
//   - tileSize: the map's tile size in texels
//
// Returns:
//   - uint32: the map level
//   - uint32: the map column
//   - uint32: the map row
func TiledAddress(t *Tile, tileSize int) (level, column, row uint32) {
	level, column, row = t.Level, t.Column, t.Row
	if t.ApproxPixelSize >= float64(tileSize) {
		return level, column, row
	}

	n := uint64(math.MaxUint32)
	if t.ApproxPixelSize > 0 {
		n = uint64(min(float64(tileSize)/t.ApproxPixelSize, math.MaxUint32))
	}
	for n > 0 && level > 0 {
		n >>= 1
		column >>= 1
		row >>= 1
		level--
	}
	return level, column, row
}

// TiledTexMapping selects the map tile for t and computes the texture coordinates covering it.
// When the map tile is coarser than t, t uses the matching fraction of the map tile.
//
// Parameters:
//   - t: the tile being drawn
//   - m: the tiled map
//
// Returns:
//   - TexMapping: the patch texture coordinates
//   - TextureSubrect: the map tile
func TiledTexMapping(t *Tile, m TiledMap) (TexMapping, TextureSubrect) {
	level, column, row := TiledAddress(t, m.TileSize())
	r := m.Tile(level, column, row)
	return subrectMapping(t, r, level), r
}

func subrectMapping(t *Tile, r TextureSubrect, mapLevel uint32) TexMapping {
	uExt, vExt := r.U1-r.U0, r.V1-r.V0
	u0, v0 := r.U0, r.V0
	if mapLevel < t.Level {
		shift := t.Level - mapLevel
		scale := 1 / float64(uint64(1)<<shift)
		mask := uint32(1)<<shift - 1

		uExt *= scale
		vExt *= scale
		u0 += uExt * float64(t.Column&mask)
		v0 += vExt * float64(t.Row&mask)
	}
	return TexMapping{U0: u0, V0: v0, DU: uExt / TileSubdivision, DV: vExt / TileSubdivision}
}

// BuildPatch generates the stitched mesh of a leaf tile. Vertex positions lie on the ellipsoid;
// normals and tangents are computed analytically from the parametrization.
//
// Parameters:
//   - t: the tile
//   - semiAxes: the ellipsoid semi-axes
//   - features: the attributes to generate
//   - tex: the texture coordinate mapping
//
// Returns:
//   - Patch: the mesh, with indices shared from StitchIndices
func BuildPatch(t *Tile, semiAxes r3.Vec, features Features, tex TexMapping) Patch {
	var p Patch
	buildPatchInto(&p, t, semiAxes, features, tex)
	return p
}

func buildPatchInto(p *Patch, t *Tile, semiAxes r3.Vec, features Features, tex TexMapping) {
	p.Spec = features.VertexSpec()
	p.Vertices = p.Vertices[:0]

	lonWest, _, latSouth, _ := t.Bounds()
	step := math.Pi * t.Extent / TileSubdivision
	for i := 0; i <= TileSubdivision; i++ {
		lat := latSouth + float64(i)*step
		v := tex.V0 + float64(i)*tex.DV
		for j := 0; j <= TileSubdivision; j++ {
			lon := lonWest + float64(j)*step
			u := tex.U0 + float64(j)*tex.DU
			p.Vertices = appendVertex(p.Vertices, p.Spec, semiAxes, lat, lon, u, v)
		}
	}
	p.Indices = StitchIndices(t.StitchSelector())
}

// appendVertex writes one surface vertex in the interleaved order position, normal, texture
// coordinate, tangent, omitting what spec lacks.
func appendVertex(dst []float32, spec renderer.VertexSpec, semiAxes r3.Vec, lat, lon, u, v float64) []float32 {
	unit := unitEllipsoidPoint(lat, lon)
	pos := common.MulElem(unit, semiAxes)
	dst = append(dst, float32(pos.X), float32(pos.Y), float32(pos.Z))

	if spec == renderer.PositionNormalTex || spec == renderer.PositionNormalTexTangent {
		n := r3.Unit(common.DivElem(unit, semiAxes))
		dst = append(dst, float32(n.X), float32(n.Y), float32(n.Z))
	}

	dst = append(dst, float32(u), float32(1-v))

	if spec == renderer.PositionNormalTexTangent {
		// dP/dlon, which has no latitude term.
		tan := r3.Unit(common.MulElem(r3.Vec{X: -math.Sin(lon), Y: math.Cos(lon)}, semiAxes))
		dst = append(dst, float32(tan.X), float32(tan.Y), float32(tan.Z))
	}
	return dst
}

// Box is a longitude/latitude rectangle in radians.
type Box struct {
	West, East   float64
	South, North float64
}

// Disjoint reports whether the box and the given bounds do not overlap.
func (b Box) Disjoint(west, east, south, north float64) bool {
	return b.West > east || b.East < west || b.South > north || b.North < south
}

// Covers reports whether the box contains the given bounds entirely.
func (b Box) Covers(west, east, south, north float64) bool {
	return b.West <= west && b.East >= east && b.South <= south && b.North >= north
}

// layerTexMapping maps the box onto [0, 1]² texture space for the grid of tile t.
func layerTexMapping(t *Tile, box Box) TexMapping {
	lonWest, _, latSouth, _ := t.Bounds()
	lonExt, latExt := box.East-box.West, box.North-box.South
	step := math.Pi * t.Extent / TileSubdivision
	return TexMapping{
		U0: (lonWest - box.West) / lonExt,
		V0: (latSouth - box.South) / latExt,
		DU: step / lonExt,
		DV: step / latExt,
	}
}

// buildClippedPatchInto generates the part of t's grid inside box. Rows and columns of the tile
// grid are reused where they fall inside the box so layer vertices coincide with the surface
// beneath; extra rows and columns are inserted along the box edges.
func buildClippedPatchInto(p *Patch, t *Tile, semiAxes r3.Vec, features Features, box Box) {
	p.Spec = (features &^ NormalMap).VertexSpec()
	p.Vertices = p.Vertices[:0]
	p.Indices = nil

	lonWest, lonEast, latSouth, latNorth := t.Bounds()
	arc := lonEast - lonWest
	step := arc / TileSubdivision
	tex := layerTexMapping(t, box)

	startCol, endCol := 0, TileSubdivision
	westEdge, eastEdge := lonWest < box.West, lonEast > box.East
	if westEdge {
		startCol = int(math.Ceil((box.West - lonWest) / arc * TileSubdivision))
	}
	if eastEdge {
		endCol = int(math.Floor((box.East - lonWest) / arc * TileSubdivision))
	}

	startRow, endRow := 0, TileSubdivision
	southEdge, northEdge := latSouth < box.South, latNorth > box.North
	if southEdge {
		startRow = int(math.Ceil((box.South - latSouth) / arc * TileSubdivision))
	}
	if northEdge {
		endRow = int(math.Floor((box.North - latSouth) / arc * TileSubdivision))
	}

	row := func(lat, v float64) {
		if westEdge {
			p.Vertices = appendVertex(p.Vertices, p.Spec, semiAxes, lat, box.West, 0, v)
		}
		for j := startCol; j <= endCol; j++ {
			p.Vertices = appendVertex(p.Vertices, p.Spec, semiAxes, lat, lonWest+float64(j)*step, tex.U0+float64(j)*tex.DU, v)
		}
		if eastEdge {
			p.Vertices = appendVertex(p.Vertices, p.Spec, semiAxes, lat, box.East, 1, v)
		}
	}

	if southEdge {
		row(box.South, 0)
	}
	for i := startRow; i <= endRow; i++ {
		row(latSouth+float64(i)*step, tex.V0+float64(i)*tex.DV)
	}
	if northEdge {
		row(box.North, 1)
	}

	cols := endCol - startCol + boolInt(westEdge) + boolInt(eastEdge)
	rows := endRow - startRow + boolInt(southEdge) + boolInt(northEdge)
	if cols <= 0 || rows <= 0 {
		p.Vertices = p.Vertices[:0]
		return
	}
	p.clipped = gridIndices(p.clipped, rows, cols)
	p.Indices = p.clipped
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
