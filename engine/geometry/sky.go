package geometry

import (
	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/quadtree"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// skyFarDistance bounds the culling frustum of the sky sphere. The sphere itself has unit radius.
const skyFarDistance = 2.0e6

// SkyImageLayer draws an all-sky image, such as a Milky Way panorama, on the inside of a unit
// sphere centered on the camera.
type SkyImageLayer struct {
	Visible     bool
	Order       int
	Orientation quat.Number
	Tint        [3]float32
	Opacity     float32
	Texture     material.TextureRef

	alloc *quadtree.Allocator
}

var _ SkyLayer = &SkyImageLayer{}

// NewSkyImageLayer creates a visible, untinted and fully opaque sky layer.
//
// Parameters:
//   - texture: the equirectangular sky texture
//
// Returns:
//   - *SkyImageLayer: the layer
func NewSkyImageLayer(texture material.TextureRef) *SkyImageLayer {
	return &SkyImageLayer{
		Visible:     true,
		Orientation: common.QuatIdentity,
		Tint:        [3]float32{1, 1, 1},
		Opacity:     1,
		Texture:     texture,
		alloc:       quadtree.NewAllocator(64),
	}
}

func (l *SkyImageLayer) IsVisible() bool {
	return l.Visible
}

func (l *SkyImageLayer) DrawOrder() int {
	return l.Order
}

// Render draws the layer. Nothing is drawn until the texture is resident.
func (l *SkyImageLayer) Render(rc renderer.RenderContext) {
	if !material.RequestResident(l.Texture) {
		return
	}
	if l.alloc == nil {
		l.alloc = quadtree.NewAllocator(64)
	}

	rc.PushModelView()
	defer rc.PopModelView()
	rc.RotateModelView(l.Orientation)

	mv := rc.ModelView()
	frustum := rc.Projection().Frustum()
	planes := localCullingPlanes(mv, frustum, frustum.NearZ, skyFarDistance)
	eye := eyePosition(mv)

	m := material.NewMaterial(
		material.WithName("sky"),
		material.WithDiffuse(l.Tint),
		material.WithOpacity(l.Opacity),
		material.WithBaseTexture(l.Texture),
	)
	rc.BindMaterial(m)

	unit := r3.Vec{X: 1, Y: 1, Z: 1}
	pixelSize := rc.PixelSize()
	l.alloc.Clear()
	west, east := quadtree.InitRoots(l.alloc, unit)
	threshold := pixelSize * MaxTileSquareSize * quadtree.TileSubdivision
	quadtree.Tessellate(l.alloc, west, eye, &planes, unit, threshold, pixelSize, quadtree.TessellateOptions{})
	quadtree.Tessellate(l.alloc, east, eye, &planes, unit, threshold, pixelSize, quadtree.TessellateOptions{})

	// The camera is inside the sphere.
	rc.SetCullMode(renderer.CullFront)
	s := &quadtree.RenderStrategy{Kind: quadtree.RenderNoTexture, SemiAxes: unit, Material: m}
	quadtree.Render(l.alloc, west, rc, s)
	quadtree.Render(l.alloc, east, rc, s)
	rc.SetCullMode(renderer.CullBack)
}
