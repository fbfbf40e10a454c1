package geometry

import (
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/quadtree"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"gonum.org/v1/gonum/spatial/r3"
)

// MaxTileSquareSize is the largest on-screen size in pixels of one quadtree cell row before
// the tile is split.
const MaxTileSquareSize = 256.0

// minTiledMapTileSize bounds how much a small map tile size may tighten the split threshold.
const minTiledMapTileSize = 128

// shell is one tessellated layer of a world: the surface, the clouds or the atmosphere. Each
// shell owns its allocator so the layers never share tiles.
type shell struct {
	alloc      *quadtree.Allocator
	west, east quadtree.TileID
}

func newShell() *shell {
	return &shell{alloc: quadtree.NewAllocator(256), west: quadtree.NoTile, east: quadtree.NoTile}
}

// tessellate rebuilds the shell's quadtree for the current view.
func (s *shell) tessellate(eye r3.Vec, planes *common.CullingPlaneSet, semiAxes r3.Vec, threshold, pixelSize float64, opts quadtree.TessellateOptions) {
	s.alloc.Clear()
	s.west, s.east = quadtree.InitRoots(s.alloc, semiAxes)
	quadtree.Tessellate(s.alloc, s.west, eye, planes, semiAxes, threshold, pixelSize, opts)
	quadtree.Tessellate(s.alloc, s.east, eye, planes, semiAxes, threshold, pixelSize, opts)
}

func (s *shell) render(rc renderer.RenderContext, strategy *quadtree.RenderStrategy) int {
	return quadtree.Render(s.alloc, s.west, rc, strategy) + quadtree.Render(s.alloc, s.east, rc, strategy)
}

// worldGeometryImpl is the implementation of the WorldGeometry interface.
type worldGeometryImpl struct {
	shadowFlags

	semiAxes r3.Vec
	material material.Material
	emissive bool

	baseMap   quadtree.TiledMap
	normalMap quadtree.TiledMap

	cloudAltitude float64
	cloudTexture  material.TextureRef
	cloudMap      quadtree.TiledMap

	atmosphereHeight float64
	atmosphereColor  [3]float32

	rings *Rings

	mapLayers   []quadtree.MapLayer
	worldLayers map[string]quadtree.WorldLayer

	tessellation quadtree.TessellateOptions

	surface, clouds, atmosphere *shell
	tileCount                   int
}

// WorldGeometry is an ellipsoidal planet or moon drawn as an adaptive quadtree. Optional layers
// are drawn over the surface in this order: map layers, world layers, the cloud shell and the
// atmosphere shell. Rings are drawn in the translucent pass.
type WorldGeometry interface {
	Geometry
	quadtree.World
	TileCounter

	// Material returns the surface material.
	//
	// Returns:
	//   - material.Material: the material
	Material() material.Material

	// AddMapLayer appends a map layer drawn over the surface.
	//
	// Parameters:
	//   - layer: the map layer
	AddMapLayer(layer quadtree.MapLayer)

	// SetWorldLayer adds or replaces the world layer registered under tag. A nil layer removes it.
	//
	// Parameters:
	//   - tag: the layer name
	//   - layer: the world layer
	SetWorldLayer(tag string, layer quadtree.WorldLayer)

	// WorldLayer returns the world layer registered under tag, or nil.
	//
	// Parameters:
	//   - tag: the layer name
	//
	// Returns:
	//   - quadtree.WorldLayer: the layer
	WorldLayer(tag string) quadtree.WorldLayer

	SetShadowCaster(castsShadows bool)
	SetShadowReceiver(receivesShadows bool)
}

var _ WorldGeometry = &worldGeometryImpl{}

// NewWorldGeometry creates a world with the given semi-axes and applies the options. Worlds
// cast and receive shadows by default.
//
// Parameters:
//   - semiAxes: the ellipsoid semi-axes in kilometers
//   - opts: variadic list of WorldBuilderOption functions
//
// Returns:
//   - WorldGeometry: the world
func NewWorldGeometry(semiAxes r3.Vec, opts ...WorldBuilderOption) WorldGeometry {
	w := &worldGeometryImpl{
		shadowFlags: shadowFlags{shadowCaster: true, shadowReceiver: true},
		semiAxes:    semiAxes,
		material:    material.NewMaterial(material.WithName("world")),
		worldLayers: make(map[string]quadtree.WorldLayer),
		surface:     newShell(),
		clouds:      newShell(),
		atmosphere:  newShell(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *worldGeometryImpl) SemiAxes() r3.Vec {
	return w.semiAxes
}

func (w *worldGeometryImpl) Material() material.Material {
	return w.material
}

func (w *worldGeometryImpl) TileCount() int {
	return w.tileCount
}

func (w *worldGeometryImpl) maxRadius() float64 {
	return common.MaxComponent(w.semiAxes)
}

func (w *worldGeometryImpl) hasClouds() bool {
	return w.cloudAltitude > 0 && (w.cloudMap != nil || w.cloudTexture != nil)
}

func (w *worldGeometryImpl) BoundingSphereRadius() float64 {
	height := w.atmosphereHeight
	if w.hasClouds() {
		height = max(height, w.cloudAltitude)
	}
	r := w.maxRadius() + height
	if w.rings != nil {
		r = max(r, w.rings.OuterRadius)
	}
	return r
}

// NearPlaneDistance protects the solid surface and the rings. Clouds and atmosphere may be clipped.
func (w *worldGeometryImpl) NearPlaneDistance(cameraPosition r3.Vec) float64 {
	near := r3.Norm(cameraPosition) - w.maxRadius()
	if w.rings == nil {
		return near
	}

	planeDistance := math.Abs(cameraPosition.Z)
	r := r3.Norm(r3.Vec{X: cameraPosition.X, Y: cameraPosition.Y})
	inPlane := w.rings.InnerRadius - r
	if r > w.rings.OuterRadius {
		inPlane = r - w.rings.OuterRadius
	}
	return min(near, max(1, max(planeDistance, inPlane)))
}

func (w *worldGeometryImpl) IsEllipsoidal() bool {
	return true
}

func (w *worldGeometryImpl) IsOpaque() bool {
	return w.rings == nil
}

func (w *worldGeometryImpl) AddMapLayer(layer quadtree.MapLayer) {
	if layer != nil {
		w.mapLayers = append(w.mapLayers, layer)
	}
}

func (w *worldGeometryImpl) SetWorldLayer(tag string, layer quadtree.WorldLayer) {
	if layer == nil {
		delete(w.worldLayers, tag)
		return
	}
	w.worldLayers[tag] = layer
}

func (w *worldGeometryImpl) WorldLayer(tag string) quadtree.WorldLayer {
	return w.worldLayers[tag]
}

// splitThreshold returns the apparent tile size above which surface tiles split. Small map tiles
// lower it so that texture detail is not wasted on coarse geometry.
func (w *worldGeometryImpl) splitThreshold(pixelSize float64) float64 {
	threshold := pixelSize * MaxTileSquareSize * quadtree.TileSubdivision
	if w.baseMap != nil {
		if size := w.baseMap.TileSize(); size != 0 && size < 1000 {
			threshold *= float64(max(minTiledMapTileSize, size)) / 1000
		}
	}
	return threshold
}

func (w *worldGeometryImpl) surfaceFeatures(rc renderer.RenderContext) quadtree.Features {
	switch {
	case w.emissive:
		return 0
	case w.normalMap != nil && rc.Capabilities().Shaders:
		return quadtree.NormalMap | quadtree.Normals
	default:
		return quadtree.Normals
	}
}

func (w *worldGeometryImpl) surfaceStrategy(rc renderer.RenderContext) *quadtree.RenderStrategy {
	features := w.surfaceFeatures(rc)
	s := &quadtree.RenderStrategy{
		Kind:     quadtree.RenderNoTexture,
		SemiAxes: w.semiAxes,
		Features: features,
		Material: w.material,
	}
	switch {
	case w.baseMap == nil:
	case w.normalMap == nil || features&quadtree.NormalMap == 0:
		s.Kind = quadtree.RenderTiledBase
		s.BaseMap = w.baseMap
	default:
		s.Kind = quadtree.RenderTiledBaseNormal
		s.BaseMap = w.baseMap
		s.NormalMap = w.normalMap
	}
	return s
}

func (w *worldGeometryImpl) Render(rc renderer.RenderContext, t float64) {
	if rc.Pass() == renderer.TranslucentPass {
		if w.rings != nil {
			w.renderRings(rc)
		}
		return
	}

	mv := rc.ModelView()
	eye := eyePosition(mv)
	frustum := rc.Projection().Frustum()
	pixelSize := rc.PixelSize()

	// The horizon is the farthest any visible surface point can be.
	far := max(frustum.NearZ, min(HorizonDistance(eye, w.semiAxes), frustum.FarZ))
	planes := localCullingPlanes(mv, frustum, frustum.NearZ, far)

	w.surface.tessellate(eye, &planes, w.semiAxes, w.splitThreshold(pixelSize), pixelSize, w.tessellation)
	w.tileCount = w.surface.alloc.Len()

	rc.BindMaterial(w.material)
	w.surface.render(rc, w.surfaceStrategy(rc))

	for _, layer := range w.mapLayers {
		w.surface.render(rc, &quadtree.RenderStrategy{
			Kind:     quadtree.RenderMapLayer,
			SemiAxes: w.semiAxes,
			Features: quadtree.Normals,
			Layer:    layer,
		})
	}

	tags := make([]string, 0, len(w.worldLayers))
	for tag := range w.worldLayers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		w.surface.render(rc, &quadtree.RenderStrategy{
			Kind:       quadtree.RenderWorldLayer,
			WorldLayer: w.worldLayers[tag],
			World:      w,
		})
	}

	if w.hasClouds() {
		w.renderClouds(rc, eye, frustum, planes)
	}
	if w.atmosphereHeight > 0 {
		w.renderAtmosphere(rc, eye, frustum, planes)
	}
}

func (w *worldGeometryImpl) renderClouds(rc renderer.RenderContext, eye r3.Vec, frustum common.Frustum, planes common.CullingPlaneSet) {
	scale := 1 + w.cloudAltitude/w.maxRadius()
	axes := r3.Scale(scale, w.semiAxes)

	far := max(frustum.NearZ, min(ShellDistance(eye, w.semiAxes, w.cloudAltitude), frustum.FarZ))
	planes.Planes[common.FrustumFar] = localCullingPlanes(rc.ModelView(), frustum, frustum.NearZ, far).Planes[common.FrustumFar]

	// From below the clouds only their inside faces the eye.
	if r3.Norm(common.DivElem(eye, axes)) < 1 {
		rc.SetCullMode(renderer.CullFront)
	}
	defer rc.SetCullMode(renderer.CullBack)

	pixelSize := rc.PixelSize()
	w.clouds.tessellate(eye, &planes, axes, pixelSize*MaxTileSquareSize*quadtree.TileSubdivision, pixelSize, w.tessellation)
	w.tileCount += w.clouds.alloc.Len()

	opts := []material.MaterialBuilderOption{
		material.WithName("clouds"),
		material.WithDiffuse([3]float32{1, 1, 1}),
		material.WithBlendMode(material.AlphaBlend),
	}
	s := &quadtree.RenderStrategy{Kind: quadtree.RenderNoTexture, SemiAxes: axes, Features: quadtree.Normals}
	if w.cloudMap != nil {
		s.Kind = quadtree.RenderTiledBase
		s.BaseMap = w.cloudMap
	} else {
		// Until the cloud texture is resident the shell is left out rather than drawn opaque.
		if !material.RequestResident(w.cloudTexture) {
			return
		}
		opts = append(opts, material.WithBaseTexture(w.cloudTexture))
	}
	s.Material = material.NewMaterial(opts...)
	rc.BindMaterial(s.Material)
	w.clouds.render(rc, s)
}

func (w *worldGeometryImpl) renderAtmosphere(rc renderer.RenderContext, eye r3.Vec, frustum common.Frustum, planes common.CullingPlaneSet) {
	scale := 1 + w.atmosphereHeight/w.maxRadius()
	axes := r3.Scale(scale, w.semiAxes)

	far := max(frustum.NearZ, min(atmosphereDistance(eye, w.semiAxes, w.atmosphereHeight), frustum.FarZ))
	planes.Planes[common.FrustumFar] = localCullingPlanes(rc.ModelView(), frustum, frustum.NearZ, far).Planes[common.FrustumFar]

	// Only the back of the shell is drawn.
	rc.SetCullMode(renderer.CullFront)
	defer rc.SetCullMode(renderer.CullBack)

	pixelSize := rc.PixelSize()
	w.atmosphere.tessellate(eye, &planes, axes, pixelSize*MaxTileSquareSize*quadtree.TileSubdivision*2, pixelSize, w.tessellation)
	w.tileCount += w.atmosphere.alloc.Len()

	m := material.NewMaterial(
		material.WithName("atmosphere"),
		material.WithDiffuse(w.atmosphereColor),
		material.WithOpacity(0),
		material.WithBlendMode(material.PremultipliedAlphaBlend),
	)
	rc.BindMaterial(m)
	w.atmosphere.render(rc, &quadtree.RenderStrategy{Kind: quadtree.RenderNoTexture, SemiAxes: axes, Features: quadtree.Normals, Material: m})
}

// atmosphereDistance returns the distance to the far side of the atmosphere shell: the planet
// horizon plus the tangent run from the horizon to the shell. Nothing is drawn from inside the planet.
func atmosphereDistance(eye, semiAxes r3.Vec, height float64) float64 {
	horizon := HorizonDistance(eye, semiAxes)
	if horizon == 0 {
		return 0
	}
	planetRadius := common.MaxComponent(semiAxes)
	shellRadius := planetRadius + height
	return horizon + math.Sqrt(max(0, shellRadius*shellRadius-planetRadius*planetRadius))
}

// RenderShadow draws the bare surface. Worlds are ellipsoidal, so the renderer only asks for
// this when drawing them into cube maps.
func (w *worldGeometryImpl) RenderShadow(rc renderer.RenderContext, t float64) {
	mv := rc.ModelView()
	eye := eyePosition(mv)
	frustum := rc.Projection().Frustum()
	planes := localCullingPlanes(mv, frustum, frustum.NearZ, frustum.FarZ)
	pixelSize := rc.PixelSize()

	w.surface.tessellate(eye, &planes, w.semiAxes, w.splitThreshold(pixelSize), pixelSize, w.tessellation)
	w.surface.render(rc, &quadtree.RenderStrategy{Kind: quadtree.RenderNoTexture, SemiAxes: w.semiAxes, Features: quadtree.Normals})
}
