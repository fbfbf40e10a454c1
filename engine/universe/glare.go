package universe

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// glareDiskScale is the glare sprite radius as a multiple of the light's radius.
	glareDiskScale = 4.0

	// minGlarePixels is the smallest glare sprite radius on screen.
	minGlarePixels = 12.0

	// minOcclusionTestPixels keeps the occlusion test disk large enough to rasterize a sample.
	minOcclusionTestPixels = 1.5

	occlusionTestSlices = 30

	// DefaultGlareAdaptationRate is the largest change of glare brightness per frame.
	DefaultGlareAdaptationRate = 0.15

	// maxOcclusionQueries bounds the queries a GlareSprite keeps in flight.
	maxOcclusionQueries = 8
)

// glareItem is the visibility state of one light's glare.
type glareItem struct {
	query      *renderer.OcclusionQuery
	expected   float64 // samples the test disk covers when nothing hides it
	brightness float64
	tracked    bool
}

// GlareSprite is a GlareOverlay drawing an additive camera-facing quad over each sun. Visibility
// comes from occlusion queries: a small disk is drawn at the glare position inside the span that
// holds it, and the fraction of its samples passing the depth test is the target brightness.
// Results arrive a frame or more late, so brightness moves toward the target by at most
// AdaptationRate per result and glare fades instead of flashing. Without occlusion queries no
// glare is drawn.
type GlareSprite struct {
	Texture        material.TextureRef
	Opacity        float32
	AdaptationRate float64

	items     map[light.LightSource]*glareItem
	free      []*renderer.OcclusionQuery
	allocated int
	verts     []float32
}

var _ GlareOverlay = &GlareSprite{}

// NewGlareSprite creates a GlareSprite drawing with the given texture. A nil texture draws a
// flat quad.
//
// Parameters:
//   - tex: the glare texture, may be nil
//
// Returns:
//   - *GlareSprite: the overlay
func NewGlareSprite(tex material.TextureRef) *GlareSprite {
	return &GlareSprite{
		Texture:        tex,
		Opacity:        1,
		AdaptationRate: DefaultGlareAdaptationRate,
		items:          make(map[light.LightSource]*glareItem),
	}
}

// Brightness returns the current glare brightness of l in [0, 1].
func (g *GlareSprite) Brightness(l light.LightSource) float64 {
	if item, ok := g.items[l]; ok {
		return item.brightness
	}
	return 0
}

func (g *GlareSprite) TrackGlare(rc renderer.RenderContext, l light.LightSource, position r3.Vec, radius float64) {
	if !rc.Capabilities().OcclusionQueries {
		return
	}
	frustum := rc.Projection().Frustum()
	if !frustum.Intersects(common.BoundingSphere{Center: position, Radius: radius}) {
		return
	}

	item := g.item(l)
	item.tracked = true
	g.adjustBrightness(rc, item)
	if item.query != nil {
		// The previous query has not reported yet.
		return
	}
	q := g.acquireQuery(rc)
	if q == nil {
		return
	}

	distance := r3.Norm(position)
	pixels := math.Max(radius/(distance*rc.PixelSize()), minOcclusionTestPixels)
	item.query = q
	item.expected = math.Pi * pixels * pixels

	rc.BeginOcclusionQuery(q)
	g.drawOcclusionTest(rc, position, pixels*rc.PixelSize()*distance)
	rc.EndOcclusionQuery()
}

func (g *GlareSprite) RenderGlare(rc renderer.RenderContext, l light.LightSource, position r3.Vec, radius float64) {
	item, ok := g.items[l]
	if !ok || !item.tracked {
		return
	}
	item.tracked = false
	g.adjustBrightness(rc, item)
	if item.brightness <= 0 {
		return
	}

	size := math.Max(radius*glareDiskScale, minGlarePixels*rc.PixelSize()*-position.Z)
	x, y, z := float32(position.X), float32(position.Y), float32(position.Z)
	s := float32(size)
	g.verts = append(g.verts[:0],
		x-s, y-s, z, 0, 1,
		x+s, y-s, z, 1, 1,
		x-s, y+s, z, 0, 0,
		x+s, y+s, z, 1, 0,
	)

	opts := []material.MaterialBuilderOption{
		material.WithName("glare"),
		material.WithDiffuse([3]float32(l.Spectrum())),
		material.WithOpacity(g.Opacity * float32(item.brightness)),
		material.WithEmissive(true),
		material.WithBlendMode(material.AdditiveBlend),
	}
	if material.RequestResident(g.Texture) {
		opts = append(opts, material.WithBaseTexture(g.Texture))
	}

	depthTest, depthWrite, cull := rc.DepthTest(), rc.DepthWrite(), rc.CullMode()
	rc.SetDepthTest(false)
	rc.SetDepthWrite(false)
	rc.SetCullMode(renderer.CullNone)
	rc.BindMaterial(material.NewMaterial(opts...))
	rc.BindVertexArray(renderer.PositionTex, g.verts)
	rc.DrawPrimitives(renderer.TriangleStrip, nil)
	rc.SetDepthTest(depthTest)
	rc.SetDepthWrite(depthWrite)
	rc.SetCullMode(cull)
}

func (g *GlareSprite) item(l light.LightSource) *glareItem {
	item, ok := g.items[l]
	if !ok {
		item = &glareItem{}
		g.items[l] = item
	}
	return item
}

// adjustBrightness folds a finished query into the item's brightness and recycles the query.
func (g *GlareSprite) adjustBrightness(rc renderer.RenderContext, item *glareItem) {
	if item.query == nil {
		return
	}
	samples, ok := rc.OcclusionResult(item.query)
	if !ok {
		return
	}
	g.free = append(g.free, item.query)
	item.query = nil

	visible := 0.0
	if item.expected > 0 {
		visible = math.Min(1, float64(samples)/item.expected)
	}
	step := common.Clamp(visible-item.brightness, -g.AdaptationRate, g.AdaptationRate)
	item.brightness = common.Clamp(item.brightness+step, 0, 1)
}

func (g *GlareSprite) acquireQuery(rc renderer.RenderContext) *renderer.OcclusionQuery {
	if n := len(g.free); n > 0 {
		q := g.free[n-1]
		g.free = g.free[:n-1]
		return q
	}
	if g.allocated >= maxOcclusionQueries {
		return nil
	}
	q := rc.CreateOcclusionQuery()
	if q != nil {
		g.allocated++
	}
	return q
}

// drawOcclusionTest draws an invisible depth tested disk facing the camera.
func (g *GlareSprite) drawOcclusionTest(rc renderer.RenderContext, position r3.Vec, radius float64) {
	g.verts = g.verts[:0]
	cx, cy, cz := float32(position.X), float32(position.Y), float32(position.Z)
	for j := 0; j < occlusionTestSlices; j++ {
		a0 := 2 * math.Pi * float64(j) / occlusionTestSlices
		a1 := 2 * math.Pi * float64(j+1) / occlusionTestSlices
		g.verts = append(g.verts,
			cx, cy, cz,
			cx+float32(radius*math.Cos(a0)), cy+float32(radius*math.Sin(a0)), cz,
			cx+float32(radius*math.Cos(a1)), cy+float32(radius*math.Sin(a1)), cz,
		)
	}

	depthTest, depthWrite, cull := rc.DepthTest(), rc.DepthWrite(), rc.CullMode()
	rc.SetDepthTest(true)
	rc.SetDepthWrite(false)
	rc.SetCullMode(renderer.CullNone)
	rc.BindMaterial(material.NewMaterial(
		material.WithName("glare occlusion test"),
		material.WithOpacity(0),
		material.WithEmissive(true),
		material.WithBlendMode(material.AdditiveBlend),
	))
	rc.BindVertexArray(renderer.Position, g.verts)
	rc.DrawPrimitives(renderer.Triangles, nil)
	rc.SetDepthTest(depthTest)
	rc.SetDepthWrite(depthWrite)
	rc.SetCullMode(cull)
}
