package universe

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	testWidth  = 640
	testHeight = 480
	testFovY   = 0.8
)

// fakeGeometry draws a single triangle named after the geometry in the pass matching its
// opacity and counts the calls it receives.
type fakeGeometry struct {
	name        string
	radius      float64
	policy      geometry.ClippingPolicy
	caster      bool
	receiver    bool
	ellipsoid   bool
	translucent bool

	renders int
	shadows int
}

func (g *fakeGeometry) BoundingSphereRadius() float64           { return g.radius }
func (g *fakeGeometry) ClippingPolicy() geometry.ClippingPolicy { return g.policy }
func (g *fakeGeometry) IsShadowCaster() bool                    { return g.caster }
func (g *fakeGeometry) IsShadowReceiver() bool                  { return g.receiver }
func (g *fakeGeometry) IsEllipsoidal() bool                     { return g.ellipsoid }
func (g *fakeGeometry) IsOpaque() bool                          { return !g.translucent }

func (g *fakeGeometry) NearPlaneDistance(cameraPosition r3.Vec) float64 {
	return r3.Norm(cameraPosition) - g.radius
}

func (g *fakeGeometry) Render(rc renderer.RenderContext, t float64) {
	if (rc.Pass() == renderer.TranslucentPass) != g.translucent {
		return
	}
	g.renders++
	g.draw(rc)
}

func (g *fakeGeometry) RenderShadow(rc renderer.RenderContext, t float64) {
	g.shadows++
	g.draw(rc)
}

func (g *fakeGeometry) draw(rc renderer.RenderContext) {
	r := float32(g.radius)
	rc.BindMaterial(material.NewMaterial(material.WithName(g.name)))
	rc.BindVertexArray(renderer.Position, []float32{-r, -r, 0, r, -r, 0, 0, r, 0})
	rc.DrawPrimitives(renderer.Triangles, nil)
}

type fakeSky struct {
	order   int
	visible bool
	renders int
}

func (s *fakeSky) IsVisible() bool { return s.visible }
func (s *fakeSky) DrawOrder() int  { return s.order }

func (s *fakeSky) Render(rc renderer.RenderContext) {
	s.renders++
	rc.BindMaterial(material.NewMaterial(material.WithName("sky")))
	rc.BindVertexArray(renderer.Position, []float32{-1, -1, -1, 1, -1, -1, 0, 1, -1})
	rc.DrawPrimitives(renderer.Triangles, nil)
}

type fakeUniverse struct {
	entities []Entity
	lights   []LightSourceItem
	sky      []geometry.SkyLayer
}

func (u *fakeUniverse) VisibleEntities(t float64) []Entity       { return u.entities }
func (u *fakeUniverse) LightSources(t float64) []LightSourceItem { return u.lights }
func (u *fakeUniverse) SkyLayers() []geometry.SkyLayer           { return u.sky }

type fixedObserver struct {
	position    r3.Vec
	orientation quat.Number
}

func (o fixedObserver) Position() r3.Vec         { return o.position }
func (o fixedObserver) Orientation() quat.Number { return o.orientation }

// cameraAt is an observer looking down -z.
func cameraAt(p r3.Vec) Observer {
	return fixedObserver{position: p, orientation: common.QuatIdentity}
}

func entity(name string, p r3.Vec, g geometry.Geometry) Entity {
	return Entity{Name: name, Position: p, Orientation: common.QuatIdentity, Geometry: g}
}

func newTestRenderer(t *testing.T, caps *renderer.Capabilities, opts ...RendererBuilderOption) (Renderer, renderer.RenderContext, *renderer.RecordingBackend) {
	t.Helper()
	b := renderer.NewRecordingBackend()
	if caps != nil {
		b.SetCapabilities(*caps)
	}
	rc := renderer.NewRenderContext(b)
	rc.SetViewport(testWidth, testHeight)
	r := NewRenderer(opts...)
	require.True(t, r.InitializeGraphics(rc))
	return r, rc, b
}

// renderFrame draws one view set with a single view inside one frame.
func renderFrame(t *testing.T, r Renderer, rc renderer.RenderContext, u Universe, o Observer) {
	t.Helper()
	require.NoError(t, rc.BeginFrame())
	require.Equal(t, RenderOk, r.BeginViewSet(u, 0))
	require.Equal(t, RenderOk, r.RenderView(o, testFovY, testWidth, testHeight))
	require.Equal(t, RenderOk, r.EndViewSet())
	rc.EndFrame()
}

func drawsNamed(draws []renderer.DrawCommand, name string) []renderer.DrawCommand {
	var out []renderer.DrawCommand
	for _, d := range draws {
		if d.Material != nil && d.Material.Name() == name {
			out = append(out, d)
		}
	}
	return out
}

func TestRenderStatus(t *testing.T) {
	t.Run("RenderStatus: operations are sequenced by view sets", func(t *testing.T) {
		r := NewRenderer()
		u := &fakeUniverse{}
		require.Equal(t, RendererUninitialized, r.BeginViewSet(u, 0))
		require.False(t, r.InitializeGraphics(nil))

		b := renderer.NewRecordingBackend()
		rc := renderer.NewRenderContext(b)
		require.True(t, r.InitializeGraphics(rc))
		require.NoError(t, rc.BeginFrame())

		require.Equal(t, RenderNoViewSet, r.RenderView(cameraAt(r3.Vec{}), testFovY, testWidth, testHeight))
		require.Equal(t, RenderNoViewSet, r.RenderLightGlare(nil))
		require.Equal(t, RenderNoViewSet, r.RenderCubeMap(r3.Vec{}, &renderer.CubeMap{Size: 8}, 1, 10))
		require.Equal(t, RenderNoViewSet, r.EndViewSet())

		require.Equal(t, RendererBadParameter, r.BeginViewSet(nil, 0))
		require.Equal(t, RenderOk, r.BeginViewSet(u, 0))
		require.Equal(t, RenderViewSetAlreadyStarted, r.BeginViewSet(u, 0))
		require.Equal(t, RendererBadParameter, r.RenderView(nil, testFovY, testWidth, testHeight))
		require.Equal(t, RendererBadParameter, r.RenderView(cameraAt(r3.Vec{}), testFovY, 0, testHeight))
		require.Equal(t, RendererBadParameter, r.RenderCubeMap(r3.Vec{}, nil, 1, 10))
		require.Equal(t, RenderOk, r.RenderView(cameraAt(r3.Vec{}), testFovY, testWidth, testHeight))
		require.Equal(t, RenderOk, r.RenderLightGlare(nil))
		require.Equal(t, RenderOk, r.EndViewSet())
		require.Equal(t, RenderNoViewSet, r.EndViewSet())
		rc.EndFrame()
	})

	t.Run("RenderStatus: names and errors", func(t *testing.T) {
		require.Equal(t, "view_set_already_started", RenderViewSetAlreadyStarted.String())
		require.Equal(t, "unknown", RenderStatus(99).String())
		require.NoError(t, RenderOk.Err())
		require.Error(t, RenderNoViewSet.Err())
	})
}

func TestRenderView(t *testing.T) {
	t.Run("RenderView: distant objects get separate depth spans", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil, WithDefaultSun(nil))
		u := &fakeUniverse{}
		for i, d := range []float64{10, 1e6, 1e10} {
			g := &fakeGeometry{name: []string{"near", "middle", "far"}[i], radius: d * 0.01}
			u.entities = append(u.entities, entity(g.name, r3.Vec{Z: -d}, g))
		}
		renderFrame(t, r, rc, u, cameraAt(r3.Vec{}))

		stats := r.Stats()
		require.Equal(t, 3, stats.VisibleItems)
		require.Equal(t, 3, stats.RenderedSpans)
		require.GreaterOrEqual(t, len(populated(r.Spans())), 3)

		draws := b.Draws()
		require.Len(t, draws, 3)
		// Spans are drawn far to near, each into its own slice of the depth range.
		require.Equal(t, "far", draws[0].Material.Name())
		require.Equal(t, "near", draws[2].Material.Name())
		ranges := map[[2]float32]bool{}
		for _, d := range draws {
			ranges[d.DepthRange] = true
			require.Less(t, d.DepthRange[0], d.DepthRange[1])
		}
		require.Len(t, ranges, 3)
		require.Greater(t, draws[0].DepthRange[0], draws[2].DepthRange[0])

		require.Equal(t, renderer.FrontFaceCCW, rc.FrontFace())
		near, far := rc.DepthRange()
		require.Equal(t, [2]float32{0, 1}, [2]float32{near, far})
	})

	t.Run("RenderView: tiny and behind objects are culled", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil, WithDefaultSun(nil))
		tiny := &fakeGeometry{name: "tiny", radius: 1e-6}
		behind := &fakeGeometry{name: "behind", radius: 1}
		visible := &fakeGeometry{name: "visible", radius: 1}
		u := &fakeUniverse{entities: []Entity{
			entity("tiny", r3.Vec{Z: -1000}, tiny),
			entity("behind", r3.Vec{Z: 50}, behind),
			entity("visible", r3.Vec{Z: -50}, visible),
			{Name: "empty", Position: r3.Vec{Z: -10}},
		}}
		renderFrame(t, r, rc, u, cameraAt(r3.Vec{}))

		require.Equal(t, 1, r.Stats().VisibleItems)
		require.Zero(t, tiny.renders)
		require.Zero(t, behind.renders)
		require.Len(t, drawsNamed(b.Draws(), "visible"), 1)
	})

	t.Run("RenderView: size culling follows the configured threshold", func(t *testing.T) {
		// 1 km at 1e5 km is about 5.7 pixels on this viewport.
		g := &fakeGeometry{name: "moon", radius: 1}
		u := &fakeUniverse{entities: []Entity{entity("moon", r3.Vec{Z: -1e5}, g)}}

		r, rc, _ := newTestRenderer(t, nil, WithDefaultSun(nil), WithSizeCullPixels(10))
		renderFrame(t, r, rc, u, cameraAt(r3.Vec{}))
		require.Zero(t, r.Stats().VisibleItems)

		r.SetSizeCullPixels(1)
		renderFrame(t, r, rc, u, cameraAt(r3.Vec{}))
		require.Equal(t, 1, r.Stats().VisibleItems)
	})

	t.Run("RenderView: translucent items draw after opaque ones in a span", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil, WithDefaultSun(nil))
		glass := &fakeGeometry{name: "glass", radius: 1, translucent: true}
		rock := &fakeGeometry{name: "rock", radius: 1}
		u := &fakeUniverse{entities: []Entity{
			entity("glass", r3.Vec{Z: -20}, glass),
			entity("rock", r3.Vec{Z: -21}, rock),
		}}
		renderFrame(t, r, rc, u, cameraAt(r3.Vec{}))

		draws := b.Draws()
		require.Len(t, draws, 2)
		require.Equal(t, "rock", draws[0].Material.Name())
		require.Equal(t, "glass", draws[1].Material.Name())
		require.Equal(t, 1, glass.renders)
	})

	t.Run("RenderView: splittable items are drawn into every span they cross", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil, WithDefaultSun(nil))
		orbit := &fakeGeometry{name: "orbit", radius: 100, policy: geometry.SplitToPreventClipping, translucent: true}
		u := &fakeUniverse{entities: []Entity{entity("orbit", r3.Vec{Z: -50}, orbit)}}
		renderFrame(t, r, rc, u, cameraAt(r3.Vec{}))

		stats := r.Stats()
		require.Zero(t, stats.VisibleItems)
		require.Equal(t, 1, stats.SplittableItems)
		require.Greater(t, stats.Spans, 2)

		draws := drawsNamed(b.Draws(), "orbit")
		require.Greater(t, len(draws), 1)
		require.Equal(t, len(draws), orbit.renders)
		for i := 1; i < len(draws); i++ {
			require.NotEqual(t, draws[i-1].DepthRange, draws[i].DepthRange)
		}
	})

	t.Run("RenderView: sky layers draw first without depth", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil, WithDefaultSun(nil))
		stars := &fakeSky{order: 1, visible: true}
		milkyWay := &fakeSky{order: 0, visible: true}
		hidden := &fakeSky{order: 2}
		rock := &fakeGeometry{name: "rock", radius: 1}
		u := &fakeUniverse{
			entities: []Entity{entity("rock", r3.Vec{Z: -10}, rock)},
			sky:      []geometry.SkyLayer{stars, milkyWay, hidden},
		}
		renderFrame(t, r, rc, u, cameraAt(r3.Vec{}))

		draws := b.Draws()
		require.Len(t, draws, 3)
		require.Equal(t, "sky", draws[0].Material.Name())
		require.False(t, draws[0].Pipeline.DepthTest)
		require.False(t, draws[0].Pipeline.DepthWrite)
		require.Equal(t, "rock", draws[2].Material.Name())
		require.True(t, draws[2].Pipeline.DepthTest)
		require.Zero(t, hidden.renders)
		require.Equal(t, 1, stars.renders)
	})

	t.Run("RenderView: left-handed projections flip the front face for the view", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil, WithDefaultSun(nil))
		rock := &fakeGeometry{name: "rock", radius: 1}
		u := &fakeUniverse{entities: []Entity{entity("rock", r3.Vec{Z: -10}, rock)}}

		require.NoError(t, rc.BeginFrame())
		require.Equal(t, RenderOk, r.BeginViewSet(u, 0))
		projection := common.NewPerspectiveLH(math.Pi/2, 1, 0.01, 1000)
		require.Equal(t, RenderOk, r.RenderViewWithProjection(r3.Vec{}, common.QuatIdentity, projection, 256, 256))
		require.Equal(t, RenderOk, r.EndViewSet())
		rc.EndFrame()

		draws := b.Draws()
		require.Len(t, draws, 1)
		require.Equal(t, renderer.FrontFaceCW, draws[0].Pipeline.FrontFace)
		require.Equal(t, renderer.FrontFaceCCW, rc.FrontFace())
	})
}

func TestVisibleLights(t *testing.T) {
	t.Run("VisibleLights: suns come first, then shadow casting point lights", func(t *testing.T) {
		r, rc, _ := newTestRenderer(t, nil)
		plain := light.NewLightSource(light.PointLight, light.WithRange(100))
		caster := light.NewLightSource(light.PointLight, light.WithRange(100), light.WithShadowCaster(true))
		faint := light.NewLightSource(light.PointLight, light.WithRange(1e-3))
		u := &fakeUniverse{lights: []LightSourceItem{
			{Light: plain, Position: r3.Vec{Z: 1e6 - 20}},
			{Light: caster, Position: r3.Vec{Z: 1e6 - 30}},
			{Light: faint, Position: r3.Vec{Z: 1e6 - 1e5}},
		}}
		renderFrame(t, r, rc, u, cameraAt(r3.Vec{Z: 1e6}))

		lights := r.VisibleLights()
		require.Len(t, lights, 3)
		require.Equal(t, light.Sun, lights[0].Light.Type())
		require.Equal(t, light.SolarRadius, lights[0].Radius)
		require.Same(t, caster, lights[1].Light)
		require.Same(t, plain, lights[2].Light)
		require.InDelta(t, -30, lights[1].CameraSpacePosition.Z, 1e-9)
	})

	t.Run("VisibleLights: point lights reach only items in range", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil, WithDefaultSun(nil))
		lamp := light.NewLightSource(light.PointLight, light.WithRange(10))
		nearRock := &fakeGeometry{name: "near", radius: 1}
		farRock := &fakeGeometry{name: "far", radius: 1}
		u := &fakeUniverse{
			entities: []Entity{
				entity("near", r3.Vec{Z: -20}, nearRock),
				entity("far", r3.Vec{Z: -60}, farRock),
			},
			lights: []LightSourceItem{{Light: lamp, Position: r3.Vec{Z: -25}}},
		}
		renderFrame(t, r, rc, u, cameraAt(r3.Vec{}))

		near := drawsNamed(b.Draws(), "near")
		require.Len(t, near, 1)
		require.Len(t, near[0].Lights, 1)
		require.Equal(t, renderer.PointLight, near[0].Lights[0].Type)
		require.Equal(t, light.Attenuation(10), near[0].Lights[0].Attenuation)

		far := drawsNamed(b.Draws(), "far")
		require.Len(t, far, 1)
		require.Empty(t, far[0].Lights)
	})

	t.Run("VisibleLights: the default sun lights items as a directional light", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil)
		rock := &fakeGeometry{name: "rock", radius: 1}
		u := &fakeUniverse{entities: []Entity{entity("rock", r3.Vec{X: 1.5e8 - 10}, rock)}}
		o := fixedObserver{position: r3.Vec{X: 1.5e8}, orientation: common.AxisAngle(r3.Vec{Y: 1}, math.Pi/2)}
		renderFrame(t, r, rc, u, o)

		draws := drawsNamed(b.Draws(), "rock")
		require.Len(t, draws, 1)
		require.Len(t, draws[0].Lights, 1)
		require.Equal(t, renderer.DirectionalLight, draws[0].Lights[0].Type)
		require.Equal(t, float32(1), draws[0].Lights[0].Attenuation)
	})
}

func TestRenderCubeMap(t *testing.T) {
	r, rc, b := newTestRenderer(t, nil, WithDefaultSun(nil))
	rock := &fakeGeometry{name: "rock", radius: 1}
	u := &fakeUniverse{entities: []Entity{entity("rock", r3.Vec{X: 10}, rock)}}
	cm := rc.CreateCubeMap(32, renderer.CubeMapColor)
	require.NotNil(t, cm)

	require.NoError(t, rc.BeginFrame())
	require.Equal(t, RenderOk, r.BeginViewSet(u, 0))
	require.Equal(t, RenderOk, r.RenderCubeMap(r3.Vec{}, cm, 0.1, 1000))
	require.Equal(t, RenderOk, r.EndViewSet())
	rc.EndFrame()

	faces := b.PassesOfKind(renderer.CubeFacePass)
	require.Len(t, faces, 6)
	drawn := 0
	for i, f := range faces {
		require.Equal(t, i, f.Target.Face)
		require.Same(t, cm, f.Target.CubeMap)
		drawn += len(f.Draws)
	}
	// The rock sits on the +X axis and only the +X face sees it.
	require.Equal(t, 1, drawn)
	require.Len(t, faces[0].Draws, 1)

	w, h := rc.Viewport()
	require.Equal(t, [2]int{testWidth, testHeight}, [2]int{w, h})
}

// renderGlareFrame draws one view from the camera followed by the light glare.
func renderGlareFrame(t *testing.T, r Renderer, rc renderer.RenderContext, u Universe, glare GlareOverlay) {
	t.Helper()
	require.NoError(t, rc.BeginFrame())
	require.Equal(t, RenderOk, r.BeginViewSet(u, 0))
	require.Equal(t, RenderOk, r.RenderView(cameraAt(r3.Vec{Z: 1e8}), testFovY, testWidth, testHeight))
	require.Equal(t, RenderOk, r.RenderLightGlare(glare))
	require.Equal(t, RenderOk, r.EndViewSet())
	rc.EndFrame()
}

func TestRenderLightGlare(t *testing.T) {
	// A body around the sun keeps a depth span at the glare position.
	backdrop := &fakeGeometry{name: "backdrop", radius: 1e6}
	u := &fakeUniverse{entities: []Entity{entity("backdrop", r3.Vec{}, backdrop)}}

	t.Run("RenderLightGlare: visible sun fades in", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil)
		glare := NewGlareSprite(nil)

		renderGlareFrame(t, r, rc, u, glare)
		// The first query reports after the frame ends.
		require.Empty(t, drawsNamed(b.Draws(), "glare"))
		tests := drawsNamed(b.Draws(), "glare occlusion test")
		require.Len(t, tests, 1)
		require.NotNil(t, tests[0].OcclusionQuery)
		require.True(t, tests[0].Pipeline.DepthTest)
		require.False(t, tests[0].Pipeline.DepthWrite)
		require.Zero(t, tests[0].Material.Opacity())

		renderGlareFrame(t, r, rc, u, glare)
		draws := drawsNamed(b.Draws(), "glare")
		require.Len(t, draws, 1)
		require.Equal(t, material.AdditiveBlend, draws[0].Pipeline.Blend)
		require.False(t, draws[0].Pipeline.DepthTest)
		require.Equal(t, [2]float32{0, 1}, draws[0].DepthRange)
		require.InDelta(t, DefaultGlareAdaptationRate, draws[0].Material.Opacity(), 1e-6)
		require.Nil(t, draws[0].OcclusionQuery)

		for range 10 {
			renderGlareFrame(t, r, rc, u, glare)
		}
		sun := r.VisibleLights()[0].Light
		require.InDelta(t, 1, glare.Brightness(sun), 1e-9)
		draws = drawsNamed(b.Draws(), "glare")
		require.Len(t, draws, 1)
		require.InDelta(t, 1, draws[0].Material.Opacity(), 1e-6)
	})

	t.Run("RenderLightGlare: sun hidden behind a box draws no glare", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil)
		box := &fakeGeometry{name: "box", radius: 2e6}
		covered := &fakeUniverse{entities: []Entity{
			entity("backdrop", r3.Vec{}, backdrop),
			entity("box", r3.Vec{Z: 5e6}, box),
		}}
		glare := NewGlareSprite(nil)
		b.SetOcclusionSamples(0)

		for range 5 {
			renderGlareFrame(t, r, rc, covered, glare)
			require.Empty(t, drawsNamed(b.Draws(), "glare"))
			require.Len(t, drawsNamed(b.Draws(), "glare occlusion test"), 1)
		}
		require.Zero(t, glare.Brightness(r.VisibleLights()[0].Light))
	})

	t.Run("RenderLightGlare: glare fades out once the sun is covered", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil)
		glare := NewGlareSprite(nil)
		for range 4 {
			renderGlareFrame(t, r, rc, u, glare)
		}
		sun := r.VisibleLights()[0].Light
		require.InDelta(t, 3*DefaultGlareAdaptationRate, glare.Brightness(sun), 1e-9)

		b.SetOcclusionSamples(0)
		// The query issued before the switch still counts the sun as visible, so brightness
		// rises once more before falling.
		renderGlareFrame(t, r, rc, u, glare)
		renderGlareFrame(t, r, rc, u, glare)
		require.InDelta(t, 3*DefaultGlareAdaptationRate, glare.Brightness(sun), 1e-9)

		for range 5 {
			renderGlareFrame(t, r, rc, u, glare)
		}
		require.Zero(t, glare.Brightness(sun))
		require.Empty(t, drawsNamed(b.Draws(), "glare"))
	})

	t.Run("RenderLightGlare: no occlusion queries means no glare", func(t *testing.T) {
		caps := renderer.Capabilities{Shaders: true, Framebuffers: true, MaxTextureSize: 4096}
		r, rc, b := newTestRenderer(t, &caps)
		glare := NewGlareSprite(nil)
		for range 3 {
			renderGlareFrame(t, r, rc, u, glare)
			require.Empty(t, drawsNamed(b.Draws(), "glare"))
			require.Empty(t, drawsNamed(b.Draws(), "glare occlusion test"))
		}
	})

	t.Run("RenderLightGlare: nil overlay is ignored", func(t *testing.T) {
		r, rc, b := newTestRenderer(t, nil)
		renderGlareFrame(t, r, rc, u, nil)
		require.Empty(t, drawsNamed(b.Draws(), "glare"))
	})
}
