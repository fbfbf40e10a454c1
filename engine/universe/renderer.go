package universe

import (
	"math"
	"sort"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultSizeCullPixels is the projected size in pixels below which items are not drawn.
const DefaultSizeCullPixels = 0.5

// skyNear and skyFar bound the projection sky layers are drawn with.
const (
	skyNear = 0.1
	skyFar  = 1.0
)

// universeRendererImpl is the implementation of the Renderer interface.
type universeRendererImpl struct {
	rc renderer.RenderContext

	universe  Universe
	t         float64
	inViewSet bool
	lights    []LightSourceItem
	entities  []Entity

	defaultSun        light.LightSource
	defaultSunEnabled bool
	shadowsEnabled    bool
	skyLayersEnabled  bool
	sizeCullPixels    float64
	ambient           light.Spectrum

	shadowMaps     []*renderer.ShadowMap
	omniShadowMaps []*renderer.CubeMap

	// Per-view working state. The spans and lights of the last view stay valid until the view
	// set ends so RenderLightGlare can use them.
	lastProjection common.PlanarProjection
	viewFrustum    common.Frustum
	visible        []VisibleItem
	splittable     []VisibleItem
	rawSpans       []DepthBufferSpan
	spans          []DepthBufferSpan
	visibleLights  []VisibleLight
	lightStates    []renderer.LightState
	skyLayers      []geometry.SkyLayer
	stats          FrameStats
}

// Renderer draws a Universe from one or more observers. Each frame is a view set: BeginViewSet
// fixes the time and the light list, RenderView draws views, RenderLightGlare adds glare over
// the last view and EndViewSet closes the set.
//
// Rendering is driven from a single goroutine. Every operation must be called inside a frame
// opened on the render context.
type Renderer interface {
	// InitializeGraphics attaches the render context the renderer draws with.
	//
	// Parameters:
	//   - rc: the render context
	//
	// Returns:
	//   - bool: false if rc is nil
	InitializeGraphics(rc renderer.RenderContext) bool

	// InitializeShadowMaps creates the directional shadow maps.
	//
	// Parameters:
	//   - size: the width and height of each map in texels
	//   - count: the number of maps, clamped to renderer.MaxShadowMaps
	//
	// Returns:
	//   - bool: false if the backend cannot render to textures or a map could not be created
	InitializeShadowMaps(size, count int) bool

	// InitializeOmniShadowMaps creates the cube maps point light shadows are drawn into.
	//
	// Parameters:
	//   - size: the face size of each cube map in texels
	//   - count: the number of cube maps, clamped to renderer.MaxOmniShadowMaps
	//
	// Returns:
	//   - bool: false if the backend cannot render to textures or a cube map could not be created
	InitializeOmniShadowMaps(size, count int) bool

	// BeginViewSet starts a view set at time t.
	//
	// Parameters:
	//   - u: the universe to draw
	//   - t: the simulation time in seconds
	//
	// Returns:
	//   - RenderStatus: RendererUninitialized, RendererBadParameter for a nil universe,
	//     RenderViewSetAlreadyStarted inside a view set, otherwise RenderOk
	BeginViewSet(u Universe, t float64) RenderStatus

	// RenderView draws the universe as seen by the observer with a right-handed perspective
	// projection.
	//
	// Parameters:
	//   - observer: the camera
	//   - fovY: the vertical field of view in radians
	//   - width: the viewport width in pixels
	//   - height: the viewport height in pixels
	//
	// Returns:
	//   - RenderStatus: RenderNoViewSet outside a view set, RendererBadParameter for a nil
	//     observer or an empty viewport, otherwise RenderOk
	RenderView(observer Observer, fovY float64, width, height int) RenderStatus

	// RenderViewWithProjection draws the universe from a position and orientation with an
	// arbitrary projection. Left-handed projections flip the front face for the view.
	RenderViewWithProjection(position r3.Vec, orientation quat.Number, projection common.PlanarProjection, width, height int) RenderStatus

	// RenderLightGlare draws glare for the suns of the last view.
	//
	// Parameters:
	//   - overlay: the glare overlay, may be nil
	//
	// Returns:
	//   - RenderStatus: RenderNoViewSet outside a view set, otherwise RenderOk
	RenderLightGlare(overlay GlareOverlay) RenderStatus

	// RenderCubeMap draws the universe into the six faces of a cube map, for reflections.
	// Shadow passes are skipped while the faces are drawn.
	//
	// Parameters:
	//   - center: the heliocentric position the cube map is seen from
	//   - target: the cube map
	//   - near: the near distance of each face
	//   - far: the far distance of each face
	//
	// Returns:
	//   - RenderStatus: the first non-OK status of a face, otherwise RenderOk
	RenderCubeMap(center r3.Vec, target *renderer.CubeMap, near, far float64) RenderStatus

	// EndViewSet closes the active view set.
	//
	// Returns:
	//   - RenderStatus: RenderNoViewSet outside a view set, otherwise RenderOk
	EndViewSet() RenderStatus

	SetShadowsEnabled(enabled bool)
	ShadowsEnabled() bool
	SetAmbientLight(s light.Spectrum)
	SetDefaultSunEnabled(enabled bool)
	SetSizeCullPixels(pixels float64)

	// Stats returns the statistics of the most recent view.
	Stats() FrameStats

	// VisibleLights returns the culled and sorted lights of the most recent view.
	VisibleLights() []VisibleLight

	// Spans returns the depth spans of the most recent view, ordered far to near.
	Spans() []DepthBufferSpan
}

var _ Renderer = &universeRendererImpl{}

// NewRenderer creates a Renderer with the default Sun enabled, shadows disabled and the default
// size cull threshold, then applies the options.
//
// Parameters:
//   - opts: variadic list of RendererBuilderOption functions to configure the renderer
//
// Returns:
//   - Renderer: a new Renderer instance
func NewRenderer(opts ...RendererBuilderOption) Renderer {
	r := &universeRendererImpl{
		defaultSun:        light.NewLightSource(light.Sun),
		defaultSunEnabled: true,
		skyLayersEnabled:  true,
		sizeCullPixels:    DefaultSizeCullPixels,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *universeRendererImpl) InitializeGraphics(rc renderer.RenderContext) bool {
	if rc == nil {
		return false
	}
	r.rc = rc
	caps := rc.Capabilities()
	logs.WithTag("shaders", caps.Shaders).
		WithTag("framebuffers", caps.Framebuffers).
		Debug("universe renderer initialized")
	return true
}

func (r *universeRendererImpl) InitializeShadowMaps(size, count int) bool {
	if r.rc == nil || size <= 0 || !r.rc.Capabilities().Framebuffers {
		return false
	}
	count = common.Clamp(count, 0, renderer.MaxShadowMaps)

	maps := make([]*renderer.ShadowMap, 0, count)
	for range count {
		sm := r.rc.CreateShadowMap(size)
		if sm == nil {
			logs.WithTag("size", size).Warn("shadow map creation failed, directional shadows disabled")
			r.shadowMaps = nil
			return false
		}
		maps = append(maps, sm)
	}
	r.shadowMaps = maps
	return true
}

func (r *universeRendererImpl) InitializeOmniShadowMaps(size, count int) bool {
	if r.rc == nil || size <= 0 || !r.rc.Capabilities().Framebuffers {
		return false
	}
	count = common.Clamp(count, 0, renderer.MaxOmniShadowMaps)

	maps := make([]*renderer.CubeMap, 0, count)
	for range count {
		cm := r.rc.CreateCubeMap(size, renderer.CubeMapDistance)
		if cm == nil {
			logs.WithTag("size", size).Warn("cube map creation failed, point light shadows disabled")
			r.omniShadowMaps = nil
			return false
		}
		maps = append(maps, cm)
	}
	r.omniShadowMaps = maps
	return true
}

func (r *universeRendererImpl) BeginViewSet(u Universe, t float64) RenderStatus {
	if r.rc == nil {
		return instrumentStatus(RendererUninitialized)
	}
	if u == nil {
		return instrumentStatus(RendererBadParameter)
	}
	if r.inViewSet {
		return instrumentStatus(RenderViewSetAlreadyStarted)
	}

	r.universe = u
	r.t = t
	r.inViewSet = true

	r.lights = r.lights[:0]
	if r.defaultSunEnabled {
		r.lights = append(r.lights, LightSourceItem{Light: r.defaultSun, Radius: light.SolarRadius})
	}
	r.lights = append(r.lights, u.LightSources(t)...)
	r.entities = u.VisibleEntities(t)

	r.skyLayers = r.skyLayers[:0]
	if src, ok := u.(SkyLayerSource); ok && r.skyLayersEnabled {
		for _, l := range src.SkyLayers() {
			if l != nil && l.IsVisible() {
				r.skyLayers = append(r.skyLayers, l)
			}
		}
		sort.SliceStable(r.skyLayers, func(i, j int) bool {
			return r.skyLayers[i].DrawOrder() < r.skyLayers[j].DrawOrder()
		})
	}
	return instrumentStatus(RenderOk)
}

func (r *universeRendererImpl) EndViewSet() RenderStatus {
	if !r.inViewSet {
		return instrumentStatus(RenderNoViewSet)
	}
	r.inViewSet = false
	r.universe = nil
	r.entities = nil
	return instrumentStatus(RenderOk)
}

func (r *universeRendererImpl) RenderView(observer Observer, fovY float64, width, height int) RenderStatus {
	if !r.inViewSet {
		return instrumentStatus(RenderNoViewSet)
	}
	if observer == nil || width <= 0 || height <= 0 || fovY <= 0 || fovY >= math.Pi {
		return instrumentStatus(RendererBadParameter)
	}
	aspect := float64(width) / float64(height)
	projection := common.NewPerspective(fovY, aspect, MinimumNearPlaneDistance, MaximumFarPlaneDistance)
	return instrumentStatus(r.renderView(observer.Position(), observer.Orientation(), projection, width, height))
}

func (r *universeRendererImpl) RenderViewWithProjection(position r3.Vec, orientation quat.Number, projection common.PlanarProjection, width, height int) RenderStatus {
	if !r.inViewSet {
		return instrumentStatus(RenderNoViewSet)
	}
	return instrumentStatus(r.renderView(position, orientation, projection, width, height))
}

// renderView draws one view. Statuses are instrumented by the caller.
func (r *universeRendererImpl) renderView(position r3.Vec, orientation quat.Number, projection common.PlanarProjection, width, height int) RenderStatus {
	if width <= 0 || height <= 0 || projection.Far <= projection.Near {
		return RendererBadParameter
	}
	rc := r.rc
	r.stats = FrameStats{}
	r.lastProjection = projection

	if projection.IsLeftHanded() {
		rc.SetFrontFace(renderer.FrontFaceCW)
	}

	fovY := projection.FovY()
	rc.SetCameraOrientation(orientation)
	rc.SetPixelSize(2 * math.Tan(fovY/2) / float64(height))
	rc.SetViewport(width, height)

	toCamera := common.Conjugate(orientation)
	rc.PushProjection()
	rc.PushModelView()
	rc.RotateModelView(toCamera)

	r.renderSkyLayers(projection)

	rc.SetAmbientLight([3]float32(r.ambient))
	r.viewFrustum = projection.Frustum()
	r.buildVisibleLights(position, toCamera)
	r.buildVisibleItems(position, toCamera, projection)

	r.rawSpans = SplitDepthBuffer(r.visible, r.rawSpans)
	spans := CoalesceDepthBuffer(r.rawSpans)
	ExpandEmptySpans(spans)
	r.spans = AddSplittableSpans(spans, r.splittable, projection.Near, projection.Far)

	n := len(r.spans)
	for i, span := range r.spans {
		// spans[0] is the farthest and takes the back slice of the depth range.
		index := n - 1 - i
		rc.SetDepthRange(float32(index)/float32(n), float32(index+1)/float32(n))
		if r.renderDepthBufferSpan(span, projection) {
			r.stats.RenderedSpans++
		}
	}

	rc.PopModelView()
	rc.PopProjection()
	rc.SetShadowMapCount(0)
	rc.SetOmniShadowMapCount(0)
	rc.SetFrontFace(renderer.FrontFaceCCW)
	rc.SetDepthRange(0, 1)

	r.stats.RawSpans = len(r.rawSpans)
	r.stats.Spans = n
	r.stats.VisibleItems = len(r.visible)
	r.stats.SplittableItems = len(r.splittable)
	r.stats.VisibleLights = len(r.visibleLights)
	for i := range r.visible {
		if tc, ok := r.visible[i].Geometry.(geometry.TileCounter); ok {
			r.stats.Tiles += tc.TileCount()
		}
	}
	instrumentView(r.stats)
	return RenderOk
}

func (r *universeRendererImpl) renderSkyLayers(projection common.PlanarProjection) {
	if len(r.skyLayers) == 0 {
		return
	}
	rc := r.rc
	rc.SetProjection(projection.Slice(skyNear, skyFar))
	rc.SetDepthTest(false)
	rc.SetDepthWrite(false)
	for _, l := range r.skyLayers {
		l.Render(rc)
	}
	rc.SetDepthTest(true)
	rc.SetDepthWrite(true)
}

// buildVisibleLights culls the light list against the view and sorts it by shadow priority.
func (r *universeRendererImpl) buildVisibleLights(cameraPosition r3.Vec, toCamera quat.Number) {
	pixelSize := r.rc.PixelSize()
	r.visibleLights = r.visibleLights[:0]
	for _, item := range r.lights {
		if item.Light == nil {
			continue
		}
		relative := r3.Sub(item.Position, cameraPosition)
		cameraSpace := common.Rotate(toCamera, relative)

		if item.Light.Type() != light.Sun {
			lightRange := item.Light.Range()
			distance := r3.Norm(relative)
			if distance > 0 && (lightRange/distance)/pixelSize < 1 {
				continue
			}
			if !r.viewFrustum.Intersects(common.BoundingSphere{Center: cameraSpace, Radius: lightRange}) {
				continue
			}
		}
		r.visibleLights = append(r.visibleLights, VisibleLight{
			LightSourceItem:        item,
			CameraRelativePosition: relative,
			CameraSpacePosition:    cameraSpace,
		})
	}
	sort.SliceStable(r.visibleLights, func(i, j int) bool {
		return light.Priority(r.visibleLights[i].Light) > light.Priority(r.visibleLights[j].Light)
	})
}

// buildVisibleItems size culls the entities and computes the depth extent of the survivors.
func (r *universeRendererImpl) buildVisibleItems(cameraPosition r3.Vec, toCamera quat.Number, projection common.PlanarProjection) {
	pixelSize := r.rc.PixelSize()
	fovY := projection.FovY()
	aspect := projection.AspectRatio()
	// Near distances are measured along the view axis; the frustum corners reach farther out.
	nearAdjust := math.Cos(fovY/2) / math.Sqrt(1+aspect*aspect)

	r.visible = r.visible[:0]
	r.splittable = r.splittable[:0]
	for _, e := range r.entities {
		g := e.Geometry
		if g == nil {
			continue
		}
		radius := g.BoundingSphereRadius()
		relative := r3.Sub(e.Position, cameraPosition)
		distance := r3.Norm(relative)
		if distance > radius && (radius/distance)/pixelSize < r.sizeCullPixels {
			continue
		}

		cameraSpace := common.Rotate(toCamera, relative)
		item := VisibleItem{
			Geometry:               g,
			Position:               e.Position,
			CameraRelativePosition: relative,
			Orientation:            e.Orientation,
			BoundingRadius:         radius,
			FarDistance:            -cameraSpace.Z + radius,
		}

		local := common.Rotate(common.Conjugate(e.Orientation), r3.Scale(-1, relative))
		near := g.NearPlaneDistance(local)
		if g.ClippingPolicy() == geometry.PreserveDepthPrecision {
			near = math.Max(near, radius*MinimumNearFarRatio*2)
		} else {
			near = math.Max(near, MinimumNearPlaneDistance)
		}
		item.NearDistance = near * nearAdjust
		item.OutsideFrustum = !r.viewFrustum.Intersects(common.BoundingSphere{Center: cameraSpace, Radius: radius})

		if item.FarDistance <= 0 || item.NearDistance >= item.FarDistance {
			continue
		}
		if g.ClippingPolicy() == geometry.SplitToPreventClipping {
			r.splittable = append(r.splittable, item)
		} else {
			r.visible = append(r.visible, item)
		}
	}
	sortByFarDistance(r.visible)
	sortByFarDistance(r.splittable)
}

// renderDepthBufferSpan draws every item of a span, and every splittable item overlapping it,
// with the span's near and far planes.
//
// Returns:
//   - bool: false if the span was skipped
func (r *universeRendererImpl) renderDepthBufferSpan(span DepthBufferSpan, projection common.PlanarProjection) bool {
	if span.IsEmpty() && len(r.splittable) == 0 {
		return false
	}
	near := math.Max(span.NearDistance, projection.Near)
	far := math.Min(span.FarDistance, projection.Far)
	if far <= near {
		return false
	}

	rc := r.rc
	rc.SetShadowMapCount(0)
	rc.SetOmniShadowMapCount(0)

	shadowsOn := false
	omniCount := 0
	if r.shadowsEnabled && len(r.visibleLights) > 0 && !span.IsEmpty() {
		if r.visibleLights[0].Light.Type() == light.Sun {
			shadowsOn = r.renderSpanShadows(span, r.visibleLights[0].CameraRelativePosition)
		}
		for i := range r.visibleLights {
			if omniCount >= len(r.omniShadowMaps) {
				break
			}
			vl := &r.visibleLights[i]
			if vl.Light.Type() != light.PointLight || !vl.Light.IsShadowCaster() {
				continue
			}
			if r.renderSpanOmniShadows(omniCount, span, vl) {
				omniCount++
			}
		}
	}

	rc.SetProjection(projection.Slice(near, far*FarPlaneInflation))

	for _, pass := range [...]renderer.RenderPass{renderer.OpaquePass, renderer.TranslucentPass} {
		rc.SetPass(pass)
		for i := 0; i < span.ItemCount; i++ {
			item := &r.visible[span.BackItemIndex-i]
			if pass == renderer.TranslucentPass && item.Geometry.IsOpaque() {
				continue
			}
			receiver := item.Geometry.IsShadowReceiver()
			if shadowsOn && receiver {
				rc.SetShadowMapCount(1)
			} else {
				rc.SetShadowMapCount(0)
			}
			if receiver {
				rc.SetOmniShadowMapCount(omniCount)
			} else {
				rc.SetOmniShadowMapCount(0)
			}
			rc.SetEclipseShadowCount(0)
			rc.SetRingShadowCount(0)
			r.drawItem(item)
		}

		rc.SetShadowMapCount(0)
		rc.SetOmniShadowMapCount(0)
		for i := len(r.splittable) - 1; i >= 0; i-- {
			item := &r.splittable[i]
			if item.NearDistance >= far || item.FarDistance <= near {
				continue
			}
			if pass == renderer.TranslucentPass && item.Geometry.IsOpaque() {
				continue
			}
			r.drawItem(item)
		}
	}
	rc.SetPass(renderer.OpaquePass)
	return true
}

// drawItem binds the lights reaching an item and draws it.
func (r *universeRendererImpl) drawItem(item *VisibleItem) {
	if item.OutsideFrustum {
		return
	}
	rc := r.rc

	r.lightStates = r.lightStates[:0]
	for i := range r.visibleLights {
		vl := &r.visibleLights[i]
		switch vl.Light.Type() {
		case light.Sun:
			r.lightStates = append(r.lightStates, renderer.LightState{
				Type:        renderer.DirectionalLight,
				Position:    common.Vec32(vl.CameraRelativePosition),
				Color:       [3]float32(vl.Light.Spectrum()),
				Attenuation: 1,
			})
		case light.PointLight:
			lightRange := vl.Light.Range()
			if r3.Norm(r3.Sub(vl.Position, item.Position))-item.BoundingRadius >= lightRange {
				continue
			}
			r.lightStates = append(r.lightStates, renderer.LightState{
				Type:        renderer.PointLight,
				Position:    common.Vec32(vl.CameraRelativePosition),
				Color:       [3]float32(vl.Light.Spectrum()),
				Attenuation: light.Attenuation(lightRange),
			})
		}
	}
	rc.SetActiveLights(r.lightStates)

	rc.PushModelView()
	rc.TranslateModelView(item.CameraRelativePosition)
	rc.RotateModelView(item.Orientation)
	item.Geometry.Render(rc, r.t)
	rc.PopModelView()
}

func (r *universeRendererImpl) RenderLightGlare(overlay GlareOverlay) RenderStatus {
	if !r.inViewSet {
		return instrumentStatus(RenderNoViewSet)
	}
	if overlay == nil {
		return instrumentStatus(RenderOk)
	}

	rc := r.rc
	type glare struct {
		light    light.LightSource
		position r3.Vec
		radius   float64
	}
	var glares []glare
	for _, vl := range r.visibleLights {
		if vl.Light.Type() != light.Sun {
			continue
		}
		if r3.Norm(vl.CameraSpacePosition) == 0 {
			continue
		}
		direction := r3.Unit(vl.CameraSpacePosition)
		if direction.Z == 0 {
			continue
		}
		// Move the glare to the front of the light's disk.
		position := r3.Add(vl.CameraSpacePosition, r3.Scale(vl.Radius/direction.Z, direction))
		glares = append(glares, glare{light: vl.Light, position: position, radius: vl.Radius})
	}

	rc.PushProjection()
	rc.PushModelView()
	rc.SetModelView(common.IdentityMat4())

	n := len(r.spans)
	for _, g := range glares {
		depth := -g.position.Z
		for i, span := range r.spans {
			if depth < span.NearDistance || depth > span.FarDistance {
				continue
			}
			index := n - 1 - i
			rc.SetDepthRange(float32(index)/float32(n), float32(index+1)/float32(n))
			rc.SetProjection(r.lastProjection.Slice(span.NearDistance, span.FarDistance))
			overlay.TrackGlare(rc, g.light, g.position, g.radius)
		}
	}

	rc.SetDepthRange(0, 1)
	rc.SetProjection(r.lastProjection)
	for _, g := range glares {
		overlay.RenderGlare(rc, g.light, g.position, g.radius)
	}

	rc.PopModelView()
	rc.PopProjection()
	return instrumentStatus(RenderOk)
}

func (r *universeRendererImpl) RenderCubeMap(center r3.Vec, target *renderer.CubeMap, near, far float64) RenderStatus {
	if !r.inViewSet {
		return instrumentStatus(RenderNoViewSet)
	}
	if target == nil || target.Size <= 0 || near <= 0 || far <= near {
		return instrumentStatus(RendererBadParameter)
	}

	rc := r.rc
	projection := common.NewPerspectiveLH(math.Pi/2, 1, near, far)
	width, height := rc.Viewport()
	shadows := r.shadowsEnabled
	r.shadowsEnabled = false
	defer func() {
		r.shadowsEnabled = shadows
		rc.SetViewport(width, height)
	}()

	for face, faceOrientation := range CubeFaceRotations {
		if !rc.BeginCubeFace(target, face, 0) {
			continue
		}
		status := r.renderView(center, faceOrientation, projection, target.Size, target.Size)
		rc.EndCubeFace()
		if status != RenderOk {
			return instrumentStatus(status)
		}
	}
	return instrumentStatus(RenderOk)
}

func (r *universeRendererImpl) SetShadowsEnabled(enabled bool) {
	r.shadowsEnabled = enabled
}

func (r *universeRendererImpl) ShadowsEnabled() bool {
	return r.shadowsEnabled
}

func (r *universeRendererImpl) SetAmbientLight(s light.Spectrum) {
	r.ambient = s
}

func (r *universeRendererImpl) SetDefaultSunEnabled(enabled bool) {
	r.defaultSunEnabled = enabled
}

func (r *universeRendererImpl) SetSizeCullPixels(pixels float64) {
	r.sizeCullPixels = math.Max(0, pixels)
}

func (r *universeRendererImpl) Stats() FrameStats {
	return r.stats
}

func (r *universeRendererImpl) VisibleLights() []VisibleLight {
	return r.visibleLights
}

func (r *universeRendererImpl) Spans() []DepthBufferSpan {
	return r.spans
}
