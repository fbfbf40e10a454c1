package renderer

import (
	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// maxMatrixStackDepth bounds the model view and projection stacks. Overflowing pushes are ignored.
const maxMatrixStackDepth = 32

// renderContext is the implementation of the RenderContext interface.
type renderContext struct {
	backend RendererBackend
	caps    Capabilities

	modelView  []common.Mat4
	projection []common.PlanarProjection

	cameraOrientation quat.Number
	pixelSize         float64
	viewportWidth     int
	viewportHeight    int
	depthRange        [2]float32

	frontFace  FrontFace
	cullMode   CullMode
	depthWrite bool
	depthTest  bool
	output     RendererOutput
	pass       RenderPass

	material     material.Material
	vertexSpec   VertexSpec
	vertices     []float32
	defaultMat   material.Material
	vertexWasSet bool

	ambient         [3]float32
	lights          []LightState
	shadowMapCount  int
	shadowMap       *ShadowMap
	shadowTransform common.Mat4
	omniCount       int
	omniMaps        [MaxOmniShadowMaps]*CubeMap
	omniPositions   [MaxOmniShadowMaps][3]float32
	omniRanges      [MaxOmniShadowMaps]float32
	eclipseCount    int
	ringCount       int
	environmentMap  *CubeMap
	occlusionQuery  *OcclusionQuery

	inFrame     bool
	mainCleared bool
	current     *PassTarget
	drawCount   int
	passCount   int
}

// RenderContext is the state machine every drawing component issues calls against. It tracks
// matrix stacks, fixed-function state, bound material and vertices, and light/shadow state, and
// turns each DrawPrimitives call into a self-contained DrawCommand for the backend.
//
// Positions handed to the context (lights, omni shadow centers) are camera-relative world
// coordinates: world positions with the camera position subtracted, not yet rotated into eye space.
// The base of the model view stack is expected to hold the camera's view rotation.
//
// A RenderContext is not safe for concurrent use. It belongs to the thread that owns the GPU.
type RenderContext interface {
	// Backend returns the backend that receives draw commands.
	//
	// Returns:
	//   - RendererBackend: the backend
	Backend() RendererBackend

	// Capabilities returns the optional features of the backend, captured at creation.
	//
	// Returns:
	//   - Capabilities: the supported features
	Capabilities() Capabilities

	// BeginFrame starts a frame on the backend and resets per-frame state.
	//
	// Returns:
	//   - error: an error if the backend could not begin a frame
	BeginFrame() error

	// EndFrame closes any open pass, submits and presents the frame.
	EndFrame()

	// PushModelView duplicates the top of the model view stack.
	PushModelView()

	// PopModelView discards the top of the model view stack. The base entry is never popped.
	PopModelView()

	// SetModelView replaces the top of the model view stack.
	//
	// Parameters:
	//   - m: the new model view matrix
	SetModelView(m common.Mat4)

	// ModelView returns the top of the model view stack.
	//
	// Returns:
	//   - common.Mat4: the current model view matrix
	ModelView() common.Mat4

	// TranslateModelView post-multiplies the model view by a translation.
	//
	// Parameters:
	//   - v: the translation
	TranslateModelView(v r3.Vec)

	// RotateModelView post-multiplies the model view by a rotation.
	//
	// Parameters:
	//   - q: the unit quaternion rotation
	RotateModelView(q quat.Number)

	// ScaleModelView post-multiplies the model view by a per-axis scale.
	//
	// Parameters:
	//   - s: the scale factors
	ScaleModelView(s r3.Vec)

	// PushProjection duplicates the top of the projection stack.
	PushProjection()

	// PopProjection discards the top of the projection stack.
	PopProjection()

	// SetProjection replaces the top of the projection stack.
	//
	// Parameters:
	//   - p: the new projection
	SetProjection(p common.PlanarProjection)

	// Projection returns the top of the projection stack.
	//
	// Returns:
	//   - common.PlanarProjection: the current projection
	Projection() common.PlanarProjection

	// SetCameraOrientation records the camera orientation used to move between eye space and
	// camera-relative world space.
	//
	// Parameters:
	//   - q: the camera orientation
	SetCameraOrientation(q quat.Number)

	// CameraOrientation returns the camera orientation.
	//
	// Returns:
	//   - quat.Number: the camera orientation
	CameraOrientation() quat.Number

	// SetPixelSize records the angular size of one pixel at unit distance.
	//
	// Parameters:
	//   - size: the pixel size
	SetPixelSize(size float64)

	// PixelSize returns the angular size of one pixel at unit distance.
	//
	// Returns:
	//   - float64: the pixel size
	PixelSize() float64

	// SetViewport sets the size of the main render target.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	SetViewport(width, height int)

	// Viewport returns the size of the main render target.
	//
	// Returns:
	//   - int: the width in pixels
	//   - int: the height in pixels
	Viewport() (int, int)

	// SetDepthRange maps normalized device depth onto [near, far] of the depth buffer.
	//
	// Parameters:
	//   - near: the window depth of the near plane
	//   - far: the window depth of the far plane
	SetDepthRange(near, far float32)

	// DepthRange returns the current depth range.
	//
	// Returns:
	//   - float32: the window depth of the near plane
	//   - float32: the window depth of the far plane
	DepthRange() (float32, float32)

	SetFrontFace(f FrontFace)
	FrontFace() FrontFace
	SetCullMode(c CullMode)
	CullMode() CullMode
	SetDepthWrite(enabled bool)
	DepthWrite() bool
	SetDepthTest(enabled bool)
	DepthTest() bool

	// SetRendererOutput selects what the fragment stage writes.
	//
	// Parameters:
	//   - o: the output mode
	SetRendererOutput(o RendererOutput)
	RendererOutput() RendererOutput

	// SetPass records whether opaque or translucent geometry is being drawn. Geometry uses it to
	// decide which of its parts to draw.
	//
	// Parameters:
	//   - p: the pass
	SetPass(p RenderPass)
	Pass() RenderPass

	// BindMaterial sets the material used by subsequent draws. A nil material restores the default.
	//
	// Parameters:
	//   - m: the material
	BindMaterial(m material.Material)

	// Material returns the bound material.
	//
	// Returns:
	//   - material.Material: the bound material
	Material() material.Material

	// BindVertexArray sets the vertices used by subsequent draws.
	//
	// Parameters:
	//   - spec: the interleaved vertex layout
	//   - vertices: the vertex data, len must be a multiple of spec.Stride()
	BindVertexArray(spec VertexSpec, vertices []float32)

	// DrawPrimitives issues a draw of the bound vertex array with the current state.
	//
	// Parameters:
	//   - prim: the primitive assembly mode
	//   - indices: the index list, or nil to draw the vertices in order
	DrawPrimitives(prim PrimitiveType, indices []uint16)

	// SetAmbientLight sets the ambient light color.
	//
	// Parameters:
	//   - color: the RGB ambient color
	SetAmbientLight(color [3]float32)
	AmbientLight() [3]float32

	// SetActiveLights replaces the active light list. Lights beyond MaxActiveLights are dropped.
	//
	// Parameters:
	//   - lights: the lights with camera-relative positions
	SetActiveLights(lights []LightState)
	ActiveLights() []LightState

	// SetShadowMapCount sets how many directional shadow maps receivers sample.
	//
	// Parameters:
	//   - n: the count, clamped to [0, MaxShadowMaps]
	SetShadowMapCount(n int)
	ShadowMapCount() int

	// SetShadowMap binds a directional shadow map and its transform from camera-relative world
	// coordinates to shadow texture coordinates.
	//
	// Parameters:
	//   - sm: the shadow map
	//   - transform: the light-space transform including bias
	SetShadowMap(sm *ShadowMap, transform common.Mat4)

	// SetOmniShadowMapCount sets how many omnidirectional shadow maps receivers sample.
	//
	// Parameters:
	//   - n: the count, clamped to [0, MaxOmniShadowMaps]
	SetOmniShadowMapCount(n int)
	OmniShadowMapCount() int

	// SetOmniShadowMap binds a distance cube map rendered from a point light.
	//
	// Parameters:
	//   - index: the slot in [0, MaxOmniShadowMaps)
	//   - cm: the cube map
	//   - lightPosition: the camera-relative light position
	//   - lightRange: the far distance used when the cube map was rendered
	SetOmniShadowMap(index int, cm *CubeMap, lightPosition r3.Vec, lightRange float64)

	SetEclipseShadowCount(n int)
	EclipseShadowCount() int
	SetRingShadowCount(n int)
	RingShadowCount() int

	// SetEnvironmentMap binds a reflection cube map, or nil to unbind.
	//
	// Parameters:
	//   - cm: the cube map
	SetEnvironmentMap(cm *CubeMap)
	EnvironmentMap() *CubeMap

	// CreateShadowMap allocates a directional shadow map on the backend.
	//
	// Parameters:
	//   - size: the width and height in texels
	//
	// Returns:
	//   - *ShadowMap: the shadow map, or nil if the backend lacks framebuffers or allocation failed
	CreateShadowMap(size int) *ShadowMap

	// CreateCubeMap allocates a cube map on the backend.
	//
	// Parameters:
	//   - size: the face size in texels
	//   - format: distance or color texels
	//
	// Returns:
	//   - *CubeMap: the cube map, or nil if the backend lacks framebuffers or allocation failed
	CreateCubeMap(size int, format CubeMapFormat) *CubeMap

	// CreateOcclusionQuery allocates a sample counting query on the backend.
	//
	// Returns:
	//   - *OcclusionQuery: the query, or nil if the backend lacks occlusion queries
	CreateOcclusionQuery() *OcclusionQuery

	// BeginOcclusionQuery attaches q to every draw until EndOcclusionQuery. Only main pass draws
	// are counted.
	//
	// Parameters:
	//   - q: the query, nil detaches
	BeginOcclusionQuery(q *OcclusionQuery)
	EndOcclusionQuery()

	// OcclusionResult reads the sample count of a query without waiting for the GPU.
	//
	// Parameters:
	//   - q: the query
	//
	// Returns:
	//   - uint64: the samples that passed the depth test
	//   - bool: false while the result is pending or q is nil
	OcclusionResult(q *OcclusionQuery) (uint64, bool)

	// BeginShadowMap redirects subsequent draws into sm, clearing it to the far depth.
	//
	// Parameters:
	//   - sm: the target shadow map
	//
	// Returns:
	//   - bool: false if sm is nil
	BeginShadowMap(sm *ShadowMap) bool

	// EndShadowMap closes the shadow pass. The next draw resumes the main target.
	EndShadowMap()

	// BeginCubeFace redirects subsequent draws into one face of cm.
	//
	// Parameters:
	//   - cm: the target cube map
	//   - face: the face index in [0, 6)
	//   - clear: the value the red channel is cleared to
	//
	// Returns:
	//   - bool: false if cm is nil or face is out of range
	BeginCubeFace(cm *CubeMap, face int, clear float32) bool

	// EndCubeFace closes the cube face pass. The next draw resumes the main target.
	EndCubeFace()

	// DrawCount returns the number of draws issued since BeginFrame.
	//
	// Returns:
	//   - int: the draw count
	DrawCount() int

	// PassCount returns the number of passes opened since BeginFrame.
	//
	// Returns:
	//   - int: the pass count
	PassCount() int
}

var _ RenderContext = &renderContext{}

// NewRenderContext creates a RenderContext that sends its work to backend.
//
// Parameters:
//   - backend: the backend receiving passes and draws
//
// Returns:
//   - RenderContext: the context with identity matrices and default state
func NewRenderContext(backend RendererBackend) RenderContext {
	rc := &renderContext{
		backend:           backend,
		caps:              backend.Capabilities(),
		modelView:         []common.Mat4{common.IdentityMat4()},
		projection:        []common.PlanarProjection{common.NewPerspective(1, 1, 1, 10)},
		cameraOrientation: common.QuatIdentity,
		pixelSize:         1,
		depthRange:        [2]float32{0, 1},
		frontFace:         FrontFaceCCW,
		cullMode:          CullBack,
		depthWrite:        true,
		depthTest:         true,
		defaultMat:        material.NewMaterial(material.WithName("default")),
	}
	rc.material = rc.defaultMat
	return rc
}

func (rc *renderContext) Backend() RendererBackend {
	return rc.backend
}

func (rc *renderContext) Capabilities() Capabilities {
	return rc.caps
}

func (rc *renderContext) BeginFrame() error {
	if err := rc.backend.BeginFrame(); err != nil {
		return err
	}
	rc.inFrame = true
	rc.mainCleared = false
	rc.current = nil
	rc.drawCount = 0
	rc.passCount = 0
	return nil
}

func (rc *renderContext) EndFrame() {
	if !rc.inFrame {
		return
	}
	// An empty frame still needs the main target cleared.
	if !rc.mainCleared {
		rc.openMainPass()
	}
	rc.closePass()
	rc.backend.EndFrame()
	rc.backend.Present()
	rc.inFrame = false
}

func (rc *renderContext) PushModelView() {
	if len(rc.modelView) >= maxMatrixStackDepth {
		return
	}
	rc.modelView = append(rc.modelView, rc.modelView[len(rc.modelView)-1])
}

func (rc *renderContext) PopModelView() {
	if len(rc.modelView) > 1 {
		rc.modelView = rc.modelView[:len(rc.modelView)-1]
	}
}

func (rc *renderContext) SetModelView(m common.Mat4) {
	rc.modelView[len(rc.modelView)-1] = m
}

func (rc *renderContext) ModelView() common.Mat4 {
	return rc.modelView[len(rc.modelView)-1]
}

func (rc *renderContext) TranslateModelView(v r3.Vec) {
	rc.SetModelView(rc.ModelView().Mul(common.Translation(v)))
}

func (rc *renderContext) RotateModelView(q quat.Number) {
	rc.SetModelView(rc.ModelView().Mul(common.RotationMat4(q)))
}

func (rc *renderContext) ScaleModelView(s r3.Vec) {
	rc.SetModelView(rc.ModelView().Mul(common.Scaling(s)))
}

func (rc *renderContext) PushProjection() {
	if len(rc.projection) >= maxMatrixStackDepth {
		return
	}
	rc.projection = append(rc.projection, rc.projection[len(rc.projection)-1])
}

func (rc *renderContext) PopProjection() {
	if len(rc.projection) > 1 {
		rc.projection = rc.projection[:len(rc.projection)-1]
	}
}

func (rc *renderContext) SetProjection(p common.PlanarProjection) {
	rc.projection[len(rc.projection)-1] = p
}

func (rc *renderContext) Projection() common.PlanarProjection {
	return rc.projection[len(rc.projection)-1]
}

func (rc *renderContext) SetCameraOrientation(q quat.Number) {
	rc.cameraOrientation = q
}

func (rc *renderContext) CameraOrientation() quat.Number {
	return rc.cameraOrientation
}

func (rc *renderContext) SetPixelSize(size float64) {
	rc.pixelSize = size
}

func (rc *renderContext) PixelSize() float64 {
	return rc.pixelSize
}

func (rc *renderContext) SetViewport(width, height int) {
	rc.viewportWidth, rc.viewportHeight = width, height
}

func (rc *renderContext) Viewport() (int, int) {
	return rc.viewportWidth, rc.viewportHeight
}

func (rc *renderContext) SetDepthRange(near, far float32) {
	rc.depthRange = [2]float32{near, far}
}

func (rc *renderContext) DepthRange() (float32, float32) {
	return rc.depthRange[0], rc.depthRange[1]
}

func (rc *renderContext) SetFrontFace(f FrontFace) {
	rc.frontFace = f
}

func (rc *renderContext) FrontFace() FrontFace {
	return rc.frontFace
}

func (rc *renderContext) SetCullMode(c CullMode) {
	rc.cullMode = c
}

func (rc *renderContext) CullMode() CullMode {
	return rc.cullMode
}

func (rc *renderContext) SetDepthWrite(enabled bool) {
	rc.depthWrite = enabled
}

func (rc *renderContext) DepthWrite() bool {
	return rc.depthWrite
}

func (rc *renderContext) SetDepthTest(enabled bool) {
	rc.depthTest = enabled
}

func (rc *renderContext) DepthTest() bool {
	return rc.depthTest
}

func (rc *renderContext) SetRendererOutput(o RendererOutput) {
	rc.output = o
}

func (rc *renderContext) RendererOutput() RendererOutput {
	return rc.output
}

func (rc *renderContext) SetPass(p RenderPass) {
	rc.pass = p
}

func (rc *renderContext) Pass() RenderPass {
	return rc.pass
}

func (rc *renderContext) BindMaterial(m material.Material) {
	if m == nil {
		m = rc.defaultMat
	}
	material.RequestResident(m.BaseTexture())
	material.RequestResident(m.NormalTexture())
	rc.material = m
}

func (rc *renderContext) Material() material.Material {
	return rc.material
}

func (rc *renderContext) BindVertexArray(spec VertexSpec, vertices []float32) {
	rc.vertexSpec = spec
	rc.vertices = vertices
	rc.vertexWasSet = true
}

func (rc *renderContext) DrawPrimitives(prim PrimitiveType, indices []uint16) {
	if !rc.inFrame || !rc.vertexWasSet || len(rc.vertices) == 0 {
		return
	}
	if rc.current == nil {
		rc.openMainPass()
	}
	rc.backend.Draw(rc.buildCommand(prim, indices))
	rc.drawCount++
}

func (rc *renderContext) SetAmbientLight(color [3]float32) {
	rc.ambient = color
}

func (rc *renderContext) AmbientLight() [3]float32 {
	return rc.ambient
}

func (rc *renderContext) SetActiveLights(lights []LightState) {
	if len(lights) > MaxActiveLights {
		lights = lights[:MaxActiveLights]
	}
	rc.lights = append(rc.lights[:0], lights...)
}

func (rc *renderContext) ActiveLights() []LightState {
	return rc.lights
}

func (rc *renderContext) SetShadowMapCount(n int) {
	rc.shadowMapCount = common.Clamp(n, 0, MaxShadowMaps)
}

func (rc *renderContext) ShadowMapCount() int {
	return rc.shadowMapCount
}

func (rc *renderContext) SetShadowMap(sm *ShadowMap, transform common.Mat4) {
	rc.shadowMap = sm
	rc.shadowTransform = transform
}

func (rc *renderContext) SetOmniShadowMapCount(n int) {
	rc.omniCount = common.Clamp(n, 0, MaxOmniShadowMaps)
}

func (rc *renderContext) OmniShadowMapCount() int {
	return rc.omniCount
}

func (rc *renderContext) SetOmniShadowMap(index int, cm *CubeMap, lightPosition r3.Vec, lightRange float64) {
	if index < 0 || index >= MaxOmniShadowMaps {
		return
	}
	rc.omniMaps[index] = cm
	rc.omniPositions[index] = common.Vec32(lightPosition)
	rc.omniRanges[index] = float32(lightRange)
}

func (rc *renderContext) SetEclipseShadowCount(n int) {
	rc.eclipseCount = max(n, 0)
}

func (rc *renderContext) EclipseShadowCount() int {
	return rc.eclipseCount
}

func (rc *renderContext) SetRingShadowCount(n int) {
	rc.ringCount = max(n, 0)
}

func (rc *renderContext) RingShadowCount() int {
	return rc.ringCount
}

func (rc *renderContext) SetEnvironmentMap(cm *CubeMap) {
	rc.environmentMap = cm
}

func (rc *renderContext) EnvironmentMap() *CubeMap {
	return rc.environmentMap
}

func (rc *renderContext) CreateShadowMap(size int) *ShadowMap {
	if !rc.caps.Framebuffers {
		return nil
	}
	return rc.backend.CreateShadowMap(size)
}

func (rc *renderContext) CreateCubeMap(size int, format CubeMapFormat) *CubeMap {
	if !rc.caps.Framebuffers {
		return nil
	}
	return rc.backend.CreateCubeMap(size, format)
}

func (rc *renderContext) CreateOcclusionQuery() *OcclusionQuery {
	if !rc.caps.OcclusionQueries {
		return nil
	}
	return rc.backend.CreateOcclusionQuery()
}

func (rc *renderContext) BeginOcclusionQuery(q *OcclusionQuery) {
	rc.occlusionQuery = q
}

func (rc *renderContext) EndOcclusionQuery() {
	rc.occlusionQuery = nil
}

func (rc *renderContext) OcclusionResult(q *OcclusionQuery) (uint64, bool) {
	if q == nil {
		return 0, false
	}
	return rc.backend.OcclusionResult(q)
}

func (rc *renderContext) BeginShadowMap(sm *ShadowMap) bool {
	if sm == nil || !rc.inFrame {
		return false
	}
	rc.closePass()
	rc.openPass(PassTarget{
		Kind:       ShadowMapPass,
		ShadowMap:  sm,
		Clear:      true,
		ClearValue: 1,
		Width:      sm.Size,
		Height:     sm.Size,
	})
	return true
}

func (rc *renderContext) EndShadowMap() {
	if rc.current != nil && rc.current.Kind == ShadowMapPass {
		rc.closePass()
	}
}

func (rc *renderContext) BeginCubeFace(cm *CubeMap, face int, clear float32) bool {
	if cm == nil || face < 0 || face >= 6 || !rc.inFrame {
		return false
	}
	rc.closePass()
	rc.openPass(PassTarget{
		Kind:       CubeFacePass,
		CubeMap:    cm,
		Face:       face,
		Clear:      true,
		ClearValue: clear,
		Width:      cm.Size,
		Height:     cm.Size,
	})
	return true
}

func (rc *renderContext) EndCubeFace() {
	if rc.current != nil && rc.current.Kind == CubeFacePass {
		rc.closePass()
	}
}

func (rc *renderContext) DrawCount() int {
	return rc.drawCount
}

func (rc *renderContext) PassCount() int {
	return rc.passCount
}

// openMainPass resumes the main target. Only the first main pass of a frame clears it.
func (rc *renderContext) openMainPass() {
	rc.closePass()
	rc.openPass(PassTarget{
		Kind:       MainPass,
		Clear:      !rc.mainCleared,
		ClearValue: 1,
		Width:      rc.viewportWidth,
		Height:     rc.viewportHeight,
	})
	rc.mainCleared = true
}

func (rc *renderContext) openPass(target PassTarget) {
	rc.backend.BeginPass(target)
	rc.current = &target
	rc.passCount++
}

func (rc *renderContext) closePass() {
	if rc.current == nil {
		return
	}
	rc.backend.EndPass()
	rc.current = nil
}

// buildCommand snapshots the current state into a DrawCommand. Vertex and index slices are
// copied so callers may reuse their buffers.
func (rc *renderContext) buildCommand(prim PrimitiveType, indices []uint16) DrawCommand {
	target := rc.current.Kind
	mat := rc.material

	blend := mat.BlendMode()
	if rc.output != FragmentColor || target != MainPass {
		blend = material.Opaque
	}

	cmd := DrawCommand{
		Pipeline: PipelineKey{
			Spec:       rc.vertexSpec,
			Primitive:  prim,
			Output:     rc.output,
			Target:     target,
			FrontFace:  rc.frontFace,
			CullMode:   rc.cullMode,
			DepthTest:  rc.depthTest,
			DepthWrite: rc.depthWrite,
			Blend:      blend,
		},
		Vertices:        append([]float32(nil), rc.vertices...),
		Projection:      rc.Projection().Matrix(),
		ModelView:       rc.ModelView(),
		ViewInverse:     common.RotationMat4(rc.cameraOrientation),
		DepthRange:      rc.depthRange,
		Material:        mat,
		Ambient:         rc.ambient,
		ShadowMapCount:  rc.shadowMapCount,
		ShadowMap:       rc.shadowMap,
		EclipseCount:    rc.eclipseCount,
		RingShadowCount: rc.ringCount,
		EnvironmentMap:  rc.environmentMap,
		ViewportWidth:   rc.current.Width,
		ViewportHeight:  rc.current.Height,
	}
	if indices != nil {
		cmd.Indices = append([]uint16(nil), indices...)
	}
	if target != MainPass {
		// Offscreen passes use the full depth range and no lighting.
		cmd.DepthRange = [2]float32{0, 1}
		return cmd
	}

	if rc.shadowMapCount > 0 && rc.shadowMap != nil {
		cmd.ShadowMatrix = rc.shadowTransform.Mul(cmd.ViewInverse).Mul(cmd.ModelView)
	} else {
		cmd.ShadowMapCount = 0
	}

	cmd.OcclusionQuery = rc.occlusionQuery
	cmd.OmniShadowCount = rc.omniCount
	cmd.OmniShadowMaps = rc.omniMaps
	cmd.OmniLightPositions = rc.omniPositions
	cmd.OmniLightRanges = rc.omniRanges

	// Lights move from camera-relative world space into eye space.
	view := common.RotationMat4(common.Conjugate(rc.cameraOrientation))
	cmd.Lights = make([]LightState, len(rc.lights))
	for i, l := range rc.lights {
		p := view.TransformPoint(r3.Vec{X: float64(l.Position[0]), Y: float64(l.Position[1]), Z: float64(l.Position[2])})
		l.Position = common.Vec32(p)
		cmd.Lights[i] = l
	}
	return cmd
}
