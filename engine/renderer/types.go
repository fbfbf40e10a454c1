package renderer

import (
	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
)

// VertexSpec identifies the interleaved layout of a vertex array. All attributes are float32.
type VertexSpec int

const (
	// PositionTex is position (3) + texture coordinate (2).
	PositionTex VertexSpec = iota
	// PositionNormalTex is position (3) + normal (3) + texture coordinate (2).
	PositionNormalTex
	// PositionNormalTexTangent is position (3) + normal (3) + texture coordinate (2) + tangent (3).
	PositionNormalTexTangent
	// Position is position (3) only. Used for lines and shadow casters.
	Position
	// PositionColor is position (3) + RGBA color (4). Used for lines and overlays.
	PositionColor
)

// Stride returns the number of float32 values per vertex.
func (v VertexSpec) Stride() int {
	switch v {
	case PositionTex:
		return 5
	case PositionNormalTex:
		return 8
	case PositionNormalTexTangent:
		return 11
	case PositionColor:
		return 7
	default:
		return 3
	}
}

// PrimitiveType selects how vertices are assembled.
type PrimitiveType int

const (
	Triangles PrimitiveType = iota
	TriangleStrip
	Lines
	LineStrip
	Points
)

// RenderPass distinguishes the opaque pass from the translucent pass when drawing a depth span.
type RenderPass int

const (
	OpaquePass RenderPass = iota
	TranslucentPass
)

// RendererOutput controls what the fragment stage writes.
type RendererOutput int

const (
	// FragmentColor writes shaded color. This is the normal mode.
	FragmentColor RendererOutput = iota
	// DepthOnly writes no color; used for directional shadow maps.
	DepthOnly
	// CameraDistance writes the linear eye distance into the red channel; used for omni shadow cube maps.
	CameraDistance
)

// FrontFace selects the winding order considered front facing.
type FrontFace int

const (
	FrontFaceCCW FrontFace = iota
	FrontFaceCW
)

// CullMode selects which faces are discarded.
type CullMode int

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// LightType distinguishes directional from point lights in LightState.
type LightType int

const (
	DirectionalLight LightType = iota
	PointLight
)

// LightState is one active light as seen by the shader. Position is in camera-relative world
// coordinates; for directional lights it is the light position and the shader uses its direction.
type LightState struct {
	Type        LightType
	Position    [3]float32
	Color       [3]float32
	Attenuation float32
}

// MaxActiveLights bounds the number of LightState slots a RenderContext exposes.
const MaxActiveLights = 4

// MaxShadowMaps bounds the number of directional shadow maps that can be bound at once.
const MaxShadowMaps = 1

// MaxOmniShadowMaps bounds the number of omnidirectional shadow cube maps that can be bound at once.
const MaxOmniShadowMaps = 3

// ShadowMap is a depth texture rendered from a directional light.
type ShadowMap struct {
	ID   int
	Size int
}

// OcclusionQuery counts the samples of the draws issued while it is active that pass the depth
// test. The count becomes readable some time after the frame holding the draws ends.
type OcclusionQuery struct {
	ID int
}

// CubeMap is a six-face render target. Omni shadow maps store camera distance in it;
// reflection maps store color.
type CubeMap struct {
	ID     int
	Size   int
	Format CubeMapFormat
}

// CubeMapFormat selects the texel format of a CubeMap.
type CubeMapFormat int

const (
	CubeMapDistance CubeMapFormat = iota
	CubeMapColor
)

// PassKind identifies the target a render pass draws into.
type PassKind int

const (
	MainPass PassKind = iota
	ShadowMapPass
	CubeFacePass
)

// PassTarget describes where a render pass draws and how it initializes the target.
type PassTarget struct {
	Kind       PassKind
	ShadowMap  *ShadowMap
	CubeMap    *CubeMap
	Face       int
	Clear      bool
	ClearValue float32
	Width      int
	Height     int
}

// PipelineKey captures every piece of fixed-function state that selects a GPU pipeline.
type PipelineKey struct {
	Spec       VertexSpec
	Primitive  PrimitiveType
	Output     RendererOutput
	Target     PassKind
	FrontFace  FrontFace
	CullMode   CullMode
	DepthTest  bool
	DepthWrite bool
	Blend      material.BlendMode
}

// DrawCommand is a fully resolved draw issued by the RenderContext to a backend. Vertex and
// index data are owned by the command once submitted. A nil Indices slice draws the vertices
// in order.
type DrawCommand struct {
	Pipeline    PipelineKey
	Vertices    []float32
	Indices     []uint16
	Projection  common.Mat4
	ModelView   common.Mat4
	ViewInverse common.Mat4
	DepthRange  [2]float32
	Material    material.Material

	Ambient            [3]float32
	Lights             []LightState
	ShadowMapCount     int
	ShadowMatrix       common.Mat4
	ShadowMap          *ShadowMap
	OmniShadowCount    int
	OmniShadowMaps     [MaxOmniShadowMaps]*CubeMap
	OmniLightPositions [MaxOmniShadowMaps][3]float32
	OmniLightRanges    [MaxOmniShadowMaps]float32
	EclipseCount       int
	RingShadowCount    int
	EnvironmentMap     *CubeMap
	OcclusionQuery     *OcclusionQuery
	ViewportWidth      int
	ViewportHeight     int
}

// VertexCount returns the number of vertices in the command.
func (c DrawCommand) VertexCount() int {
	return len(c.Vertices) / c.Pipeline.Spec.Stride()
}

// Capabilities reports optional features supported by a backend.
type Capabilities struct {
	Shaders          bool
	Framebuffers     bool
	OcclusionQueries bool
	MaxTextureSize   int
}
