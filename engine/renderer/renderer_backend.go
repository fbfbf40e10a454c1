package renderer

import (
	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/google/uuid"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeRecording selects the headless backend that records passes and draws
	// without touching a GPU.
	BackendTypeRecording
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// RendererBackend receives fully resolved passes and draw commands from a RenderContext.
// The context owns all state tracking; a backend only translates commands into GPU work.
//
// A frame is a sequence BeginFrame, then any number of BeginPass/Draw.../EndPass groups,
// then EndFrame and Present. Shadow and cube face passes may be interleaved with main passes.
type RendererBackend interface {
	// BeginFrame prepares the backend for a new frame.
	//
	// Returns:
	//   - error: an error if the frame could not be started (e.g. the swapchain is unavailable)
	BeginFrame() error

	// BeginPass opens a render pass on the given target. Calls to Draw are encoded into it.
	//
	// Parameters:
	//   - target: where the pass draws and how the target is initialized
	BeginPass(target PassTarget)

	// Draw encodes a single draw within the current pass.
	//
	// Parameters:
	//   - cmd: the resolved draw command
	Draw(cmd DrawCommand)

	// EndPass closes the current pass.
	EndPass()

	// EndFrame submits all encoded work.
	EndFrame()

	// Present displays the finished frame.
	Present()

	// CreateShadowMap allocates a square depth texture for directional shadows.
	//
	// Parameters:
	//   - size: the width and height in texels
	//
	// Returns:
	//   - *ShadowMap: the shadow map, or nil if allocation failed
	CreateShadowMap(size int) *ShadowMap

	// CreateCubeMap allocates a six-face render target.
	//
	// Parameters:
	//   - size: the face width and height in texels
	//   - format: distance or color texels
	//
	// Returns:
	//   - *CubeMap: the cube map, or nil if allocation failed
	CreateCubeMap(size int, format CubeMapFormat) *CubeMap

	// CreateOcclusionQuery allocates a sample counting query.
	//
	// Returns:
	//   - *OcclusionQuery: the query, or nil if the backend cannot count samples
	CreateOcclusionQuery() *OcclusionQuery

	// OcclusionResult reads the sample count of the last draws issued under q. It never blocks.
	//
	// Parameters:
	//   - q: the query
	//
	// Returns:
	//   - uint64: the number of samples that passed the depth test
	//   - bool: false while the result is not available yet
	OcclusionResult(q *OcclusionQuery) (uint64, bool)

	// UploadTexture copies decoded pixels to the GPU under the given handle.
	//
	// Parameters:
	//   - id: the texture handle
	//   - data: the RGBA8 pixels and dimensions
	//
	// Returns:
	//   - error: an error if the texture could not be created
	UploadTexture(id uuid.UUID, data common.TextureStagingData) error

	// ReleaseTexture frees the texture uploaded under the given handle. Unknown handles are ignored.
	//
	// Parameters:
	//   - id: the texture handle
	ReleaseTexture(id uuid.UUID)

	// Capabilities reports optional features the backend supports.
	//
	// Returns:
	//   - Capabilities: the supported features
	Capabilities() Capabilities

	// Resize reconfigures the backend for a new surface size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// SetPresentMode sets how frames are delivered to the display. Takes effect on the next Resize.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)
}
