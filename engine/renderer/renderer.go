package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/window"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	context     RenderContext

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	customBackend        RendererBackend
}

// Renderer owns a backend and the RenderContext that drives it.
//
// The Renderer is the entry point for everything that draws: the universe renderer and geometry
// issue their calls against Context(), and the engine forwards window events through Resize.
type Renderer interface {
	// Backend returns the backend that executes draw commands.
	//
	// Returns:
	//   - RendererBackend: the backend
	Backend() RendererBackend

	// BackendType returns which backend implementation was selected.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Context returns the render context shared by all drawing code.
	//
	// Returns:
	//   - RenderContext: the render context
	Context() RenderContext

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// UploadTexture sends decoded pixels to the backend under the given handle.
	//
	// Parameters:
	//   - id: the texture handle
	//   - data: the RGBA8 pixels and dimensions
	//
	// Returns:
	//   - error: an error if the backend rejected the texture
	UploadTexture(id uuid.UUID, data common.TextureStagingData) error

	// ReleaseTexture frees the texture uploaded under the given handle.
	//
	// Parameters:
	//   - id: the texture handle
	ReleaseTexture(id uuid.UUID)
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type. The window supplies the
// platform surface for the WebGPU backend and the initial viewport size; it may be nil for the
// recording backend.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - win: the window to present into, or nil for headless rendering
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
//   - error: an error if the backend could not be created
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch {
	case r.customBackend != nil:
		r.backend = r.customBackend
	case backendType == BackendTypeRecording:
		r.backend = NewRecordingBackend()
	default:
		if win == nil {
			return nil, errors.New("the WebGPU backend needs a window").WithType(ErrTypeGPU)
		}
		b, err := newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
		if err != nil {
			return nil, err
		}
		r.backend = b
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.context = NewRenderContext(r.backend)
	if win != nil {
		r.Resize(win.Width(), win.Height())
	}

	logs.WithTag("backend", backendType).
		WithTag("msaa", msaa).
		WithTag("max_texture_size", r.backend.Capabilities().MaxTextureSize).
		Info("renderer created")
	return r, nil
}

func (r *renderer) Backend() RendererBackend {
	return r.backend
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Context() RenderContext {
	return r.context
}

func (r *renderer) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backend.Resize(width, height)
	r.context.SetViewport(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) UploadTexture(id uuid.UUID, data common.TextureStagingData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.UploadTexture(id, data)
}

func (r *renderer) ReleaseTexture(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.ReleaseTexture(id)
}
