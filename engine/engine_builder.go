package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-astro/engine/camera"
	"github.com/Carmen-Shannon/oxy-astro/engine/profiler"
	"github.com/Carmen-Shannon/oxy-astro/engine/scene"
	"github.com/Carmen-Shannon/oxy-astro/engine/texture"
	"github.com/Carmen-Shannon/oxy-astro/engine/universe"
	"github.com/Carmen-Shannon/oxy-astro/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables per-frame profiling.
//
// Parameters:
//   - enabled: if true, frames are recorded and statistics logged
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler sets the profiler frames are recorded into.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets the window the engine presents into and takes resize events from. Without a
// window the engine runs headless.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithUniverse sets the simulated universe drawn each frame.
func WithUniverse(u *scene.Universe) EngineBuilderOption {
	return func(e *engine) {
		e.universe = u
	}
}

// WithCamera sets the camera the main view is drawn from.
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithTextureLoader sets the texture loader whose uploads and evictions run between frames.
func WithTextureLoader(l texture.Loader) EngineBuilderOption {
	return func(e *engine) {
		e.textures = l
	}
}

// WithTextureBudget bounds resident texture memory. Textures used within the last keepFrames
// frames are kept even above the budget. A zero budget disables eviction.
//
// Parameters:
//   - bytes: the resident memory target
//   - keepFrames: the number of recent frames whose textures are never evicted
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTextureBudget(bytes uint64, keepFrames int64) EngineBuilderOption {
	return func(e *engine) {
		e.textureBudget = bytes
		e.keepFrames = max(keepFrames, 0)
	}
}

// WithUploadsPerFrame bounds the texture uploads done before each frame. Values <= 0 upload
// everything that is ready.
func WithUploadsPerFrame(n int) EngineBuilderOption {
	return func(e *engine) {
		e.uploadsPerFrame = n
	}
}

// WithGlare sets the overlay drawn over suns after the main view.
func WithGlare(overlay universe.GlareOverlay) EngineBuilderOption {
	return func(e *engine) {
		e.glare = overlay
	}
}

// WithRendererOptions passes options to the universe renderer.
func WithRendererOptions(options ...universe.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}

// WithShadowMaps creates directional shadow maps when the engine starts.
//
// Parameters:
//   - size: the shadow map edge in texels
//   - count: the number of maps, 0 disables directional shadows
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithShadowMaps(size, count int) EngineBuilderOption {
	return func(e *engine) {
		e.shadowMapSize, e.shadowMapCount = size, count
	}
}

// WithOmniShadowMaps creates point light shadow cube maps when the engine starts.
//
// Parameters:
//   - size: the cube face edge in texels
//   - count: the number of cube maps, 0 disables point light shadows
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithOmniShadowMaps(size, count int) EngineBuilderOption {
	return func(e *engine) {
		e.omniMapSize, e.omniMapCount = size, count
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
	}
}
