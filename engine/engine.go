package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-astro/engine/camera"
	"github.com/Carmen-Shannon/oxy-astro/engine/profiler"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/scene"
	"github.com/Carmen-Shannon/oxy-astro/engine/texture"
	"github.com/Carmen-Shannon/oxy-astro/engine/universe"
	"github.com/Carmen-Shannon/oxy-astro/engine/window"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// ErrTypeEngine tags errors returned while setting up the engine.
const ErrTypeEngine = "engine"

// engine implements the Engine interface.
// Coordinates the simulation tick, render and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	gpu      renderer.Renderer
	renderer universe.Renderer
	universe *scene.Universe
	camera   camera.Camera
	textures texture.Loader
	glare    universe.GlareOverlay

	rendererOptions []universe.RendererBuilderOption
	shadowMapSize   int
	shadowMapCount  int
	omniMapSize     int
	omniMapCount    int

	textureBudget   uint64
	keepFrames      int64
	uploadsPerFrame int

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float64)
	renderCallback func(deltaTime float64)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	frameMu  sync.Mutex
	frame    int64
	reported map[universe.RenderStatus]bool
}

// Engine is the main entry point for the engine.
// It advances the simulated universe, drives the universe renderer once per frame and manages the window.
type Engine interface {
	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the low-level renderer that owns the backend.
	Renderer() renderer.Renderer

	// UniverseRenderer returns the renderer that draws the universe.
	UniverseRenderer() universe.Renderer

	// Universe returns the simulated universe.
	Universe() *scene.Universe

	// Camera returns the camera the main view is drawn from.
	Camera() camera.Camera

	// Textures returns the texture loader whose uploads and evictions the engine schedules.
	Textures() texture.Loader

	// Profiler returns the frame profiler.
	Profiler() *profiler.Profiler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in frames per second.
	// The universe clock advances and the tick callback is called at this rate.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick after the universe advances.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float64))

	// SetRenderCallback registers the function called after each render frame.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float64))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// RenderFrame draws one frame of the universe at its current time.
	//
	// Parameters:
	//   - deltaTime: the wall clock seconds since the previous frame
	//
	// Returns:
	//   - universe.RenderStatus: the first status that was not RenderOk, or RenderOk
	RenderFrame(deltaTime float64) universe.RenderStatus

	// RunFrames advances the universe by deltaTime and draws a frame, n times, on the calling
	// goroutine. Used for headless runs.
	//
	// Parameters:
	//   - n: the number of frames
	//   - deltaTime: the wall clock seconds per frame
	//
	// Returns:
	//   - error: error if a frame panicked
	RunFrames(n int, deltaTime float64) error

	// Frame returns the number of frames drawn.
	Frame() int64

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine drawing through gpu, with the provided options applied.
// A universe, camera and texture loader are created when no option supplies one.
//
// Parameters:
//   - gpu: the renderer whose context every frame draws into
//   - options: functional options for engine configuration (profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
//   - error: error if gpu is nil or the universe renderer cannot use its context
func NewEngine(gpu renderer.Renderer, options ...EngineBuilderOption) (Engine, error) {
	if gpu == nil {
		return nil, errors.New("engine needs a renderer").WithType(ErrTypeEngine)
	}

	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		gpu:             gpu,
		engineTickRate:  time.Second / 60,
		keepFrames:      120,
		uploadsPerFrame: 4,
		reported:        make(map[universe.RenderStatus]bool),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.universe == nil {
		e.universe = scene.NewUniverse()
	}
	if e.camera == nil {
		e.camera = camera.NewCamera()
	}
	if e.textures == nil {
		e.textures = texture.NewLoader(nil, texture.WithUploader(gpu))
	}
	if e.profiler == nil {
		e.profiler = profiler.NewProfiler()
	}

	rc := gpu.Context()
	if w, h := rc.Viewport(); w > 0 && h > 0 {
		e.camera.SetAspect(float64(w) / float64(h))
	}

	e.renderer = universe.NewRenderer(e.rendererOptions...)
	if !e.renderer.InitializeGraphics(rc) {
		return nil, errors.New("universe renderer could not initialize graphics").WithType(ErrTypeEngine)
	}
	if e.shadowMapCount > 0 {
		e.renderer.InitializeShadowMaps(e.shadowMapSize, e.shadowMapCount)
	}
	if e.omniMapCount > 0 {
		e.renderer.InitializeOmniShadowMaps(e.omniMapSize, e.omniMapCount)
	}

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if width <= 0 || height <= 0 {
				return
			}
			e.gpu.Resize(width, height)
			e.camera.SetAspect(float64(width) / float64(height))
		})
	}

	return e, nil
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.gpu
}

func (e *engine) UniverseRenderer() universe.Renderer {
	return e.renderer
}

func (e *engine) Universe() *scene.Universe {
	return e.universe
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Textures() texture.Loader {
	return e.textures
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

func (e *engine) RunFrames(n int, deltaTime float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("frame panicked").
				WithType(ErrTypeEngine).
				WithTag("frame", e.Frame()).
				Wrap(fmt.Errorf("%v", r))
		}
	}()

	for i := 0; i < n; i++ {
		e.tick(deltaTime)
		e.RenderFrame(deltaTime)
	}
	return nil
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
		if e.window != nil && e.window.IsRunning() {
			if err := e.window.Close(); err != nil {
				logs.Warn(err)
			}
		}
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate engine tick loop in its own goroutine.
// Advances the universe at the configured tick rate and listens for dynamic rate changes
// via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := now.Sub(lastTick).Seconds()
			lastTick = now
			e.tick(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

func (e *engine) tick(dt float64) {
	e.universe.Advance(dt)
	e.camera.Update()
	if e.tickCallback != nil {
		e.tickCallback(dt)
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logs.WithTag("frame", e.Frame()).
				Error(errors.New("render goroutine recovered from panic").
					WithType(ErrTypeEngine).
					Wrap(fmt.Errorf("%v", r)))
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := now.Sub(lastRender).Seconds()
			lastRender = now

			e.RenderFrame(dt)

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

func (e *engine) RenderFrame(deltaTime float64) universe.RenderStatus {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()

	start := time.Now()
	e.textures.ProcessUploads(e.uploadsPerFrame)

	rc := e.gpu.Context()
	if err := rc.BeginFrame(); err != nil {
		logs.WithTag("frame", e.frame).Warn(err)
		return universe.RenderOk
	}

	t := e.universe.Time()
	width, height := rc.Viewport()
	status := e.report(universe.RenderOk, e.renderer.BeginViewSet(e.universe, t))
	status = e.report(status, e.renderer.RenderView(e.camera, e.camera.Fov(), width, height))
	if e.glare != nil {
		status = e.report(status, e.renderer.RenderLightGlare(e.glare))
	}
	status = e.report(status, e.renderer.EndViewSet())
	rc.EndFrame()

	e.textures.IncrementFrameCount()
	if e.textureBudget > 0 {
		e.textures.EvictTextures(e.textureBudget, e.keepFrames)
	}
	e.frame++

	if e.profilingEnabled {
		stats := e.renderer.Stats()
		err := e.profiler.Record(profiler.FrameRecord{
			Frame:                e.frame,
			SimulationTime:       t,
			FrameSeconds:         time.Since(start).Seconds(),
			VisibleItems:         stats.VisibleItems,
			Spans:                stats.Spans,
			VisibleLights:        stats.VisibleLights,
			ShadowMaps:           stats.ShadowMaps,
			OmniShadowMaps:       stats.OmniShadowMaps,
			Tiles:                stats.Tiles,
			ResidentTextureBytes: e.textures.TextureMemoryUsed(),
		})
		if err != nil {
			logs.Warn(err)
		}
		e.profiler.Tick()
	}

	if e.renderCallback != nil {
		e.renderCallback(deltaTime)
	}
	return status
}

// report logs the first occurrence of every status that is not RenderOk and returns the first
// failure seen in the frame.
func (e *engine) report(first, s universe.RenderStatus) universe.RenderStatus {
	if s == universe.RenderOk {
		return first
	}
	if !e.reported[s] {
		e.reported[s] = true
		logs.WithTag("status", s.String()).WithTag("frame", e.frame).Warn("universe renderer call failed")
	}
	if first == universe.RenderOk {
		return s
	}
	return first
}

func (e *engine) Frame() int64 {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.frame
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if !e.running {
		e.engineTickRate = newRate
		return
	}
	// Non-blocking send - if the channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float64)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float64)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
