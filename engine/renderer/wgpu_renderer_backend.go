package renderer

import (
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/shader"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// ErrTypeGPU tags errors raised while creating or driving GPU objects.
const ErrTypeGPU = "gpu"

const (
	shadowDepthFormat = wgpu.TextureFormatDepth32Float
	mainDepthFormat   = wgpu.TextureFormatDepth24Plus
)

// pipelineVariant is everything that selects one GPU pipeline: the fixed-function key from the
// draw, the shader features derived from its material and lighting, and the attachment formats of
// the pass it runs in.
type pipelineVariant struct {
	key         PipelineKey
	features    shader.Feature
	colorFormat wgpu.TextureFormat
	depthFormat wgpu.TextureFormat
	samples     uint32
}

type gpuShadowMap struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type gpuCubeMap struct {
	format    wgpu.TextureFormat
	texture   *wgpu.Texture
	cubeView  *wgpu.TextureView
	faceViews [6]*wgpu.TextureView
	depth     *wgpu.Texture
	depthView *wgpu.TextureView
}

type shadowBindingKey struct {
	shadowMap int
	omni      [MaxOmniShadowMaps]int
}

// wgpuPass is a pass recorded between BeginPass and EndPass. Passes are encoded at EndFrame once
// every draw's uniforms and geometry are known and uploaded.
type wgpuPass struct {
	target PassTarget
	draws  []DrawCommand
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	limits   wgpu.Limits

	surfaceFormat    wgpu.TextureFormat
	width            int
	height           int
	msaaTextureView  *wgpu.TextureView
	depthTextureView *wgpu.TextureView

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	shaders   shader.Library
	modules   map[string]*wgpu.ShaderModule
	pipelines *pipeline.Cache[pipelineVariant]

	uniformLayout  *wgpu.BindGroupLayout
	materialLayout *wgpu.BindGroupLayout
	shadowLayout   *wgpu.BindGroupLayout
	surfaceLayout  *wgpu.PipelineLayout
	depthLayout    *wgpu.PipelineLayout

	surfaceSampler    *wgpu.Sampler
	comparisonSampler *wgpu.Sampler
	distanceSampler   *wgpu.Sampler

	fallbackWhite  *wgpu.TextureView
	fallbackNormal *wgpu.TextureView
	fallbackDepth  *wgpu.TextureView
	fallbackCube   *wgpu.TextureView

	textures       map[uuid.UUID]*wgpu.TextureView
	shadowMaps     map[int]*gpuShadowMap
	cubeMaps       map[int]*gpuCubeMap
	materialGroups map[[2]uuid.UUID]*wgpu.BindGroup
	shadowGroups   map[shadowBindingKey]*wgpu.BindGroup
	nextID         int

	uniformBuffer   *wgpu.Buffer
	uniformCapacity int
	uniformGroup    *wgpu.BindGroup
	vertexBuffer    *wgpu.Buffer
	vertexCapacity  int
	indexBuffer     *wgpu.Buffer
	indexCapacity   int

	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	passes       []*wgpuPass
	current      *wgpuPass
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend creates the WebGPU device for the given surface and builds the bind group
// layouts, samplers and fallback textures every draw relies on.
//
// Parameters:
//   - surfaceDescriptor: the platform surface to present into
//   - forceFallbackAdapter: true to request a software adapter
//   - sampleCount: the MSAA sample count of the main pass
//
// Returns:
//   - *wgpuRendererBackendImpl: the backend
//   - error: an error if no adapter or device could be obtained
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:             &sync.Mutex{},
		instance:       wgpu.CreateInstance(nil),
		presentMode:    wgpu.PresentModeFifo,
		sampleCount:    sampleCount,
		shaders:        shader.NewLibrary(map[string]string{"draw_uniforms": GPUDrawUniformsSource}),
		modules:        make(map[string]*wgpu.ShaderModule),
		textures:       make(map[uuid.UUID]*wgpu.TextureView),
		shadowMaps:     make(map[int]*gpuShadowMap),
		cubeMaps:       make(map[int]*gpuCubeMap),
		materialGroups: make(map[[2]uuid.UUID]*wgpu.BindGroup),
		shadowGroups:   make(map[shadowBindingKey]*wgpu.BindGroup),
	}
	b.pipelines = pipeline.NewCache(b.buildPipeline)
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		return nil, errors.New("requesting adapter failed").WithType(ErrTypeGPU).Wrap(err)
	}
	b.adapter = a

	b.limits = wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: b.limits,
		},
	})
	if err != nil {
		return nil, errors.New("requesting device failed").WithType(ErrTypeGPU).Wrap(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	if err := b.initLayouts(); err != nil {
		return nil, err
	}
	if err := b.initSamplers(); err != nil {
		return nil, err
	}
	if err := b.initFallbacks(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *wgpuRendererBackendImpl) initLayouts() error {
	var err error
	b.uniformLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Draw Uniforms Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:             wgpu.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   uint64((&GPUDrawUniforms{}).Size()),
				},
			},
		},
	})
	if err != nil {
		return errors.New("creating uniform layout failed").WithType(ErrTypeGPU).Wrap(err)
	}

	colorTexture := func(binding uint32) wgpu.BindGroupLayoutEntry {
		e := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: wgpu.ShaderStageFragment}
		e.Texture.SampleType = wgpu.TextureSampleTypeFloat
		e.Texture.ViewDimension = wgpu.TextureViewDimension2D
		return e
	}
	surfaceSampler := wgpu.BindGroupLayoutEntry{Binding: 2, Visibility: wgpu.ShaderStageFragment}
	surfaceSampler.Sampler.Type = wgpu.SamplerBindingTypeFiltering

	b.materialLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Material Layout",
		Entries: []wgpu.BindGroupLayoutEntry{colorTexture(0), colorTexture(1), surfaceSampler},
	})
	if err != nil {
		return errors.New("creating material layout failed").WithType(ErrTypeGPU).Wrap(err)
	}

	shadowTexture := wgpu.BindGroupLayoutEntry{Binding: 0, Visibility: wgpu.ShaderStageFragment}
	shadowTexture.Texture.SampleType = wgpu.TextureSampleTypeDepth
	shadowTexture.Texture.ViewDimension = wgpu.TextureViewDimension2D
	shadowSampler := wgpu.BindGroupLayoutEntry{Binding: 1, Visibility: wgpu.ShaderStageFragment}
	shadowSampler.Sampler.Type = wgpu.SamplerBindingTypeComparison
	entries := []wgpu.BindGroupLayoutEntry{shadowTexture, shadowSampler}
	for i := 0; i < MaxOmniShadowMaps; i++ {
		e := wgpu.BindGroupLayoutEntry{Binding: uint32(2 + i), Visibility: wgpu.ShaderStageFragment}
		e.Texture.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
		e.Texture.ViewDimension = wgpu.TextureViewDimensionCube
		entries = append(entries, e)
	}
	omniSampler := wgpu.BindGroupLayoutEntry{Binding: uint32(2 + MaxOmniShadowMaps), Visibility: wgpu.ShaderStageFragment}
	omniSampler.Sampler.Type = wgpu.SamplerBindingTypeNonFiltering
	entries = append(entries, omniSampler)

	b.shadowLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Shadow Layout",
		Entries: entries,
	})
	if err != nil {
		return errors.New("creating shadow layout failed").WithType(ErrTypeGPU).Wrap(err)
	}

	b.surfaceLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Surface Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.uniformLayout, b.materialLayout, b.shadowLayout},
	})
	if err != nil {
		return errors.New("creating surface pipeline layout failed").WithType(ErrTypeGPU).Wrap(err)
	}
	b.depthLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Depth Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{b.uniformLayout},
	})
	if err != nil {
		return errors.New("creating depth pipeline layout failed").WithType(ErrTypeGPU).Wrap(err)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) initSamplers() error {
	var err error
	b.surfaceSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Surface Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return errors.New("creating surface sampler failed").WithType(ErrTypeGPU).Wrap(err)
	}

	b.comparisonSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Comparison Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		Compare:       wgpu.CompareFunctionLess,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return errors.New("creating comparison sampler failed").WithType(ErrTypeGPU).Wrap(err)
	}

	b.distanceSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Omni Distance Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return errors.New("creating distance sampler failed").WithType(ErrTypeGPU).Wrap(err)
	}
	return nil
}

// initFallbacks creates the 1x1 textures bound wherever a draw has no texture of its own.
func (b *wgpuRendererBackendImpl) initFallbacks() error {
	var err error
	b.fallbackWhite, err = b.solidTexture("Fallback White", [4]byte{255, 255, 255, 255})
	if err != nil {
		return err
	}
	b.fallbackNormal, err = b.solidTexture("Fallback Normal", [4]byte{128, 128, 255, 255})
	if err != nil {
		return err
	}
	sm, err := b.newShadowMap(1)
	if err != nil {
		return err
	}
	b.fallbackDepth = sm.view
	cm, err := b.newCubeMap(1, wgpu.TextureFormatR32Float)
	if err != nil {
		return err
	}
	b.fallbackCube = cm.cubeView
	return nil
}

func (b *wgpuRendererBackendImpl) solidTexture(label string, rgba [4]byte) (*wgpu.TextureView, error) {
	return b.createTexture(label, common.TextureStagingData{Pixels: rgba[:], Width: 1, Height: 1})
}

func (b *wgpuRendererBackendImpl) createTexture(label string, data common.TextureStagingData) (*wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, errors.New("creating texture failed").WithType(ErrTypeGPU).WithTag("label", label).Wrap(err)
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  data.Width * 4,
			RowsPerImage: data.Height,
		},
		&wgpu.Extent3D{
			Width:              data.Width,
			Height:             data.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, errors.New("creating texture view failed").WithType(ErrTypeGPU).WithTag("label", label).Wrap(err)
	}
	return view, nil
}

func (b *wgpuRendererBackendImpl) newShadowMap(size int) (*gpuShadowMap, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Shadow Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(size),
			Height:             uint32(size),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        shadowDepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, errors.New("creating shadow depth texture failed").WithType(ErrTypeGPU).Wrap(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, errors.New("creating shadow depth view failed").WithType(ErrTypeGPU).Wrap(err)
	}
	return &gpuShadowMap{texture: tex, view: view}, nil
}

func (b *wgpuRendererBackendImpl) newCubeMap(size int, format wgpu.TextureFormat) (*gpuCubeMap, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Cube Map Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(size),
			Height:             uint32(size),
			DepthOrArrayLayers: 6,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return nil, errors.New("creating cube map texture failed").WithType(ErrTypeGPU).Wrap(err)
	}
	cm := &gpuCubeMap{format: format, texture: tex}

	cm.cubeView, err = tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           "Cube Map View",
		Format:          format,
		Dimension:       wgpu.TextureViewDimensionCube,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 6,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return nil, errors.New("creating cube view failed").WithType(ErrTypeGPU).Wrap(err)
	}
	for face := range cm.faceViews {
		cm.faceViews[face], err = tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           "Cube Face View",
			Format:          format,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseMipLevel:    0,
			MipLevelCount:   1,
			BaseArrayLayer:  uint32(face),
			ArrayLayerCount: 1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			tex.Release()
			return nil, errors.New("creating cube face view failed").WithType(ErrTypeGPU).WithTag("face", face).Wrap(err)
		}
	}

	cm.depth, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Cube Map Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(size),
			Height:             uint32(size),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        shadowDepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		tex.Release()
		return nil, errors.New("creating cube depth texture failed").WithType(ErrTypeGPU).Wrap(err)
	}
	cm.depthView, err = cm.depth.CreateView(nil)
	if err != nil {
		tex.Release()
		cm.depth.Release()
		return nil, errors.New("creating cube depth view failed").WithType(ErrTypeGPU).Wrap(err)
	}
	return cm, nil
}

// ConfigureSurface (re)creates the swapchain and the main pass attachments for a new size.
func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		return
	}
	b.width, b.height = width, height

	capabilities := b.surface.GetCapabilities(b.adapter)
	if b.surfaceFormat != capabilities.Formats[0] {
		// Pipelines bake in the color format.
		b.pipelines.Clear()
	}
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	count := uint32(b.sampleCount)
	if count > 1 {
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			logs.Fatal(errors.New("creating msaa texture failed").WithType(ErrTypeGPU).Wrap(err))
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			logs.Fatal(errors.New("creating msaa view failed").WithType(ErrTypeGPU).Wrap(err))
		}
	} else {
		b.msaaTextureView = nil
	}

	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        mainDepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		logs.Fatal(errors.New("creating depth texture failed").WithType(ErrTypeGPU).Wrap(err))
	}
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		logs.Fatal(errors.New("creating depth view failed").WithType(ErrTypeGPU).Wrap(err))
	}
}

func (b *wgpuRendererBackendImpl) Resize(width, height int) {
	b.ConfigureSurface(width, height)
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

// Capabilities reports no occlusion queries: the bindings cannot attach a query set to a render
// pass, so overlays relying on sample counts turn themselves off.
func (b *wgpuRendererBackendImpl) Capabilities() Capabilities {
	return Capabilities{
		Shaders:          true,
		Framebuffers:     true,
		OcclusionQueries: false,
		MaxTextureSize:   int(b.limits.MaxTextureDimension2D),
	}
}

func (b *wgpuRendererBackendImpl) CreateOcclusionQuery() *OcclusionQuery {
	return nil
}

func (b *wgpuRendererBackendImpl) OcclusionResult(*OcclusionQuery) (uint64, bool) {
	return 0, false
}

func (b *wgpuRendererBackendImpl) CreateShadowMap(size int) *ShadowMap {
	b.mu.Lock()
	defer b.mu.Unlock()

	sm, err := b.newShadowMap(size)
	if err != nil {
		logs.Warn(err)
		return nil
	}
	b.nextID++
	b.shadowMaps[b.nextID] = sm
	return &ShadowMap{ID: b.nextID, Size: size}
}

func (b *wgpuRendererBackendImpl) CreateCubeMap(size int, format CubeMapFormat) *CubeMap {
	b.mu.Lock()
	defer b.mu.Unlock()

	cm, err := b.newCubeMap(size, cubeTextureFormat(format))
	if err != nil {
		logs.Warn(err)
		return nil
	}
	b.nextID++
	b.cubeMaps[b.nextID] = cm
	return &CubeMap{ID: b.nextID, Size: size, Format: format}
}

func (b *wgpuRendererBackendImpl) UploadTexture(id uuid.UUID, data common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if data.Width == 0 || data.Height == 0 {
		return errors.New("texture has no pixels").WithType(ErrTypeGPU).WithTag("texture", id)
	}
	if max(data.Width, data.Height) > b.limits.MaxTextureDimension2D {
		return errors.New("texture exceeds the maximum size").
			WithType(ErrTypeGPU).
			WithTag("texture", id).
			WithTag("width", data.Width).
			WithTag("height", data.Height)
	}
	view, err := b.createTexture(id.String(), data)
	if err != nil {
		return err
	}
	b.textures[id] = view
	return nil
}

func (b *wgpuRendererBackendImpl) ReleaseTexture(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	view, ok := b.textures[id]
	if !ok {
		return
	}
	for key, g := range b.materialGroups {
		if key[0] == id || key[1] == id {
			g.Release()
			delete(b.materialGroups, key)
		}
	}
	view.Release()
	delete(b.textures, id)
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented").WithType(ErrTypeGPU)
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return errors.New("acquiring surface texture failed").WithType(ErrTypeGPU).Wrap(err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return errors.New("creating surface view failed").WithType(ErrTypeGPU).Wrap(err)
	}

	b.frameSurface = surfaceTexture
	b.frameView = view
	b.passes = b.passes[:0]
	b.current = nil
	return nil
}

func (b *wgpuRendererBackendImpl) BeginPass(target PassTarget) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.current = &wgpuPass{target: target}
	b.passes = append(b.passes, b.current)
}

func (b *wgpuRendererBackendImpl) Draw(cmd DrawCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil || cmd.VertexCount() == 0 {
		return
	}
	b.current.draws = append(b.current.draws, cmd)
}

func (b *wgpuRendererBackendImpl) EndPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = nil
}

func (b *wgpuRendererBackendImpl) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameView == nil {
		return
	}
	if err := b.uploadFrameData(); err != nil {
		logs.Warn(err)
		return
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		logs.Warn(errors.New("creating command encoder failed").WithType(ErrTypeGPU).Wrap(err))
		return
	}

	drawIndex := 0
	var vertexOffset, indexOffset uint64
	for _, p := range b.passes {
		pass := encoder.BeginRenderPass(b.passDescriptor(p.target))
		for _, cmd := range p.draws {
			b.encodeDraw(pass, p.target, cmd, drawIndex, vertexOffset, indexOffset)
			drawIndex++
			vertexOffset += uint64(len(cmd.Vertices) * 4)
			indexOffset += uint64(len(cmd.Indices) * 2)
		}
		pass.End()
		pass.Release()
	}

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		logs.Warn(errors.New("finishing command encoder failed").WithType(ErrTypeGPU).Wrap(err))
		return
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()

	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	b.frameSurface.Release()
	b.frameSurface = nil
}

// uploadFrameData writes the uniforms, vertices and indices of every recorded draw into the
// frame buffers, growing them when the frame needs more room.
func (b *wgpuRendererBackendImpl) uploadFrameData() error {
	var draws, vertexBytes, indexBytes int
	for _, p := range b.passes {
		for _, cmd := range p.draws {
			draws++
			vertexBytes += len(cmd.Vertices) * 4
			indexBytes += len(cmd.Indices) * 2
		}
	}
	if draws == 0 {
		return nil
	}

	if err := b.ensureUniformCapacity(draws); err != nil {
		return err
	}
	var err error
	b.vertexBuffer, b.vertexCapacity, err = b.ensureBuffer(b.vertexBuffer, b.vertexCapacity, vertexBytes, wgpu.BufferUsageVertex, "Frame Vertex Buffer")
	if err != nil {
		return err
	}
	b.indexBuffer, b.indexCapacity, err = b.ensureBuffer(b.indexBuffer, b.indexCapacity, align(indexBytes, 4), wgpu.BufferUsageIndex, "Frame Index Buffer")
	if err != nil {
		return err
	}

	uniforms := make([]byte, draws*drawUniformsStride)
	vertices := make([]byte, 0, vertexBytes)
	indices := make([]byte, 0, align(indexBytes, 4))
	i := 0
	for _, p := range b.passes {
		for _, cmd := range p.draws {
			u := newDrawUniforms(cmd)
			copy(uniforms[i*drawUniformsStride:], u.Marshal())
			vertices = append(vertices, common.SliceToBytes(cmd.Vertices)...)
			indices = append(indices, common.SliceToBytes(cmd.Indices)...)
			i++
		}
	}
	for len(indices)%4 != 0 {
		indices = append(indices, 0)
	}

	b.queue.WriteBuffer(b.uniformBuffer, 0, uniforms)
	if len(vertices) > 0 {
		b.queue.WriteBuffer(b.vertexBuffer, 0, vertices)
	}
	if len(indices) > 0 {
		b.queue.WriteBuffer(b.indexBuffer, 0, indices)
	}
	return nil
}

func (b *wgpuRendererBackendImpl) ensureUniformCapacity(draws int) error {
	if draws <= b.uniformCapacity && b.uniformGroup != nil {
		return nil
	}
	capacity := nextPowerOfTwo(draws)
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Frame Uniform Buffer",
		Size:  uint64(capacity * drawUniformsStride),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return errors.New("creating uniform buffer failed").WithType(ErrTypeGPU).WithTag("draws", draws).Wrap(err)
	}
	group, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Draw Uniforms Bind Group",
		Layout: b.uniformLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  buf,
				Offset:  0,
				Size:    uint64((&GPUDrawUniforms{}).Size()),
			},
		},
	})
	if err != nil {
		buf.Release()
		return errors.New("creating uniform bind group failed").WithType(ErrTypeGPU).Wrap(err)
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
	}
	b.uniformBuffer, b.uniformCapacity, b.uniformGroup = buf, capacity, group
	return nil
}

func (b *wgpuRendererBackendImpl) ensureBuffer(buf *wgpu.Buffer, capacity, need int, usage wgpu.BufferUsage, label string) (*wgpu.Buffer, int, error) {
	if need <= capacity && buf != nil {
		return buf, capacity, nil
	}
	capacity = nextPowerOfTwo(max(need, 4096))
	created, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(capacity),
		Usage: usage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return buf, 0, errors.New("creating frame buffer failed").WithType(ErrTypeGPU).WithTag("label", label).Wrap(err)
	}
	if buf != nil {
		buf.Release()
	}
	return created, capacity, nil
}

func (b *wgpuRendererBackendImpl) passDescriptor(target PassTarget) *wgpu.RenderPassDescriptor {
	loadOp := wgpu.LoadOpLoad
	if target.Clear {
		loadOp = wgpu.LoadOpClear
	}

	switch target.Kind {
	case ShadowMapPass:
		sm := b.shadowMaps[target.ShadowMap.ID]
		return &wgpu.RenderPassDescriptor{
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            sm.view,
				DepthLoadOp:     loadOp,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: target.ClearValue,
			},
		}
	case CubeFacePass:
		cm := b.cubeMaps[target.CubeMap.ID]
		return &wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{
				{
					View:       cm.faceViews[target.Face],
					LoadOp:     loadOp,
					StoreOp:    wgpu.StoreOpStore,
					ClearValue: wgpu.Color{R: float64(target.ClearValue)},
				},
			},
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            cm.depthView,
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpDiscard,
				DepthClearValue: 1,
			},
		}
	}

	// Main passes after the first load both attachments so depth spans accumulate.
	color := wgpu.RenderPassColorAttachment{
		View:       b.frameView,
		LoadOp:     loadOp,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{A: 1},
	}
	if b.sampleCount > 1 {
		color.View = b.msaaTextureView
		color.ResolveTarget = b.frameView
	}
	return &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{color},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     loadOp,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: target.ClearValue,
		},
	}
}

func (b *wgpuRendererBackendImpl) encodeDraw(pass *wgpu.RenderPassEncoder, target PassTarget, cmd DrawCommand, drawIndex int, vertexOffset, indexOffset uint64) {
	variant := b.variantFor(target, cmd)
	p, err := b.pipelines.Get(variant)
	if err != nil {
		logs.WithTag("pipeline", variant.key).Error(err)
		return
	}

	pass.SetPipeline(p.RenderPipeline())
	pass.SetBindGroup(0, b.uniformGroup, []uint32{uint32(drawIndex * drawUniformsStride)})
	if cmd.Pipeline.Output == FragmentColor {
		mg, err := b.materialGroup(cmd.Material)
		if err != nil {
			logs.Warn(err)
			return
		}
		sg, err := b.shadowGroup(cmd)
		if err != nil {
			logs.Warn(err)
			return
		}
		pass.SetBindGroup(1, mg, nil)
		pass.SetBindGroup(2, sg, nil)
	}

	w, h := float32(target.Width), float32(target.Height)
	if target.Kind == MainPass {
		w, h = float32(b.width), float32(b.height)
	}
	pass.SetViewport(0, 0, w, h, cmd.DepthRange[0], cmd.DepthRange[1])

	vertexBytes := uint64(len(cmd.Vertices) * 4)
	pass.SetVertexBuffer(0, b.vertexBuffer, vertexOffset, vertexBytes)
	if cmd.Indices != nil {
		pass.SetIndexBuffer(b.indexBuffer, wgpu.IndexFormatUint16, indexOffset, uint64(len(cmd.Indices)*2))
		pass.DrawIndexed(uint32(len(cmd.Indices)), 1, 0, 0, 0)
		return
	}
	pass.Draw(uint32(cmd.VertexCount()), 1, 0, 0)
}

func (b *wgpuRendererBackendImpl) variantFor(target PassTarget, cmd DrawCommand) pipelineVariant {
	v := pipelineVariant{
		key:      cmd.Pipeline,
		features: featuresFor(cmd),
		samples:  1,
	}
	switch target.Kind {
	case ShadowMapPass:
		v.colorFormat = wgpu.TextureFormatUndefined
		v.depthFormat = shadowDepthFormat
	case CubeFacePass:
		v.colorFormat = cubeTextureFormat(target.CubeMap.Format)
		v.depthFormat = shadowDepthFormat
	default:
		v.colorFormat = b.surfaceFormat
		v.depthFormat = mainDepthFormat
		v.samples = uint32(b.sampleCount)
	}
	return v
}

// buildPipeline creates the GPU pipeline for a variant. It runs under b.mu, via the cache.
func (b *wgpuRendererBackendImpl) buildPipeline(v pipelineVariant) (pipeline.Pipeline, error) {
	program := programFor(v.key.Output)
	s, err := b.shaders.Shader(program, v.features)
	if err != nil {
		return nil, errors.New("building shader variant failed").WithType(ErrTypeGPU).Wrap(err)
	}

	module, ok := b.modules[s.Key()]
	if !ok {
		module, err = b.device.CreateShaderModule(s.Module())
		if err != nil {
			return nil, errors.New("compiling shader failed").WithType(ErrTypeGPU).WithTag("shader", s.Key()).Wrap(err)
		}
		b.modules[s.Key()] = module
	}

	layout := b.depthLayout
	if program == shader.ProgramSurface {
		layout = b.surfaceLayout
	}

	p := pipeline.NewPipeline(s.Key(), pipelineOptions(v, s)...)
	created, err := b.device.CreateRenderPipeline(p.Descriptor(module, layout))
	if err != nil {
		return nil, errors.New("creating render pipeline failed").WithType(ErrTypeGPU).WithTag("shader", s.Key()).Wrap(err)
	}
	p.SetRenderPipeline(created)
	logs.WithTag("shader", s.Key()).WithTag("primitive", v.key.Primitive).Debug("render pipeline created")
	return p, nil
}

func (b *wgpuRendererBackendImpl) materialGroup(m material.Material) (*wgpu.BindGroup, error) {
	base, normal := b.fallbackWhite, b.fallbackNormal
	var key [2]uuid.UUID
	if m != nil {
		if ref := m.BaseTexture(); ref != nil && ref.IsResident() {
			if view, ok := b.textures[ref.ID()]; ok {
				base, key[0] = view, ref.ID()
			}
		}
		if ref := m.NormalTexture(); ref != nil && ref.IsResident() {
			if view, ok := b.textures[ref.ID()]; ok {
				normal, key[1] = view, ref.ID()
			}
		}
	}
	if g, ok := b.materialGroups[key]; ok {
		return g, nil
	}
	g, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Material Bind Group",
		Layout: b.materialLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: base},
			{Binding: 1, TextureView: normal},
			{Binding: 2, Sampler: b.surfaceSampler},
		},
	})
	if err != nil {
		return nil, errors.New("creating material bind group failed").WithType(ErrTypeGPU).Wrap(err)
	}
	b.materialGroups[key] = g
	return g, nil
}

func (b *wgpuRendererBackendImpl) shadowGroup(cmd DrawCommand) (*wgpu.BindGroup, error) {
	var key shadowBindingKey
	depth := b.fallbackDepth
	if cmd.ShadowMapCount > 0 && cmd.ShadowMap != nil {
		if sm, ok := b.shadowMaps[cmd.ShadowMap.ID]; ok {
			depth, key.shadowMap = sm.view, cmd.ShadowMap.ID
		}
	}
	var cubes [MaxOmniShadowMaps]*wgpu.TextureView
	for i := range cubes {
		cubes[i] = b.fallbackCube
		if i >= cmd.OmniShadowCount || cmd.OmniShadowMaps[i] == nil {
			continue
		}
		if cm, ok := b.cubeMaps[cmd.OmniShadowMaps[i].ID]; ok && cm.format == wgpu.TextureFormatR32Float {
			cubes[i], key.omni[i] = cm.cubeView, cmd.OmniShadowMaps[i].ID
		}
	}
	if g, ok := b.shadowGroups[key]; ok {
		return g, nil
	}

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, TextureView: depth},
		{Binding: 1, Sampler: b.comparisonSampler},
	}
	for i, view := range cubes {
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(2 + i), TextureView: view})
	}
	entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(2 + MaxOmniShadowMaps), Sampler: b.distanceSampler})

	g, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Shadow Bind Group",
		Layout:  b.shadowLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, errors.New("creating shadow bind group failed").WithType(ErrTypeGPU).Wrap(err)
	}
	b.shadowGroups[key] = g
	return g, nil
}

// featuresFor derives the shader features a draw needs from its vertex layout, material and
// bound shadow maps. Depth and distance programs only read positions.
func featuresFor(cmd DrawCommand) shader.Feature {
	if cmd.Pipeline.Output != FragmentColor {
		return 0
	}

	var f shader.Feature
	switch cmd.Pipeline.Spec {
	case PositionTex:
		f |= shader.FeatureTexCoord
	case PositionNormalTex:
		f |= shader.FeatureNormal | shader.FeatureTexCoord
	case PositionNormalTexTangent:
		f |= shader.FeatureNormal | shader.FeatureTexCoord | shader.FeatureTangent
	case PositionColor:
		f |= shader.FeatureColor
	}

	if m := cmd.Material; m != nil {
		if m.BaseTexture() != nil && f.Has(shader.FeatureTexCoord) {
			f |= shader.FeatureBaseTexture
		}
		if m.NormalTexture() != nil && f.Has(shader.FeatureTangent) {
			f |= shader.FeatureNormalMap
		}
		if m.IsEmissive() {
			f |= shader.FeatureEmissive
		}
	}
	if f.Has(shader.FeatureNormal) {
		if cmd.ShadowMapCount > 0 {
			f |= shader.FeatureShadows
		}
		if cmd.OmniShadowCount > 0 {
			f |= shader.FeatureOmniShadows
		}
	}
	return f
}

func programFor(o RendererOutput) shader.Program {
	switch o {
	case DepthOnly:
		return shader.ProgramShadowDepth
	case CameraDistance:
		return shader.ProgramCameraDistance
	default:
		return shader.ProgramSurface
	}
}

func pipelineOptions(v pipelineVariant, s shader.Shader) []pipeline.PipelineBuilderOption {
	opts := []pipeline.PipelineBuilderOption{
		pipeline.WithShader(s),
		pipeline.WithVertexLayouts(vertexLayout(v.key.Spec, v.features)),
		pipeline.WithColorTarget(v.colorFormat),
		pipeline.WithDepthFormat(v.depthFormat),
		pipeline.WithSampleCount(v.samples),
		pipeline.WithTopology(topologyFor(v.key.Primitive)),
		pipeline.WithFrontFace(frontFaceFor(v.key.FrontFace)),
		pipeline.WithCullMode(cullModeFor(v.key.CullMode)),
		pipeline.WithDepthTestEnabled(v.key.DepthTest),
		pipeline.WithDepthWriteEnabled(v.key.DepthWrite),
		pipeline.WithBlendState(blendStateFor(v.key.Blend)),
	}
	if v.key.Primitive == TriangleStrip || v.key.Primitive == LineStrip {
		opts = append(opts, pipeline.WithStripIndexFormat(wgpu.IndexFormatUint16))
	}
	if v.key.Output == DepthOnly {
		opts = append(opts, pipeline.WithDepthBias(2, 2))
	}
	return opts
}

// vertexLayout describes spec's interleaved vertices, exposing only the attributes the shader
// variant declares.
func vertexLayout(spec VertexSpec, features shader.Feature) wgpu.VertexBufferLayout {
	attrs := []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}}
	add := func(f shader.Feature, format wgpu.VertexFormat, offset uint64, location uint32) {
		if features.Has(f) {
			attrs = append(attrs, wgpu.VertexAttribute{Format: format, Offset: offset, ShaderLocation: location})
		}
	}
	switch spec {
	case PositionTex:
		add(shader.FeatureTexCoord, wgpu.VertexFormatFloat32x2, 12, 2)
	case PositionNormalTex:
		add(shader.FeatureNormal, wgpu.VertexFormatFloat32x3, 12, 1)
		add(shader.FeatureTexCoord, wgpu.VertexFormatFloat32x2, 24, 2)
	case PositionNormalTexTangent:
		add(shader.FeatureNormal, wgpu.VertexFormatFloat32x3, 12, 1)
		add(shader.FeatureTexCoord, wgpu.VertexFormatFloat32x2, 24, 2)
		add(shader.FeatureTangent, wgpu.VertexFormatFloat32x3, 32, 3)
	case PositionColor:
		add(shader.FeatureColor, wgpu.VertexFormatFloat32x4, 12, 4)
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: uint64(spec.Stride() * 4),
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}
}

func topologyFor(p PrimitiveType) wgpu.PrimitiveTopology {
	switch p {
	case TriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case Lines:
		return wgpu.PrimitiveTopologyLineList
	case LineStrip:
		return wgpu.PrimitiveTopologyLineStrip
	case Points:
		return wgpu.PrimitiveTopologyPointList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func frontFaceFor(f FrontFace) wgpu.FrontFace {
	if f == FrontFaceCW {
		return wgpu.FrontFaceCW
	}
	return wgpu.FrontFaceCCW
}

func cullModeFor(c CullMode) wgpu.CullMode {
	switch c {
	case CullFront:
		return wgpu.CullModeFront
	case CullNone:
		return wgpu.CullModeNone
	default:
		return wgpu.CullModeBack
	}
}

func blendStateFor(m material.BlendMode) *wgpu.BlendState {
	switch m {
	case material.AlphaBlend:
		return pipeline.AlphaBlend()
	case material.AdditiveBlend:
		return pipeline.AdditiveBlend()
	case material.PremultipliedAlphaBlend:
		return pipeline.PremultipliedBlend()
	default:
		return nil
	}
}

func cubeTextureFormat(f CubeMapFormat) wgpu.TextureFormat {
	if f == CubeMapColor {
		return wgpu.TextureFormatRGBA8Unorm
	}
	return wgpu.TextureFormatR32Float
}

func align(n, to int) int {
	return (n + to - 1) / to * to
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
