package renderer

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/google/uuid"
)

// RecordedPass is one pass captured by a RecordingBackend together with the draws encoded into it.
type RecordedPass struct {
	Target PassTarget
	Draws  []DrawCommand
}

// RecordingBackend is a headless RendererBackend that keeps every pass and draw of the
// current frame in memory. It backs headless runs and lets tests assert on the exact
// sequence of work a frame produced.
type RecordingBackend struct {
	mu *sync.Mutex

	caps       Capabilities
	failShadow bool
	failCube   bool

	nextID   int
	frames   int
	inFrame  bool
	passOpen bool
	passes   []RecordedPass
	textures map[uuid.UUID]common.TextureStagingData

	occlusionSamples uint64
	queries          map[int]*recordedQuery

	width, height int
}

// recordedQuery tracks one occlusion query. Draws issued under it during a frame make it
// pending; the result appears when that frame ends.
type recordedQuery struct {
	pending   bool
	available bool
	samples   uint64
}

var _ RendererBackend = &RecordingBackend{}

// NewRecordingBackend creates a RecordingBackend reporting full capabilities.
//
// Returns:
//   - *RecordingBackend: the backend
func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{
		mu: &sync.Mutex{},
		caps: Capabilities{
			Shaders:          true,
			Framebuffers:     true,
			OcclusionQueries: true,
			MaxTextureSize:   8192,
		},
		textures:         make(map[uuid.UUID]common.TextureStagingData),
		occlusionSamples: math.MaxUint32,
		queries:          make(map[int]*recordedQuery),
	}
}

// SetOcclusionSamples sets the sample count reported for queries whose draws finish after this
// call. The default reports every sample as passing; zero reports a fully occluded draw.
//
// Parameters:
//   - samples: the count to report
func (b *RecordingBackend) SetOcclusionSamples(samples uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.occlusionSamples = samples
}

// SetCapabilities overrides the capabilities reported by the backend.
//
// Parameters:
//   - caps: the capabilities to report
func (b *RecordingBackend) SetCapabilities(caps Capabilities) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caps = caps
}

// FailResourceCreation makes subsequent CreateShadowMap and CreateCubeMap calls return nil.
//
// Parameters:
//   - shadow: fail shadow map creation
//   - cube: fail cube map creation
func (b *RecordingBackend) FailResourceCreation(shadow, cube bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failShadow = shadow
	b.failCube = cube
}

func (b *RecordingBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passes = b.passes[:0]
	b.inFrame = true
	return nil
}

func (b *RecordingBackend) BeginPass(target PassTarget) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.passOpen {
		panic("renderer: BeginPass called while a pass is open")
	}
	b.passOpen = true
	b.passes = append(b.passes, RecordedPass{Target: target})
}

func (b *RecordingBackend) Draw(cmd DrawCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.passOpen {
		panic("renderer: Draw called outside of a pass")
	}
	last := &b.passes[len(b.passes)-1]
	last.Draws = append(last.Draws, cmd)
	if cmd.OcclusionQuery != nil {
		if q, ok := b.queries[cmd.OcclusionQuery.ID]; ok {
			q.pending = true
			q.available = false
		}
	}
}

func (b *RecordingBackend) EndPass() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passOpen = false
}

func (b *RecordingBackend) EndFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFrame = false
	b.frames++
	for _, q := range b.queries {
		if q.pending {
			q.pending = false
			q.available = true
			q.samples = b.occlusionSamples
		}
	}
}

func (b *RecordingBackend) Present() {}

func (b *RecordingBackend) CreateShadowMap(size int) *ShadowMap {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failShadow || size <= 0 {
		return nil
	}
	b.nextID++
	return &ShadowMap{ID: b.nextID, Size: size}
}

func (b *RecordingBackend) CreateCubeMap(size int, format CubeMapFormat) *CubeMap {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failCube || size <= 0 {
		return nil
	}
	b.nextID++
	return &CubeMap{ID: b.nextID, Size: size, Format: format}
}

func (b *RecordingBackend) CreateOcclusionQuery() *OcclusionQuery {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.caps.OcclusionQueries {
		return nil
	}
	b.nextID++
	b.queries[b.nextID] = &recordedQuery{}
	return &OcclusionQuery{ID: b.nextID}
}

func (b *RecordingBackend) OcclusionResult(q *OcclusionQuery) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q == nil {
		return 0, false
	}
	rq, ok := b.queries[q.ID]
	if !ok || !rq.available {
		return 0, false
	}
	return rq.samples, true
}

func (b *RecordingBackend) UploadTexture(id uuid.UUID, data common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.textures[id] = data
	return nil
}

func (b *RecordingBackend) ReleaseTexture(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.textures, id)
}

func (b *RecordingBackend) Capabilities() Capabilities {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.caps
}

func (b *RecordingBackend) Resize(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = width, height
}

func (b *RecordingBackend) SetPresentMode(PresentMode) {}

// Passes returns a copy of the passes recorded in the current (or most recent) frame.
//
// Returns:
//   - []RecordedPass: the recorded passes in submission order
func (b *RecordingBackend) Passes() []RecordedPass {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedPass, len(b.passes))
	copy(out, b.passes)
	return out
}

// PassesOfKind returns the recorded passes whose target kind matches kind.
//
// Parameters:
//   - kind: the pass kind to filter on
//
// Returns:
//   - []RecordedPass: the matching passes in submission order
func (b *RecordingBackend) PassesOfKind(kind PassKind) []RecordedPass {
	var out []RecordedPass
	for _, p := range b.Passes() {
		if p.Target.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Draws returns every draw of the recorded frame, flattened across passes.
//
// Returns:
//   - []DrawCommand: the draws in submission order
func (b *RecordingBackend) Draws() []DrawCommand {
	var out []DrawCommand
	for _, p := range b.Passes() {
		out = append(out, p.Draws...)
	}
	return out
}

// Frames returns the number of completed frames.
//
// Returns:
//   - int: the frame count
func (b *RecordingBackend) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// Texture returns the pixels uploaded under id.
//
// Parameters:
//   - id: the texture handle
//
// Returns:
//   - common.TextureStagingData: the uploaded data
//   - bool: false if nothing was uploaded under id
func (b *RecordingBackend) Texture(id uuid.UUID) (common.TextureStagingData, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.textures[id]
	return d, ok
}

// Size returns the most recent size passed to Resize.
//
// Returns:
//   - int: the width in pixels
//   - int: the height in pixels
func (b *RecordingBackend) Size() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}
