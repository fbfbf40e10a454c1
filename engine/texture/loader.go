package texture

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
)

// Uploader receives decoded textures. renderer.Renderer satisfies it.
type Uploader interface {
	UploadTexture(id uuid.UUID, data common.TextureStagingData) error
	ReleaseTexture(id uuid.UUID)
}

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.Mutex

	source   Source
	uploader Uploader

	pool    worker.DynamicWorkerPool
	workers int
	taskID  atomic.Int64

	cache   map[string]*Texture
	decoded []decodedTexture

	frame      atomic.Int64
	memoryUsed atomic.Uint64
}

type decodedTexture struct {
	tex  *Texture
	data common.TextureStagingData
}

// Loader caches textures by name and moves their pixels from a Source to the GPU. Decoding runs
// on a worker pool; uploads happen when the render thread calls ProcessUploads.
type Loader interface {
	// LoadTexture returns the cached texture for name, creating a not-yet-loaded one on first use.
	// No I/O happens until the texture is made resident.
	//
	// Parameters:
	//   - name: the resource name passed to the Source
	//   - props: sampling hints, ignored when the texture is already cached
	//
	// Returns:
	//   - *Texture: the texture handle
	LoadTexture(name string, props Properties) *Texture

	// Get returns the cached texture for name, or nil.
	Get(name string) *Texture

	// MakeResident marks tex as used this frame and starts loading it if it has never been
	// requested. Failed textures are not retried.
	//
	// Parameters:
	//   - tex: a texture created by this loader
	//
	// Returns:
	//   - bool: true if tex is resident now
	MakeResident(tex *Texture) bool

	// ProcessUploads uploads decoded textures. Must be called from the thread that owns the
	// renderer.
	//
	// Parameters:
	//   - max: the most textures to upload, or all of them when max <= 0
	//
	// Returns:
	//   - int: the number of textures that became resident
	ProcessUploads(max int) int

	// IncrementFrameCount advances the frame counter used to judge how recently textures were used.
	IncrementFrameCount()

	// FrameCount returns the current frame counter.
	FrameCount() int64

	// EvictTextures releases resident textures, least recently used first, until the resident
	// memory is no more than desiredMemory. Textures used in the last mostRecentAllowed frames
	// are never evicted. Evicted textures return to NotLoaded and load again on their next use.
	//
	// Parameters:
	//   - desiredMemory: the target resident size in bytes
	//   - mostRecentAllowed: the number of recent frames whose textures are kept
	//
	// Returns:
	//   - uint64: the resident memory after eviction
	EvictTextures(desiredMemory uint64, mostRecentAllowed int64) uint64

	// TextureMemoryUsed returns the bytes of resident texture memory.
	TextureMemoryUsed() uint64

	// Stats counts the cached textures by status.
	Stats() map[Status]int
}

var _ Loader = &loader{}

// NewLoader creates a Loader reading from source.
//
// Parameters:
//   - source: where encoded images come from
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: the new loader
func NewLoader(source Source, options ...LoaderBuilderOption) Loader {
	l := &loader{
		source:  source,
		workers: max(1, runtime.NumCPU()/2),
		cache:   make(map[string]*Texture),
	}
	for _, option := range options {
		option(l)
	}
	l.pool = worker.NewDynamicWorkerPool(l.workers, 256, 1*time.Second)
	return l
}

func (l *loader) LoadTexture(name string, props Properties) *Texture {
	l.mu.Lock()
	defer l.mu.Unlock()

	if tex, ok := l.cache[name]; ok {
		return tex
	}
	tex := newTexture(l, name, props)
	l.cache[name] = tex
	return tex
}

func (l *loader) Get(name string) *Texture {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache[name]
}

func (l *loader) MakeResident(tex *Texture) bool {
	if tex == nil {
		return false
	}
	tex.lastUsed.Store(l.frame.Load())

	switch tex.Status() {
	case Resident:
		return true
	case NotLoaded:
		if tex.transition(NotLoaded, Loading) {
			l.submitDecode(tex)
		}
	}
	return false
}

func (l *loader) submitDecode(tex *Texture) {
	l.pool.SubmitTask(worker.Task{
		ID: int(l.taskID.Add(1)),
		Do: func() (any, error) {
			data, err := l.decode(tex)
			if err != nil {
				tex.setStatus(LoadFailed)
				logs.WithTag("texture", tex.name).Warn(err)
				return nil, err
			}

			// The size and status must be set before ProcessUploads can see the texture.
			l.mu.Lock()
			tex.width.Store(data.Width)
			tex.height.Store(data.Height)
			tex.setStatus(Decoded)
			l.decoded = append(l.decoded, decodedTexture{tex: tex, data: data})
			l.mu.Unlock()
			return nil, nil
		},
	})
}

func (l *loader) decode(tex *Texture) (common.TextureStagingData, error) {
	if l.source == nil {
		return common.TextureStagingData{}, errors.New("texture loader has no source").
			WithType(ErrTypeTexture).
			WithTag("name", tex.name)
	}
	src, err := l.source.Open(tex.name)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	data, err := src.Decode()
	if err != nil {
		return common.TextureStagingData{}, errors.New("decoding texture failed").
			WithType(ErrTypeTexture).
			WithTag("name", tex.name).
			Wrap(err)
	}
	if data.Width == 0 || data.Height == 0 {
		return common.TextureStagingData{}, errors.New("texture has no texels").
			WithType(ErrTypeTexture).
			WithTag("name", tex.name)
	}
	return data, nil
}

func (l *loader) ProcessUploads(max int) int {
	l.mu.Lock()
	n := len(l.decoded)
	if max > 0 && max < n {
		n = max
	}
	batch := make([]decodedTexture, n)
	copy(batch, l.decoded[:n])
	l.decoded = append(l.decoded[:0], l.decoded[n:]...)
	l.mu.Unlock()

	uploaded := 0
	for _, d := range batch {
		if l.uploader != nil {
			if err := l.uploader.UploadTexture(d.tex.id, d.data); err != nil {
				d.tex.setStatus(LoadFailed)
				logs.WithTag("texture", d.tex.name).Error(err)
				continue
			}
		}
		if !d.tex.transition(Decoded, Resident) {
			continue
		}
		l.memoryUsed.Add(d.tex.MemoryUsage())
		uploaded++
	}
	if uploaded > 0 {
		logs.WithTag("count", uploaded).Debug("textures uploaded")
	}
	return uploaded
}

func (l *loader) IncrementFrameCount() {
	l.frame.Add(1)
}

func (l *loader) FrameCount() int64 {
	return l.frame.Load()
}

func (l *loader) EvictTextures(desiredMemory uint64, mostRecentAllowed int64) uint64 {
	used := l.memoryUsed.Load()
	if used <= desiredMemory {
		return used
	}

	cutoff := l.frame.Load() - mostRecentAllowed
	l.mu.Lock()
	candidates := make([]*Texture, 0, len(l.cache))
	for _, tex := range l.cache {
		if tex.IsResident() && tex.LastUsed() < cutoff {
			candidates = append(candidates, tex)
		}
	}
	l.mu.Unlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].LastUsed() < candidates[j].LastUsed()
	})

	evicted := 0
	for _, tex := range candidates {
		if used <= desiredMemory {
			break
		}
		size := tex.MemoryUsage()
		if !tex.transition(Resident, NotLoaded) {
			continue
		}
		if l.uploader != nil {
			l.uploader.ReleaseTexture(tex.id)
		}
		used = l.memoryUsed.Add(^(size - 1))
		evicted++
	}
	if evicted > 0 {
		logs.WithTag("count", evicted).WithTag("resident_bytes", used).Debug("textures evicted")
	}
	return used
}

func (l *loader) TextureMemoryUsed() uint64 {
	return l.memoryUsed.Load()
}

func (l *loader) Stats() map[Status]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := make(map[Status]int)
	for _, tex := range l.cache {
		stats[tex.Status()]++
	}
	return stats
}
