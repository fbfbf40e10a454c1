package texture

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/google/uuid"
)

// Status is the residency state of a Texture.
type Status int32

const (
	// NotLoaded textures have no pixel data anywhere.
	NotLoaded Status = iota
	// Loading textures have a decode job queued or running.
	Loading
	// Decoded textures have pixels waiting for the next upload pass.
	Decoded
	// Resident textures are on the GPU and may be bound.
	Resident
	// LoadFailed textures could not be decoded or uploaded. They are not retried.
	LoadFailed
)

func (s Status) String() string {
	switch s {
	case NotLoaded:
		return "not_loaded"
	case Loading:
		return "loading"
	case Decoded:
		return "decoded"
	case Resident:
		return "resident"
	case LoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

// AddressMode selects how texture coordinates outside [0, 1] are treated.
type AddressMode int

const (
	// Wrap repeats the texture.
	Wrap AddressMode = iota
	// Clamp stretches the edge texels. Map tiles use Clamp so neighbouring tiles do not bleed.
	Clamp
)

// Properties are the sampling hints a texture is loaded with.
type Properties struct {
	AddressMode   AddressMode
	MaxAnisotropy int
}

// Texture is a handle to image data that is loaded on demand. It satisfies
// material.TextureRef, so materials can reference it before the pixels arrive.
type Texture struct {
	id     uuid.UUID
	name   string
	props  Properties
	loader *loader

	status   atomic.Int32
	width    atomic.Uint32
	height   atomic.Uint32
	lastUsed atomic.Int64
}

var _ material.TextureRef = &Texture{}

func newTexture(l *loader, name string, props Properties) *Texture {
	return &Texture{
		id:     uuid.New(),
		name:   name,
		props:  props,
		loader: l,
	}
}

func (t *Texture) ID() uuid.UUID {
	return t.id
}

func (t *Texture) IsResident() bool {
	return t.Status() == Resident
}

// Name returns the resource name the texture was loaded from.
func (t *Texture) Name() string {
	return t.name
}

// Properties returns the sampling hints.
func (t *Texture) Properties() Properties {
	return t.props
}

// Status returns the current residency state.
func (t *Texture) Status() Status {
	return Status(t.status.Load())
}

// Size returns the texel dimensions, or zeros before the texture has been decoded.
func (t *Texture) Size() (width, height uint32) {
	return t.width.Load(), t.height.Load()
}

// MemoryUsage returns the bytes of GPU memory the texture occupies while resident.
func (t *Texture) MemoryUsage() uint64 {
	if !t.IsResident() {
		return 0
	}
	w, h := t.Size()
	return uint64(w) * uint64(h) * 4
}

// LastUsed returns the loader frame in which MakeResident was last called on the texture.
func (t *Texture) LastUsed() int64 {
	return t.lastUsed.Load()
}

// MakeResident requests the texture's pixel data. See Loader.MakeResident.
//
// Returns:
//   - bool: true if the texture is resident now
func (t *Texture) MakeResident() bool {
	if t.loader == nil {
		return t.IsResident()
	}
	return t.loader.MakeResident(t)
}

func (t *Texture) transition(from, to Status) bool {
	return t.status.CompareAndSwap(int32(from), int32(to))
}

func (t *Texture) setStatus(s Status) {
	t.status.Store(int32(s))
}
