package material

import "github.com/google/uuid"

// BlendMode selects how a surface's color combines with what is already in the framebuffer.
type BlendMode int

const (
	// Opaque replaces the destination color.
	Opaque BlendMode = iota
	// AlphaBlend mixes by source alpha.
	AlphaBlend
	// AdditiveBlend adds source color scaled by alpha. Used for atmospheres and glare.
	AdditiveBlend
	// PremultipliedAlphaBlend expects color already multiplied by alpha.
	PremultipliedAlphaBlend
)

// TextureRef identifies a texture the backend may or may not have uploaded yet. Backends
// substitute a neutral texture for references that are not resident.
type TextureRef interface {
	// ID returns the stable handle the backend uses to look up uploaded texture data.
	ID() uuid.UUID

	// IsResident reports whether the pixel data has been uploaded to the GPU.
	IsResident() bool
}

// OnDemandTexture is a TextureRef that loads its pixels when first asked for them.
type OnDemandTexture interface {
	TextureRef

	// MakeResident requests the pixel data and reports whether the texture is resident now.
	MakeResident() bool
}

// RequestResident asks an on-demand texture to load and reports whether ref can be bound. A nil
// ref is never resident.
//
// Parameters:
//   - ref: the texture, may be nil
//
// Returns:
//   - bool: true if the texture is resident
func RequestResident(ref TextureRef) bool {
	if ref == nil {
		return false
	}
	if od, ok := ref.(OnDemandTexture); ok {
		return od.MakeResident()
	}
	return ref.IsResident()
}

// material is the implementation of the Material interface.
type material struct {
	name          string
	diffuse       [3]float32
	opacity       float32
	specular      [3]float32
	specularPower float32
	emission      [3]float32
	blendMode     BlendMode
	baseTexture   TextureRef
	normalTexture TextureRef
	emissive      bool
}

// Material defines the interface for a render material, encapsulating surface
// properties and texture references needed for draw calls.
//
// Materials are immutable once built. Use Derive to produce a variant that differs
// only in a few properties, e.g. the base texture of one quadtree tile.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// Diffuse retrieves the diffuse reflectance color.
	//
	// Returns:
	//   - [3]float32: the diffuse color as RGB values
	Diffuse() [3]float32

	// Opacity retrieves the surface opacity. A value below 1 makes the material translucent.
	//
	// Returns:
	//   - float32: the opacity in [0, 1]
	Opacity() float32

	// Specular retrieves the specular reflectance color.
	//
	// Returns:
	//   - [3]float32: the specular color as RGB values
	Specular() [3]float32

	// SpecularPower retrieves the Phong exponent.
	//
	// Returns:
	//   - float32: the specular power
	SpecularPower() float32

	// Emission retrieves the emitted color, added regardless of lighting.
	//
	// Returns:
	//   - [3]float32: the emission color as RGB values
	Emission() [3]float32

	// BlendMode retrieves how the material blends with the framebuffer.
	//
	// Returns:
	//   - BlendMode: the blend mode
	BlendMode() BlendMode

	// BaseTexture retrieves the base color texture, or nil if none is set.
	//
	// Returns:
	//   - TextureRef: the base texture, or nil
	BaseTexture() TextureRef

	// NormalTexture retrieves the tangent-space normal map, or nil if none is set.
	//
	// Returns:
	//   - TextureRef: the normal texture, or nil
	NormalTexture() TextureRef

	// IsEmissive reports whether the material ignores lighting entirely.
	//
	// Returns:
	//   - bool: true for self-luminous surfaces such as stars
	IsEmissive() bool

	// IsOpaque reports whether the material can be drawn in the opaque pass.
	//
	// Returns:
	//   - bool: true when opacity is 1 and blending is off
	IsOpaque() bool
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		diffuse:       [3]float32{1, 1, 1},
		opacity:       1,
		specularPower: 1,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Derive copies base and applies options to the copy. A nil base starts from the defaults.
//
// Parameters:
//   - base: the material to copy
//   - options: options applied to the copy
//
// Returns:
//   - Material: the derived material
func Derive(base Material, options ...MaterialBuilderOption) Material {
	if base == nil {
		return NewMaterial(options...)
	}
	m := &material{
		name:          base.Name(),
		diffuse:       base.Diffuse(),
		opacity:       base.Opacity(),
		specular:      base.Specular(),
		specularPower: base.SpecularPower(),
		emission:      base.Emission(),
		blendMode:     base.BlendMode(),
		baseTexture:   base.BaseTexture(),
		normalTexture: base.NormalTexture(),
		emissive:      base.IsEmissive(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Diffuse() [3]float32 {
	return m.diffuse
}

func (m *material) Opacity() float32 {
	return m.opacity
}

func (m *material) Specular() [3]float32 {
	return m.specular
}

func (m *material) SpecularPower() float32 {
	return m.specularPower
}

func (m *material) Emission() [3]float32 {
	return m.emission
}

func (m *material) BlendMode() BlendMode {
	return m.blendMode
}

func (m *material) BaseTexture() TextureRef {
	return m.baseTexture
}

func (m *material) NormalTexture() TextureRef {
	return m.normalTexture
}

func (m *material) IsEmissive() bool {
	return m.emissive
}

func (m *material) IsOpaque() bool {
	return m.opacity >= 1 && m.blendMode == Opaque
}
