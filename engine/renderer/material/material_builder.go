package material

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithDiffuse is an option builder that sets the diffuse RGB color of the material.
//
// Parameters:
//   - color: the diffuse color as RGB float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the diffuse option to a material
func WithDiffuse(color [3]float32) MaterialBuilderOption {
	return func(m *material) {
		m.diffuse = color
	}
}

// WithOpacity is an option builder that sets the opacity of the material. Values below 1
// switch the blend mode to AlphaBlend unless a blend mode was already chosen.
//
// Parameters:
//   - opacity: the opacity in [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the opacity option to a material
func WithOpacity(opacity float32) MaterialBuilderOption {
	return func(m *material) {
		m.opacity = opacity
		if opacity < 1 && m.blendMode == Opaque {
			m.blendMode = AlphaBlend
		}
	}
}

// WithSpecular is an option builder that sets the specular color and exponent.
//
// Parameters:
//   - color: the specular color as RGB float32 values
//   - power: the Phong exponent
//
// Returns:
//   - MaterialBuilderOption: a function that applies the specular option to a material
func WithSpecular(color [3]float32, power float32) MaterialBuilderOption {
	return func(m *material) {
		m.specular = color
		m.specularPower = power
	}
}

// WithEmission is an option builder that sets the emitted color.
//
// Parameters:
//   - color: the emission color as RGB float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emission option to a material
func WithEmission(color [3]float32) MaterialBuilderOption {
	return func(m *material) {
		m.emission = color
	}
}

// WithEmissive marks the material as self-luminous so lighting is skipped.
//
// Parameters:
//   - emissive: true to ignore lighting
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive option to a material
func WithEmissive(emissive bool) MaterialBuilderOption {
	return func(m *material) {
		m.emissive = emissive
	}
}

// WithBlendMode is an option builder that sets how the material blends with the framebuffer.
//
// Parameters:
//   - mode: the BlendMode
//
// Returns:
//   - MaterialBuilderOption: a function that applies the blend mode option to a material
func WithBlendMode(mode BlendMode) MaterialBuilderOption {
	return func(m *material) {
		m.blendMode = mode
	}
}

// WithBaseTexture is an option builder that sets the base color texture.
//
// Parameters:
//   - tex: the base texture reference
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base texture option to a material
func WithBaseTexture(tex TextureRef) MaterialBuilderOption {
	return func(m *material) {
		m.baseTexture = tex
	}
}

// WithNormalTexture is an option builder that sets the tangent-space normal map.
//
// Parameters:
//   - tex: the normal texture reference
//
// Returns:
//   - MaterialBuilderOption: a function that applies the normal texture option to a material
func WithNormalTexture(tex TextureRef) MaterialBuilderOption {
	return func(m *material) {
		m.normalTexture = tex
	}
}
