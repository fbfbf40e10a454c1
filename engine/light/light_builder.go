package light

// LightBuilderOption is a function that configures a LightSource during construction.
type LightBuilderOption func(*lightSourceImpl)

// WithSpectrum is an option builder that sets the color of the emitted light.
//
// Parameters:
//   - r: the red component
//   - g: the green component
//   - b: the blue component
//
// Returns:
//   - LightBuilderOption: a function that applies the spectrum option to a lightSourceImpl
func WithSpectrum(r, g, b float32) LightBuilderOption {
	return func(l *lightSourceImpl) {
		l.spectrum = Spectrum{r, g, b}
	}
}

// WithLuminosity is an option builder that sets the luminosity in solar units.
//
// Parameters:
//   - luminosity: the luminosity
//
// Returns:
//   - LightBuilderOption: a function that applies the luminosity option to a lightSourceImpl
func WithLuminosity(luminosity float64) LightBuilderOption {
	return func(l *lightSourceImpl) {
		l.luminosity = luminosity
	}
}

// WithRange is an option builder that sets the distance beyond which a point light has no effect.
// Negative values are treated as zero.
//
// Parameters:
//   - lightRange: the range in kilometers
//
// Returns:
//   - LightBuilderOption: a function that applies the range option to a lightSourceImpl
func WithRange(lightRange float64) LightBuilderOption {
	return func(l *lightSourceImpl) {
		l.lightRange = max(lightRange, 0)
	}
}

// WithShadowCaster is an option builder that sets whether the light casts shadows.
//
// Parameters:
//   - castsShadows: true to enable shadow casting
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow option to a lightSourceImpl
func WithShadowCaster(castsShadows bool) LightBuilderOption {
	return func(l *lightSourceImpl) {
		l.shadowCaster = castsShadows
	}
}
