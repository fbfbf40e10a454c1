package universe

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/engine/light"
)

// RendererBuilderOption is a function that configures a Renderer during construction.
type RendererBuilderOption func(*universeRendererImpl)

// WithShadows is an option builder that enables or disables shadow map rendering. Shadows also
// need shadow maps created with InitializeShadowMaps or InitializeOmniShadowMaps.
//
// Parameters:
//   - enabled: whether shadow passes run
//
// Returns:
//   - RendererBuilderOption: a function that applies the shadows option to a universeRendererImpl
func WithShadows(enabled bool) RendererBuilderOption {
	return func(r *universeRendererImpl) {
		r.shadowsEnabled = enabled
	}
}

// WithSizeCullPixels is an option builder that sets the projected size below which items are
// culled. Negative values are treated as zero.
//
// Parameters:
//   - pixels: the threshold in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size cull option to a universeRendererImpl
func WithSizeCullPixels(pixels float64) RendererBuilderOption {
	return func(r *universeRendererImpl) {
		r.sizeCullPixels = math.Max(0, pixels)
	}
}

// WithAmbientLight is an option builder that sets the ambient light of every view.
func WithAmbientLight(s light.Spectrum) RendererBuilderOption {
	return func(r *universeRendererImpl) {
		r.ambient = s
	}
}

// WithDefaultSun is an option builder that sets the light placed at the origin of every view
// set. A nil light disables the default Sun.
//
// Parameters:
//   - l: the light, normally of type light.Sun
//
// Returns:
//   - RendererBuilderOption: a function that applies the default sun option to a universeRendererImpl
func WithDefaultSun(l light.LightSource) RendererBuilderOption {
	return func(r *universeRendererImpl) {
		r.defaultSun = l
		r.defaultSunEnabled = l != nil
	}
}

// WithSkyLayers is an option builder that enables or disables sky layers.
func WithSkyLayers(enabled bool) RendererBuilderOption {
	return func(r *universeRendererImpl) {
		r.skyLayersEnabled = enabled
	}
}
