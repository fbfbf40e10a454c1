package light

// DefaultShadowMapSize is the default width and height in texels of the directional shadow map.
const DefaultShadowMapSize = 2048

// DefaultOmniShadowMapSize is the default face size in texels of omnidirectional shadow cube maps.
const DefaultOmniShadowMapSize = 1024

// OmniShadowClearDistance is the value distance cube maps are cleared to. Texels no caster
// touched compare as unshadowed at any receiver distance.
const OmniShadowClearDistance = 1.0e15

// OmniShadowNearRatio is the near plane of an omni shadow face projection as a fraction of the
// light's range.
const OmniShadowNearRatio = 1.0e-4

// SolarRadius is the radius in kilometers given to the default Sun.
const SolarRadius = 6.96e5

// Attenuation returns the quadratic attenuation factor of a point light. Light falls to about
// 1/257 of its intensity at the edge of the range.
//
// Parameters:
//   - lightRange: the range of the light
//
// Returns:
//   - float32: the attenuation factor, or 0 for a non-positive range
func Attenuation(lightRange float64) float32 {
	if lightRange <= 0 {
		return 0
	}
	return float32(1 / (256 * lightRange * lightRange))
}
