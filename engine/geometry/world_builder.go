package geometry

import (
	"github.com/Carmen-Shannon/oxy-astro/engine/quadtree"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
)

// WorldBuilderOption is a function that configures a world during construction.
type WorldBuilderOption func(*worldGeometryImpl)

// WithSurfaceMaterial is an option builder that sets the material of the solid surface.
// An emissive material disables lighting on the surface.
//
// Parameters:
//   - m: the surface material
//
// Returns:
//   - WorldBuilderOption: a function that applies the material option to a worldGeometryImpl
func WithSurfaceMaterial(m material.Material) WorldBuilderOption {
	return func(w *worldGeometryImpl) {
		if m == nil {
			return
		}
		w.material = m
		w.emissive = m.IsEmissive()
	}
}

// WithBaseMap is an option builder that sets the tiled base texture of the surface.
//
// Parameters:
//   - m: the tiled map
//
// Returns:
//   - WorldBuilderOption: a function that applies the base map option to a worldGeometryImpl
func WithBaseMap(m quadtree.TiledMap) WorldBuilderOption {
	return func(w *worldGeometryImpl) {
		w.baseMap = m
	}
}

// WithNormalMap is an option builder that sets the tiled normal map of the surface. It is only
// used together with a base map and on backends with shaders.
//
// Parameters:
//   - m: the tiled map
//
// Returns:
//   - WorldBuilderOption: a function that applies the normal map option to a worldGeometryImpl
func WithNormalMap(m quadtree.TiledMap) WorldBuilderOption {
	return func(w *worldGeometryImpl) {
		w.normalMap = m
	}
}

// WithClouds is an option builder that adds a cloud shell at the given altitude above the
// largest semi-axis, textured with one global texture.
//
// Parameters:
//   - altitude: the cloud altitude in kilometers
//   - texture: the cloud texture
//
// Returns:
//   - WorldBuilderOption: a function that applies the cloud option to a worldGeometryImpl
func WithClouds(altitude float64, texture material.TextureRef) WorldBuilderOption {
	return func(w *worldGeometryImpl) {
		w.cloudAltitude = max(altitude, 0)
		w.cloudTexture = texture
	}
}

// WithTiledClouds is an option builder that adds a cloud shell textured by a tiled map.
//
// Parameters:
//   - altitude: the cloud altitude in kilometers
//   - m: the tiled cloud map
//
// Returns:
//   - WorldBuilderOption: a function that applies the cloud option to a worldGeometryImpl
func WithTiledClouds(altitude float64, m quadtree.TiledMap) WorldBuilderOption {
	return func(w *worldGeometryImpl) {
		w.cloudAltitude = max(altitude, 0)
		w.cloudMap = m
	}
}

// WithAtmosphere is an option builder that adds an atmosphere shell.
//
// Parameters:
//   - height: the atmosphere height in kilometers
//   - color: the scattering color
//
// Returns:
//   - WorldBuilderOption: a function that applies the atmosphere option to a worldGeometryImpl
func WithAtmosphere(height float64, color [3]float32) WorldBuilderOption {
	return func(w *worldGeometryImpl) {
		w.atmosphereHeight = max(height, 0)
		w.atmosphereColor = color
	}
}

// WithRings is an option builder that adds a ring system. Worlds with rings are drawn in both
// the opaque and the translucent pass.
//
// Parameters:
//   - rings: the ring system
//
// Returns:
//   - WorldBuilderOption: a function that applies the rings option to a worldGeometryImpl
func WithRings(rings Rings) WorldBuilderOption {
	return func(w *worldGeometryImpl) {
		if rings.OuterRadius <= rings.InnerRadius {
			return
		}
		w.rings = &rings
	}
}

// WithTessellation is an option builder that sets the tessellation tuning.
//
// Parameters:
//   - opts: the tessellation options
//
// Returns:
//   - WorldBuilderOption: a function that applies the tessellation option to a worldGeometryImpl
func WithTessellation(opts quadtree.TessellateOptions) WorldBuilderOption {
	return func(w *worldGeometryImpl) {
		w.tessellation = opts
	}
}

// WithWorldShadows is an option builder that sets whether the world casts and receives shadows.
func WithWorldShadows(caster, receiver bool) WorldBuilderOption {
	return func(w *worldGeometryImpl) {
		w.shadowCaster = caster
		w.shadowReceiver = receiver
	}
}
