package scene

import (
	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
)

// UniverseBuilderOption is a functional option for configuring a Universe.
// Use the With* functions to create options.
type UniverseBuilderOption func(u *Universe)

// WithTimeScale sets the number of simulated seconds per wall-clock second.
//
// Parameters:
//   - scale: the time scale, 1 for real time
//
// Returns:
//   - UniverseBuilderOption: option function to apply
func WithTimeScale(scale float64) UniverseBuilderOption {
	return func(u *Universe) {
		u.timeScale = scale
	}
}

// WithStartTime sets the initial simulation time.
//
// Parameters:
//   - t: seconds since the epoch
//
// Returns:
//   - UniverseBuilderOption: option function to apply
func WithStartTime(t float64) UniverseBuilderOption {
	return func(u *Universe) {
		u.time = t
	}
}

// WithSkyLayers adds sky layers drawn behind every body.
//
// Parameters:
//   - layers: the layers
//
// Returns:
//   - UniverseBuilderOption: option function to apply
func WithSkyLayers(layers ...geometry.SkyLayer) UniverseBuilderOption {
	return func(u *Universe) {
		u.skyLayers = append(u.skyLayers, layers...)
	}
}
