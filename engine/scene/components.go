package scene

import (
	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Body names an entity and holds the geometry drawn for it. Geometry may be nil for bodies
// that only anchor orbits or lights.
type Body struct {
	Name     string
	Geometry geometry.Geometry
}

// Position is the heliocentric position of an entity in kilometers.
type Position struct {
	r3.Vec
}

// Orientation is the rotation from body space to world space.
type Orientation struct {
	quat.Number
}

// Orbit places an entity on a Keplerian orbit around Parent. Angles are radians, the semi-major
// axis is kilometers and the period is seconds. The reference plane is the world XZ plane with
// +Y as the ecliptic pole.
type Orbit struct {
	Parent ecs.Entity

	SemiMajorAxis       float64
	Eccentricity        float64
	Inclination         float64
	AscendingNode       float64
	ArgumentOfPeriapsis float64
	MeanAnomalyAtEpoch  float64
	Period              float64
}

// Spin rotates an entity about its pole. Tilt takes the body's +Y pole into world space.
type Spin struct {
	Tilt         quat.Number
	Period       float64
	PhaseAtEpoch float64
}

// Emitter makes an entity a light source. Radius is the radius of the emitting surface.
type Emitter struct {
	Light  light.LightSource
	Radius float64
}
