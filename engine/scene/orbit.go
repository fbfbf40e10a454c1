package scene

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	keplerIterations = 16
	keplerTolerance  = 1e-12
)

// eclipticToWorld maps the ecliptic frame (pole +Z) onto the world frame (pole +Y).
var eclipticToWorld = common.AxisAngle(r3.Vec{X: 1}, -math.Pi/2)

// EccentricAnomaly solves Kepler's equation M = E - e·sin(E) for E with Newton iteration.
// Eccentricity must be in [0, 1).
//
// Parameters:
//   - meanAnomaly: M in radians
//   - eccentricity: e
//
// Returns:
//   - float64: E in radians
func EccentricAnomaly(meanAnomaly, eccentricity float64) float64 {
	m := math.Remainder(meanAnomaly, 2*math.Pi)
	e := m
	if eccentricity > 0.8 {
		e = math.Pi
		if m < 0 {
			e = -math.Pi
		}
	}
	for range keplerIterations {
		step := (e - eccentricity*math.Sin(e) - m) / (1 - eccentricity*math.Cos(e))
		e -= step
		if math.Abs(step) < keplerTolerance {
			break
		}
	}
	return e
}

// PositionAt returns the position of the orbiting body relative to its parent at time t.
//
// Parameters:
//   - t: seconds since the epoch
//
// Returns:
//   - r3.Vec: the offset from the parent in kilometers
func (o Orbit) PositionAt(t float64) r3.Vec {
	meanAnomaly := o.MeanAnomalyAtEpoch
	if o.Period > 0 {
		meanAnomaly += 2 * math.Pi * t / o.Period
	}
	ecc := common.Clamp(o.Eccentricity, 0, 0.999999)
	ea := EccentricAnomaly(meanAnomaly, ecc)

	inPlane := r3.Vec{
		X: o.SemiMajorAxis * (math.Cos(ea) - ecc),
		Y: o.SemiMajorAxis * math.Sqrt(1-ecc*ecc) * math.Sin(ea),
	}
	return common.Rotate(o.frame(), inPlane)
}

// frame is the rotation from the orbital plane into world space.
func (o Orbit) frame() quat.Number {
	q := quat.Mul(common.AxisAngle(r3.Vec{Z: 1}, o.AscendingNode), common.AxisAngle(r3.Vec{X: 1}, o.Inclination))
	q = quat.Mul(q, common.AxisAngle(r3.Vec{Z: 1}, o.ArgumentOfPeriapsis))
	return quat.Mul(eclipticToWorld, q)
}

// OrientationAt returns the body orientation at time t.
//
// Parameters:
//   - t: seconds since the epoch
//
// Returns:
//   - quat.Number: the rotation from body space to world space
func (s Spin) OrientationAt(t float64) quat.Number {
	angle := s.PhaseAtEpoch
	if s.Period != 0 {
		angle += 2 * math.Pi * math.Mod(t/s.Period, 1)
	}
	tilt := s.Tilt
	if tilt == (quat.Number{}) {
		tilt = common.QuatIdentity
	}
	return common.Normalize(quat.Mul(tilt, common.AxisAngle(r3.Vec{Y: 1}, angle)))
}

// State returns the orbit as a trajectory state function. Velocities are central differences.
func (o Orbit) State() geometry.StateFunc {
	h := 1.0
	if o.Period > 0 {
		h = o.Period * 1e-6
	}
	return func(t float64) (r3.Vec, r3.Vec) {
		v := r3.Scale(1/(2*h), r3.Sub(o.PositionAt(t+h), o.PositionAt(t-h)))
		return o.PositionAt(t), v
	}
}
