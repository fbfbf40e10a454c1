package geometry

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"gonum.org/v1/gonum/spatial/r3"
)

// eyePosition returns the camera position in the local frame of the current model view.
func eyePosition(mv common.Mat4) r3.Vec {
	var inv common.Mat4
	if !common.Invert4(inv[:], mv[:]) {
		return r3.Vec{}
	}
	return r3.Vec{X: float64(inv[12]), Y: float64(inv[13]), Z: float64(inv[14])}
}

// localCullingPlanes expresses the frustum, cut at near and far, in the local frame of mv.
func localCullingPlanes(mv common.Mat4, f common.Frustum, near, far float64) common.CullingPlaneSet {
	f.NearZ = near
	planes := f.CullingPlanes(far)
	for i := range planes.Planes {
		planes.Planes[i] = planes.Planes[i].ToLocal(mv)
	}
	return planes
}

// HorizonDistance returns an upper bound on the distance from eye to the horizon of an
// ellipsoid, or 0 when the eye is inside it.
//
// Parameters:
//   - eye: the eye position in the ellipsoid frame
//   - semiAxes: the ellipsoid semi-axes
//
// Returns:
//   - float64: the horizon distance
func HorizonDistance(eye, semiAxes r3.Vec) float64 {
	altitude := r3.Norm(eye) - common.MinComponent(semiAxes)
	if altitude <= 0 {
		return 0
	}
	r := common.MaxComponent(semiAxes)
	return math.Sqrt((2*r + altitude) * altitude)
}

// ShellDistance returns the distance to the farthest visible point of a shell of the given
// height around an ellipsoid. Shells are hidden (distance 0) when the eye is inside the ellipsoid.
//
// Parameters:
//   - eye: the eye position in the ellipsoid frame
//   - semiAxes: the ellipsoid semi-axes
//   - height: the shell height above the largest semi-axis
//
// Returns:
//   - float64: the distance
func ShellDistance(eye, semiAxes r3.Vec, height float64) float64 {
	planetRadius := common.MaxComponent(semiAxes)
	shellRadius := planetRadius + height
	shellAxes := r3.Scale(shellRadius/planetRadius, semiAxes)

	planetAltitude := r3.Norm(eye) - common.MinComponent(semiAxes)
	shellAltitude := r3.Norm(eye) - common.MinComponent(shellAxes)

	switch {
	case shellAltitude > 0:
		r := common.MaxComponent(shellAxes)
		return math.Sqrt((2*r + shellAltitude) * shellAltitude)
	case planetAltitude > 0:
		r := planetRadius
		horizon := math.Sqrt((2*r + planetAltitude) * planetAltitude)
		return horizon + math.Sqrt(max(0, shellRadius*shellRadius-planetRadius*planetRadius))
	default:
		return 0
	}
}
