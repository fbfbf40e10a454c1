package common

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Plane represents a plane in 3D space using the equation: n·p + d = 0
// where n is the normal and d is the distance from origin.
type Plane struct {
	Normal   r3.Vec
	Distance float64
}

// SignedDistance returns the signed distance from p to the plane. Positive values lie on the
// side the normal points to.
func (p Plane) SignedDistance(point r3.Vec) float64 {
	return r3.Dot(p.Normal, point) + p.Distance
}

// ToLocal re-expresses a plane given in view space in the local space of a model whose
// modelview matrix is mv. Only the rotation and translation parts of mv are used.
func (p Plane) ToLocal(mv Mat4) Plane {
	n := p.Normal
	// Columns of the upper 3x3 are the local axes in view space, so Rᵀn is a dot per column.
	local := r3.Vec{
		X: float64(mv[0])*n.X + float64(mv[1])*n.Y + float64(mv[2])*n.Z,
		Y: float64(mv[4])*n.X + float64(mv[5])*n.Y + float64(mv[6])*n.Z,
		Z: float64(mv[8])*n.X + float64(mv[9])*n.Y + float64(mv[10])*n.Z,
	}
	t := r3.Vec{X: float64(mv[12]), Y: float64(mv[13]), Z: float64(mv[14])}
	return Plane{Normal: local, Distance: r3.Dot(n, t) + p.Distance}
}

// CullingPlaneSet is a convex volume bounded by six planes whose positive half-spaces
// are inside the volume.
type CullingPlaneSet struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// Cull reports whether a sphere lies completely outside the volume.
//
// Parameters:
//   - center: sphere center in the same space as the planes
//   - radius: sphere radius
//
// Returns:
//   - bool: true if any plane has the whole sphere on its negative side
func (c *CullingPlaneSet) Cull(center r3.Vec, radius float64) bool {
	for i := range c.Planes {
		if c.Planes[i].SignedDistance(center) < -radius {
			return true
		}
	}
	return false
}

// Frustum is a view volume in camera space. The camera looks down -z; NearZ and FarZ are
// positive distances. The four side planes pass through the eye and are stored by normal only.
type Frustum struct {
	NearZ        float64
	FarZ         float64
	PlaneNormals [4]r3.Vec // Left, Right, Bottom, Top
}

// Intersects reports whether the sphere is at least partly inside the frustum.
func (f Frustum) Intersects(s BoundingSphere) bool {
	c, r := s.Center, s.Radius
	if c.Z-r > -f.NearZ || c.Z+r < -f.FarZ {
		return false
	}
	for _, n := range f.PlaneNormals {
		if r3.Dot(n, c) <= -r {
			return false
		}
	}
	return true
}

// CullingPlanes returns the six bounding planes of the frustum in camera space with the
// far plane moved to farDistance.
func (f Frustum) CullingPlanes(farDistance float64) CullingPlaneSet {
	var c CullingPlaneSet
	for i, n := range f.PlaneNormals {
		c.Planes[i] = Plane{Normal: n}
	}
	c.Planes[FrustumNear] = Plane{Normal: r3.Vec{Z: -1}, Distance: -f.NearZ}
	c.Planes[FrustumFar] = Plane{Normal: r3.Vec{Z: 1}, Distance: farDistance}
	return c
}

// ExtractFrustumFromMatrix extracts frustum planes from a view-projection matrix.
// The matrix should be the combined Projection * View matrix in OpenGL clip convention.
// Uses the Gribb/Hartmann method for plane extraction.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - CullingPlaneSet: the extracted planes, normalized, in the space the matrix maps from
func ExtractFrustumFromMatrix(viewProj []float32) CullingPlaneSet {
	var f CullingPlaneSet

	// For column-major matrix M, element M[row][col] is at index col*4 + row
	row := func(r int) [4]float64 {
		return [4]float64{
			float64(viewProj[r]), float64(viewProj[4+r]), float64(viewProj[8+r]), float64(viewProj[12+r]),
		}
	}
	r0, r1, r2, r3v := row(0), row(1), row(2), row(3)

	combine := func(a, b [4]float64, sign float64) Plane {
		return Plane{
			Normal:   r3.Vec{X: a[0] + sign*b[0], Y: a[1] + sign*b[1], Z: a[2] + sign*b[2]},
			Distance: a[3] + sign*b[3],
		}
	}

	f.Planes[FrustumLeft] = combine(r3v, r0, 1)
	f.Planes[FrustumRight] = combine(r3v, r0, -1)
	f.Planes[FrustumBottom] = combine(r3v, r1, 1)
	f.Planes[FrustumTop] = combine(r3v, r1, -1)
	f.Planes[FrustumNear] = combine(r3v, r2, 1)
	f.Planes[FrustumFar] = combine(r3v, r2, -1)

	// Normalize all planes
	for i := range f.Planes {
		f.normalizePlane(i)
	}

	return f
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *CullingPlaneSet) normalizePlane(index int) {
	p := &f.Planes[index]
	length := math.Sqrt(r3.Norm2(p.Normal))
	if length > 0 {
		p.Normal = r3.Scale(1/length, p.Normal)
		p.Distance /= length
	}
}
