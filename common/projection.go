package common

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ProjectionType selects between perspective and orthographic planar projections.
type ProjectionType int

const (
	ProjectionPerspective ProjectionType = iota
	ProjectionOrthographic
)

// PlanarProjection describes a view window on the near plane plus near and far distances.
// A perspective projection behaves like glFrustum and an orthographic one like glOrtho.
// Swapping Left and Right produces a left-handed projection.
type PlanarProjection struct {
	Type   ProjectionType
	Left   float64
	Right  float64
	Bottom float64
	Top    float64
	Near   float64
	Far    float64
}

// NewPerspective creates a right-handed symmetric perspective projection, the same
// projection as gluPerspective(fovY, aspect, near, far).
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: ratio of width to height
//   - near: distance to the near plane
//   - far: distance to the far plane
//
// Returns:
//   - PlanarProjection: the projection
func NewPerspective(fovY, aspect, near, far float64) PlanarProjection {
	y := math.Tan(0.5*fovY) * near
	x := y * aspect
	return PlanarProjection{Type: ProjectionPerspective, Left: -x, Right: x, Bottom: -y, Top: y, Near: near, Far: far}
}

// NewPerspectiveLH creates a left-handed symmetric perspective projection. It mirrors the x axis
// of NewPerspective, which is what cube map faces need.
func NewPerspectiveLH(fovY, aspect, near, far float64) PlanarProjection {
	p := NewPerspective(fovY, aspect, near, far)
	p.Left, p.Right = -p.Left, -p.Right
	return p
}

// NewOrthographic creates an orthographic projection equivalent to glOrtho.
func NewOrthographic(left, right, bottom, top, near, far float64) PlanarProjection {
	return PlanarProjection{Type: ProjectionOrthographic, Left: left, Right: right, Bottom: bottom, Top: top, Near: near, Far: far}
}

// Matrix returns the homogeneous projection matrix.
func (p PlanarProjection) Matrix() Mat4 {
	var m Mat4
	switch p.Type {
	case ProjectionOrthographic:
		Orthographic(m[:], float32(p.Left), float32(p.Right), float32(p.Bottom), float32(p.Top), float32(p.Near), float32(p.Far))
	default:
		Perspective(m[:], float32(p.Left), float32(p.Right), float32(p.Bottom), float32(p.Top), float32(p.Near), float32(p.Far))
	}
	return m
}

// Frustum returns the view volume of the projection. The volume is a box for orthographic
// projections and a truncated pyramid for perspective projections.
func (p PlanarProjection) Frustum() Frustum {
	f := Frustum{NearZ: p.Near, FarZ: p.Far}
	signX, signY := 1.0, 1.0
	if p.Left >= p.Right {
		signX = -1
	}
	if p.Bottom >= p.Top {
		signY = -1
	}

	switch p.Type {
	case ProjectionOrthographic:
		f.PlaneNormals[0] = r3.Vec{X: -1}
		f.PlaneNormals[1] = r3.Vec{X: 1}
		f.PlaneNormals[2] = r3.Vec{Y: -1}
		f.PlaneNormals[3] = r3.Vec{Y: 1}
	default:
		f.PlaneNormals[0] = r3.Unit(r3.Vec{X: p.Near, Z: p.Left * signX})
		f.PlaneNormals[1] = r3.Unit(r3.Vec{X: -p.Near, Z: -p.Right * signX})
		f.PlaneNormals[2] = r3.Unit(r3.Vec{Y: p.Near, Z: p.Bottom * signY})
		f.PlaneNormals[3] = r3.Unit(r3.Vec{Y: -p.Near, Z: -p.Top * signY})
	}
	return f
}

// Slice returns a projection identical to p except for its near and far planes. Perspective
// windows are rescaled so the field of view is unchanged.
func (p PlanarProjection) Slice(near, far float64) PlanarProjection {
	if p.Type == ProjectionOrthographic {
		p.Near, p.Far = near, far
		return p
	}
	ratio := near / p.Near
	return PlanarProjection{
		Type:   p.Type,
		Left:   p.Left * ratio,
		Right:  p.Right * ratio,
		Bottom: p.Bottom * ratio,
		Top:    p.Top * ratio,
		Near:   near,
		Far:    far,
	}
}

// AspectRatio returns width divided by height of the view window.
func (p PlanarProjection) AspectRatio() float64 {
	return (p.Right - p.Left) / (p.Top - p.Bottom)
}

// FovY returns the vertical field of view in radians.
func (p PlanarProjection) FovY() float64 {
	return math.Atan(math.Abs(p.Top-p.Bottom)*0.5/p.Near) * 2
}

// IsLeftHanded reports whether the x axis is mirrored.
func (p PlanarProjection) IsLeftHanded() bool {
	return p.Left > p.Right
}
