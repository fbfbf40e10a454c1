package common

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// QuatIdentity is the identity rotation.
var QuatIdentity = quat.Number{Real: 1}

// MulElem returns the component-wise product of a and b.
func MulElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

// DivElem returns the component-wise quotient a / b.
func DivElem(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X / b.X, Y: a.Y / b.Y, Z: a.Z / b.Z}
}

// MaxComponent returns the largest of v's three components.
func MaxComponent(v r3.Vec) float64 {
	return math.Max(v.X, math.Max(v.Y, v.Z))
}

// MinComponent returns the smallest of v's three components.
func MinComponent(v r3.Vec) float64 {
	return math.Min(v.X, math.Min(v.Y, v.Z))
}

// UnitOrthogonal returns a unit vector perpendicular to v. The result is
// stable for any non-zero input: the component of v with the smallest
// magnitude is dropped before taking the perpendicular.
//
// Parameters:
//   - v: non-zero input vector
//
// Returns:
//   - r3.Vec: a unit vector u with u·v = 0
func UnitOrthogonal(v r3.Vec) r3.Vec {
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	if ax > az || ay > az {
		// Perpendicular in the xy-plane.
		n := math.Hypot(v.X, v.Y)
		return r3.Vec{X: -v.Y / n, Y: v.X / n}
	}
	n := math.Hypot(v.Y, v.Z)
	return r3.Vec{Y: -v.Z / n, Z: v.Y / n}
}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vec) r3.Vec {
	return r3.Rotation(q).Rotate(v)
}

// Conjugate returns the inverse rotation of the unit quaternion q.
func Conjugate(q quat.Number) quat.Number {
	return quat.Conj(q)
}

// AxisAngle returns the unit quaternion rotating by angle radians about axis.
// A zero axis yields the identity.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	if r3.Norm(axis) == 0 {
		return QuatIdentity
	}
	return quat.Number(r3.NewRotation(angle, axis))
}

// Normalize rescales q to unit length. A zero quaternion yields the identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return QuatIdentity
	}
	return quat.Scale(1/n, q)
}

// Vec32 narrows v to three float32 values.
func Vec32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

// LookRotation returns the orientation of a viewer at the origin looking along forward with
// the given up hint. The viewer looks down its local -Z axis with +Y up, so rotating (0, 0, -1)
// by the result yields the normalized forward vector. When up is parallel to forward an
// arbitrary perpendicular is used instead.
//
// Parameters:
//   - forward: the viewing direction, non-zero
//   - up: the approximate up direction
//
// Returns:
//   - quat.Number: a unit quaternion taking viewer space to world space
func LookRotation(forward, up r3.Vec) quat.Number {
	back := r3.Unit(r3.Scale(-1, forward))
	right := r3.Cross(up, back)
	if r3.Norm(right) < 1e-12 {
		right = UnitOrthogonal(back)
	}
	right = r3.Unit(right)
	trueUp := r3.Cross(back, right)

	m00, m01, m02 := right.X, trueUp.X, back.X
	m10, m11, m12 := right.Y, trueUp.Y, back.Y
	m20, m21, m22 := right.Z, trueUp.Z, back.Z

	var q quat.Number
	switch trace := m00 + m11 + m22; {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q = quat.Number{Real: 0.25 / s, Imag: (m21 - m12) * s, Jmag: (m02 - m20) * s, Kmag: (m10 - m01) * s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: 0.25 * s, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: 0.25 * s, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: 0.25 * s}
	}
	return Normalize(q)
}
