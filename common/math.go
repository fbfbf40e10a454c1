package common

import (
	"math"
	"unsafe"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mat4 is a 4x4 matrix stored in column-major order (OpenGL/WebGPU convention).
// Element (row, col) lives at index col*4 + row.
type Mat4 [16]float32

// IdentityMat4 returns a new identity matrix.
func IdentityMat4() Mat4 {
	var m Mat4
	Identity(m[:])
	return m
}

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Mul4 multiplies two 4x4 matrices and stores the result in out.
// All matrices are stored in column-major order (OpenGL/WebGPU convention).
// Result: out = a * b
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for i := 0; i < 4; i++ { // column of B
		for j := 0; j < 4; j++ { // row of A
			sum := float32(0)
			for k := 0; k < 4; k++ {
				sum += a[k*4+j] * b[i*4+k]
			}
			buf[i*4+j] = sum
		}
	}
	copy(out, buf[:])
}

// Mul returns m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var out Mat4
	Mul4(out[:], m[:], o[:])
	return out
}

// Transpose returns the transpose of m.
func (m Mat4) Transpose() Mat4 {
	var out Mat4
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[r*4+c] = m[c*4+r]
		}
	}
	return out
}

// TransformPoint applies m to the point p (w = 1) and returns the xyz components
// without a perspective divide.
func (m Mat4) TransformPoint(p r3.Vec) r3.Vec {
	x, y, z := float32(p.X), float32(p.Y), float32(p.Z)
	return r3.Vec{
		X: float64(m[0]*x + m[4]*y + m[8]*z + m[12]),
		Y: float64(m[1]*x + m[5]*y + m[9]*z + m[13]),
		Z: float64(m[2]*x + m[6]*y + m[10]*z + m[14]),
	}
}

// Row returns row r of m as four values.
func (m Mat4) Row(r int) [4]float32 {
	return [4]float32{m[r], m[4+r], m[8+r], m[12+r]}
}

// Perspective creates an OpenGL-style perspective projection matrix that maps
// the view volume to clip space z in [-1, 1]. The WebGPU backend remaps depth
// to [0, 1] when it uploads projection matrices.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - left, right, bottom, top: extents of the view window on the near plane
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, left, right, bottom, top, near, far float32) {
	x := right - left
	y := top - bottom
	z := far - near
	Identity(out)

	out[0] = 2 * near / x
	out[5] = 2 * near / y
	out[8] = (right + left) / x
	out[9] = (top + bottom) / y
	out[10] = -(far + near) / z
	out[11] = -1
	out[14] = -(2 * far * near) / z
	out[15] = 0
}

// Orthographic creates an OpenGL-style orthographic projection matrix (equivalent to glOrtho).
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - left, right, bottom, top: extents of the view box
//   - near, far: distances to the near and far planes
func Orthographic(out []float32, left, right, bottom, top, near, far float32) {
	x := right - left
	y := top - bottom
	z := far - near
	Identity(out)

	out[0] = 2 / x
	out[5] = 2 / y
	out[10] = -2 / z
	out[12] = -(right + left) / x
	out[13] = -(top + bottom) / y
	out[14] = -(far + near) / z
}

// Translation returns a matrix translating by v.
func Translation(v r3.Vec) Mat4 {
	m := IdentityMat4()
	m[12], m[13], m[14] = float32(v.X), float32(v.Y), float32(v.Z)
	return m
}

// Scaling returns a matrix that scales each axis by the matching component of s.
func Scaling(s r3.Vec) Mat4 {
	m := IdentityMat4()
	m[0], m[5], m[10] = float32(s.X), float32(s.Y), float32(s.Z)
	return m
}

// RotationMat4 converts a unit quaternion into a rotation matrix.
//
// Parameters:
//   - q: unit quaternion (Real is the scalar part)
//
// Returns:
//   - Mat4: the equivalent column-major rotation matrix
func RotationMat4(q quat.Number) Mat4 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	m := IdentityMat4()

	m[0] = float32(1 - 2*(y*y+z*z))
	m[1] = float32(2 * (x*y + w*z))
	m[2] = float32(2 * (x*z - w*y))

	m[4] = float32(2 * (x*y - w*z))
	m[5] = float32(1 - 2*(x*x+z*z))
	m[6] = float32(2 * (y*z + w*x))

	m[8] = float32(2 * (x*z + w*y))
	m[9] = float32(2 * (y*z - w*x))
	m[10] = float32(1 - 2*(x*x+y*y))
	return m
}

// Invert4 computes the inverse of a 4x4 column-major matrix using the Laplace
// expansion (cofactor) method. If the matrix is singular (determinant ≈ 0) the
// output is left unchanged and the function returns false.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements, column-major)
//
// Returns:
//   - bool: true if the matrix was successfully inverted, false if singular
func Invert4(out, m []float32) bool {
	// 2x2 sub-determinants of the upper-left and lower-right quadrants.
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return false
	}

	invDet := 1.0 / det

	out[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * invDet
	out[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * invDet
	out[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * invDet
	out[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * invDet

	out[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * invDet
	out[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * invDet
	out[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * invDet
	out[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * invDet

	out[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * invDet
	out[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * invDet
	out[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * invDet
	out[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * invDet

	out[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * invDet
	out[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * invDet
	out[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * invDet
	out[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * invDet

	return true
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}
