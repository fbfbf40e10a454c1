package geometry

import (
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"gonum.org/v1/gonum/spatial/r3"
)

// BoxGeometry is an axis-aligned box centered on the local origin. It stands in for spacecraft
// and other small meshes: it casts and receives shadows and is not ellipsoidal.
type BoxGeometry struct {
	shadowFlags

	halfExtents r3.Vec
	material    material.Material

	vertices []float32
	shadow   []float32
}

var _ Geometry = &BoxGeometry{}

// boxFaces lists each face as its outward normal and two in-face axes with u × v = normal.
var boxFaces = [6][3]r3.Vec{
	{{X: 1}, {Y: 1}, {Z: 1}},
	{{X: -1}, {Z: 1}, {Y: 1}},
	{{Y: 1}, {Z: 1}, {X: 1}},
	{{Y: -1}, {X: 1}, {Z: 1}},
	{{Z: 1}, {X: 1}, {Y: 1}},
	{{Z: -1}, {Y: 1}, {X: 1}},
}

// boxIndices triangulates the four corners of every face counterclockwise.
var boxIndices = func() []uint16 {
	idx := make([]uint16, 0, 36)
	for f := uint16(0); f < 6; f++ {
		b := f * 4
		idx = append(idx, b, b+1, b+2, b, b+2, b+3)
	}
	return idx
}()

// NewBoxGeometry creates a box.
//
// Parameters:
//   - halfExtents: half the box size along each axis in kilometers
//   - m: the material, or nil for the default material
//
// Returns:
//   - *BoxGeometry: the box
func NewBoxGeometry(halfExtents r3.Vec, m material.Material) *BoxGeometry {
	b := &BoxGeometry{
		shadowFlags: shadowFlags{shadowCaster: true, shadowReceiver: true},
		halfExtents: halfExtents,
		material:    m,
	}
	b.build()
	return b
}

func (b *BoxGeometry) build() {
	h := b.halfExtents
	corners := [4][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, face := range boxFaces {
		n, u, v := face[0], face[1], face[2]
		for _, c := range corners {
			p := r3.Add(n, r3.Add(r3.Scale(c[0], u), r3.Scale(c[1], v)))
			p = r3.Vec{X: p.X * h.X, Y: p.Y * h.Y, Z: p.Z * h.Z}
			b.vertices = append(b.vertices,
				float32(p.X), float32(p.Y), float32(p.Z),
				float32(n.X), float32(n.Y), float32(n.Z),
				float32(c[0]+1)/2, float32(c[1]+1)/2,
			)
			b.shadow = append(b.shadow, float32(p.X), float32(p.Y), float32(p.Z))
		}
	}
}

func (b *BoxGeometry) BoundingSphereRadius() float64 {
	return r3.Norm(b.halfExtents)
}

func (b *BoxGeometry) NearPlaneDistance(cameraPosition r3.Vec) float64 {
	return boundingNearDistance(cameraPosition, b.BoundingSphereRadius())
}

func (b *BoxGeometry) IsEllipsoidal() bool {
	return false
}

func (b *BoxGeometry) IsOpaque() bool {
	return b.material == nil || b.material.IsOpaque()
}

// Render draws the box in the pass matching its material.
func (b *BoxGeometry) Render(rc renderer.RenderContext, t float64) {
	if (rc.Pass() == renderer.TranslucentPass) == b.IsOpaque() {
		return
	}
	rc.BindMaterial(b.material)
	rc.BindVertexArray(renderer.PositionNormalTex, b.vertices)
	rc.DrawPrimitives(renderer.Triangles, boxIndices)
}

// RenderShadow draws positions only.
func (b *BoxGeometry) RenderShadow(rc renderer.RenderContext, t float64) {
	rc.BindVertexArray(renderer.Position, b.shadow)
	rc.DrawPrimitives(renderer.Triangles, boxIndices)
}
