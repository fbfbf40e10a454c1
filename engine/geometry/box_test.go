package geometry

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBoxGeometry(t *testing.T) {
	t.Run("NewBoxGeometry: a shadow casting, non-ellipsoidal mesh", func(t *testing.T) {
		b := NewBoxGeometry(r3.Vec{X: 1, Y: 2, Z: 2}, nil)
		require.Equal(t, 3.0, b.BoundingSphereRadius())
		require.True(t, b.IsShadowCaster())
		require.True(t, b.IsShadowReceiver())
		require.False(t, b.IsEllipsoidal())
		require.True(t, b.IsOpaque())
		require.Equal(t, 7.0, b.NearPlaneDistance(r3.Vec{Y: 10}))
	})

	t.Run("build: faces wind counterclockwise seen from outside", func(t *testing.T) {
		b := NewBoxGeometry(r3.Vec{X: 1, Y: 1, Z: 1}, nil)
		stride := renderer.PositionNormalTex.Stride()
		pos := func(i uint16) r3.Vec {
			v := b.vertices[int(i)*stride:]
			return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
		}
		for i := 0; i < len(boxIndices); i += 3 {
			a, c, d := pos(boxIndices[i]), pos(boxIndices[i+1]), pos(boxIndices[i+2])
			n := r3.Cross(r3.Sub(c, a), r3.Sub(d, a))
			v := b.vertices[int(boxIndices[i])*stride+3:]
			normal := r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
			require.Positive(t, r3.Dot(n, normal), "triangle %d", i/3)
		}
	})

	t.Run("Render: drawn in the pass matching the material", func(t *testing.T) {
		b := NewBoxGeometry(r3.Vec{X: 1, Y: 1, Z: 1}, material.NewMaterial(material.WithName("hull")))
		draws := drawAt(t, 10, renderer.OpaquePass, func(rc renderer.RenderContext) {
			b.Render(rc, 0)
		})
		require.Len(t, draws, 1)
		require.Equal(t, 24, draws[0].VertexCount())
		require.Len(t, draws[0].Indices, 36)
		require.Equal(t, "hull", draws[0].Material.Name())

		glass := NewBoxGeometry(r3.Vec{X: 1, Y: 1, Z: 1}, material.NewMaterial(material.WithOpacity(0.5)))
		require.Empty(t, drawAt(t, 10, renderer.OpaquePass, func(rc renderer.RenderContext) {
			glass.Render(rc, 0)
		}))
	})

	t.Run("RenderShadow: positions only", func(t *testing.T) {
		b := NewBoxGeometry(r3.Vec{X: 1, Y: 1, Z: 1}, nil)
		draws := drawAt(t, 10, renderer.OpaquePass, func(rc renderer.RenderContext) {
			b.RenderShadow(rc, 0)
		})
		require.Len(t, draws, 1)
		require.Equal(t, renderer.Position, draws[0].Pipeline.Spec)
		require.Equal(t, 24, draws[0].VertexCount())
	})
}
