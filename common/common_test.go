package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBoundingSphereMerge(t *testing.T) {
	t.Run("Merge: empty absorbs other", func(t *testing.T) {
		s := BoundingSphere{Center: r3.Vec{X: 1}, Radius: 2}
		require.Equal(t, s, EmptySphere().Merge(s))
		require.Equal(t, s, s.Merge(EmptySphere()))
		require.True(t, EmptySphere().Merge(EmptySphere()).IsEmpty())
	})

	t.Run("Merge: contained sphere", func(t *testing.T) {
		big := BoundingSphere{Radius: 10}
		small := BoundingSphere{Center: r3.Vec{X: 2}, Radius: 1}
		require.Equal(t, big, big.Merge(small))
		require.Equal(t, big, small.Merge(big))
	})

	t.Run("Merge: disjoint spheres", func(t *testing.T) {
		a := BoundingSphere{Center: r3.Vec{X: -5}, Radius: 1}
		b := BoundingSphere{Center: r3.Vec{X: 5}, Radius: 1}
		m := a.Merge(b)
		require.InDelta(t, 6.0, m.Radius, 1e-12)
		require.InDelta(t, 0.0, m.Center.X, 1e-12)
		require.True(t, m.Contains(r3.Vec{X: -6}))
		require.True(t, m.Contains(r3.Vec{X: 6}))
	})
}

func TestFrustumIntersects(t *testing.T) {
	f := NewPerspective(math.Pi/2, 1, 1, 100).Frustum()

	require.True(t, f.Intersects(BoundingSphere{Center: r3.Vec{Z: -10}, Radius: 1}))
	require.False(t, f.Intersects(BoundingSphere{Center: r3.Vec{Z: 10}, Radius: 1}), "behind the eye")
	require.False(t, f.Intersects(BoundingSphere{Center: r3.Vec{Z: -200}, Radius: 1}), "beyond far")
	require.False(t, f.Intersects(BoundingSphere{Center: r3.Vec{X: 50, Z: -10}, Radius: 1}), "right of frustum")
	require.True(t, f.Intersects(BoundingSphere{Center: r3.Vec{X: 10.5, Z: -10}, Radius: 1}), "straddles right plane")
}

func TestCullingPlaneSet(t *testing.T) {
	proj := NewPerspective(math.Pi/2, 1, 1, 100)
	fromFrustum := proj.Frustum().CullingPlanes(100)
	m := proj.Matrix()
	fromMatrix := ExtractFrustumFromMatrix(m[:])

	points := []r3.Vec{
		{Z: -10}, {Z: 10}, {X: 50, Z: -10}, {Y: -50, Z: -10}, {Z: -0.5}, {Z: -150},
	}
	for _, p := range points {
		require.Equal(t, fromFrustum.Cull(p, 0.1), fromMatrix.Cull(p, 0.1), "point %v", p)
	}
	require.False(t, fromFrustum.Cull(r3.Vec{Z: -10}, 0.1))
	require.True(t, fromFrustum.Cull(r3.Vec{Z: 10}, 0.1))
}

func TestPlaneToLocal(t *testing.T) {
	// Model translated 10 units down the view axis.
	mv := Translation(r3.Vec{Z: -10})
	near := Plane{Normal: r3.Vec{Z: -1}, Distance: -1}
	local := near.ToLocal(mv)

	// The model origin sits 9 units beyond the near plane.
	require.InDelta(t, 9.0, local.SignedDistance(r3.Vec{}), 1e-9)
}

func TestProjectionSlice(t *testing.T) {
	p := NewPerspective(math.Pi/3, 1.5, 1, 10)
	s := p.Slice(100, 1000)
	require.InDelta(t, p.FovY(), s.FovY(), 1e-12)
	require.InDelta(t, p.AspectRatio(), s.AspectRatio(), 1e-12)
	require.Equal(t, 100.0, s.Near)
	require.Equal(t, 1000.0, s.Far)

	lh := NewPerspectiveLH(math.Pi/2, 1, 1, 10)
	require.True(t, lh.IsLeftHanded())
	require.False(t, p.IsLeftHanded())
}

func TestUnitOrthogonal(t *testing.T) {
	for _, v := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}, {X: 1, Y: 2, Z: 3}, {X: -4, Y: 0.1, Z: 0.2}} {
		u := UnitOrthogonal(v)
		require.InDelta(t, 1.0, r3.Norm(u), 1e-12)
		require.InDelta(t, 0.0, r3.Dot(u, v), 1e-12)
	}
}

func TestMatrices(t *testing.T) {
	t.Run("Invert4: translation", func(t *testing.T) {
		m := Translation(r3.Vec{X: 1, Y: 2, Z: 3})
		var inv Mat4
		require.True(t, Invert4(inv[:], m[:]))
		p := inv.TransformPoint(r3.Vec{X: 1, Y: 2, Z: 3})
		require.InDelta(t, 0.0, r3.Norm(p), 1e-6)
	})

	t.Run("RotationMat4: matches quaternion rotation", func(t *testing.T) {
		q := AxisAngle(r3.Vec{Z: 1}, math.Pi/2)
		m := RotationMat4(q)
		p := m.TransformPoint(r3.Vec{X: 1})
		want := Rotate(q, r3.Vec{X: 1})
		require.InDelta(t, want.X, p.X, 1e-6)
		require.InDelta(t, want.Y, p.Y, 1e-6)
		require.InDelta(t, 1.0, p.Y, 1e-6)
	})

	t.Run("Transpose: involution", func(t *testing.T) {
		m := RotationMat4(AxisAngle(r3.Vec{X: 1, Y: 1}, 0.3)).Mul(Translation(r3.Vec{X: 5}))
		require.Equal(t, m, m.Transpose().Transpose())
	})
}

func TestClamp(t *testing.T) {
	require.Equal(t, 1.0, Clamp(0.5, 1.0, 2.0))
	require.Equal(t, 2.0, Clamp(3.0, 1.0, 2.0))
	require.Equal(t, 1.5, Clamp(1.5, 1.0, 2.0))
}

func TestLookRotation(t *testing.T) {
	cases := []struct {
		forward, up r3.Vec
	}{
		{r3.Vec{Z: -1}, r3.Vec{Y: 1}},
		{r3.Vec{X: 1}, r3.Vec{Y: 1}},
		{r3.Vec{Z: 1}, r3.Vec{Y: 1}},
		{r3.Vec{X: 1, Y: -2, Z: 0.5}, r3.Vec{Y: 1}},
		{r3.Vec{Y: 1}, r3.Vec{Y: 1}},
	}
	for _, c := range cases {
		q := LookRotation(c.forward, c.up)
		got := Rotate(q, r3.Vec{Z: -1})
		want := r3.Unit(c.forward)
		require.InDelta(t, want.X, got.X, 1e-9)
		require.InDelta(t, want.Y, got.Y, 1e-9)
		require.InDelta(t, want.Z, got.Z, 1e-9)
	}

	t.Run("LookRotation: up stays on the up side", func(t *testing.T) {
		q := LookRotation(r3.Vec{X: 1}, r3.Vec{Y: 1})
		require.Greater(t, Rotate(q, r3.Vec{Y: 1}).Y, 0.99)
	})
}
