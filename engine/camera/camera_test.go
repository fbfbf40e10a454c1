package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func requireVec(t *testing.T, want, got r3.Vec, delta float64) {
	t.Helper()
	require.InDelta(t, want.X, got.X, delta)
	require.InDelta(t, want.Y, got.Y, delta)
	require.InDelta(t, want.Z, got.Z, delta)
}

func TestCamera(t *testing.T) {
	t.Run("NewCamera: defaults look down -Z from the origin", func(t *testing.T) {
		c := NewCamera()
		require.Equal(t, r3.Vec{}, c.Position())
		require.Equal(t, common.QuatIdentity, c.Orientation())
		require.InDelta(t, DefaultFov, c.Fov(), 1e-12)
		require.Nil(t, c.Controller())
	})

	t.Run("Update: the camera looks at the controller target", func(t *testing.T) {
		cc := NewOrbitController(r3.Vec{X: 1e8}, 7000, WithElevation(0.3), WithAzimuth(1.2))
		c := NewCamera(WithController(cc))

		requireVec(t, cc.Position(), c.Position(), 1e-6)
		want := r3.Unit(r3.Sub(cc.Target(), cc.Position()))
		requireVec(t, want, c.Forward(), 1e-9)
		require.Greater(t, common.Rotate(c.Orientation(), r3.Vec{Y: 1}).Y, 0.0)
	})

	t.Run("Update: following a moving target keeps the orbit offset", func(t *testing.T) {
		cc := NewOrbitController(r3.Vec{}, 100)
		c := NewCamera(WithController(cc))
		offset := r3.Sub(c.Position(), cc.Target())

		cc.SetTarget(r3.Vec{X: 5e7, Z: -3e7})
		c.Update()
		requireVec(t, offset, r3.Sub(c.Position(), cc.Target()), 1e-6)
	})

	t.Run("SetFov: the field of view stays inside (0, π)", func(t *testing.T) {
		c := NewCamera()
		c.SetFov(4)
		require.Less(t, c.Fov(), math.Pi)
		c.SetFov(-1)
		require.Greater(t, c.Fov(), 0.0)
	})

	t.Run("SetAspect: non-positive ratios are ignored", func(t *testing.T) {
		c := NewCamera(WithAspect(1.5))
		c.SetAspect(0)
		require.Equal(t, 1.5, c.Aspect())
	})
}

func TestCameraController(t *testing.T) {
	t.Run("Zoom: equal steps cover equal distance ratios", func(t *testing.T) {
		cc := NewOrbitController(r3.Vec{}, 1000, WithZoomSpeed(math.Ln2))
		cc.Zoom(1)
		require.InDelta(t, 500, cc.Radius(), 1e-9)
		cc.Zoom(-2)
		require.InDelta(t, 2000, cc.Radius(), 1e-9)
		require.InDelta(t, 2000, r3.Norm(cc.Position()), 1e-6)
	})

	t.Run("Zoom: the radius is clamped to its bounds", func(t *testing.T) {
		cc := NewOrbitController(r3.Vec{}, 10, WithRadiusBounds(5, 20))
		cc.Zoom(100)
		require.Equal(t, 5.0, cc.Radius())
		cc.Zoom(-100)
		require.Equal(t, 20.0, cc.Radius())
	})

	t.Run("OrbitUp: elevation stops at the maximum", func(t *testing.T) {
		cc := NewCameraController(WithElevationBounds(-0.5, 0.5), WithOrbitSpeed(0.4))
		cc.SetElevation(0)
		cc.OrbitUp()
		cc.OrbitUp()
		require.Equal(t, 0.5, cc.Elevation())
		cc.Drag(0, -1e6)
		require.Equal(t, -0.5, cc.Elevation())
	})

	t.Run("PanRight: target and position move together", func(t *testing.T) {
		cc := NewOrbitController(r3.Vec{}, 100, WithPanSpeed(0.1))
		before := r3.Sub(cc.Position(), cc.Target())
		cc.PanRight(1)
		require.InDelta(t, 10, r3.Norm(cc.Target()), 1e-9)
		requireVec(t, before, r3.Sub(cc.Position(), cc.Target()), 1e-9)
		require.InDelta(t, 0, cc.Target().Y, 1e-12)
	})

	t.Run("HandleKey: bound keys move the controller", func(t *testing.T) {
		cc := NewOrbitController(r3.Vec{}, 100)
		az := cc.Azimuth()
		require.True(t, HandleKey(cc, common.KeyRight))
		require.InDelta(t, az+cc.OrbitSpeed(), cc.Azimuth(), 1e-12)
		require.True(t, HandleKey(cc, common.KeyEqual))
		require.Less(t, cc.Radius(), 100.0)
		require.False(t, HandleKey(cc, common.KeySpace))
	})
}
