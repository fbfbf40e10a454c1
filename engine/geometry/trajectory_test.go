package geometry

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func sampledOrbit(t *testing.T) *TrajectoryGeometry {
	t.Helper()
	g := NewTrajectoryGeometry()
	g.ComputeSamples(CircularOrbit(1000, 100, 0), 0, 100, 10)
	require.Equal(t, 11, g.SampleCount())
	return g
}

func TestTrajectorySamples(t *testing.T) {
	t.Run("AddSample: out of order samples are discarded", func(t *testing.T) {
		g := NewTrajectoryGeometry()
		g.AddSample(1, r3.Vec{X: 1}, r3.Vec{})
		g.AddSample(1, r3.Vec{X: 5}, r3.Vec{})
		g.AddSample(0, r3.Vec{X: 5}, r3.Vec{})
		g.AddSample(2, r3.Vec{X: 2}, r3.Vec{})
		require.Equal(t, 2, g.SampleCount())
		require.Equal(t, 2.0, g.BoundingSphereRadius())

		start, end := g.TimeRange()
		require.Equal(t, []float64{1, 2}, []float64{start, end})
	})

	t.Run("ComputeSamples: pads the bounding radius", func(t *testing.T) {
		g := sampledOrbit(t)
		require.InDelta(t, 1100, g.BoundingSphereRadius(), 1e-9)
		require.Equal(t, SplitToPreventClipping, g.ClippingPolicy())
		require.False(t, g.IsShadowCaster())
	})

	t.Run("ComputeSamples: an empty interval clears", func(t *testing.T) {
		g := sampledOrbit(t)
		g.ComputeSamples(CircularOrbit(1, 1, 0), 5, 5, 10)
		require.Zero(t, g.SampleCount())
		require.Zero(t, g.BoundingSphereRadius())
	})

	t.Run("interpolate: hits samples exactly and stays on the circle between them", func(t *testing.T) {
		g := sampledOrbit(t)
		p := g.interpolate(50).position
		require.InDelta(t, -1000, p.X, 1e-6)
		require.InDelta(t, 0, p.Y, 1e-6)

		mid := g.interpolate(55).position
		require.InDelta(t, 1000, r3.Norm(mid), 2)
	})
}

func TestTrajectoryRender(t *testing.T) {
	t.Run("Render: the travelled portion ends at the current time", func(t *testing.T) {
		g := sampledOrbit(t)
		g.Portion = StartToCurrentTime
		draws := drawAt(t, 5000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			g.Render(rc, 50)
		})
		require.Len(t, draws, 1)
		d := draws[0]
		require.Equal(t, renderer.Position, d.Pipeline.Spec)
		require.Equal(t, renderer.LineStrip, d.Pipeline.Primitive)
		require.Equal(t, 6, d.VertexCount())
		require.InDelta(t, -1000, d.Vertices[len(d.Vertices)-3], 1e-3)
		require.Equal(t, [3]float32{1, 1, 1}, d.Material.Emission())
	})

	t.Run("Render: nothing after the last sample", func(t *testing.T) {
		g := sampledOrbit(t)
		g.Portion = CurrentTimeToEnd
		require.Empty(t, drawAt(t, 5000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			g.Render(rc, 100)
		}))
	})

	t.Run("Render: opaque paths skip the translucent pass", func(t *testing.T) {
		g := sampledOrbit(t)
		require.Empty(t, drawAt(t, 5000, renderer.TranslucentPass, func(rc renderer.RenderContext) {
			g.Render(rc, 0)
		}))

		g.Opacity = 0.5
		require.False(t, g.IsOpaque())
		require.Len(t, drawAt(t, 5000, renderer.TranslucentPass, func(rc renderer.RenderContext) {
			g.Render(rc, 0)
		}), 1)
	})

	t.Run("Render: sub-pixel paths are skipped", func(t *testing.T) {
		g := sampledOrbit(t)
		require.Empty(t, drawAt(t, 1e12, renderer.OpaquePass, func(rc renderer.RenderContext) {
			g.Render(rc, 0)
		}))
	})

	t.Run("Render: a window fades in from its start", func(t *testing.T) {
		g := sampledOrbit(t)
		g.Portion = WindowBeforeCurrentTime
		g.WindowDuration = 40
		g.FadeFraction = 0.5
		draws := drawAt(t, 5000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			g.Render(rc, 60)
		})
		require.Len(t, draws, 1)
		d := draws[0]
		require.Equal(t, renderer.PositionColor, d.Pipeline.Spec)
		stride := renderer.PositionColor.Stride()
		require.Equal(t, 5, d.VertexCount())
		require.Zero(t, d.Vertices[6])
		require.Equal(t, float32(1), d.Vertices[2*stride+6])
		require.Equal(t, float32(1), d.Vertices[len(d.Vertices)-1])
	})
}

func TestTrajectoryPortionString(t *testing.T) {
	require.Equal(t, "window_before_current_time", WindowBeforeCurrentTime.String())
	require.Equal(t, "unknown", TrajectoryPortion(-1).String())
}
