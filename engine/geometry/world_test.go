package geometry

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-astro/engine/quadtree"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type stubLayer struct {
	tiles int
}

func (l *stubLayer) RenderTile(rc renderer.RenderContext, world quadtree.World, tile *quadtree.Tile) {
	l.tiles++
}

type fakeTiledMap struct {
	size int
}

func (m fakeTiledMap) TileSize() int { return m.size }

func (m fakeTiledMap) Tile(level, column, row uint32) quadtree.TextureSubrect {
	return quadtree.TextureSubrect{Texture: testTexture{id: uuid.New(), resident: true}, U1: 1, V1: 1}
}

func TestWorldGeometryBounds(t *testing.T) {
	earth := r3.Vec{X: 6378, Y: 6378, Z: 6357}

	t.Run("BoundingSphereRadius: includes the tallest shell", func(t *testing.T) {
		w := NewWorldGeometry(earth,
			WithAtmosphere(60, [3]float32{0.4, 0.6, 1}),
			WithClouds(7, testTexture{id: uuid.New()}),
		)
		require.InDelta(t, 6438, w.BoundingSphereRadius(), 1e-9)
		require.True(t, w.IsOpaque())
		require.True(t, w.IsEllipsoidal())
		require.Equal(t, PreserveDepthPrecision, w.ClippingPolicy())
	})

	t.Run("BoundingSphereRadius: rings dominate", func(t *testing.T) {
		w := NewWorldGeometry(earth, WithRings(Rings{InnerRadius: 7e4, OuterRadius: 1.4e5}))
		require.Equal(t, 1.4e5, w.BoundingSphereRadius())
		require.False(t, w.IsOpaque())
	})

	t.Run("WithRings: an empty annulus is ignored", func(t *testing.T) {
		w := NewWorldGeometry(earth, WithRings(Rings{InnerRadius: 2, OuterRadius: 1}))
		require.True(t, w.IsOpaque())
	})

	t.Run("NearPlaneDistance: rings pull the near plane in", func(t *testing.T) {
		w := NewWorldGeometry(r3.Vec{X: 6e4, Y: 6e4, Z: 6e4}, WithRings(Rings{InnerRadius: 7e4, OuterRadius: 1.4e5}))
		require.InDelta(t, 9.4e5, w.NearPlaneDistance(r3.Vec{Z: 1e6}), 1e-6)
		require.InDelta(t, 6e4, w.NearPlaneDistance(r3.Vec{X: 2e5, Z: 10}), 1e-6)

		plain := NewWorldGeometry(r3.Vec{X: 6e4, Y: 6e4, Z: 6e4})
		require.InDelta(t, 1.4e5, plain.NearPlaneDistance(r3.Vec{X: 2e5, Z: 10}), 1e-3)
	})

	t.Run("SetShadowCaster: flags are mutable", func(t *testing.T) {
		w := NewWorldGeometry(earth, WithWorldShadows(false, true))
		require.False(t, w.IsShadowCaster())
		w.SetShadowCaster(true)
		require.True(t, w.IsShadowCaster())
		require.True(t, w.IsShadowReceiver())
	})
}

func TestWorldGeometryRender(t *testing.T) {
	axes := r3.Vec{X: 1000, Y: 1000, Z: 1000}

	t.Run("Render: the surface is tessellated and lit", func(t *testing.T) {
		w := NewWorldGeometry(axes)
		draws := drawAt(t, 3000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			w.Render(rc, 0)
		})
		require.NotEmpty(t, draws)
		require.Positive(t, w.TileCount())
		for _, d := range draws {
			require.Equal(t, renderer.PositionNormalTex, d.Pipeline.Spec)
			require.Equal(t, renderer.CullBack, d.Pipeline.CullMode)
			require.Equal(t, "world", d.Material.Name())
		}
	})

	t.Run("Render: emissive worlds skip normals", func(t *testing.T) {
		w := NewWorldGeometry(axes, WithSurfaceMaterial(material.NewMaterial(material.WithName("sun"), material.WithEmissive(true))))
		draws := drawAt(t, 3000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			w.Render(rc, 0)
		})
		require.NotEmpty(t, draws)
		require.Equal(t, renderer.PositionTex, draws[0].Pipeline.Spec)
	})

	t.Run("Render: the translucent pass draws only rings", func(t *testing.T) {
		plain := NewWorldGeometry(axes)
		require.Empty(t, drawAt(t, 3000, renderer.TranslucentPass, func(rc renderer.RenderContext) {
			plain.Render(rc, 0)
		}))

		ringed := NewWorldGeometry(axes, WithRings(Rings{InnerRadius: 1500, OuterRadius: 2500}))
		var cullAfter renderer.CullMode
		draws := drawAt(t, 8000, renderer.TranslucentPass, func(rc renderer.RenderContext) {
			ringed.Render(rc, 0)
			cullAfter = rc.CullMode()
		})
		require.Len(t, draws, 1)
		require.Equal(t, renderer.TriangleStrip, draws[0].Pipeline.Primitive)
		require.Equal(t, renderer.CullNone, draws[0].Pipeline.CullMode)
		require.Equal(t, material.AlphaBlend, draws[0].Pipeline.Blend)
		require.Equal(t, 2*(ringSegments+1), draws[0].VertexCount())
		require.Equal(t, renderer.CullBack, cullAfter)
	})

	t.Run("Render: the atmosphere is drawn last from its back faces", func(t *testing.T) {
		w := NewWorldGeometry(axes, WithAtmosphere(100, [3]float32{0.3, 0.5, 1}))
		var cullAfter renderer.CullMode
		draws := drawAt(t, 3000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			w.Render(rc, 0)
			cullAfter = rc.CullMode()
		})
		last := draws[len(draws)-1]
		require.Equal(t, "atmosphere", last.Material.Name())
		require.Equal(t, material.PremultipliedAlphaBlend, last.Pipeline.Blend)
		require.Equal(t, renderer.CullFront, last.Pipeline.CullMode)
		require.Equal(t, renderer.CullBack, cullAfter)
	})

	t.Run("Render: clouds wait for a resident texture", func(t *testing.T) {
		tex := testTexture{id: uuid.New()}
		w := NewWorldGeometry(axes, WithClouds(20, tex))
		draws := drawAt(t, 3000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			w.Render(rc, 0)
		})
		for _, d := range draws {
			require.NotEqual(t, "clouds", d.Material.Name())
		}

		tex.resident = true
		w = NewWorldGeometry(axes, WithClouds(20, tex))
		draws = drawAt(t, 3000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			w.Render(rc, 0)
		})
		last := draws[len(draws)-1]
		require.Equal(t, "clouds", last.Material.Name())
		require.Equal(t, material.AlphaBlend, last.Pipeline.Blend)
		require.Equal(t, tex.ID(), last.Material.BaseTexture().ID())
	})

	t.Run("Render: world layers see every visible leaf", func(t *testing.T) {
		w := NewWorldGeometry(axes)
		layer := &stubLayer{}
		w.SetWorldLayer("stub", layer)
		require.Same(t, layer, w.WorldLayer("stub"))

		drawAt(t, 3000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			w.Render(rc, 0)
		})
		require.Positive(t, layer.tiles)

		w.SetWorldLayer("stub", nil)
		require.Nil(t, w.WorldLayer("stub"))
	})

	t.Run("RenderShadow: draws the bare surface", func(t *testing.T) {
		w := NewWorldGeometry(axes, WithAtmosphere(100, [3]float32{1, 1, 1}))
		draws := drawAt(t, 3000, renderer.OpaquePass, func(rc renderer.RenderContext) {
			w.RenderShadow(rc, 0)
		})
		require.NotEmpty(t, draws)
		for _, d := range draws {
			require.NotEqual(t, "atmosphere", d.Material.Name())
		}
	})
}

func TestSplitThreshold(t *testing.T) {
	w := NewWorldGeometry(r3.Vec{X: 1, Y: 1, Z: 1}).(*worldGeometryImpl)
	require.InDelta(t, 0.01*256*16, w.splitThreshold(0.01), 1e-12)

	w.baseMap = fakeTiledMap{size: 64}
	require.InDelta(t, 0.01*256*16*0.128, w.splitThreshold(0.01), 1e-12)

	w.baseMap = fakeTiledMap{size: 512}
	require.InDelta(t, 0.01*256*16*0.512, w.splitThreshold(0.01), 1e-12)

	w.baseMap = fakeTiledMap{size: 2048}
	require.InDelta(t, 0.01*256*16, w.splitThreshold(0.01), 1e-12)
}
