package quadtree

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

type testTexture struct {
	id uuid.UUID
}

func (t testTexture) ID() uuid.UUID    { return t.id }
func (t testTexture) IsResident() bool { return true }

type fakeTiledMap struct {
	size int
	last [3]uint32
}

func (m *fakeTiledMap) TileSize() int { return m.size }

func (m *fakeTiledMap) Tile(level, column, row uint32) TextureSubrect {
	m.last = [3]uint32{level, column, row}
	return TextureSubrect{Texture: testTexture{id: uuid.New()}, U1: 1, V1: 1}
}

type fakeLayer struct {
	box Box
	mat material.Material
}

func (l fakeLayer) Box() Box                    { return l.box }
func (l fakeLayer) Material() material.Material { return l.mat }

type fakeWorld struct{}

func (fakeWorld) SemiAxes() r3.Vec { return unitSphere }

type countingWorldLayer struct {
	tiles []uint32
}

func (l *countingWorldLayer) RenderTile(rc renderer.RenderContext, world World, tile *Tile) {
	l.tiles = append(l.tiles, tile.Level)
}

func splitGlobe(t *testing.T) (*Allocator, TileID, TileID) {
	t.Helper()
	a := NewAllocator(16)
	west, east := InitRoots(a, unitSphere)
	Split(a, west, &noCull, unitSphere)
	Split(a, east, &noCull, unitSphere)
	return a, west, east
}

func renderFrame(t *testing.T, draw func(rc renderer.RenderContext)) []renderer.DrawCommand {
	t.Helper()
	b := renderer.NewRecordingBackend()
	rc := renderer.NewRenderContext(b)
	rc.SetViewport(640, 480)
	require.NoError(t, rc.BeginFrame())
	draw(rc)
	rc.EndFrame()
	return b.Draws()
}

func TestRender(t *testing.T) {
	t.Run("Render: culled subtrees are skipped", func(t *testing.T) {
		a, west, east := splitGlobe(t)
		a.Get(east).Culled = true
		a.Get(a.Get(west).Children[Northeast]).Culled = true

		var drawn int
		draws := renderFrame(t, func(rc renderer.RenderContext) {
			s := &RenderStrategy{Kind: RenderNoTexture, SemiAxes: unitSphere, Features: Normals}
			drawn = Render(a, west, rc, s) + Render(a, east, rc, s)
		})
		require.Equal(t, 3, drawn)
		require.Len(t, draws, 3)
		require.Equal(t, renderer.PositionNormalTex, draws[0].Pipeline.Spec)
		require.Equal(t, gridSide*gridSide, draws[0].VertexCount())
	})

	t.Run("Render: tiled maps bind per-tile textures", func(t *testing.T) {
		a, west, _ := splitGlobe(t)
		base, normal := &fakeTiledMap{size: 0}, &fakeTiledMap{size: 0}
		s := &RenderStrategy{
			Kind:      RenderTiledBaseNormal,
			SemiAxes:  unitSphere,
			Features:  Normals,
			Material:  material.NewMaterial(material.WithName("earth")),
			BaseMap:   base,
			NormalMap: normal,
		}
		draws := renderFrame(t, func(rc renderer.RenderContext) {
			Render(a, west, rc, s)
		})
		require.Len(t, draws, 4)
		for _, d := range draws {
			require.Equal(t, renderer.PositionNormalTexTangent, d.Pipeline.Spec)
			require.Equal(t, "earth", d.Material.Name())
			require.NotNil(t, d.Material.BaseTexture())
			require.NotNil(t, d.Material.NormalTexture())
		}
		require.Equal(t, base.last, normal.last)
		require.NotEqual(t, draws[0].Material.BaseTexture().ID(), draws[1].Material.BaseTexture().ID())
	})

	t.Run("Render: map layers skip disjoint tiles", func(t *testing.T) {
		a, west, east := splitGlobe(t)
		layer := fakeLayer{
			box: Box{West: 0.1, East: 0.5, South: 0.1, North: 0.4},
			mat: material.NewMaterial(material.WithName("overlay")),
		}
		var drawn int
		draws := renderFrame(t, func(rc renderer.RenderContext) {
			s := &RenderStrategy{Kind: RenderMapLayer, SemiAxes: unitSphere, Layer: layer}
			drawn = Render(a, west, rc, s) + Render(a, east, rc, s)
		})
		require.Equal(t, 1, drawn)
		require.Len(t, draws, 1)
		require.Equal(t, "overlay", draws[0].Material.Name())
		require.Less(t, draws[0].VertexCount(), gridSide*gridSide)
	})

	t.Run("Render: a fully covering map layer reuses the surface mesh", func(t *testing.T) {
		a, _, east := splitGlobe(t)
		layer := fakeLayer{box: Box{West: -4, East: 4, South: -2, North: 2}}
		draws := renderFrame(t, func(rc renderer.RenderContext) {
			Render(a, east, rc, &RenderStrategy{Kind: RenderMapLayer, SemiAxes: unitSphere, Layer: layer})
		})
		require.Len(t, draws, 4)
		ne := a.Get(a.Get(east).Children[Northeast])
		require.Equal(t, StitchIndices(ne.StitchSelector()), draws[0].Indices)
	})

	t.Run("Render: world layers receive every visible leaf", func(t *testing.T) {
		a, west, east := splitGlobe(t)
		a.Get(west).Culled = true
		wl := &countingWorldLayer{}
		draws := renderFrame(t, func(rc renderer.RenderContext) {
			s := &RenderStrategy{Kind: RenderWorldLayer, WorldLayer: wl, World: fakeWorld{}}
			Render(a, west, rc, s)
			Render(a, east, rc, s)
		})
		require.Empty(t, draws)
		require.Equal(t, []uint32{1, 1, 1, 1}, wl.tiles)
	})
}

func TestStrategyKindString(t *testing.T) {
	require.Equal(t, "tiled_base_normal", RenderTiledBaseNormal.String())
	require.Equal(t, "unknown", StrategyKind(42).String())
}
