package quadtree

import (
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"gonum.org/v1/gonum/spatial/r3"
)

// StrategyKind selects how leaf patches are textured.
type StrategyKind int

const (
	// RenderNoTexture draws patches with the material as is and a global equirectangular mapping.
	RenderNoTexture StrategyKind = iota
	// RenderTiledBase picks a base texture tile per patch.
	RenderTiledBase
	// RenderTiledBaseNormal picks a base and a normal map tile per patch.
	RenderTiledBaseNormal
	// RenderMapLayer draws only the part of each patch covered by a map layer.
	RenderMapLayer
	// RenderWorldLayer hands every visible leaf to a WorldLayer.
	RenderWorldLayer
)

func (k StrategyKind) String() string {
	switch k {
	case RenderNoTexture:
		return "no_texture"
	case RenderTiledBase:
		return "tiled_base"
	case RenderTiledBaseNormal:
		return "tiled_base_normal"
	case RenderMapLayer:
		return "map_layer"
	case RenderWorldLayer:
		return "world_layer"
	default:
		return "unknown"
	}
}

// MapLayer is a texture draped over a longitude/latitude box of a globe.
type MapLayer interface {
	// Box returns the covered region in radians.
	Box() Box

	// Material returns the material the layer is drawn with. Its base texture spans the box.
	Material() material.Material
}

// World is the globe a WorldLayer decorates.
type World interface {
	SemiAxes() r3.Vec
}

// WorldLayer draws per-tile overlays such as coordinate grids.
type WorldLayer interface {
	// RenderTile draws the overlay for one visible leaf tile.
	//
	// Parameters:
	//   - rc: the render context, with the globe's model view already applied
	//   - world: the globe
	//   - tile: the leaf tile
	RenderTile(rc renderer.RenderContext, world World, tile *Tile)
}

// RenderStrategy carries everything needed to draw the leaves of one quadtree layer.
type RenderStrategy struct {
	Kind     StrategyKind
	SemiAxes r3.Vec
	Features Features

	// Material is the base material; tiled strategies derive a per-patch copy with the tile textures.
	Material material.Material

	BaseMap   TiledMap
	NormalMap TiledMap

	Layer MapLayer

	WorldLayer WorldLayer
	World      World
}

// Render draws every visible leaf under id. Culled tiles are skipped along with their subtrees.
//
// Parameters:
//   - a: the allocator holding the tree
//   - id: the subtree root
//   - rc: the render context
//   - s: the render strategy
//
// Returns:
//   - int: the number of leaves drawn
func Render(a *Allocator, id TileID, rc renderer.RenderContext, s *RenderStrategy) int {
	t := a.Get(id)
	if t == nil || t.Culled {
		return 0
	}

	if s.Kind == RenderMapLayer {
		if s.Layer == nil || s.Layer.Box().Disjoint(t.Bounds()) {
			return 0
		}
	}

	if !t.HasChildren() {
		DrawPatch(a, id, rc, s)
		return 1
	}

	drawn := 0
	for _, c := range t.Children {
		drawn += Render(a, c, rc, s)
	}
	return drawn
}

// DrawPatch draws one leaf tile with the given strategy.
//
// Parameters:
//   - a: the allocator holding the tree
//   - id: the leaf tile
//   - rc: the render context
//   - s: the render strategy
func DrawPatch(a *Allocator, id TileID, rc renderer.RenderContext, s *RenderStrategy) {
	t := a.Get(id)
	p := &a.patch

	switch s.Kind {
	case RenderWorldLayer:
		if s.WorldLayer != nil {
			s.WorldLayer.RenderTile(rc, s.World, t)
		}
		return

	case RenderMapLayer:
		box := s.Layer.Box()
		if box.Covers(t.Bounds()) {
			// Same vertices and stitching as the surface below, so the layer never z-fights it.
			buildPatchInto(p, t, s.SemiAxes, s.Features&^NormalMap, layerTexMapping(t, box))
		} else {
			buildClippedPatchInto(p, t, s.SemiAxes, s.Features, box)
		}
		rc.BindMaterial(s.Layer.Material())

	case RenderTiledBase, RenderTiledBaseNormal:
		if s.BaseMap == nil {
			buildPatchInto(p, t, s.SemiAxes, s.Features&^NormalMap, DefaultTexMapping(t))
			rc.BindMaterial(s.Material)
			break
		}

		level, column, row := TiledAddress(t, s.BaseMap.TileSize())
		base := s.BaseMap.Tile(level, column, row)
		opts := []material.MaterialBuilderOption{material.WithBaseTexture(base.Texture)}

		features := s.Features &^ NormalMap
		if s.Kind == RenderTiledBaseNormal && s.NormalMap != nil {
			// Both maps share the pyramid layout, so the base tile address is used for the normal map.
			normal := s.NormalMap.Tile(level, column, row)
			opts = append(opts, material.WithNormalTexture(normal.Texture))
			features |= NormalMap | Normals
		}

		buildPatchInto(p, t, s.SemiAxes, features, subrectMapping(t, base, level))
		rc.BindMaterial(material.Derive(s.Material, opts...))

	default:
		buildPatchInto(p, t, s.SemiAxes, s.Features, DefaultTexMapping(t))
		rc.BindMaterial(s.Material)
	}

	if len(p.Vertices) == 0 || len(p.Indices) == 0 {
		return
	}
	rc.BindVertexArray(p.Spec, p.Vertices)
	rc.DrawPrimitives(renderer.Triangles, p.Indices)
}
