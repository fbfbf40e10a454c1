package geometry

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
)

// Rings is a flat annulus in the equatorial plane of a world, drawn in the translucent pass.
type Rings struct {
	InnerRadius float64
	OuterRadius float64
	Texture     material.TextureRef
}

const ringSegments = 64

func (w *worldGeometryImpl) renderRings(rc renderer.RenderContext) {
	r := w.rings
	verts := make([]float32, 0, (ringSegments+1)*2*renderer.PositionTex.Stride())
	for i := 0; i <= ringSegments; i++ {
		a := 2 * math.Pi * float64(i) / ringSegments
		c, s := math.Cos(a), math.Sin(a)
		u := float32(i) / ringSegments
		verts = append(verts,
			float32(r.InnerRadius*c), float32(r.InnerRadius*s), 0, 0, u,
			float32(r.OuterRadius*c), float32(r.OuterRadius*s), 0, 1, u,
		)
	}

	opts := []material.MaterialBuilderOption{material.WithName("rings"), material.WithBlendMode(material.AlphaBlend)}
	if r.Texture != nil {
		opts = append(opts, material.WithBaseTexture(r.Texture))
	}
	rc.BindMaterial(material.NewMaterial(opts...))

	// Both faces of the rings are visible.
	rc.SetCullMode(renderer.CullNone)
	rc.BindVertexArray(renderer.PositionTex, verts)
	rc.DrawPrimitives(renderer.TriangleStrip, nil)
	rc.SetCullMode(renderer.CullBack)
}
