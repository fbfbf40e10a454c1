package renderer

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/stretchr/testify/require"
)

func floatAt(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}

func TestGPUDrawUniforms(t *testing.T) {
	t.Run("Marshal: size matches the WGSL struct", func(t *testing.T) {
		var u GPUDrawUniforms
		require.Equal(t, 528, u.Size())
		require.Len(t, u.Marshal(), 528)
		require.LessOrEqual(t, u.Size(), drawUniformsStride)
		require.Zero(t, drawUniformsStride%256)
		require.True(t, strings.Contains(GPUDrawUniformsSource, "struct DrawUniforms"))
	})

	t.Run("Marshal: fields land at their offsets", func(t *testing.T) {
		u := GPUDrawUniforms{
			Diffuse: [4]float32{0.25, 0.5, 0.75, 1},
			Counts:  [4]float32{2, 1, 0, 0},
			Flags:   [4]float32{0, 0, 0, 3},
		}
		u.OmniPosition[2] = [4]float32{9, 8, 7, 6}
		buf := u.Marshal()
		require.Equal(t, float32(0.5), floatAt(buf, 260))
		require.Equal(t, float32(6), floatAt(buf, 448+2*16+12))
		require.Equal(t, float32(2), floatAt(buf, 496))
		require.Equal(t, float32(3), floatAt(buf, 524))
	})
}

func TestNewDrawUniforms(t *testing.T) {
	t.Run("newDrawUniforms: depth is remapped to zero-to-one", func(t *testing.T) {
		proj := common.NewPerspective(1, 1, 1, 100)
		u := newDrawUniforms(DrawCommand{Projection: proj.Matrix()})

		// A point on the near plane lands at depth 0, on the far plane at depth 1.
		for _, tc := range []struct {
			z    float32
			want float32
		}{{-1, 0}, {-100, 1}} {
			row2, row3 := u.Projection.Row(2), u.Projection.Row(3)
			z := row2[2]*tc.z + row2[3]
			w := row3[2]*tc.z + row3[3]
			require.InDelta(t, tc.want, z/w, 1e-4)
		}
	})

	t.Run("newDrawUniforms: material and lights", func(t *testing.T) {
		m := material.NewMaterial(
			material.WithDiffuse([3]float32{0.1, 0.2, 0.3}),
			material.WithOpacity(0.5),
			material.WithSpecular([3]float32{1, 1, 1}, 40),
			material.WithEmissive(true),
		)
		lights := []LightState{
			{Type: DirectionalLight, Position: [3]float32{1, 2, 3}, Color: [3]float32{1, 1, 1}},
			{Type: PointLight, Position: [3]float32{4, 5, 6}, Color: [3]float32{0.5, 0.5, 0.5}, Attenuation: 0.01},
		}
		u := newDrawUniforms(DrawCommand{
			Material:        m,
			Lights:          lights,
			ShadowMapCount:  1,
			OmniShadowCount: 1,
			OmniLightRanges: [MaxOmniShadowMaps]float32{50},
			RingShadowCount: 2,
		})
		require.Equal(t, [4]float32{0.1, 0.2, 0.3, 0.5}, u.Diffuse)
		require.Equal(t, float32(40), u.Specular[3])
		require.Equal(t, float32(1), u.Flags[0])
		require.Equal(t, float32(2), u.Flags[3])
		require.Equal(t, [4]float32{4, 5, 6, 1}, u.LightPosition[1])
		require.Equal(t, float32(0.01), u.LightColor[1][3])
		require.Equal(t, [4]float32{2, 1, 1, 0}, u.Counts)
		require.Equal(t, float32(50), u.OmniPosition[0][3])
	})
}
