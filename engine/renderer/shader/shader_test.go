package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testUniforms = "struct DrawUniforms { projection: mat4x4<f32>, };"

func TestPreProcessorProcess(t *testing.T) {
	pp := NewPreProcessor()
	pp.Register("draw_uniforms", testUniforms)

	src := strings.Join([]string{
		"//@oxy:include draw_uniforms",
		"a",
		"//@oxy:if NORMAL",
		"b",
		"//@oxy:if !TEXCOORD",
		"c",
		"//@oxy:else",
		"d",
		"//@oxy:endif",
		"//@oxy:else",
		"e",
		"//@oxy:endif",
		"f",
	}, "\n")

	t.Run("Process: include is injected", func(t *testing.T) {
		out, err := pp.Process(src, 0)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(out, testUniforms))
	})

	t.Run("Process: disabled feature takes else branch", func(t *testing.T) {
		out, err := pp.Process(src, 0)
		require.NoError(t, err)
		require.Equal(t, []string{testUniforms, "a", "e", "f"}, strings.Split(out, "\n"))
	})

	t.Run("Process: nested negation", func(t *testing.T) {
		out, err := pp.Process(src, FeatureNormal)
		require.NoError(t, err)
		require.Equal(t, []string{testUniforms, "a", "b", "c", "f"}, strings.Split(out, "\n"))

		out, err = pp.Process(src, FeatureNormal|FeatureTexCoord)
		require.NoError(t, err)
		require.Equal(t, []string{testUniforms, "a", "b", "d", "f"}, strings.Split(out, "\n"))
	})

	t.Run("Process: include inside a dropped block is ignored", func(t *testing.T) {
		out, err := pp.Process("//@oxy:if SHADOWS\n//@oxy:include missing\n//@oxy:endif\nx", 0)
		require.NoError(t, err)
		require.Equal(t, "x", out)
	})
}

func TestPreProcessorErrors(t *testing.T) {
	pp := NewPreProcessor()
	cases := map[string]string{
		"unknown include":     "//@oxy:include nope",
		"unknown feature":     "//@oxy:if SPARKLES\n//@oxy:endif",
		"unknown annotation":  "//@oxy:group 0 0",
		"else without if":     "//@oxy:else",
		"endif without if":    "//@oxy:endif",
		"unterminated if":     "//@oxy:if NORMAL\nx",
		"duplicate else":      "//@oxy:if NORMAL\n//@oxy:else\n//@oxy:else\n//@oxy:endif",
		"endif with argument": "//@oxy:if NORMAL\n//@oxy:endif NORMAL",
		"empty annotation":    "//@oxy:",
	}
	for name, src := range cases {
		t.Run("Process: "+name, func(t *testing.T) {
			_, err := pp.Process(src, FeatureNormal)
			require.Error(t, err)
		})
	}

	t.Run("Process: annotation text outside a comment is plain source", func(t *testing.T) {
		out, err := pp.Process("let s = \"@oxy:if\";", 0)
		require.NoError(t, err)
		require.Equal(t, "let s = \"@oxy:if\";", out)
	})
}

func TestFeatureString(t *testing.T) {
	require.Equal(t, "NONE", Feature(0).String())
	require.Equal(t, "NORMAL+SHADOWS", (FeatureShadows | FeatureNormal).String())
	require.True(t, (FeatureShadows | FeatureNormal).Has(FeatureNormal))
	require.False(t, FeatureNormal.Has(FeatureNormal|FeatureTangent))
}

func TestLibrary(t *testing.T) {
	lib := NewLibrary(map[string]string{"draw_uniforms": testUniforms})

	t.Run("Shader: every program builds for every lighting variant", func(t *testing.T) {
		variants := []Feature{
			0,
			FeatureNormal | FeatureTexCoord,
			FeatureNormal | FeatureTexCoord | FeatureTangent | FeatureBaseTexture | FeatureNormalMap,
			FeatureNormal | FeatureShadows | FeatureOmniShadows,
			FeatureColor | FeatureEmissive,
		}
		for _, f := range variants {
			s, err := lib.Shader(ProgramSurface, f)
			require.NoError(t, err)
			require.Equal(t, "vs_main", s.VertexEntryPoint())
			require.Equal(t, "fs_main", s.FragmentEntryPoint())
			require.NotContains(t, s.Source(), "@oxy:")
			require.Equal(t, f, s.Features())
		}
	})

	t.Run("Shader: depth program has no fragment stage", func(t *testing.T) {
		s, err := lib.Shader(ProgramShadowDepth, 0)
		require.NoError(t, err)
		require.Equal(t, "", s.FragmentEntryPoint())
		require.NotNil(t, s.Module())
	})

	t.Run("Shader: variants are cached", func(t *testing.T) {
		before := lib.Len()
		a, err := lib.Shader(ProgramCameraDistance, 0)
		require.NoError(t, err)
		b, err := lib.Shader(ProgramCameraDistance, 0)
		require.NoError(t, err)
		require.Same(t, a, b)
		require.Equal(t, before+1, lib.Len())
	})

	t.Run("Shader: unknown program", func(t *testing.T) {
		_, err := lib.Shader(Program("nope"), 0)
		require.Error(t, err)
	})

	t.Run("Shader: normal map variant samples the normal texture", func(t *testing.T) {
		s, err := lib.Shader(ProgramSurface, FeatureNormal|FeatureTexCoord|FeatureTangent|FeatureNormalMap)
		require.NoError(t, err)
		require.Contains(t, s.Source(), "textureSample(normal_texture")

		plain, err := lib.Shader(ProgramSurface, FeatureNormal)
		require.NoError(t, err)
		require.NotContains(t, plain.Source(), "textureSample(normal_texture")
	})
}
