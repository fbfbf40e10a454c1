package renderer

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-astro/common"
)

// GPUDrawUniformsSource is the canonical WGSL definition of the DrawUniforms struct.
// Matches GPUDrawUniforms layout exactly (528 bytes, uniform aligned).
//
//go:embed assets/draw_uniforms.wgsl
var GPUDrawUniformsSource string

// drawUniformsStride is the distance between consecutive DrawUniforms in the per-frame uniform
// buffer. Dynamic offsets must be multiples of 256.
const drawUniformsStride = 768

// GPUDrawUniforms is the per-draw uniform block read by every shader program.
// Matches the WGSL DrawUniforms struct layout exactly (see GPUDrawUniformsSource).
// Size: 528 bytes.
type GPUDrawUniforms struct {
	Projection    common.Mat4                   // offset   0: clip from eye, depth already in [0, 1]
	ModelView     common.Mat4                   // offset  64: eye from model
	ShadowMatrix  common.Mat4                   // offset 128: shadow texture from model
	ViewInverse   common.Mat4                   // offset 192: camera-relative world from eye
	Diffuse       [4]float32                    // offset 256: RGB diffuse + opacity
	Specular      [4]float32                    // offset 272: RGB specular + power
	Emission      [4]float32                    // offset 288: RGB emission
	Ambient       [4]float32                    // offset 304: RGB ambient
	LightPosition [MaxActiveLights][4]float32   // offset 320: eye position + type
	LightColor    [MaxActiveLights][4]float32   // offset 384: RGB color + attenuation
	OmniPosition  [MaxOmniShadowMaps][4]float32 // offset 448: camera-relative position + range
	Counts        [4]float32                    // offset 496: lights, shadow maps, omni maps, eclipses
	Flags         [4]float32                    // offset 512: emissive, base texture, normal map, ring shadows
}

// Size returns the size of the GPUDrawUniforms struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (528)
func (u *GPUDrawUniforms) Size() int {
	return int(unsafe.Sizeof(*u))
}

// Marshal serializes the GPUDrawUniforms struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 528-byte buffer ready for GPU upload
func (u *GPUDrawUniforms) Marshal() []byte {
	buf := make([]byte, 0, 528)
	buf = appendFloats(buf, u.Projection[:]...)
	buf = appendFloats(buf, u.ModelView[:]...)
	buf = appendFloats(buf, u.ShadowMatrix[:]...)
	buf = appendFloats(buf, u.ViewInverse[:]...)
	buf = appendFloats(buf, u.Diffuse[:]...)
	buf = appendFloats(buf, u.Specular[:]...)
	buf = appendFloats(buf, u.Emission[:]...)
	buf = appendFloats(buf, u.Ambient[:]...)
	for i := range u.LightPosition {
		buf = appendFloats(buf, u.LightPosition[i][:]...)
	}
	for i := range u.LightColor {
		buf = appendFloats(buf, u.LightColor[i][:]...)
	}
	for i := range u.OmniPosition {
		buf = appendFloats(buf, u.OmniPosition[i][:]...)
	}
	buf = appendFloats(buf, u.Counts[:]...)
	buf = appendFloats(buf, u.Flags[:]...)
	return buf
}

func appendFloats(buf []byte, vs ...float32) []byte {
	for _, v := range vs {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

// zeroToOneDepth remaps clip z from [-w, w] to [0, w].
var zeroToOneDepth = common.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// newDrawUniforms flattens a DrawCommand into its uniform block.
//
// Parameters:
//   - cmd: the draw command
//
// Returns:
//   - GPUDrawUniforms: the uniform block
func newDrawUniforms(cmd DrawCommand) GPUDrawUniforms {
	u := GPUDrawUniforms{
		Projection:   zeroToOneDepth.Mul(cmd.Projection),
		ModelView:    cmd.ModelView,
		ShadowMatrix: cmd.ShadowMatrix,
		ViewInverse:  cmd.ViewInverse,
		Ambient:      [4]float32{cmd.Ambient[0], cmd.Ambient[1], cmd.Ambient[2], 1},
	}

	if m := cmd.Material; m != nil {
		d, s, e := m.Diffuse(), m.Specular(), m.Emission()
		u.Diffuse = [4]float32{d[0], d[1], d[2], m.Opacity()}
		u.Specular = [4]float32{s[0], s[1], s[2], m.SpecularPower()}
		u.Emission = [4]float32{e[0], e[1], e[2], 0}
		if m.IsEmissive() {
			u.Flags[0] = 1
		}
		if m.BaseTexture() != nil {
			u.Flags[1] = 1
		}
		if m.NormalTexture() != nil {
			u.Flags[2] = 1
		}
	}

	n := min(len(cmd.Lights), MaxActiveLights)
	for i := 0; i < n; i++ {
		l := cmd.Lights[i]
		u.LightPosition[i] = [4]float32{l.Position[0], l.Position[1], l.Position[2], float32(l.Type)}
		u.LightColor[i] = [4]float32{l.Color[0], l.Color[1], l.Color[2], l.Attenuation}
	}
	for i := 0; i < cmd.OmniShadowCount && i < MaxOmniShadowMaps; i++ {
		p := cmd.OmniLightPositions[i]
		u.OmniPosition[i] = [4]float32{p[0], p[1], p[2], cmd.OmniLightRanges[i]}
	}

	u.Counts = [4]float32{
		float32(n),
		float32(cmd.ShadowMapCount),
		float32(min(cmd.OmniShadowCount, MaxOmniShadowMaps)),
		float32(cmd.EclipseCount),
	}
	u.Flags[3] = float32(cmd.RingShadowCount)
	return u
}
