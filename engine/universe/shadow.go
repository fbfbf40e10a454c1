package universe

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// CubeFaceRotations are the camera orientations looking through the six faces of a cube map in
// the order +X, -X, +Y, -Y, +Z, -Z. Each face is also rolled half a turn about its view axis to
// match cube map texel addressing.
var CubeFaceRotations = func() [6]quat.Number {
	faces := [6]struct {
		axis  r3.Vec
		angle float64
	}{
		{r3.Vec{Y: 1}, -math.Pi / 2},
		{r3.Vec{Y: 1}, math.Pi / 2},
		{r3.Vec{X: 1}, math.Pi / 2},
		{r3.Vec{X: 1}, -math.Pi / 2},
		{r3.Vec{Y: 1}, 0},
		{r3.Vec{Y: 1}, math.Pi},
	}
	roll := common.AxisAngle(r3.Vec{Z: 1}, math.Pi)

	var out [6]quat.Number
	for i, f := range faces {
		out[i] = quat.Mul(common.AxisAngle(f.axis, f.angle), roll)
	}
	return out
}()

// ShadowView returns the view matrix of a directional shadow map: a rotation whose rows are an
// orthonormal basis with the light direction as its third row.
//
// Parameters:
//   - lightDirection: the unit direction toward the light
//
// Returns:
//   - common.Mat4: the view matrix
func ShadowView(lightDirection r3.Vec) common.Mat4 {
	u := common.UnitOrthogonal(lightDirection)
	v := r3.Cross(u, lightDirection)

	m := common.IdentityMat4()
	m[0], m[4], m[8] = float32(v.X), float32(v.Y), float32(v.Z)
	m[1], m[5], m[9] = float32(u.X), float32(u.Y), float32(u.Z)
	m[2], m[6], m[10] = float32(lightDirection.X), float32(lightDirection.Y), float32(lightDirection.Z)
	return m
}

// ShadowBias maps clip space [-1, 1] into shadow texture space [0, 1] on every axis.
//
// Returns:
//   - common.Mat4: the bias matrix
func ShadowBias() common.Mat4 {
	return common.Translation(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}).
		Mul(common.Scaling(r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}))
}

// SetupShadowRendering starts a directional shadow pass and loads an orthographic projection and
// light view enclosing a sphere of the given radius around the origin. The caller pushes the
// projection and model view first and pops them after EndShadowMap.
//
// Parameters:
//   - rc: the render context
//   - sm: the shadow map to draw into
//   - lightDirection: the unit direction toward the light
//   - radius: the radius of the receiver sphere
//
// Returns:
//   - common.Mat4: bias · projection · view, mapping receiver-centered coordinates to shadow texture space
//   - bool: false if the shadow pass could not be started
func SetupShadowRendering(rc renderer.RenderContext, sm *renderer.ShadowMap, lightDirection r3.Vec, radius float64) (common.Mat4, bool) {
	if !rc.BeginShadowMap(sm) {
		return common.IdentityMat4(), false
	}

	projection := common.NewOrthographic(-radius, radius, -radius, radius, -radius, radius)
	view := ShadowView(lightDirection)
	rc.SetProjection(projection)
	rc.SetModelView(view)

	return ShadowBias().Mul(projection.Matrix()).Mul(view), true
}

// spanCasters reports whether any item of the span casts a shadow map shadow, together with
// the sphere bounding every receiver of the span.
func (r *universeRendererImpl) spanCasters(span DepthBufferSpan) (bool, common.BoundingSphere) {
	receivers := common.EmptySphere()
	casters := false
	for i := 0; i < span.ItemCount; i++ {
		item := &r.visible[span.BackItemIndex-i]
		g := item.Geometry
		if g.IsShadowReceiver() {
			receivers = receivers.Merge(common.BoundingSphere{
				Center: item.CameraRelativePosition,
				Radius: item.BoundingRadius,
			})
		}
		if g.IsShadowCaster() && !g.IsEllipsoidal() {
			casters = true
		}
	}
	return casters, receivers
}

// renderSpanShadows draws the directional shadow map of one span for a Sun at lightPosition.
//
// Parameters:
//   - span: the span being drawn
//   - lightPosition: the camera-relative position of the Sun
//
// Returns:
//   - bool: true if the span's receivers should sample the shadow map
func (r *universeRendererImpl) renderSpanShadows(span DepthBufferSpan, lightPosition r3.Vec) bool {
	if !r.shadowsEnabled || len(r.shadowMaps) == 0 || r.shadowMaps[0] == nil {
		return false
	}
	casters, receivers := r.spanCasters(span)
	if !casters || receivers.IsEmpty() {
		return false
	}

	rc := r.rc
	sm := r.shadowMaps[0]
	center := receivers.Center
	lightDirection := r3.Unit(r3.Sub(lightPosition, center))

	rc.PushProjection()
	rc.PushModelView()
	shadowTransform, ok := SetupShadowRendering(rc, sm, lightDirection, receivers.Radius)
	if !ok {
		rc.PopModelView()
		rc.PopProjection()
		return false
	}

	cull := rc.CullMode()
	rc.SetCullMode(renderer.CullFront)
	for i := 0; i < span.ItemCount; i++ {
		item := &r.visible[span.BackItemIndex-i]
		g := item.Geometry
		if !g.IsShadowCaster() || g.IsEllipsoidal() {
			continue
		}
		rc.PushModelView()
		rc.TranslateModelView(r3.Sub(item.CameraRelativePosition, center))
		rc.RotateModelView(item.Orientation)
		g.RenderShadow(rc, r.t)
		rc.PopModelView()
	}
	rc.SetCullMode(cull)
	rc.EndShadowMap()

	rc.PopModelView()
	rc.PopProjection()

	rc.SetShadowMap(sm, shadowTransform.Mul(common.Translation(r3.Scale(-1, center))))
	r.stats.ShadowMaps++
	instrumentShadowMap(shadowKindDirectional)
	return true
}

// renderSpanOmniShadows draws the six faces of one omni shadow cube map for a point light.
//
// Parameters:
//   - index: the omni shadow slot to fill
//   - span: the span being drawn
//   - vl: the point light
//
// Returns:
//   - bool: true if the slot was filled and receivers should sample it
func (r *universeRendererImpl) renderSpanOmniShadows(index int, span DepthBufferSpan, vl *VisibleLight) bool {
	if !r.shadowsEnabled || index >= len(r.omniShadowMaps) || r.omniShadowMaps[index] == nil {
		return false
	}
	lightRange := vl.Light.Range()
	if lightRange <= 0 {
		return false
	}
	casters, receivers := r.spanCasters(span)
	if !casters || receivers.IsEmpty() {
		return false
	}

	rc := r.rc
	cm := r.omniShadowMaps[index]
	projection := common.NewPerspectiveLH(math.Pi/2, 1, lightRange*light.OmniShadowNearRatio, lightRange)
	faceFrustum := projection.Frustum()

	front, cull, orientation := rc.FrontFace(), rc.CullMode(), rc.CameraOrientation()
	rc.PushProjection()
	rc.SetProjection(projection)
	rc.SetRendererOutput(renderer.CameraDistance)
	rc.SetFrontFace(renderer.FrontFaceCW)
	rc.SetCullMode(renderer.CullFront)

	rendered := false
	for face, faceOrientation := range CubeFaceRotations {
		if !rc.BeginCubeFace(cm, face, light.OmniShadowClearDistance) {
			continue
		}
		rendered = true

		toFace := common.Conjugate(faceOrientation)
		rc.PushModelView()
		rc.SetModelView(common.IdentityMat4())
		rc.RotateModelView(toFace)
		rc.SetCameraOrientation(faceOrientation)

		for i := 0; i < span.ItemCount; i++ {
			item := &r.visible[span.BackItemIndex-i]
			g := item.Geometry
			if !g.IsShadowCaster() || g.IsEllipsoidal() {
				continue
			}
			position := r3.Sub(item.CameraRelativePosition, vl.CameraRelativePosition)
			faceSpace := common.Rotate(toFace, position)
			if !faceFrustum.Intersects(common.BoundingSphere{Center: faceSpace, Radius: item.BoundingRadius}) {
				continue
			}
			rc.PushModelView()
			rc.TranslateModelView(position)
			rc.RotateModelView(item.Orientation)
			g.RenderShadow(rc, r.t)
			rc.PopModelView()
		}

		rc.PopModelView()
		rc.EndCubeFace()
	}

	rc.SetCameraOrientation(orientation)
	rc.PopProjection()
	rc.SetRendererOutput(renderer.FragmentColor)
	rc.SetFrontFace(front)
	rc.SetCullMode(cull)

	if !rendered {
		return false
	}
	rc.SetOmniShadowMap(index, cm, vl.CameraRelativePosition, lightRange)
	r.stats.OmniShadowMaps++
	instrumentShadowMap(shadowKindOmni)
	return true
}
