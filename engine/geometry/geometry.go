package geometry

import (
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"gonum.org/v1/gonum/spatial/r3"
)

// ClippingPolicy tells the renderer how to choose near planes for an object.
type ClippingPolicy int

const (
	// PreserveDepthPrecision keeps the near plane far enough from the object that depth precision
	// across its extent stays good. Nearby parts may be clipped.
	PreserveDepthPrecision ClippingPolicy = iota

	// PreventClipping moves the near plane as close as needed so that no part is clipped.
	PreventClipping

	// SplitToPreventClipping lets the object be drawn into every depth span it overlaps.
	// Long thin objects such as orbit paths use it.
	SplitToPreventClipping
)

func (p ClippingPolicy) String() string {
	switch p {
	case PreserveDepthPrecision:
		return "preserve_depth_precision"
	case PreventClipping:
		return "prevent_clipping"
	case SplitToPreventClipping:
		return "split_to_prevent_clipping"
	default:
		return "unknown"
	}
}

// Geometry is anything the universe renderer can draw for an entity. Geometry is drawn in its
// own local frame: the renderer has already translated the model view to the entity's
// camera-relative position and rotated it by the entity's orientation.
type Geometry interface {
	// BoundingSphereRadius returns the radius of a sphere centered on the local origin that
	// contains the whole geometry.
	//
	// Returns:
	//   - float64: the radius in kilometers
	BoundingSphereRadius() float64

	// ClippingPolicy returns how near planes are chosen for this geometry.
	//
	// Returns:
	//   - ClippingPolicy: the policy
	ClippingPolicy() ClippingPolicy

	// IsShadowCaster reports whether the geometry is drawn into shadow maps.
	IsShadowCaster() bool

	// IsShadowReceiver reports whether the geometry samples shadow maps.
	IsShadowReceiver() bool

	// IsEllipsoidal reports whether the geometry is an ellipsoid. Ellipsoids cast analytic eclipse
	// shadows instead of being drawn into shadow maps.
	IsEllipsoidal() bool

	// IsOpaque reports whether the geometry can be drawn entirely in the opaque pass.
	IsOpaque() bool

	// NearPlaneDistance returns the largest near plane distance that does not clip the geometry.
	//
	// Parameters:
	//   - cameraPosition: the camera position in the geometry's local frame
	//
	// Returns:
	//   - float64: the distance, which may be negative when the camera is inside the bounds
	NearPlaneDistance(cameraPosition r3.Vec) float64

	// Render draws the geometry for the current pass.
	//
	// Parameters:
	//   - rc: the render context
	//   - t: the simulation time in seconds
	Render(rc renderer.RenderContext, t float64)

	// RenderShadow draws the geometry into the active shadow map or cube face.
	//
	// Parameters:
	//   - rc: the render context
	//   - t: the simulation time in seconds
	RenderShadow(rc renderer.RenderContext, t float64)
}

// SkyLayer is drawn behind everything else, before any depth span, with only the camera
// rotation applied.
type SkyLayer interface {
	IsVisible() bool
	DrawOrder() int
	Render(rc renderer.RenderContext)
}

// TileCounter is implemented by geometry that tessellates quadtrees. It reports the tiles built
// by the most recent Render.
type TileCounter interface {
	TileCount() int
}

// shadowFlags holds the state shared by every Geometry implementation.
type shadowFlags struct {
	shadowCaster   bool
	shadowReceiver bool
	clipping       ClippingPolicy
}

func (f *shadowFlags) IsShadowCaster() bool {
	return f.shadowCaster
}

func (f *shadowFlags) IsShadowReceiver() bool {
	return f.shadowReceiver
}

func (f *shadowFlags) ClippingPolicy() ClippingPolicy {
	return f.clipping
}

// SetShadowCaster sets whether the geometry is drawn into shadow maps.
func (f *shadowFlags) SetShadowCaster(castsShadows bool) {
	f.shadowCaster = castsShadows
}

// SetShadowReceiver sets whether the geometry samples shadow maps.
func (f *shadowFlags) SetShadowReceiver(receivesShadows bool) {
	f.shadowReceiver = receivesShadows
}

// boundingNearDistance is the near plane distance of a geometry known only by its bounding sphere.
func boundingNearDistance(cameraPosition r3.Vec, radius float64) float64 {
	return r3.Norm(cameraPosition) - radius
}
