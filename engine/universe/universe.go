package universe

import (
	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Entity is one drawable object of the universe at a given time. Positions are heliocentric
// kilometers.
type Entity struct {
	Name        string
	Position    r3.Vec
	Orientation quat.Number
	Geometry    geometry.Geometry
}

// LightSourceItem is a light placed in the universe. Radius is the apparent radius of the
// emitting body and sizes its glare.
type LightSourceItem struct {
	Light    light.LightSource
	Position r3.Vec
	Radius   float64
}

// Universe supplies the entities and lights to draw for a time.
type Universe interface {
	// VisibleEntities returns the entities that exist at time t.
	VisibleEntities(t float64) []Entity

	// LightSources returns the lights that shine at time t.
	LightSources(t float64) []LightSourceItem
}

// SkyLayerSource is implemented by universes that carry sky layers.
type SkyLayerSource interface {
	SkyLayers() []geometry.SkyLayer
}

// Observer is the camera a view is rendered from.
type Observer interface {
	Position() r3.Vec
	Orientation() quat.Number
}

// GlareOverlay draws glare sprites over bright lights after a view has been rendered.
type GlareOverlay interface {
	// TrackGlare is called once for every depth span holding a light's glare position, with the
	// span's projection and depth range already set. Implementations use it to decide how much
	// of the light is visible.
	//
	// Parameters:
	//   - rc: the render context
	//   - l: the light
	//   - position: the camera-space glare position
	//   - radius: the apparent radius of the light
	TrackGlare(rc renderer.RenderContext, l light.LightSource, position r3.Vec, radius float64)

	// RenderGlare draws the glare of a light over the full depth range.
	//
	// Parameters:
	//   - rc: the render context
	//   - l: the light
	//   - position: the camera-space glare position
	//   - radius: the apparent radius of the light
	RenderGlare(rc renderer.RenderContext, l light.LightSource, position r3.Vec, radius float64)
}

// VisibleLight is a light that survived culling for the current view.
type VisibleLight struct {
	LightSourceItem
	CameraRelativePosition r3.Vec
	CameraSpacePosition    r3.Vec
}

// FrameStats describes the work done by the most recent view.
type FrameStats struct {
	VisibleItems    int
	SplittableItems int
	RawSpans        int
	Spans           int
	RenderedSpans   int
	VisibleLights   int
	ShadowMaps      int
	OmniShadowMaps  int
	Tiles           int
}
