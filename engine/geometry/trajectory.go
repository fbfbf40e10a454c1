package geometry

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"gonum.org/v1/gonum/spatial/r3"
)

// minTrajectoryPixels is the projected size below which a trajectory is not drawn.
const minTrajectoryPixels = 0.5

// TrajectoryPortion selects which part of a sampled trajectory is drawn.
type TrajectoryPortion int

const (
	// Entire draws every sample.
	Entire TrajectoryPortion = iota
	// StartToCurrentTime draws the path already travelled.
	StartToCurrentTime
	// CurrentTimeToEnd draws the path still ahead.
	CurrentTimeToEnd
	// WindowBeforeCurrentTime draws a fixed-length window ending at the current time plus the lead.
	WindowBeforeCurrentTime
)

func (p TrajectoryPortion) String() string {
	switch p {
	case Entire:
		return "entire"
	case StartToCurrentTime:
		return "start_to_current_time"
	case CurrentTimeToEnd:
		return "current_time_to_end"
	case WindowBeforeCurrentTime:
		return "window_before_current_time"
	default:
		return "unknown"
	}
}

// StateFunc returns the position and velocity of a body at time t, relative to the center the
// trajectory is drawn around.
type StateFunc func(t float64) (position, velocity r3.Vec)

// CircularOrbit returns the state of a circular orbit in the xy-plane.
//
// Parameters:
//   - radius: the orbit radius in kilometers
//   - period: the orbital period in seconds
//   - phase: the angle at t = 0 in radians
//
// Returns:
//   - StateFunc: the orbit state function
func CircularOrbit(radius, period, phase float64) StateFunc {
	return func(t float64) (r3.Vec, r3.Vec) {
		if period == 0 {
			return r3.Vec{X: radius * math.Cos(phase), Y: radius * math.Sin(phase)}, r3.Vec{}
		}
		w := 2 * math.Pi / period
		a := phase + w*t
		c, s := math.Cos(a), math.Sin(a)
		return r3.Vec{X: radius * c, Y: radius * s}, r3.Vec{X: -radius * w * s, Y: radius * w * c}
	}
}

type trajectorySample struct {
	t        float64
	position r3.Vec
	velocity r3.Vec
}

// TrajectoryGeometry draws the path of a body as a line strip through time-ordered samples.
// Long paths cross many depth spans, so trajectories are split across all of them rather than
// clipped by any one.
type TrajectoryGeometry struct {
	shadowFlags

	Color   [3]float32
	Opacity float32

	Portion TrajectoryPortion
	// WindowDuration, WindowLead and FadeFraction configure WindowBeforeCurrentTime.
	WindowDuration float64
	WindowLead     float64
	FadeFraction   float64

	samples        []trajectorySample
	boundingRadius float64
	verts          []float32
}

var _ Geometry = &TrajectoryGeometry{}

// NewTrajectoryGeometry creates an empty white trajectory.
func NewTrajectoryGeometry() *TrajectoryGeometry {
	return &TrajectoryGeometry{
		shadowFlags: shadowFlags{clipping: SplitToPreventClipping},
		Color:       [3]float32{1, 1, 1},
		Opacity:     1,
	}
}

// AddSample appends a sample. Samples that are not later than the last one are discarded.
//
// Parameters:
//   - t: the sample time in seconds
//   - position: the position in kilometers
//   - velocity: the velocity in kilometers per second
func (g *TrajectoryGeometry) AddSample(t float64, position, velocity r3.Vec) {
	if n := len(g.samples); n > 0 && t <= g.samples[n-1].t {
		return
	}
	g.samples = append(g.samples, trajectorySample{t: t, position: position, velocity: velocity})
	g.boundingRadius = max(g.boundingRadius, r3.Norm(position))
}

// ClearSamples removes every sample.
func (g *TrajectoryGeometry) ClearSamples() {
	g.samples = g.samples[:0]
	g.boundingRadius = 0
}

// ComputeSamples replaces the samples with steps+1 evenly spaced states between start and end.
// The bounding radius is padded by 10% since the curve bulges between samples.
//
// Parameters:
//   - state: the state function
//   - start: the first sample time
//   - end: the last sample time
//   - steps: the number of intervals
func (g *TrajectoryGeometry) ComputeSamples(state StateFunc, start, end float64, steps int) {
	g.ClearSamples()
	if state == nil || end <= start || steps <= 0 {
		return
	}
	dt := (end - start) / float64(steps)
	for i := 0; i <= steps; i++ {
		t := start + float64(i)*dt
		p, v := state(t)
		g.AddSample(t, p, v)
	}
	g.boundingRadius *= 1.1
}

// SampleCount returns the number of samples.
func (g *TrajectoryGeometry) SampleCount() int {
	return len(g.samples)
}

// TimeRange returns the times of the first and last samples.
func (g *TrajectoryGeometry) TimeRange() (start, end float64) {
	if len(g.samples) == 0 {
		return 0, 0
	}
	return g.samples[0].t, g.samples[len(g.samples)-1].t
}

func (g *TrajectoryGeometry) BoundingSphereRadius() float64 {
	return g.boundingRadius
}

func (g *TrajectoryGeometry) NearPlaneDistance(cameraPosition r3.Vec) float64 {
	return boundingNearDistance(cameraPosition, g.boundingRadius)
}

func (g *TrajectoryGeometry) IsEllipsoidal() bool {
	return false
}

func (g *TrajectoryGeometry) IsOpaque() bool {
	return g.Opacity >= 1
}

// displayedRange returns the time range to draw at time t and whether the start fades in.
func (g *TrajectoryGeometry) displayedRange(t float64) (start, end float64, fade bool) {
	start, end = g.TimeRange()
	switch g.Portion {
	case StartToCurrentTime:
		end = t
	case CurrentTimeToEnd:
		start = t
	case WindowBeforeCurrentTime:
		end = t + g.WindowLead
		start = end - g.WindowDuration
		fade = g.FadeFraction > 0
	}
	return start, end, fade
}

// Render draws the visible portion of the path in the pass matching its opacity.
func (g *TrajectoryGeometry) Render(rc renderer.RenderContext, t float64) {
	if len(g.samples) < 2 {
		return
	}
	if (rc.Pass() == renderer.TranslucentPass) == g.IsOpaque() {
		return
	}

	start, end, fade := g.displayedRange(t)
	if end <= start {
		return
	}

	mv := rc.ModelView()
	distance := r3.Norm(r3.Vec{X: float64(mv[12]), Y: float64(mv[13]), Z: float64(mv[14])})
	if distance > 0 && (g.boundingRadius/distance)/rc.PixelSize() < minTrajectoryPixels {
		return
	}

	points := g.pointsBetween(start, end)
	if len(points) < 2 {
		return
	}

	if fade {
		fadeEnd := start + g.WindowDuration*g.FadeFraction
		g.verts = g.verts[:0]
		for _, p := range points {
			alpha := float32(1)
			if fadeEnd > start {
				alpha = float32(common.Clamp((p.t-start)/(fadeEnd-start), 0, 1))
			}
			g.verts = append(g.verts, float32(p.position.X), float32(p.position.Y), float32(p.position.Z),
				g.Color[0], g.Color[1], g.Color[2], alpha*g.Opacity)
		}
		rc.BindMaterial(material.NewMaterial(
			material.WithName("trajectory"),
			material.WithBlendMode(material.AlphaBlend),
		))
		rc.BindVertexArray(renderer.PositionColor, g.verts)
		rc.DrawPrimitives(renderer.LineStrip, nil)
		return
	}

	g.verts = g.verts[:0]
	for _, p := range points {
		g.verts = append(g.verts, float32(p.position.X), float32(p.position.Y), float32(p.position.Z))
	}
	rc.BindMaterial(material.NewMaterial(
		material.WithName("trajectory"),
		material.WithDiffuse([3]float32{}),
		material.WithEmission(g.Color),
		material.WithOpacity(g.Opacity),
	))
	rc.BindVertexArray(renderer.Position, g.verts)
	rc.DrawPrimitives(renderer.LineStrip, nil)
}

// RenderShadow does nothing. Lines cast no shadows.
func (g *TrajectoryGeometry) RenderShadow(rc renderer.RenderContext, t float64) {}

// pointsBetween returns the samples inside [start, end] with interpolated end points.
func (g *TrajectoryGeometry) pointsBetween(start, end float64) []trajectorySample {
	first, last := g.TimeRange()
	start, end = max(start, first), min(end, last)
	if end <= start {
		return nil
	}

	points := []trajectorySample{g.interpolate(start)}
	for _, s := range g.samples {
		if s.t > start && s.t < end {
			points = append(points, s)
		}
	}
	return append(points, g.interpolate(end))
}

// interpolate evaluates the cubic Hermite curve through the samples bracketing t.
func (g *TrajectoryGeometry) interpolate(t float64) trajectorySample {
	i := 1
	for i < len(g.samples)-1 && g.samples[i].t < t {
		i++
	}
	a, b := g.samples[i-1], g.samples[i]
	h := b.t - a.t
	if h <= 0 {
		return a
	}
	u := (t - a.t) / h
	u2, u3 := u*u, u*u*u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2

	p := r3.Add(r3.Add(r3.Scale(h00, a.position), r3.Scale(h10*h, a.velocity)),
		r3.Add(r3.Scale(h01, b.position), r3.Scale(h11*h, b.velocity)))
	return trajectorySample{t: t, position: p}
}
