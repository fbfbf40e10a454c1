package scene

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	au        = 1.496e8
	year      = 365.25 * 86400
	moonOrbit = 384400.0
	month     = 27.32 * 86400
)

func box() geometry.Geometry {
	return geometry.NewBoxGeometry(r3.Vec{X: 1, Y: 1, Z: 1}, material.NewMaterial())
}

func requireVec(t *testing.T, want, got r3.Vec, delta float64) {
	t.Helper()
	require.InDelta(t, want.X, got.X, delta)
	require.InDelta(t, want.Y, got.Y, delta)
	require.InDelta(t, want.Z, got.Z, delta)
}

// solarSystem is a Sun with an Earth on a circular orbit and a Moon around the Earth.
func solarSystem(t *testing.T, options ...UniverseBuilderOption) *Universe {
	t.Helper()
	u := NewUniverse(options...)
	sun, err := u.AddBody("sun", r3.Vec{}, nil)
	require.NoError(t, err)
	require.NoError(t, u.AddLight(sun, light.NewLightSource(light.Sun), light.SolarRadius))

	earth, err := u.AddOrbitingBody("earth", Orbit{Parent: sun, SemiMajorAxis: au, Period: year}, box())
	require.NoError(t, err)
	_, err = u.AddOrbitingBody("moon", Orbit{Parent: earth, SemiMajorAxis: moonOrbit, Period: month}, box())
	require.NoError(t, err)
	return u
}

func TestEccentricAnomaly(t *testing.T) {
	for _, e := range []float64{0, 0.1, 0.5, 0.9, 0.99} {
		for _, m := range []float64{-3, -1, 0, 0.5, 2, 3.1} {
			ea := EccentricAnomaly(m, e)
			require.InDelta(t, m, ea-e*math.Sin(ea), 1e-9, "e=%v M=%v", e, m)
		}
	}
}

func TestOrbit(t *testing.T) {
	t.Run("PositionAt: circular orbits keep their radius in the ecliptic", func(t *testing.T) {
		o := Orbit{SemiMajorAxis: 100, Period: 10}
		for _, ts := range []float64{0, 1, 2.5, 7} {
			p := o.PositionAt(ts)
			require.InDelta(t, 100, r3.Norm(p), 1e-9)
			require.InDelta(t, 0, p.Y, 1e-9)
		}
		requireVec(t, r3.Vec{X: 100}, o.PositionAt(0), 1e-9)
		requireVec(t, r3.Vec{X: -100}, o.PositionAt(5), 1e-9)
	})

	t.Run("PositionAt: periapsis and apoapsis distances", func(t *testing.T) {
		o := Orbit{SemiMajorAxis: 100, Eccentricity: 0.5, Period: 10}
		require.InDelta(t, 50, r3.Norm(o.PositionAt(0)), 1e-9)
		require.InDelta(t, 150, r3.Norm(o.PositionAt(5)), 1e-9)
	})

	t.Run("PositionAt: a polar orbit leaves the ecliptic", func(t *testing.T) {
		o := Orbit{SemiMajorAxis: 100, Inclination: math.Pi / 2, Period: 4}
		require.InDelta(t, 100, math.Abs(o.PositionAt(1).Y), 1e-9)
	})

	t.Run("State: velocity is tangent to a circular orbit", func(t *testing.T) {
		o := Orbit{SemiMajorAxis: 100, Period: 10}
		p, v := o.State()(1.3)
		require.InDelta(t, 0, r3.Dot(p, v), 1e-3)
		require.InDelta(t, 2*math.Pi*100/10, r3.Norm(v), 1e-6)
	})

	t.Run("OrientationAt: a full period returns to the start", func(t *testing.T) {
		s := Spin{Period: 86400, PhaseAtEpoch: 0.2}
		a := common.Rotate(s.OrientationAt(0), r3.Vec{X: 1})
		b := common.Rotate(s.OrientationAt(86400), r3.Vec{X: 1})
		requireVec(t, a, b, 1e-9)
		pole := common.Rotate(s.OrientationAt(1234), r3.Vec{Y: 1})
		requireVec(t, r3.Vec{Y: 1}, pole, 1e-12)
	})
}

func TestUniverse(t *testing.T) {
	t.Run("Advance: orbits move positions and moons follow planets", func(t *testing.T) {
		u := solarSystem(t, WithTimeScale(86400))
		earth, ok := u.Find("earth")
		require.True(t, ok)
		moon, _ := u.Find("moon")

		start, _ := u.Position(earth)
		require.InDelta(t, au, r3.Norm(start), 1)

		now := u.Advance(30)
		require.Equal(t, 30*86400.0, now)
		moved, _ := u.Position(earth)
		require.Greater(t, r3.Norm(r3.Sub(moved, start)), 1e7)

		moonPos, _ := u.Position(moon)
		require.InDelta(t, moonOrbit, r3.Norm(r3.Sub(moonPos, moved)), 1e-3)
	})

	t.Run("VisibleEntities: bodies without geometry are not drawn", func(t *testing.T) {
		u := solarSystem(t)
		entities := u.VisibleEntities(0)
		require.Len(t, entities, 2)
		names := []string{entities[0].Name, entities[1].Name}
		require.ElementsMatch(t, []string{"earth", "moon"}, names)
	})

	t.Run("VisibleEntities: the time argument positions the bodies", func(t *testing.T) {
		u := solarSystem(t)
		half := u.VisibleEntities(year / 2)
		for _, e := range half {
			if e.Name == "earth" {
				requireVec(t, r3.Vec{X: -au}, e.Position, 1)
			}
		}
		require.Equal(t, year/2, u.Time())
	})

	t.Run("LightSources: emitters report their body position", func(t *testing.T) {
		u := solarSystem(t)
		lights := u.LightSources(0)
		require.Len(t, lights, 1)
		require.Equal(t, light.Sun, lights[0].Light.Type())
		require.Equal(t, light.SolarRadius, lights[0].Radius)
		require.Equal(t, r3.Vec{}, lights[0].Position)
	})

	t.Run("AddBody: names are unique", func(t *testing.T) {
		u := solarSystem(t)
		_, err := u.AddBody("earth", r3.Vec{}, nil)
		require.Error(t, err)
	})

	t.Run("AddLight: a body emits at most one light", func(t *testing.T) {
		u := solarSystem(t)
		sun, _ := u.Find("sun")
		require.Error(t, u.AddLight(sun, light.NewLightSource(light.PointLight), 1))
	})

	t.Run("Remove: children go with their parent", func(t *testing.T) {
		u := solarSystem(t)
		earth, _ := u.Find("earth")
		u.Remove(earth)
		require.Equal(t, 1, u.Len())
		_, ok := u.Find("moon")
		require.False(t, ok)
		_, ok = u.Position(earth)
		require.False(t, ok)
		require.Empty(t, u.VisibleEntities(0))
	})

	t.Run("AddOrbitingBody: the parent must be alive", func(t *testing.T) {
		u := solarSystem(t)
		earth, _ := u.Find("earth")
		u.Remove(earth)
		_, err := u.AddOrbitingBody("probe", Orbit{Parent: earth, SemiMajorAxis: 10}, nil)
		require.Error(t, err)
	})

	t.Run("AddSpin: orientation follows the rotation", func(t *testing.T) {
		u := solarSystem(t)
		earth, _ := u.Find("earth")
		require.NoError(t, u.AddSpin(earth, Spin{Period: 86400}))
		var before, after r3.Vec
		for _, e := range u.VisibleEntities(0) {
			if e.Name == "earth" {
				before = common.Rotate(e.Orientation, r3.Vec{X: 1})
			}
		}
		for _, e := range u.VisibleEntities(21600) {
			if e.Name == "earth" {
				after = common.Rotate(e.Orientation, r3.Vec{X: 1})
			}
		}
		require.InDelta(t, 0, r3.Dot(before, after), 1e-9)
	})

	t.Run("AddOrbitPath: the path is centered on the parent", func(t *testing.T) {
		u := solarSystem(t)
		moon, _ := u.Find("moon")
		path, err := u.AddOrbitPath("moon_path", moon, 64)
		require.NoError(t, err)
		require.Equal(t, 65, path.SampleCount())
		require.Equal(t, geometry.SplitToPreventClipping, path.ClippingPolicy())

		earth, _ := u.Find("earth")
		earthPos, _ := u.Position(earth)
		e, _ := u.Find("moon_path")
		pathPos, _ := u.Position(e)
		requireVec(t, earthPos, pathPos, 1e-6)

		u.Advance(1e5)
		earthPos, _ = u.Position(earth)
		pathPos, _ = u.Position(e)
		requireVec(t, earthPos, pathPos, 1e-6)
	})

	t.Run("SkyLayers: layers come from the builder and AddSkyLayer", func(t *testing.T) {
		u := NewUniverse(WithSkyLayers(geometry.NewSkyImageLayer(nil)))
		u.AddSkyLayer(geometry.NewSkyImageLayer(nil))
		require.Len(t, u.SkyLayers(), 2)
	})
}
