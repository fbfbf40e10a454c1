package main

import (
	"math"

	"github.com/Carmen-Shannon/oxy-astro/common"
	"github.com/Carmen-Shannon/oxy-astro/config"
	"github.com/Carmen-Shannon/oxy-astro/engine/geometry"
	"github.com/Carmen-Shannon/oxy-astro/engine/light"
	"github.com/Carmen-Shannon/oxy-astro/engine/quadtree"
	"github.com/Carmen-Shannon/oxy-astro/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-astro/engine/scene"
	"github.com/Carmen-Shannon/oxy-astro/engine/texture"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrTypeDemo tags errors returned while building the demo scene.
const ErrTypeDemo = "demo"

// Distances are in kilometers and times in seconds.
const (
	day = 86400.0

	earthEquatorialRadius = 6378.137
	earthPolarRadius      = 6356.752
	earthOrbitRadius      = 1.495978707e8
	earthYear             = 365.25636 * day
	earthDay              = 0.99726968 * day
	earthTilt             = 23.44 * math.Pi / 180

	moonRadius      = 1737.4
	moonOrbitRadius = 384400.0
	moonPeriod      = 27.321661 * day

	satelliteOrbitRadius = earthEquatorialRadius + 420
	satellitePeriod      = 5554.0

	// earthTileLevels is the depth of the Earth map pyramid read from the texture directory.
	earthTileLevels = 8
)

type solarSystem struct {
	universe    *scene.Universe
	focus       ecs.Entity
	focusRadius float64
}

func (s *solarSystem) focusPosition() r3.Vec {
	p, _ := s.universe.Position(s.focus)
	return p
}

// buildSolarSystem creates the body set named by conf.Scene.Bodies.
func buildSolarSystem(conf *config.Config, textures texture.Loader) (*solarSystem, error) {
	switch conf.Scene.Bodies {
	case "solar_system", "":
	default:
		return nil, errors.New("unknown body set").
			WithType(ErrTypeDemo).
			WithTag("bodies", conf.Scene.Bodies)
	}

	clamp := texture.Properties{AddressMode: texture.Clamp}
	stars := geometry.NewSkyImageLayer(textures.LoadTexture(starsTextureName, texture.Properties{}))
	u := scene.NewUniverse(
		scene.WithTimeScale(conf.Scene.TimeScale),
		scene.WithStartTime(conf.Scene.StartTime),
		scene.WithSkyLayers(stars),
	)

	tessellation := quadtree.TessellateOptions{
		CurveErrorPixels: conf.Render.CurveErrorPixels,
		MaxLevel:         conf.Render.MaxTileLevel,
	}

	sunMaterial := material.NewMaterial(
		material.WithName("sun"),
		material.WithDiffuse([3]float32{1, 0.92, 0.75}),
		material.WithEmissive(true),
	)
	sun, err := u.AddBody("Sun", r3.Vec{}, geometry.NewWorldGeometry(
		r3.Vec{X: light.SolarRadius, Y: light.SolarRadius, Z: light.SolarRadius},
		geometry.WithSurfaceMaterial(sunMaterial),
		geometry.WithTessellation(tessellation),
		geometry.WithWorldShadows(false, false),
	))
	if err != nil {
		return nil, err
	}
	sunlight := light.NewLightSource(light.Sun, light.WithSpectrum(1, 0.96, 0.9))
	if err := u.AddLight(sun, sunlight, light.SolarRadius); err != nil {
		return nil, err
	}

	levels := uint32(1)
	if conf.Textures.Dir != "" {
		levels = earthTileLevels
	}
	earthMap := texture.NewTiledMap(textures, "earth/", levels, texture.WithTileSize(earthTileSize))
	earthGeometry := geometry.NewWorldGeometry(
		r3.Vec{X: earthEquatorialRadius, Y: earthPolarRadius, Z: earthEquatorialRadius},
		geometry.WithSurfaceMaterial(material.NewMaterial(
			material.WithName("earth"),
			material.WithSpecular([3]float32{0.3, 0.3, 0.3}, 40),
		)),
		geometry.WithBaseMap(earthMap),
		geometry.WithClouds(8, textures.LoadTexture(cloudsTextureName, clamp)),
		geometry.WithAtmosphere(60, [3]float32{0.35, 0.55, 1}),
		geometry.WithTessellation(tessellation),
	)
	earthGeometry.SetWorldLayer("grid", geometry.NewLatLongGrid())
	earth, err := u.AddOrbitingBody("Earth", scene.Orbit{
		Parent:        sun,
		SemiMajorAxis: earthOrbitRadius,
		Eccentricity:  0.0167,
		Period:        earthYear,
	}, earthGeometry)
	if err != nil {
		return nil, err
	}
	if err := u.AddSpin(earth, scene.Spin{
		Tilt:   common.AxisAngle(r3.Vec{X: 1}, earthTilt),
		Period: earthDay,
	}); err != nil {
		return nil, err
	}

	moon, err := u.AddOrbitingBody("Moon", scene.Orbit{
		Parent:        earth,
		SemiMajorAxis: moonOrbitRadius,
		Eccentricity:  0.0549,
		Inclination:   5.145 * math.Pi / 180,
		Period:        moonPeriod,
	}, geometry.NewWorldGeometry(
		r3.Vec{X: moonRadius, Y: moonRadius, Z: moonRadius},
		geometry.WithSurfaceMaterial(material.NewMaterial(
			material.WithName("moon"),
			material.WithDiffuse([3]float32{0.6, 0.6, 0.58}),
		)),
		geometry.WithTessellation(tessellation),
	))
	if err != nil {
		return nil, err
	}
	if err := u.AddSpin(moon, scene.Spin{Period: moonPeriod}); err != nil {
		return nil, err
	}
	if _, err := u.AddOrbitPath("Moon orbit", moon, 256); err != nil {
		return nil, err
	}

	satellite, err := u.AddOrbitingBody("Satellite", scene.Orbit{
		Parent:        earth,
		SemiMajorAxis: satelliteOrbitRadius,
		Inclination:   51.6 * math.Pi / 180,
		Period:        satellitePeriod,
	}, geometry.NewBoxGeometry(r3.Vec{X: 0.05, Y: 0.02, Z: 0.02}, material.NewMaterial(
		material.WithName("satellite"),
		material.WithDiffuse([3]float32{0.85, 0.8, 0.6}),
		material.WithSpecular([3]float32{1, 1, 1}, 80),
	)))
	if err != nil {
		return nil, err
	}
	if _, err := u.AddOrbitPath("Satellite orbit", satellite, 128); err != nil {
		return nil, err
	}

	return &solarSystem{
		universe:    u,
		focus:       earth,
		focusRadius: earthEquatorialRadius,
	}, nil
}
