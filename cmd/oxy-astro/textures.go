package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"

	"github.com/Carmen-Shannon/oxy-astro/engine/texture"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	starsTextureName  = "stars.png"
	cloudsTextureName = "clouds.png"
	glareTextureName  = "glare.png"

	earthTileSize = 256
)

// generatedTextures returns the stand-in textures used when no texture directory provides
// real imagery: a star field, cloud bands, a glare sprite and the two coarsest Earth tiles.
func generatedTextures() texture.MemorySource {
	src := texture.MemorySource{
		starsTextureName:  encode(starField(1024, 512, 2500)),
		cloudsTextureName: encode(cloudBands(512, 256)),
		glareTextureName:  encode(glareSprite(64)),
	}
	for column := 0; column < 2; column++ {
		src[fmt.Sprintf("earth/level0/tx_%d_0.png", column)] = encode(earthTile(earthTileSize, column))
	}
	return src
}

func encode(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		logs.Warn(err)
		return nil
	}
	return buf.Bytes()
}

func starField(w, h, count int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < count; i++ {
		// Uniform on the sphere: rows are spaced by the sine of latitude.
		x := rng.Intn(w)
		y := int((math.Acos(1-2*rng.Float64()) / math.Pi) * float64(h-1))
		v := uint8(80 + rng.Intn(176))
		img.Set(x, y, color.RGBA{R: v, G: v, B: uint8(min(255, int(v)+20)), A: 255})
	}
	return img
}

func cloudBands(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		lat := (0.5 - (float64(y)+0.5)/float64(h)) * math.Pi
		for x := 0; x < w; x++ {
			lon := (float64(x)+0.5)/float64(w)*2*math.Pi - math.Pi
			n := 0.5 + 0.25*math.Sin(lon*5+math.Sin(lat*7)*2) + 0.25*math.Sin(lat*11+lon*3)
			a := math.Max(0, n-0.45) * 2 * math.Cos(lat)
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: uint8(math.Min(1, a) * 230)})
		}
	}
	return img
}

func glareSprite(size int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r := math.Hypot(float64(x)-c, float64(y)-c) / c
			a := math.Max(0, 1-r)
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 245, B: 220, A: uint8(a * a * 255)})
		}
	}
	return img
}

// earthTile paints one level 0 tile: column 0 covers the western hemisphere.
func earthTile(size, column int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		lat := (0.5 - (float64(y)+0.5)/float64(size)) * math.Pi
		for x := 0; x < size; x++ {
			lon := (float64(column) + (float64(x)+0.5)/float64(size) - 1) * math.Pi
			land := math.Sin(lon*2)*math.Cos(lat*3) + 0.5*math.Sin(lon*5+lat*4)
			switch {
			case math.Abs(lat) > 1.2:
				img.SetRGBA(x, y, color.RGBA{R: 235, G: 240, B: 245, A: 255})
			case land > 0.55:
				g := uint8(90 + 60*math.Cos(lat))
				img.SetRGBA(x, y, color.RGBA{R: 70, G: g, B: 50, A: 255})
			default:
				img.SetRGBA(x, y, color.RGBA{R: 15, G: 45, B: 110, A: 255})
			}
		}
	}
	return img
}
