// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ErrTypeImageDecode tags errors returned by ImageSource.Decode.
const ErrTypeImageDecode = "image_decode"

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// ImageSource locates image bytes either in memory or on disk.
// For in-memory images the Data field contains raw PNG/JPEG bytes.
// For files the Path field contains the file path.
type ImageSource struct {
	// Path is the file path for images stored on disk (empty for in-memory).
	Path string

	// Data contains raw image bytes (PNG/JPEG).
	Data []byte
}

// Decode decodes the image to raw RGBA pixel data.
// Uses either in-memory Data bytes or loads from Path on disk.
// Supports PNG and JPEG formats.
// Reference: https://pkg.go.dev/image
//
// Returns:
//   - TextureStagingData: raw RGBA pixels plus dimensions
//   - error: error if decoding fails
func (s ImageSource) Decode() (TextureStagingData, error) {
	var img image.Image
	var err error

	switch {
	case len(s.Data) > 0:
		img, _, err = image.Decode(bytes.NewReader(s.Data))
		if err != nil {
			return TextureStagingData{}, errors.New("decoding in-memory image failed").
				WithType(ErrTypeImageDecode).
				Wrap(err)
		}
	case s.Path != "":
		file, fileErr := os.Open(s.Path)
		if fileErr != nil {
			return TextureStagingData{}, errors.New("opening image file failed").
				WithType(ErrTypeImageDecode).
				WithTag("path", s.Path).
				Wrap(fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureStagingData{}, errors.New("decoding image file failed").
				WithType(ErrTypeImageDecode).
				WithTag("path", s.Path).
				Wrap(err)
		}
	default:
		return TextureStagingData{}, errors.New("image has neither data nor path").
			WithType(ErrTypeImageDecode)
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}
